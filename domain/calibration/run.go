package calibration

import (
	"context"

	"github.com/soocke/itemscan/config"
)

// Run performs a full calibration pass: baseline, one-at-a-time sweeps,
// sensitivity ranking, pair interactions and the greedy combination.
func Run(ctx context.Context, s *Sweeper, c config.CalibrationConfig) (*Report, error) {
	r := NewReport()
	base, err := s.Baseline(ctx)
	if err != nil {
		return nil, err
	}
	r.Baseline = base
	r.Cases = base.Frames

	if r.Sweeps, err = s.SweepAll(ctx, c.Parameters); err != nil {
		return nil, err
	}
	r.Sensitivity = Rank(r.Sweeps)

	pairs := c.Pairs
	if len(pairs) == 0 {
		pairs = TopPairs(r.Sensitivity, c.TopPairs)
	}
	for _, pq := range pairs {
		cells, err := s.Interact(ctx, pq[0], pq[1], c.PairValues, r.Sweeps)
		if err != nil {
			return nil, err
		}
		s.log.Info("pair swept", "p", pq[0], "q", pq[1], "cells", len(cells), "mean_effect", MeanEffect(cells))
		r.Interactions = append(r.Interactions, cells...)
	}

	if r.Greedy, err = s.Greedy(ctx, r.Sweeps); err != nil {
		return nil, err
	}
	return r, nil
}
