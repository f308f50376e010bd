package calibration

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/soocke/itemscan/config"
)

// Change is one parameter assignment considered by Greedy.
type Change struct {
	Parameter string  `json:"parameter"`
	Value     float64 `json:"value"`
	Delta     float64 `json:"delta"` // individual delta from the sweep
	F1        float64 `json:"f1"`    // combined F1 after trying the change
}

// GreedyResult is the configuration assembled from the individually best
// values.
type GreedyResult struct {
	Config   *config.Config `json:"-"`
	Baseline float64        `json:"baselineF1"`
	F1       float64        `json:"f1"`
	Metrics  Metrics        `json:"metrics"`
	Applied  []Change       `json:"applied"`
	Rejected []Change       `json:"rejected"`
}

// Greedy starts from the base configuration and applies each parameter's
// best improving value in order of decreasing delta, keeping a change only
// when the combined F1 does not drop.
func (s *Sweeper) Greedy(ctx context.Context, sweeps []Result) (*GreedyResult, error) {
	base, err := s.Baseline(ctx)
	if err != nil {
		return nil, err
	}
	best := map[string]Result{}
	for _, r := range sweeps {
		if r.Delta <= 0 {
			continue
		}
		if cur, ok := best[r.Parameter]; !ok || r.Delta > cur.Delta {
			best[r.Parameter] = r
		}
	}
	changes := make([]Change, 0, len(best))
	for _, r := range best {
		changes = append(changes, Change{Parameter: r.Parameter, Value: r.Value, Delta: r.Delta})
	}
	slices.SortFunc(changes, func(a, b Change) int {
		switch {
		case a.Delta > b.Delta:
			return -1
		case a.Delta < b.Delta:
			return 1
		}
		return strings.Compare(a.Parameter, b.Parameter)
	})

	res := &GreedyResult{Config: s.base.Clone(), Baseline: base.F1, F1: base.F1, Metrics: base}
	assign := map[string]float64{}
	for _, c := range changes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		assign[c.Parameter] = c.Value
		cfg, err := s.with(assign)
		if err != nil {
			return nil, err
		}
		m, err := s.eval.Evaluate(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("greedy %s=%v: %w", c.Parameter, c.Value, err)
		}
		c.F1 = m.F1
		if m.F1 >= res.F1 {
			res.Config, res.F1, res.Metrics = cfg, m.F1, m
			res.Applied = append(res.Applied, c)
			s.log.Info("greedy change kept", "parameter", c.Parameter, "value", c.Value, "f1", m.F1)
			continue
		}
		delete(assign, c.Parameter)
		res.Rejected = append(res.Rejected, c)
		s.log.Info("greedy change rejected", "parameter", c.Parameter, "value", c.Value, "f1", m.F1)
	}
	return res, nil
}
