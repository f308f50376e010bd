package calibration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/soocke/itemscan/config"
)

// Result is the outcome of one (parameter, value) run.
type Result struct {
	Parameter string  `json:"parameter"`
	Category  string  `json:"category"`
	Value     float64 `json:"value"`
	Baseline  bool    `json:"baseline"`
	Metrics   Metrics `json:"metrics"`
	Delta     float64 `json:"delta"` // F1 minus the baseline configuration's F1
}

// Sweeper drives evaluations against a base configuration. Other parameters
// are held at their base values while one (or two) are varied.
type Sweeper struct {
	reg      *Registry
	eval     Evaluator
	base     *config.Config
	parallel int
	log      *slog.Logger

	mu       sync.Mutex
	baseline *Metrics
}

// NewSweeper returns a sweeper. parallel bounds concurrent evaluations; most
// evaluators already parallelize internally, so 1 is a sensible default.
func NewSweeper(reg *Registry, eval Evaluator, base *config.Config, parallel int, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if base == nil {
		base = config.DefaultConfig()
	}
	return &Sweeper{reg: reg, eval: eval, base: base.Clone(), parallel: max(1, parallel), log: log}
}

// Base returns a copy of the base configuration.
func (s *Sweeper) Base() *config.Config { return s.base.Clone() }

// Baseline evaluates the base configuration once and caches the result.
func (s *Sweeper) Baseline(ctx context.Context) (Metrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseline != nil {
		return *s.baseline, nil
	}
	m, err := s.eval.Evaluate(ctx, s.base.Clone())
	if err != nil {
		return Metrics{}, fmt.Errorf("baseline: %w", err)
	}
	s.baseline = &m
	s.log.Info("baseline evaluated", "f1", m.F1, "precision", m.Precision, "recall", m.Recall)
	return m, nil
}

// with returns the base configuration with the given assignments applied.
func (s *Sweeper) with(assign map[string]float64) (*config.Config, error) {
	cfg := s.base.Clone()
	for name, v := range assign {
		p, ok := s.reg.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown parameter %q", name)
		}
		p.Apply(cfg, v)
	}
	return cfg, nil
}

// Sweep evaluates every candidate of one parameter.
func (s *Sweeper) Sweep(ctx context.Context, name string) ([]Result, error) {
	p, ok := s.reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown parameter %q", name)
	}
	base, err := s.Baseline(ctx)
	if err != nil {
		return nil, err
	}
	baseValue := p.Value(s.base)
	out := make([]Result, len(p.Candidates))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for i, v := range p.Candidates {
		g.Go(func() error {
			res := Result{Parameter: p.Name, Category: p.Category, Value: v, Baseline: sameValue(v, baseValue)}
			if res.Baseline {
				res.Metrics = base
			} else {
				cfg, err := s.with(map[string]float64{p.Name: v})
				if err != nil {
					return err
				}
				m, err := s.eval.Evaluate(ctx, cfg)
				if err != nil {
					return fmt.Errorf("%s=%v: %w", p.Name, v, err)
				}
				res.Metrics = m
			}
			res.Delta = res.Metrics.F1 - base.F1
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if rc, ok := s.eval.(interface{ ResetCache() }); ok {
		rc.ResetCache()
	}
	s.log.Info("parameter swept", "parameter", p.Name, "values", len(out))
	return out, nil
}

// SweepAll sweeps each named parameter (or the whole registry) in order.
func (s *Sweeper) SweepAll(ctx context.Context, names []string) ([]Result, error) {
	params, err := s.reg.Select(names)
	if err != nil {
		return nil, err
	}
	var all []Result
	for _, p := range params {
		rs, err := s.Sweep(ctx, p.Name)
		if err != nil {
			return all, err
		}
		all = append(all, rs...)
	}
	return all, nil
}
