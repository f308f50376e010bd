package calibration

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// DeadZone is the |effect| below which a pair counts as independent.
const DeadZone = 0.01

// Interaction kinds.
const (
	Synergy  = "synergy"
	Conflict = "conflict"
	Neutral  = "neutral"
)

// Interaction compares a jointly swept pair against the additive prediction
// built from each parameter's individual delta.
type Interaction struct {
	P        string  `json:"p"`
	Q        string  `json:"q"`
	PValue   float64 `json:"pValue"`
	QValue   float64 `json:"qValue"`
	Actual   float64 `json:"actualF1"`
	Expected float64 `json:"expectedF1"`
	Effect   float64 `json:"effect"`
	Kind     string  `json:"kind"`
}

// Classify labels an interaction effect using DeadZone.
func Classify(effect float64) string {
	switch {
	case effect > DeadZone:
		return Synergy
	case effect < -DeadZone:
		return Conflict
	}
	return Neutral
}

// PairValues picks up to n non-baseline candidates of p, spread evenly over
// the candidate list.
func PairValues(p Parameter, n int) []float64 {
	var vals []float64
	for _, v := range p.Candidates {
		if !sameValue(v, p.Baseline) {
			vals = append(vals, v)
		}
	}
	if n <= 0 || len(vals) <= n {
		return vals
	}
	out := make([]float64, n)
	for i := range out {
		idx := 0
		if n > 1 {
			idx = int(math.Round(float64(i) * float64(len(vals)-1) / float64(n-1)))
		}
		out[i] = vals[idx]
	}
	return out
}

// Interact sweeps the reduced cross-product of p and q. Individual deltas
// are taken from sweeps when present and evaluated otherwise.
func (s *Sweeper) Interact(ctx context.Context, p, q string, n int, sweeps []Result) ([]Interaction, error) {
	pp, ok := s.reg.Get(p)
	if !ok {
		return nil, fmt.Errorf("unknown parameter %q", p)
	}
	qp, ok := s.reg.Get(q)
	if !ok {
		return nil, fmt.Errorf("unknown parameter %q", q)
	}
	base, err := s.Baseline(ctx)
	if err != nil {
		return nil, err
	}
	type key struct {
		name  string
		value float64
	}
	deltas := map[key]float64{}
	for _, r := range sweeps {
		deltas[key{r.Parameter, r.Value}] = r.Delta
	}
	delta := func(ctx context.Context, name string, v float64) (float64, error) {
		for k, d := range deltas {
			if k.name == name && sameValue(k.value, v) {
				return d, nil
			}
		}
		cfg, err := s.with(map[string]float64{name: v})
		if err != nil {
			return 0, err
		}
		m, err := s.eval.Evaluate(ctx, cfg)
		if err != nil {
			return 0, err
		}
		return m.F1 - base.F1, nil
	}

	pv, qv := PairValues(pp, n), PairValues(qp, n)
	dp := make([]float64, len(pv))
	dq := make([]float64, len(qv))
	for i, v := range pv {
		if dp[i], err = delta(ctx, p, v); err != nil {
			return nil, err
		}
	}
	for j, v := range qv {
		if dq[j], err = delta(ctx, q, v); err != nil {
			return nil, err
		}
	}

	out := make([]Interaction, len(pv)*len(qv))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for i, a := range pv {
		for j, b := range qv {
			g.Go(func() error {
				cfg, err := s.with(map[string]float64{p: a, q: b})
				if err != nil {
					return err
				}
				m, err := s.eval.Evaluate(gctx, cfg)
				if err != nil {
					return fmt.Errorf("%s=%v,%s=%v: %w", p, a, q, b, err)
				}
				expected := base.F1 + dp[i] + dq[j]
				effect := m.F1 - expected
				out[i*len(qv)+j] = Interaction{
					P: p, Q: q, PValue: a, QValue: b,
					Actual: m.F1, Expected: expected, Effect: effect, Kind: Classify(effect),
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// TopPairs returns every pair among the n highest ranked parameters.
func TopPairs(ranking []Sensitivity, n int) [][2]string {
	n = min(n, len(ranking))
	var out [][2]string
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, [2]string{ranking[i].Parameter, ranking[j].Parameter})
		}
	}
	return out
}

// MeanEffect averages the interaction effects of one pair.
func MeanEffect(cells []Interaction) float64 {
	if len(cells) == 0 {
		return 0
	}
	var s float64
	for _, c := range cells {
		s += c.Effect
	}
	return s / float64(len(cells))
}
