// Package calibration sweeps pipeline parameters over a labeled corpus,
// ranks them by impact, measures pairwise interaction effects and searches
// for a jointly good configuration.
package calibration

import (
	"fmt"
	"math"
	"slices"

	"github.com/soocke/itemscan/config"
)

// Parameter is one tunable constant. Baseline is the default value and must
// be one of Candidates.
type Parameter struct {
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Baseline   float64   `json:"baseline"`
	Candidates []float64 `json:"candidates"`

	get func(*config.Config) float64
	set func(*config.Config, float64)
}

// Apply writes v into cfg.
func (p Parameter) Apply(cfg *config.Config, v float64) { p.set(cfg, v) }

// Value reads the parameter from cfg.
func (p Parameter) Value(cfg *config.Config) float64 { return p.get(cfg) }

// Registry is the fixed, ordered parameter set.
type Registry struct {
	params []Parameter
	byName map[string]int
}

// NewRegistry indexes params in the given order.
func NewRegistry(params ...Parameter) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(params))}
	for _, p := range params {
		if _, dup := r.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate parameter %q", p.Name)
		}
		r.byName[p.Name] = len(r.params)
		r.params = append(r.params, p)
	}
	return r, r.Validate()
}

// Validate checks that every baseline is among its candidates.
func (r *Registry) Validate() error {
	for _, p := range r.params {
		if p.get == nil || p.set == nil {
			return fmt.Errorf("parameter %q has no accessors", p.Name)
		}
		if !slices.ContainsFunc(p.Candidates, func(v float64) bool { return sameValue(v, p.Baseline) }) {
			return fmt.Errorf("parameter %q: baseline %v not among candidates %v", p.Name, p.Baseline, p.Candidates)
		}
	}
	return nil
}

// Get returns the named parameter.
func (r *Registry) Get(name string) (Parameter, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Parameter{}, false
	}
	return r.params[i], true
}

// Names lists parameter names in registry order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.params))
	for i, p := range r.params {
		out[i] = p.Name
	}
	return out
}

// Params returns the parameters in registry order.
func (r *Registry) Params() []Parameter { return r.params }

// Select resolves names, or the whole registry when names is empty.
func (r *Registry) Select(names []string) ([]Parameter, error) {
	if len(names) == 0 {
		return r.params, nil
	}
	out := make([]Parameter, 0, len(names))
	for _, n := range names {
		p, ok := r.Get(n)
		if !ok {
			return nil, fmt.Errorf("unknown parameter %q", n)
		}
		out = append(out, p)
	}
	return out, nil
}

func sameValue(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func floatParam(name, category string, candidates []float64, field func(*config.Config) *float64) Parameter {
	return Parameter{
		Name:       name,
		Category:   category,
		Baseline:   *field(config.DefaultConfig()),
		Candidates: candidates,
		get:        func(c *config.Config) float64 { return *field(c) },
		set:        func(c *config.Config, v float64) { *field(c) = v },
	}
}

func intParam(name, category string, candidates []float64, field func(*config.Config) *int) Parameter {
	return Parameter{
		Name:       name,
		Category:   category,
		Baseline:   float64(*field(config.DefaultConfig())),
		Candidates: candidates,
		get:        func(c *config.Config) float64 { return float64(*field(c)) },
		set:        func(c *config.Config, v float64) { *field(c) = int(math.Round(v)) },
	}
}

// Parameter categories.
const (
	CategoryThreshold = "threshold"
	CategoryMargin    = "margin"
	CategoryBins      = "bins"
	CategoryWeight    = "weight"
	CategoryGeometry  = "geometry"
)

// DefaultRegistry enumerates the pipeline constants worth sweeping. Baselines
// come from config.DefaultConfig.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		floatParam("region.min_score", CategoryThreshold, []float64{0.15, 0.2, 0.25, 0.3, 0.35},
			func(c *config.Config) *float64 { return &c.Region.MinScore }),
		floatParam("grid.min_confidence", CategoryThreshold, []float64{0.3, 0.4, 0.5, 0.6, 0.7},
			func(c *config.Config) *float64 { return &c.Grid.MinConfidence }),
		intParam("grid.gap_tolerance", CategoryGeometry, []float64{2, 3, 4, 6},
			func(c *config.Config) *int { return &c.Grid.GapTolerance }),
		intParam("grid.max_rows", CategoryGeometry, []float64{1, 2, 3},
			func(c *config.Config) *int { return &c.Grid.MaxRows }),
		floatParam("cell.min_variance", CategoryThreshold, []float64{60, 90, 120, 180, 240},
			func(c *config.Config) *float64 { return &c.Cell.MinVariance }),
		floatParam("cell.min_brightness", CategoryThreshold, []float64{15, 20, 25, 35},
			func(c *config.Config) *float64 { return &c.Cell.MinBrightness }),
		floatParam("match.margin", CategoryMargin, []float64{0.04, 0.08, 0.12, 0.16, 0.2},
			func(c *config.Config) *float64 { return &c.Match.Margin }),
		intParam("match.work_size", CategoryGeometry, []float64{16, 24, 32, 48},
			func(c *config.Config) *int { return &c.Match.WorkSize }),
		intParam("match.hist_bins", CategoryBins, []float64{4, 6, 8, 12, 16},
			func(c *config.Config) *int { return &c.Match.HistBins }),
		floatParam("match.min_confidence", CategoryThreshold, []float64{0.5, 0.55, 0.6, 0.65, 0.7, 0.75, 0.8},
			func(c *config.Config) *float64 { return &c.Match.MinConfidence }),
		floatParam("match.agreement_bonus", CategoryWeight, []float64{0, 0.02, 0.03, 0.05},
			func(c *config.Config) *float64 { return &c.Match.AgreementBonus }),
		floatParam("match.rarity_boost", CategoryWeight, []float64{1, 1.05, 1.1, 1.2},
			func(c *config.Config) *float64 { return &c.Match.RarityBoost }),
		floatParam("match.rarity_penalty", CategoryWeight, []float64{0.8, 0.9, 1},
			func(c *config.Config) *float64 { return &c.Match.RarityPenalty }),
		floatParam("post.iou_threshold", CategoryThreshold, []float64{0.1, 0.2, 0.3, 0.5},
			func(c *config.Config) *float64 { return &c.Post.IoUThreshold }),
	)
	if err != nil {
		panic(err)
	}
	return r
}
