package config

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
)

// Config holds runtime configuration for the detection pipeline and the
// calibration runner. Fields may be loaded from a JSON file and overridden
// by command-line flags.
type Config struct {
	Debug   bool `json:"debug"`
	Workers int  `json:"workers"` // frames processed in parallel; 0 means NumCPU

	Region      RegionConfig      `json:"region"`
	Grid        GridConfig        `json:"grid"`
	Cell        CellConfig        `json:"cell"`
	Match       MatchConfig       `json:"match"`
	Post        PostConfig        `json:"post"`
	Strategy    StrategyConfig    `json:"strategy"`
	Calibration CalibrationConfig `json:"calibration"`
}

// RegionConfig tunes the item-bar band locator.
type RegionConfig struct {
	ScanFraction     float64 `json:"scan_fraction"`
	CenterFraction   float64 `json:"center_fraction"`
	WindowStrips     int     `json:"window_strips"`
	ColorfulDelta    int     `json:"colorful_delta"`
	MinScore         float64 `json:"min_score"`
	FallbackFraction float64 `json:"fallback_fraction"`
}

// GridConfig tunes grid inference and the static fallback.
type GridConfig struct {
	ClusterTolerance int     `json:"cluster_tolerance"`
	GapTolerance     int     `json:"gap_tolerance"`
	MinConfidence    float64 `json:"min_confidence"`
	MaxRows          int     `json:"max_rows"`
	StaticRows       int     `json:"static_rows"`
}

// CellConfig tunes the empty-slot filter.
type CellConfig struct {
	MinVariance          float64 `json:"min_variance"`
	MinBrightness        float64 `json:"min_brightness"`
	SaturatedThreshold   float64 `json:"saturated_threshold"`
	SaturatedMinVariance float64 `json:"saturated_min_variance"`
	Stride               int     `json:"stride"`
}

// MatchConfig tunes template matching.
type MatchConfig struct {
	WorkSize           int       `json:"work_size"`
	Margin             float64   `json:"margin"`
	HistBins           int       `json:"hist_bins"`
	Contrast           float64   `json:"contrast"`
	AgreementBonus     float64   `json:"agreement_bonus"`
	AgreementTolerance float64   `json:"agreement_tolerance"`
	RarityBoost        float64   `json:"rarity_boost"`
	RarityPenalty      float64   `json:"rarity_penalty"`
	UsePenalty         bool      `json:"use_penalty"`
	MinConfidence      float64   `json:"min_confidence"`
	Margins            []float64 `json:"margins"`
	StopOnScore        float64   `json:"stop_on_score"`
	RefineShift        int       `json:"refine_shift"`
	CacheSize          int       `json:"cache_size"`
}

// PostConfig tunes staged acceptance and duplicate suppression. The last
// pass is always Match.MinConfidence.
type PostConfig struct {
	Passes       []float64 `json:"passes"`
	IoUThreshold float64   `json:"iou_threshold"`
}

// StrategyConfig selects pipeline features. It replaces the separate
// baseline/improved/advanced matchers with flags on one pipeline.
type StrategyConfig struct {
	GridMode   string   `json:"grid_mode"` // infer | static
	Metrics    []string `json:"metrics"`   // subset of ncc,hist,ssim,edge
	Preprocess bool     `json:"preprocess"`
	MultiScale bool     `json:"multi_scale"`
	Refine     bool     `json:"refine"`
	Accelerate bool     `json:"accelerate"`
}

// CalibrationConfig controls sweeps.
type CalibrationConfig struct {
	Parameters []string    `json:"parameters"`  // empty means the whole registry
	Pairs      [][2]string `json:"pairs"`       // empty means the top ranked pairs
	TopPairs   int         `json:"top_pairs"`   // parameters taken from the ranking when Pairs is empty
	PairValues int         `json:"pair_values"` // candidates per side in a pair sweep
	OutDir     string      `json:"out_dir"`
}

// Grid modes.
const (
	GridInfer  = "infer"
	GridStatic = "static"
)

var knownMetrics = []string{"ncc", "hist", "ssim", "edge"}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:   false,
		Workers: 0,
		Region: RegionConfig{
			ScanFraction:     0.35,
			CenterFraction:   0.70,
			WindowStrips:     35,
			ColorfulDelta:    40,
			MinScore:         0.25,
			FallbackFraction: 0.12,
		},
		Grid: GridConfig{
			ClusterTolerance: 6,
			GapTolerance:     3,
			MinConfidence:    0.5,
			MaxRows:          2,
			StaticRows:       1,
		},
		Cell: CellConfig{
			MinVariance:          120,
			MinBrightness:        25,
			SaturatedThreshold:   0.55,
			SaturatedMinVariance: 400,
			Stride:               1,
		},
		Match: MatchConfig{
			WorkSize:           32,
			Margin:             0.12,
			HistBins:           8,
			Contrast:           20,
			AgreementBonus:     0.03,
			AgreementTolerance: 0.1,
			RarityBoost:        1.1,
			RarityPenalty:      0.9,
			UsePenalty:         true,
			MinConfidence:      0.65,
			Margins:            []float64{0.08, 0.12, 0.16},
			StopOnScore:        0.95,
			RefineShift:        2,
			CacheSize:          4096,
		},
		Post: PostConfig{
			Passes:       []float64{0.85, 0.75},
			IoUThreshold: 0.3,
		},
		Strategy: StrategyConfig{
			GridMode: GridInfer,
			Metrics:  slices.Clone(knownMetrics),
		},
		Calibration: CalibrationConfig{
			TopPairs:   4,
			PairValues: 3,
			OutDir:     "calibration-out",
		},
	}
}

// Preset returns the defaults adjusted to one of the historical pipeline
// variants: baseline (static grid, ncc+hist), improved (the defaults) or
// advanced (preprocessing, multi-scale margins and re-alignment).
func Preset(name string) (*Config, error) {
	c := DefaultConfig()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "improved":
	case "baseline":
		c.Strategy.GridMode = GridStatic
		c.Strategy.Metrics = []string{"ncc", "hist"}
		c.Match.UsePenalty = false
	case "advanced":
		c.Strategy.Preprocess = true
		c.Strategy.MultiScale = true
		c.Strategy.Refine = true
	default:
		return nil, fmt.Errorf("unknown preset %q (want baseline, improved or advanced)", name)
	}
	return c, nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Match.Margins = slices.Clone(c.Match.Margins)
	out.Post.Passes = slices.Clone(c.Post.Passes)
	out.Strategy.Metrics = slices.Clone(c.Strategy.Metrics)
	out.Calibration.Parameters = slices.Clone(c.Calibration.Parameters)
	out.Calibration.Pairs = slices.Clone(c.Calibration.Pairs)
	return &out
}

// Validate clamps/normalizes values to safe ranges. It only fails on values
// that cannot be repaired, such as an unknown grid mode or metric.
func (c *Config) Validate() error {
	d := DefaultConfig()
	if c.Workers < 0 {
		c.Workers = 0
	}

	r := &c.Region
	if r.ScanFraction <= 0 || r.ScanFraction > 1 {
		r.ScanFraction = d.Region.ScanFraction
	}
	if r.CenterFraction <= 0 || r.CenterFraction > 1 {
		r.CenterFraction = d.Region.CenterFraction
	}
	if r.WindowStrips <= 0 {
		r.WindowStrips = d.Region.WindowStrips
	}
	if r.ColorfulDelta <= 0 || r.ColorfulDelta > 255 {
		r.ColorfulDelta = d.Region.ColorfulDelta
	}
	if r.MinScore < 0 || r.MinScore > 1 {
		r.MinScore = d.Region.MinScore
	}
	if r.FallbackFraction <= 0 || r.FallbackFraction > 1 {
		r.FallbackFraction = d.Region.FallbackFraction
	}

	g := &c.Grid
	if g.ClusterTolerance <= 0 {
		g.ClusterTolerance = d.Grid.ClusterTolerance
	}
	if g.GapTolerance <= 0 {
		g.GapTolerance = d.Grid.GapTolerance
	}
	if g.MinConfidence < 0 || g.MinConfidence > 1 {
		g.MinConfidence = d.Grid.MinConfidence
	}
	if g.MaxRows <= 0 {
		g.MaxRows = d.Grid.MaxRows
	}
	if g.StaticRows <= 0 {
		g.StaticRows = d.Grid.StaticRows
	}

	cl := &c.Cell
	if cl.MinVariance < 0 {
		cl.MinVariance = d.Cell.MinVariance
	}
	if cl.MinBrightness < 0 || cl.MinBrightness > 255 {
		cl.MinBrightness = d.Cell.MinBrightness
	}
	if cl.SaturatedThreshold <= 0 || cl.SaturatedThreshold > 1 {
		cl.SaturatedThreshold = d.Cell.SaturatedThreshold
	}
	if cl.SaturatedMinVariance < 0 {
		cl.SaturatedMinVariance = d.Cell.SaturatedMinVariance
	}
	switch cl.Stride {
	case 1, 4, 16:
	default:
		cl.Stride = d.Cell.Stride
	}

	m := &c.Match
	if m.WorkSize < 8 || m.WorkSize > 128 {
		m.WorkSize = d.Match.WorkSize
	}
	if m.Margin < 0 || m.Margin > 0.45 {
		m.Margin = d.Match.Margin
	}
	if m.HistBins < 2 || m.HistBins > 64 {
		m.HistBins = d.Match.HistBins
	}
	if m.Contrast < -100 || m.Contrast > 100 {
		m.Contrast = d.Match.Contrast
	}
	if m.AgreementBonus < 0 || m.AgreementBonus > 0.2 {
		m.AgreementBonus = d.Match.AgreementBonus
	}
	if m.AgreementTolerance < 0 || m.AgreementTolerance > 1 {
		m.AgreementTolerance = d.Match.AgreementTolerance
	}
	if m.RarityBoost < 1 {
		m.RarityBoost = d.Match.RarityBoost
	}
	if m.RarityPenalty <= 0 || m.RarityPenalty > 1 {
		m.RarityPenalty = d.Match.RarityPenalty
	}
	if m.MinConfidence <= 0 || m.MinConfidence >= 1 {
		m.MinConfidence = d.Match.MinConfidence
	}
	m.Margins = slices.DeleteFunc(m.Margins, func(v float64) bool { return v < 0 || v > 0.45 })
	if len(m.Margins) == 0 {
		m.Margins = d.Match.Margins
	}
	if m.StopOnScore < 0 || m.StopOnScore > 1 {
		m.StopOnScore = d.Match.StopOnScore
	}
	if m.RefineShift < 0 {
		m.RefineShift = d.Match.RefineShift
	}
	if m.CacheSize <= 0 {
		m.CacheSize = d.Match.CacheSize
	}

	p := &c.Post
	p.Passes = slices.DeleteFunc(p.Passes, func(v float64) bool { return v <= 0 || v > 1 })
	if p.IoUThreshold <= 0 || p.IoUThreshold > 1 {
		p.IoUThreshold = d.Post.IoUThreshold
	}

	s := &c.Strategy
	s.GridMode = strings.ToLower(strings.TrimSpace(s.GridMode))
	switch s.GridMode {
	case "":
		s.GridMode = GridInfer
	case GridInfer, GridStatic:
	default:
		return fmt.Errorf("unknown grid mode %q", s.GridMode)
	}
	if len(s.Metrics) == 0 {
		s.Metrics = slices.Clone(knownMetrics)
	}
	for i, name := range s.Metrics {
		s.Metrics[i] = strings.ToLower(strings.TrimSpace(name))
		if !slices.Contains(knownMetrics, s.Metrics[i]) {
			return fmt.Errorf("unknown metric %q", name)
		}
	}

	cal := &c.Calibration
	if cal.TopPairs < 0 {
		cal.TopPairs = d.Calibration.TopPairs
	}
	if cal.PairValues <= 0 {
		cal.PairValues = d.Calibration.PairValues
	}
	if cal.OutDir == "" {
		cal.OutDir = d.Calibration.OutDir
	}
	return nil
}

// Load attempts to read configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
