// Package match identifies a cell crop against the reference library by
// combining several similarity metrics and the cell's detected rarity.
package match

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/soocke/itemscan/domain/library"
	"github.com/soocke/itemscan/domain/pixels"
	"github.com/soocke/itemscan/domain/rarity"
	"github.com/soocke/itemscan/domain/similarity"
)

// Options tunes scoring. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	Features           library.FeatureOptions
	Metrics            []Metric
	AgreementBonus     float64
	AgreementTolerance float64
	RarityBoost        float64 // multiplier when cell and candidate rarity agree
	RarityPenalty      float64 // multiplier on disagreement when UsePenalty is set
	UsePenalty         bool
	MaxScore           float64
	MinConfidence      float64

	MultiScale  bool
	Margins     []float64 // margin crops tried when MultiScale is set
	StopOnScore float64   // 0 disables early stop

	Refine      bool
	RefineShift int // max re-alignment in working-size pixels

	Accelerate bool // use the native correlator when available
}

// DefaultOptions returns the tuned matcher settings.
func DefaultOptions() Options {
	return Options{
		Features:           library.DefaultFeatureOptions(),
		Metrics:            AllMetrics(),
		AgreementBonus:     0.03,
		AgreementTolerance: 0.1,
		RarityBoost:        1.1,
		RarityPenalty:      0.9,
		UsePenalty:         true,
		MaxScore:           0.99,
		MinConfidence:      0.65,
		Margins:            []float64{0.08, 0.12, 0.16},
		StopOnScore:        0.95,
		RefineShift:        2,
	}
}

// Result is the best candidate for one cell.
type Result struct {
	Item     *library.Item
	Score    float64
	Scores   Scores
	Margin   float64
	Accepted bool // Score >= MinConfidence
}

// Matcher compares cells against a shared library. It is safe for
// concurrent use.
type Matcher struct {
	lib  *library.Library
	opts Options
	corr Correlator
	log  *slog.Logger
}

// NewMatcher returns a matcher over lib.
func NewMatcher(lib *library.Library, opts Options, log *slog.Logger) *Matcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if len(opts.Metrics) == 0 {
		opts.Metrics = AllMetrics()
	}
	if opts.MaxScore <= 0 {
		opts.MaxScore = 0.99
	}
	m := &Matcher{lib: lib, opts: opts, log: log}
	if opts.Accelerate {
		if c := Capability(); c.Accelerated {
			m.corr = c.Correlator()
		}
	}
	return m
}

// Options returns the matcher configuration.
func (m *Matcher) Options() Options { return m.opts }

// Match scores cell against the candidates for the detected rarity and
// returns the best one. With no candidates the result has a nil Item.
func (m *Matcher) Match(cell *pixels.Frame, detected rarity.Rarity) Result {
	cands := m.lib.Candidates(detected)
	if cell.Empty() || len(cands) == 0 {
		return Result{}
	}
	margins := []float64{m.opts.Features.Margin}
	if m.opts.MultiScale && len(m.opts.Margins) > 0 {
		margins = m.opts.Margins
	}
	var best Result
	if len(margins) == 1 {
		best = m.matchAt(cell, detected, cands, margins[0])
	} else {
		best = m.matchMultiScale(cell, detected, cands, margins)
	}
	best.Accepted = best.Item != nil && best.Score >= m.opts.MinConfidence
	return best
}

// matchAt scores every candidate with the cell and references cropped at margin.
func (m *Matcher) matchAt(cell *pixels.Frame, detected rarity.Rarity, cands []*library.Item, margin float64) Result {
	fo := m.opts.Features
	fo.Margin = margin
	var cellFeat *library.Features
	if !m.opts.Refine {
		cellFeat = library.Extract(cell, fo)
	}
	best := Result{Score: -1, Margin: margin}
	for _, it := range cands {
		ref := m.lib.Prepared(it, fo)
		cf := cellFeat
		if m.opts.Refine {
			cf = m.aligned(cell, ref, fo)
		}
		scores := m.scores(cf, ref, fo.WorkSize)
		s := m.finalize(scores, detected, it.Rarity)
		if s > best.Score {
			best = Result{Item: it, Score: s, Scores: scores, Margin: margin}
		}
	}
	if best.Item == nil {
		best.Score = 0
	}
	return best
}

// scores evaluates the enabled metrics on prepared features.
func (m *Matcher) scores(a, b *library.Features, size int) Scores {
	out := make(Scores, len(m.opts.Metrics))
	for _, metric := range m.opts.Metrics {
		switch metric {
		case MetricNCC:
			out[metric] = m.ncc(a.Gray, b.Gray, size)
		case MetricHist:
			out[metric] = similarity.HistogramIntersection(a.Hist, b.Hist)
		case MetricSSIM:
			out[metric] = similarity.SSIM(a.Gray, b.Gray)
		case MetricEdge:
			out[metric] = similarity.EdgeCorrelation(a.Edges, b.Edges)
		}
	}
	return out
}

func (m *Matcher) ncc(a, b []float64, size int) float64 {
	if m.corr == nil {
		return similarity.NCC(a, b)
	}
	_, va := stat.MeanVariance(a, nil)
	_, vb := stat.MeanVariance(b, nil)
	if va <= 1e-9 || vb <= 1e-9 {
		return 0
	}
	r, err := m.corr.Correlate(a, b, size, size)
	if err != nil || math.IsNaN(r) {
		m.log.Debug("native correlation failed, using go path", "error", err)
		return similarity.NCC(a, b)
	}
	return (math.Max(-1, math.Min(1, r)) + 1) / 2
}

// finalize combines metric scores and applies the rarity adjustment.
func (m *Matcher) finalize(scores Scores, detected, candidate rarity.Rarity) float64 {
	vals := make([]float64, 0, len(scores))
	for _, metric := range m.opts.Metrics {
		if v, ok := scores[metric]; ok {
			vals = append(vals, v)
		}
	}
	s := Combine(vals, m.opts.AgreementBonus, m.opts.AgreementTolerance)
	if detected != rarity.Unknown {
		switch {
		case candidate == detected && m.opts.RarityBoost > 0:
			s *= m.opts.RarityBoost
		case candidate != detected && m.opts.UsePenalty && m.opts.RarityPenalty > 0:
			s *= m.opts.RarityPenalty
		}
	}
	return math.Max(0, math.Min(m.opts.MaxScore, s))
}
