package config

import (
	"slices"
	"strings"

	"github.com/soocke/itemscan/domain/detect"
	"github.com/soocke/itemscan/domain/library"
	"github.com/soocke/itemscan/domain/match"
)

// PipelineOptions translates the configuration into detector options.
// Unknown metrics were rejected by Validate and fall back to all metrics here.
func (c *Config) PipelineOptions() detect.Options {
	o := detect.DefaultOptions()

	o.Region.ScanFraction = c.Region.ScanFraction
	o.Region.CenterFraction = c.Region.CenterFraction
	o.Region.WindowStrips = c.Region.WindowStrips
	o.Region.ColorfulDelta = uint8(min(255, max(1, c.Region.ColorfulDelta)))
	o.Region.MinScore = c.Region.MinScore
	o.Region.FallbackFraction = c.Region.FallbackFraction

	o.Grid.ClusterTolerance = c.Grid.ClusterTolerance
	o.Grid.GapTolerance = c.Grid.GapTolerance
	o.Grid.MinConfidence = c.Grid.MinConfidence
	o.Grid.MaxRows = c.Grid.MaxRows
	o.Grid.StaticRows = c.Grid.StaticRows
	o.GridMode = detect.GridMode(c.Strategy.GridMode)

	o.Filter.MinVariance = c.Cell.MinVariance
	o.Filter.MinBrightness = c.Cell.MinBrightness
	o.Filter.SaturatedThreshold = c.Cell.SaturatedThreshold
	o.Filter.SaturatedMinVariance = c.Cell.SaturatedMinVariance
	o.Filter.Stride = c.Cell.Stride

	mo := &o.Match
	mo.Features = library.FeatureOptions{
		WorkSize:   c.Match.WorkSize,
		Margin:     c.Match.Margin,
		Bins:       c.Match.HistBins,
		Preprocess: c.Strategy.Preprocess,
		Contrast:   c.Match.Contrast,
	}
	if ms, err := match.ParseMetrics(strings.Join(c.Strategy.Metrics, ",")); err == nil {
		mo.Metrics = ms
	}
	mo.AgreementBonus = c.Match.AgreementBonus
	mo.AgreementTolerance = c.Match.AgreementTolerance
	mo.RarityBoost = c.Match.RarityBoost
	mo.RarityPenalty = c.Match.RarityPenalty
	mo.UsePenalty = c.Match.UsePenalty
	mo.MinConfidence = c.Match.MinConfidence
	mo.MultiScale = c.Strategy.MultiScale
	mo.Margins = slices.Clone(c.Match.Margins)
	mo.StopOnScore = c.Match.StopOnScore
	mo.Refine = c.Strategy.Refine
	mo.RefineShift = c.Match.RefineShift
	mo.Accelerate = c.Strategy.Accelerate

	passes := make([]float64, 0, len(c.Post.Passes)+1)
	for _, p := range c.Post.Passes {
		if p > c.Match.MinConfidence {
			passes = append(passes, p)
		}
	}
	o.Post = detect.PostOptions{
		Passes:       append(passes, c.Match.MinConfidence),
		IoUThreshold: c.Post.IoUThreshold,
	}
	return o
}

// LibraryOptions returns the loader settings derived from the configuration.
func (c *Config) LibraryOptions() library.Options {
	return library.Options{CacheSize: c.Match.CacheSize, Workers: c.Workers}
}
