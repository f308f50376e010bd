package grid

import (
	"image"

	"github.com/soocke/itemscan/domain/pixels"
)

// FilterParams tunes the empty-slot predicate.
type FilterParams struct {
	MinVariance          float64 // luma variance floor
	MinBrightness        float64 // mean luma floor
	SaturatedThreshold   float64 // mean saturation above which a cell counts as saturated
	SaturatedMinVariance float64 // variance floor applied to saturated cells
	Stride               int     // sample every Stride-th pixel (1, 4 or 16)
	Margin               float64 // fractional inset so the border ring is ignored
}

// DefaultFilterParams returns the tuned filter thresholds.
func DefaultFilterParams() FilterParams {
	return FilterParams{
		MinVariance:          120,
		MinBrightness:        25,
		SaturatedThreshold:   0.55,
		SaturatedMinVariance: 400,
		Stride:               1,
		Margin:               0.12,
	}
}

// IsEmpty reports whether the slot at rect holds no icon.
func IsEmpty(f *pixels.Frame, rect image.Rectangle, p FilterParams) bool {
	inner := pixels.MarginRect(rect, p.Margin)
	if inner.Empty() {
		return true
	}
	mean, variance, sat := f.Stats(inner, p.Stride)
	switch {
	case variance < p.MinVariance:
		return true
	case mean < p.MinBrightness:
		return true
	case sat > p.SaturatedThreshold && variance < p.SaturatedMinVariance:
		return true
	}
	return false
}
