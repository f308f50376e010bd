// Package similarity implements the image similarity measures used by the
// template matcher. All measures operate on equal-length sample slices and
// return 0 for degenerate input instead of NaN.
package similarity

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// varianceFloor treats near-constant samples as constant.
const varianceFloor = 1e-9

// Correlation is the Pearson correlation of a and b in [-1,1]. It returns 0
// when the lengths differ or either side has no variance.
func Correlation(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	if _, va := stat.MeanVariance(a, nil); va <= varianceFloor {
		return 0
	}
	if _, vb := stat.MeanVariance(b, nil); vb <= varianceFloor {
		return 0
	}
	r := stat.Correlation(a, b, nil)
	if math.IsNaN(r) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

// NCC maps the correlation of two luma samples to [0,1]. Zero-variance input
// yields 0, not 0.5.
func NCC(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	_, va := stat.MeanVariance(a, nil)
	_, vb := stat.MeanVariance(b, nil)
	if va <= varianceFloor || vb <= varianceFloor {
		return 0
	}
	return (Correlation(a, b) + 1) / 2
}
