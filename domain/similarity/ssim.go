package similarity

import "gonum.org/v1/gonum/stat"

// SSIM stabilisers for 8-bit luma.
const (
	ssimC1 = (0.01 * 255) * (0.01 * 255)
	ssimC2 = (0.03 * 255) * (0.03 * 255)
)

// SSIM is the single-window structural similarity of two luma samples.
// Negative values are clamped to 0; the result is never rescaled.
func SSIM(a, b []float64) float64 {
	if len(a) < 2 || len(a) != len(b) {
		return 0
	}
	mu1, v1 := stat.MeanVariance(a, nil)
	mu2, v2 := stat.MeanVariance(b, nil)
	cov := stat.Covariance(a, b, nil)
	num := (2*mu1*mu2 + ssimC1) * (2*cov + ssimC2)
	den := (mu1*mu1 + mu2*mu2 + ssimC1) * (v1 + v2 + ssimC2)
	if den <= 0 {
		return 0
	}
	s := num / den
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
