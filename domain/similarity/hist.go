package similarity

import "github.com/soocke/itemscan/domain/pixels"

// Histogram builds a joint RGB histogram with bins levels per channel,
// normalized by pixel count. Fully transparent pixels are ignored.
func Histogram(f *pixels.Frame, bins int) []float64 {
	if bins < 1 {
		bins = 1
	}
	if bins > 64 {
		bins = 64
	}
	h := make([]float64, bins*bins*bins)
	if f.Empty() {
		return h
	}
	n := 0
	for i := 0; i+3 < len(f.Pix); i += 4 {
		if f.Pix[i+3] == 0 {
			continue
		}
		r := int(f.Pix[i]) * bins / 256
		g := int(f.Pix[i+1]) * bins / 256
		b := int(f.Pix[i+2]) * bins / 256
		h[(r*bins+g)*bins+b]++
		n++
	}
	if n == 0 {
		return h
	}
	inv := 1 / float64(n)
	for i := range h {
		h[i] *= inv
	}
	return h
}

// HistogramIntersection sums per-bin minima of two normalized histograms.
// The result is in [0,1]; mismatched shapes yield 0.
func HistogramIntersection(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var s float64
	for i := range a {
		s += min(a[i], b[i])
	}
	return min(1, max(0, s))
}
