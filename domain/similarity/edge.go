package similarity

import "math"

// Sobel returns the gradient magnitude of a w x h luma image. Edge pixels
// replicate their nearest neighbour.
func Sobel(gray []float64, w, h int) []float64 {
	out := make([]float64, w*h)
	if w <= 0 || h <= 0 || len(gray) < w*h {
		return out
	}
	at := func(x, y int) float64 {
		x = min(max(x, 0), w-1)
		y = min(max(y, 0), h-1)
		return gray[y*w+x]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			gy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			out[y*w+x] = math.Hypot(gx, gy)
		}
	}
	return out
}

// EdgeCorrelation compares two precomputed gradient magnitude maps the same
// way NCC compares luma.
func EdgeCorrelation(a, b []float64) float64 { return NCC(a, b) }
