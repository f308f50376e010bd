//go:build gocv

package match

import (
	"fmt"

	"gocv.io/x/gocv"
)

type gocvCorrelator struct{}

func newCorrelator() (Correlator, error) {
	probe := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV32F)
	defer probe.Close()
	if probe.Empty() {
		return nil, fmt.Errorf("gocv: cannot allocate matrices")
	}
	return gocvCorrelator{}, nil
}

func (gocvCorrelator) Name() string { return "gocv" }

func toMat(v []float64, w, h int) gocv.Mat {
	m := gocv.NewMatWithSize(h, w, gocv.MatTypeCV32F)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetFloatAt(y, x, float32(v[y*w+x]))
		}
	}
	return m
}

// Correlate runs TM_CCOEFF_NORMED on two equal-sized patches, which yields a
// single correlation value.
func (gocvCorrelator) Correlate(a, b []float64, w, h int) (float64, error) {
	if w <= 0 || h <= 0 || len(a) < w*h || len(b) < w*h {
		return 0, fmt.Errorf("gocv: bad patch size %dx%d", w, h)
	}
	img := toMat(a, w, h)
	defer img.Close()
	tmpl := toMat(b, w, h)
	defer tmpl.Close()
	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.MatchTemplate(img, tmpl, &result, gocv.TmCcoeffNormed, mask)
	_, maxVal, _, _ := gocv.MinMaxLoc(result)
	return float64(maxVal), nil
}
