package similarity

import "math"

// Integral stores a luma image and its summed-area tables. The tables allow
// O(1) window sum and variance queries.
type Integral struct {
	gray       []float64
	integral   []float64
	integralSq []float64
	W, H       int
}

// NewIntegral builds the summed-area tables for a w x h luma image.
func NewIntegral(gray []float64, w, h int) *Integral {
	if w <= 0 || h <= 0 || len(gray) < w*h {
		return nil
	}
	p := &Integral{
		gray:       gray[:w*h],
		integral:   make([]float64, w*h),
		integralSq: make([]float64, w*h),
		W:          w,
		H:          h,
	}
	for y := 0; y < h; y++ {
		var rowSum, rowSum2 float64
		for x := 0; x < w; x++ {
			off := y*w + x
			g := gray[off]
			rowSum += g
			rowSum2 += g * g
			if y == 0 {
				p.integral[off] = rowSum
				p.integralSq[off] = rowSum2
			} else {
				p.integral[off] = p.integral[off-w] + rowSum
				p.integralSq[off] = p.integralSq[off-w] + rowSum2
			}
		}
	}
	return p
}

// Sum returns the inclusive sum over [x0..x1] x [y0..y1].
func (p *Integral) Sum(x0, y0, x1, y1 int) float64 { return rectSum(p.integral, p.W, x0, y0, x1, y1) }

// SumSq returns the inclusive sum of squares over [x0..x1] x [y0..y1].
func (p *Integral) SumSq(x0, y0, x1, y1 int) float64 {
	return rectSum(p.integralSq, p.W, x0, y0, x1, y1)
}

func rectSum(I []float64, W int, x0, y0, x1, y1 int) float64 {
	if x0 > x1 || y0 > y1 {
		return 0
	}
	A := func(x, y int) float64 {
		if x < 0 || y < 0 {
			return 0
		}
		return I[y*W+x]
	}
	return A(x1, y1) - A(x0-1, y1) - A(x1, y0-1) + A(x0-1, y0-1)
}

// Template caches a luma patch with its mean and standard deviation.
type Template struct {
	gray      []float64
	mean, std float64
	W, H      int
}

// NewTemplate precomputes template statistics.
func NewTemplate(gray []float64, w, h int) *Template {
	if w <= 0 || h <= 0 || len(gray) < w*h {
		return nil
	}
	var sum, sum2 float64
	for _, g := range gray[:w*h] {
		sum += g
		sum2 += g * g
	}
	n := float64(w * h)
	mean := sum / n
	variance := (sum2 - sum*sum/n) / n
	std := 0.0
	if variance > 0 {
		std = math.Sqrt(variance)
	}
	return &Template{gray: gray[:w*h], mean: mean, std: std, W: w, H: h}
}

// SlideOptions configures the sliding search.
type SlideOptions struct {
	Stride int  // coarse scan stride (default 1)
	Refine bool // rescan at stride 1 around the coarse best when Stride > 1
}

// SlideResult is the best window position and its raw correlation in [-1,1].
// Score is -1 when no window could be evaluated.
type SlideResult struct {
	X, Y  int
	Score float64
}

// SlideNCC slides t over every window of search and returns the position
// with the highest normalized cross-correlation.
func SlideNCC(search *Integral, t *Template, opts SlideOptions) SlideResult {
	res := SlideResult{Score: -1}
	if search == nil || t == nil || search.W < t.W || search.H < t.H {
		return res
	}
	stride := opts.Stride
	if stride <= 0 {
		stride = 1
	}
	if t.std <= varianceFloor {
		return slideConstant(search, t, stride)
	}

	bestX, bestY, best := 0, 0, -1.0
	scan := func(minX, minY, maxX, maxY, step int) {
		for y := minY; y <= maxY; y += step {
			for x := minX; x <= maxX; x += step {
				if s, ok := windowNCC(search, t, x, y); ok && s > best {
					best, bestX, bestY = s, x, y
				}
			}
		}
	}
	scan(0, 0, search.W-t.W, search.H-t.H, stride)
	if opts.Refine && stride > 1 && best > -1 {
		scan(max(0, bestX-stride), max(0, bestY-stride),
			min(search.W-t.W, bestX+stride), min(search.H-t.H, bestY+stride), 1)
	}
	if best <= -1 {
		return res
	}
	return SlideResult{X: bestX, Y: bestY, Score: math.Min(1, best)}
}

func windowNCC(search *Integral, t *Template, x, y int) (float64, bool) {
	n := float64(t.W * t.H)
	sumF := search.Sum(x, y, x+t.W-1, y+t.H-1)
	sumF2 := search.SumSq(x, y, x+t.W-1, y+t.H-1)
	meanF := sumF / n
	varF := (sumF2 - sumF*sumF/n) / n
	if varF <= varianceFloor {
		return 0, false
	}
	var sumFT float64
	W := search.W
	for py := 0; py < t.H; py++ {
		row := (y+py)*W + x
		trow := py * t.W
		for px := 0; px < t.W; px++ {
			sumFT += search.gray[row+px] * t.gray[trow+px]
		}
	}
	denom := n * math.Sqrt(varF) * t.std
	if denom <= 0 {
		return 0, false
	}
	return (sumFT - n*meanF*t.mean) / denom, true
}

// slideConstant looks for a window identical to a flat template.
func slideConstant(search *Integral, t *Template, stride int) SlideResult {
	n := float64(t.W * t.H)
	for y := 0; y <= search.H-t.H; y += stride {
		for x := 0; x <= search.W-t.W; x += stride {
			sum := search.Sum(x, y, x+t.W-1, y+t.H-1)
			sum2 := search.SumSq(x, y, x+t.W-1, y+t.H-1)
			mean := sum / n
			if math.Abs(mean-t.mean) > 1e-6 || (sum2-sum*sum/n)/n > varianceFloor {
				continue
			}
			return SlideResult{X: x, Y: y, Score: 1}
		}
	}
	return SlideResult{Score: -1}
}
