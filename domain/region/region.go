// Package region locates the horizontal band of a screenshot that holds the
// item bar, scoring strips of the lower frame for "item-bar-ness".
package region

import (
	"math"

	"github.com/soocke/itemscan/domain/pixels"
	"github.com/soocke/itemscan/domain/rarity"
)

// Band is the inferred vertical extent of the item bar. Confidence is 0 for
// the fallback band.
type Band struct {
	Top        int     `json:"top"`
	Bottom     int     `json:"bottom"`
	Confidence float64 `json:"confidence"`
}

// Height returns Bottom-Top.
func (b Band) Height() int { return b.Bottom - b.Top }

// Params tunes the locator.
type Params struct {
	ScanFraction     float64 // lower share of the frame that is scanned
	CenterFraction   float64 // horizontal share (centered) that is scanned
	StripDivisor     int     // strip height = frame height / StripDivisor
	WindowStrips     int     // strips aggregated per window
	ColorfulDelta    uint8   // max-min channel spread that marks a pixel as colorful
	MinScore         float64 // windows scoring below this fall back
	MinHeightFrac    float64
	MaxHeightFrac    float64
	FallbackFraction float64
	SampleStride     int
}

// DefaultParams returns the tuned locator constants.
func DefaultParams() Params {
	return Params{
		ScanFraction:     0.35,
		CenterFraction:   0.70,
		StripDivisor:     270,
		WindowStrips:     35,
		ColorfulDelta:    40,
		MinScore:         0.25,
		MinHeightFrac:    0.06,
		MaxHeightFrac:    0.20,
		FallbackFraction: 0.12,
		SampleStride:     2,
	}
}

// score weights
const (
	wBrightness = 0.15
	wVariance   = 0.25
	wColorful   = 0.20
	wRarity     = 0.30
	wPosition   = 0.10

	targetBrightness = 0.35
	fullVarianceStd  = 60.0
	fullColorful     = 0.30
	fullRarity       = 0.05
)

type stripStats struct {
	sum, sum2 float64
	colorful  int
	border    int
	n         int
}

// Fallback returns the fixed bottom band used when nothing scores well.
func Fallback(f *pixels.Frame, p Params) Band {
	frac := p.FallbackFraction
	if frac <= 0 || frac > 1 {
		frac = 0.12
	}
	top := int(float64(f.H) * (1 - frac))
	return Band{Top: top, Bottom: f.H, Confidence: 0}
}

// Locate scans the lower part of the frame and returns the best band. It
// never fails: degenerate frames and low scores yield the fallback band.
func Locate(f *pixels.Frame, p Params) Band {
	if f.Empty() {
		return Band{}
	}
	def := DefaultParams()
	if p.StripDivisor <= 0 {
		p.StripDivisor = def.StripDivisor
	}
	if p.WindowStrips <= 0 {
		p.WindowStrips = def.WindowStrips
	}
	if p.SampleStride <= 0 {
		p.SampleStride = 1
	}
	stripH := max(2, f.H/p.StripDivisor)
	scanTop := int(float64(f.H) * (1 - p.ScanFraction))
	nStrips := (f.H - scanTop) / stripH
	if nStrips < p.WindowStrips || nStrips == 0 {
		return Fallback(f, p)
	}
	margin := int(float64(f.W) * (1 - p.CenterFraction) / 2)
	x0, x1 := margin, f.W-margin

	strips := make([]stripStats, nStrips)
	for s := range strips {
		st := &strips[s]
		y0 := scanTop + s*stripH
		for y := y0; y < y0+stripH; y += p.SampleStride {
			row := y * f.W * 4
			for x := x0; x < x1; x += p.SampleStride {
				i := row + x*4
				r, g, b := f.Pix[i], f.Pix[i+1], f.Pix[i+2]
				l := pixels.Luma(r, g, b)
				st.sum += l
				st.sum2 += l * l
				if pixels.Chroma(r, g, b) > p.ColorfulDelta {
					st.colorful++
				}
				if rarity.IsBorder(r, g, b) {
					st.border++
				}
				st.n++
			}
		}
	}

	bestScore, bestStart := math.Inf(-1), 0
	span := float64(f.H - scanTop)
	for s := 0; s+p.WindowStrips <= nStrips; s++ {
		var agg stripStats
		for _, st := range strips[s : s+p.WindowStrips] {
			agg.sum += st.sum
			agg.sum2 += st.sum2
			agg.colorful += st.colorful
			agg.border += st.border
			agg.n += st.n
		}
		if agg.n == 0 {
			continue
		}
		n := float64(agg.n)
		mean := agg.sum / n
		variance := max(0, agg.sum2/n-mean*mean)
		center := float64(s*stripH) + float64(p.WindowStrips*stripH)/2
		score := windowScore(mean/255, math.Sqrt(variance), float64(agg.colorful)/n, float64(agg.border)/n, center/span)
		// >= keeps the lowest of equally scoring windows
		if score >= bestScore {
			bestScore, bestStart = score, s
		}
	}
	if bestScore < p.MinScore {
		return Fallback(f, p)
	}
	top := scanTop + bestStart*stripH
	bottom := top + p.WindowStrips*stripH
	return clampBand(f, p, top, bottom, math.Min(1, bestScore))
}

func windowScore(brightness, std, colorful, border, position float64) float64 {
	bs := 1 - math.Abs(brightness-targetBrightness)/targetBrightness
	return wBrightness*clamp01(bs) +
		wVariance*clamp01(std/fullVarianceStd) +
		wColorful*clamp01(colorful/fullColorful) +
		wRarity*clamp01(border/fullRarity) +
		wPosition*clamp01(position)
}

func clampBand(f *pixels.Frame, p Params, top, bottom int, conf float64) Band {
	minH := int(float64(f.H) * p.MinHeightFrac)
	maxH := int(float64(f.H) * p.MaxHeightFrac)
	h := bottom - top
	center := (top + bottom) / 2
	if minH > 0 && h < minH {
		h = minH
	}
	if maxH > 0 && h > maxH {
		h = maxH
	}
	top = center - h/2
	bottom = top + h
	if bottom > f.H {
		bottom = f.H
		top = bottom - h
	}
	if top < 0 {
		top = 0
	}
	return Band{Top: top, Bottom: bottom, Confidence: conf}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
