package rarity

import (
	"image"

	"github.com/soocke/itemscan/domain/pixels"
)

// MinVoteFraction is the share of sampled pixels that must vote for some
// band before a plurality winner is accepted.
const MinVoteFraction = 0.10

// Result is the outcome of ring voting.
type Result struct {
	Rarity  Rarity
	Votes   int
	Sampled int
}

// Known reports whether a tier was detected.
func (r Result) Known() bool { return r.Rarity != Unknown }

// ClassifySamples votes over a list of RGB samples packed as RGBA bytes.
func ClassifySamples(pix []byte) Result {
	var votes [Legendary + 1]int
	sampled := 0
	for i := 0; i+3 < len(pix); i += 4 {
		sampled++
		if r, ok := MatchPixel(pix[i], pix[i+1], pix[i+2]); ok {
			votes[r]++
		}
	}
	return tally(votes, sampled)
}

// ClassifyRing samples the border ring of rect (thickness pixels deep on
// every side) and returns the plurality tier.
func ClassifyRing(f *pixels.Frame, rect image.Rectangle, thickness int) Result {
	rect = rect.Intersect(f.Bounds())
	if rect.Empty() {
		return Result{}
	}
	if thickness < 1 {
		thickness = 1
	}
	inner := rect.Inset(thickness)
	var votes [Legendary + 1]int
	sampled := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if (image.Point{X: x, Y: y}).In(inner) {
				continue
			}
			sampled++
			r, g, b, _ := f.At(x, y)
			if t, ok := MatchPixel(r, g, b); ok {
				votes[t]++
			}
		}
	}
	return tally(votes, sampled)
}

func tally(votes [Legendary + 1]int, sampled int) Result {
	res := Result{Sampled: sampled}
	total := 0
	for t := Common; t <= Legendary; t++ {
		total += votes[t]
		if votes[t] > res.Votes {
			res.Votes = votes[t]
			res.Rarity = t
		}
	}
	if sampled == 0 || float64(total) < MinVoteFraction*float64(sampled) {
		return Result{Sampled: sampled}
	}
	return res
}
