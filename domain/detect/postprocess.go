package detect

import (
	"image"
	"slices"
	"sort"
)

// PostOptions configures staged thresholds and duplicate suppression.
type PostOptions struct {
	// Passes are confidence floors tried from strictest to loosest; the last
	// (lowest) one is the global floor.
	Passes       []float64
	IoUThreshold float64
}

// DefaultPostOptions returns the three-pass schedule.
func DefaultPostOptions() PostOptions {
	return PostOptions{Passes: []float64{0.85, 0.75, 0.65}, IoUThreshold: 0.3}
}

// IoU is the intersection over union of two rectangles.
func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - ia
	if union <= 0 {
		return 0
	}
	return ia / union
}

// PostProcess assigns every detection to the strictest pass it clears, drops
// those below the last pass and suppresses overlapping duplicates. Earlier
// passes take precedence over later ones during suppression.
func PostProcess(dets []Detection, o PostOptions) []Detection {
	passes := slices.Clone(o.Passes)
	if len(passes) == 0 {
		passes = DefaultPostOptions().Passes
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(passes)))
	floor := passes[len(passes)-1]

	staged := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence < floor {
			continue
		}
		for i, th := range passes {
			if d.Confidence >= th {
				d.Pass = i + 1
				break
			}
		}
		staged = append(staged, d)
	}
	return NMS(staged, o.IoUThreshold)
}

// NMS greedily keeps detections by (pass, confidence) and drops any whose
// IoU with an already kept detection reaches threshold. Output preserves the
// original scan order of the kept detections.
func NMS(dets []Detection, threshold float64) []Detection {
	if len(dets) == 0 {
		return nil
	}
	order := make([]int, len(dets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		da, db := dets[order[a]], dets[order[b]]
		if da.Pass != db.Pass {
			return da.Pass < db.Pass
		}
		return da.Confidence > db.Confidence
	})
	keep := make([]bool, len(dets))
	var kept []int
	for _, i := range order {
		ok := true
		for _, k := range kept {
			if IoU(dets[i].Box, dets[k].Box) >= threshold {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, i)
			keep[i] = true
		}
	}
	out := make([]Detection, 0, len(kept))
	for i, d := range dets {
		if keep[i] {
			out = append(out, d)
		}
	}
	return out
}
