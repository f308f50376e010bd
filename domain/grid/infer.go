package grid

import (
	"math"
	"slices"
	"sort"

	"github.com/soocke/itemscan/domain/pixels"
	"github.com/soocke/itemscan/domain/rarity"
	"github.com/soocke/itemscan/domain/region"
)

// Params tunes grid inference.
type Params struct {
	ScanLines        int     // horizontal scan-lines sampled inside the band
	MinRun, MaxRun   int     // run widths accepted as vertical border segments
	ClusterTolerance int     // x-distance that merges edge candidates
	MinLineSupport   int     // distinct scan-lines a cluster needs
	GapTolerance     int     // slack when comparing gaps to the pitch
	MinConsistent    int     // consistent gaps required
	MinConfidence    float64 // inferred layouts below this fall back
	SpacingFactor    float64 // spacing estimate = SpacingFactor * border thickness
	MaxRows          int
	StaticRows       int
	MinCellFrac      float64 // smallest icon as a fraction of frame height
	MaxCellFrac      float64 // largest icon as a fraction of frame height
}

// DefaultParams returns the tuned inference constants.
func DefaultParams() Params {
	return Params{
		ScanLines:        12,
		MinRun:           2,
		MaxRun:           8,
		ClusterTolerance: 6,
		MinLineSupport:   2,
		GapTolerance:     3,
		MinConsistent:    2,
		MinConfidence:    0.5,
		SpacingFactor:    2.0,
		MaxRows:          2,
		StaticRows:       1,
		MinCellFrac:      0.02,
		MaxCellFrac:      0.12,
	}
}

type edge struct {
	x, width, line, y int
}

type cluster struct {
	sumX, sumW float64
	n          int
	lines      map[int]bool
	minY       int
}

func (c *cluster) mean() float64 { return c.sumX / float64(c.n) }

// Infer derives a layout from vertical rarity-border segments inside band.
// It returns ErrNoGrid when fewer than two usable edges exist, when the
// icon border pairs fit no pitch lattice, or when the pitch is not supported
// by enough consistent gaps.
func Infer(f *pixels.Frame, band region.Band, p Params) (Spec, error) {
	if f.Empty() || band.Height() <= 0 {
		return Spec{}, ErrNoGrid
	}
	edges := scanEdges(f, band, p)
	clusters := clusterEdges(edges, p)
	if len(clusters) < 2 {
		return Spec{}, ErrNoGrid
	}
	xs := make([]int, len(clusters))
	var sumW float64
	var nW int
	for i, c := range clusters {
		xs[i] = int(math.Round(c.mean()))
		sumW += c.sumW
		nW += c.n
	}
	thickness := max(1, int(math.Round(sumW/float64(nW))))

	minCell := max(12, int(float64(f.H)*p.MinCellFrac))
	maxCell := int(float64(f.H) * p.MaxCellFrac)
	maxPitch := int(float64(maxCell) * 1.25)
	tol := p.GapTolerance

	var pitch int
	intra, anchors := pairEdges(xs, minCell, maxCell, thickness, tol)
	if intra > 0 {
		lefts := make([]int, len(anchors))
		for i, a := range anchors {
			lefts[i] = xs[a]
		}
		pitch = latticePitch(lefts, max(minCell, intra+thickness-tol), maxPitch, tol)
		if pitch == 0 {
			return Spec{}, ErrNoGrid
		}
	} else {
		var pairs int
		pitch, pairs = bestPitch(xs, minCell, maxPitch, tol)
		if pitch == 0 || pairs < 1 {
			return Spec{}, ErrNoGrid
		}
		anchors = make([]int, len(xs))
		for i := range anchors {
			anchors[i] = i
		}
	}

	gaps := make([]int, len(xs)-1)
	for i := range gaps {
		gaps[i] = xs[i+1] - xs[i]
	}
	consistent := 0
	for _, g := range gaps {
		if consistentGap(g, pitch, intra, tol) {
			consistent++
		}
	}
	if consistent < p.MinConsistent {
		return Spec{}, ErrNoGrid
	}

	var width int
	if intra > 0 {
		width = intra + thickness
	} else {
		width = pitch - int(math.Round(p.SpacingFactor*float64(thickness)))
	}
	width = min(max(width, minCell), pitch)

	lattice := latticeMembers(xs, anchors, pitch, tol)
	startX := xs[lattice[0]]
	lastX := xs[lattice[len(lattice)-1]]
	columns := int(math.Round(float64(lastX-startX)/float64(pitch))) + 1

	startY := topEdge(f, clusters, lattice, thickness, pitch*max(1, p.MaxRows))
	rows := 1
	limit := min(f.H, band.Bottom+width/2)
	for rows < max(1, p.MaxRows) && startY+rows*pitch+width <= limit {
		rows++
	}

	return Spec{
		StartX:     startX,
		StartY:     startY,
		CellWidth:  width,
		CellHeight: width,
		PitchX:     pitch,
		PitchY:     pitch,
		Columns:    columns,
		Rows:       rows,
		Border:     thickness,
		Confidence: float64(consistent) / float64(len(gaps)),
	}, nil
}

// Resolve infers a layout and falls back to Static when inference fails or
// is not confident enough. The second result reports whether the inferred
// layout was used.
func Resolve(f *pixels.Frame, band region.Band, p Params) (Spec, bool) {
	spec, err := Infer(f, band, p)
	if err == nil && spec.Valid() && spec.Confidence >= p.MinConfidence {
		return spec, true
	}
	return Static(f.W, f.H, p.StaticRows), false
}

func scanEdges(f *pixels.Frame, band region.Band, p Params) []edge {
	lines := max(1, p.ScanLines)
	h := band.Height()
	var out []edge
	for i := 0; i < lines; i++ {
		y := band.Top + (2*i+1)*h/(2*lines)
		if y < 0 || y >= f.H {
			continue
		}
		row := y * f.W * 4
		runStart := -1
		for x := 0; x <= f.W; x++ {
			border := false
			if x < f.W {
				j := row + x*4
				border = rarity.IsBorder(f.Pix[j], f.Pix[j+1], f.Pix[j+2])
			}
			switch {
			case border && runStart < 0:
				runStart = x
			case !border && runStart >= 0:
				if w := x - runStart; w >= p.MinRun && w <= p.MaxRun {
					out = append(out, edge{x: runStart, width: w, line: i, y: y})
				}
				runStart = -1
			}
		}
	}
	return out
}

func clusterEdges(edges []edge, p Params) []*cluster {
	sort.Slice(edges, func(i, j int) bool { return edges[i].x < edges[j].x })
	var all []*cluster
	var cur *cluster
	for _, e := range edges {
		if cur == nil || math.Abs(float64(e.x)-cur.mean()) > float64(p.ClusterTolerance) {
			cur = &cluster{lines: map[int]bool{}, minY: e.y}
			all = append(all, cur)
		}
		cur.sumX += float64(e.x)
		cur.sumW += float64(e.width)
		cur.n++
		cur.lines[e.line] = true
		cur.minY = min(cur.minY, e.y)
	}
	kept := all[:0]
	for _, c := range all {
		if len(c.lines) >= p.MinLineSupport {
			kept = append(kept, c)
		}
	}
	return kept
}

// bestPitch votes over candidate pitches for edges that carry one border
// per icon. Candidates are the single and paired consecutive gaps plus their
// halves, thirds and quarters. Pairs at 1x the pitch count fully, 2x-4x
// count half.
func bestPitch(xs []int, minPitch, maxPitch, tol int) (int, int) {
	var candidates []int
	for i := 0; i+1 < len(xs); i++ {
		candidates = append(candidates, divisors(xs[i+1]-xs[i], minPitch)...)
		if i+2 < len(xs) {
			candidates = append(candidates, xs[i+2]-xs[i])
		}
	}
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	bestP, bestPairs := 0, 0
	bestScore := 0.0
	for _, c := range candidates {
		if c < minPitch || (maxPitch > 0 && c > maxPitch) {
			continue
		}
		score, pairs, sum := 0.0, 0, 0
		for i := 0; i < len(xs); i++ {
			for j := i + 1; j < len(xs); j++ {
				d := xs[j] - xs[i]
				for k := 1; k <= 4; k++ {
					if abs(d-k*c) <= tol {
						if k == 1 {
							score++
							pairs++
							sum += d
						} else {
							score += 0.5
						}
						break
					}
				}
			}
		}
		// ties prefer the larger pitch
		if score > bestScore || (score == bestScore && score > 0 && c > bestP) {
			bestScore, bestPairs = score, pairs
			bestP = int(math.Round(float64(sum) / float64(max(1, pairs))))
			if pairs == 0 {
				bestP = c
			}
		}
	}
	return bestP, bestPairs
}

// divisors returns g and its halves, thirds and quarters that are at least
// minPitch.
func divisors(g, minPitch int) []int {
	var out []int
	for k := 1; k <= 4; k++ {
		if c := int(math.Round(float64(g) / float64(k))); c >= minPitch {
			out = append(out, c)
		}
	}
	return out
}

// pairEdges looks for the left/right border pair each icon leaves on a
// scan-line. The intra-icon gap is the most frequent consecutive gap that is
// wide enough to be an icon, seen at least twice. Edges are then paired left
// to right; a gap between two pairs that matches the intra gap means the
// edges are evenly spaced single borders instead. It returns the intra gap
// and the indices of the left edges, or 0 and nil.
func pairEdges(xs []int, minCell, maxCell, thickness, tol int) (int, []int) {
	gaps := make([]int, 0, len(xs))
	for i := 0; i+1 < len(xs); i++ {
		if g := xs[i+1] - xs[i]; g+thickness >= minCell && g+thickness <= maxCell {
			gaps = append(gaps, g)
		}
	}
	intra, bestN, bestSum := 0, 0, 0
	for _, g := range gaps {
		n, sum := 0, 0
		for _, o := range gaps {
			if abs(o-g) <= tol {
				n++
				sum += o
			}
		}
		if n > bestN || (n == bestN && g < intra) {
			intra, bestN, bestSum = g, n, sum
		}
	}
	if bestN < 2 {
		return 0, nil
	}
	intra = int(math.Round(float64(bestSum) / float64(bestN)))

	var lefts []int
	for i := 0; i+1 < len(xs); {
		if abs(xs[i+1]-xs[i]-intra) > tol {
			i++
			continue
		}
		if i+2 < len(xs) && abs(xs[i+2]-xs[i+1]-intra) <= tol {
			return 0, nil
		}
		lefts = append(lefts, i)
		i += 2
	}
	if len(lefts) < 2 || 4*len(lefts) < len(xs) {
		return 0, nil
	}
	return intra, lefts
}

// latticePitch returns the smallest pitch of at least minPitch that puts
// every gap between consecutive left edges on a 1x-4x multiple, refined to
// the mean over all gaps. It returns 0 when no candidate fits every gap.
func latticePitch(lefts []int, minPitch, maxPitch, tol int) int {
	gaps := make([]int, len(lefts)-1)
	var candidates []int
	for i := range gaps {
		gaps[i] = lefts[i+1] - lefts[i]
		for _, c := range divisors(gaps[i], minPitch) {
			if c <= maxPitch {
				candidates = append(candidates, c)
			}
		}
	}
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	for _, c := range candidates {
		sum, cells, fits := 0, 0, true
		for _, g := range gaps {
			k := int(math.Round(float64(g) / float64(c)))
			if k < 1 || k > 4 || abs(g-k*c) > tol {
				fits = false
				break
			}
			sum += g
			cells += k
		}
		if fits {
			return int(math.Round(float64(sum) / float64(cells)))
		}
	}
	return 0
}

// consistentGap accepts gaps that are whole pitch multiples, optionally
// offset by the intra-icon gap or the inter-icon spacing gap. Multiples
// beyond 1x are skipped-cell evidence.
func consistentGap(g, pitch, intra, tol int) bool {
	offsets := []int{0}
	if intra > 0 {
		offsets = append(offsets, intra, pitch-intra)
	}
	for k := 0; k <= 4; k++ {
		for _, o := range offsets {
			base := k*pitch + o
			if base == 0 {
				continue
			}
			if abs(g-base) <= tol {
				return true
			}
		}
	}
	return false
}

// latticeMembers returns the indices (ascending) of the largest set of xs
// lying on a pitch lattice through one of anchors. Ties pick the lattice
// with the leftmost anchor.
func latticeMembers(xs, anchors []int, pitch, tol int) []int {
	var best []int
	for _, a := range anchors {
		var members []int
		for i, x := range xs {
			d := x - xs[a]
			k := int(math.Round(float64(d) / float64(pitch)))
			if abs(d-k*pitch) <= tol {
				members = append(members, i)
			}
		}
		if len(members) > len(best) {
			best = members
		}
	}
	return best
}

// topEdge walks up each lattice border column from the highest scan-line
// hit while pixels stay border-colored and returns the median top.
func topEdge(f *pixels.Frame, clusters []*cluster, lattice []int, thickness, maxWalk int) int {
	tops := make([]int, 0, len(lattice))
	for _, i := range lattice {
		c := clusters[i]
		x := int(math.Round(c.mean())) + thickness/2
		y := c.minY
		for steps := 0; steps < maxWalk && y > 0; steps++ {
			r, g, b, _ := f.At(x, y-1)
			if !rarity.IsBorder(r, g, b) {
				break
			}
			y--
		}
		tops = append(tops, y)
	}
	slices.Sort(tops)
	return tops[len(tops)/2]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
