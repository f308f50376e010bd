package calibration

import (
	"fmt"
	"slices"
	"strings"
)

// Heatmap is the F1 and effect grid of one parameter pair. Rows follow P
// values and columns follow Q values.
type Heatmap struct {
	P       string      `json:"p"`
	Q       string      `json:"q"`
	PValues []float64   `json:"pValues"`
	QValues []float64   `json:"qValues"`
	F1      [][]float64 `json:"f1"`
	Effect  [][]float64 `json:"effect"`
}

// NewHeatmap arranges the interactions of a single pair into a grid.
func NewHeatmap(cells []Interaction) Heatmap {
	var h Heatmap
	if len(cells) == 0 {
		return h
	}
	h.P, h.Q = cells[0].P, cells[0].Q
	index := func(vals []float64, v float64) ([]float64, int) {
		for i, x := range vals {
			if sameValue(x, v) {
				return vals, i
			}
		}
		return append(vals, v), len(vals)
	}
	for _, c := range cells {
		h.PValues, _ = index(h.PValues, c.PValue)
		h.QValues, _ = index(h.QValues, c.QValue)
	}
	slices.Sort(h.PValues)
	slices.Sort(h.QValues)
	h.F1 = grid(len(h.PValues), len(h.QValues))
	h.Effect = grid(len(h.PValues), len(h.QValues))
	for _, c := range cells {
		_, i := index(h.PValues, c.PValue)
		_, j := index(h.QValues, c.QValue)
		h.F1[i][j] = c.Actual
		h.Effect[i][j] = c.Effect
	}
	return h
}

func grid(rows, cols int) [][]float64 {
	g := make([][]float64, rows)
	for i := range g {
		g[i] = make([]float64, cols)
	}
	return g
}

// shade maps an effect to a single character: + synergy, - conflict, . neutral.
func shade(effect float64) string {
	switch Classify(effect) {
	case Synergy:
		return "+"
	case Conflict:
		return "-"
	}
	return "."
}

// String renders the heatmap as a text table of F1 with an effect marker
// per cell.
func (h Heatmap) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (rows) x %s (cols)\n", h.P, h.Q)
	fmt.Fprintf(&b, "%10s", "")
	for _, q := range h.QValues {
		fmt.Fprintf(&b, " %9.4g", q)
	}
	b.WriteByte('\n')
	for i, p := range h.PValues {
		fmt.Fprintf(&b, "%10.4g", p)
		for j := range h.QValues {
			fmt.Fprintf(&b, " %7.3f %s", h.F1[i][j], shade(h.Effect[i][j]))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
