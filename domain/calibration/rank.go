package calibration

import (
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Sensitivity summarises how strongly F1 responds to one parameter.
type Sensitivity struct {
	Rank      int     `json:"rank"`
	Parameter string  `json:"parameter"`
	Category  string  `json:"category"`
	StdDev    float64 `json:"stdDev"` // of F1 across the sweep; 0 for fewer than two values
	MeanF1    float64 `json:"meanF1"`
	BestValue float64 `json:"bestValue"`
	BestDelta float64 `json:"bestDelta"`
}

// Rank groups sweep results by parameter and orders them by descending F1
// standard deviation. Ties keep alphabetical order.
func Rank(results []Result) []Sensitivity {
	groups := map[string][]Result{}
	var order []string
	for _, r := range results {
		if _, ok := groups[r.Parameter]; !ok {
			order = append(order, r.Parameter)
		}
		groups[r.Parameter] = append(groups[r.Parameter], r)
	}
	out := make([]Sensitivity, 0, len(order))
	for _, name := range order {
		rs := groups[name]
		f1 := make([]float64, len(rs))
		best := rs[0]
		for i, r := range rs {
			f1[i] = r.Metrics.F1
			if r.Delta > best.Delta {
				best = r
			}
		}
		s := Sensitivity{
			Parameter: name,
			Category:  rs[0].Category,
			MeanF1:    stat.Mean(f1, nil),
			BestValue: best.Value,
			BestDelta: best.Delta,
		}
		if len(f1) >= 2 {
			s.StdDev = stat.StdDev(f1, nil)
		}
		out = append(out, s)
	}
	slices.SortStableFunc(out, func(a, b Sensitivity) int {
		switch {
		case a.StdDev > b.StdDev:
			return -1
		case a.StdDev < b.StdDev:
			return 1
		}
		return strings.Compare(a.Parameter, b.Parameter)
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
