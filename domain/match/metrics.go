package match

import (
	"fmt"
	"strings"
)

// Metric names one similarity measure.
type Metric string

const (
	MetricNCC  Metric = "ncc"
	MetricHist Metric = "hist"
	MetricSSIM Metric = "ssim"
	MetricEdge Metric = "edge"
)

// AllMetrics lists every supported metric in evaluation order.
func AllMetrics() []Metric { return []Metric{MetricNCC, MetricHist, MetricSSIM, MetricEdge} }

// ParseMetrics parses a comma separated metric list. An empty string yields
// every metric.
func ParseMetrics(s string) ([]Metric, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AllMetrics(), nil
	}
	var out []Metric
	seen := map[Metric]bool{}
	for _, part := range strings.Split(s, ",") {
		m := Metric(strings.ToLower(strings.TrimSpace(part)))
		switch m {
		case MetricNCC, MetricHist, MetricSSIM, MetricEdge:
		default:
			return nil, fmt.Errorf("unknown metric %q", part)
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out, nil
}

// Scores holds the per-metric similarities of one comparison.
type Scores map[Metric]float64

// Combine returns the maximum score plus bonus for each other score within
// tolerance of it.
func Combine(scores []float64, bonus, tolerance float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	best, at := scores[0], 0
	for i, s := range scores {
		if s > best {
			best, at = s, i
		}
	}
	combined := best
	for i, s := range scores {
		if i != at && best-s <= tolerance {
			combined += bonus
		}
	}
	return combined
}
