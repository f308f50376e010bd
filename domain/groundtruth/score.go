package groundtruth

// Metrics summarises detection quality for one or more frames.
type Metrics struct {
	TP        int     `json:"tp"`
	FP        int     `json:"fp"`
	FN        int     `json:"fn"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Score compares a detected id list against the expected multiset. A
// detection counts as a true positive only up to the expected count of its
// id.
func Score(expected map[string]int, detected []string) Metrics {
	got := map[string]int{}
	for _, id := range detected {
		got[id]++
	}
	var m Metrics
	want := 0
	for id, n := range expected {
		if n <= 0 {
			continue
		}
		want += n
		m.TP += min(n, got[id])
	}
	m.FP = len(detected) - m.TP
	m.FN = want - m.TP
	m.fill()
	return m
}

func (m *Metrics) fill() {
	m.Precision, m.Recall, m.F1 = 0, 0, 0
	if d := m.TP + m.FP; d > 0 {
		m.Precision = float64(m.TP) / float64(d)
	}
	if d := m.TP + m.FN; d > 0 {
		m.Recall = float64(m.TP) / float64(d)
	}
	if s := m.Precision + m.Recall; s > 0 {
		m.F1 = 2 * m.Precision * m.Recall / s
	}
}

// Mean averages precision, recall and F1 over per-frame metrics and sums the
// counts.
func Mean(all []Metrics) Metrics {
	var out Metrics
	if len(all) == 0 {
		return out
	}
	for _, m := range all {
		out.TP += m.TP
		out.FP += m.FP
		out.FN += m.FN
		out.Precision += m.Precision
		out.Recall += m.Recall
		out.F1 += m.F1
	}
	n := float64(len(all))
	out.Precision /= n
	out.Recall /= n
	out.F1 /= n
	return out
}
