package calibration

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Report gathers every artifact of a calibration run.
type Report struct {
	RunID        string        `json:"runId"`
	Started      time.Time     `json:"started"`
	Cases        int           `json:"cases"`
	Skipped      int           `json:"skipped"`
	Baseline     Metrics       `json:"baseline"`
	Sweeps       []Result      `json:"-"`
	Sensitivity  []Sensitivity `json:"sensitivity"`
	Interactions []Interaction `json:"-"`
	Greedy       *GreedyResult `json:"greedy,omitempty"`
}

// NewReport returns a report stamped with a fresh run id.
func NewReport() *Report {
	return &Report{RunID: uuid.NewString(), Started: time.Now().UTC()}
}

// WriteReports writes the run's artifacts into dir, creating it if needed:
// sweep.csv, sensitivity.csv, interactions.json, one heatmap text file per
// pair and summary.json.
func WriteReports(dir string, r *Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeSweepCSV(filepath.Join(dir, "sweep.csv"), r.Sweeps); err != nil {
		return err
	}
	if err := writeSensitivityCSV(filepath.Join(dir, "sensitivity.csv"), r.Sensitivity); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "interactions.json"), nonNil(r.Interactions)); err != nil {
		return err
	}
	for _, cells := range groupPairs(r.Interactions) {
		h := NewHeatmap(cells)
		name := fmt.Sprintf("heatmap_%s_%s.txt", h.P, h.Q)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(h.String()), 0o644); err != nil {
			return fmt.Errorf("write heatmap: %w", err)
		}
	}
	return writeJSON(filepath.Join(dir, "summary.json"), r)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// groupPairs splits interactions by (P, Q) in first-seen order.
func groupPairs(all []Interaction) [][]Interaction {
	var out [][]Interaction
	index := map[[2]string]int{}
	for _, c := range all {
		k := [2]string{c.P, c.Q}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], c)
	}
	return out
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func writeSweepCSV(path string, results []Result) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Parameter, r.Category, ftoa(r.Value), strconv.FormatBool(r.Baseline),
			ftoa(r.Metrics.Precision), ftoa(r.Metrics.Recall), ftoa(r.Metrics.F1),
			ftoa(r.Delta), ftoa(r.Metrics.TimeMs),
		})
	}
	header := strings.Split("parameter,category,value,baseline,precision,recall,f1,delta,time_ms", ",")
	return writeCSV(path, header, rows)
}

func writeSensitivityCSV(path string, ranking []Sensitivity) error {
	rows := make([][]string, 0, len(ranking))
	for _, s := range ranking {
		rows = append(rows, []string{
			strconv.Itoa(s.Rank), s.Parameter, s.Category, ftoa(s.StdDev),
			ftoa(s.MeanF1), ftoa(s.BestValue), ftoa(s.BestDelta),
		})
	}
	header := strings.Split("rank,parameter,category,std_dev,mean_f1,best_value,best_delta", ",")
	return writeCSV(path, header, rows)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
