package calibration

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soocke/itemscan/config"
	"github.com/soocke/itemscan/domain/detect"
	"github.com/soocke/itemscan/domain/groundtruth"
	"github.com/soocke/itemscan/domain/library"
	"github.com/soocke/itemscan/domain/pixels"
)

// Metrics is the corpus-level outcome of one configuration.
type Metrics struct {
	groundtruth.Metrics
	TimeMs float64 `json:"timeMs"` // mean wall time per frame
	Frames int     `json:"frames"`
}

// Evaluator scores a configuration. Implementations must be deterministic
// for a fixed corpus.
type Evaluator interface {
	Evaluate(ctx context.Context, cfg *config.Config) (Metrics, error)
}

type frameCase struct {
	key      string
	frame    *pixels.Frame
	expected map[string]int
}

// Runner evaluates configurations by running the detection pipeline over a
// labeled corpus. Frames are decoded once; cases whose image cannot be
// decoded are skipped and counted.
type Runner struct {
	lib     *library.Library
	cases   []frameCase
	skipped int
	workers int
	log     *slog.Logger
}

// NewRunner decodes every case of set. Expected names must already be
// resolved to catalog ids.
func NewRunner(lib *library.Library, set *groundtruth.Set, workers int, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	r := &Runner{lib: lib, workers: workers, log: log, skipped: set.Skipped}
	for _, c := range set.Cases {
		f, err := pixels.DecodeFile(c.Image)
		if err != nil {
			log.Warn("skip calibration case", "key", c.Key, "path", c.Image, "error", err)
			r.skipped++
			continue
		}
		r.cases = append(r.cases, frameCase{key: c.Key, frame: f, expected: c.Expected})
	}
	return r
}

// Cases returns the number of usable cases.
func (r *Runner) Cases() int { return len(r.cases) }

// Skipped returns the number of cases dropped while loading.
func (r *Runner) Skipped() int { return r.skipped }

// Evaluate runs the pipeline configured by cfg over every case and averages
// precision, recall and F1.
func (r *Runner) Evaluate(ctx context.Context, cfg *config.Config) (Metrics, error) {
	p := detect.NewPipeline(r.lib, cfg.PipelineOptions(), r.log)
	per := make([]groundtruth.Metrics, len(r.cases))
	elapsed := make([]time.Duration, len(r.cases))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, c := range r.cases {
		g.Go(func() error {
			rep, err := p.Detect(ctx, c.frame)
			if err != nil {
				return err
			}
			ids := make([]string, len(rep.Detections))
			for j, d := range rep.Detections {
				ids[j] = d.ItemID
			}
			per[i] = groundtruth.Score(c.expected, ids)
			elapsed[i] = rep.Elapsed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Metrics{}, err
	}
	out := Metrics{Metrics: groundtruth.Mean(per), Frames: len(r.cases)}
	if n := len(elapsed); n > 0 {
		var total time.Duration
		for _, d := range elapsed {
			total += d
		}
		out.TimeMs = float64(total.Microseconds()) / 1000 / float64(n)
	}
	return out, nil
}

// ResetCache drops the library's prepared features between independent
// passes.
func (r *Runner) ResetCache() { r.lib.ResetCache() }
