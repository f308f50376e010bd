// Package detect runs the full screenshot pipeline: band location, grid
// resolution, empty-cell filtering, rarity classification, template
// matching and post-processing.
package detect

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/soocke/itemscan/domain/grid"
	"github.com/soocke/itemscan/domain/library"
	"github.com/soocke/itemscan/domain/match"
	"github.com/soocke/itemscan/domain/pixels"
	"github.com/soocke/itemscan/domain/rarity"
	"github.com/soocke/itemscan/domain/region"
)

// GridMode selects how the layout is obtained.
type GridMode string

const (
	GridInfer  GridMode = "infer"  // infer, fall back to static on low confidence
	GridStatic GridMode = "static" // resolution-scaled constants only
)

// Detection is one accepted match.
type Detection struct {
	ItemID     string          `json:"itemId"`
	Name       string          `json:"name"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"box"`
	Rarity     rarity.Rarity   `json:"rarity"`
	Row        int             `json:"row"`
	Col        int             `json:"col"`
	Pass       int             `json:"pass"`
}

// Options bundles every stage's parameters.
type Options struct {
	Region   region.Params
	Grid     grid.Params
	GridMode GridMode
	Filter   grid.FilterParams
	Match    match.Options
	Post     PostOptions
}

// DefaultOptions returns the tuned pipeline.
func DefaultOptions() Options {
	return Options{
		Region:   region.DefaultParams(),
		Grid:     grid.DefaultParams(),
		GridMode: GridInfer,
		Filter:   grid.DefaultFilterParams(),
		Match:    match.DefaultOptions(),
		Post:     DefaultPostOptions(),
	}
}

// Report describes one processed frame.
type Report struct {
	Band       region.Band   `json:"band"`
	Grid       grid.Spec     `json:"grid"`
	Inferred   bool          `json:"inferred"`
	Cells      int           `json:"cells"`
	Empty      int           `json:"empty"`
	Detections []Detection   `json:"detections"`
	Elapsed    time.Duration `json:"elapsedNs"`
}

// Pipeline is one configured detector. It holds no per-frame state and is
// safe for concurrent use.
type Pipeline struct {
	lib     *library.Library
	matcher *match.Matcher
	opts    Options
	log     *slog.Logger
}

// NewPipeline wires a pipeline over lib.
func NewPipeline(lib *library.Library, opts Options, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.GridMode == "" {
		opts.GridMode = GridInfer
	}
	return &Pipeline{
		lib:     lib,
		matcher: match.NewMatcher(lib, opts.Match, log),
		opts:    opts,
		log:     log,
	}
}

// Library returns the reference library the pipeline matches against.
func (p *Pipeline) Library() *library.Library { return p.lib }

// Detect processes one frame. Low-confidence stages degrade to their
// fallbacks; the only errors are an empty frame and context cancellation.
func (p *Pipeline) Detect(ctx context.Context, f *pixels.Frame) (Report, error) {
	start := time.Now()
	if f.Empty() {
		return Report{}, pixels.ErrEmptyFrame
	}
	rep := Report{Band: region.Locate(f, p.opts.Region)}
	switch p.opts.GridMode {
	case GridStatic:
		rep.Grid = grid.Static(f.W, f.H, p.opts.Grid.StaticRows)
	default:
		rep.Grid, rep.Inferred = grid.Resolve(f, rep.Band, p.opts.Grid)
	}

	ring := max(1, rep.Grid.Border)
	var candidates []Detection
	for _, cell := range rep.Grid.Cells(f.Bounds()) {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Cells++
		if grid.IsEmpty(f, cell.Rect, p.opts.Filter) {
			rep.Empty++
			continue
		}
		tier := rarity.ClassifyRing(f, cell.Rect, ring).Rarity
		crop := f.CropPooled(cell.Rect)
		res := p.matcher.Match(crop, tier)
		pixels.RecycleFrame(crop)
		if res.Item == nil || !res.Accepted {
			continue
		}
		candidates = append(candidates, Detection{
			ItemID:     res.Item.ID,
			Name:       res.Item.Name,
			Confidence: res.Score,
			Box:        cell.Rect,
			Rarity:     tier,
			Row:        cell.Row,
			Col:        cell.Col,
		})
	}
	rep.Detections = PostProcess(candidates, p.opts.Post)
	rep.Elapsed = time.Since(start)
	p.log.Debug("frame processed",
		"band_top", rep.Band.Top,
		"band_bottom", rep.Band.Bottom,
		"columns", rep.Grid.Columns,
		"rows", rep.Grid.Rows,
		"inferred", rep.Inferred,
		"cells", rep.Cells,
		"detections", len(rep.Detections),
		"elapsed", rep.Elapsed)
	return rep, nil
}
