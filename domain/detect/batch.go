package detect

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/soocke/itemscan/domain/pixels"
)

// FileReport is the outcome for one image on disk. Err is set when the image
// could not be read; the batch continues regardless.
type FileReport struct {
	Image string `json:"image"`
	Report
	Err error `json:"-"`
}

// DetectFiles decodes and processes paths with at most workers frames in
// flight. Results keep the order of paths. Only context cancellation aborts
// the batch.
func DetectFiles(ctx context.Context, p *Pipeline, paths []string, workers int) ([]FileReport, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	out := make([]FileReport, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			out[i].Image = path
			f, err := pixels.DecodeFile(path)
			if err != nil {
				p.log.Warn("skip frame", "path", path, "error", err)
				out[i].Err = err
				return nil
			}
			rep, err := p.Detect(ctx, f)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.log.Warn("skip frame", "path", path, "error", err)
				out[i].Err = err
				return nil
			}
			out[i].Report = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}
