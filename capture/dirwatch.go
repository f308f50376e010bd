package capture

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// imageExts are the screenshot formats the decoder understands.
var imageExts = []string{".png", ".jpg", ".jpeg", ".webp"}

// IsImagePath reports whether path has a supported image extension.
func IsImagePath(path string) bool {
	return slices.Contains(imageExts, strings.ToLower(filepath.Ext(path)))
}

// WatchDir calls handle for every image file created or rewritten in dir
// until ctx is done or handle fails. A file is handed over once no event for
// it has been seen for settle, so partially written screenshots are skipped.
func WatchDir(ctx context.Context, dir string, settle time.Duration, handle func(context.Context, string) error, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if settle <= 0 {
		settle = 200 * time.Millisecond
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("watching screenshot directory", "dir", dir)

	pending := map[string]time.Time{}
	tick := time.NewTicker(max(settle/4, 10*time.Millisecond))
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				if IsImagePath(ev.Name) {
					pending[ev.Name] = time.Now()
				}
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				delete(pending, ev.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "dir", dir, "error", err)
		case now := <-tick.C:
			var ready []string
			for path, seen := range pending {
				if now.Sub(seen) >= settle {
					ready = append(ready, path)
				}
			}
			slices.Sort(ready)
			for _, path := range ready {
				delete(pending, path)
				if err := handle(ctx, path); err != nil {
					return err
				}
			}
		}
	}
}
