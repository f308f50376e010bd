package capture

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/soocke/itemscan/domain/pixels"
)

const statsLogInterval = 5 * time.Second

// Snapshot is one captured frame.
type Snapshot struct {
	Frame      *pixels.Frame
	CapturedAt time.Time
	Sequence   uint64
}

// Stats summarises capture activity.
type Stats struct {
	Captures   uint64
	Skipped    uint64
	AvgCapture time.Duration
	Sequence   uint64
}

// Service grabs frames on a fixed interval and hands each one to a handler.
// Failed grabs are counted and skipped.
type Service struct {
	grab   Grabber
	logger *slog.Logger

	captures     atomic.Uint64
	skipped      atomic.Uint64
	captureNanos atomic.Uint64
	sequence     atomic.Uint64
}

// NewService returns a service using g, or the full screen when g is nil.
func NewService(g Grabber, logger *slog.Logger) *Service {
	if g == nil {
		g = Screen
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{grab: g, logger: logger}
}

// Stats returns the counters accumulated so far.
func (s *Service) Stats() Stats {
	captures := s.captures.Load()
	var avg time.Duration
	if captures > 0 {
		avg = time.Duration(s.captureNanos.Load() / captures)
	}
	return Stats{Captures: captures, Skipped: s.skipped.Load(), AvgCapture: avg, Sequence: s.sequence.Load()}
}

// Run captures every interval until ctx is done or handle returns an error.
// The first capture happens immediately.
func (s *Service) Run(ctx context.Context, interval time.Duration, handle func(context.Context, Snapshot) error) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logTicker := time.NewTicker(statsLogInterval)
	defer logTicker.Stop()
	for {
		if snap, ok := s.capture(); ok {
			if err := handle(ctx, snap); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-logTicker.C:
			st := s.Stats()
			s.logger.Debug("capture.stats", "captures", st.Captures, "skipped", st.Skipped, "avg_capture", st.AvgCapture)
		case <-ticker.C:
		}
	}
}

func (s *Service) capture() (Snapshot, bool) {
	start := time.Now()
	f, err := grabWith(s.grab)
	if err != nil {
		s.skipped.Add(1)
		s.logger.Error("capture", "error", err)
		return Snapshot{}, false
	}
	s.captureNanos.Add(uint64(time.Since(start).Nanoseconds()))
	s.captures.Add(1)
	return Snapshot{Frame: f, CapturedAt: time.Now(), Sequence: s.sequence.Add(1)}, true
}
