package debug

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestLoggersEmitUntilCanceled(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx, cancel := context.WithCancel(context.Background())
	StartGoroutineLogger(ctx, 5*time.Millisecond, logger)
	StartMemLogger(ctx, 5*time.Millisecond, logger)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		out := buf.String()
		if strings.Contains(out, "goroutine-stacks") && strings.Contains(out, "memstats") {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	out := buf.String()
	if !strings.Contains(out, "goroutine-stacks") || !strings.Contains(out, "heap_alloc=") {
		t.Fatalf("missing debug output:\n%s", out)
	}
	if !strings.Contains(out, "memstats") {
		t.Fatalf("missing memstats output:\n%s", out)
	}
}
