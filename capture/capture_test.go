package capture

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestService_RunSkipsFailedGrabs(t *testing.T) {
	calls := 0
	g := func() (*image.RGBA, error) {
		calls++
		if calls%2 == 0 {
			return nil, errors.New("display busy")
		}
		return image.NewRGBA(image.Rect(0, 0, 4, 3)), nil
	}
	s := NewService(g, nil)
	var seen []uint64
	stop := errors.New("stop")
	err := s.Run(context.Background(), time.Millisecond, func(_ context.Context, snap Snapshot) error {
		if snap.Frame.W != 4 || snap.Frame.H != 3 {
			t.Fatalf("frame %dx%d", snap.Frame.W, snap.Frame.H)
		}
		seen = append(seen, snap.Sequence)
		if len(seen) == 3 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Run returned %v", err)
	}
	if seen[0] != 1 || seen[2] != 3 {
		t.Fatalf("sequences %v", seen)
	}
	st := s.Stats()
	if st.Captures != 3 || st.Skipped != 2 {
		t.Fatalf("stats %+v", st)
	}
}

func TestService_RunStopsOnCancel(t *testing.T) {
	s := NewService(func() (*image.RGBA, error) { return nil, errors.New("no display") }, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Run(ctx, time.Millisecond, func(context.Context, Snapshot) error {
		t.Fatal("handler called without a frame")
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run returned %v", err)
	}
	if s.Stats().Captures != 0 || s.Stats().Skipped == 0 {
		t.Fatalf("stats %+v", s.Stats())
	}
}

func TestGrabWith_EmptyImage(t *testing.T) {
	_, err := grabWith(func() (*image.RGBA, error) { return image.NewRGBA(image.Rect(0, 0, 0, 0)), nil })
	if err == nil {
		t.Fatal("expected error for empty capture")
	}
}

func TestIsImagePath(t *testing.T) {
	for path, want := range map[string]bool{"a.PNG": true, "b.webp": true, "c.jpeg": true, "notes.txt": false, "noext": false} {
		if got := IsImagePath(path); got != want {
			t.Fatalf("IsImagePath(%q) = %v", path, got)
		}
	}
}

func TestWatchDir_HandsOverSettledImages(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchDir(ctx, dir, 20*time.Millisecond, func(_ context.Context, path string) error {
			got <- filepath.Base(path)
			return nil
		}, nil)
	}()

	// Writes issued before the watcher is registered are missed, so retry
	// until one is reported.
	deadline := time.Now().Add(3 * time.Second)
	var name string
	for name == "" && time.Now().Before(deadline) {
		if err := os.WriteFile(filepath.Join(dir, "shot.png"), []byte("png"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("txt"), 0o644); err != nil {
			t.Fatal(err)
		}
		select {
		case name = <-got:
		case <-time.After(200 * time.Millisecond):
		}
	}
	if name != "shot.png" {
		t.Fatalf("handled %q, want shot.png", name)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("WatchDir returned %v", err)
	}
}
