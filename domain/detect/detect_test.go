package detect

import (
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/soocke/itemscan/domain/library"
	"github.com/soocke/itemscan/domain/pixels"
	"github.com/soocke/itemscan/domain/pixels/pixelstest"
	"github.com/soocke/itemscan/domain/rarity"
)

var samples = map[string]*pixels.Frame{
	"wrench":  pixelstest.Sample(64, pixelstest.VerticalStripes(pixelstest.Red, pixelstest.White, 16)),
	"battery": pixelstest.Sample(64, pixelstest.HorizontalStripes(pixelstest.Cyan, pixelstest.Black, 16)),
	"gear":    pixelstest.Sample(64, pixelstest.Rings(pixelstest.Magenta, pixelstest.White, 64, 4)),
}

func testLibrary() *library.Library {
	return library.New([]*library.Item{
		{ID: "wrench", Name: "Wrench", Rarity: rarity.Rare, Sample: samples["wrench"]},
		{ID: "battery", Name: "Battery", Rarity: rarity.Rare, Sample: samples["battery"]},
		{ID: "gear", Name: "Gear", Rarity: rarity.Rare, Sample: samples["gear"]},
	}, library.Options{})
}

// barFrame places the named icons left to right in a 1080p item bar.
func barFrame(ids ...string) *pixels.Frame {
	f := pixelstest.Frame(1920, 1080, pixelstest.Background)
	for i, r := range pixelstest.Row(800, 980, 64, 72, len(ids)) {
		pixelstest.DrawIcon(f, r, samples[ids[i]], pixelstest.RareBorder, 3)
	}
	return f
}

func TestDetect_ThreeIconsNoDuplicates(t *testing.T) {
	p := NewPipeline(testLibrary(), DefaultOptions(), nil)
	rep, err := p.Detect(context.Background(), barFrame("wrench", "battery", "gear"))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if !rep.Inferred || rep.Grid.Columns != 3 {
		t.Fatalf("expected an inferred 3-column grid, got %+v", rep.Grid)
	}
	want := []string{"wrench", "battery", "gear"}
	if len(rep.Detections) != len(want) {
		t.Fatalf("expected %d detections, got %+v", len(want), rep.Detections)
	}
	for i, d := range rep.Detections {
		if d.ItemID != want[i] {
			t.Fatalf("detection %d = %s, want %s", i, d.ItemID, want[i])
		}
		if d.Rarity != rarity.Rare || d.Confidence < 0.85 || d.Pass != 1 {
			t.Fatalf("detection %d unexpected %+v", i, d)
		}
		if d.Box != image.Rect(800+72*i, 980, 864+72*i, 1044) {
			t.Fatalf("detection %d box %v", i, d.Box)
		}
	}
}

func TestDetect_IsolatedIconsKeepCellBoxes(t *testing.T) {
	f := pixelstest.Frame(1920, 1080, pixelstest.Background)
	cells := pixelstest.Row(800, 980, 64, 72, 9)
	slots := map[int]string{0: "wrench", 2: "battery", 5: "gear", 8: "wrench"}
	for slot, id := range slots {
		pixelstest.DrawIcon(f, cells[slot], samples[id], pixelstest.RareBorder, 3)
	}
	rep, err := NewPipeline(testLibrary(), DefaultOptions(), nil).Detect(context.Background(), f)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if !rep.Inferred || rep.Grid.PitchX != 72 || rep.Grid.CellWidth != 64 || rep.Grid.Columns != 9 {
		t.Fatalf("unexpected grid %+v", rep.Grid)
	}
	if len(rep.Detections) != len(slots) {
		t.Fatalf("expected %d detections, got %+v", len(slots), rep.Detections)
	}
	for _, d := range rep.Detections {
		if d.ItemID != slots[d.Col] || d.Box != cells[d.Col] {
			t.Fatalf("detection at col %d = %s %v, want %s %v", d.Col, d.ItemID, d.Box, slots[d.Col], cells[d.Col])
		}
	}
}

func TestDetect_IsRepeatable(t *testing.T) {
	opts := DefaultOptions()
	opts.Match.MultiScale = true
	p := NewPipeline(testLibrary(), opts, nil)
	f := barFrame("gear", "wrench")
	a, err := p.Detect(context.Background(), f)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	b, _ := p.Detect(context.Background(), f)
	if len(a.Detections) != len(b.Detections) {
		t.Fatalf("detection count changed between runs")
	}
	for i := range a.Detections {
		if a.Detections[i] != b.Detections[i] {
			t.Fatalf("run differs at %d: %+v vs %+v", i, a.Detections[i], b.Detections[i])
		}
	}
}

func TestDetect_EmptyBarHasNoDetections(t *testing.T) {
	p := NewPipeline(testLibrary(), DefaultOptions(), nil)
	rep, err := p.Detect(context.Background(), pixelstest.Frame(1920, 1080, pixelstest.Background))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if rep.Inferred || !rep.Grid.Static {
		t.Fatalf("expected static fallback grid")
	}
	if len(rep.Detections) != 0 || rep.Empty != rep.Cells {
		t.Fatalf("expected only empty cells, got %d detections, %d/%d empty", len(rep.Detections), rep.Empty, rep.Cells)
	}
}

func TestDetect_Errors(t *testing.T) {
	p := NewPipeline(testLibrary(), DefaultOptions(), nil)
	if _, err := p.Detect(context.Background(), pixels.New(0, 0)); !errors.Is(err, pixels.ErrEmptyFrame) {
		t.Fatalf("expected ErrEmptyFrame, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Detect(ctx, barFrame("wrench", "gear")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIoU(t *testing.T) {
	a := image.Rect(0, 0, 10, 10)
	if got := IoU(a, a); got != 1 {
		t.Fatalf("IoU(a,a) = %v", got)
	}
	if got := IoU(a, image.Rect(20, 20, 30, 30)); got != 0 {
		t.Fatalf("disjoint IoU = %v", got)
	}
	if got := IoU(a, image.Rect(5, 0, 15, 10)); math.Abs(got-1.0/3) > 1e-9 {
		t.Fatalf("half-overlap IoU = %v, want 1/3", got)
	}
}

func TestPostProcess_StagesAndSuppresses(t *testing.T) {
	box := image.Rect(0, 0, 64, 64)
	dets := []Detection{
		{ItemID: "low", Confidence: 0.5, Box: image.Rect(200, 0, 264, 64)},
		{ItemID: "dup-weak", Confidence: 0.7, Box: box.Add(image.Pt(4, 0))},
		{ItemID: "strong", Confidence: 0.9, Box: box},
		{ItemID: "mid", Confidence: 0.8, Box: image.Rect(100, 0, 164, 64)},
	}
	got := PostProcess(dets, DefaultPostOptions())
	if len(got) != 2 {
		t.Fatalf("expected 2 survivors, got %+v", got)
	}
	// scan order is preserved
	if got[0].ItemID != "strong" || got[1].ItemID != "mid" {
		t.Fatalf("unexpected survivors %s, %s", got[0].ItemID, got[1].ItemID)
	}
	if got[0].Pass != 1 || got[1].Pass != 2 {
		t.Fatalf("unexpected passes %d, %d", got[0].Pass, got[1].Pass)
	}
}

func TestNMS_EarlierPassWins(t *testing.T) {
	box := image.Rect(0, 0, 64, 64)
	dets := []Detection{
		{ItemID: "late", Confidence: 0.95, Box: box, Pass: 2},
		{ItemID: "early", Confidence: 0.86, Box: box.Add(image.Pt(2, 2)), Pass: 1},
	}
	got := NMS(dets, 0.3)
	if len(got) != 1 || got[0].ItemID != "early" {
		t.Fatalf("expected the pass-1 detection to win, got %+v", got)
	}
}

func TestDetectFiles_SkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "bar.png")
	fh, err := os.Create(good)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(fh, barFrame("battery", "wrench").RGBA()); err != nil {
		t.Fatal(err)
	}
	fh.Close()
	paths := []string{filepath.Join(dir, "missing.png"), good}
	out, err := DetectFiles(context.Background(), NewPipeline(testLibrary(), DefaultOptions(), nil), paths, 2)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if out[0].Err == nil || out[0].Image != paths[0] {
		t.Fatalf("missing file must be reported, got %+v", out[0])
	}
	if out[1].Err != nil || len(out[1].Detections) != 2 || out[1].Detections[0].ItemID != "battery" {
		t.Fatalf("unexpected result for good file: %+v", out[1])
	}
}
