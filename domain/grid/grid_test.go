package grid

import (
	"errors"
	"image"
	"slices"
	"testing"

	"github.com/soocke/itemscan/domain/pixels"
	"github.com/soocke/itemscan/domain/pixels/pixelstest"
	"github.com/soocke/itemscan/domain/region"
)

// synthBar draws n bordered icons in a row and returns the frame.
func synthBar(w, h, x0, y0, size, pitch, border, n int, skip map[int]bool) *pixels.Frame {
	f := pixelstest.Frame(w, h, pixelstest.Background)
	sample := pixelstest.Sample(64, pixelstest.VerticalStripes(pixelstest.Red, pixelstest.White, 16))
	for i, r := range pixelstest.Row(x0, y0, size, pitch, n) {
		if skip[i] {
			continue
		}
		pixelstest.DrawIcon(f, r, sample, pixelstest.RareBorder, border)
	}
	return f
}

func TestInfer_RecoversColumnsAndPitchAt1080(t *testing.T) {
	f := synthBar(1920, 1080, 700, 960, 64, 72, 3, 6, nil)
	spec, err := Infer(f, region.Band{Top: 930, Bottom: 1060}, DefaultParams())
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if spec.Columns != 6 {
		t.Fatalf("expected 6 columns, got %d", spec.Columns)
	}
	if spec.PitchX != 72 || spec.CellWidth != 64 {
		t.Fatalf("expected pitch 72 / width 64, got %d / %d", spec.PitchX, spec.CellWidth)
	}
	if spec.StartX != 700 || spec.StartY != 960 {
		t.Fatalf("unexpected origin (%d,%d)", spec.StartX, spec.StartY)
	}
	if spec.Rows != 1 {
		t.Fatalf("expected a single row, got %d", spec.Rows)
	}
	if spec.Confidence < 0.99 {
		t.Fatalf("expected full confidence, got %.2f", spec.Confidence)
	}
}

func TestInfer_RecoversColumnsAndPitchAt720(t *testing.T) {
	f := synthBar(1280, 720, 500, 640, 44, 50, 2, 5, nil)
	spec, err := Infer(f, region.Band{Top: 620, Bottom: 700}, DefaultParams())
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if spec.Columns != 5 || spec.PitchX != 50 || spec.CellWidth != 44 {
		t.Fatalf("unexpected layout %+v", spec)
	}
	if spec.StartX != 500 || spec.StartY != 640 {
		t.Fatalf("unexpected origin (%d,%d)", spec.StartX, spec.StartY)
	}
}

func TestInfer_SkippedCellKeepsColumn(t *testing.T) {
	f := synthBar(1920, 1080, 700, 960, 64, 72, 3, 4, map[int]bool{2: true})
	spec, err := Infer(f, region.Band{Top: 930, Bottom: 1060}, DefaultParams())
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if spec.Columns != 4 || spec.PitchX != 72 {
		t.Fatalf("expected 4 columns at pitch 72, got %d at %d", spec.Columns, spec.PitchX)
	}
}

// slotBar draws bordered icons only at the given slots of a row per y0.
func slotBar(w, h, x0, size, pitch, border int, rows map[int][]int) *pixels.Frame {
	f := pixelstest.Frame(w, h, pixelstest.Background)
	sample := pixelstest.Sample(64, pixelstest.VerticalStripes(pixelstest.Red, pixelstest.White, 16))
	for y0, slots := range rows {
		cells := pixelstest.Row(x0, y0, size, pitch, slices.Max(slots)+1)
		for _, s := range slots {
			pixelstest.DrawIcon(f, cells[s], sample, pixelstest.RareBorder, border)
		}
	}
	return f
}

func TestInfer_IsolatedIconsUseSkippedCells(t *testing.T) {
	cases := []struct {
		name                  string
		w, h, x0, size, pitch int
		border                int
		rows                  map[int][]int
		band                  region.Band
		columns, nrows        int
	}{
		{"1080 every other slot", 1920, 1080, 700, 64, 72, 3, map[int][]int{960: {0, 2, 4}}, region.Band{Top: 930, Bottom: 1060}, 5, 1},
		{"1080 two slots apart", 1920, 1080, 700, 64, 72, 3, map[int][]int{960: {0, 3}}, region.Band{Top: 930, Bottom: 1060}, 4, 1},
		{"1080 mixed gaps", 1920, 1080, 700, 64, 72, 3, map[int][]int{960: {0, 2, 5, 8}}, region.Band{Top: 930, Bottom: 1060}, 9, 1},
		{"720 every other slot", 1280, 720, 500, 44, 50, 2, map[int][]int{640: {0, 2, 4}}, region.Band{Top: 620, Bottom: 700}, 5, 1},
		{"720 two slots apart", 1280, 720, 500, 44, 50, 2, map[int][]int{640: {0, 3}}, region.Band{Top: 620, Bottom: 700}, 4, 1},
		{"1080 two rows", 1920, 1080, 700, 64, 72, 3, map[int][]int{900: {0, 2, 4}, 972: {0, 4}}, region.Band{Top: 890, Bottom: 1046}, 5, 2},
		{"720 two rows", 1280, 720, 500, 44, 50, 2, map[int][]int{600: {0, 2, 4}, 650: {0, 4}}, region.Band{Top: 590, Bottom: 700}, 5, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := slotBar(tc.w, tc.h, tc.x0, tc.size, tc.pitch, tc.border, tc.rows)
			spec, err := Infer(f, tc.band, DefaultParams())
			if err != nil {
				t.Fatalf("infer: %v", err)
			}
			if spec.PitchX != tc.pitch || spec.CellWidth != tc.size {
				t.Fatalf("expected pitch %d / width %d, got %d / %d", tc.pitch, tc.size, spec.PitchX, spec.CellWidth)
			}
			if spec.Columns != tc.columns || spec.Rows != tc.nrows || spec.StartX != tc.x0 {
				t.Fatalf("unexpected layout %+v", spec)
			}
			if spec.Confidence < 0.99 {
				t.Fatalf("expected full confidence, got %.2f", spec.Confidence)
			}
		})
	}
}

func TestInfer_BorderPairsOffLatticeIsNoGrid(t *testing.T) {
	f := pixelstest.Frame(1920, 1080, pixelstest.Background)
	sample := pixelstest.Sample(64, pixelstest.VerticalStripes(pixelstest.Red, pixelstest.White, 16))
	// left edges 101 and 72 px apart share no 1x-4x pitch of at least the
	// icon width
	for _, x := range []int{700, 801, 873} {
		pixelstest.DrawIcon(f, image.Rect(x, 960, x+64, 1024), sample, pixelstest.RareBorder, 3)
	}
	if _, err := Infer(f, region.Band{Top: 930, Bottom: 1060}, DefaultParams()); !errors.Is(err, ErrNoGrid) {
		t.Fatalf("expected ErrNoGrid, got %v", err)
	}
}

func TestInfer_SingleIconIsNoGrid(t *testing.T) {
	f := synthBar(1920, 1080, 700, 960, 64, 72, 3, 1, nil)
	if _, err := Infer(f, region.Band{Top: 930, Bottom: 1060}, DefaultParams()); !errors.Is(err, ErrNoGrid) {
		t.Fatalf("expected ErrNoGrid, got %v", err)
	}
}

func TestResolve_FallsBackToStatic(t *testing.T) {
	f := pixelstest.Frame(1920, 1080, pixelstest.Background)
	spec, inferred := Resolve(f, region.Band{Top: 950, Bottom: 1080}, DefaultParams())
	if inferred {
		t.Fatalf("expected static fallback")
	}
	if !spec.Static || spec.Confidence != 0 || !spec.Valid() {
		t.Fatalf("unexpected fallback spec %+v", spec)
	}
}

func TestInfer_TwoRows(t *testing.T) {
	f := synthBar(1920, 1080, 700, 900, 64, 72, 3, 4, nil)
	sample := pixelstest.Sample(64, pixelstest.HorizontalStripes(pixelstest.Cyan, pixelstest.Black, 16))
	for _, r := range pixelstest.Row(700, 972, 64, 72, 4) {
		pixelstest.DrawIcon(f, r, sample, pixelstest.EpicBorder, 3)
	}
	spec, err := Infer(f, region.Band{Top: 890, Bottom: 1046}, DefaultParams())
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if spec.Rows != 2 || spec.StartY != 900 || spec.Columns != 4 {
		t.Fatalf("unexpected layout %+v", spec)
	}
	if got := len(spec.Cells(f.Bounds())); got != 8 {
		t.Fatalf("expected 8 cells, got %d", got)
	}
}

func TestStatic_ScalesWithHeight(t *testing.T) {
	s1080 := Static(1920, 1080, 1)
	s720 := Static(1280, 720, 1)
	if s1080.CellWidth != 64 || s720.CellWidth != 44 {
		t.Fatalf("unexpected icon sizes %d / %d", s1080.CellWidth, s720.CellWidth)
	}
	s1440 := Static(2560, 1440, 1)
	if s1440.CellWidth != 85 {
		t.Fatalf("expected 1440p icon 85, got %d", s1440.CellWidth)
	}
	if s1080.StartY+s1080.CellHeight+40 != 1080 {
		t.Fatalf("static row must sit above the bottom margin: %+v", s1080)
	}
}

func TestCells_ClipsToBounds(t *testing.T) {
	spec := Spec{StartX: 90, StartY: 0, CellWidth: 20, CellHeight: 20, PitchX: 24, PitchY: 24, Columns: 3, Rows: 1}
	cells := spec.Cells(image.Rect(0, 0, 120, 40))
	if len(cells) != 1 {
		t.Fatalf("expected only the first cell to survive clipping, got %d", len(cells))
	}
}

func TestIsEmpty_UniformAndCheckerboard(t *testing.T) {
	p := DefaultFilterParams()
	uniform := pixelstest.Frame(48, 48, pixelstest.RGB{R: 90, G: 110, B: 130})
	if !IsEmpty(uniform, uniform.Bounds(), p) {
		t.Fatalf("uniform cell must be empty")
	}
	checker := pixelstest.Sample(48, pixelstest.Checkerboard(pixelstest.Black, pixelstest.White, 4))
	if IsEmpty(checker, checker.Bounds(), p) {
		t.Fatalf("checkerboard cell must not be empty")
	}
}

func TestIsEmpty_DarkAndFlatSaturated(t *testing.T) {
	p := DefaultFilterParams()
	dark := pixelstest.Sample(48, pixelstest.Checkerboard(pixelstest.RGB{R: 5, G: 5, B: 5}, pixelstest.RGB{R: 40, G: 40, B: 40}, 4))
	if !IsEmpty(dark, dark.Bounds(), p) {
		t.Fatalf("dark cell must be empty")
	}
	// saturated sky-like gradient with little texture
	sky := pixels.New(48, 48)
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			v := uint8(150 + (x+y)/6)
			sky.Set(x, y, 20, 60, v+40, 255)
		}
	}
	if !IsEmpty(sky, sky.Bounds(), p) {
		t.Fatalf("flat saturated cell must be empty")
	}
}
