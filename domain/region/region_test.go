package region

import (
	"testing"

	"github.com/soocke/itemscan/domain/pixels"
	"github.com/soocke/itemscan/domain/pixels/pixelstest"
)

func TestLocate_UniformFrameFallsBack(t *testing.T) {
	f := pixelstest.Frame(1920, 1080, pixelstest.Background)
	b := Locate(f, DefaultParams())
	want := Fallback(f, DefaultParams())
	if b != want {
		t.Fatalf("expected fallback %+v, got %+v", want, b)
	}
	if b.Confidence != 0 || b.Bottom != 1080 || b.Top != 950 {
		t.Fatalf("unexpected fallback band %+v", b)
	}
}

func TestLocate_FindsIconRow(t *testing.T) {
	f := pixelstest.Frame(1920, 1080, pixelstest.Background)
	sample := pixelstest.Sample(64, pixelstest.VerticalStripes(pixelstest.Red, pixelstest.White, 16))
	for _, r := range pixelstest.Row(600, 760, 64, 72, 10) {
		pixelstest.DrawIcon(f, r, sample, pixelstest.RareBorder, 3)
	}
	b := Locate(f, DefaultParams())
	if b.Confidence <= 0 {
		t.Fatalf("expected a scored band, got fallback %+v", b)
	}
	if b.Top > 760 || b.Bottom < 824 {
		t.Fatalf("band %+v does not contain the icon row [760,824)", b)
	}
	if h := b.Height(); h < 64 || h > 216 {
		t.Fatalf("band height %d outside clamp", h)
	}
}

func TestLocate_EmptyFrame(t *testing.T) {
	if b := Locate(&pixels.Frame{}, DefaultParams()); b != (Band{}) {
		t.Fatalf("expected zero band, got %+v", b)
	}
}

func TestLocate_TinyFrameFallsBack(t *testing.T) {
	f := pixelstest.Frame(64, 40, pixelstest.White)
	b := Locate(f, DefaultParams())
	if b.Confidence != 0 || b.Bottom != 40 {
		t.Fatalf("expected fallback on a tiny frame, got %+v", b)
	}
}
