package library

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/soocke/itemscan/domain/pixels"
	"github.com/soocke/itemscan/domain/pixels/pixelstest"
	"github.com/soocke/itemscan/domain/rarity"
)

func writePNG(t *testing.T, path string, f *pixels.Frame) {
	t.Helper()
	fh, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer fh.Close()
	if err := png.Encode(fh, f.RGBA()); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestLoad_SkipsMissingAndUndecodable(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "img"), 0o755); err != nil {
		t.Fatal(err)
	}
	writePNG(t, filepath.Join(dir, "img", "wrench.png"),
		pixelstest.Sample(48, pixelstest.VerticalStripes(pixelstest.Red, pixelstest.White, 8)))
	writePNG(t, filepath.Join(dir, "img", "battery.png"),
		pixelstest.Sample(64, pixelstest.HorizontalStripes(pixelstest.Cyan, pixelstest.Black, 8)))
	if err := os.WriteFile(filepath.Join(dir, "img", "broken.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	catalog := `{
  "items": [
    {"id": "wrench", "name": "Wrench", "rarity": "rare", "image": "img/wrench.png"},
    {"id": "ghost", "name": "Ghost", "rarity": "epic", "image": "img/ghost.png"},
    {"id": "broken", "name": "Broken", "rarity": "rare", "image": "img/broken.png"}
  ],
  "tomes": [
    {"id": "battery", "name": "Battery", "rarity": "uncommon", "image": "img/battery.png"}
  ],
  "version": 3
}`
	path := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(path, []byte(catalog), 0o644); err != nil {
		t.Fatal(err)
	}

	lib, err := Load(path, Options{Workers: 2})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if lib.Len() != 2 || lib.Skipped() != 2 {
		t.Fatalf("expected 2 loaded / 2 skipped, got %d / %d", lib.Len(), lib.Skipped())
	}
	w, ok := lib.Get("wrench")
	if !ok {
		t.Fatalf("wrench missing")
	}
	if w.Sample.W != SampleSize || w.Sample.H != SampleSize {
		t.Fatalf("sample not normalized: %dx%d", w.Sample.W, w.Sample.H)
	}
	if w.Rarity != rarity.Rare || w.Name != "Wrench" {
		t.Fatalf("unexpected metadata %+v", w)
	}
	// sorted list keys: items before tomes
	if lib.Items()[0].ID != "wrench" || lib.Items()[1].ID != "battery" {
		t.Fatalf("unexpected order %s, %s", lib.Items()[0].ID, lib.Items()[1].ID)
	}
}

func TestLoad_MissingCatalogIsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json"), Options{}); err == nil {
		t.Fatalf("expected error for a missing catalog")
	}
}

func TestParseCatalog_TopLevelArray(t *testing.T) {
	entries, err := ParseCatalog([]byte(` [{"id":"a","image":"a.png","rarity":"legendary"}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entries) != 1 || entries[0].Rarity != rarity.Legendary {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func testLibrary() *Library {
	return New([]*Item{
		{ID: "wrench", Name: "Wrench", Rarity: rarity.Rare,
			Sample: pixelstest.Sample(64, pixelstest.VerticalStripes(pixelstest.Red, pixelstest.White, 16))},
		{ID: "battery", Name: "Battery", Rarity: rarity.Uncommon,
			Sample: pixelstest.Sample(32, pixelstest.HorizontalStripes(pixelstest.Cyan, pixelstest.Black, 8))},
		{ID: "wrench", Name: "Duplicate", Rarity: rarity.Epic,
			Sample: pixelstest.Sample(64, pixelstest.VerticalStripes(pixelstest.Red, pixelstest.White, 16))},
		{ID: "blank"},
	}, Options{CacheSize: 8})
}

func TestNew_IndexesAndCandidates(t *testing.T) {
	lib := testLibrary()
	if lib.Len() != 2 || lib.Skipped() != 2 {
		t.Fatalf("expected 2 items and 2 skipped, got %d / %d", lib.Len(), lib.Skipped())
	}
	if b, _ := lib.Get("battery"); b.Sample.W != SampleSize {
		t.Fatalf("battery sample not resampled")
	}
	if got := lib.Candidates(rarity.Rare); len(got) != 1 || got[0].ID != "wrench" {
		t.Fatalf("rare candidates = %v", got)
	}
	if got := lib.Candidates(rarity.Legendary); len(got) != 2 {
		t.Fatalf("empty subset must widen to all, got %d", len(got))
	}
	if got := lib.Candidates(rarity.Unknown); len(got) != 2 {
		t.Fatalf("unknown rarity must widen to all, got %d", len(got))
	}
}

func TestPrepared_CachesAndResets(t *testing.T) {
	lib := testLibrary()
	w, _ := lib.Get("wrench")
	opts := DefaultFeatureOptions()
	a := lib.Prepared(w, opts)
	b := lib.Prepared(w, opts)
	if a != b {
		t.Fatalf("expected cached features to be reused")
	}
	opts.Bins = 4
	if c := lib.Prepared(w, opts); c == a || len(c.Hist) != 64 {
		t.Fatalf("different options must produce different features")
	}
	if lib.CacheLen() != 2 {
		t.Fatalf("expected 2 cached entries, got %d", lib.CacheLen())
	}
	lib.ResetCache()
	if lib.CacheLen() != 0 {
		t.Fatalf("reset left %d entries", lib.CacheLen())
	}
}

func TestExtract_ShapesAndStretch(t *testing.T) {
	src := pixelstest.Sample(64, pixelstest.Checkerboard(pixelstest.RGB{R: 100, G: 100, B: 100}, pixelstest.RGB{R: 150, G: 150, B: 150}, 8))
	o := DefaultFeatureOptions()
	f := Extract(src, o)
	if f.Sample.W != o.WorkSize || len(f.Gray) != o.WorkSize*o.WorkSize || len(f.Edges) != len(f.Gray) {
		t.Fatalf("unexpected feature shapes")
	}
	if len(f.Hist) != o.Bins*o.Bins*o.Bins {
		t.Fatalf("unexpected histogram size %d", len(f.Hist))
	}
	o.Preprocess = true
	o.Contrast = 0
	p := Extract(src, o)
	var lo, hi uint8 = 255, 0
	for i := 0; i < len(p.Sample.Pix); i += 4 {
		lo = min(lo, p.Sample.Pix[i])
		hi = max(hi, p.Sample.Pix[i])
	}
	if lo != 0 || hi != 255 {
		t.Fatalf("stretch should span [0,255], got [%d,%d]", lo, hi)
	}
}
