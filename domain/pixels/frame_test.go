package pixels

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func TestFrame_AtOutOfRangeIsZero(t *testing.T) {
	f := New(4, 4)
	f.Set(1, 1, 10, 20, 30, 255)
	if r, g, b, a := f.At(1, 1); r != 10 || g != 20 || b != 30 || a != 255 {
		t.Fatalf("unexpected pixel %d,%d,%d,%d", r, g, b, a)
	}
	if r, g, b, a := f.At(-1, 2); r|g|b|a != 0 {
		t.Fatalf("expected zero pixel out of range")
	}
	f.Set(9, 9, 1, 1, 1, 1) // ignored
	if _, _, _, a := f.At(3, 3); a != 0 {
		t.Fatalf("out-of-range write leaked")
	}
}

func TestFrame_CropClamps(t *testing.T) {
	f := New(10, 10)
	f.Fill(image.Rect(5, 5, 10, 10), 200, 0, 0)
	c := f.Crop(image.Rect(5, 5, 20, 20))
	if c.W != 5 || c.H != 5 {
		t.Fatalf("expected 5x5 crop, got %dx%d", c.W, c.H)
	}
	if r, _, _, _ := c.At(0, 0); r != 200 {
		t.Fatalf("crop lost pixel data")
	}
}

func TestMarginRect(t *testing.T) {
	r := MarginRect(image.Rect(0, 0, 64, 64), 0.125)
	if r != image.Rect(8, 8, 56, 56) {
		t.Fatalf("unexpected margin rect %v", r)
	}
}

func TestFrame_ResizeUniformStaysUniform(t *testing.T) {
	f := New(20, 20)
	f.Fill(f.Bounds(), 90, 120, 150)
	out := f.Resize(7, 7)
	for y := 0; y < 7; y++ {
		for x := 0; x < 7; x++ {
			r, g, b, _ := out.At(x, y)
			if r != 90 || g != 120 || b != 150 {
				t.Fatalf("pixel %d,%d = %d,%d,%d", x, y, r, g, b)
			}
		}
	}
}

func TestRGBToHSL(t *testing.T) {
	h, s, l := RGBToHSL(40, 120, 230)
	if math.Abs(h-214.7) > 0.5 || s < 0.75 || s > 0.82 || math.Abs(l-0.529) > 0.01 {
		t.Fatalf("unexpected hsl %.2f %.2f %.2f", h, s, l)
	}
	if _, s, _ := RGBToHSL(128, 128, 128); s != 0 {
		t.Fatalf("gray must have zero saturation")
	}
}

func TestDecode_PNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(2, 1, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	f, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.W != 3 || f.H != 2 {
		t.Fatalf("unexpected size %dx%d", f.W, f.H)
	}
	if r, _, _, a := f.At(2, 1); r != 255 || a != 255 {
		t.Fatalf("pixel not preserved")
	}
}

func TestDecode_Garbage(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Fatalf("expected error for garbage input")
	}
}

func TestStats_Uniform(t *testing.T) {
	f := New(8, 8)
	f.Fill(f.Bounds(), 100, 100, 100)
	mean, variance, sat := f.Stats(f.Bounds(), 1)
	if math.Abs(mean-100) > 1e-6 || variance > 1e-6 || sat != 0 {
		t.Fatalf("unexpected stats mean=%v var=%v sat=%v", mean, variance, sat)
	}
}

func TestPool_Reuse(t *testing.T) {
	f := New(16, 16)
	c := f.CropPooled(image.Rect(0, 0, 8, 8))
	if c.W != 8 || len(c.Pix) != 8*8*4 {
		t.Fatalf("unexpected pooled crop")
	}
	RecycleFrame(c)
	d := AcquireFrame(4, 4)
	if len(d.Pix) != 64 {
		t.Fatalf("expected resized pix slice, got %d", len(d.Pix))
	}
}
