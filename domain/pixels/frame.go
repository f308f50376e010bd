// Package pixels provides the fixed-layout RGBA pixel buffer shared by every
// pipeline stage, plus decoding, cropping, resampling and color helpers.
package pixels

import (
	"errors"
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// ErrEmptyFrame is returned when an operation needs a frame with pixels.
var ErrEmptyFrame = errors.New("empty frame")

// Frame is an interleaved RGBA buffer with stride W*4. Frames handed to the
// pipeline are treated as read-only.
type Frame struct {
	W, H int
	Pix  []byte
}

// New allocates a zeroed (transparent black) frame.
func New(w, h int) *Frame {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Frame{W: w, H: h, Pix: make([]byte, w*h*4)}
}

// FromImage copies img into a new Frame. *image.RGBA with a packed stride is
// copied directly; everything else goes through draw.Draw.
func FromImage(img image.Image) *Frame {
	if img == nil {
		return New(0, 0)
	}
	b := img.Bounds()
	f := New(b.Dx(), b.Dy())
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == b.Dx()*4 && rgba.Rect.Min == (image.Point{}) {
		copy(f.Pix, rgba.Pix)
		return f
	}
	draw.Draw(f.RGBA(), image.Rect(0, 0, f.W, f.H), img, b.Min, draw.Src)
	return f
}

// Empty reports whether the frame has no pixels.
func (f *Frame) Empty() bool { return f == nil || f.W <= 0 || f.H <= 0 }

// Bounds returns the frame rectangle anchored at the origin.
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.W, f.H) }

// In reports whether (x,y) lies inside the frame.
func (f *Frame) In(x, y int) bool { return x >= 0 && y >= 0 && x < f.W && y < f.H }

// At returns the pixel at (x,y). Out-of-range coordinates yield zeros.
func (f *Frame) At(x, y int) (r, g, b, a uint8) {
	if !f.In(x, y) {
		return 0, 0, 0, 0
	}
	i := (y*f.W + x) * 4
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3]
}

// Set writes the pixel at (x,y). Out-of-range writes are ignored.
func (f *Frame) Set(x, y int, r, g, b, a uint8) {
	if !f.In(x, y) {
		return
	}
	i := (y*f.W + x) * 4
	f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = r, g, b, a
}

// Fill paints rect (clipped to the frame) with an opaque color.
func (f *Frame) Fill(rect image.Rectangle, r, g, b uint8) {
	rect = rect.Intersect(f.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		i := (y*f.W + rect.Min.X) * 4
		for x := rect.Min.X; x < rect.Max.X; x++ {
			f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = r, g, b, 255
			i += 4
		}
	}
}

// RGBA wraps the frame's buffer as an *image.RGBA without copying.
func (f *Frame) RGBA() *image.RGBA {
	return &image.RGBA{Pix: f.Pix, Stride: f.W * 4, Rect: image.Rect(0, 0, f.W, f.H)}
}

// Crop copies rect (clipped to the frame) into a new frame.
func (f *Frame) Crop(rect image.Rectangle) *Frame {
	rect = rect.Intersect(f.Bounds())
	out := New(rect.Dx(), rect.Dy())
	f.cropInto(out, rect)
	return out
}

func (f *Frame) cropInto(out *Frame, rect image.Rectangle) {
	rowBytes := rect.Dx() * 4
	for y := 0; y < rect.Dy(); y++ {
		src := ((rect.Min.Y+y)*f.W + rect.Min.X) * 4
		copy(out.Pix[y*rowBytes:(y+1)*rowBytes], f.Pix[src:src+rowBytes])
	}
}

// CropMargin removes a fractional margin from every side and returns the
// inner region. frac is clamped to [0, 0.45].
func (f *Frame) CropMargin(frac float64) *Frame {
	return f.Crop(MarginRect(f.Bounds(), frac))
}

// MarginRect shrinks r by frac of its width/height on every side.
func MarginRect(r image.Rectangle, frac float64) image.Rectangle {
	if frac < 0 {
		frac = 0
	} else if frac > 0.45 {
		frac = 0.45
	}
	mx := int(math.Round(float64(r.Dx()) * frac))
	my := int(math.Round(float64(r.Dy()) * frac))
	return image.Rect(r.Min.X+mx, r.Min.Y+my, r.Max.X-mx, r.Max.Y-my)
}

// Resize resamples the frame to w x h with bilinear interpolation. A frame
// that already has the requested size is copied.
func (f *Frame) Resize(w, h int) *Frame {
	out := New(w, h)
	if f.Empty() || w <= 0 || h <= 0 {
		return out
	}
	if w == f.W && h == f.H {
		copy(out.Pix, f.Pix)
		return out
	}
	xdraw.BiLinear.Scale(out.RGBA(), out.Bounds(), f.RGBA(), f.Bounds(), xdraw.Src, nil)
	return out
}

// Luma returns the Rec. 601 luma of an RGB triple in [0,255].
func Luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// Gray returns the per-pixel luma of the frame in row-major order.
func (f *Frame) Gray() []float64 {
	out := make([]float64, f.W*f.H)
	for i := range out {
		p := i * 4
		out[i] = Luma(f.Pix[p], f.Pix[p+1], f.Pix[p+2])
	}
	return out
}

// Stats returns mean luma, luma variance and mean HSL saturation over the
// pixels of rect sampled every stride pixels along both axes.
func (f *Frame) Stats(rect image.Rectangle, stride int) (mean, variance, saturation float64) {
	if stride < 1 {
		stride = 1
	}
	rect = rect.Intersect(f.Bounds())
	var sum, sum2, sat float64
	n := 0
	for y := rect.Min.Y; y < rect.Max.Y; y += stride {
		for x := rect.Min.X; x < rect.Max.X; x += stride {
			i := (y*f.W + x) * 4
			r, g, b := f.Pix[i], f.Pix[i+1], f.Pix[i+2]
			l := Luma(r, g, b)
			sum += l
			sum2 += l * l
			_, s, _ := RGBToHSL(r, g, b)
			sat += s
			n++
		}
	}
	if n == 0 {
		return 0, 0, 0
	}
	fn := float64(n)
	mean = sum / fn
	variance = sum2/fn - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, variance, sat / fn
}
