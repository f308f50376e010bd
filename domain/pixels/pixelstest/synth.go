// Package pixelstest builds synthetic screenshots and icons for tests.
package pixelstest

import (
	"image"

	"github.com/soocke/itemscan/domain/pixels"
)

// RGB is an opaque color.
type RGB struct{ R, G, B uint8 }

// Palette used by synthetic frames. Content colors never match a rarity band.
var (
	Background = RGB{20, 22, 28}
	Red        = RGB{220, 40, 40}
	White      = RGB{255, 255, 255}
	Black      = RGB{0, 0, 0}
	Cyan       = RGB{0, 200, 200}
	Magenta    = RGB{230, 40, 140}

	CommonBorder    = RGB{180, 180, 180}
	UncommonBorder  = RGB{60, 190, 70}
	RareBorder      = RGB{40, 120, 230}
	EpicBorder      = RGB{160, 60, 220}
	LegendaryBorder = RGB{240, 170, 30}
)

// Frame returns a w x h frame filled with c.
func Frame(w, h int, c RGB) *pixels.Frame {
	f := pixels.New(w, h)
	f.Fill(f.Bounds(), c.R, c.G, c.B)
	return f
}

// Pattern paints a size x size icon sample.
type Pattern func(x, y int) RGB

// VerticalStripes alternates a and b every period/2 columns.
func VerticalStripes(a, b RGB, period int) Pattern {
	return func(x, _ int) RGB {
		if (x/(period/2))%2 == 0 {
			return a
		}
		return b
	}
}

// HorizontalStripes alternates a and b every period/2 rows.
func HorizontalStripes(a, b RGB, period int) Pattern {
	return func(_, y int) RGB {
		if (y/(period/2))%2 == 0 {
			return a
		}
		return b
	}
}

// Checkerboard alternates a and b in cell x cell squares.
func Checkerboard(a, b RGB, cell int) Pattern {
	return func(x, y int) RGB {
		if (x/cell+y/cell)%2 == 0 {
			return a
		}
		return b
	}
}

// Rings paints concentric square rings of width w around the center.
func Rings(a, b RGB, size, w int) Pattern {
	return func(x, y int) RGB {
		d := min(x, y, size-1-x, size-1-y)
		if (d/w)%2 == 0 {
			return a
		}
		return b
	}
}

// Sample renders a size x size reference sample from a pattern.
func Sample(size int, p Pattern) *pixels.Frame {
	f := pixels.New(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := p(x, y)
			f.Set(x, y, c.R, c.G, c.B, 255)
		}
	}
	return f
}

// DrawIcon scales sample into rect on f and draws a border of the given
// thickness and color over its outer ring.
func DrawIcon(f *pixels.Frame, rect image.Rectangle, sample *pixels.Frame, border RGB, thickness int) {
	scaled := sample.Resize(rect.Dx(), rect.Dy())
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			r, g, b, _ := scaled.At(x, y)
			f.Set(rect.Min.X+x, rect.Min.Y+y, r, g, b, 255)
		}
	}
	DrawBorder(f, rect, border, thickness)
}

// DrawBorder paints only the outer ring of rect.
func DrawBorder(f *pixels.Frame, rect image.Rectangle, c RGB, thickness int) {
	t := thickness
	f.Fill(image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+t), c.R, c.G, c.B)
	f.Fill(image.Rect(rect.Min.X, rect.Max.Y-t, rect.Max.X, rect.Max.Y), c.R, c.G, c.B)
	f.Fill(image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+t, rect.Max.Y), c.R, c.G, c.B)
	f.Fill(image.Rect(rect.Max.X-t, rect.Min.Y, rect.Max.X, rect.Max.Y), c.R, c.G, c.B)
}

// Row returns n rectangles of size s starting at (x0,y0) with the given pitch.
func Row(x0, y0, s, pitch, n int) []image.Rectangle {
	out := make([]image.Rectangle, n)
	for i := range out {
		x := x0 + i*pitch
		out[i] = image.Rect(x, y0, x+s, y0+s)
	}
	return out
}
