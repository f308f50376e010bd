package grid

import "math"

// Page is a set of empirically tuned layout constants for one UI scale.
type Page struct {
	Height       int // reference frame height the constants were measured at
	IconSize     int
	Spacing      int
	Border       int
	BottomMargin int
	Columns      int
}

// The two historically supported layouts.
var (
	Page720  = Page{Height: 720, IconSize: 44, Spacing: 6, Border: 2, BottomMargin: 26, Columns: 10}
	Page1080 = Page{Height: 1080, IconSize: 64, Spacing: 8, Border: 3, BottomMargin: 40, Columns: 10}
)

// PageFor picks the page whose reference height is closest to h.
func PageFor(h int) Page {
	if math.Abs(float64(h-Page720.Height)) < math.Abs(float64(h-Page1080.Height)) {
		return Page720
	}
	return Page1080
}

// Static derives a layout from frame dimensions only. The row stack sits
// above the bottom margin and the columns are centered horizontally. It is
// marked Static with zero confidence.
func Static(w, h, rows int) Spec {
	if rows < 1 {
		rows = 1
	}
	p := PageFor(h)
	scale := float64(h) / float64(p.Height)
	icon := max(1, int(math.Round(float64(p.IconSize)*scale)))
	spacing := int(math.Round(float64(p.Spacing) * scale))
	margin := int(math.Round(float64(p.BottomMargin) * scale))
	pitch := icon + spacing
	cols := p.Columns
	if span := cols*pitch - spacing; span > w {
		cols = max(1, (w+spacing)/pitch)
	}
	startX := (w - (cols*pitch - spacing)) / 2
	startY := h - margin - (rows*pitch - spacing)
	if startY < 0 {
		startY = 0
	}
	return Spec{
		StartX:     startX,
		StartY:     startY,
		CellWidth:  icon,
		CellHeight: icon,
		PitchX:     pitch,
		PitchY:     pitch,
		Columns:    cols,
		Rows:       rows,
		Border:     max(1, int(math.Round(float64(p.Border)*scale))),
		Confidence: 0,
		Static:     true,
	}
}
