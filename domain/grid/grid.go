// Package grid infers the icon layout inside an item-bar band, provides the
// static resolution-scaled fallback layout and filters empty cells.
package grid

import (
	"errors"
	"image"
)

// ErrNoGrid signals that inference found too little evidence; callers fall
// back to Static.
var ErrNoGrid = errors.New("no grid")

// Spec is a derived icon layout. A Spec with Columns < 1 or CellWidth <= 0
// is treated as absent.
type Spec struct {
	StartX     int     `json:"startX"`
	StartY     int     `json:"startY"`
	CellWidth  int     `json:"cellWidth"`
	CellHeight int     `json:"cellHeight"`
	PitchX     int     `json:"pitchX"`
	PitchY     int     `json:"pitchY"`
	Columns    int     `json:"columns"`
	Rows       int     `json:"rows"`
	Border     int     `json:"border"`
	Confidence float64 `json:"confidence"`
	Static     bool    `json:"static"`
}

// Valid reports whether the layout describes at least one cell.
func (s Spec) Valid() bool { return s.Columns >= 1 && s.Rows >= 1 && s.CellWidth > 0 && s.CellHeight > 0 }

// Cell is one candidate icon slot.
type Cell struct {
	Row, Col int
	Rect     image.Rectangle
}

// Cells walks the layout row-major and returns every slot clipped to bounds.
// Slots that fall entirely outside bounds are skipped.
func (s Spec) Cells(bounds image.Rectangle) []Cell {
	if !s.Valid() {
		return nil
	}
	pitchX, pitchY := s.PitchX, s.PitchY
	if pitchX <= 0 {
		pitchX = s.CellWidth
	}
	if pitchY <= 0 {
		pitchY = s.CellHeight
	}
	out := make([]Cell, 0, s.Rows*s.Columns)
	for r := 0; r < s.Rows; r++ {
		for c := 0; c < s.Columns; c++ {
			x := s.StartX + c*pitchX
			y := s.StartY + r*pitchY
			rect := image.Rect(x, y, x+s.CellWidth, y+s.CellHeight).Intersect(bounds)
			if rect.Dx() < s.CellWidth/2 || rect.Dy() < s.CellHeight/2 {
				continue
			}
			out = append(out, Cell{Row: r, Col: c, Rect: rect})
		}
	}
	return out
}
