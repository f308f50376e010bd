package match

import (
	"image"
	"math"

	"github.com/soocke/itemscan/domain/library"
	"github.com/soocke/itemscan/domain/pixels"
	"github.com/soocke/itemscan/domain/similarity"
)

// aligned re-registers the cell against one reference. The cell is resampled
// so its margin crop lands at the working size, then the reference luma is
// slid over a window RefineShift pixels larger on every side and the best
// aligned crop becomes the cell's features.
func (m *Matcher) aligned(cell *pixels.Frame, ref *library.Features, fo library.FeatureOptions) *library.Features {
	shift := m.opts.RefineShift
	inner := pixels.MarginRect(cell.Bounds(), fo.Margin)
	if shift <= 0 || inner.Empty() {
		return library.Extract(cell, fo)
	}
	size := fo.WorkSize
	sx := float64(size) / float64(inner.Dx())
	sy := float64(size) / float64(inner.Dy())
	full := cell.Resize(int(math.Round(float64(cell.W)*sx)), int(math.Round(float64(cell.H)*sy)))
	ox := int(math.Round(float64(inner.Min.X) * sx))
	oy := int(math.Round(float64(inner.Min.Y) * sy))

	window := image.Rect(ox-shift, oy-shift, ox+size+shift, oy+size+shift).Intersect(full.Bounds())
	if window.Dx() < size || window.Dy() < size {
		return library.Extract(cell, fo)
	}
	search := full.Crop(window)
	res := similarity.SlideNCC(
		similarity.NewIntegral(search.Gray(), search.W, search.H),
		similarity.NewTemplate(ref.Gray, size, size),
		similarity.SlideOptions{Stride: 1},
	)
	if res.Score <= -1 {
		return library.Extract(cell, fo)
	}
	crop := search.Crop(image.Rect(res.X, res.Y, res.X+size, res.Y+size))
	fo.Margin = 0
	return library.Extract(crop, fo)
}
