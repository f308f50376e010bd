package library

import (
	"github.com/disintegration/imaging"

	"github.com/soocke/itemscan/domain/pixels"
	"github.com/soocke/itemscan/domain/similarity"
)

// FeatureOptions controls how a sample is reduced to comparable features.
// Cells and references must be prepared with the same options.
type FeatureOptions struct {
	WorkSize   int     // square working resolution
	Margin     float64 // fractional crop removing border and background
	Bins       int     // histogram levels per channel
	Preprocess bool    // contrast enhancement + per-channel min-max stretch
	Contrast   float64 // imaging.AdjustContrast percentage when Preprocess is set
}

// DefaultFeatureOptions returns the matcher's tuned working parameters.
func DefaultFeatureOptions() FeatureOptions {
	return FeatureOptions{WorkSize: 32, Margin: 0.12, Bins: 8, Contrast: 20}
}

// Features are the precomputed inputs of every similarity metric.
type Features struct {
	Sample *pixels.Frame
	Gray   []float64
	Edges  []float64
	Hist   []float64
}

// Extract crops, resamples and optionally enhances f, then computes luma,
// gradient magnitude and color histogram at the working size.
func Extract(f *pixels.Frame, o FeatureOptions) *Features {
	if o.WorkSize <= 0 {
		o.WorkSize = DefaultFeatureOptions().WorkSize
	}
	s := f.CropMargin(o.Margin).Resize(o.WorkSize, o.WorkSize)
	if o.Preprocess {
		if o.Contrast != 0 {
			s = pixels.FromImage(imaging.AdjustContrast(s.RGBA(), o.Contrast))
		}
		stretch(s)
	}
	gray := s.Gray()
	return &Features{
		Sample: s,
		Gray:   gray,
		Edges:  similarity.Sobel(gray, s.W, s.H),
		Hist:   similarity.Histogram(s, o.Bins),
	}
}

// stretch maps each color channel's [min,max] onto [0,255] in place.
func stretch(f *pixels.Frame) {
	if f.Empty() {
		return
	}
	lo := [3]uint8{255, 255, 255}
	var hi [3]uint8
	for i := 0; i < len(f.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := f.Pix[i+c]
			lo[c] = min(lo[c], v)
			hi[c] = max(hi[c], v)
		}
	}
	for c := 0; c < 3; c++ {
		span := int(hi[c]) - int(lo[c])
		if span <= 0 {
			continue
		}
		for i := c; i < len(f.Pix); i += 4 {
			f.Pix[i] = uint8((int(f.Pix[i]) - int(lo[c])) * 255 / span)
		}
	}
}
