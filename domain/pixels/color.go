package pixels

// RGBToHSL converts an RGB triple to hue in degrees [0,360), saturation and
// lightness in [0,1].
func RGBToHSL(r, g, b uint8) (h, s, l float64) {
	rf := float64(r) / 255
	gf := float64(g) / 255
	bf := float64(b) / 255
	maxC := max(rf, gf, bf)
	minC := min(rf, gf, bf)
	delta := maxC - minC
	l = (maxC + minC) / 2
	if delta == 0 {
		return 0, 0, l
	}
	if l < 0.5 {
		s = delta / (maxC + minC)
	} else {
		s = delta / (2 - maxC - minC)
	}
	switch maxC {
	case rf:
		h = (gf - bf) / delta
		if gf < bf {
			h += 6
		}
	case gf:
		h = (bf-rf)/delta + 2
	default:
		h = (rf-gf)/delta + 4
	}
	h *= 60
	if h >= 360 {
		h -= 360
	}
	return h, s, l
}

// Chroma returns max(r,g,b) - min(r,g,b).
func Chroma(r, g, b uint8) uint8 {
	return max(r, g, b) - min(r, g, b)
}
