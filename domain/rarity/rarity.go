// Package rarity classifies icon border colors into item rarity tiers.
package rarity

import (
	"strings"

	"github.com/soocke/itemscan/domain/pixels"
)

// Rarity enumerates the item tiers signalled by border color.
type Rarity int

const (
	Unknown Rarity = iota
	Common
	Uncommon
	Rare
	Epic
	Legendary
)

func (r Rarity) String() string {
	switch r {
	case Common:
		return "common"
	case Uncommon:
		return "uncommon"
	case Rare:
		return "rare"
	case Epic:
		return "epic"
	case Legendary:
		return "legendary"
	default:
		return "unknown"
	}
}

// Parse maps a catalog rarity name to a Rarity. Unrecognized names are Unknown.
func Parse(s string) Rarity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "common":
		return Common
	case "uncommon":
		return Uncommon
	case "rare":
		return Rare
	case "epic":
		return Epic
	case "legendary":
		return Legendary
	default:
		return Unknown
	}
}

// All lists the known tiers in ascending order.
func All() []Rarity { return []Rarity{Common, Uncommon, Rare, Epic, Legendary} }

// MarshalText encodes the tier by name.
func (r Rarity) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText decodes a tier name.
func (r *Rarity) UnmarshalText(b []byte) error {
	*r = Parse(string(b))
	return nil
}

// Band is one tier's color gate: a coarse RGB box followed by HSL ranges.
type Band struct {
	Rarity             Rarity
	RMin, RMax         uint8
	GMin, GMax         uint8
	BMin, BMax         uint8
	HueMin, HueMax     float64 // degrees
	SatMin, SatMax     float64
	LightMin, LightMax float64
}

var bands = []Band{
	{Rarity: Common, RMin: 120, RMax: 225, GMin: 120, GMax: 225, BMin: 120, BMax: 225,
		HueMin: 0, HueMax: 360, SatMin: 0, SatMax: 0.12, LightMin: 0.55, LightMax: 0.85},
	{Rarity: Uncommon, RMin: 0, RMax: 150, GMin: 110, GMax: 255, BMin: 0, BMax: 150,
		HueMin: 90, HueMax: 150, SatMin: 0.45, SatMax: 1, LightMin: 0.25, LightMax: 0.65},
	{Rarity: Rare, RMin: 0, RMax: 130, GMin: 60, GMax: 200, BMin: 140, BMax: 255,
		HueMin: 195, HueMax: 235, SatMin: 0.5, SatMax: 1, LightMin: 0.3, LightMax: 0.7},
	{Rarity: Epic, RMin: 100, RMax: 230, GMin: 0, GMax: 120, BMin: 140, BMax: 255,
		HueMin: 265, HueMax: 310, SatMin: 0.4, SatMax: 1, LightMin: 0.3, LightMax: 0.7},
	{Rarity: Legendary, RMin: 190, RMax: 255, GMin: 100, GMax: 220, BMin: 0, BMax: 110,
		HueMin: 25, HueMax: 50, SatMin: 0.6, SatMax: 1, LightMin: 0.4, LightMax: 0.7},
}

// Bands returns a copy of the built-in band table.
func Bands() []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	return out
}

func (b Band) inBox(r, g, bl uint8) bool {
	return r >= b.RMin && r <= b.RMax && g >= b.GMin && g <= b.GMax && bl >= b.BMin && bl <= b.BMax
}

// Match reports whether the RGB triple falls inside the band.
func (b Band) Match(r, g, bl uint8) bool {
	if !b.inBox(r, g, bl) {
		return false
	}
	h, s, l := pixels.RGBToHSL(r, g, bl)
	return h >= b.HueMin && h <= b.HueMax && s >= b.SatMin && s <= b.SatMax && l >= b.LightMin && l <= b.LightMax
}

// MatchPixel returns the first band matching the RGB triple.
func MatchPixel(r, g, b uint8) (Rarity, bool) {
	for i := range bands {
		if bands[i].Match(r, g, b) {
			return bands[i].Rarity, true
		}
	}
	return Unknown, false
}

// IsBorder reports whether the pixel matches any rarity band.
func IsBorder(r, g, b uint8) bool {
	_, ok := MatchPixel(r, g, b)
	return ok
}
