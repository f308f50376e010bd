// Package capture grabs screen images for live detection.
package capture

import (
	"fmt"
	"image"

	"github.com/vova616/screenshot"

	"github.com/soocke/itemscan/domain/pixels"
)

// Grabber returns one screen image.
type Grabber func() (*image.RGBA, error)

// Screen grabs the whole primary screen.
func Screen() (*image.RGBA, error) { return screenshot.CaptureScreen() }

// Selection returns a Grabber limited to rect, or Screen when rect is empty.
func Selection(rect image.Rectangle) Grabber {
	if rect.Empty() {
		return Screen
	}
	return func() (*image.RGBA, error) { return screenshot.CaptureRect(rect) }
}

// Grab captures the primary screen as a Frame.
func Grab() (*pixels.Frame, error) { return grabWith(Screen) }

func grabWith(g Grabber) (*pixels.Frame, error) {
	img, err := g()
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}
	f := pixels.FromImage(img)
	if f.Empty() {
		return nil, pixels.ErrEmptyFrame
	}
	return f, nil
}
