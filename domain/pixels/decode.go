package pixels

import (
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG screenshots
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/webp" // catalog icons ship as WebP
)

// Decode reads an image in any registered format into a Frame.
func Decode(r io.Reader) (*Frame, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	f := FromImage(img)
	if f.Empty() {
		return nil, ErrEmptyFrame
	}
	return f, nil
}

// DecodeFile opens and decodes the image at path.
func DecodeFile(path string) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
