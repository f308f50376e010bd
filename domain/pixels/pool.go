package pixels

import (
	"image"
	"sync"
)

// Cell crops are small but produced for every grid slot of every frame in a
// calibration sweep. The pool keeps their backing slices alive between
// frames. Frames from AcquireFrame must not be used after RecycleFrame.

var framePool sync.Pool // stores *Frame

// AcquireFrame returns a reusable frame sized w x h. Its contents are
// undefined until written.
func AcquireFrame(w, h int) *Frame {
	if w <= 0 || h <= 0 {
		return New(0, 0)
	}
	needed := w * h * 4
	var f *Frame
	if v := framePool.Get(); v != nil {
		f = v.(*Frame)
	}
	if f == nil || cap(f.Pix) < needed {
		return &Frame{W: w, H: h, Pix: make([]byte, needed)}
	}
	f.W, f.H = w, h
	f.Pix = f.Pix[:needed]
	return f
}

// CropPooled is Crop backed by a pooled buffer.
func (f *Frame) CropPooled(rect image.Rectangle) *Frame {
	rect = rect.Intersect(f.Bounds())
	out := AcquireFrame(rect.Dx(), rect.Dy())
	f.cropInto(out, rect)
	return out
}

// RecycleFrame returns the frame to the pool for potential reuse.
func RecycleFrame(f *Frame) {
	if f == nil || f.Pix == nil {
		return
	}
	framePool.Put(f)
}
