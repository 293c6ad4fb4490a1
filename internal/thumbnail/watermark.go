package thumbnail

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
)

// Watermark composites an overlay image onto rendered derivatives. A nil
// Watermark applies nothing.
type Watermark struct {
	overlay  image.Image
	opacity  float64
	minWidth int
}

// LoadWatermark reads the overlay image from disk. Opacity outside (0, 1]
// falls back to 0.4.
func LoadWatermark(path string, opacity float64, minWidth int) (*Watermark, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open watermark image: %w", err)
	}
	defer f.Close()

	overlay, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode watermark image: %w", err)
	}

	if opacity <= 0 || opacity > 1 {
		opacity = 0.4
	}
	return &Watermark{overlay: overlay, opacity: opacity, minWidth: minWidth}, nil
}

// Apply draws the overlay in the bottom-right corner. Derivatives narrower
// than the configured minimum, or smaller than the overlay itself, pass
// through untouched.
func (w *Watermark) Apply(src image.Image) image.Image {
	if w == nil {
		return src
	}
	bounds := src.Bounds()
	if bounds.Dx() < w.minWidth {
		return src
	}

	ob := w.overlay.Bounds()
	const margin = 8
	offset := image.Pt(bounds.Max.X-ob.Dx()-margin, bounds.Max.Y-ob.Dy()-margin)
	if offset.X < bounds.Min.X || offset.Y < bounds.Min.Y {
		return src
	}

	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	mask := image.NewUniform(color.Alpha{A: uint8(w.opacity * 255)})
	target := image.Rectangle{Min: offset, Max: offset.Add(ob.Size())}
	draw.DrawMask(dst, target, w.overlay, ob.Min, mask, image.Point{}, draw.Over)
	return dst
}
