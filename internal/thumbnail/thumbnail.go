// Package thumbnail renders scaled derivatives of original scan images.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/archivebase/scanrepo/pkg/storage"
)

// MimeType of rendered derivatives.
const MimeType = "image/jpeg"

// Render decodes an original image and scales it to fit the requested
// size, preserving aspect ratio. Output is always JPEG.
func Render(original io.Reader, size storage.Size) ([]byte, error) {
	return RenderMarked(original, size, nil)
}

// RenderMarked renders like Render and composites the watermark onto the
// result when one is configured.
func RenderMarked(original io.Reader, size storage.Size, mark *Watermark) ([]byte, error) {
	src, _, err := image.Decode(original)
	if err != nil {
		return nil, fmt.Errorf("decode original image: %w", err)
	}

	bounds := src.Bounds()
	width, height := fit(bounds.Dx(), bounds.Dy(), size)
	scaled := mark.Apply(scale(src, width, height))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode derivative: %w", err)
	}
	return buf.Bytes(), nil
}

// fit computes target dimensions bounded by the size constraints. Images
// are never upscaled.
func fit(srcW, srcH int, size storage.Size) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return 1, 1
	}
	ratio := 1.0
	if size.Width > 0 && size.Width < srcW {
		ratio = float64(size.Width) / float64(srcW)
	}
	if size.Height > 0 && size.Height < srcH {
		r := float64(size.Height) / float64(srcH)
		if r < ratio {
			ratio = r
		}
	}
	width := int(float64(srcW)*ratio + 0.5)
	height := int(float64(srcH)*ratio + 0.5)
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}

// scale is a nearest-neighbour resampler.
func scale(src image.Image, width, height int) image.Image {
	bounds := src.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		srcY := bounds.Min.Y + y*bounds.Dy()/height
		for x := 0; x < width; x++ {
			srcX := bounds.Min.X + x*bounds.Dx()/width
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}
	return dst
}
