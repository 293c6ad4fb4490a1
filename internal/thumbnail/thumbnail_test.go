package thumbnail

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archivebase/scanrepo/pkg/storage"
)

func pngImage(t *testing.T, width, height int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestRenderHeightConstraint(t *testing.T) {
	data, err := Render(pngImage(t, 400, 200), storage.Size{Height: 100})
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 200, img.Bounds().Dx())
	require.Equal(t, 100, img.Bounds().Dy())
}

func TestRenderBoundingBox(t *testing.T) {
	data, err := Render(pngImage(t, 400, 200), storage.Size{Width: 100, Height: 100})
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 100, img.Bounds().Dx())
	require.Equal(t, 50, img.Bounds().Dy())
}

func TestRenderNeverUpscales(t *testing.T) {
	data, err := Render(pngImage(t, 40, 20), storage.Size{Height: 500})
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 40, img.Bounds().Dx())
	require.Equal(t, 20, img.Bounds().Dy())
}

func TestRenderRejectsGarbage(t *testing.T) {
	_, err := Render(bytes.NewReader([]byte("not an image")), storage.Size{Height: 10})
	require.Error(t, err)
}
