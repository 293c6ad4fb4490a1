package service

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archivebase/scanrepo/pkg/config"
)

type stubSettings struct {
	values  map[string]string
	version int64
}

func (s *stubSettings) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *stubSettings) Version() int64 {
	return s.version
}

func writeOverlayImage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "overlay.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestWatermarkProviderDisabledByDefault(t *testing.T) {
	provider := NewWatermarkProvider(&stubSettings{}, config.WatermarkConfig{}, nil)
	require.Nil(t, provider.Current())
}

func TestWatermarkProviderFollowsSettings(t *testing.T) {
	path := writeOverlayImage(t)
	settings := &stubSettings{values: map[string]string{}, version: 1}
	provider := NewWatermarkProvider(settings, config.WatermarkConfig{}, nil)

	require.Nil(t, provider.Current())

	settings.values[SettingWatermarkEnabled] = "true"
	settings.values[SettingWatermarkImage] = path
	settings.version = 2
	require.NotNil(t, provider.Current())

	settings.values[SettingWatermarkEnabled] = "false"
	settings.version = 3
	require.Nil(t, provider.Current())
}

func TestWatermarkProviderCachesUntilVersionMoves(t *testing.T) {
	path := writeOverlayImage(t)
	settings := &stubSettings{
		values: map[string]string{
			SettingWatermarkEnabled: "true",
			SettingWatermarkImage:   path,
		},
		version: 1,
	}
	provider := NewWatermarkProvider(settings, config.WatermarkConfig{}, nil)

	first := provider.Current()
	require.NotNil(t, first)

	// Same version keeps serving the cached overlay even though the
	// file is gone.
	require.NoError(t, os.Remove(path))
	require.Same(t, first, provider.Current())

	// A bumped version triggers a reload; on failure the previous
	// watermark stays in effect.
	settings.version = 2
	require.Same(t, first, provider.Current())
}

func TestWatermarkProviderFallsBackToConfig(t *testing.T) {
	path := writeOverlayImage(t)
	provider := NewWatermarkProvider(&stubSettings{version: 1}, config.WatermarkConfig{
		Enabled:   true,
		ImagePath: path,
		Opacity:   0.5,
		MinWidth:  100,
	}, nil)
	require.NotNil(t, provider.Current())
}
