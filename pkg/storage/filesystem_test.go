package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBucket(t *testing.T) {
	require.Equal(t, "0-1000", Bucket(0))
	require.Equal(t, "0-1000", Bucket(999))
	require.Equal(t, "1000-2000", Bucket(1000))
	require.Equal(t, "12000-13000", Bucket(12345))
}

func TestParseSize(t *testing.T) {
	size, err := ParseSize("200x100")
	require.NoError(t, err)
	require.Equal(t, Size{Width: 200, Height: 100}, size)
	require.Equal(t, "200x100", size.String())

	size, err = ParseSize("200x")
	require.NoError(t, err)
	require.Equal(t, Size{Width: 200}, size)
	require.Equal(t, "200x", size.String())

	size, err = ParseSize("x100")
	require.NoError(t, err)
	require.Equal(t, Size{Height: 100}, size)
	require.Equal(t, "x100", size.String())

	// A bare integer constrains the height.
	size, err = ParseSize("250")
	require.NoError(t, err)
	require.Equal(t, Size{Height: 250}, size)

	_, err = ParseSize("")
	require.Error(t, err)
	_, err = ParseSize("x")
	require.Error(t, err)
	_, err = ParseSize("axb")
	require.Error(t, err)
}

func TestScanStorePaths(t *testing.T) {
	store, err := NewScanStore(t.TempDir())
	require.NoError(t, err)

	orig := store.OriginalPath(1234, 7)
	require.Equal(t, filepath.Join("original_scans", "1000-2000", "1234", "7"), trimBase(t, store, orig))

	deriv := store.DerivativePath(1234, 7, Size{Height: 250})
	require.Equal(t, filepath.Join("cache", "1000-2000", "1234", "7-x250"), trimBase(t, store, deriv))

	require.Equal(t, filepath.Join("ead", "NL-HaNA_1.04.02.xml"), trimBase(t, store, store.EADPath("NL-HaNA_1.04.02")))
}

func trimBase(t *testing.T, store *ScanStore, path string) string {
	t.Helper()
	rel, err := filepath.Rel(store.baseDir, path)
	require.NoError(t, err)
	return rel
}

func TestScanStoreOriginalLifecycle(t *testing.T) {
	store, err := NewScanStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SaveOriginal(42, 1, bytes.NewReader([]byte("image-bytes"))))
	file, err := store.OpenOriginal(42, 1)
	require.NoError(t, err)
	file.Close() //nolint:errcheck

	require.NoError(t, store.SaveDerivative(42, 1, Size{Height: 100}, []byte("small")))
	require.NoError(t, store.SaveDerivative(42, 1, Size{Width: 50, Height: 50}, []byte("tiny")))

	// Deleting the original sweeps every cached derivative with it.
	require.NoError(t, store.DeleteOriginal(42, 1))
	_, err = store.OpenOriginal(42, 1)
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = store.OpenDerivative(42, 1, Size{Height: 100})
	require.Error(t, err)
	_, err = store.OpenDerivative(42, 1, Size{Width: 50, Height: 50})
	require.Error(t, err)
}

func TestScanStoreDeleteScan(t *testing.T) {
	store, err := NewScanStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SaveOriginal(7, 1, bytes.NewReader([]byte("a"))))
	require.NoError(t, store.SaveOriginal(7, 2, bytes.NewReader([]byte("b"))))
	require.NoError(t, store.SaveDerivative(7, 1, Size{Height: 10}, []byte("c")))

	require.NoError(t, store.DeleteScan(7))
	_, err = store.OpenOriginal(7, 1)
	require.Error(t, err)
	_, err = store.OpenOriginal(7, 2)
	require.Error(t, err)
}

func TestScanStoreEAD(t *testing.T) {
	store, err := NewScanStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SaveEAD("test-ead", []byte("<ead/>")))
	data, err := store.ReadEAD("test-ead")
	require.NoError(t, err)
	require.Equal(t, "<ead/>", string(data))

	require.NoError(t, store.DeleteEAD("test-ead"))
	_, err = store.ReadEAD("test-ead")
	require.Error(t, err)
	// Deleting twice is fine.
	require.NoError(t, store.DeleteEAD("test-ead"))
}
