package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	originalsDir = "original_scans"
	cacheDir     = "cache"
	eadDir       = "ead"
)

// Bucket returns the directory bucket for a scan number. Scans are grouped
// per thousand so no single directory grows unbounded.
func Bucket(scanNumber int) string {
	low := (scanNumber / 1000) * 1000
	return fmt.Sprintf("%d-%d", low, low+1000)
}

// ScanStore persists original scan images, cached derivatives and uploaded
// EAD files on disk under a base directory.
//
// Layout:
//
//	original_scans/<bucket>/<scanNumber>/<imageID>
//	cache/<bucket>/<scanNumber>/<imageID>-<size>
//	ead/<eadID>.xml
type ScanStore struct {
	baseDir string
}

// NewScanStore ensures the base directory exists and returns a handle.
func NewScanStore(baseDir string) (*ScanStore, error) {
	if baseDir == "" {
		baseDir = "./files"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &ScanStore{baseDir: baseDir}, nil
}

// OriginalPath returns the absolute path of an original image.
func (s *ScanStore) OriginalPath(scanNumber, imageID int) string {
	return filepath.Join(s.baseDir, originalsDir, Bucket(scanNumber), fmt.Sprintf("%d", scanNumber), fmt.Sprintf("%d", imageID))
}

// DerivativePath returns the absolute path of a cached derivative.
func (s *ScanStore) DerivativePath(scanNumber, imageID int, size Size) string {
	name := fmt.Sprintf("%d-%s", imageID, size.String())
	return filepath.Join(s.baseDir, cacheDir, Bucket(scanNumber), fmt.Sprintf("%d", scanNumber), name)
}

// EADPath returns the absolute path of a stored EAD file.
func (s *ScanStore) EADPath(eadID string) string {
	return filepath.Join(s.baseDir, eadDir, eadID+".xml")
}

// SaveOriginal streams an uploaded image into place.
func (s *ScanStore) SaveOriginal(scanNumber, imageID int, r io.Reader) error {
	return writeStream(s.OriginalPath(scanNumber, imageID), r)
}

// OpenOriginal returns a read-only handle for an original image.
func (s *ScanStore) OpenOriginal(scanNumber, imageID int) (*os.File, error) {
	file, err := os.Open(s.OriginalPath(scanNumber, imageID))
	if err != nil {
		return nil, fmt.Errorf("open original image: %w", err)
	}
	return file, nil
}

// DeleteOriginal removes an original image and every derivative cut from it.
func (s *ScanStore) DeleteOriginal(scanNumber, imageID int) error {
	if err := os.Remove(s.OriginalPath(scanNumber, imageID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete original image: %w", err)
	}
	return s.PurgeDerivatives(scanNumber, imageID)
}

// SaveDerivative caches a rendered derivative.
func (s *ScanStore) SaveDerivative(scanNumber, imageID int, size Size, data []byte) error {
	path := s.DerivativePath(scanNumber, imageID, size)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare cache directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write derivative: %w", err)
	}
	return nil
}

// OpenDerivative returns a cached derivative if one exists.
func (s *ScanStore) OpenDerivative(scanNumber, imageID int, size Size) (*os.File, error) {
	file, err := os.Open(s.DerivativePath(scanNumber, imageID, size))
	if err != nil {
		return nil, fmt.Errorf("open derivative: %w", err)
	}
	return file, nil
}

// PurgeDerivatives removes every cached derivative of an image. Derivative
// filenames share the "<imageID>-" prefix, so a glob catches all sizes.
func (s *ScanStore) PurgeDerivatives(scanNumber, imageID int) error {
	pattern := filepath.Join(s.baseDir, cacheDir, Bucket(scanNumber), fmt.Sprintf("%d", scanNumber), fmt.Sprintf("%d-*", imageID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("glob derivatives: %w", err)
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("purge derivative: %w", err)
		}
	}
	return nil
}

// DeleteScan removes all files belonging to a scan number.
func (s *ScanStore) DeleteScan(scanNumber int) error {
	dirs := []string{
		filepath.Join(s.baseDir, originalsDir, Bucket(scanNumber), fmt.Sprintf("%d", scanNumber)),
		filepath.Join(s.baseDir, cacheDir, Bucket(scanNumber), fmt.Sprintf("%d", scanNumber)),
	}
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("delete scan files: %w", err)
		}
	}
	return nil
}

// SaveEAD stores the raw XML of an uploaded EAD file.
func (s *ScanStore) SaveEAD(eadID string, data []byte) error {
	path := s.EADPath(eadID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare ead directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write ead file: %w", err)
	}
	return nil
}

// OpenEAD returns a read-only handle for a stored EAD file.
func (s *ScanStore) OpenEAD(eadID string) (*os.File, error) {
	file, err := os.Open(s.EADPath(eadID))
	if err != nil {
		return nil, fmt.Errorf("open ead file: %w", err)
	}
	return file, nil
}

// ReadEAD loads the raw XML of a stored EAD file.
func (s *ScanStore) ReadEAD(eadID string) ([]byte, error) {
	data, err := os.ReadFile(s.EADPath(eadID))
	if err != nil {
		return nil, fmt.Errorf("read ead file: %w", err)
	}
	return data, nil
}

// DeleteEAD removes a stored EAD file if present.
func (s *ScanStore) DeleteEAD(eadID string) error {
	if err := os.Remove(s.EADPath(eadID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete ead file: %w", err)
	}
	return nil
}

func writeStream(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare storage directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create storage file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return fmt.Errorf("write storage file: %w", err)
	}
	return nil
}
