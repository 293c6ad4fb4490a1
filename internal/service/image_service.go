package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/archivebase/scanrepo/internal/models"
	"github.com/archivebase/scanrepo/internal/repository"
	"github.com/archivebase/scanrepo/internal/thumbnail"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
	"github.com/archivebase/scanrepo/pkg/storage"
)

type scanGetter interface {
	Get(ctx context.Context, number int) (*models.Scan, error)
}

// watermarkSource yields the watermark to composite onto derivatives.
// Implementations may return nil to render unmarked.
type watermarkSource interface {
	Current() *thumbnail.Watermark
}

// ImageService manages the image files attached to scans. Every scan keeps
// at least one image and exactly one of them is the default; derivatives
// are rendered lazily and cached on disk next to the originals.
type ImageService struct {
	db         *sqlx.DB
	images     *repository.ScanImageRepository
	scans      scanGetter
	store      *storage.ScanStore
	watermarks watermarkSource
	aggregates archiveFileRefresher
	logs       auditLogger
	logger     *zap.Logger
}

// NewImageService constructs the service. watermarks may be nil.
func NewImageService(db *sqlx.DB, images *repository.ScanImageRepository, scans scanGetter, store *storage.ScanStore, watermarks watermarkSource, aggregates archiveFileRefresher, logs auditLogger, logger *zap.Logger) *ImageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageService{
		db:         db,
		images:     images,
		scans:      scans,
		store:      store,
		watermarks: watermarks,
		aggregates: aggregates,
		logs:       logs,
		logger:     logger,
	}
}

// Add stores a new image for a scan. The first image of a scan becomes its
// default.
func (s *ImageService) Add(ctx context.Context, user string, scanNumber int, filename, mimeType string, r io.Reader, sizeBytes int64) (*models.ScanImage, error) {
	scan, err := s.scans.Get(ctx, scanNumber)
	if err != nil {
		return nil, err
	}
	if filename == "" {
		return nil, appErrors.NewValidation([]string{"filename is required"})
	}

	count, err := s.images.CountByScan(ctx, s.db, scanNumber)
	if err != nil {
		return nil, err
	}

	image := &models.ScanImage{
		ScanNumber: scanNumber,
		Filename:   filename,
		MimeType:   mimeType,
		SizeBytes:  sizeBytes,
		IsDefault:  count == 0,
	}
	if err := s.images.Create(ctx, s.db, image); err != nil {
		return nil, err
	}
	if err := s.store.SaveOriginal(scanNumber, image.ID, r); err != nil {
		if dbErr := s.images.Delete(ctx, s.db, scanNumber, image.ID); dbErr != nil {
			s.logger.Error("failed to roll back image row after storage failure",
				zap.Int("scan", scanNumber), zap.Int("image", image.ID), zap.Error(dbErr))
		}
		return nil, fmt.Errorf("store image: %w", err)
	}

	s.refresh(ctx, scan)
	s.logs.Record(ctx, user, imageLogObjects(scan, image.ID, models.LogMessageCreate))
	return image, nil
}

// List returns a scan's images, default first.
func (s *ImageService) List(ctx context.Context, scanNumber int) ([]models.ScanImage, error) {
	if _, err := s.scans.Get(ctx, scanNumber); err != nil {
		return nil, err
	}
	return s.images.ListByScan(ctx, s.db, scanNumber)
}

// Open returns the original file of one image together with its record.
func (s *ImageService) Open(ctx context.Context, scanNumber, imageID int) (*os.File, *models.ScanImage, error) {
	image, err := s.getImage(ctx, scanNumber, imageID)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.store.OpenOriginal(scanNumber, imageID)
	if err != nil {
		return nil, nil, fmt.Errorf("open original: %w", err)
	}
	return f, image, nil
}

// OpenDefault returns the default image file of a scan.
func (s *ImageService) OpenDefault(ctx context.Context, scanNumber int) (*os.File, *models.ScanImage, error) {
	image, err := s.images.GetDefault(ctx, scanNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("scan %d has no images", scanNumber))
	}
	if err != nil {
		return nil, nil, err
	}
	f, err := s.store.OpenOriginal(scanNumber, image.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("open original: %w", err)
	}
	return f, image, nil
}

// Derivative returns a scaled rendition of an image, rendering and caching
// it on first request. The raw size accepts "WxH", "Wx", "xH" or a bare
// height in pixels.
func (s *ImageService) Derivative(ctx context.Context, scanNumber, imageID int, rawSize string) ([]byte, string, error) {
	size, err := storage.ParseSize(rawSize)
	if err != nil {
		return nil, "", appErrors.NewValidation([]string{err.Error()})
	}
	if _, err := s.getImage(ctx, scanNumber, imageID); err != nil {
		return nil, "", err
	}

	if f, err := s.store.OpenDerivative(scanNumber, imageID, size); err == nil {
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "", fmt.Errorf("read cached derivative: %w", err)
		}
		return data, thumbnail.MimeType, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("open cached derivative: %w", err)
	}

	original, err := s.store.OpenOriginal(scanNumber, imageID)
	if err != nil {
		return nil, "", fmt.Errorf("open original: %w", err)
	}
	defer original.Close()

	var mark *thumbnail.Watermark
	if s.watermarks != nil {
		mark = s.watermarks.Current()
	}
	data, err := thumbnail.RenderMarked(original, size, mark)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "cannot render derivative")
	}
	if err := s.store.SaveDerivative(scanNumber, imageID, size, data); err != nil {
		s.logger.Warn("failed to cache derivative",
			zap.Int("scan", scanNumber), zap.Int("image", imageID), zap.Error(err))
	}
	return data, thumbnail.MimeType, nil
}

// SetDefault marks one image as the scan's default.
func (s *ImageService) SetDefault(ctx context.Context, user string, scanNumber, imageID int) error {
	scan, err := s.scans.Get(ctx, scanNumber)
	if err != nil {
		return err
	}
	if err := s.setDefault(ctx, scanNumber, imageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("image %d not found", imageID))
		}
		return err
	}
	s.refresh(ctx, scan)
	s.logs.Record(ctx, user, imageLogObjects(scan, imageID, models.LogMessageUpdate))
	return nil
}

// setDefault moves the default flag in one transaction. Clearing the old
// default and setting the new one must be atomic, otherwise a bad image id
// leaves the scan without any default.
func (s *ImageService) setDefault(ctx context.Context, scanNumber, imageID int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set default image: %w", err)
	}
	if err := s.images.SetDefault(ctx, tx, scanNumber, imageID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set default image: %w", err)
	}
	return nil
}

// Delete removes one image. The last image of a scan cannot be removed;
// delete the scan instead. When the default image goes, the oldest
// remaining one takes over.
func (s *ImageService) Delete(ctx context.Context, user string, scanNumber, imageID int) error {
	scan, err := s.scans.Get(ctx, scanNumber)
	if err != nil {
		return err
	}
	image, err := s.getImage(ctx, scanNumber, imageID)
	if err != nil {
		return err
	}

	count, err := s.images.CountByScan(ctx, s.db, scanNumber)
	if err != nil {
		return err
	}
	if count <= 1 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("image %d is the last image of scan %d", imageID, scanNumber))
	}

	if err := s.images.Delete(ctx, s.db, scanNumber, imageID); err != nil {
		return err
	}
	if err := s.store.DeleteOriginal(scanNumber, imageID); err != nil {
		s.logger.Warn("failed to delete image files",
			zap.Int("scan", scanNumber), zap.Int("image", imageID), zap.Error(err))
	}

	if image.IsDefault {
		remaining, err := s.images.ListByScan(ctx, s.db, scanNumber)
		if err != nil {
			return err
		}
		if len(remaining) > 0 {
			if err := s.setDefault(ctx, scanNumber, remaining[0].ID); err != nil {
				return err
			}
		}
	}

	s.refresh(ctx, scan)
	s.logs.Record(ctx, user, imageLogObjects(scan, imageID, models.LogMessageDelete))
	return nil
}

func (s *ImageService) getImage(ctx context.Context, scanNumber, imageID int) (*models.ScanImage, error) {
	image, err := s.images.GetByID(ctx, scanNumber, imageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound,
			fmt.Sprintf("image %d of scan %d not found", imageID, scanNumber))
	}
	return image, err
}

func (s *ImageService) refresh(ctx context.Context, scan *models.Scan) {
	if err := s.aggregates.ScansChanged(ctx, scan.GroupKey()); err != nil {
		s.logger.Warn("archive file refresh failed",
			zap.String("archivefile_id", scan.ArchiveFileID()), zap.Error(err))
	}
}

func imageLogObjects(scan *models.Scan, imageID int, message string) []models.LogObject {
	return []models.LogObject{
		{ObjectType: "scanimage", ObjectID: fmt.Sprintf("%d/%d", scan.Number, imageID), Message: message},
		{ObjectType: "scan", ObjectID: scanKey(scan.Number), Message: models.LogMessageUpdate},
	}
}
