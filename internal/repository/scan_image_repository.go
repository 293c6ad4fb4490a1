package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/archivebase/scanrepo/internal/models"
)

const imageColumns = `id, scan_number, filename, mime_type, size_bytes, is_default, created_at`

// ScanImageRepository handles the image files registered per scan.
type ScanImageRepository struct {
	db *sqlx.DB
}

// NewScanImageRepository constructs the repository.
func NewScanImageRepository(db *sqlx.DB) *ScanImageRepository {
	return &ScanImageRepository{db: db}
}

// Create inserts an image row and fills in its generated id. The first
// image of a scan becomes the default.
func (r *ScanImageRepository) Create(ctx context.Context, q sqlx.ExtContext, image *models.ScanImage) error {
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO scan_images (scan_number, filename, mime_type, size_bytes, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := sqlx.GetContext(ctx, q, &image.ID, query,
		image.ScanNumber, image.Filename, image.MimeType, image.SizeBytes, image.IsDefault, image.CreatedAt,
	); err != nil {
		return fmt.Errorf("create scan image: %w", err)
	}
	return nil
}

// GetByID retrieves one image of a scan.
func (r *ScanImageRepository) GetByID(ctx context.Context, scanNumber, imageID int) (*models.ScanImage, error) {
	query := fmt.Sprintf("SELECT %s FROM scan_images WHERE scan_number = $1 AND id = $2", imageColumns)
	var image models.ScanImage
	if err := r.db.GetContext(ctx, &image, query, scanNumber, imageID); err != nil {
		return nil, err
	}
	return &image, nil
}

// GetDefault returns the default image of a scan.
func (r *ScanImageRepository) GetDefault(ctx context.Context, scanNumber int) (*models.ScanImage, error) {
	query := fmt.Sprintf("SELECT %s FROM scan_images WHERE scan_number = $1 AND is_default", imageColumns)
	var image models.ScanImage
	if err := r.db.GetContext(ctx, &image, query, scanNumber); err != nil {
		return nil, err
	}
	return &image, nil
}

// ListByScan returns a scan's images, default first.
func (r *ScanImageRepository) ListByScan(ctx context.Context, q sqlx.ExtContext, scanNumber int) ([]models.ScanImage, error) {
	query := fmt.Sprintf("SELECT %s FROM scan_images WHERE scan_number = $1 ORDER BY is_default DESC, id", imageColumns)
	var images []models.ScanImage
	if err := sqlx.SelectContext(ctx, q, &images, query, scanNumber); err != nil {
		return nil, fmt.Errorf("list scan images: %w", err)
	}
	return images, nil
}

// CountByScan returns how many images a scan has.
func (r *ScanImageRepository) CountByScan(ctx context.Context, q sqlx.ExtContext, scanNumber int) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, q, &count, "SELECT COUNT(*) FROM scan_images WHERE scan_number = $1", scanNumber); err != nil {
		return 0, fmt.Errorf("count scan images: %w", err)
	}
	return count, nil
}

// SetDefault moves the default flag to the given image. Callers must pass
// a transaction: the clearing statement persists even when the target id
// does not exist, which would leave the scan without a default.
func (r *ScanImageRepository) SetDefault(ctx context.Context, q sqlx.ExtContext, scanNumber, imageID int) error {
	if _, err := q.ExecContext(ctx, "UPDATE scan_images SET is_default = false WHERE scan_number = $1", scanNumber); err != nil {
		return fmt.Errorf("clear default image: %w", err)
	}
	res, err := q.ExecContext(ctx, "UPDATE scan_images SET is_default = true WHERE scan_number = $1 AND id = $2", scanNumber, imageID)
	if err != nil {
		return fmt.Errorf("set default image: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check default image rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes one image row.
func (r *ScanImageRepository) Delete(ctx context.Context, q sqlx.ExtContext, scanNumber, imageID int) error {
	res, err := q.ExecContext(ctx, "DELETE FROM scan_images WHERE scan_number = $1 AND id = $2", scanNumber, imageID)
	if err != nil {
		return fmt.Errorf("delete scan image: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check image delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByScan removes every image row of a scan.
func (r *ScanImageRepository) DeleteByScan(ctx context.Context, q sqlx.ExtContext, scanNumber int) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM scan_images WHERE scan_number = $1", scanNumber); err != nil {
		return fmt.Errorf("delete scan images: %w", err)
	}
	return nil
}
