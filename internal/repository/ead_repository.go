package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/archivebase/scanrepo/internal/models"
)

const eadColumns = `ead_id, country_code, institution, archive, archive_row_id, finding_aid,
       title, language, filename, status, username, last_modified, created_at`

// EadRepository handles EAD file registrations.
type EadRepository struct {
	db *sqlx.DB
}

// NewEadRepository constructs the repository.
func NewEadRepository(db *sqlx.DB) *EadRepository {
	return &EadRepository{db: db}
}

// Create registers an uploaded EAD file.
func (r *EadRepository) Create(ctx context.Context, ead *models.EadFile) error {
	now := time.Now().UTC()
	if ead.LastModified.IsZero() {
		ead.LastModified = now
	}
	if ead.CreatedAt.IsZero() {
		ead.CreatedAt = now
	}
	const query = `INSERT INTO ead_files
		(ead_id, country_code, institution, archive, archive_row_id, finding_aid, title, language,
		 filename, status, username, last_modified, created_at)
		VALUES (:ead_id, :country_code, :institution, :archive, :archive_row_id, :finding_aid, :title,
		 :language, :filename, :status, :username, :last_modified, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, ead); err != nil {
		return fmt.Errorf("create ead file: %w", err)
	}
	return nil
}

// GetByID retrieves one registration.
func (r *EadRepository) GetByID(ctx context.Context, eadID string) (*models.EadFile, error) {
	query := fmt.Sprintf("SELECT %s FROM ead_files WHERE ead_id = $1", eadColumns)
	var ead models.EadFile
	if err := r.db.GetContext(ctx, &ead, query, eadID); err != nil {
		return nil, err
	}
	return &ead, nil
}

// List returns every registration ordered by ead id.
func (r *EadRepository) List(ctx context.Context) ([]models.EadFile, error) {
	query := fmt.Sprintf("SELECT %s FROM ead_files ORDER BY ead_id", eadColumns)
	var eads []models.EadFile
	if err := r.db.SelectContext(ctx, &eads, query); err != nil {
		return nil, fmt.Errorf("list ead files: %w", err)
	}
	return eads, nil
}

// Update rewrites the mutable columns of a registration.
func (r *EadRepository) Update(ctx context.Context, ead *models.EadFile) error {
	ead.LastModified = time.Now().UTC()
	const query = `UPDATE ead_files SET country_code = :country_code, institution = :institution,
		archive = :archive, archive_row_id = :archive_row_id, finding_aid = :finding_aid,
		title = :title, language = :language, filename = :filename, status = :status,
		username = :username, last_modified = :last_modified
		WHERE ead_id = :ead_id`
	res, err := r.db.NamedExecContext(ctx, query, ead)
	if err != nil {
		return fmt.Errorf("update ead file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check ead update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes one registration.
func (r *EadRepository) Delete(ctx context.Context, eadID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM ead_files WHERE ead_id = $1", eadID)
	if err != nil {
		return fmt.Errorf("delete ead file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check ead delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByArchive reports whether an archive still owns EAD files.
func (r *EadRepository) CountByArchive(ctx context.Context, archiveID int) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM ead_files WHERE archive_row_id = $1", archiveID); err != nil {
		return 0, fmt.Errorf("count ead files by archive: %w", err)
	}
	return count, nil
}
