package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/archivebase/scanrepo/internal/models"
)

const archiveFileColumns = `id, archive_id, archive_file, status, username, last_modified, created_at`

// ArchiveFileRepository handles explicit archive file records. Rows only
// exist for archive files whose status somebody has set; aggregates without
// a row default to the new state.
type ArchiveFileRepository struct {
	db *sqlx.DB
}

// NewArchiveFileRepository constructs the repository.
func NewArchiveFileRepository(db *sqlx.DB) *ArchiveFileRepository {
	return &ArchiveFileRepository{db: db}
}

// Upsert creates or updates the record for an archive file.
func (r *ArchiveFileRepository) Upsert(ctx context.Context, record *models.ArchiveFileRecord) error {
	record.ID = models.ArchiveFileID(record.ArchiveID, record.ArchiveFile)
	record.LastModified = time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = record.LastModified
	}
	const query = `INSERT INTO archive_files (id, archive_id, archive_file, status, username, last_modified, created_at)
		VALUES (:id, :archive_id, :archive_file, :status, :username, :last_modified, :created_at)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, username = EXCLUDED.username,
		last_modified = EXCLUDED.last_modified`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert archive file: %w", err)
	}
	return nil
}

// GetByID retrieves one record, sql.ErrNoRows when no explicit status was
// ever set.
func (r *ArchiveFileRepository) GetByID(ctx context.Context, id string) (*models.ArchiveFileRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM archive_files WHERE id = $1", archiveFileColumns)
	var record models.ArchiveFileRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListAll streams every record, used by the full reindex.
func (r *ArchiveFileRepository) ListAll(ctx context.Context) ([]models.ArchiveFileRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM archive_files ORDER BY id", archiveFileColumns)
	var records []models.ArchiveFileRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list archive files: %w", err)
	}
	return records, nil
}

// Delete removes one record.
func (r *ArchiveFileRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM archive_files WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete archive file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check archive file delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
