package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/archivebase/scanrepo/internal/models"
)

const scanColumns = `number, archive_id, archive_file, sequence_number, status, date,
       timeframe_from, timeframe_to, folio_number, original_folio_number,
       title, language, username, metadata, last_modified, created_at`

// ScanRepository handles scan persistence including the sequence helpers
// used under the group table lock.
type ScanRepository struct {
	db *sqlx.DB
}

// NewScanRepository constructs the repository.
func NewScanRepository(db *sqlx.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// LockTable takes the share row exclusive table lock that serialises all
// sequence mutations. Must run inside a transaction.
func (r *ScanRepository) LockTable(ctx context.Context, tx *sqlx.Tx) error {
	if _, err := tx.ExecContext(ctx, "LOCK TABLE scans IN SHARE ROW EXCLUSIVE MODE"); err != nil {
		return fmt.Errorf("lock scans table: %w", err)
	}
	return nil
}

// Create inserts a scan and fills in its generated number.
func (r *ScanRepository) Create(ctx context.Context, q sqlx.ExtContext, scan *models.Scan) error {
	if scan.LastModified.IsZero() {
		scan.LastModified = time.Now().UTC()
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = scan.LastModified
	}
	const query = `INSERT INTO scans
		(archive_id, archive_file, sequence_number, status, date, timeframe_from, timeframe_to,
		 folio_number, original_folio_number, title, language, username, metadata, last_modified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING number`
	if err := sqlx.GetContext(ctx, q, &scan.Number, query,
		scan.ArchiveID, scan.ArchiveFile, scan.SequenceNumber, scan.Status, scan.Date,
		scan.TimeFrameFrom, scan.TimeFrameTo, scan.FolioNumber, scan.OriginalFolioNumber,
		scan.Title, scan.Language, scan.User, scan.Metadata, scan.LastModified, scan.CreatedAt,
	); err != nil {
		return fmt.Errorf("create scan: %w", err)
	}
	return nil
}

// GetByNumber retrieves one scan.
func (r *ScanRepository) GetByNumber(ctx context.Context, q sqlx.ExtContext, number int) (*models.Scan, error) {
	query := fmt.Sprintf("SELECT %s FROM scans WHERE number = $1", scanColumns)
	var scan models.Scan
	if err := sqlx.GetContext(ctx, q, &scan, query, number); err != nil {
		return nil, err
	}
	return &scan, nil
}

// Update rewrites every mutable column of a scan.
func (r *ScanRepository) Update(ctx context.Context, q sqlx.ExtContext, scan *models.Scan) error {
	scan.LastModified = time.Now().UTC()
	const query = `UPDATE scans SET
		archive_id = $2, archive_file = $3, sequence_number = $4, status = $5, date = $6,
		timeframe_from = $7, timeframe_to = $8, folio_number = $9, original_folio_number = $10,
		title = $11, language = $12, username = $13, metadata = $14, last_modified = $15
		WHERE number = $1`
	res, err := q.ExecContext(ctx, query,
		scan.Number, scan.ArchiveID, scan.ArchiveFile, scan.SequenceNumber, scan.Status, scan.Date,
		scan.TimeFrameFrom, scan.TimeFrameTo, scan.FolioNumber, scan.OriginalFolioNumber,
		scan.Title, scan.Language, scan.User, scan.Metadata, scan.LastModified,
	)
	if err != nil {
		return fmt.Errorf("update scan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check scan update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a scan row.
func (r *ScanRepository) Delete(ctx context.Context, q sqlx.ExtContext, number int) error {
	res, err := q.ExecContext(ctx, "DELETE FROM scans WHERE number = $1", number)
	if err != nil {
		return fmt.Errorf("delete scan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check scan delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MaxSequence returns the highest sequence number in a group, zero when the
// group is empty.
func (r *ScanRepository) MaxSequence(ctx context.Context, q sqlx.ExtContext, group models.ScanGroup) (int, error) {
	const query = `SELECT COALESCE(MAX(sequence_number), 0) FROM scans WHERE archive_id = $1 AND archive_file = $2`
	var max int
	if err := sqlx.GetContext(ctx, q, &max, query, group.ArchiveID, group.ArchiveFile); err != nil {
		return 0, fmt.Errorf("max sequence: %w", err)
	}
	return max, nil
}

// CountGroup returns the number of scans in a group.
func (r *ScanRepository) CountGroup(ctx context.Context, q sqlx.ExtContext, group models.ScanGroup) (int, error) {
	const query = `SELECT COUNT(*) FROM scans WHERE archive_id = $1 AND archive_file = $2`
	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, group.ArchiveID, group.ArchiveFile); err != nil {
		return 0, fmt.Errorf("count group: %w", err)
	}
	return count, nil
}

// ListGroup returns a group's scans in sequence order.
func (r *ScanRepository) ListGroup(ctx context.Context, q sqlx.ExtContext, group models.ScanGroup) ([]models.Scan, error) {
	query := fmt.Sprintf("SELECT %s FROM scans WHERE archive_id = $1 AND archive_file = $2 ORDER BY sequence_number", scanColumns)
	var scans []models.Scan
	if err := sqlx.SelectContext(ctx, q, &scans, query, group.ArchiveID, group.ArchiveFile); err != nil {
		return nil, fmt.Errorf("list group: %w", err)
	}
	return scans, nil
}

// SequenceRef pairs a scan number with its sequence position, used to push
// partial index updates after a renumbering.
type SequenceRef struct {
	Number         int `db:"number"`
	SequenceNumber int `db:"sequence_number"`
}

// ShiftRange moves every sequence number in [low, high] by delta and
// returns the affected scans with their new positions.
func (r *ScanRepository) ShiftRange(ctx context.Context, q sqlx.ExtContext, group models.ScanGroup, low, high, delta int) ([]SequenceRef, error) {
	if low > high || delta == 0 {
		return nil, nil
	}
	const selectQuery = `SELECT number, sequence_number FROM scans
		WHERE archive_id = $1 AND archive_file = $2 AND sequence_number BETWEEN $3 AND $4
		ORDER BY sequence_number`
	var refs []SequenceRef
	if err := sqlx.SelectContext(ctx, q, &refs, selectQuery, group.ArchiveID, group.ArchiveFile, low, high); err != nil {
		return nil, fmt.Errorf("select shift range: %w", err)
	}
	if len(refs) == 0 {
		return nil, nil
	}
	const updateQuery = `UPDATE scans SET sequence_number = sequence_number + $5
		WHERE archive_id = $1 AND archive_file = $2 AND sequence_number BETWEEN $3 AND $4`
	if _, err := q.ExecContext(ctx, updateQuery, group.ArchiveID, group.ArchiveFile, low, high, delta); err != nil {
		return nil, fmt.Errorf("shift sequence range: %w", err)
	}
	for i := range refs {
		refs[i].SequenceNumber += delta
	}
	return refs, nil
}

// SetSequence places one scan at an explicit position.
func (r *ScanRepository) SetSequence(ctx context.Context, q sqlx.ExtContext, number, sequence int) error {
	const query = `UPDATE scans SET sequence_number = $2 WHERE number = $1`
	if _, err := q.ExecContext(ctx, query, number, sequence); err != nil {
		return fmt.Errorf("set sequence: %w", err)
	}
	return nil
}

// List returns scans matching the filter plus the total count.
func (r *ScanRepository) List(ctx context.Context, filter models.ScanFilter) ([]models.Scan, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)

	if filter.ArchiveID != nil {
		args = append(args, *filter.ArchiveID)
		conditions = append(conditions, fmt.Sprintf("archive_id = $%d", len(args)))
	}
	if filter.ArchiveFile != "" {
		args = append(args, filter.ArchiveFile)
		conditions = append(conditions, fmt.Sprintf("archive_file = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM scans"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count scans: %w", err)
	}

	limit := filter.PageSize
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	query := fmt.Sprintf("SELECT %s FROM scans%s ORDER BY archive_id, archive_file, sequence_number LIMIT %d OFFSET %d",
		scanColumns, where, limit, (page-1)*limit)

	var scans []models.Scan
	if err := r.db.SelectContext(ctx, &scans, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list scans: %w", err)
	}
	return scans, total, nil
}

// ListAll streams every scan in batches, used by the full reindex.
func (r *ScanRepository) ListAll(ctx context.Context, afterNumber, batchSize int) ([]models.Scan, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	query := fmt.Sprintf("SELECT %s FROM scans WHERE number > $1 ORDER BY number LIMIT %d", scanColumns, batchSize)
	var scans []models.Scan
	if err := r.db.SelectContext(ctx, &scans, query, afterNumber); err != nil {
		return nil, fmt.Errorf("list all scans: %w", err)
	}
	return scans, nil
}

// CountByArchive reports whether an archive still owns scans.
func (r *ScanRepository) CountByArchive(ctx context.Context, archiveID int) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM scans WHERE archive_id = $1", archiveID); err != nil {
		return 0, fmt.Errorf("count scans by archive: %w", err)
	}
	return count, nil
}
