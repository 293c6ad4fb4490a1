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

const archiveColumns = `id, country_code, institution, institution_description, archive, archive_description, created_at`

// ArchiveRepository handles the institutional archive register.
type ArchiveRepository struct {
	db *sqlx.DB
}

// NewArchiveRepository constructs the repository.
func NewArchiveRepository(db *sqlx.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// Create inserts an archive and fills in its generated id.
func (r *ArchiveRepository) Create(ctx context.Context, archive *models.Archive) error {
	if archive.CreatedAt.IsZero() {
		archive.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO archives (country_code, institution, institution_description, archive, archive_description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.GetContext(ctx, &archive.ID, query,
		archive.CountryCode, archive.Institution, archive.InstitutionDescription,
		archive.Archive, archive.ArchiveDescription, archive.CreatedAt,
	); err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	return nil
}

// GetByID retrieves one archive row.
func (r *ArchiveRepository) GetByID(ctx context.Context, id int) (*models.Archive, error) {
	query := fmt.Sprintf("SELECT %s FROM archives WHERE id = $1", archiveColumns)
	var archive models.Archive
	if err := r.db.GetContext(ctx, &archive, query, id); err != nil {
		return nil, err
	}
	return &archive, nil
}

// GetByCodes resolves the row for an (institution, archive) code pair.
func (r *ArchiveRepository) GetByCodes(ctx context.Context, institution, archive string) (*models.Archive, error) {
	query := fmt.Sprintf("SELECT %s FROM archives WHERE institution = $1 AND archive = $2", archiveColumns)
	var row models.Archive
	if err := r.db.GetContext(ctx, &row, query, institution, archive); err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns archives applying filters.
func (r *ArchiveRepository) List(ctx context.Context, filter models.ArchiveFilter) ([]models.Archive, error) {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("SELECT %s FROM archives", archiveColumns))
	args := make([]interface{}, 0, 2)
	conditions := make([]string, 0, 2)

	if filter.CountryCode != "" {
		args = append(args, filter.CountryCode)
		conditions = append(conditions, fmt.Sprintf("country_code = $%d", len(args)))
	}
	if filter.Institution != "" {
		args = append(args, filter.Institution)
		conditions = append(conditions, fmt.Sprintf("institution = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY institution, archive")

	limit := filter.PageSize
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, (page-1)*limit))

	var archives []models.Archive
	if err := r.db.SelectContext(ctx, &archives, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	return archives, nil
}

// Update rewrites the description columns.
func (r *ArchiveRepository) Update(ctx context.Context, archive *models.Archive) error {
	const query = `UPDATE archives SET institution_description = $2, archive_description = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, archive.ID, archive.InstitutionDescription, archive.ArchiveDescription)
	if err != nil {
		return fmt.Errorf("update archive: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check archive update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an archive row.
func (r *ArchiveRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM archives WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete archive: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check archive delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
