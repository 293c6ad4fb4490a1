package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/archivebase/scanrepo/internal/models"
)

// LogRepository records who touched what. One action row per API call,
// one object row per touched entity.
type LogRepository struct {
	db *sqlx.DB
}

// NewLogRepository constructs the repository.
func NewLogRepository(db *sqlx.DB) *LogRepository {
	return &LogRepository{db: db}
}

// CreateAction writes an action together with its touched objects.
func (r *LogRepository) CreateAction(ctx context.Context, action *models.LogAction, objects []models.LogObject) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.Date.IsZero() {
		action.Date = time.Now().UTC()
	}
	const actionQuery = `INSERT INTO log_actions (id, username, date) VALUES (:id, :username, :date)`
	if _, err := r.db.NamedExecContext(ctx, actionQuery, action); err != nil {
		return fmt.Errorf("create log action: %w", err)
	}
	const objectQuery = `INSERT INTO log_objects (log_action_id, object_id, object_type, message)
		VALUES ($1, $2, $3, $4)`
	for _, object := range objects {
		if _, err := r.db.ExecContext(ctx, objectQuery, action.ID, object.ObjectID, object.ObjectType, object.Message); err != nil {
			return fmt.Errorf("create log object: %w", err)
		}
	}
	return nil
}

// Search returns joined log entries matching the filter, newest first.
func (r *LogRepository) Search(ctx context.Context, filter models.LogFilter) ([]models.LogEntry, int, error) {
	conditions := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)

	if filter.User != "" {
		args = append(args, filter.User)
		conditions = append(conditions, fmt.Sprintf("a.username = $%d", len(args)))
	}
	if filter.ObjectType != "" {
		args = append(args, filter.ObjectType)
		conditions = append(conditions, fmt.Sprintf("o.object_type = $%d", len(args)))
	}
	if filter.ObjectID != "" {
		args = append(args, filter.ObjectID)
		conditions = append(conditions, fmt.Sprintf("o.object_id = $%d", len(args)))
	}
	if filter.Message != "" {
		args = append(args, filter.Message)
		conditions = append(conditions, fmt.Sprintf("o.message = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("a.date <= $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	base := " FROM log_actions a JOIN log_objects o ON o.log_action_id = a.id" + where

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count log entries: %w", err)
	}

	limit := filter.PageSize
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	query := fmt.Sprintf(`SELECT a.id, a.username, a.date, o.object_id, o.object_type, o.message%s
		ORDER BY a.date DESC LIMIT %d OFFSET %d`, base, limit, (page-1)*limit)

	var entries []models.LogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("search log entries: %w", err)
	}
	return entries, total, nil
}
