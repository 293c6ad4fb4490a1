package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/archivebase/scanrepo/internal/dto"
	"github.com/archivebase/scanrepo/internal/models"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
)

type logRepository interface {
	CreateAction(ctx context.Context, action *models.LogAction, objects []models.LogObject) error
	Search(ctx context.Context, filter models.LogFilter) ([]models.LogEntry, int, error)
}

// LogService records who changed what. One action groups every object a
// single API call touched. Recording is best effort: a failed write is
// logged and never blocks the mutation it describes.
type LogService struct {
	repo   logRepository
	logger *zap.Logger
}

// NewLogService constructs the service.
func NewLogService(repo logRepository, logger *zap.Logger) *LogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogService{repo: repo, logger: logger}
}

// Record stores one action with its touched objects.
func (s *LogService) Record(ctx context.Context, user string, objects []models.LogObject) {
	if len(objects) == 0 {
		return
	}
	action := &models.LogAction{User: user, Date: time.Now().UTC()}
	if err := s.repo.CreateAction(ctx, action, objects); err != nil {
		s.logger.Warn("failed to record audit action",
			zap.String("user", user), zap.Int("objects", len(objects)), zap.Error(err))
	}
}

// Search pages through the audit log.
func (s *LogService) Search(ctx context.Context, query dto.LogQuery) ([]models.LogEntry, int, error) {
	filter := models.LogFilter{
		User:       query.User,
		ObjectType: query.ObjectType,
		ObjectID:   query.ObjectID,
		Message:    query.Message,
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	if query.From != "" {
		ts, err := time.Parse(time.RFC3339, query.From)
		if err != nil {
			return nil, 0, appErrors.NewValidation([]string{"from must be an RFC 3339 timestamp"})
		}
		filter.From = &ts
	}
	if query.To != "" {
		ts, err := time.Parse(time.RFC3339, query.To)
		if err != nil {
			return nil, 0, appErrors.NewValidation([]string{"to must be an RFC 3339 timestamp"})
		}
		filter.To = &ts
	}
	return s.repo.Search(ctx, filter)
}
