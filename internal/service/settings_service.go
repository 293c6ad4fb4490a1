package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/archivebase/scanrepo/internal/models"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
)

type settingsRepository interface {
	List(ctx context.Context) ([]models.Setting, error)
	Upsert(ctx context.Context, setting models.Setting) error
	Delete(ctx context.Context, key string) error
}

// SettingsService exposes runtime key/value settings. Reads come from an
// in-memory snapshot guarded by a version counter so hot paths never hit
// the database; every write goes to the database first and then bumps the
// snapshot.
type SettingsService struct {
	repo   settingsRepository
	logs   auditLogger
	logger *zap.Logger

	mu      sync.RWMutex
	values  map[string]string
	version int64
}

// NewSettingsService constructs the service with an empty snapshot. Call
// Load before serving traffic.
func NewSettingsService(repo settingsRepository, logs auditLogger, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{
		repo:   repo,
		logs:   logs,
		logger: logger,
		values: make(map[string]string),
	}
}

// Load replaces the snapshot with the database state.
func (s *SettingsService) Load(ctx context.Context) error {
	settings, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	values := make(map[string]string, len(settings))
	for _, setting := range settings {
		values[setting.Key] = setting.Value
	}

	s.mu.Lock()
	s.values = values
	s.version++
	version := s.version
	s.mu.Unlock()

	s.logger.Info("settings loaded", zap.Int("count", len(values)), zap.Int64("version", version))
	return nil
}

// Version returns the current snapshot version. Consumers that derive
// state from settings cache against it and recompute when it moves.
func (s *SettingsService) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Get returns one value from the snapshot.
func (s *SettingsService) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok
}

// List returns the snapshot sorted by key along with its version.
func (s *SettingsService) List() ([]models.Setting, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := make([]models.Setting, 0, len(s.values))
	for key, value := range s.values {
		settings = append(settings, models.Setting{Key: key, Value: value})
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })
	return settings, s.version
}

// Set persists one setting and updates the snapshot.
func (s *SettingsService) Set(ctx context.Context, user, key, value string) error {
	if key == "" {
		return appErrors.NewValidation([]string{"key is required"})
	}
	if err := s.repo.Upsert(ctx, models.Setting{Key: key, Value: value}); err != nil {
		return err
	}

	s.mu.Lock()
	s.values[key] = value
	s.version++
	s.mu.Unlock()

	s.logs.Record(ctx, user, []models.LogObject{
		{ObjectType: "setting", ObjectID: key, Message: models.LogMessageUpdate},
	})
	return nil
}

// Delete removes one setting.
func (s *SettingsService) Delete(ctx context.Context, user, key string) error {
	s.mu.RLock()
	_, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("setting %q not found", key))
	}

	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.values, key)
	s.version++
	s.mu.Unlock()

	s.logs.Record(ctx, user, []models.LogObject{
		{ObjectType: "setting", ObjectID: key, Message: models.LogMessageDelete},
	})
	return nil
}
