package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archivebase/scanrepo/internal/models"
)

type stubSettingsRepo struct {
	stored  map[string]string
	deleted []string
}

func (s *stubSettingsRepo) List(ctx context.Context) ([]models.Setting, error) {
	var out []models.Setting
	for key, value := range s.stored {
		out = append(out, models.Setting{Key: key, Value: value})
	}
	return out, nil
}

func (s *stubSettingsRepo) Upsert(ctx context.Context, setting models.Setting) error {
	if s.stored == nil {
		s.stored = map[string]string{}
	}
	s.stored[setting.Key] = setting.Value
	return nil
}

func (s *stubSettingsRepo) Delete(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	delete(s.stored, key)
	return nil
}

func TestSettingsLoadAndGet(t *testing.T) {
	repo := &stubSettingsRepo{stored: map[string]string{"watermark": "on", "derivative_sizes": "200x,x600"}}
	svc := NewSettingsService(repo, &stubAudit{}, nil)

	require.NoError(t, svc.Load(context.Background()))

	value, ok := svc.Get("watermark")
	require.True(t, ok)
	require.Equal(t, "on", value)

	settings, version := svc.List()
	require.Equal(t, int64(1), version)
	require.Len(t, settings, 2)
	require.Equal(t, "derivative_sizes", settings[0].Key)
}

func TestSettingsSetBumpsVersion(t *testing.T) {
	repo := &stubSettingsRepo{}
	audit := &stubAudit{}
	svc := NewSettingsService(repo, audit, nil)

	require.NoError(t, svc.Set(context.Background(), "admin", "watermark", "off"))

	value, ok := svc.Get("watermark")
	require.True(t, ok)
	require.Equal(t, "off", value)
	require.Equal(t, "off", repo.stored["watermark"])

	_, version := svc.List()
	require.Equal(t, int64(1), version)
	require.Equal(t, []string{"admin"}, audit.users)
}

func TestSettingsSetRequiresKey(t *testing.T) {
	svc := NewSettingsService(&stubSettingsRepo{}, &stubAudit{}, nil)
	require.Error(t, svc.Set(context.Background(), "admin", "", "x"))
}

func TestSettingsDeleteMissingKey(t *testing.T) {
	svc := NewSettingsService(&stubSettingsRepo{}, &stubAudit{}, nil)
	err := svc.Delete(context.Background(), "admin", "nope")
	require.Error(t, err)
}

func TestSettingsDelete(t *testing.T) {
	repo := &stubSettingsRepo{stored: map[string]string{"watermark": "on"}}
	svc := NewSettingsService(repo, &stubAudit{}, nil)
	require.NoError(t, svc.Load(context.Background()))

	require.NoError(t, svc.Delete(context.Background(), "admin", "watermark"))
	_, ok := svc.Get("watermark")
	require.False(t, ok)
	require.Equal(t, []string{"watermark"}, repo.deleted)
}
