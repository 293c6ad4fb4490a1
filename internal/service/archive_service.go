package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/archivebase/scanrepo/internal/dto"
	"github.com/archivebase/scanrepo/internal/models"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
)

type archiveRepository interface {
	Create(ctx context.Context, archive *models.Archive) error
	GetByID(ctx context.Context, id int) (*models.Archive, error)
	GetByCodes(ctx context.Context, institution, archive string) (*models.Archive, error)
	List(ctx context.Context, filter models.ArchiveFilter) ([]models.Archive, error)
	Update(ctx context.Context, archive *models.Archive) error
	Delete(ctx context.Context, id int) error
}

type archiveUsage interface {
	CountScans(ctx context.Context, archiveID int) (int, error)
	CountEads(ctx context.Context, archiveID int) (int, error)
}

type archiveCounter interface {
	CountByArchive(ctx context.Context, archiveID int) (int, error)
}

// ArchiveUsage adapts the scan and ead repositories into the reference
// counts guarding archive deletion.
type ArchiveUsage struct {
	Scans archiveCounter
	Eads  archiveCounter
}

// CountScans returns the number of scans owned by the archive.
func (u ArchiveUsage) CountScans(ctx context.Context, archiveID int) (int, error) {
	return u.Scans.CountByArchive(ctx, archiveID)
}

// CountEads returns the number of finding aids referencing the archive.
func (u ArchiveUsage) CountEads(ctx context.Context, archiveID int) (int, error) {
	return u.Eads.CountByArchive(ctx, archiveID)
}

// ArchiveService manages the archive registry. An archive row anchors
// everything else: EAD uploads resolve against its codes and scans carry
// its id, so deletion is refused while either still references it.
type ArchiveService struct {
	repo   archiveRepository
	usage  archiveUsage
	logger *zap.Logger
}

// NewArchiveService constructs the service.
func NewArchiveService(repo archiveRepository, usage archiveUsage, logger *zap.Logger) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveService{repo: repo, usage: usage, logger: logger}
}

// Create registers a new archive. The (institution, archive) code pair
// must be unique.
func (s *ArchiveService) Create(ctx context.Context, req dto.CreateArchiveRequest) (*models.Archive, error) {
	var details []string
	if len(req.CountryCode) != 2 {
		details = append(details, "country_code must be a two letter code")
	}
	if req.Institution == "" {
		details = append(details, "institution is required")
	}
	if req.Archive == "" {
		details = append(details, "archive is required")
	}
	if len(details) > 0 {
		return nil, appErrors.NewValidation(details)
	}

	if _, err := s.repo.GetByCodes(ctx, req.Institution, req.Archive); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("archive %s/%s already exists", req.Institution, req.Archive))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	archive := &models.Archive{
		CountryCode:            req.CountryCode,
		Institution:            req.Institution,
		InstitutionDescription: req.InstitutionDescription,
		Archive:                req.Archive,
		ArchiveDescription:     req.ArchiveDescription,
	}
	if err := s.repo.Create(ctx, archive); err != nil {
		return nil, err
	}
	return archive, nil
}

// Get returns one archive.
func (s *ArchiveService) Get(ctx context.Context, id int) (*models.Archive, error) {
	archive, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("archive %d not found", id))
	}
	return archive, err
}

// List returns archives matching the filter.
func (s *ArchiveService) List(ctx context.Context, filter models.ArchiveFilter) ([]models.Archive, error) {
	return s.repo.List(ctx, filter)
}

// Update changes the descriptions of an archive. The code fields are
// immutable because stored EAD files and scans reference them.
func (s *ArchiveService) Update(ctx context.Context, id int, req dto.UpdateArchiveRequest) (*models.Archive, error) {
	archive, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.InstitutionDescription != nil {
		archive.InstitutionDescription = *req.InstitutionDescription
	}
	if req.ArchiveDescription != nil {
		archive.ArchiveDescription = *req.ArchiveDescription
	}
	if err := s.repo.Update(ctx, archive); err != nil {
		return nil, err
	}
	return archive, nil
}

// Delete removes an archive that nothing references anymore.
func (s *ArchiveService) Delete(ctx context.Context, id int) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	scans, err := s.usage.CountScans(ctx, id)
	if err != nil {
		return err
	}
	if scans > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("archive %d still owns %d scans", id, scans))
	}
	eads, err := s.usage.CountEads(ctx, id)
	if err != nil {
		return err
	}
	if eads > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("archive %d is still referenced by %d finding aids", id, eads))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("archive deleted", zap.String("archive_id", strconv.Itoa(id)))
	return nil
}
