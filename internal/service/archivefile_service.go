package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/archivebase/scanrepo/internal/models"
	"github.com/archivebase/scanrepo/internal/solr"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
)

// Index entity types owned by the archive file aggregator.
const (
	EntityArchiveFile = "archivefile"
	EntityComponent   = "eadcomponent"
)

type entityIndex interface {
	Search(ctx context.Context, opts solr.QueryOptions) (*solr.QueryResult, error)
	Update(ctx context.Context, docs map[string]solr.Document, commit bool) error
	DeleteByKey(ctx context.Context, key string, commit bool) error
	DeleteByQuery(ctx context.Context, query string, commit bool) error
	Commit(ctx context.Context) error
}

type archiveFileRecords interface {
	GetByID(ctx context.Context, id string) (*models.ArchiveFileRecord, error)
	Upsert(ctx context.Context, record *models.ArchiveFileRecord) error
	Delete(ctx context.Context, id string) error
}

type scanCounter interface {
	CountGroup(ctx context.Context, group models.ScanGroup) (int, error)
}

type eadReader interface {
	GetByID(ctx context.Context, eadID string) (*models.EadFile, error)
}

type changeNotifier interface {
	Refresh(eadID, archiveFileID string)
	Delete(eadID, archiveFileID string)
}

// ArchiveFileListQuery filters the aggregate listing.
type ArchiveFileListQuery struct {
	ArchiveID *int
	Status    *int
	Page      int
	PageSize  int
}

// ArchiveFileService maintains archive file aggregates. An aggregate is
// derived state: EAD components referencing the file, the live scan count
// and the optional status record, merged into one index document. It is
// recomputed whenever any of those inputs change, and removed once nothing
// references the file anymore.
type ArchiveFileService struct {
	index      entityIndex
	components entityIndex
	records    archiveFileRecords
	scans      scanCounter
	eads       eadReader
	notifier   changeNotifier
	logs       auditLogger
	logger     *zap.Logger
}

// NewArchiveFileService constructs the aggregator.
func NewArchiveFileService(index, components entityIndex, records archiveFileRecords, scans scanCounter, eads eadReader, notifier changeNotifier, logs auditLogger, logger *zap.Logger) *ArchiveFileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveFileService{
		index:      index,
		components: components,
		records:    records,
		scans:      scans,
		eads:       eads,
		notifier:   notifier,
		logs:       logs,
		logger:     logger,
	}
}

// ScansChanged recomputes the aggregate after a scan mutation.
func (s *ArchiveFileService) ScansChanged(ctx context.Context, group models.ScanGroup) error {
	return s.Refresh(ctx, group)
}

// Refresh recomputes one aggregate and pushes the result to the index and
// the pagebrowser. An aggregate that lost its last reference is pruned.
func (s *ArchiveFileService) Refresh(ctx context.Context, group models.ScanGroup) error {
	return s.rebuild(ctx, group, true)
}

// Reindex recomputes one aggregate without notifying downstream
// consumers, used by the bulk reindex.
func (s *ArchiveFileService) Reindex(ctx context.Context, group models.ScanGroup) error {
	return s.rebuild(ctx, group, false)
}

func (s *ArchiveFileService) rebuild(ctx context.Context, group models.ScanGroup, notify bool) error {
	agg, hasRecord, compIDs, err := s.compute(ctx, group)
	if err != nil {
		return err
	}

	if agg.IsOrphan(hasRecord) {
		if err := s.index.DeleteByKey(ctx, agg.ID, true); err != nil {
			return fmt.Errorf("prune orphan aggregate %s: %w", agg.ID, err)
		}
		if notify {
			s.notifier.Delete("", agg.ID)
		}
		return nil
	}

	if err := s.index.Update(ctx, map[string]solr.Document{agg.ID: aggregateDocument(agg)}, true); err != nil {
		return err
	}
	if len(compIDs) > 0 {
		docs := make(map[string]solr.Document, len(compIDs))
		for _, id := range compIDs {
			docs[id] = solr.Document{
				"number_of_scans": solr.Set(agg.NumberOfScans),
				"status":          solr.Set(int(agg.Status)),
			}
		}
		if err := s.components.Update(ctx, docs, true); err != nil {
			return err
		}
	}

	if !notify {
		return nil
	}
	if len(agg.EadIDs) == 0 {
		s.notifier.Refresh("", agg.ID)
	}
	for _, eadID := range agg.EadIDs {
		s.notifier.Refresh(eadID, agg.ID)
	}
	return nil
}

// Get returns the live aggregate for one archive file.
func (s *ArchiveFileService) Get(ctx context.Context, group models.ScanGroup) (*models.ArchiveFileAggregate, error) {
	agg, hasRecord, _, err := s.compute(ctx, group)
	if err != nil {
		return nil, err
	}
	if agg.IsOrphan(hasRecord) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("archive file %s not found", agg.ID))
	}
	return agg, nil
}

// List pages through indexed aggregates ordered by their sort field.
func (s *ArchiveFileService) List(ctx context.Context, query ArchiveFileListQuery) ([]solr.Document, int64, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 || size > 500 {
		size = 50
	}

	opts := solr.QueryOptions{
		Query: "*:*",
		Sort:  "sort_field asc",
		Start: (page - 1) * size,
		Rows:  size,
	}
	if query.ArchiveID != nil {
		opts.FilterQueries = append(opts.FilterQueries, fmt.Sprintf("archive_id:%d", *query.ArchiveID))
	}
	if query.Status != nil {
		opts.FilterQueries = append(opts.FilterQueries, fmt.Sprintf("status:%d", *query.Status))
	}

	res, err := s.index.Search(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	return res.Documents, res.Total, nil
}

// UpdateStatus sets the publication status of an archive file. The status
// lives in an explicit record so it survives EAD re-uploads.
func (s *ArchiveFileService) UpdateStatus(ctx context.Context, user string, group models.ScanGroup, status int) (*models.ArchiveFileAggregate, error) {
	st, ok := settableStatus(status)
	if !ok {
		return nil, appErrors.NewValidation([]string{"status must be 1 (new) or 2 (published)"})
	}

	agg, hasRecord, _, err := s.compute(ctx, group)
	if err != nil {
		return nil, err
	}
	if agg.IsOrphan(hasRecord) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("archive file %s not found", agg.ID))
	}

	record := &models.ArchiveFileRecord{
		ArchiveID:   group.ArchiveID,
		ArchiveFile: group.ArchiveFile,
		Status:      st,
		User:        user,
	}
	if err := s.records.Upsert(ctx, record); err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx, group); err != nil {
		s.logger.Warn("aggregate refresh after status update failed",
			zap.String("archivefile_id", agg.ID), zap.Error(err))
	}
	s.logs.Record(ctx, user, []models.LogObject{
		{ObjectType: EntityArchiveFile, ObjectID: agg.ID, Message: models.LogMessageUpdate},
	})

	agg.Status = st
	return agg, nil
}

// StatusOf returns the explicit status of an archive file, or the new
// state when none was ever set.
func (s *ArchiveFileService) StatusOf(ctx context.Context, group models.ScanGroup) models.Status {
	record, err := s.records.GetByID(ctx, group.ID())
	if err != nil {
		return models.StatusNew
	}
	return record.Status
}

// Delete removes the explicit record of an archive file. Only permitted
// once nothing references the file anymore: no EAD components and no
// scans.
func (s *ArchiveFileService) Delete(ctx context.Context, user string, group models.ScanGroup) error {
	agg, hasRecord, _, err := s.compute(ctx, group)
	if err != nil {
		return err
	}
	if !hasRecord {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("archive file %s not found", agg.ID))
	}
	if len(agg.EadIDs) > 0 || agg.NumberOfScans > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("archive file %s is still referenced by ead files or scans", agg.ID))
	}

	if err := s.records.Delete(ctx, agg.ID); err != nil {
		return err
	}
	if err := s.index.DeleteByKey(ctx, agg.ID, true); err != nil {
		return fmt.Errorf("remove aggregate %s from index: %w", agg.ID, err)
	}
	s.notifier.Delete("", agg.ID)
	s.logs.Record(ctx, user, []models.LogObject{
		{ObjectType: EntityArchiveFile, ObjectID: agg.ID, Message: models.LogMessageDelete},
	})
	return nil
}

// compute derives the aggregate from its three inputs. It also returns
// whether an explicit record exists and the ids of the component documents
// referencing the file, so callers can push scan count updates to them.
func (s *ArchiveFileService) compute(ctx context.Context, group models.ScanGroup) (*models.ArchiveFileAggregate, bool, []string, error) {
	id := group.ID()
	agg := &models.ArchiveFileAggregate{
		ID:          id,
		ArchiveID:   group.ArchiveID,
		ArchiveFile: group.ArchiveFile,
		Status:      models.StatusNew,
		SortField:   models.ArchiveFileSortField(group.ArchiveID, group.ArchiveFile),
	}

	res, err := s.components.Search(ctx, solr.QueryOptions{
		Query: solr.EqualityQuery(map[string]string{"archivefile_id": id, "is_archiveFile": "true"}),
		Rows:  1000,
	})
	if err != nil {
		return nil, false, nil, fmt.Errorf("search components for %s: %w", id, err)
	}

	var compIDs []string
	languages := make(map[string]string)
	seenEads := make(map[string]bool)
	for _, doc := range res.Documents {
		eadID, _ := doc["ead_id"].(string)
		compID, _ := doc["eadcomponent_id"].(string)
		title, _ := doc["title"].(string)
		if compID != "" {
			compIDs = append(compIDs, compID)
		}
		if eadID == "" {
			continue
		}
		if !seenEads[eadID] {
			seenEads[eadID] = true
			agg.EadIDs = append(agg.EadIDs, eadID)
		}
		if title == "" {
			continue
		}
		lang, ok := languages[eadID]
		if !ok {
			lang = s.eadLanguage(ctx, eadID)
			languages[eadID] = lang
		}
		if agg.Titles == nil {
			agg.Titles = make(map[string]string)
		}
		if _, exists := agg.Titles[lang]; !exists {
			agg.Titles[lang] = title
		}
	}
	sort.Strings(agg.EadIDs)

	count, err := s.scans.CountGroup(ctx, group)
	if err != nil {
		return nil, false, nil, err
	}
	agg.NumberOfScans = count
	agg.LastModified = time.Now().UTC()

	record, err := s.records.GetByID(ctx, id)
	hasRecord := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil, err
	}
	if hasRecord {
		agg.Status = record.Status
		agg.LastModified = record.LastModified
	}
	return agg, hasRecord, compIDs, nil
}

func (s *ArchiveFileService) eadLanguage(ctx context.Context, eadID string) string {
	ead, err := s.eads.GetByID(ctx, eadID)
	if err != nil || ead.Language == "" {
		return "nl"
	}
	return ead.Language
}

// aggregateDocument builds the index document for an aggregate.
func aggregateDocument(agg *models.ArchiveFileAggregate) solr.Document {
	doc := solr.Document{
		"archivefile_id":   agg.ID,
		"archive_id":       agg.ArchiveID,
		"archiveFile":      agg.ArchiveFile,
		"status":           int(agg.Status),
		"number_of_scans":  agg.NumberOfScans,
		"sort_field":       agg.SortField,
		"dateLastModified": agg.LastModified,
	}
	if title := agg.Title(); title != "" {
		doc["title"] = title
	}
	for lang, title := range agg.Titles {
		doc["title_"+lang] = title
	}
	if len(agg.EadIDs) > 0 {
		doc["ead_ids"] = agg.EadIDs
	}
	return doc
}
