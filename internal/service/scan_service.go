package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/archivebase/scanrepo/internal/dto"
	"github.com/archivebase/scanrepo/internal/models"
	"github.com/archivebase/scanrepo/internal/repository"
	"github.com/archivebase/scanrepo/internal/solr"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
)

// EntityScan is the index entity type for scan documents, keyed by scan
// number.
const EntityScan = "scan"

type scanStore interface {
	Insert(ctx context.Context, scan *models.Scan) error
	Remove(ctx context.Context, number int) (*models.Scan, []repository.SequenceRef, error)
	Move(ctx context.Context, number, after int) (*models.Scan, []repository.SequenceRef, error)
	Transfer(ctx context.Context, scan *models.Scan, from models.ScanGroup) ([]repository.SequenceRef, error)
	Get(ctx context.Context, number int) (*models.Scan, error)
	Save(ctx context.Context, scan *models.Scan) error
	ListGroup(ctx context.Context, group models.ScanGroup) ([]models.Scan, error)
}

type scanIndex interface {
	Search(ctx context.Context, opts solr.QueryOptions) (*solr.QueryResult, error)
	Update(ctx context.Context, docs map[string]solr.Document, commit bool) error
	DeleteByKey(ctx context.Context, key string, commit bool) error
}

type archiveReader interface {
	GetByID(ctx context.Context, id int) (*models.Archive, error)
}

// archiveFileRefresher is notified whenever the scans of a group changed
// so the owning archive file aggregate can be recomputed and downstream
// consumers told.
type archiveFileRefresher interface {
	ScansChanged(ctx context.Context, group models.ScanGroup) error
}

type scanFiles interface {
	DeleteScan(scanNumber int) error
}

type auditLogger interface {
	Record(ctx context.Context, user string, objects []models.LogObject)
}

// ScanService owns the scan lifecycle: create, update, move, delete and
// the index documents derived from them. Database writes commit first;
// index updates follow and a failure there is logged and repaired by the
// next full reindex rather than rolled back.
type ScanService struct {
	store      scanStore
	archives   archiveReader
	files      scanFiles
	index      scanIndex
	aggregates archiveFileRefresher
	logs       auditLogger
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewScanService constructs the scan service. metrics may be nil.
func NewScanService(store scanStore, archives archiveReader, files scanFiles, index scanIndex, aggregates archiveFileRefresher, logs auditLogger, metrics *MetricsService, logger *zap.Logger) *ScanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanService{
		store:      store,
		archives:   archives,
		files:      files,
		index:      index,
		aggregates: aggregates,
		logs:       logs,
		metrics:    metrics,
		logger:     logger,
	}
}

// Create registers a new scan at the end of its group's sequence.
func (s *ScanService) Create(ctx context.Context, user string, req dto.ScanFields) (*models.Scan, error) {
	var details []string

	scan := &models.Scan{Status: models.StatusNew, User: user}
	if req.ArchiveID == nil {
		details = append(details, "archive_id is required")
	} else if err := s.checkArchive(ctx, *req.ArchiveID); err != nil {
		details = append(details, err.Error())
	} else {
		scan.ArchiveID = *req.ArchiveID
	}
	if req.ArchiveFile == nil || *req.ArchiveFile == "" {
		details = append(details, "archiveFile is required")
	} else {
		scan.ArchiveFile = *req.ArchiveFile
	}
	if req.Status != nil {
		status, ok := settableStatus(*req.Status)
		if !ok {
			details = append(details, "status must be 1 (new) or 2 (published)")
		} else {
			scan.Status = status
		}
	}
	details = append(details, applyScanFields(scan, req)...)
	if len(details) > 0 {
		return nil, appErrors.NewValidation(details)
	}

	if err := s.store.Insert(ctx, scan); err != nil {
		return nil, err
	}
	s.sequenceMutated()

	s.indexDocs(ctx, map[string]solr.Document{scanKey(scan.Number): scanDocument(scan)})
	s.refreshGroup(ctx, scan.GroupKey())
	s.logs.Record(ctx, user, scanLogObjects(scan, models.LogMessageCreate))
	return scan, nil
}

// Get returns one scan.
func (s *ScanService) Get(ctx context.Context, number int) (*models.Scan, error) {
	return s.store.Get(ctx, number)
}

// ScanPage is one page of scan index documents with facet counts for
// the filter fields.
type ScanPage struct {
	Documents []solr.Document
	Total     int64
	Facets    map[string][]solr.FacetCount
}

// List pages through the scan index. Reads go through the index rather
// than the relational store so the facet counts and the listing always
// agree; drift is repaired by the next full reindex.
func (s *ScanService) List(ctx context.Context, query dto.ScanQuery) (*ScanPage, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 || size > 500 {
		size = 20
	}

	opts := solr.QueryOptions{
		Query:       "*:*",
		Sort:        "archive_id asc, archiveFile asc, sequenceNumber asc",
		Start:       (page - 1) * size,
		Rows:        size,
		FacetFields: []string{"archive_id", "status"},
	}
	if query.ArchiveID != nil {
		opts.FilterQueries = append(opts.FilterQueries, fmt.Sprintf("archive_id:%d", *query.ArchiveID))
	}
	if query.ArchiveFile != "" {
		opts.FilterQueries = append(opts.FilterQueries, solr.EqualityQuery(map[string]string{"archiveFile": query.ArchiveFile}))
	}
	if query.Status != nil {
		status := models.Status(*query.Status)
		if !status.Valid() {
			return nil, appErrors.NewValidation([]string{"status must be 0, 1 or 2"})
		}
		opts.FilterQueries = append(opts.FilterQueries, fmt.Sprintf("status:%d", int(status)))
	}

	res, err := s.index.Search(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &ScanPage{Documents: res.Documents, Total: res.Total, Facets: res.Facets}, nil
}

// ListGroup returns every scan of one archive file in sequence order.
func (s *ScanService) ListGroup(ctx context.Context, group models.ScanGroup) ([]models.Scan, error) {
	return s.store.ListGroup(ctx, group)
}

// Update applies partial field changes. Changing the group fields moves
// the scan to the end of the destination group and closes the gap it left
// behind.
func (s *ScanService) Update(ctx context.Context, user string, number int, req dto.ScanFields) (*models.Scan, error) {
	scan, err := s.store.Get(ctx, number)
	if err != nil {
		return nil, err
	}
	oldGroup := scan.GroupKey()

	var details []string
	if req.ArchiveID != nil && *req.ArchiveID != scan.ArchiveID {
		if err := s.checkArchive(ctx, *req.ArchiveID); err != nil {
			details = append(details, err.Error())
		} else {
			scan.ArchiveID = *req.ArchiveID
		}
	}
	if req.ArchiveFile != nil && *req.ArchiveFile != scan.ArchiveFile {
		if *req.ArchiveFile == "" {
			details = append(details, "archiveFile cannot be empty")
		} else {
			scan.ArchiveFile = *req.ArchiveFile
		}
	}
	if req.Status != nil {
		status, ok := settableStatus(*req.Status)
		if !ok {
			details = append(details, "status must be 1 (new) or 2 (published)")
		} else {
			scan.Status = status
		}
	}
	details = append(details, applyScanFields(scan, req)...)
	if len(details) > 0 {
		return nil, appErrors.NewValidation(details)
	}
	scan.User = user

	if scan.GroupKey() != oldGroup {
		shifted, err := s.store.Transfer(ctx, scan, oldGroup)
		if err != nil {
			return nil, err
		}
		s.sequenceMutated()
		docs := shiftDocuments(shifted)
		docs[scanKey(scan.Number)] = scanDocument(scan)
		s.indexDocs(ctx, docs)
		s.refreshGroup(ctx, oldGroup)
		s.refreshGroup(ctx, scan.GroupKey())
	} else {
		if err := s.store.Save(ctx, scan); err != nil {
			return nil, err
		}
		s.indexDocs(ctx, map[string]solr.Document{scanKey(scan.Number): scanDocument(scan)})
		s.refreshGroup(ctx, oldGroup)
	}

	s.logs.Record(ctx, user, scanLogObjects(scan, models.LogMessageUpdate))
	return scan, nil
}

// Move repositions a scan after the given sequence number in its group.
func (s *ScanService) Move(ctx context.Context, user string, number, after int) (*models.Scan, error) {
	scan, shifted, err := s.store.Move(ctx, number, after)
	if err != nil {
		return nil, err
	}
	s.sequenceMutated()
	if len(shifted) == 0 {
		return scan, nil
	}

	docs := shiftDocuments(shifted)
	docs[scanKey(scan.Number)] = solr.Document{"sequenceNumber": solr.Set(scan.SequenceNumber)}
	s.indexDocs(ctx, docs)
	s.refreshGroup(ctx, scan.GroupKey())
	s.logs.Record(ctx, user, scanLogObjects(scan, models.LogMessageMove))
	return scan, nil
}

// Delete removes a scan, its stored images and its index document, and
// closes the sequence gap it leaves behind.
func (s *ScanService) Delete(ctx context.Context, user string, number int) error {
	scan, shifted, err := s.store.Remove(ctx, number)
	if err != nil {
		return err
	}
	s.sequenceMutated()

	if err := s.files.DeleteScan(number); err != nil {
		s.logger.Warn("failed to delete scan files", zap.Int("number", number), zap.Error(err))
	}
	if err := s.index.DeleteByKey(ctx, scanKey(number), true); err != nil {
		s.logger.Warn("failed to delete scan index document", zap.Int("number", number), zap.Error(err))
	}
	if len(shifted) > 0 {
		s.indexDocs(ctx, shiftDocuments(shifted))
	}
	s.refreshGroup(ctx, scan.GroupKey())
	s.logs.Record(ctx, user, scanLogObjects(scan, models.LogMessageDelete))
	return nil
}

func (s *ScanService) checkArchive(ctx context.Context, id int) error {
	if _, err := s.archives.GetByID(ctx, id); err != nil {
		return fmt.Errorf("archive %d does not exist", id)
	}
	return nil
}

func (s *ScanService) indexDocs(ctx context.Context, docs map[string]solr.Document) {
	if err := s.index.Update(ctx, docs, true); err != nil {
		s.logger.Warn("scan index update failed", zap.Int("documents", len(docs)), zap.Error(err))
		if s.metrics != nil {
			s.metrics.IndexFailed()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.IndexUpdated(EntityScan, len(docs))
	}
}

func (s *ScanService) sequenceMutated() {
	if s.metrics != nil {
		s.metrics.SequenceMutated()
	}
}

func (s *ScanService) refreshGroup(ctx context.Context, group models.ScanGroup) {
	if err := s.aggregates.ScansChanged(ctx, group); err != nil {
		s.logger.Warn("archive file refresh failed",
			zap.String("archivefile_id", group.ID()), zap.Error(err))
	}
}

// applyScanFields copies the plain descriptive fields and the metadata
// overlay onto the scan, returning a validation message per unknown
// metadata key. An empty metadata value removes the key.
func applyScanFields(scan *models.Scan, req dto.ScanFields) []string {
	if req.Date != nil {
		scan.Date = *req.Date
	}
	if req.TimeFrameFrom != nil {
		scan.TimeFrameFrom = *req.TimeFrameFrom
	}
	if req.TimeFrameTo != nil {
		scan.TimeFrameTo = *req.TimeFrameTo
	}
	if req.FolioNumber != nil {
		scan.FolioNumber = *req.FolioNumber
	}
	if req.OriginalFolioNumber != nil {
		scan.OriginalFolioNumber = *req.OriginalFolioNumber
	}
	if req.Title != nil {
		scan.Title = *req.Title
	}
	if req.Language != nil {
		scan.Language = *req.Language
	}

	var details []string
	for key, value := range req.Metadata {
		if _, ok := models.MetadataFields[key]; !ok {
			details = append(details, fmt.Sprintf("unknown metadata field %q", key))
			continue
		}
		if value == "" {
			delete(scan.Metadata, key)
			continue
		}
		if scan.Metadata == nil {
			scan.Metadata = models.Metadata{}
		}
		scan.Metadata[key] = value
	}
	return details
}

func settableStatus(v int) (models.Status, bool) {
	status := models.Status(v)
	if status != models.StatusNew && status != models.StatusPublished {
		return 0, false
	}
	return status, true
}

func scanKey(number int) string {
	return strconv.Itoa(number)
}

// scanDocument builds the full index document for a scan. Metadata keys
// become top-level fields so they are searchable alongside the fixed ones.
func scanDocument(scan *models.Scan) solr.Document {
	doc := solr.Document{
		"number":           scan.Number,
		"archive_id":       scan.ArchiveID,
		"archiveFile":      scan.ArchiveFile,
		"archivefile_id":   scan.ArchiveFileID(),
		"sequenceNumber":   scan.SequenceNumber,
		"status":           int(scan.Status),
		"dateLastModified": scan.LastModified,
	}
	putNonEmpty := func(field, value string) {
		if value != "" {
			doc[field] = value
		}
	}
	putNonEmpty("date", scan.Date)
	putNonEmpty("timeFrameFrom", scan.TimeFrameFrom)
	putNonEmpty("timeFrameTo", scan.TimeFrameTo)
	putNonEmpty("folioNumber", scan.FolioNumber)
	putNonEmpty("originalFolioNumber", scan.OriginalFolioNumber)
	putNonEmpty("title", scan.Title)
	putNonEmpty("language", scan.Language)
	putNonEmpty("user", scan.User)
	for key, value := range scan.Metadata {
		putNonEmpty(key, value)
	}
	return doc
}

// shiftDocuments builds partial index updates for renumbered scans.
func shiftDocuments(shifted []repository.SequenceRef) map[string]solr.Document {
	docs := make(map[string]solr.Document, len(shifted))
	for _, ref := range shifted {
		docs[scanKey(ref.Number)] = solr.Document{"sequenceNumber": solr.Set(ref.SequenceNumber)}
	}
	return docs
}

func scanLogObjects(scan *models.Scan, message string) []models.LogObject {
	return []models.LogObject{
		{ObjectType: "scan", ObjectID: scanKey(scan.Number), Message: message},
		{ObjectType: "archivefile", ObjectID: scan.ArchiveFileID(), Message: models.LogMessageUpdate},
	}
}
