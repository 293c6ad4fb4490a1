package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archivebase/scanrepo/internal/dto"
	"github.com/archivebase/scanrepo/internal/models"
	"github.com/archivebase/scanrepo/internal/repository"
	"github.com/archivebase/scanrepo/internal/solr"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
)

type stubScanStore struct {
	scans           map[int]*models.Scan
	nextNumber      int
	inserted        []*models.Scan
	saved           []*models.Scan
	removed         []int
	moveShifted     []repository.SequenceRef
	transferShifted []repository.SequenceRef
	transferFrom    []models.ScanGroup
}

func (s *stubScanStore) Insert(ctx context.Context, scan *models.Scan) error {
	s.nextNumber++
	scan.Number = s.nextNumber
	scan.SequenceNumber = len(s.inserted) + 1
	s.inserted = append(s.inserted, scan)
	if s.scans == nil {
		s.scans = map[int]*models.Scan{}
	}
	s.scans[scan.Number] = scan
	return nil
}

func (s *stubScanStore) Remove(ctx context.Context, number int) (*models.Scan, []repository.SequenceRef, error) {
	scan, ok := s.scans[number]
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "scan not found")
	}
	delete(s.scans, number)
	s.removed = append(s.removed, number)
	return scan, s.moveShifted, nil
}

func (s *stubScanStore) Move(ctx context.Context, number, after int) (*models.Scan, []repository.SequenceRef, error) {
	scan, ok := s.scans[number]
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "scan not found")
	}
	if len(s.moveShifted) > 0 {
		scan.SequenceNumber = after
	}
	return scan, s.moveShifted, nil
}

func (s *stubScanStore) Transfer(ctx context.Context, scan *models.Scan, from models.ScanGroup) ([]repository.SequenceRef, error) {
	s.transferFrom = append(s.transferFrom, from)
	scan.SequenceNumber = 1
	return s.transferShifted, nil
}

func (s *stubScanStore) Get(ctx context.Context, number int) (*models.Scan, error) {
	scan, ok := s.scans[number]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scan not found")
	}
	return scan, nil
}

func (s *stubScanStore) Save(ctx context.Context, scan *models.Scan) error {
	s.saved = append(s.saved, scan)
	return nil
}

func (s *stubScanStore) ListGroup(ctx context.Context, group models.ScanGroup) ([]models.Scan, error) {
	var out []models.Scan
	for _, scan := range s.scans {
		if scan.GroupKey() == group {
			out = append(out, *scan)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out, nil
}

type stubIndex struct {
	docs       map[string]solr.Document
	deleted    []string
	queries    []string
	searchFn   func(opts solr.QueryOptions) *solr.QueryResult
	err        error
	committed  int
	lastCommit bool
}

func (s *stubIndex) Search(ctx context.Context, opts solr.QueryOptions) (*solr.QueryResult, error) {
	if s.searchFn != nil {
		return s.searchFn(opts), s.err
	}
	return &solr.QueryResult{}, s.err
}

func (s *stubIndex) Update(ctx context.Context, docs map[string]solr.Document, commit bool) error {
	if s.err != nil {
		return s.err
	}
	if s.docs == nil {
		s.docs = map[string]solr.Document{}
	}
	for key, doc := range docs {
		s.docs[key] = doc
	}
	s.lastCommit = commit
	return nil
}

func (s *stubIndex) DeleteByKey(ctx context.Context, key string, commit bool) error {
	s.deleted = append(s.deleted, key)
	return s.err
}

func (s *stubIndex) DeleteByQuery(ctx context.Context, query string, commit bool) error {
	s.queries = append(s.queries, query)
	return s.err
}

func (s *stubIndex) Commit(ctx context.Context) error {
	s.committed++
	return s.err
}

type stubRefresher struct {
	refreshed []models.ScanGroup
	statuses  map[models.ScanGroup]models.Status
}

func (s *stubRefresher) ScansChanged(ctx context.Context, group models.ScanGroup) error {
	s.refreshed = append(s.refreshed, group)
	return nil
}

func (s *stubRefresher) Refresh(ctx context.Context, group models.ScanGroup) error {
	return s.ScansChanged(ctx, group)
}

func (s *stubRefresher) Reindex(ctx context.Context, group models.ScanGroup) error {
	return s.ScansChanged(ctx, group)
}

func (s *stubRefresher) StatusOf(ctx context.Context, group models.ScanGroup) models.Status {
	if st, ok := s.statuses[group]; ok {
		return st
	}
	return models.StatusNew
}

type stubAudit struct {
	users   []string
	objects [][]models.LogObject
}

func (s *stubAudit) Record(ctx context.Context, user string, objects []models.LogObject) {
	s.users = append(s.users, user)
	s.objects = append(s.objects, objects)
}

type stubArchives struct {
	existing map[int]bool
	byCodes  map[string]*models.Archive
}

func (s *stubArchives) GetByID(ctx context.Context, id int) (*models.Archive, error) {
	if !s.existing[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Archive{ID: id}, nil
}

func (s *stubArchives) GetByCodes(ctx context.Context, institution, archive string) (*models.Archive, error) {
	a, ok := s.byCodes[institution+"/"+archive]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return a, nil
}

type stubScanFiles struct {
	deleted []int
}

func (s *stubScanFiles) DeleteScan(scanNumber int) error {
	s.deleted = append(s.deleted, scanNumber)
	return nil
}

func newScanService(store *stubScanStore, index *stubIndex, refresher *stubRefresher, audit *stubAudit) *ScanService {
	return NewScanService(store,
		&stubArchives{existing: map[int]bool{12: true, 13: true}},
		&stubScanFiles{}, index, refresher, audit, nil, nil)
}

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

func TestScanServiceCreateCollectsAllValidationErrors(t *testing.T) {
	svc := newScanService(&stubScanStore{}, &stubIndex{}, &stubRefresher{}, &stubAudit{})

	_, err := svc.Create(context.Background(), "curator", dto.ScanFields{
		Status:   intPtr(0),
		Metadata: map[string]string{"bogus": "x"},
	})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Len(t, appErr.Details, 4)
}

func TestScanServiceCreateRejectsUnknownArchive(t *testing.T) {
	svc := newScanService(&stubScanStore{}, &stubIndex{}, &stubRefresher{}, &stubAudit{})

	_, err := svc.Create(context.Background(), "curator", dto.ScanFields{
		ArchiveID:   intPtr(99),
		ArchiveFile: strPtr("23"),
	})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Contains(t, appErr.Details[0], "archive 99")
}

func TestScanServiceCreateIndexesAndRefreshes(t *testing.T) {
	store := &stubScanStore{}
	index := &stubIndex{}
	refresher := &stubRefresher{}
	audit := &stubAudit{}
	svc := newScanService(store, index, refresher, audit)

	scan, err := svc.Create(context.Background(), "curator", dto.ScanFields{
		ArchiveID:   intPtr(12),
		ArchiveFile: strPtr("23"),
		Title:       strPtr("Journal 1625"),
		Metadata:    map[string]string{"transcription": "folio one"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, scan.SequenceNumber)
	require.Equal(t, models.StatusNew, scan.Status)

	doc := index.docs[scanKey(scan.Number)]
	require.NotNil(t, doc)
	require.Equal(t, "12/23", doc["archivefile_id"])
	require.Equal(t, "folio one", doc["transcription"])

	require.Equal(t, []models.ScanGroup{{ArchiveID: 12, ArchiveFile: "23"}}, refresher.refreshed)
	require.Equal(t, []string{"curator"}, audit.users)
	require.Equal(t, "scan", audit.objects[0][0].ObjectType)
	require.Equal(t, models.LogMessageCreate, audit.objects[0][0].Message)
}

func TestScanServiceMovePushesPartialUpdates(t *testing.T) {
	store := &stubScanStore{
		scans: map[int]*models.Scan{
			102: {Number: 102, ArchiveID: 12, ArchiveFile: "23", SequenceNumber: 2},
		},
		moveShifted: []repository.SequenceRef{
			{Number: 103, SequenceNumber: 2},
			{Number: 104, SequenceNumber: 3},
		},
	}
	index := &stubIndex{}
	refresher := &stubRefresher{}
	svc := newScanService(store, index, refresher, &stubAudit{})

	scan, err := svc.Move(context.Background(), "curator", 102, 3)
	require.NoError(t, err)
	require.Equal(t, 3, scan.SequenceNumber)

	require.Equal(t, solr.Document{"sequenceNumber": solr.Set(3)}, index.docs["102"])
	require.Equal(t, solr.Document{"sequenceNumber": solr.Set(2)}, index.docs["103"])
	require.Equal(t, solr.Document{"sequenceNumber": solr.Set(3)}, index.docs["104"])
	require.Len(t, refresher.refreshed, 1)
}

func TestScanServiceMoveNoOpSkipsIndex(t *testing.T) {
	store := &stubScanStore{
		scans: map[int]*models.Scan{
			102: {Number: 102, ArchiveID: 12, ArchiveFile: "23", SequenceNumber: 2},
		},
	}
	index := &stubIndex{}
	svc := newScanService(store, index, &stubRefresher{}, &stubAudit{})

	_, err := svc.Move(context.Background(), "curator", 102, 1)
	require.NoError(t, err)
	require.Empty(t, index.docs)
}

func TestScanServiceUpdateMovesAcrossGroups(t *testing.T) {
	store := &stubScanStore{
		scans: map[int]*models.Scan{
			102: {Number: 102, ArchiveID: 12, ArchiveFile: "23", SequenceNumber: 2, Status: models.StatusPublished},
		},
		transferShifted: []repository.SequenceRef{{Number: 103, SequenceNumber: 2}},
	}
	index := &stubIndex{}
	refresher := &stubRefresher{}
	svc := newScanService(store, index, refresher, &stubAudit{})

	scan, err := svc.Update(context.Background(), "curator", 102, dto.ScanFields{
		ArchiveFile: strPtr("24"),
	})
	require.NoError(t, err)
	require.Equal(t, "24", scan.ArchiveFile)
	require.Equal(t, 1, scan.SequenceNumber)
	require.Equal(t, models.StatusPublished, scan.Status)

	require.Equal(t, []models.ScanGroup{{ArchiveID: 12, ArchiveFile: "23"}}, store.transferFrom)
	require.Equal(t, "12/24", index.docs["102"]["archivefile_id"])
	require.Equal(t, solr.Document{"sequenceNumber": solr.Set(2)}, index.docs["103"])
	require.Equal(t, []models.ScanGroup{
		{ArchiveID: 12, ArchiveFile: "23"},
		{ArchiveID: 12, ArchiveFile: "24"},
	}, refresher.refreshed)
}

func TestScanServiceUpdateMetadataMerge(t *testing.T) {
	store := &stubScanStore{
		scans: map[int]*models.Scan{
			102: {Number: 102, ArchiveID: 12, ArchiveFile: "23", SequenceNumber: 2,
				Metadata: models.Metadata{"transcription": "old", "source": "book"}},
		},
	}
	svc := newScanService(store, &stubIndex{}, &stubRefresher{}, &stubAudit{})

	scan, err := svc.Update(context.Background(), "curator", 102, dto.ScanFields{
		Metadata: map[string]string{"transcription": "new", "source": ""},
	})
	require.NoError(t, err)
	require.Equal(t, models.Metadata{"transcription": "new"}, scan.Metadata)
	require.Len(t, store.saved, 1)
}

func TestScanServiceDeleteCleansUp(t *testing.T) {
	store := &stubScanStore{
		scans: map[int]*models.Scan{
			103: {Number: 103, ArchiveID: 12, ArchiveFile: "23", SequenceNumber: 3},
		},
		moveShifted: []repository.SequenceRef{{Number: 104, SequenceNumber: 3}},
	}
	index := &stubIndex{}
	files := &stubScanFiles{}
	refresher := &stubRefresher{}
	audit := &stubAudit{}
	svc := NewScanService(store, &stubArchives{existing: map[int]bool{12: true}}, files, index, refresher, audit, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "curator", 103))

	require.Equal(t, []int{103}, files.deleted)
	require.Equal(t, []string{"103"}, index.deleted)
	require.Equal(t, solr.Document{"sequenceNumber": solr.Set(3)}, index.docs["104"])
	require.Len(t, refresher.refreshed, 1)
	require.Equal(t, models.LogMessageDelete, audit.objects[0][0].Message)
}

func TestScanListQueriesIndex(t *testing.T) {
	var captured solr.QueryOptions
	index := &stubIndex{searchFn: func(opts solr.QueryOptions) *solr.QueryResult {
		captured = opts
		return &solr.QueryResult{
			Total:     42,
			Documents: []solr.Document{{"number": 101}},
			Facets:    map[string][]solr.FacetCount{"status": {{Value: "2", Count: 40}}},
		}
	}}
	svc := newScanService(&stubScanStore{}, index, &stubRefresher{}, &stubAudit{})

	archiveID := 12
	status := 2
	page, err := svc.List(context.Background(), dto.ScanQuery{
		ArchiveID:   &archiveID,
		ArchiveFile: "23 A",
		Status:      &status,
		Page:        3,
		PageSize:    10,
	})
	require.NoError(t, err)
	require.EqualValues(t, 42, page.Total)
	require.Len(t, page.Documents, 1)
	require.Equal(t, int64(40), page.Facets["status"][0].Count)

	require.Equal(t, "*:*", captured.Query)
	require.Equal(t, 20, captured.Start)
	require.Equal(t, 10, captured.Rows)
	require.Equal(t, []string{"archive_id", "status"}, captured.FacetFields)
	require.Equal(t, []string{"archive_id:12", `archiveFile:23\ A`, "status:2"}, captured.FilterQueries)
}

func TestScanListRejectsUnknownStatus(t *testing.T) {
	svc := newScanService(&stubScanStore{}, &stubIndex{}, &stubRefresher{}, &stubAudit{})

	status := 7
	_, err := svc.List(context.Background(), dto.ScanQuery{Status: &status})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
