package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archivebase/scanrepo/internal/models"
	"github.com/archivebase/scanrepo/internal/solr"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
)

const testEadXML = `<?xml version="1.0" encoding="UTF-8"?>
<ead>
  <eadheader>
    <eadid countrycode="NL" urn="NL-HaNA_1.04.02">1.04.02</eadid>
    <filedesc><titlestmt><titleproper>Inventaris van het archief van de VOC</titleproper></titlestmt></filedesc>
    <profiledesc><langusage><language langcode="nl">Nederlands</language></langusage></profiledesc>
  </eadheader>
  <archdesc level="fonds">
    <did><unitid repositorycode="NL-HaNA">1.04.02</unitid></did>
    <dsc>
      <c01 level="series">
        <did><unittitle>Journalen</unittitle></did>
        <c02 level="file"><did><unitid>23</unitid><unittitle>Journaal 1625</unittitle></did></c02>
        <c02 level="file"><did><unitid>24</unitid><unittitle>Journaal 1626</unittitle></did></c02>
      </c01>
    </dsc>
  </archdesc>
</ead>`

type stubEadStore struct {
	eads    map[string]*models.EadFile
	created []*models.EadFile
	updated []*models.EadFile
	deleted []string
}

func (s *stubEadStore) Create(ctx context.Context, ead *models.EadFile) error {
	s.created = append(s.created, ead)
	if s.eads == nil {
		s.eads = map[string]*models.EadFile{}
	}
	s.eads[ead.EadID] = ead
	return nil
}

func (s *stubEadStore) GetByID(ctx context.Context, eadID string) (*models.EadFile, error) {
	ead, ok := s.eads[eadID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return ead, nil
}

func (s *stubEadStore) List(ctx context.Context) ([]models.EadFile, error) {
	var out []models.EadFile
	for _, ead := range s.eads {
		out = append(out, *ead)
	}
	return out, nil
}

func (s *stubEadStore) Update(ctx context.Context, ead *models.EadFile) error {
	s.updated = append(s.updated, ead)
	s.eads[ead.EadID] = ead
	return nil
}

func (s *stubEadStore) Delete(ctx context.Context, eadID string) error {
	s.deleted = append(s.deleted, eadID)
	delete(s.eads, eadID)
	return nil
}

type stubEadFiles struct {
	saved   map[string][]byte
	deleted []string
}

func (s *stubEadFiles) SaveEAD(eadID string, data []byte) error {
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	s.saved[eadID] = data
	return nil
}

func (s *stubEadFiles) ReadEAD(eadID string) ([]byte, error) {
	return s.saved[eadID], nil
}

func (s *stubEadFiles) DeleteEAD(eadID string) error {
	s.deleted = append(s.deleted, eadID)
	return nil
}

func newEadService(store *stubEadStore, files *stubEadFiles, index, components *stubIndex, refresher *stubRefresher) *EadService {
	archives := &stubArchives{byCodes: map[string]*models.Archive{
		"NL-HaNA/1.04.02": {ID: 12, Institution: "NL-HaNA", Archive: "1.04.02"},
	}}
	return NewEadService(store, files, archives, index, components, refresher, &stubAudit{}, nil)
}

func TestEadUploadIndexesComponents(t *testing.T) {
	store := &stubEadStore{}
	files := &stubEadFiles{}
	index := &stubIndex{}
	components := &stubIndex{searchFn: componentResult()}
	refresher := &stubRefresher{}
	svc := newEadService(store, files, index, components, refresher)

	record, err := svc.Upload(context.Background(), "curator", "voc.xml", []byte(testEadXML))
	require.NoError(t, err)
	require.Equal(t, "NL-HaNA_1.04.02", record.EadID)
	require.Equal(t, 12, record.ArchiveID)
	require.Equal(t, models.StatusNew, record.Status)
	require.Len(t, store.created, 1)
	require.Contains(t, files.saved, "NL-HaNA_1.04.02")

	require.Contains(t, index.docs, "NL-HaNA_1.04.02")
	require.Equal(t, "Inventaris van het archief van de VOC", index.docs["NL-HaNA_1.04.02"]["title"])

	var fileDocs []solr.Document
	for _, doc := range components.docs {
		if doc["is_archiveFile"] == true {
			fileDocs = append(fileDocs, doc)
		}
	}
	require.Len(t, fileDocs, 2)
	for _, doc := range fileDocs {
		require.Equal(t, 12, doc["archive_id"])
		require.Contains(t, []interface{}{"12/23", "12/24"}, doc["archivefile_id"])
		require.Equal(t, int(models.StatusNew), doc["status"])
		// Archive file leaves stay out of the pruned component tree.
		require.Equal(t, false, doc["show_in_tree"])
	}

	require.ElementsMatch(t, []models.ScanGroup{
		{ArchiveID: 12, ArchiveFile: "23"},
		{ArchiveID: 12, ArchiveFile: "24"},
	}, refresher.refreshed)
}

func TestEadReUploadPreservesStatus(t *testing.T) {
	store := &stubEadStore{eads: map[string]*models.EadFile{
		"NL-HaNA_1.04.02": {EadID: "NL-HaNA_1.04.02", Status: models.StatusPublished},
	}}
	components := &stubIndex{searchFn: componentResult()}
	svc := newEadService(store, &stubEadFiles{}, &stubIndex{}, components, &stubRefresher{})

	record, err := svc.Upload(context.Background(), "curator", "voc.xml", []byte(testEadXML))
	require.NoError(t, err)
	require.Equal(t, models.StatusPublished, record.Status)
	require.Len(t, store.updated, 1)
	require.Empty(t, store.created)
}

func TestEadUploadPropagatesArchiveFileStatus(t *testing.T) {
	components := &stubIndex{searchFn: componentResult()}
	refresher := &stubRefresher{statuses: map[models.ScanGroup]models.Status{
		{ArchiveID: 12, ArchiveFile: "23"}: models.StatusPublished,
	}}
	svc := newEadService(&stubEadStore{}, &stubEadFiles{}, &stubIndex{}, components, refresher)

	_, err := svc.Upload(context.Background(), "curator", "voc.xml", []byte(testEadXML))
	require.NoError(t, err)

	byFile := map[interface{}]solr.Document{}
	for _, doc := range components.docs {
		if doc["is_archiveFile"] == true {
			byFile[doc["archivefile_id"]] = doc
		}
	}
	require.Equal(t, int(models.StatusPublished), byFile["12/23"]["status"])
	require.Equal(t, int(models.StatusNew), byFile["12/24"]["status"])
}

func TestEadUploadRefreshesDroppedFiles(t *testing.T) {
	store := &stubEadStore{eads: map[string]*models.EadFile{
		"NL-HaNA_1.04.02": {EadID: "NL-HaNA_1.04.02", Status: models.StatusNew},
	}}
	// The previous upload referenced archive file 25, which the new
	// version no longer carries.
	components := &stubIndex{searchFn: componentResult(
		solr.Document{"archive_id": 12, "archiveFile": "25"},
	)}
	refresher := &stubRefresher{}
	svc := newEadService(store, &stubEadFiles{}, &stubIndex{}, components, refresher)

	_, err := svc.Upload(context.Background(), "curator", "voc.xml", []byte(testEadXML))
	require.NoError(t, err)
	require.Contains(t, refresher.refreshed, models.ScanGroup{ArchiveID: 12, ArchiveFile: "25"})
}

func TestEadUploadUnknownArchive(t *testing.T) {
	svc := NewEadService(&stubEadStore{}, &stubEadFiles{}, &stubArchives{},
		&stubIndex{}, &stubIndex{searchFn: componentResult()}, &stubRefresher{}, &stubAudit{}, nil)

	_, err := svc.Upload(context.Background(), "curator", "voc.xml", []byte(testEadXML))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Contains(t, appErr.Details[0], "NL-HaNA/1.04.02")
}

func TestEadUploadRejectsGarbage(t *testing.T) {
	svc := newEadService(&stubEadStore{}, &stubEadFiles{}, &stubIndex{},
		&stubIndex{searchFn: componentResult()}, &stubRefresher{})

	_, err := svc.Upload(context.Background(), "curator", "junk.xml", []byte("not xml at all"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEadComponentTree(t *testing.T) {
	store := &stubEadStore{eads: map[string]*models.EadFile{
		"aid": {EadID: "aid"},
	}}
	// The index only returns tree-visible nodes; pruned leaves never come
	// back from the filtered query.
	components := &stubIndex{searchFn: componentResult(
		solr.Document{"eadcomponent_id": "aid/c01[1]", "title": "Resoluties", "level": "series"},
		solr.Document{"eadcomponent_id": "aid/c01[1]/c02[1]", "title": "Minuten", "level": "subseries", "parent_id": "aid/c01[1]"},
		solr.Document{"eadcomponent_id": "aid/c01[2]", "title": "Brieven", "level": "series"},
	)}
	svc := newEadService(store, &stubEadFiles{}, &stubIndex{}, components, &stubRefresher{})

	tree, err := svc.ComponentTree(context.Background(), "aid")
	require.NoError(t, err)
	require.Len(t, tree, 2)
	require.Equal(t, "Resoluties", tree[0].Title)
	require.Len(t, tree[0].Children, 1)
	require.Equal(t, "Minuten", tree[0].Children[0].Title)
	require.Equal(t, "Brieven", tree[1].Title)
	require.Empty(t, tree[1].Children)
}

func TestEadComponentTreeUnknownEad(t *testing.T) {
	svc := newEadService(&stubEadStore{}, &stubEadFiles{}, &stubIndex{},
		&stubIndex{searchFn: componentResult()}, &stubRefresher{})

	_, err := svc.ComponentTree(context.Background(), "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEadSearchComponentsBuildsQuery(t *testing.T) {
	var seen solr.QueryOptions
	components := &stubIndex{searchFn: func(opts solr.QueryOptions) *solr.QueryResult {
		seen = opts
		return &solr.QueryResult{Total: 1, Documents: []solr.Document{{"eadcomponent_id": "aid/c01[1]"}}}
	}}
	svc := newEadService(&stubEadStore{}, &stubEadFiles{}, &stubIndex{}, components, &stubRefresher{})

	docs, total, err := svc.SearchComponents(context.Background(), ComponentQuery{
		EadID:       "aid",
		ArchiveID:   12,
		ArchiveFile: "23",
		Text:        "resoluties",
		Page:        2,
		PageSize:    10,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, docs, 1)

	require.Equal(t, "text:resoluties", seen.Query)
	require.Equal(t, "sequenceNumber asc", seen.Sort)
	require.Equal(t, 10, seen.Start)
	require.Equal(t, 10, seen.Rows)
	require.Len(t, seen.FilterQueries, 3)
}

func TestEadDeleteCleansUp(t *testing.T) {
	store := &stubEadStore{eads: map[string]*models.EadFile{
		"NL-HaNA_1.04.02": {EadID: "NL-HaNA_1.04.02"},
	}}
	files := &stubEadFiles{saved: map[string][]byte{"NL-HaNA_1.04.02": []byte(testEadXML)}}
	index := &stubIndex{}
	components := &stubIndex{searchFn: componentResult(
		solr.Document{"archive_id": 12, "archiveFile": "23"},
	)}
	refresher := &stubRefresher{}
	svc := newEadService(store, files, index, components, refresher)

	require.NoError(t, svc.Delete(context.Background(), "curator", "NL-HaNA_1.04.02"))

	require.Equal(t, []string{"NL-HaNA_1.04.02"}, store.deleted)
	require.Equal(t, []string{"NL-HaNA_1.04.02"}, files.deleted)
	require.Equal(t, []string{"NL-HaNA_1.04.02"}, index.deleted)
	require.NotEmpty(t, components.queries)
	require.Equal(t, []models.ScanGroup{{ArchiveID: 12, ArchiveFile: "23"}}, refresher.refreshed)
}

func TestEadUpdateStatus(t *testing.T) {
	store := &stubEadStore{eads: map[string]*models.EadFile{
		"NL-HaNA_1.04.02": {EadID: "NL-HaNA_1.04.02", Status: models.StatusNew},
	}}
	index := &stubIndex{}
	svc := newEadService(store, &stubEadFiles{}, index, &stubIndex{searchFn: componentResult()}, &stubRefresher{})

	record, err := svc.UpdateStatus(context.Background(), "curator", "NL-HaNA_1.04.02", 2)
	require.NoError(t, err)
	require.Equal(t, models.StatusPublished, record.Status)
	require.Equal(t, solr.Document{"status": solr.Set(2)}, index.docs["NL-HaNA_1.04.02"])

	_, err = svc.UpdateStatus(context.Background(), "curator", "NL-HaNA_1.04.02", 0)
	require.Error(t, err)
}
