package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/archivebase/scanrepo/internal/ead"
	"github.com/archivebase/scanrepo/internal/models"
	"github.com/archivebase/scanrepo/internal/solr"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
)

// EntityEad is the index entity type for finding aid documents, keyed by
// ead id.
const EntityEad = "ead"

type eadStore interface {
	Create(ctx context.Context, ead *models.EadFile) error
	GetByID(ctx context.Context, eadID string) (*models.EadFile, error)
	List(ctx context.Context) ([]models.EadFile, error)
	Update(ctx context.Context, ead *models.EadFile) error
	Delete(ctx context.Context, eadID string) error
}

type eadFiles interface {
	SaveEAD(eadID string, data []byte) error
	ReadEAD(eadID string) ([]byte, error)
	DeleteEAD(eadID string) error
}

type archiveLookup interface {
	GetByCodes(ctx context.Context, institution, archive string) (*models.Archive, error)
}

type aggregateRefresher interface {
	Refresh(ctx context.Context, group models.ScanGroup) error
	StatusOf(ctx context.Context, group models.ScanGroup) models.Status
}

// EadService manages finding aid uploads. The XML is the source of truth:
// it is stored as-is, a registration row tracks status and ownership, and
// the extracted components live only in the index where they are rebuilt
// on every upload and on reindex.
type EadService struct {
	store      eadStore
	files      eadFiles
	archives   archiveLookup
	index      entityIndex
	components entityIndex
	aggregates aggregateRefresher
	logs       auditLogger
	logger     *zap.Logger
}

// NewEadService constructs the service.
func NewEadService(store eadStore, files eadFiles, archives archiveLookup, index, components entityIndex, aggregates aggregateRefresher, logs auditLogger, logger *zap.Logger) *EadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EadService{
		store:      store,
		files:      files,
		archives:   archives,
		index:      index,
		components: components,
		aggregates: aggregates,
		logs:       logs,
		logger:     logger,
	}
}

// Upload ingests an EAD file. Re-uploading an existing ead id replaces its
// components while the publication status of the registration survives.
// Archive files dropped by the new version have their aggregates
// recomputed so unreferenced ones disappear.
func (s *EadService) Upload(ctx context.Context, user, filename string, data []byte) (*models.EadFile, error) {
	parsed, err := ead.Parse(data, fallbackEadID(filename))
	if err != nil {
		return nil, appErrors.NewValidation([]string{err.Error()})
	}

	var details []string
	if strings.Contains(parsed.EadID, "/") {
		details = append(details, fmt.Sprintf("ead id %q must not contain a slash", parsed.EadID))
	}
	if parsed.Institution == "" || parsed.Archive == "" {
		details = append(details, "archdesc/did/unitid must carry the repository code and archive code")
	}

	var archive *models.Archive
	if parsed.Institution != "" && parsed.Archive != "" {
		archive, err = s.archives.GetByCodes(ctx, parsed.Institution, parsed.Archive)
		if errors.Is(err, sql.ErrNoRows) {
			details = append(details, fmt.Sprintf("archive %s/%s is not registered", parsed.Institution, parsed.Archive))
		} else if err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool)
	for _, comp := range parsed.Components {
		if !comp.IsArchiveFile {
			continue
		}
		if seen[comp.ArchiveFile] {
			details = append(details, fmt.Sprintf("archive file %q appears more than once", comp.ArchiveFile))
		}
		seen[comp.ArchiveFile] = true
	}
	if len(details) > 0 {
		return nil, appErrors.NewValidation(details)
	}

	record := &models.EadFile{
		EadID:       parsed.EadID,
		CountryCode: parsed.CountryCode,
		Institution: parsed.Institution,
		Archive:     parsed.Archive,
		ArchiveID:   archive.ID,
		FindingAid:  parsed.FindingAid,
		Title:       parsed.Title,
		Language:    parsed.Language,
		Filename:    filename,
		Status:      models.StatusNew,
		User:        user,
	}

	previous, err := s.store.GetByID(ctx, parsed.EadID)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if exists {
		record.Status = previous.Status
		record.CreatedAt = previous.CreatedAt
	}

	oldGroups, err := s.referencedGroups(ctx, parsed.EadID)
	if err != nil {
		return nil, err
	}

	if err := s.files.SaveEAD(parsed.EadID, data); err != nil {
		return nil, err
	}
	if exists {
		err = s.store.Update(ctx, record)
	} else {
		err = s.store.Create(ctx, record)
	}
	if err != nil {
		return nil, err
	}

	// Components inherit the explicit status of their archive file so a
	// re-upload never resets a published file back to new.
	for i := range parsed.Components {
		comp := &parsed.Components[i]
		comp.Status = models.StatusNew
		if comp.IsArchiveFile {
			comp.Status = s.aggregates.StatusOf(ctx, models.ScanGroup{ArchiveID: archive.ID, ArchiveFile: comp.ArchiveFile})
		}
	}

	s.indexEad(ctx, record, parsed.Components, archive.ID)

	groups := oldGroups
	for _, comp := range parsed.Components {
		if comp.IsArchiveFile {
			groups[models.ScanGroup{ArchiveID: archive.ID, ArchiveFile: comp.ArchiveFile}] = true
		}
	}
	s.refreshAll(ctx, groups)

	message := models.LogMessageCreate
	if exists {
		message = models.LogMessageUpdate
	}
	s.logs.Record(ctx, user, []models.LogObject{
		{ObjectType: EntityEad, ObjectID: record.EadID, Message: message},
	})
	return record, nil
}

// Get returns one registration.
func (s *EadService) Get(ctx context.Context, eadID string) (*models.EadFile, error) {
	record, err := s.store.GetByID(ctx, eadID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("ead %s not found", eadID))
	}
	return record, err
}

// List returns every registration.
func (s *EadService) List(ctx context.Context) ([]models.EadFile, error) {
	return s.store.List(ctx)
}

// GetXML streams back the stored finding aid.
func (s *EadService) GetXML(ctx context.Context, eadID string) ([]byte, error) {
	if _, err := s.Get(ctx, eadID); err != nil {
		return nil, err
	}
	return s.files.ReadEAD(eadID)
}

// UpdateStatus changes the publication status of a finding aid.
func (s *EadService) UpdateStatus(ctx context.Context, user, eadID string, status int) (*models.EadFile, error) {
	st, ok := settableStatus(status)
	if !ok {
		return nil, appErrors.NewValidation([]string{"status must be 1 (new) or 2 (published)"})
	}
	record, err := s.Get(ctx, eadID)
	if err != nil {
		return nil, err
	}
	record.Status = st
	record.User = user
	if err := s.store.Update(ctx, record); err != nil {
		return nil, err
	}

	if err := s.index.Update(ctx, map[string]solr.Document{
		eadID: {"status": solr.Set(int(st))},
	}, true); err != nil {
		s.logger.Warn("ead index update failed", zap.String("ead_id", eadID), zap.Error(err))
	}
	s.logs.Record(ctx, user, []models.LogObject{
		{ObjectType: EntityEad, ObjectID: eadID, Message: models.LogMessageUpdate},
	})
	return record, nil
}

// Delete removes a finding aid, its stored XML and its index documents.
// Aggregates it referenced are recomputed so files with no scans and no
// other finding aid disappear.
func (s *EadService) Delete(ctx context.Context, user, eadID string) error {
	if _, err := s.Get(ctx, eadID); err != nil {
		return err
	}

	groups, err := s.referencedGroups(ctx, eadID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, eadID); err != nil {
		return err
	}
	if err := s.files.DeleteEAD(eadID); err != nil {
		s.logger.Warn("failed to delete ead file", zap.String("ead_id", eadID), zap.Error(err))
	}
	if err := s.index.DeleteByKey(ctx, eadID, true); err != nil {
		s.logger.Warn("failed to delete ead index document", zap.String("ead_id", eadID), zap.Error(err))
	}
	if err := s.components.DeleteByQuery(ctx, solr.EqualityQuery(map[string]string{"ead_id": eadID}), true); err != nil {
		s.logger.Warn("failed to delete component documents", zap.String("ead_id", eadID), zap.Error(err))
	}

	s.refreshAll(ctx, groups)
	s.logs.Record(ctx, user, []models.LogObject{
		{ObjectType: EntityEad, ObjectID: eadID, Message: models.LogMessageDelete},
	})
	return nil
}

// ComponentQuery filters component searches.
type ComponentQuery struct {
	EadID       string
	ArchiveID   int
	ArchiveFile string
	Text        string
	Page        int
	PageSize    int
}

// SearchComponents pages through indexed components in document order.
func (s *EadService) SearchComponents(ctx context.Context, query ComponentQuery) ([]solr.Document, int64, error) {
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
		Sort:  "sequenceNumber asc",
		Start: (page - 1) * size,
		Rows:  size,
	}
	if query.Text != "" {
		opts.Query = "text:" + solr.Escape(query.Text)
	}
	if query.EadID != "" {
		opts.FilterQueries = append(opts.FilterQueries, solr.EqualityQuery(map[string]string{"ead_id": query.EadID}))
	}
	if query.ArchiveID > 0 {
		opts.FilterQueries = append(opts.FilterQueries, fmt.Sprintf("archive_id:%d", query.ArchiveID))
	}
	if query.ArchiveFile != "" {
		opts.FilterQueries = append(opts.FilterQueries, solr.EqualityQuery(map[string]string{"archiveFile": query.ArchiveFile}))
	}

	res, err := s.components.Search(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	return res.Documents, res.Total, nil
}

// ComponentTreeNode is one visible node of the finding aid tree.
type ComponentTreeNode struct {
	ID            string               `json:"eadcomponent_id"`
	Title         string               `json:"title,omitempty"`
	Level         string               `json:"level,omitempty"`
	ArchiveFile   string               `json:"archiveFile,omitempty"`
	NumberOfScans int                  `json:"number_of_scans"`
	Children      []*ComponentTreeNode `json:"children,omitempty"`
}

// ComponentTree builds the pruned tree of a finding aid from the component
// index. Nodes flagged out of the tree, and everything below them, are
// left out.
func (s *EadService) ComponentTree(ctx context.Context, eadID string) ([]*ComponentTreeNode, error) {
	if _, err := s.Get(ctx, eadID); err != nil {
		return nil, err
	}
	res, err := s.components.Search(ctx, solr.QueryOptions{
		Query: solr.EqualityQuery(map[string]string{"ead_id": eadID, "show_in_tree": "true"}),
		Sort:  "sequenceNumber asc",
		Rows:  100000,
	})
	if err != nil {
		return nil, fmt.Errorf("search tree components of %s: %w", eadID, err)
	}

	nodes := make(map[string]*ComponentTreeNode, len(res.Documents))
	for _, doc := range res.Documents {
		id, _ := doc["eadcomponent_id"].(string)
		if id == "" {
			continue
		}
		title, _ := doc["title"].(string)
		level, _ := doc["level"].(string)
		file, _ := doc["archiveFile"].(string)
		nodes[id] = &ComponentTreeNode{
			ID:            id,
			Title:         title,
			Level:         level,
			ArchiveFile:   file,
			NumberOfScans: documentInt(doc, "number_of_scans"),
		}
	}

	var roots []*ComponentTreeNode
	for _, doc := range res.Documents {
		id, _ := doc["eadcomponent_id"].(string)
		node := nodes[id]
		if node == nil {
			continue
		}
		parentID, _ := doc["parent_id"].(string)
		if parent := nodes[parentID]; parent != nil {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}
	return roots, nil
}

// indexEad replaces the index documents derived from one finding aid.
func (s *EadService) indexEad(ctx context.Context, record *models.EadFile, components []models.Component, archiveID int) {
	if err := s.index.Update(ctx, map[string]solr.Document{record.EadID: eadDocument(record)}, true); err != nil {
		s.logger.Warn("ead index update failed", zap.String("ead_id", record.EadID), zap.Error(err))
	}
	if err := s.components.DeleteByQuery(ctx, solr.EqualityQuery(map[string]string{"ead_id": record.EadID}), false); err != nil {
		s.logger.Warn("component cleanup failed", zap.String("ead_id", record.EadID), zap.Error(err))
	}
	docs := make(map[string]solr.Document, len(components))
	for _, comp := range components {
		comp.ArchiveID = archiveID
		docs[comp.ID] = componentDocument(&comp)
	}
	if len(docs) == 0 {
		return
	}
	if err := s.components.Update(ctx, docs, true); err != nil {
		s.logger.Warn("component index update failed",
			zap.String("ead_id", record.EadID), zap.Int("components", len(docs)), zap.Error(err))
	}
}

// referencedGroups collects the archive files currently indexed for an
// ead, keyed by scan group.
func (s *EadService) referencedGroups(ctx context.Context, eadID string) (map[models.ScanGroup]bool, error) {
	res, err := s.components.Search(ctx, solr.QueryOptions{
		Query:  solr.EqualityQuery(map[string]string{"ead_id": eadID, "is_archiveFile": "true"}),
		Fields: []string{"archive_id", "archiveFile"},
		Rows:   10000,
	})
	if err != nil {
		return nil, fmt.Errorf("search components of %s: %w", eadID, err)
	}

	groups := make(map[models.ScanGroup]bool, len(res.Documents))
	for _, doc := range res.Documents {
		file, _ := doc["archiveFile"].(string)
		archiveID := documentInt(doc, "archive_id")
		if file == "" || archiveID == 0 {
			continue
		}
		groups[models.ScanGroup{ArchiveID: archiveID, ArchiveFile: file}] = true
	}
	return groups, nil
}

func (s *EadService) refreshAll(ctx context.Context, groups map[models.ScanGroup]bool) {
	for group := range groups {
		if err := s.aggregates.Refresh(ctx, group); err != nil {
			s.logger.Warn("aggregate refresh failed",
				zap.String("archivefile_id", group.ID()), zap.Error(err))
		}
	}
}

// documentInt reads a numeric index field that may come back as float64
// or json.Number depending on the decoder.
func documentInt(doc solr.Document, field string) int {
	switch v := doc[field].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		n := 0
		fmt.Sscanf(v, "%d", &n)
		return n
	default:
		return 0
	}
}

func fallbackEadID(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func eadDocument(record *models.EadFile) solr.Document {
	doc := solr.Document{
		"ead_id":           record.EadID,
		"country_code":     record.CountryCode,
		"institution":      record.Institution,
		"archive":          record.Archive,
		"archive_id":       record.ArchiveID,
		"findingaid":       record.FindingAid,
		"filename":         record.Filename,
		"status":           int(record.Status),
		"dateLastModified": record.LastModified,
	}
	if record.Title != "" {
		doc["title"] = record.Title
	}
	if record.Language != "" {
		doc["language"] = record.Language
	}
	if record.User != "" {
		doc["user"] = record.User
	}
	return doc
}

func componentDocument(comp *models.Component) solr.Document {
	doc := solr.Document{
		"eadcomponent_id": comp.ID,
		"ead_id":          comp.EadID,
		"xpath":           comp.XPath,
		"archive_id":      comp.ArchiveID,
		"is_component":    comp.IsComponent,
		"is_archiveFile":  comp.IsArchiveFile,
		"show_in_tree":    comp.ShowInTree,
		"sequenceNumber":  comp.SequenceNumber,
		"number_of_scans": comp.NumberOfScans,
		"status":          int(comp.Status),
	}
	putNonEmpty := func(field, value string) {
		if value != "" {
			doc[field] = value
		}
	}
	putNonEmpty("parent_id", comp.ParentID)
	putNonEmpty("level", comp.Level)
	putNonEmpty("title", comp.Title)
	putNonEmpty("text", comp.Text)
	putNonEmpty("date_from", comp.DateFrom)
	putNonEmpty("date_to", comp.DateTo)
	if comp.IsArchiveFile {
		doc["archiveFile"] = comp.ArchiveFile
		doc["archivefile_id"] = models.ArchiveFileID(comp.ArchiveID, comp.ArchiveFile)
	}
	return doc
}
