package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/archivebase/scanrepo/internal/ead"
	"github.com/archivebase/scanrepo/internal/models"
	"github.com/archivebase/scanrepo/internal/solr"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
)

type scanLister interface {
	ListAll(ctx context.Context, afterNumber, batchSize int) ([]models.Scan, error)
}

type recordLister interface {
	ListAll(ctx context.Context) ([]models.ArchiveFileRecord, error)
}

type aggregateRebuilder interface {
	Reindex(ctx context.Context, group models.ScanGroup) error
}

// ReindexStats summarises one reindex run.
type ReindexStats struct {
	Eads         int       `json:"eads"`
	Components   int       `json:"components"`
	ArchiveFiles int       `json:"archivefiles"`
	Scans        int       `json:"scans"`
	StartedAt    time.Time `json:"started_at"`
	Duration     string    `json:"duration"`
}

// ReindexService rebuilds the whole search index from the database and the
// stored EAD files. The relational data and the XML are authoritative;
// whatever the index held before is discarded. Entities are rebuilt in
// dependency order and the archive file aggregates run twice so their scan
// counts see the freshly indexed scans.
type ReindexService struct {
	eads       eadStore
	files      eadFiles
	scans      scanLister
	records    recordLister
	eadIndex   entityIndex
	components entityIndex
	scanIndex  entityIndex
	aggregates aggregateRebuilder
	batchSize  int
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewReindexService constructs the service.
func NewReindexService(eads eadStore, files eadFiles, scans scanLister, records recordLister, eadIndex, components, scanIndex entityIndex, aggregates aggregateRebuilder, batchSize int, logger *zap.Logger) *ReindexService {
	if batchSize <= 0 {
		batchSize = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReindexService{
		eads:       eads,
		files:      files,
		scans:      scans,
		records:    records,
		eadIndex:   eadIndex,
		components: components,
		scanIndex:  scanIndex,
		aggregates: aggregates,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// Run rebuilds the index. Only one run is allowed at a time.
func (s *ReindexService) Run(ctx context.Context) (*ReindexStats, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrConflict, "a reindex is already running")
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	stats := &ReindexStats{StartedAt: time.Now().UTC()}
	groups := make(map[models.ScanGroup]bool)

	if err := s.rebuildEads(ctx, stats, groups); err != nil {
		return nil, err
	}
	if err := s.rebuildAggregates(ctx, groups); err != nil {
		return nil, err
	}
	stats.ArchiveFiles = len(groups)
	if err := s.rebuildScans(ctx, stats, groups); err != nil {
		return nil, err
	}
	// Second aggregate pass: scan counts were zero the first time around
	// because the scan documents did not exist yet.
	if err := s.rebuildAggregates(ctx, groups); err != nil {
		return nil, err
	}
	stats.ArchiveFiles = len(groups)

	stats.Duration = time.Since(stats.StartedAt).Round(time.Millisecond).String()
	s.logger.Info("reindex finished",
		zap.Int("eads", stats.Eads),
		zap.Int("components", stats.Components),
		zap.Int("archivefiles", stats.ArchiveFiles),
		zap.Int("scans", stats.Scans),
		zap.String("duration", stats.Duration))
	return stats, nil
}

func (s *ReindexService) rebuildEads(ctx context.Context, stats *ReindexStats, groups map[models.ScanGroup]bool) error {
	records, err := s.eads.List(ctx)
	if err != nil {
		return fmt.Errorf("list eads: %w", err)
	}

	if err := s.eadIndex.DeleteByQuery(ctx, "*:*", false); err != nil {
		return err
	}
	if err := s.components.DeleteByQuery(ctx, "*:*", false); err != nil {
		return err
	}

	for i := range records {
		record := &records[i]
		data, err := s.files.ReadEAD(record.EadID)
		if err != nil {
			s.logger.Warn("skipping ead with unreadable file",
				zap.String("ead_id", record.EadID), zap.Error(err))
			continue
		}
		parsed, err := ead.Parse(data, record.EadID)
		if err != nil {
			s.logger.Warn("skipping unparsable ead",
				zap.String("ead_id", record.EadID), zap.Error(err))
			continue
		}

		if err := s.eadIndex.Update(ctx, map[string]solr.Document{record.EadID: eadDocument(record)}, false); err != nil {
			return err
		}
		stats.Eads++

		docs := make(map[string]solr.Document, len(parsed.Components))
		for _, comp := range parsed.Components {
			comp.ArchiveID = record.ArchiveID
			// The aggregate pass overwrites this with any explicit status.
			comp.Status = models.StatusNew
			docs[comp.ID] = componentDocument(&comp)
			if comp.IsArchiveFile {
				groups[models.ScanGroup{ArchiveID: record.ArchiveID, ArchiveFile: comp.ArchiveFile}] = true
			}
		}
		if len(docs) > 0 {
			if err := s.components.Update(ctx, docs, false); err != nil {
				return err
			}
			stats.Components += len(docs)
		}
	}

	return s.eadIndex.Commit(ctx)
}

func (s *ReindexService) rebuildScans(ctx context.Context, stats *ReindexStats, groups map[models.ScanGroup]bool) error {
	if err := s.scanIndex.DeleteByQuery(ctx, "*:*", false); err != nil {
		return err
	}

	after := 0
	for {
		batch, err := s.scans.ListAll(ctx, after, s.batchSize)
		if err != nil {
			return fmt.Errorf("list scans after %d: %w", after, err)
		}
		if len(batch) == 0 {
			break
		}
		docs := make(map[string]solr.Document, len(batch))
		for i := range batch {
			scan := &batch[i]
			docs[scanKey(scan.Number)] = scanDocument(scan)
			groups[scan.GroupKey()] = true
		}
		if err := s.scanIndex.Update(ctx, docs, false); err != nil {
			return err
		}
		stats.Scans += len(batch)
		after = batch[len(batch)-1].Number
	}
	return s.scanIndex.Commit(ctx)
}

func (s *ReindexService) rebuildAggregates(ctx context.Context, groups map[models.ScanGroup]bool) error {
	records, err := s.records.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list archive file records: %w", err)
	}
	for _, record := range records {
		groups[models.ScanGroup{ArchiveID: record.ArchiveID, ArchiveFile: record.ArchiveFile}] = true
	}

	for group := range groups {
		if err := s.aggregates.Reindex(ctx, group); err != nil {
			return fmt.Errorf("rebuild aggregate %s: %w", group.ID(), err)
		}
	}
	return nil
}
