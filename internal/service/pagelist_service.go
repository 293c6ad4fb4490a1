package service

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/archivebase/scanrepo/internal/models"
)

type pagelistCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Pagelist is the page ordering document consumed by the pagebrowser.
type Pagelist struct {
	XMLName       xml.Name `xml:"pagelist"`
	ArchiveFileID string   `xml:"archivefile,attr"`
	Count         int      `xml:"count,attr"`
	Pages         []Page   `xml:"page"`
}

// Page is one entry of a pagelist, ordered by sequence number.
type Page struct {
	Sequence int    `xml:"seq,attr"`
	Scan     int    `xml:"scan,attr"`
	Status   int    `xml:"status,attr"`
	Folio    string `xml:"folio,attr,omitempty"`
	Title    string `xml:"title,attr,omitempty"`
}

// PagelistService renders the XML pagelist of an archive file. Rendered
// documents are cached in Redis for a short TTL; the sequence guarantees
// make the list cheap to rebuild so staleness is bounded by the TTL alone.
type PagelistService struct {
	scans   scanGroupLister
	cache   pagelistCache
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

type scanGroupLister interface {
	ListGroup(ctx context.Context, group models.ScanGroup) ([]models.Scan, error)
}

// NewPagelistService constructs the service. cache and metrics may be nil.
func NewPagelistService(scans scanGroupLister, cache pagelistCache, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *PagelistService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PagelistService{scans: scans, cache: cache, ttl: ttl, metrics: metrics, logger: logger}
}

// Render returns the pagelist XML for one archive file.
func (s *PagelistService) Render(ctx context.Context, group models.ScanGroup) ([]byte, error) {
	key := "pagelist:" + group.ID()
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			if s.metrics != nil {
				s.metrics.PagelistCacheHit()
			}
			return cached, nil
		}
	}
	if s.metrics != nil {
		s.metrics.PagelistCacheMiss()
	}

	scans, err := s.scans.ListGroup(ctx, group)
	if err != nil {
		return nil, err
	}

	list := Pagelist{ArchiveFileID: group.ID(), Count: len(scans)}
	for i := range scans {
		scan := &scans[i]
		list.Pages = append(list.Pages, Page{
			Sequence: scan.SequenceNumber,
			Scan:     scan.Number,
			Status:   int(scan.Status),
			Folio:    scan.FolioNumber,
			Title:    scan.Title,
		})
	}

	out, err := xml.MarshalIndent(list, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal pagelist: %w", err)
	}
	out = append([]byte(xml.Header), out...)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, out, s.ttl).Err(); err != nil {
			s.logger.Warn("failed to cache pagelist", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}
