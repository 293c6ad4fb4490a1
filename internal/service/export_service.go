package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/archivebase/scanrepo/internal/dto"
	"github.com/archivebase/scanrepo/internal/models"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
	"github.com/archivebase/scanrepo/pkg/export"
)

type scanSearcher interface {
	List(ctx context.Context, filter models.ScanFilter) ([]models.Scan, int, error)
}

// ExportService renders scan listings as downloadable CSV or PDF files.
type ExportService struct {
	scans   scanSearcher
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	maxRows int
	logger  *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(scans scanSearcher, csv *export.CSVExporter, pdf *export.PDFExporter, maxRows int, logger *zap.Logger) *ExportService {
	if maxRows <= 0 {
		maxRows = 10000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{scans: scans, csv: csv, pdf: pdf, maxRows: maxRows, logger: logger}
}

var scanExportHeaders = []string{
	"number", "archive_id", "archiveFile", "sequenceNumber", "status",
	"date", "folioNumber", "title", "language", "user", "dateLastModified",
}

// ExportScans renders every scan matching the query, capped at the
// configured row limit. Supported formats are "csv" and "pdf".
func (s *ExportService) ExportScans(ctx context.Context, query dto.ScanQuery, format string) ([]byte, string, string, error) {
	if format != "csv" && format != "pdf" {
		return nil, "", "", appErrors.NewValidation([]string{`format must be "csv" or "pdf"`})
	}

	scans, err := s.collect(ctx, query)
	if err != nil {
		return nil, "", "", err
	}

	data := export.Dataset{Headers: scanExportHeaders, Rows: make([]map[string]string, 0, len(scans))}
	for i := range scans {
		data.Rows = append(data.Rows, scanExportRow(&scans[i]))
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	if format == "csv" {
		out, err := s.csv.Render(data)
		if err != nil {
			return nil, "", "", fmt.Errorf("render csv export: %w", err)
		}
		return out, "text/csv", fmt.Sprintf("scans-%s.csv", stamp), nil
	}
	out, err := s.pdf.Render(data, "Scans")
	if err != nil {
		return nil, "", "", fmt.Errorf("render pdf export: %w", err)
	}
	return out, "application/pdf", fmt.Sprintf("scans-%s.pdf", stamp), nil
}

// collect pages through the listing until the filter is exhausted or the
// export cap is reached.
func (s *ExportService) collect(ctx context.Context, query dto.ScanQuery) ([]models.Scan, error) {
	filter := models.ScanFilter{
		ArchiveID:   query.ArchiveID,
		ArchiveFile: query.ArchiveFile,
		PageSize:    500,
	}
	if query.Status != nil {
		status := models.Status(*query.Status)
		if !status.Valid() {
			return nil, appErrors.NewValidation([]string{"status must be 0, 1 or 2"})
		}
		filter.Status = &status
	}

	var all []models.Scan
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.scans.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(all) >= s.maxRows {
			s.logger.Warn("scan export truncated", zap.Int("max_rows", s.maxRows), zap.Int("total", total))
			return all[:s.maxRows], nil
		}
		if len(batch) == 0 || len(all) >= total {
			return all, nil
		}
	}
}

func scanExportRow(scan *models.Scan) map[string]string {
	return map[string]string{
		"number":           strconv.Itoa(scan.Number),
		"archive_id":       strconv.Itoa(scan.ArchiveID),
		"archiveFile":      scan.ArchiveFile,
		"sequenceNumber":   strconv.Itoa(scan.SequenceNumber),
		"status":           strconv.Itoa(int(scan.Status)),
		"date":             scan.Date,
		"folioNumber":      scan.FolioNumber,
		"title":            scan.Title,
		"language":         scan.Language,
		"user":             scan.User,
		"dateLastModified": scan.LastModified.UTC().Format(time.RFC3339),
	}
}
