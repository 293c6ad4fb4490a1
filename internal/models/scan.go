package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Status is the publication state shared by scans, EAD files and archive
// file records.
type Status int

const (
	StatusDeleted   Status = 0
	StatusNew       Status = 1
	StatusPublished Status = 2
)

// Valid reports whether the status is one of the known states.
func (s Status) Valid() bool {
	return s == StatusDeleted || s == StatusNew || s == StatusPublished
}

// Metadata is the free-form descriptive field overlay stored as JSONB.
type Metadata map[string]string

// Value implements driver.Valuer for JSONB columns.
func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB columns.
func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, m)
}

// Scan is one digitized page image set within an archive file. The
// sequence number orders scans within their (archive_id, archive_file)
// group and is kept dense from 1 upwards.
type Scan struct {
	Number              int       `db:"number" json:"number"`
	ArchiveID           int       `db:"archive_id" json:"archive_id"`
	ArchiveFile         string    `db:"archive_file" json:"archiveFile"`
	SequenceNumber      int       `db:"sequence_number" json:"sequenceNumber"`
	Status              Status    `db:"status" json:"status"`
	Date                string    `db:"date" json:"date,omitempty"`
	TimeFrameFrom       string    `db:"timeframe_from" json:"timeFrameFrom,omitempty"`
	TimeFrameTo         string    `db:"timeframe_to" json:"timeFrameTo,omitempty"`
	FolioNumber         string    `db:"folio_number" json:"folioNumber,omitempty"`
	OriginalFolioNumber string    `db:"original_folio_number" json:"originalFolioNumber,omitempty"`
	Title               string    `db:"title" json:"title,omitempty"`
	Language            string    `db:"language" json:"language,omitempty"`
	User                string    `db:"username" json:"user,omitempty"`
	Metadata            Metadata  `db:"metadata" json:"metadata,omitempty"`
	LastModified        time.Time `db:"last_modified" json:"dateLastModified"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// GroupKey identifies the sequence group a scan belongs to.
func (s *Scan) GroupKey() ScanGroup {
	return ScanGroup{ArchiveID: s.ArchiveID, ArchiveFile: s.ArchiveFile}
}

// ArchiveFileID returns the aggregate key of the owning archive file.
func (s *Scan) ArchiveFileID() string {
	return fmt.Sprintf("%d/%s", s.ArchiveID, s.ArchiveFile)
}

// ScanGroup is the (archive_id, archive_file) pair scans are sequenced in.
type ScanGroup struct {
	ArchiveID   int
	ArchiveFile string
}

// ID returns the archive file aggregate key for this group.
func (g ScanGroup) ID() string {
	return fmt.Sprintf("%d/%s", g.ArchiveID, g.ArchiveFile)
}

// ScanFilter captures search criteria for listing scans.
type ScanFilter struct {
	ArchiveID   *int
	ArchiveFile string
	Status      *Status
	Page        int
	PageSize    int
}

// MetadataFields are the descriptive overlay keys accepted on scan create
// and update. Anything else is rejected by validation.
var MetadataFields = map[string]struct{}{
	"transcription":       {},
	"transcriptionAuthor": {},
	"transcriptionDate":   {},
	"translationEN":       {},
	"translationENAuthor": {},
	"translationENDate":   {},
	"translationID":       {},
	"translationIDAuthor": {},
	"translationIDDate":   {},
	"type":                {},
	"URI":                 {},
	"relation":            {},
	"source":              {},
	"creator":             {},
	"format":              {},
	"contributor":         {},
	"publisher":           {},
	"rights":              {},
	"subjectEN":           {},
}

// ScanImage is one stored image file belonging to a scan. Every scan keeps
// at least one image and exactly one of them is the default.
type ScanImage struct {
	ID         int       `db:"id" json:"id"`
	ScanNumber int       `db:"scan_number" json:"scan_number"`
	Filename   string    `db:"filename" json:"filename"`
	MimeType   string    `db:"mime_type" json:"mime_type"`
	SizeBytes  int64     `db:"size_bytes" json:"size_bytes"`
	IsDefault  bool      `db:"is_default" json:"is_default"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
