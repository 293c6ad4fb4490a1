package models

import (
	"fmt"
	"strings"
	"time"
)

// ArchiveFileRecord is the relational row backing an archive file
// aggregate. It only exists once someone has set an explicit status; the
// rest of the aggregate is derived from the index.
type ArchiveFileRecord struct {
	ID           string    `db:"id" json:"archivefile_id"`
	ArchiveID    int       `db:"archive_id" json:"archive_id"`
	ArchiveFile  string    `db:"archive_file" json:"archiveFile"`
	Status       Status    `db:"status" json:"status"`
	User         string    `db:"username" json:"user,omitempty"`
	LastModified time.Time `db:"last_modified" json:"dateLastModified"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ArchiveFileAggregate is the merged view of an archive file: the explicit
// record (when present), the EAD components that reference it and the live
// scan count.
type ArchiveFileAggregate struct {
	ID            string            `json:"archivefile_id"`
	ArchiveID     int               `json:"archive_id"`
	ArchiveFile   string            `json:"archiveFile"`
	Status        Status            `json:"status"`
	Titles        map[string]string `json:"titles,omitempty"`
	EadIDs        []string          `json:"ead_ids,omitempty"`
	NumberOfScans int               `json:"number_of_scans"`
	SortField     string            `json:"sort_field"`
	LastModified  time.Time         `json:"dateLastModified"`
}

// Title returns the display title. Ties between languages are broken
// deterministically by picking the lowest language code.
func (a *ArchiveFileAggregate) Title() string {
	if len(a.Titles) == 0 {
		return ""
	}
	best := ""
	for lang := range a.Titles {
		if best == "" || lang < best {
			best = lang
		}
	}
	return a.Titles[best]
}

// IsOrphan reports whether nothing references this archive file anymore.
func (a *ArchiveFileAggregate) IsOrphan(hasRecord bool) bool {
	return len(a.EadIDs) == 0 && a.NumberOfScans == 0 && !hasRecord
}

// ArchiveFileID builds the aggregate key.
func ArchiveFileID(archiveID int, archiveFile string) string {
	return fmt.Sprintf("%d/%s", archiveID, archiveFile)
}

// ArchiveFileSortField builds the ordering key. Numeric file names are
// zero-padded to ten digits so "2" sorts before "10".
func ArchiveFileSortField(archiveID int, archiveFile string) string {
	padded := archiveFile
	if archiveFile != "" && isDigits(archiveFile) && len(archiveFile) < 10 {
		padded = strings.Repeat("0", 10-len(archiveFile)) + archiveFile
	}
	return fmt.Sprintf("%d/%s", archiveID, padded)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
