package models

import "time"

// EadFile is the registration of one uploaded EAD finding aid. The raw XML
// lives in the storage gateway under the ead id.
type EadFile struct {
	EadID        string    `db:"ead_id" json:"ead_id"`
	CountryCode  string    `db:"country_code" json:"country_code"`
	Institution  string    `db:"institution" json:"institution"`
	Archive      string    `db:"archive" json:"archive"`
	ArchiveID    int       `db:"archive_row_id" json:"archive_id"`
	FindingAid   string    `db:"finding_aid" json:"findingaid"`
	Title        string    `db:"title" json:"title,omitempty"`
	Language     string    `db:"language" json:"language,omitempty"`
	Filename     string    `db:"filename" json:"filename"`
	Status       Status    `db:"status" json:"status"`
	User         string    `db:"username" json:"user,omitempty"`
	LastModified time.Time `db:"last_modified" json:"dateLastModified"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Component is one c-node extracted from an EAD file. Components live in
// the search index only; they are rebuilt from the stored XML on demand.
type Component struct {
	ID             string `json:"eadcomponent_id"`
	EadID          string `json:"ead_id"`
	XPath          string `json:"xpath"`
	ParentID       string `json:"parent_id,omitempty"`
	Level          string `json:"level,omitempty"`
	Title          string `json:"title,omitempty"`
	Text           string `json:"text,omitempty"`
	ArchiveID      int    `json:"archive_id"`
	ArchiveFile    string `json:"archiveFile,omitempty"`
	IsComponent    bool   `json:"is_component"`
	IsArchiveFile  bool   `json:"is_archiveFile"`
	ShowInTree     bool   `json:"show_in_tree"`
	SequenceNumber int    `json:"sequenceNumber"`
	DateFrom       string `json:"date_from,omitempty"`
	DateTo         string `json:"date_to,omitempty"`
	NumberOfScans  int    `json:"number_of_scans"`
	Status         Status `json:"status"`
}
