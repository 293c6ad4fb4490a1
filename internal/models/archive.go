package models

import "time"

// Archive is one institutional archive. The (institution, archive) code
// pair is unique; EAD uploads must reference an existing row.
type Archive struct {
	ID                     int       `db:"id" json:"id"`
	CountryCode            string    `db:"country_code" json:"country_code"`
	Institution            string    `db:"institution" json:"institution"`
	InstitutionDescription string    `db:"institution_description" json:"institution_description,omitempty"`
	Archive                string    `db:"archive" json:"archive"`
	ArchiveDescription     string    `db:"archive_description" json:"archive_description,omitempty"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
}

// ArchiveFilter captures list criteria for archives.
type ArchiveFilter struct {
	CountryCode string
	Institution string
	Page        int
	PageSize    int
}
