package dto

// CreateArchiveRequest registers a new institutional archive.
type CreateArchiveRequest struct {
	CountryCode            string `json:"country_code" validate:"required,len=2"`
	Institution            string `json:"institution" validate:"required"`
	InstitutionDescription string `json:"institution_description"`
	Archive                string `json:"archive" validate:"required"`
	ArchiveDescription     string `json:"archive_description"`
}

// UpdateArchiveRequest changes the descriptions of an archive. Codes are
// immutable because EAD files and scans reference them.
type UpdateArchiveRequest struct {
	InstitutionDescription *string `json:"institution_description"`
	ArchiveDescription     *string `json:"archive_description"`
}

// UpdateStatusRequest carries a publication status change for EAD files
// and archive file records. Status 0 (deleted) is never accepted here.
type UpdateStatusRequest struct {
	Status *int `json:"status" binding:"required"`
}

// LogQuery captures audit log search parameters.
type LogQuery struct {
	User       string `form:"user"`
	ObjectType string `form:"object_type"`
	ObjectID   string `form:"object_id"`
	Message    string `form:"message"`
	From       string `form:"from"`
	To         string `form:"to"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}
