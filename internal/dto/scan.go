package dto

// ScanFields is the writable surface of a scan. Pointer fields distinguish
// "not sent" from "set to empty" so updates can be partial. Metadata keys
// outside the known overlay set are rejected with individual messages.
type ScanFields struct {
	ArchiveID           *int              `json:"archive_id" form:"archive_id"`
	ArchiveFile         *string           `json:"archiveFile" form:"archiveFile"`
	Status              *int              `json:"status" form:"status"`
	Date                *string           `json:"date" form:"date"`
	TimeFrameFrom       *string           `json:"timeFrameFrom" form:"timeFrameFrom"`
	TimeFrameTo         *string           `json:"timeFrameTo" form:"timeFrameTo"`
	FolioNumber         *string           `json:"folioNumber" form:"folioNumber"`
	OriginalFolioNumber *string           `json:"originalFolioNumber" form:"originalFolioNumber"`
	Title               *string           `json:"title" form:"title"`
	Language            *string           `json:"language" form:"language"`
	Metadata            map[string]string `json:"metadata" form:"-"`
}

// MoveScanRequest positions a scan after the given sequence number within
// its group. Zero moves it to the front.
type MoveScanRequest struct {
	After *int `json:"after" binding:"required"`
}

// ScanQuery captures list and export parameters.
type ScanQuery struct {
	ArchiveID   *int   `form:"archive_id"`
	ArchiveFile string `form:"archiveFile"`
	Status      *int   `form:"status"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}
