package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/archivebase/scanrepo/internal/dto"
	"github.com/archivebase/scanrepo/internal/models"
	"github.com/archivebase/scanrepo/internal/service"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
	"github.com/archivebase/scanrepo/pkg/response"
)

// ScanHandler exposes scan endpoints.
type ScanHandler struct {
	scans  *service.ScanService
	export *service.ExportService
}

// NewScanHandler constructs ScanHandler.
func NewScanHandler(scans *service.ScanService, export *service.ExportService) *ScanHandler {
	return &ScanHandler{scans: scans, export: export}
}

func scanNumberParam(c *gin.Context) (int, error) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number <= 0 {
		return 0, appErrors.NewValidation([]string{"number must be a positive integer"})
	}
	return number, nil
}

func scanQuery(c *gin.Context) dto.ScanQuery {
	var query dto.ScanQuery
	if id, err := strconv.Atoi(c.Query("archive_id")); err == nil {
		query.ArchiveID = &id
	}
	query.ArchiveFile = c.Query("archiveFile")
	if st, err := strconv.Atoi(c.Query("status")); err == nil {
		query.Status = &st
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		query.PageSize = size
	}
	return query
}

// List godoc
// @Summary List scans
// @Tags Scans
// @Produce json
// @Param archive_id query int false "Filter by archive"
// @Param archiveFile query string false "Filter by inventory number"
// @Param status query int false "Filter by status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /scans [get]
func (h *ScanHandler) List(c *gin.Context) {
	query := scanQuery(c)
	page, err := h.scans.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	var meta map[string]interface{}
	if len(page.Facets) > 0 {
		meta = map[string]interface{}{"facets": page.Facets}
	}
	response.JSON(c, http.StatusOK, page.Documents, &models.Pagination{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: int(page.Total),
	}, meta)
}

// Get godoc
// @Summary Get a scan
// @Tags Scans
// @Produce json
// @Param number path int true "Scan number"
// @Success 200 {object} response.Envelope
// @Router /scans/{number} [get]
func (h *ScanHandler) Get(c *gin.Context) {
	number, err := scanNumberParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	scan, err := h.scans.Get(c.Request.Context(), number)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scan, nil)
}

// Create godoc
// @Summary Create a scan
// @Tags Scans
// @Accept json
// @Produce json
// @Param payload body dto.ScanFields true "Scan payload"
// @Success 201 {object} response.Envelope
// @Router /scans [post]
func (h *ScanHandler) Create(c *gin.Context) {
	var req dto.ScanFields
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	scan, err := h.scans.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, scan)
}

// Update godoc
// @Summary Update a scan
// @Tags Scans
// @Accept json
// @Produce json
// @Param number path int true "Scan number"
// @Param payload body dto.ScanFields true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /scans/{number} [put]
func (h *ScanHandler) Update(c *gin.Context) {
	number, err := scanNumberParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ScanFields
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	scan, err := h.scans.Update(c.Request.Context(), currentUser(c), number, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scan, nil)
}

// Move godoc
// @Summary Reposition a scan within its archive file
// @Tags Scans
// @Accept json
// @Produce json
// @Param number path int true "Scan number"
// @Param payload body dto.MoveScanRequest true "Target position"
// @Success 200 {object} response.Envelope
// @Router /scans/{number}/move [put]
func (h *ScanHandler) Move(c *gin.Context) {
	number, err := scanNumberParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.MoveScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	scan, err := h.scans.Move(c.Request.Context(), currentUser(c), number, *req.After)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scan, nil)
}

// Delete godoc
// @Summary Delete a scan
// @Tags Scans
// @Param number path int true "Scan number"
// @Success 204
// @Router /scans/{number} [delete]
func (h *ScanHandler) Delete(c *gin.Context) {
	number, err := scanNumberParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.scans.Delete(c.Request.Context(), currentUser(c), number); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export scans as CSV or PDF
// @Tags Scans
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Param archive_id query int false "Filter by archive"
// @Param archiveFile query string false "Filter by inventory number"
// @Param status query int false "Filter by status"
// @Success 200 {file} binary
// @Router /scans/export [get]
func (h *ScanHandler) Export(c *gin.Context) {
	query := scanQuery(c)
	format := c.DefaultQuery("format", "csv")
	data, contentType, filename, err := h.export.ExportScans(c.Request.Context(), query, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, data)
}
