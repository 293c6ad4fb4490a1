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

// ArchiveFileHandler exposes archive file aggregate endpoints.
type ArchiveFileHandler struct {
	files    *service.ArchiveFileService
	scans    *service.ScanService
	pagelist *service.PagelistService
}

// NewArchiveFileHandler constructs ArchiveFileHandler.
func NewArchiveFileHandler(files *service.ArchiveFileService, scans *service.ScanService, pagelist *service.PagelistService) *ArchiveFileHandler {
	return &ArchiveFileHandler{files: files, scans: scans, pagelist: pagelist}
}

func groupParams(c *gin.Context) (models.ScanGroup, error) {
	archiveID, err := strconv.Atoi(c.Param("archiveID"))
	if err != nil || archiveID <= 0 {
		return models.ScanGroup{}, appErrors.NewValidation([]string{"archiveID must be a positive integer"})
	}
	file := c.Param("file")
	if file == "" {
		return models.ScanGroup{}, appErrors.NewValidation([]string{"file is required"})
	}
	return models.ScanGroup{ArchiveID: archiveID, ArchiveFile: file}, nil
}

// List godoc
// @Summary List archive file aggregates
// @Tags ArchiveFiles
// @Produce json
// @Param archive_id query int false "Filter by archive"
// @Param status query int false "Filter by status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /archivefiles [get]
func (h *ArchiveFileHandler) List(c *gin.Context) {
	var query service.ArchiveFileListQuery
	if id, err := strconv.Atoi(c.Query("archive_id")); err == nil {
		query.ArchiveID = &id
	}
	if st, err := strconv.Atoi(c.Query("status")); err == nil {
		query.Status = &st
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		query.PageSize = size
	}

	docs, total, err := h.files.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, &models.Pagination{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: int(total),
	})
}

// Get godoc
// @Summary Get an archive file aggregate
// @Tags ArchiveFiles
// @Produce json
// @Param archiveID path int true "Archive ID"
// @Param file path string true "Inventory number"
// @Success 200 {object} response.Envelope
// @Router /archivefiles/{archiveID}/{file} [get]
func (h *ArchiveFileHandler) Get(c *gin.Context) {
	group, err := groupParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	aggregate, err := h.files.Get(c.Request.Context(), group)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, aggregate, nil)
}

// UpdateStatus godoc
// @Summary Change the publication status of an archive file
// @Tags ArchiveFiles
// @Accept json
// @Produce json
// @Param archiveID path int true "Archive ID"
// @Param file path string true "Inventory number"
// @Param payload body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Router /archivefiles/{archiveID}/{file}/status [put]
func (h *ArchiveFileHandler) UpdateStatus(c *gin.Context) {
	group, err := groupParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	aggregate, err := h.files.UpdateStatus(c.Request.Context(), currentUser(c), group, *req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, aggregate, nil)
}

// Delete godoc
// @Summary Delete the explicit record of an unreferenced archive file
// @Tags ArchiveFiles
// @Param archiveID path int true "Archive ID"
// @Param file path string true "Inventory number"
// @Success 204
// @Router /archivefiles/{archiveID}/{file} [delete]
func (h *ArchiveFileHandler) Delete(c *gin.Context) {
	group, err := groupParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.files.Delete(c.Request.Context(), currentUser(c), group); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Scans godoc
// @Summary List the scans of an archive file in sequence order
// @Tags ArchiveFiles
// @Produce json
// @Param archiveID path int true "Archive ID"
// @Param file path string true "Inventory number"
// @Success 200 {object} response.Envelope
// @Router /archivefiles/{archiveID}/{file}/scans [get]
func (h *ArchiveFileHandler) Scans(c *gin.Context) {
	group, err := groupParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	scans, err := h.scans.ListGroup(c.Request.Context(), group)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scans, nil)
}

// Pagelist godoc
// @Summary Get the pagelist XML for an archive file
// @Tags ArchiveFiles
// @Produce xml
// @Param archiveID path int true "Archive ID"
// @Param file path string true "Inventory number"
// @Success 200 {file} binary
// @Router /archivefiles/{archiveID}/{file}/pagelist [get]
func (h *ArchiveFileHandler) Pagelist(c *gin.Context) {
	group, err := groupParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := h.pagelist.Render(c.Request.Context(), group)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", data)
}
