package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/archivebase/scanrepo/internal/dto"
	"github.com/archivebase/scanrepo/internal/models"
	"github.com/archivebase/scanrepo/internal/service"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
	"github.com/archivebase/scanrepo/pkg/response"
)

// EadHandler exposes EAD finding aid endpoints.
type EadHandler struct {
	eads *service.EadService
}

// NewEadHandler constructs EadHandler.
func NewEadHandler(eads *service.EadService) *EadHandler {
	return &EadHandler{eads: eads}
}

// Upload godoc
// @Summary Upload an EAD finding aid
// @Tags EAD
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "EAD 2002 XML file"
// @Success 201 {object} response.Envelope
// @Router /ead [post]
func (h *EadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.NewValidation([]string{"file is required"}))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "cannot read uploaded file"))
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "cannot read uploaded file"))
		return
	}
	ead, err := h.eads.Upload(c.Request.Context(), currentUser(c), fileHeader.Filename, data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ead)
}

// List godoc
// @Summary List EAD finding aids
// @Tags EAD
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /ead [get]
func (h *EadHandler) List(c *gin.Context) {
	eads, err := h.eads.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, eads, nil)
}

// Get godoc
// @Summary Get an EAD record
// @Tags EAD
// @Produce json
// @Param eadID path string true "EAD identifier"
// @Success 200 {object} response.Envelope
// @Router /ead/{eadID} [get]
func (h *EadHandler) Get(c *gin.Context) {
	ead, err := h.eads.Get(c.Request.Context(), c.Param("eadID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ead, nil)
}

// XML godoc
// @Summary Download the stored EAD XML
// @Tags EAD
// @Produce xml
// @Param eadID path string true "EAD identifier"
// @Success 200 {file} binary
// @Router /ead/{eadID}/xml [get]
func (h *EadHandler) XML(c *gin.Context) {
	data, err := h.eads.GetXML(c.Request.Context(), c.Param("eadID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", data)
}

// Components godoc
// @Summary Search EAD components
// @Tags EAD
// @Produce json
// @Param ead_id query string false "Filter by finding aid"
// @Param archive_id query int false "Filter by archive"
// @Param file query string false "Filter by inventory number"
// @Param q query string false "Full text query"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /components [get]
func (h *EadHandler) Components(c *gin.Context) {
	query := service.ComponentQuery{
		EadID:       c.Query("ead_id"),
		ArchiveFile: c.Query("file"),
		Text:        c.Query("q"),
	}
	if id, err := strconv.Atoi(c.Query("archive_id")); err == nil {
		query.ArchiveID = id
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		query.PageSize = size
	}

	docs, total, err := h.eads.SearchComponents(c.Request.Context(), query)
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

// Tree godoc
// @Summary Get the pruned component tree of a finding aid
// @Tags EAD
// @Produce json
// @Param eadID path string true "EAD identifier"
// @Success 200 {object} response.Envelope
// @Router /ead/{eadID}/tree [get]
func (h *EadHandler) Tree(c *gin.Context) {
	tree, err := h.eads.ComponentTree(c.Request.Context(), c.Param("eadID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tree, nil)
}

// UpdateStatus godoc
// @Summary Change the publication status of an EAD
// @Tags EAD
// @Accept json
// @Produce json
// @Param eadID path string true "EAD identifier"
// @Param payload body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Router /ead/{eadID}/status [put]
func (h *EadHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	ead, err := h.eads.UpdateStatus(c.Request.Context(), currentUser(c), c.Param("eadID"), *req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ead, nil)
}

// Delete godoc
// @Summary Delete an EAD finding aid
// @Tags EAD
// @Param eadID path string true "EAD identifier"
// @Success 204
// @Router /ead/{eadID} [delete]
func (h *EadHandler) Delete(c *gin.Context) {
	if err := h.eads.Delete(c.Request.Context(), currentUser(c), c.Param("eadID")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
