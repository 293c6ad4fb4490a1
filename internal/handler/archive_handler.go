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

// ArchiveHandler exposes archive registry endpoints.
type ArchiveHandler struct {
	archives *service.ArchiveService
}

// NewArchiveHandler constructs ArchiveHandler.
func NewArchiveHandler(archives *service.ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{archives: archives}
}

func archiveIDParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, appErrors.NewValidation([]string{"id must be a positive integer"})
	}
	return id, nil
}

// List godoc
// @Summary List archives
// @Tags Archives
// @Produce json
// @Param country_code query string false "Filter by country"
// @Param institution query string false "Filter by institution code"
// @Success 200 {object} response.Envelope
// @Router /archives [get]
func (h *ArchiveHandler) List(c *gin.Context) {
	var filter models.ArchiveFilter
	filter.CountryCode = c.Query("country_code")
	filter.Institution = c.Query("institution")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	archives, err := h.archives.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, archives, nil)
}

// Get godoc
// @Summary Get an archive
// @Tags Archives
// @Produce json
// @Param id path int true "Archive ID"
// @Success 200 {object} response.Envelope
// @Router /archives/{id} [get]
func (h *ArchiveHandler) Get(c *gin.Context) {
	id, err := archiveIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	archive, err := h.archives.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, archive, nil)
}

// Create godoc
// @Summary Register an archive
// @Tags Archives
// @Accept json
// @Produce json
// @Param payload body dto.CreateArchiveRequest true "Archive payload"
// @Success 201 {object} response.Envelope
// @Router /archives [post]
func (h *ArchiveHandler) Create(c *gin.Context) {
	var req dto.CreateArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	archive, err := h.archives.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, archive)
}

// Update godoc
// @Summary Update archive descriptions
// @Tags Archives
// @Accept json
// @Produce json
// @Param id path int true "Archive ID"
// @Param payload body dto.UpdateArchiveRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /archives/{id} [put]
func (h *ArchiveHandler) Update(c *gin.Context) {
	id, err := archiveIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	archive, err := h.archives.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, archive, nil)
}

// Delete godoc
// @Summary Delete an unused archive
// @Tags Archives
// @Param id path int true "Archive ID"
// @Success 204
// @Router /archives/{id} [delete]
func (h *ArchiveHandler) Delete(c *gin.Context) {
	id, err := archiveIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.archives.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
