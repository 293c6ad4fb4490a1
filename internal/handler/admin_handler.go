package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/archivebase/scanrepo/internal/service"
	"github.com/archivebase/scanrepo/pkg/response"
)

// AdminHandler exposes maintenance endpoints.
type AdminHandler struct {
	reindex *service.ReindexService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(reindex *service.ReindexService) *AdminHandler {
	return &AdminHandler{reindex: reindex}
}

// Reindex godoc
// @Summary Rebuild the search index from relational truth
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/reindex [post]
func (h *AdminHandler) Reindex(c *gin.Context) {
	stats, err := h.reindex.Run(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
