package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/archivebase/scanrepo/internal/dto"
	"github.com/archivebase/scanrepo/internal/models"
	"github.com/archivebase/scanrepo/internal/service"
	"github.com/archivebase/scanrepo/pkg/response"
)

// LogHandler exposes audit log endpoints.
type LogHandler struct {
	logs *service.LogService
}

// NewLogHandler constructs LogHandler.
func NewLogHandler(logs *service.LogService) *LogHandler {
	return &LogHandler{logs: logs}
}

// Search godoc
// @Summary Search the audit log
// @Tags Logs
// @Produce json
// @Param user query string false "Filter by user"
// @Param object_type query string false "Filter by object type"
// @Param object_id query string false "Filter by object id"
// @Param message query string false "Substring match on message"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /logs [get]
func (h *LogHandler) Search(c *gin.Context) {
	var query dto.LogQuery
	query.User = c.Query("user")
	query.ObjectType = c.Query("object_type")
	query.ObjectID = c.Query("object_id")
	query.Message = c.Query("message")
	query.From = c.Query("from")
	query.To = c.Query("to")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		query.PageSize = size
	}

	entries, total, err := h.logs.Search(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, &models.Pagination{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: total,
	})
}
