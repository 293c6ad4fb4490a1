package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/archivebase/scanrepo/internal/service"
)

// Metrics records request duration and status per route.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metrics.ObserveRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
