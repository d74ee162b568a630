package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aeropoint/academy-api/internal/service"
)

// Metrics times every request and feeds the Prometheus collectors. The
// route template is preferred over the raw path so IDs do not explode
// the label cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
