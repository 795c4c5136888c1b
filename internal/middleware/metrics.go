package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ju10/academy-api/internal/service"
)

// Metrics records method, route template and status for every request.
// Unmatched routes (404s on arbitrary paths) are grouped under a single
// label to keep the metric cardinality bounded.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
