package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/praktika-dev/praktika-api/internal/service"
)

// Metrics records latency and status for every handled request. Unmatched
// routes fall back to the raw URL path so 404 noise stays visible without
// exploding label cardinality on matched routes.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
