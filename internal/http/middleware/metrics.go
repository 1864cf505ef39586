// README: Prometheus request counter/histogram middleware.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hammamiayoub/vtc-new-sub000/internal/metrics"
)

// Metrics labels requests by route template so IDs do not explode cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
