package middleware

import (
	"strconv"
	"time"

	"github.com/asso-lecture/asso-backend/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request count, latency and in-flight requests. The route
// label is the matched gin pattern so ids do not explode cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.APIInflightInc()
		start := time.Now()
		defer m.APIInflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
