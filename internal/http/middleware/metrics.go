package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-courseview/internal/observability"
)

// Routes left out of API latency: scrapes, and SSE streams whose duration is the page lifetime.
var unobservedRoutes = map[string]bool{
	"/metrics":        true,
	"/api/sse/stream": true,
}

// Metrics records in-flight count, request totals and latency per matched route.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if unobservedRoutes[route] {
			c.Next()
			return
		}
		if route == "" {
			route = "unmatched"
		}

		m.APIInflightInc()
		start := time.Now()
		defer func() {
			m.APIInflightDec()
			m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
		}()
		c.Next()
	}
}
