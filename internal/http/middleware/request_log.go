package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-courseview/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
)

// Route params copied onto the request log line, keyed by their log name.
var loggedParams = map[string]string{
	"id":         "course_id",
	"chapter_id": "chapter_id",
	"session_id": "session_id",
}

// RequestLogger logs one line per request once the handler chain has run.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		fields := make([]interface{}, 0, 16)
		fields = append(fields,
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
		)
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			fields = append(fields, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		for _, p := range c.Params {
			if key, ok := loggedParams[p.Key]; ok {
				fields = append(fields, key, p.Value)
			}
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		logAt(log, levelFor(status, route))("HTTP request", fields...)
	}
}

type logLevel int

const (
	levelDebug logLevel = iota
	levelInfo
	levelWarn
	levelError
)

// levelFor keeps long-lived SSE streams and scrapes out of info logs.
func levelFor(status int, route string) logLevel {
	switch {
	case status >= 500:
		return levelError
	case status >= 400:
		return levelWarn
	case route == "/api/sse/stream", route == "/metrics", route == "/healthcheck", route == "/readyz":
		return levelDebug
	}
	return levelInfo
}

func logAt(log *logger.Logger, lvl logLevel) func(string, ...interface{}) {
	switch lvl {
	case levelError:
		return log.Error
	case levelWarn:
		return log.Warn
	case levelDebug:
		return log.Debug
	}
	return log.Info
}
