package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/neurobridge-courseview/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-courseview/internal/http/middleware"
	"github.com/yungbote/neurobridge-courseview/internal/observability"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	HealthHandler   *httpH.HealthHandler
	CourseHandler   *httpH.CourseHandler
	ChapterHandler  *httpH.ChapterHandler
	ViewHandler     *httpH.ViewHandler
	SettingsHandler *httpH.SettingsHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Courses
		if cfg.CourseHandler != nil {
			api.GET("/courses", cfg.CourseHandler.ListCourses)
			api.POST("/courses", cfg.CourseHandler.CreateCourse)
			api.POST("/courses/import", cfg.CourseHandler.ImportCourse)
			api.GET("/courses/:id", cfg.CourseHandler.GetCourse)
			api.PATCH("/courses/:id", cfg.CourseHandler.UpdateCourse)
			api.DELETE("/courses/:id", cfg.CourseHandler.DeleteCourse)
			api.GET("/courses/:id/export", cfg.CourseHandler.ExportCourse)
		}

		// Chapters
		if cfg.ChapterHandler != nil {
			api.POST("/courses/:id/chapters/:chapter_id/resolve", cfg.ChapterHandler.ResolveContent)
			api.PUT("/courses/:id/chapters/:chapter_id/completion", cfg.ChapterHandler.SetCompletion)
		}

		// Course view sessions
		if cfg.ViewHandler != nil {
			api.POST("/views", cfg.ViewHandler.OpenView)
			api.GET("/views/:session_id", cfg.ViewHandler.GetView)
			api.POST("/views/:session_id/select", cfg.ViewHandler.SelectChapter)
			api.DELETE("/views/:session_id", cfg.ViewHandler.CloseView)
		}

		// Provider settings
		if cfg.SettingsHandler != nil {
			api.GET("/settings/provider", cfg.SettingsHandler.GetProvider)
			api.PUT("/settings/provider-key", cfg.SettingsHandler.SetProviderKey)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}
	}

	return r
}
