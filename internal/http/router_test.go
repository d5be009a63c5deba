package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/neurobridge-courseview/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-courseview/internal/http/middleware"
	"github.com/yungbote/neurobridge-courseview/internal/observability"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
	"github.com/yungbote/neurobridge-courseview/internal/realtime"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newTestRouter(t *testing.T) (*gin.Engine, *observability.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := testLogger(t)
	m := observability.New(0)
	r := NewRouter(RouterConfig{
		Log:             log,
		Metrics:         m,
		HealthHandler:   httpH.NewHealthHandler(nil),
		RealtimeHandler: httpH.NewRealtimeHandler(log, realtime.NewSSEHub(log)),
	})
	return r, m
}

func TestRouterHealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	req.Header.Set(httpMW.HeaderRequestID, "req-123")
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthcheck = %d", rec.Code)
	}
	if got := rec.Header().Get(httpMW.HeaderRequestID); got != "req-123" {
		t.Fatalf("request id = %q", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/healthcheck") {
		t.Fatalf("healthcheck request not recorded:\n%s", rec.Body.String())
	}
}

func TestRouterSSERejectsBadCourseID(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sse/stream?course_id=not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid_course_id") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/courses", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unconfigured course routes should 404, got %d", rec.Code)
	}
}
