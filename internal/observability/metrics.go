package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *GaugeVec
	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec
	resolves    *CounterVec
	resolveTime *HistogramVec
	notifies    *CounterVec
	sseClients  *GaugeVec
	dbStats     *GaugeVec
	redisUp     *GaugeVec
	redisPing   *GaugeVec
	scrapeEvery time.Duration
	allFamilies []collector
}

var instance atomic.Pointer[Metrics]

// Current returns the process-wide metrics, or nil when metrics are disabled.
// Every method on *Metrics is nil-safe.
func Current() *Metrics {
	return instance.Load()
}

// Init builds the registry and makes it Current. With enabled=false it clears
// Current and returns nil.
func Init(enabled bool, scrapeEvery time.Duration) *Metrics {
	if !enabled {
		instance.Store(nil)
		return nil
	}
	m := New(scrapeEvery)
	instance.Store(m)
	return m
}

func New(scrapeEvery time.Duration) *Metrics {
	if scrapeEvery <= 0 {
		scrapeEvery = 10 * time.Second
	}
	latency := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	llmLatency := []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120}
	m := &Metrics{
		apiRequests: NewCounterVec("cv_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("cv_api_request_duration_seconds", "API request latency in seconds by method/route/status.", []string{"method", "route", "status"}, latency),
		apiInflight: NewGaugeVec("cv_api_inflight_requests", "In-flight API requests.", nil),
		llmRequests: NewCounterVec("cv_llm_requests_total", "Content provider requests by model/endpoint/status.", []string{"model", "endpoint", "status"}),
		llmLatency:  NewHistogramVec("cv_llm_request_duration_seconds", "Content provider latency in seconds.", []string{"model", "endpoint", "status"}, llmLatency),
		llmTokens:   NewCounterVec("cv_llm_tokens_total", "Content provider tokens by model/kind.", []string{"model", "kind"}),
		resolves:    NewCounterVec("cv_content_resolutions_total", "Chapter content resolutions by source.", []string{"source"}),
		resolveTime: NewHistogramVec("cv_content_resolution_duration_seconds", "Chapter content resolution latency by source.", []string{"source"}, llmLatency),
		notifies:    NewCounterVec("cv_notifications_total", "Notifications emitted by kind.", []string{"kind"}),
		sseClients:  NewGaugeVec("cv_sse_clients", "Connected SSE clients.", nil),
		dbStats:     NewGaugeVec("cv_db_pool", "Database connection pool stats.", []string{"stat"}),
		redisUp:     NewGaugeVec("cv_redis_up", "Redis reachability (1 up, 0 down).", nil),
		redisPing:   NewGaugeVec("cv_redis_ping_seconds", "Redis ping latency in seconds.", nil),
		scrapeEvery: scrapeEvery,
	}
	m.allFamilies = []collector{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.resolves, m.resolveTime, m.notifies, m.sseClients,
		m.dbStats, m.redisUp, m.redisPing,
	}
	return m
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.allFamilies {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	model = strings.TrimSpace(model)
	m.llmRequests.Inc(model, endpoint, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, endpoint, status)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

// ObserveContentResolution records one chapter resolution. source is
// cache, generated or fallback.
func (m *Metrics) ObserveContentResolution(source string, dur time.Duration) {
	if m == nil {
		return
	}
	m.resolves.Inc(source)
	m.resolveTime.Observe(dur.Seconds(), source)
}

func (m *Metrics) ContentResolutions(source string) float64 {
	if m == nil {
		return 0
	}
	return m.resolves.Value(source)
}

func (m *Metrics) IncNotification(kind string) {
	if m == nil {
		return
	}
	m.notifies.Inc(kind)
}

func (m *Metrics) SetSSEClients(n int) {
	if m == nil {
		return
	}
	m.sseClients.Set(float64(n))
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					log.Warn("metrics: db stats unavailable", "error", err)
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					log.Warn("metrics: redis ping failed", "error", err)
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
