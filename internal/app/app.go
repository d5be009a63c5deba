package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-courseview/internal/data/db"
	"github.com/yungbote/neurobridge-courseview/internal/data/repos"
	apihttp "github.com/yungbote/neurobridge-courseview/internal/http"
	httpH "github.com/yungbote/neurobridge-courseview/internal/http/handlers"
	"github.com/yungbote/neurobridge-courseview/internal/modules/learning/content"
	"github.com/yungbote/neurobridge-courseview/internal/observability"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
	"github.com/yungbote/neurobridge-courseview/internal/platform/openai"
	"github.com/yungbote/neurobridge-courseview/internal/realtime"
	"github.com/yungbote/neurobridge-courseview/internal/realtime/bus"
	"github.com/yungbote/neurobridge-courseview/internal/services"
)

const sweepEvery = time.Minute

type App struct {
	Log     *logger.Logger
	DB      *gorm.DB
	Router  *gin.Engine
	Cfg     Config
	Metrics *observability.Metrics

	Courses services.CourseService
	Views   *services.CourseViewService

	hub          *realtime.SSEHub
	bus          bus.Bus
	redis        *goredis.Client
	server       *apihttp.Server
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: cfg.Otel.ServiceName,
		Environment: cfg.Otel.Environment,
		Endpoint:    cfg.Otel.Endpoint,
		Headers:     cfg.Otel.Headers,
		Insecure:    cfg.Otel.Insecure,
		SampleRatio: cfg.Otel.SampleRatio,
	})
	metrics := observability.Init(cfg.MetricsEnabled, 0)

	theDB, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := db.AutoMigrateAll(theDB); err != nil {
		log.Sync()
		return nil, fmt.Errorf("db automigrate: %w", err)
	}
	reposet := repos.New(theDB, log)

	keys := openai.NewKeyStore(cfg.OpenAI.APIKey, &services.ProviderKeyPersister{Repo: reposet.ProviderSetting})
	if err := keys.Load(ctx); err != nil {
		log.Warn("provider key override unavailable; using configured key", "error", err)
	}
	provider := openai.New(log, openai.Config{
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.Model,
		Timeout:    cfg.OpenAI.Timeout,
		MaxRetries: cfg.OpenAI.MaxRetries,
	}, keys)

	a := &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Metrics:      metrics,
		hub:          realtime.NewSSEHub(log),
		otelShutdown: otelShutdown,
	}
	a.hub.OnClientCount(metrics.SetSSEClients)

	var emitter services.SSEEmitter = &services.HubEmitter{Hub: a.hub}
	if cfg.Redis.Addr != "" {
		rdb, err := bus.NewRedisClient(ctx, bus.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		b, err := bus.NewRedisBus(log, rdb, cfg.Redis.Channel)
		if err != nil {
			_ = rdb.Close()
			a.Close()
			return nil, fmt.Errorf("init redis bus: %w", err)
		}
		a.redis, a.bus = rdb, b
		emitter = &services.RedisEmitter{Bus: b, Local: a.hub, Log: log}
		log.Info("notifications fan out over redis", "channel", cfg.Redis.Channel)
	}
	notifier := services.NewNotifier(emitter)

	store := services.NewCourseStore(theDB, log, reposet.Course, reposet.Chapter)
	resolver := content.NewResolver(log, content.Config{
		ResolutionThreshold: cfg.Content.ResolutionThreshold,
		FallbackContent:     cfg.Content.FallbackContent,
	}, store, provider, notifier)
	a.Courses = services.NewCourseService(log, store, resolver, provider, notifier)
	a.Views = services.NewCourseViewService(log, store, resolver, notifier)
	settings := services.NewProviderSettingsService(log, keys, provider.Model())

	deps := map[string]httpH.Pinger{}
	if sqlDB, err := theDB.DB(); err == nil {
		deps["db"] = sqlDB
	}
	if a.redis != nil {
		deps["redis"] = redisPinger{a.redis}
	}

	a.Router = apihttp.NewRouter(apihttp.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     tracingServiceName(cfg.Otel),
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		HealthHandler:   httpH.NewHealthHandler(deps),
		CourseHandler:   httpH.NewCourseHandler(log, a.Courses),
		ChapterHandler:  httpH.NewChapterHandler(log, a.Courses),
		ViewHandler:     httpH.NewViewHandler(log, a.Views),
		SettingsHandler: httpH.NewSettingsHandler(log, settings),
		RealtimeHandler: httpH.NewRealtimeHandler(log, a.hub),
	})
	a.server = apihttp.NewServer(log, apihttp.ServerConfig{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, a.Router)

	return a, nil
}

// Run serves HTTP and the background loops until ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	if a.bus != nil {
		if err := a.bus.StartForwarder(gctx, a.hub.Broadcast); err != nil {
			return fmt.Errorf("start redis forwarder: %w", err)
		}
	}
	a.Metrics.StartDBCollector(gctx, a.Log, a.DB)
	if a.redis != nil {
		a.Metrics.StartRedisCollector(gctx, a.Log, a.redis)
	}

	g.Go(func() error { return a.server.Run(gctx) })
	g.Go(func() error {
		a.sweepViews(gctx)
		return nil
	})

	err := g.Wait()
	a.Views.Wait()
	return err
}

func (a *App) sweepViews(ctx context.Context) {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Views.Sweep(a.Cfg.SessionIdle); n > 0 {
				a.Log.Debug("closed idle view sessions", "count", n, "open", a.Views.SessionCount())
			}
		}
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.Log.Warn("redis bus close failed", "error", err)
		}
		a.bus, a.redis = nil, nil
	}
	if a.DB != nil {
		if err := db.Close(a.DB); err != nil {
			a.Log.Warn("db close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func tracingServiceName(cfg OtelConfig) string {
	if !cfg.Enabled {
		return ""
	}
	return cfg.ServiceName
}

type redisPinger struct{ rdb goredis.UniversalClient }

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}
