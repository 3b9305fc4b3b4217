// Command server is the composition root for the redirect/ingestion side
// of the service: it wires every adapter behind the narrow interfaces in
// internal/repository/interfaces and serves the HTTP surface of §6.
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/northbeam-io/shortlink/internal/analytics/query"
	chstore "github.com/northbeam-io/shortlink/internal/analytics/clickhouse"
	cacheredis "github.com/northbeam-io/shortlink/internal/cache/redis"
	"github.com/northbeam-io/shortlink/internal/config"
	"github.com/northbeam-io/shortlink/internal/dispatch"
	"github.com/northbeam-io/shortlink/internal/enrichment/geoip"
	"github.com/northbeam-io/shortlink/internal/enrichment/reputation"
	"github.com/northbeam-io/shortlink/internal/enrichment/useragent"
	busnats "github.com/northbeam-io/shortlink/internal/eventbus/nats"
	httpHandler "github.com/northbeam-io/shortlink/internal/handler/http"
	"github.com/northbeam-io/shortlink/internal/housekeeping"
	"github.com/northbeam-io/shortlink/internal/idgen"
	"github.com/northbeam-io/shortlink/internal/metrics"
	"github.com/northbeam-io/shortlink/internal/middleware"
	"github.com/northbeam-io/shortlink/internal/redirect"
	"github.com/northbeam-io/shortlink/internal/router"
	pgstore "github.com/northbeam-io/shortlink/internal/store/postgres"
	"github.com/northbeam-io/shortlink/internal/service"
	"github.com/northbeam-io/shortlink/internal/shortcode"
	"github.com/northbeam-io/shortlink/internal/utils"
	"github.com/northbeam-io/shortlink/pkg/validator"
)

const dispatchWorkers = 16
const dispatchQueueSize = 1024

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting shortlink server", zap.String("port", cfg.Port))

	conns, err := utils.NewConnections(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		logger.Fatal("connect to postgres/redis", zap.Error(err))
	}
	defer conns.Close()

	primaryStore := pgstore.New(conns.Postgres)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := primaryStore.EnsureSchema(ctx); err != nil {
		cancel()
		logger.Fatal("ensure primary schema", zap.Error(err))
	}
	cancel()

	chDB, err := sql.Open("clickhouse", cfg.ClickHouseDSN)
	if err != nil {
		logger.Fatal("open clickhouse", zap.Error(err))
	}
	defer chDB.Close()

	analyticsStore := chstore.New(chDB)
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	if err := analyticsStore.EnsureSchema(ctx); err != nil {
		cancel()
		logger.Fatal("ensure analytics schema", zap.Error(err))
	}
	cancel()

	redirectCache := cacheredis.New(conns.Redis)
	rateLimiter := cacheredis.NewRateLimiter(conns.Redis)

	natsConn, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logger.Fatal("connect nats", zap.Error(err))
	}
	defer natsConn.Close()

	js, err := natsConn.JetStream()
	if err != nil {
		logger.Fatal("acquire jetstream context", zap.Error(err))
	}
	eventBus := busnats.New(js).WithThroughput(cfg.AnalyticsConsumerBatchSize, cfg.AnalyticsConsumerMaxInFlight)
	if err := eventBus.EnsureStream(); err != nil {
		logger.Fatal("ensure hits stream", zap.Error(err))
	}

	var geoLookup geoip.Lookup = geoip.NoOp
	if cfg.GeoIPDBPath != "" {
		mm, err := geoip.Open(cfg.GeoIPDBPath)
		if err != nil {
			logger.Warn("geoip database failed to load, falling back to no-op", zap.Error(err))
		} else {
			geoLookup = mm
			defer mm.Close()
		}
	}

	ids, err := idgen.New()
	if err != nil {
		logger.Fatal("build id generator", zap.Error(err))
	}

	allocator := shortcode.New(cfg.DefaultCodeLength)
	urlValidator := validator.NewURLValidator(cfg.MaxURLLength)
	var reputationChecker reputation.Checker = reputation.AlwaysAllow{}

	urlService := service.New(
		primaryStore,
		redirectCache,
		allocator,
		urlValidator,
		reputationChecker,
		ids,
		logger,
		cfg.BaseURL,
		cfg.RedisTTL,
	)

	metricsRegistry := metrics.New()
	eventBus.WithMetrics(metricsRegistry.EventPublished.Inc, metricsRegistry.EventDropped.Inc)

	dispatchPool := dispatch.New(dispatchWorkers, dispatchQueueSize, logger, func() {
		metricsRegistry.EventDropped.Inc()
	})
	defer dispatchPool.Close()

	dispatcher := redirect.New(urlService, dispatchPool, eventBus, geoLookup, useragent.NoOp, logger)

	queryService := query.New(analyticsStore)

	scheduler, err := housekeeping.New(cfg.CacheWarmCron, primaryStore, redirectCache, logger)
	if err != nil {
		logger.Fatal("build housekeeping scheduler", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	adminAuth := middleware.NewAdminAuth(cfg.AdminAPIKeyHeader, cfg.AdminAPIKey, logger)

	urlHandler := httpHandler.NewURLHandler(urlService, dispatcher, logger)
	analyticsHandler := httpHandler.NewAnalyticsHandler(queryService, logger)
	healthHandler := httpHandler.NewHealthHandler(map[string]httpHandler.Pinger{
		"postgres":   func(ctx context.Context) error { return conns.Postgres.PingContext(ctx) },
		"redis":      func(ctx context.Context) error { return conns.Redis.Ping(ctx).Err() },
		"clickhouse": func(ctx context.Context) error { return chDB.PingContext(ctx) },
		"nats": func(ctx context.Context) error {
			if !natsConn.IsConnected() {
				return natsConn.LastError()
			}
			return nil
		},
	}, logger)

	httpRouter := router.New(router.Deps{
		URLHandler:       urlHandler,
		AnalyticsHandler: analyticsHandler,
		HealthHandler:    healthHandler,
		Metrics:          metricsRegistry,
		AdminAuth:        adminAuth,
		RateLimiter:      rateLimiter,
		RateLimit:        cfg.RateLimit,
		RateLimitWindow:  cfg.RateLimitTTL,
		Logger:           logger,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpRouter.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("serve http", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}
}
