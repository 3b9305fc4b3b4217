// Command analytics-consumer is the composition root for component I: it
// subscribes to the event bus and applies each delivered HitEvent to the
// analytics store, independently of the redirect-serving process.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	chstore "github.com/northbeam-io/shortlink/internal/analytics/clickhouse"
	"github.com/northbeam-io/shortlink/internal/analytics/consumer"
	"github.com/northbeam-io/shortlink/internal/config"
	busnats "github.com/northbeam-io/shortlink/internal/eventbus/nats"
	"github.com/northbeam-io/shortlink/internal/utils"
)

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

	logger.Info("starting analytics consumer")

	chDB, err := sql.Open("clickhouse", cfg.ClickHouseDSN)
	if err != nil {
		logger.Fatal("open clickhouse", zap.Error(err))
	}
	defer chDB.Close()

	analyticsStore := chstore.New(chDB)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := analyticsStore.EnsureSchema(ctx); err != nil {
		cancel()
		logger.Fatal("ensure analytics schema", zap.Error(err))
	}
	cancel()

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

	c := consumer.New(analyticsStore, logger)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down analytics consumer")
		runCancel()
	}()

	if err := eventBus.Subscribe(runCtx, c.Handle); err != nil {
		logger.Fatal("subscribe to hits stream", zap.Error(err))
	}
}
