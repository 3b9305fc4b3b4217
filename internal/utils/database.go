package utils

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connections holds the process's two connections: the Postgres primary
// record store and the Redis redirect cache/rate-limit client. ClickHouse and
// NATS are opened separately since they are not interchangeable with these
// two at the call sites that need them.
type Connections struct {
	Postgres *sql.DB
	Redis    *redis.Client
}

// NewConnections opens and pings both connections, closing whichever
// succeeded if the other fails.
func NewConnections(postgresDSN, redisAddr string) (*Connections, error) {
	pg, err := connectPostgreSQL(postgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient, err := connectRedis(redisAddr)
	if err != nil {
		pg.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &Connections{Postgres: pg, Redis: redisClient}, nil
}

func connectPostgreSQL(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func connectRedis(addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Close closes both connections, reporting every error encountered rather
// than stopping at the first.
func (c *Connections) Close() error {
	var errs []error
	if c.Postgres != nil {
		if err := c.Postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close postgres: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}
	return nil
}

// HealthCheck pings both connections and reports their status by name.
func (c *Connections) HealthCheck(ctx context.Context) map[string]string {
	status := make(map[string]string, 2)

	if err := c.Postgres.PingContext(ctx); err != nil {
		status["postgres"] = fmt.Sprintf("unhealthy: %v", err)
	} else {
		status["postgres"] = "healthy"
	}

	if err := c.Redis.Ping(ctx).Err(); err != nil {
		status["redis"] = fmt.Sprintf("unhealthy: %v", err)
	} else {
		status["redis"] = "healthy"
	}

	return status
}
