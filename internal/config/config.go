// Package config defines the one typed Config struct the process is built
// from, populated from the environment and validated once at startup.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting the process needs, grouped by the component
// that consumes it. Nothing in this repository reads an environment
// variable directly outside of Load.
type Config struct {
	// Core
	BaseURL              string        `envconfig:"BASE_URL" default:"http://localhost:8080"`
	DefaultCodeLength    int           `envconfig:"DEFAULT_CODE_LENGTH" default:"7"`
	MaxURLLength         int           `envconfig:"MAX_URL_LENGTH" default:"2048"`
	CustomAliasMinLength int           `envconfig:"CUSTOM_ALIAS_MIN_LENGTH" default:"3"`
	CustomAliasMaxLength int           `envconfig:"CUSTOM_ALIAS_MAX_LENGTH" default:"50"`
	RedisTTL             time.Duration `envconfig:"REDIS_TTL" default:"3600s"`
	KafkaTopicHits       string        `envconfig:"KAFKA_TOPIC_HITS" default:"url.hits"`
	RateLimitTTL         time.Duration `envconfig:"RATE_LIMIT_TTL" default:"60s"`
	RateLimit            int           `envconfig:"RATE_LIMIT_LIMIT" default:"100"`
	EnableURLScanning    bool          `envconfig:"ENABLE_URL_SCANNING" default:"false"`
	AdminAPIKey          string        `envconfig:"ADMIN_API_KEY" required:"true"`
	LogLevel             string        `envconfig:"LOG_LEVEL" default:"info"`

	// Adapter connection strings
	PostgresDSN   string `envconfig:"POSTGRES_DSN" required:"true"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	NATSURL       string `envconfig:"NATS_URL" default:"nats://localhost:4222"`
	ClickHouseDSN string `envconfig:"CLICKHOUSE_DSN" required:"true"`
	GeoIPDBPath   string `envconfig:"GEOIP_DB_PATH"`

	// Analytics consumer throughput policy (§4.I)
	AnalyticsConsumerBatchSize  int `envconfig:"ANALYTICS_CONSUMER_BATCH_SIZE" default:"100"`
	AnalyticsConsumerMaxInFlight int `envconfig:"ANALYTICS_CONSUMER_MAX_IN_FLIGHT" default:"5"`

	// Periodic housekeeping
	CacheWarmCron string `envconfig:"CACHE_WARM_CRON" default:"*/15 * * * *"`

	// HTTP server
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	GracefulTimeout time.Duration `envconfig:"GRACEFUL_TIMEOUT" default:"30s"`

	// API-key header name is configurable per §7's admin-auth note.
	AdminAPIKeyHeader string `envconfig:"ADMIN_API_KEY_HEADER" default:"X-API-Key"`
}

// Load populates a Config from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the ranges §7 specifies. It rejects out-of-range
// required settings rather than silently clamping them, so a misconfigured
// deployment fails at startup instead of at the first request.
func (c *Config) Validate() error {
	if c.DefaultCodeLength < 4 || c.DefaultCodeLength > 16 {
		return fmt.Errorf("DEFAULT_CODE_LENGTH must be in [4,16], got %d", c.DefaultCodeLength)
	}
	if c.MaxURLLength < 1 {
		return fmt.Errorf("MAX_URL_LENGTH must be positive, got %d", c.MaxURLLength)
	}
	if c.CustomAliasMinLength < 1 || c.CustomAliasMinLength > c.CustomAliasMaxLength {
		return fmt.Errorf("CUSTOM_ALIAS_MIN_LENGTH must be positive and <= CUSTOM_ALIAS_MAX_LENGTH")
	}
	if c.RateLimit < 1 {
		return fmt.Errorf("RATE_LIMIT_LIMIT must be positive, got %d", c.RateLimit)
	}
	if c.AnalyticsConsumerBatchSize < 1 {
		return fmt.Errorf("ANALYTICS_CONSUMER_BATCH_SIZE must be positive, got %d", c.AnalyticsConsumerBatchSize)
	}
	if c.AnalyticsConsumerMaxInFlight < 1 {
		return fmt.Errorf("ANALYTICS_CONSUMER_MAX_IN_FLIGHT must be positive, got %d", c.AnalyticsConsumerMaxInFlight)
	}
	if c.AdminAPIKey == "" {
		return fmt.Errorf("ADMIN_API_KEY must not be empty")
	}
	return nil
}
