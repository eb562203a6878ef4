// Package config provides configuration management for the tracking
// service.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Batch     BatchConfig     `mapstructure:"batch"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Auth      AuthConfig      `mapstructure:"auth"`
	DLQ       DLQConfig       `mapstructure:"dlq"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Addr returns the listen address for the configured port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// DatabaseConfig holds event and tenant storage configuration. Type is
// "postgres" or "memory".
type DatabaseConfig struct {
	Type     string         `mapstructure:"type"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the connection string for pgx and golang-migrate.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// RedisConfig holds the shared counter and credential cache store.
// When disabled, an in-process store is used instead.
type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// QueueConfig holds ingest queue sizing and overflow behavior.
// FullPolicy is "block" or "reject".
type QueueConfig struct {
	Capacity   int    `mapstructure:"capacity"`
	FullPolicy string `mapstructure:"full_policy"`
}

// BatchConfig holds batch processor tuning.
type BatchConfig struct {
	MaxSize int           `mapstructure:"max_size"`
	MaxWait time.Duration `mapstructure:"max_wait"`
}

// RateLimitConfig holds the per-partner quota.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled"`
	RequestsPerMinute int64 `mapstructure:"requests_per_minute"`
}

// AuthConfig holds credential cache tuning.
type AuthConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// DLQConfig holds dead-letter configuration for failed batch flushes.
type DLQConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	NatsURL string `mapstructure:"nats_url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from $TRACKING_CONFIG_DIR/config.yaml with
// TRACKING_-prefixed environment variables taking precedence. A
// missing config file is not an error; defaults apply.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	configDir := os.Getenv("TRACKING_CONFIG_DIR")
	if configDir == "" {
		configDir = "/etc/tracking"
	}
	v.SetConfigFile(fmt.Sprintf("%s/config.yaml", configDir))
	v.SetConfigType("yaml")

	v.SetEnvPrefix("TRACKING")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.type", "postgres")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "tracking")
	v.SetDefault("database.postgres.user", "tracking")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.sslmode", "disable")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)

	v.SetDefault("queue.capacity", 10000)
	v.SetDefault("queue.full_policy", "block")

	v.SetDefault("batch.max_size", 100)
	v.SetDefault("batch.max_wait", "1s")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_minute", 1000)

	v.SetDefault("auth.cache_ttl", "10m")

	v.SetDefault("dlq.enabled", false)
	v.SetDefault("dlq.nats_url", "nats://localhost:4222")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
