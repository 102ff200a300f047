package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Dataset  DatasetConfig
	Logger   LoggerConfig
	Security SecurityConfig
	Cache    CacheConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"localhost"`
	Port            int           `envconfig:"SERVER_PORT" default:"8084"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatasetConfig selects where the transaction and segmentation tables are
// read from at startup.
type DatasetConfig struct {
	Source           string        `envconfig:"DATASET_SOURCE" default:"csv"`
	TransactionsFile string        `envconfig:"DATASET_TRANSACTIONS_FILE" default:"data.csv"`
	SegmentsFile     string        `envconfig:"DATASET_SEGMENTS_FILE" default:"customer_segmentation.csv"`
	DBDriver         string        `envconfig:"DATASET_DB_DRIVER" default:"sqlite"`
	DBDSN            string        `envconfig:"DATASET_DB_DSN"`
	LoadTimeout      time.Duration `envconfig:"DATASET_LOAD_TIMEOUT" default:"2m"`
}

type LoggerConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `envconfig:"SECURITY_RATE_LIMIT_ENABLED" default:"true"`
	RateLimitRPS    int      `envconfig:"SECURITY_RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst  int      `envconfig:"SECURITY_RATE_LIMIT_BURST" default:"10"`
	AllowedOrigins  []string `envconfig:"SECURITY_ALLOWED_ORIGINS" default:"http://localhost:8084"`
	TrustedProxies  []string `envconfig:"SECURITY_TRUSTED_PROXIES" default:"127.0.0.1"`
}

// CacheConfig configures the optional redis panel cache. An empty URL
// disables it.
type CacheConfig struct {
	RedisURL string        `envconfig:"CACHE_REDIS_URL"`
	TTL      time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	Prefix   string        `envconfig:"CACHE_PREFIX" default:"rfm"`
}

func (c CacheConfig) Enabled() bool { return c.RedisURL != "" }

type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"METRICS_PATH" default:"/metrics"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	switch c.Dataset.Source {
	case "csv":
		if c.Dataset.TransactionsFile == "" || c.Dataset.SegmentsFile == "" {
			return fmt.Errorf("dataset CSV file paths cannot be empty")
		}
	case "sql":
		if c.Dataset.DBDSN == "" {
			return fmt.Errorf("dataset DSN is required when the source is sql")
		}
		validDrivers := []string{"sqlite", "postgres"}
		if !slices.Contains(validDrivers, c.Dataset.DBDriver) {
			return fmt.Errorf("invalid database driver %q, must be one of: %s", c.Dataset.DBDriver, strings.Join(validDrivers, ", "))
		}
	default:
		return fmt.Errorf("invalid dataset source %q, must be one of: csv, sql", c.Dataset.Source)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Cache.Enabled() && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with /, got %q", c.Metrics.Path)
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
