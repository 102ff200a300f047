package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8084", cfg.Address())
	assert.Equal(t, "csv", cfg.Dataset.Source)
	assert.Equal(t, "data.csv", cfg.Dataset.TransactionsFile)
	assert.Equal(t, "customer_segmentation.csv", cfg.Dataset.SegmentsFile)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"http://localhost:8084"}, cfg.Security.AllowedOrigins)
	assert.False(t, cfg.Cache.Enabled())
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATASET_SOURCE", "sql")
	t.Setenv("DATASET_DB_DRIVER", "postgres")
	t.Setenv("DATASET_DB_DSN", "postgres://localhost/rfm")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("CACHE_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Dataset.DBDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
	assert.True(t, cfg.Cache.Enabled())
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "text", cfg.Logger.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port out of range", map[string]string{"SERVER_PORT": "70000"}},
		{"unparseable port", map[string]string{"SERVER_PORT": "http"}},
		{"unknown source", map[string]string{"DATASET_SOURCE": "parquet"}},
		{"sql without dsn", map[string]string{"DATASET_SOURCE": "sql"}},
		{"bad driver", map[string]string{"DATASET_SOURCE": "sql", "DATASET_DB_DSN": "x", "DATASET_DB_DRIVER": "mysql"}},
		{"log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"rate limit", map[string]string{"SECURITY_RATE_LIMIT_RPS": "0"}},
		{"cache ttl", map[string]string{"CACHE_REDIS_URL": "redis://x", "CACHE_TTL": "0s"}},
		{"metrics path", map[string]string{"METRICS_PATH": "metrics"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
