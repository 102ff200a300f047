// Package cache stores rendered panel payloads in redis. Cached bytes are a
// presentation artifact only; panels are always recomputable from the data.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"rfm-dashboard/internal/config"
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// PanelCache is a redis-backed cache keyed by panel and parameters. A nil
// *PanelCache is a valid, always-missing cache.
type PanelCache struct {
	store   cmdable
	raw     *redis.Client
	ttl     time.Duration
	prefix  string
	version string
}

// New connects to redis and verifies connectivity. It returns nil when the
// cache is not configured. version scopes keys to one loaded dataset.
func New(ctx context.Context, cfg config.CacheConfig, version string) (*PanelCache, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &PanelCache{store: raw, raw: raw, ttl: cfg.TTL, prefix: cfg.Prefix, version: version}, nil
}

// Key builds the namespaced key for a panel and its query parameters.
// Parameters are encoded in sorted order so equal queries share a key.
func (c *PanelCache) Key(panel string, params url.Values) string {
	parts := []string{"panel", panel}
	if c != nil {
		parts = append([]string{c.prefix, c.version}, parts...)
	}
	if enc := params.Encode(); enc != "" {
		parts = append(parts, enc)
	}
	clean := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, ":")
}

// Get returns the cached payload. ok is false on a miss.
func (c *PanelCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c == nil || c.store == nil {
		return nil, false, nil
	}
	b, err := c.store.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *PanelCache) Set(ctx context.Context, key string, payload []byte) error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Set(ctx, key, payload, c.ttl).Err()
}

func (c *PanelCache) Del(ctx context.Context, keys ...string) error {
	if c == nil || c.store == nil || len(keys) == 0 {
		return nil
	}
	return c.store.Del(ctx, keys...).Err()
}

func (c *PanelCache) Ping(ctx context.Context) error {
	if c == nil || c.store == nil {
		return errors.New("panel cache not configured")
	}
	return c.store.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *PanelCache) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.Close()
}
