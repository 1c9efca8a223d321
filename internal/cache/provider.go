package cache

// Package cache backs short-lived lookups, currently the supplier roster
// used for transfer attribution.

import (
	"context"
	"fmt"
	"time"
)

// Provider is a string cache with per-key TTLs
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// RosterKey names the cached supplier roster snapshot.
func RosterKey() string {
	return "suppliers:roster"
}
