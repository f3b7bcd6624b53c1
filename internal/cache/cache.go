// Package cache keeps recently composed bundles so repeated requests for the
// same symbol and parameters skip the fetch and fit.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/dipcast/internal/core"
	"github.com/newthinker/dipcast/internal/pipeline"
	"github.com/redis/go-redis/v9"
)

// Key identifies one analysis result
type Key struct {
	Symbol      string
	Lookback    string
	HorizonDays int
}

// NewKey derives the cache key for a symbol under the given options
func NewKey(symbol string, opts pipeline.Options) Key {
	return Key{
		Symbol:      strings.ToUpper(symbol),
		Lookback:    opts.Lookback.String(),
		HorizonDays: opts.HorizonDays,
	}
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%d", k.Symbol, k.Lookback, k.HorizonDays)
}

// Cache stores bundles by key. Get returns core.ErrCacheMiss when the key is
// absent or expired.
type Cache interface {
	Get(ctx context.Context, key Key) (pipeline.Bundle, error)
	Set(ctx context.Context, key Key, bundle pipeline.Bundle) error

	// Invalidate drops every entry for symbol regardless of parameters
	Invalidate(ctx context.Context, symbol string) error
}

// Config selects and sizes the backend
type Config struct {
	Type       string // "memory", "redis" or "none"
	MaxEntries int
	TTL        time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// New builds the configured backend. Redis connectivity is checked with a ping.
func New(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemory(cfg.MaxEntries, cfg.TTL), nil
	case "none":
		return Nop{}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err))
		}
		return NewRedis(client, cfg.RedisPrefix, cfg.TTL), nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown cache type: %s", cfg.Type))
	}
}

// Nop never stores anything
type Nop struct{}

func (Nop) Get(context.Context, Key) (pipeline.Bundle, error) {
	return pipeline.Bundle{}, core.ErrCacheMiss
}
func (Nop) Set(context.Context, Key, pipeline.Bundle) error { return nil }
func (Nop) Invalidate(context.Context, string) error        { return nil }
