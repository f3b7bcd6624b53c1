package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/newthinker/dipcast/internal/core"
	"github.com/newthinker/dipcast/internal/pipeline"
)

const defaultMaxEntries = 64

// Memory is a bounded in-process LRU. A zero TTL never expires entries.
type Memory struct {
	lru *expirable.LRU[Key, pipeline.Bundle]
}

// NewMemory creates a memory cache holding at most maxEntries bundles
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Memory{lru: expirable.NewLRU[Key, pipeline.Bundle](maxEntries, nil, ttl)}
}

func (m *Memory) Get(ctx context.Context, key Key) (pipeline.Bundle, error) {
	bundle, ok := m.lru.Get(key)
	if !ok {
		return pipeline.Bundle{}, core.ErrCacheMiss
	}
	return bundle, nil
}

func (m *Memory) Set(ctx context.Context, key Key, bundle pipeline.Bundle) error {
	m.lru.Add(key, bundle)
	return nil
}

func (m *Memory) Invalidate(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(symbol)
	for _, key := range m.lru.Keys() {
		if key.Symbol == symbol {
			m.lru.Remove(key)
		}
	}
	return nil
}

// Len returns the number of stored entries
func (m *Memory) Len() int {
	return m.lru.Len()
}
