package collector

import (
	"context"
	"testing"

	"github.com/newthinker/dipcast/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCollector for testing
type mockCollector struct {
	name string
}

func (m *mockCollector) Name() string          { return m.name }
func (m *mockCollector) Init(cfg Config) error { return nil }
func (m *mockCollector) FetchDailyBars(ctx context.Context, symbol string, lookback core.Lookback) (core.BarSeries, error) {
	return core.BarSeries{Symbol: symbol}, nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	r.Register(&mockCollector{name: "mock"})

	c, ok := r.Get("mock")
	require.True(t, ok, "expected to find registered collector")
	assert.Equal(t, "mock", c.Name())
}

func TestRegistry_GetNotFound(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Get("nonexistent")
	assert.False(t, ok)
}

func TestRegistry_GetAllSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockCollector{name: "yahoo"})
	r.Register(&mockCollector{name: "csv"})

	all := r.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "csv", all[0].Name())
	assert.Equal(t, "yahoo", all[1].Name())
}

func TestRegistry_Primary(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Primary()
	assert.False(t, ok)

	r.Register(&mockCollector{name: "yahoo"})
	c, ok := r.Primary()
	require.True(t, ok)
	assert.Equal(t, "yahoo", c.Name())
}
