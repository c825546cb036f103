package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
	setErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{entries: map[string][]byte{}}
}

func (f *fakeBackend) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	value, ok := f.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	return value, nil
}

func (f *fakeBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[key] = value
	return nil
}

func (f *fakeBackend) DeleteByPrefix(_ context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
		}
	}
	return nil
}

type metricsPayload struct {
	Total int `json:"total"`
}

func TestKeySpec_Key(t *testing.T) {
	t.Run("deterministic regardless of arg order", func(t *testing.T) {
		a := KeySpec{Scope: "acme", Op: "trend", Args: map[string]string{"days": "30", "unit": "usd"}}
		b := KeySpec{Scope: "acme", Op: "trend", Args: map[string]string{"unit": "usd", "days": "30"}}
		assert.Equal(t, a.Key(), b.Key())
	})

	t.Run("long keys collapse to a hash", func(t *testing.T) {
		spec := KeySpec{Scope: "acme", Op: "trend", Args: map[string]string{
			"filter": strings.Repeat("x", 400),
		}}
		key := spec.Key()
		assert.LessOrEqual(t, len(key), maxKeyLength)
		assert.True(t, strings.HasPrefix(key, "advisor:acme:trend:"))
	})

	t.Run("empty scope namespaces under global", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(KeySpec{Op: "metrics"}.Key(), "advisor:global:"))
	})
}

func TestManager_GetOrCompute(t *testing.T) {
	ctx := context.Background()
	spec := KeySpec{Scope: "acme", Op: "metrics"}

	t.Run("computes at most once while fresh", func(t *testing.T) {
		backend := newFakeBackend()
		m := NewManager(backend, DefaultTTLConfig())

		calls := 0
		compute := func(context.Context) (any, error) {
			calls++
			return metricsPayload{Total: 42}, nil
		}

		var first, second metricsPayload
		require.NoError(t, m.GetOrCompute(ctx, spec, TTLDefault, &first, compute))
		require.NoError(t, m.GetOrCompute(ctx, spec, TTLDefault, &second, compute))

		assert.Equal(t, 1, calls)
		assert.Equal(t, first, second)
		assert.Equal(t, 42, second.Total)
	})

	t.Run("invalidate forces recomputation", func(t *testing.T) {
		backend := newFakeBackend()
		m := NewManager(backend, DefaultTTLConfig())

		calls := 0
		compute := func(context.Context) (any, error) {
			calls++
			return metricsPayload{Total: calls}, nil
		}

		var out metricsPayload
		require.NoError(t, m.GetOrCompute(ctx, spec, TTLShort, &out, compute))
		m.Invalidate(ctx, "acme")
		require.NoError(t, m.GetOrCompute(ctx, spec, TTLShort, &out, compute))

		assert.Equal(t, 2, calls)
	})

	t.Run("invalidating another scope leaves entries alone", func(t *testing.T) {
		backend := newFakeBackend()
		m := NewManager(backend, DefaultTTLConfig())

		calls := 0
		compute := func(context.Context) (any, error) {
			calls++
			return metricsPayload{Total: calls}, nil
		}

		var out metricsPayload
		require.NoError(t, m.GetOrCompute(ctx, spec, TTLDefault, &out, compute))
		m.Invalidate(ctx, "globex")
		require.NoError(t, m.GetOrCompute(ctx, spec, TTLDefault, &out, compute))

		assert.Equal(t, 1, calls)
	})

	t.Run("backend failure degrades to direct computation", func(t *testing.T) {
		backend := newFakeBackend()
		backend.getErr = errors.New("connection refused")
		backend.setErr = errors.New("connection refused")
		m := NewManager(backend, DefaultTTLConfig())

		var out metricsPayload
		err := m.GetOrCompute(ctx, spec, TTLDefault, &out, func(context.Context) (any, error) {
			return metricsPayload{Total: 7}, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 7, out.Total)
	})

	t.Run("compute errors propagate", func(t *testing.T) {
		m := NewManager(newFakeBackend(), DefaultTTLConfig())

		var out metricsPayload
		err := m.GetOrCompute(ctx, spec, TTLDefault, &out, func(context.Context) (any, error) {
			return nil, errors.New("store down")
		})
		assert.EqualError(t, err, "store down")
	})
}
