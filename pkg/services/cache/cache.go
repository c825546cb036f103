package cache

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrMiss is returned by a Backend when a key is absent.
var ErrMiss = errors.New("cache miss")

// Backend is the minimal surface the manager needs from a cache store.
// Redis is the production implementation; tests substitute a map.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

type TTLClass string

const (
	TTLShort   TTLClass = "short"
	TTLDefault TTLClass = "default"
	TTLLong    TTLClass = "long"
)

type TTLConfig struct {
	Short   time.Duration
	Default time.Duration
	Long    time.Duration
}

func DefaultTTLConfig() TTLConfig {
	return TTLConfig{
		Short:   1 * time.Minute,
		Default: 5 * time.Minute,
		Long:    30 * time.Minute,
	}
}

// KeySpec identifies a cached computation: an operation name plus its
// arguments, namespaced under a scope so a whole scope can be purged.
type KeySpec struct {
	Scope string // e.g. client id, or "global"
	Op    string
	Args  map[string]string
}

const (
	keyNamespace = "advisor"
	// Keys longer than this are replaced by a hash of themselves to bound
	// key size while staying collision-resistant in practice.
	maxKeyLength = 200
)

// Key builds a deterministic cache key: namespace, scope, op, then the
// arguments in sorted order.
func (k KeySpec) Key() string {
	parts := make([]string, 0, len(k.Args))
	for name, value := range k.Args {
		parts = append(parts, name+"="+value)
	}
	sort.Strings(parts)

	scope := k.Scope
	if scope == "" {
		scope = "global"
	}
	key := fmt.Sprintf("%s:%s:%s:%s", keyNamespace, scope, k.Op, strings.Join(parts, "|"))
	if len(key) > maxKeyLength {
		sum := sha1.Sum([]byte(key))
		key = fmt.Sprintf("%s:%s:%s:%x", keyNamespace, scope, k.Op, sum)
	}
	return key
}

// noopBackend misses every read; used when no cache server is configured.
type noopBackend struct{}

func NewNoopBackend() Backend { return noopBackend{} }

func (noopBackend) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

func (noopBackend) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (noopBackend) DeleteByPrefix(context.Context, string) error { return nil }

// Manager is a passive read-through cache: on a miss the caller's compute
// function runs synchronously and the result is stored. The cache is never
// the system of record; any backend failure degrades to direct computation.
type Manager struct {
	backend Backend
	ttl     TTLConfig
}

func NewManager(backend Backend, ttl TTLConfig) *Manager {
	if ttl.Default == 0 {
		ttl = DefaultTTLConfig()
	}
	return &Manager{backend: backend, ttl: ttl}
}

// GetOrCompute fills dest from cache when possible, otherwise runs compute,
// stores the result under the key's TTL class and fills dest from it.
func (m *Manager) GetOrCompute(
	ctx context.Context,
	spec KeySpec,
	class TTLClass,
	dest any,
	compute func(ctx context.Context) (any, error),
) error {
	logger := zerolog.Ctx(ctx)
	key := spec.Key()

	cached, err := m.backend.Get(ctx, key)
	if err == nil {
		if unmarshalErr := json.Unmarshal(cached, dest); unmarshalErr == nil {
			return nil
		}
		// Corrupt entry: fall through and recompute.
		logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	} else if !errors.Is(err, ErrMiss) {
		logger.Warn().Err(err).Str("key", key).Msg("cache backend unavailable, computing directly")
	}

	value, err := compute(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	if err := m.backend.Set(ctx, key, payload, m.ttlFor(class)); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
	return json.Unmarshal(payload, dest)
}

// Invalidate removes every key under a scope; an empty scope purges the
// whole namespace.
func (m *Manager) Invalidate(ctx context.Context, scope string) {
	logger := zerolog.Ctx(ctx)

	prefix := keyNamespace + ":"
	if scope != "" {
		prefix += scope + ":"
	}
	if err := m.backend.DeleteByPrefix(ctx, prefix); err != nil {
		logger.Warn().Err(err).Str("scope", scope).Msg("cache invalidation failed")
	}
}

func (m *Manager) ttlFor(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return m.ttl.Short
	case TTLLong:
		return m.ttl.Long
	}
	return m.ttl.Default
}
