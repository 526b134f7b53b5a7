// Package cache provides the TTL-bounded, versioned cache store the catalog
// snapshots are persisted in. Entries live in a storage.Storage area under a
// namespace prefix; expiry is checked lazily on read, and entries written by
// another schema version are invisible.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"roastery/internal/observability"
	"roastery/internal/storage"
)

const (
	// SchemaVersion tags every entry. Bump it whenever the shape of the
	// normalized view-models changes so old entries stop being served.
	SchemaVersion = 3

	// DefaultDuration is the lifetime of an entry when Set is given none.
	DefaultDuration = time.Hour

	// DefaultPrefix namespaces every key this store owns.
	DefaultPrefix = "roastery"
)

// Entry is the persisted wrapper around a cached payload.
// Timestamps are epoch milliseconds.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	ExpiresAt int64           `json:"expiresAt"`
	Version   int             `json:"version"`
}

// Config holds cache store configuration.
type Config struct {
	// Prefix namespaces keys (default: "roastery")
	Prefix string
	// Version overrides SchemaVersion; zero means SchemaVersion.
	Version int
	// Compress stores entries brotli-compressed.
	Compress bool
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is a namespaced, versioned TTL cache over a storage area.
// Every failure is logged and treated as a miss; nothing is returned to callers.
type Store struct {
	backend  storage.Storage
	prefix   string
	version  int
	compress bool
	now      func() time.Time
}

// New creates a cache store over backend.
func New(backend storage.Storage, cfg Config, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		prefix:   cfg.Prefix,
		version:  cfg.Version,
		compress: cfg.Compress,
		now:      time.Now,
	}
	if s.prefix == "" {
		s.prefix = DefaultPrefix
	}
	if s.version == 0 {
		s.version = SchemaVersion
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the namespaced key for name, e.g. "roastery_products_en".
func (s *Store) Key(name string) string {
	return s.prefix + "_" + name
}

// Prefix returns the namespace prefix.
func (s *Store) Prefix() string {
	return s.prefix
}

// Version returns the schema version entries are written with.
func (s *Store) Version() int {
	return s.version
}

// Set wraps data in an Entry and writes it under key. A non-positive
// duration means DefaultDuration. Failures are logged, never returned.
func (s *Store) Set(ctx context.Context, key string, data any, duration time.Duration) {
	if duration <= 0 {
		duration = DefaultDuration
	}

	payload, err := json.Marshal(data)
	if err != nil {
		slog.Warn("cache set: failed to marshal data", "key", key, "error", err)
		observability.CacheErrors.WithLabelValues("marshal").Inc()
		return
	}

	now := s.now().UnixMilli()
	entry := Entry{
		Data:      payload,
		Timestamp: now,
		ExpiresAt: now + duration.Milliseconds(),
		Version:   s.version,
	}

	raw, err := encodeEntry(&entry, s.compress)
	if err != nil {
		slog.Warn("cache set: failed to encode entry", "key", key, "error", err)
		observability.CacheErrors.WithLabelValues("encode").Inc()
		return
	}

	if err := s.backend.Set(ctx, key, raw); err != nil {
		slog.Warn("cache set: failed to write entry", "key", key, "error", err)
		observability.CacheErrors.WithLabelValues("write").Inc()
		return
	}

	slog.Debug("cache entry written", "key", key, "bytes", len(raw), "expires_in", duration)
}

// Get decodes the live entry under key into dst and reports whether it did.
// Absent, unparseable, version-mismatched and expired entries are misses;
// version-mismatched and expired ones are deleted as a side effect.
func (s *Store) Get(ctx context.Context, key string, dst any) bool {
	entry, ok := s.read(ctx, key)
	if !ok {
		observability.CacheLookups.WithLabelValues("miss").Inc()
		return false
	}

	if entry.Version != s.version {
		slog.Debug("cache entry version mismatch, purging", "key", key, "version", entry.Version, "want", s.version)
		s.Remove(ctx, key)
		observability.CacheLookups.WithLabelValues("stale_version").Inc()
		return false
	}

	if s.now().UnixMilli() > entry.ExpiresAt {
		slog.Debug("cache entry expired, purging", "key", key)
		s.Remove(ctx, key)
		observability.CacheLookups.WithLabelValues("expired").Inc()
		return false
	}

	if err := json.Unmarshal(entry.Data, dst); err != nil {
		slog.Warn("cache get: failed to decode payload", "key", key, "error", err)
		observability.CacheLookups.WithLabelValues("miss").Inc()
		return false
	}

	observability.CacheLookups.WithLabelValues("hit").Inc()
	return true
}

// IsExpired reports whether key is absent, unparseable or past its expiry.
func (s *Store) IsExpired(ctx context.Context, key string) bool {
	entry, ok := s.read(ctx, key)
	if !ok {
		return true
	}
	return s.now().UnixMilli() > entry.ExpiresAt
}

// Remove deletes key.
func (s *Store) Remove(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil {
		slog.Warn("cache remove failed", "key", key, "error", err)
		observability.CacheErrors.WithLabelValues("delete").Inc()
	}
}

// Clear removes every key in this store's namespace and nothing else.
// It returns the number of keys removed.
func (s *Store) Clear(ctx context.Context) int {
	keys, err := s.backend.Keys(ctx, s.prefix+"_")
	if err != nil {
		slog.Warn("cache clear: failed to list keys", "prefix", s.prefix, "error", err)
		observability.CacheErrors.WithLabelValues("list").Inc()
		return 0
	}

	removed := 0
	for _, key := range keys {
		if err := s.backend.Delete(ctx, key); err != nil {
			slog.Warn("cache clear: failed to delete key", "key", key, "error", err)
			continue
		}
		removed++
	}

	slog.Info("cache cleared", "prefix", s.prefix, "removed", removed)
	return removed
}

// Age returns how many whole minutes ago key was written. Diagnostic only.
func (s *Store) Age(ctx context.Context, key string) (int, bool) {
	entry, ok := s.read(ctx, key)
	if !ok {
		return 0, false
	}
	elapsed := time.Duration(s.now().UnixMilli()-entry.Timestamp) * time.Millisecond
	return int(elapsed / time.Minute), true
}

// Keys lists the keys in this store's namespace.
func (s *Store) Keys(ctx context.Context) []string {
	keys, err := s.backend.Keys(ctx, s.prefix+"_")
	if err != nil {
		slog.Warn("cache keys: failed to list keys", "prefix", s.prefix, "error", err)
		return nil
	}
	return keys
}

// read loads and decodes the raw entry without judging it.
func (s *Store) read(ctx context.Context, key string) (*Entry, bool) {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("cache read failed", "key", key, "error", err)
			observability.CacheErrors.WithLabelValues("read").Inc()
		}
		return nil, false
	}

	entry, err := decodeEntry(raw)
	if err != nil {
		slog.Warn("cache entry unparseable", "key", key, "error", err)
		observability.CacheErrors.WithLabelValues("decode").Inc()
		return nil, false
	}
	return entry, true
}
