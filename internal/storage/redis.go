package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStorage implements Storage using Redis for distributed storage.
// This is suitable for multi-instance deployments behind a load balancer.
type redisStorage struct {
	client     *redis.Client
	ttl        time.Duration
	ttlPrefix  string
	persistent map[string]struct{}
}

// NewRedis creates a new Redis-backed storage area.
func NewRedis(ctx context.Context, cfg RedisConfig) (Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis storage connected", "addr", opts.Addr, "db", opts.DB, "ttl", cfg.TTL, "ttl_prefix", cfg.TTLPrefix)

	return NewRedisWithClient(client, cfg), nil
}

// NewRedisWithClient wraps an existing client. cfg.URL is ignored.
func NewRedisWithClient(client *redis.Client, cfg RedisConfig) Storage {
	persistent := make(map[string]struct{}, len(cfg.Persistent))
	for _, key := range cfg.Persistent {
		persistent[key] = struct{}{}
	}
	return &redisStorage{
		client:     client,
		ttl:        cfg.TTL,
		ttlPrefix:  cfg.TTLPrefix,
		persistent: persistent,
	}
}

// expiration returns the lifetime Set gives key; zero keeps it forever.
func (s *redisStorage) expiration(key string) time.Duration {
	if s.ttl <= 0 || s.ttlPrefix == "" || !strings.HasPrefix(key, s.ttlPrefix) {
		return 0
	}
	if _, ok := s.persistent[key]; ok {
		return 0
	}
	return s.ttl
}

func (s *redisStorage) Type() string {
	return TypeRedis
}

func (s *redisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s from redis: %w", key, err)
	}
	return data, nil
}

func (s *redisStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, s.expiration(key)).Err(); err != nil {
		return fmt.Errorf("failed to set %s in redis: %w", key, err)
	}
	return nil
}

func (s *redisStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s from redis: %w", key, err)
	}
	return nil
}

// Keys walks the keyspace with SCAN so large databases are not blocked by KEYS.
func (s *redisStorage) Keys(ctx context.Context, prefix string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	pattern := escapeGlob(prefix) + "*"
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan redis keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the Redis connection.
func (s *redisStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// escapeGlob escapes Redis glob metacharacters in a literal prefix.
func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
