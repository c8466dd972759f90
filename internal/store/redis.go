// This file implements a Redis-backed session repository.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BTreeMap/ReflectPipe/internal/models"
)

// RedisStore appends JSON records to one Redis list with RPUSH.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts ...Option) (*RedisStore, error) {
	cfg := applyOpts(opts)
	slog.Debug("NewRedisStore invoked", "DSN_set", cfg.DSN != "")
	if cfg.DSN == "" {
		slog.Error("RedisStore address not set")
		return nil, fmt.Errorf("redis address not set")
	}

	var ropts *redis.Options
	if strings.Contains(cfg.DSN, "://") {
		parsed, err := redis.ParseURL(cfg.DSN)
		if err != nil {
			slog.Error("Invalid redis URL", "error", err)
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		ropts = parsed
	} else {
		ropts = &redis.Options{Addr: cfg.DSN}
	}

	client := redis.NewClient(ropts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		slog.Error("Redis ping failed", "error", err, "addr", ropts.Addr)
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", ropts.Addr, err)
	}

	key := cfg.RedisKey
	if key == "" {
		key = DefaultRedisKey
	}
	slog.Debug("Redis connection established", "addr", ropts.Addr, "key", key)
	return &RedisStore{client: client, key: key}, nil
}

func (s *RedisStore) Append(ctx context.Context, rec models.SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", rec.ID, err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		slog.Error("RedisStore Append failed", "error", err, "id", rec.ID)
		return fmt.Errorf("failed to push session %s: %w", rec.ID, err)
	}
	slog.Debug("RedisStore Append succeeded", "id", rec.ID)
	return nil
}

func (s *RedisStore) ListAll(ctx context.Context) ([]models.SessionRecord, error) {
	values, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		slog.Error("RedisStore ListAll failed", "error", err)
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	elements := make([]json.RawMessage, len(values))
	for i, v := range values {
		elements[i] = json.RawMessage(v)
	}
	records, skipped := decodeRecords(elements)
	if skipped > 0 {
		slog.Warn("RedisStore skipped unreadable records", "key", s.key, "skipped", skipped)
	}
	return records, nil
}

func (s *RedisStore) QueryByDateRange(ctx context.Context, from, to time.Time) ([]models.SessionRecord, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterByRange(all, from, to), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
