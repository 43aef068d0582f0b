package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-scorecard/config"
	"ai-scorecard/model"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.OperationTimeout)*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	log.Info().Str("address", cfg.Address).Msg("Connected to Redis")
	return rdb, nil
}

// Redis persists cache entries as JSON blobs: one hash for historical
// windows (field per label) and one plain key for the current window. The
// prefix namespaces trackers sharing a database.
type Redis struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

func NewRedis(client *redis.Client, prefix string, operationTimeout time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, timeout: operationTimeout}
}

func (s *Redis) historicalKey() string { return s.prefix + ":historical_weeks" }
func (s *Redis) currentKey() string    { return s.prefix + ":current_week" }

func (s *Redis) GetHistorical(ctx context.Context, label string) (*model.CacheEntry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.client.HGet(ctx, s.historicalKey(), label).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading historical entry %q: %w", label, err)
	}
	return decodeEntry(data, label)
}

// PutHistorical writes the entry only if the label is still absent. HSetNX
// makes the first write win atomically; a concurrent second writer can
// never leave a half-written entry behind.
func (s *Redis) PutHistorical(ctx context.Context, entry model.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry %q: %w", entry.WindowLabel, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	created, err := s.client.HSetNX(ctx, s.historicalKey(), entry.WindowLabel, data).Result()
	if err != nil {
		return fmt.Errorf("writing historical entry %q: %w", entry.WindowLabel, err)
	}
	if created {
		log.Info().Str("window", entry.WindowLabel).Msg("Historical window cached permanently")
	}
	return nil
}

func (s *Redis) GetCurrent(ctx context.Context) (*model.CacheEntry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.currentKey()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading current entry: %w", err)
	}
	return decodeEntry(data, "current")
}

// PutCurrent replaces the current-window slot unconditionally.
func (s *Redis) PutCurrent(ctx context.Context, entry model.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry %q: %w", entry.WindowLabel, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Set(ctx, s.currentKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("writing current entry: %w", err)
	}
	return nil
}

// decodeEntry treats corruption as a miss: the data can always be
// rederived from the upstream feed.
func decodeEntry(data []byte, label string) (*model.CacheEntry, bool, error) {
	var entry model.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Warn().Str("window", label).Err(err).Msg("Corrupt cache entry, treating as miss")
		return nil, false, nil
	}
	return &entry, true, nil
}
