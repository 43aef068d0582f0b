package cache

import (
	"time"

	"ai-scorecard/config"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"
)

// ReportCache keeps rendered report documents in process memory so
// dashboard polling does not re-run the live-window fetch on every request.
// Completed weeks are already permanent in the store; this TTL only bounds
// the staleness of the current week.
type ReportCache struct {
	client *ristretto.Cache
	ttl    time.Duration
}

func New(cfg config.CacheConfig) (*ReportCache, error) {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(cfg.CounterSize),
		MaxCost:     int64(cfg.MaxSizeMB) * 1024 * 1024,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("max_size_mb", cfg.MaxSizeMB).
		Int("ttl_seconds", cfg.TTLSeconds).
		Msg("Report cache initialized")

	return &ReportCache{
		client: client,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
	}, nil
}

// Get returns the cached document for a report key.
func (c *ReportCache) Get(key string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	v, found := c.client.Get(key)
	if !found {
		return nil, false
	}
	data, ok := v.([]byte)
	return data, ok
}

// Set stores a rendered document, costed by its size.
func (c *ReportCache) Set(key string, data []byte) bool {
	if c == nil || c.client == nil {
		return false
	}
	return c.client.SetWithTTL(key, data, int64(len(data)), c.ttl)
}

// Close cleanly shuts down the cache.
func (c *ReportCache) Close() {
	if c != nil && c.client != nil {
		c.client.Close()
	}
}

// MetricsSnapshot is the subset of cache metrics exposed over HTTP.
type MetricsSnapshot struct {
	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	KeysAdded  uint64  `json:"keys_added"`
	HitRatio   float64 `json:"hit_ratio"`
	TTLSeconds int     `json:"ttl_seconds"`
}

func (c *ReportCache) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{}
	if c != nil {
		snap.TTLSeconds = int(c.ttl.Seconds())
	}
	if c == nil || c.client == nil || c.client.Metrics == nil {
		return snap
	}

	m := c.client.Metrics
	snap.Hits = m.Hits()
	snap.Misses = m.Misses()
	snap.KeysAdded = m.KeysAdded()
	if total := snap.Hits + snap.Misses; total > 0 {
		snap.HitRatio = float64(snap.Hits) / float64(total)
	}
	return snap
}
