package store

import (
	"context"
	"sync"

	"ai-scorecard/model"
)

// Store persists aggregated week statistics between runs.
//
// Historical entries are write-once: the first successful write for a label
// wins and later writes leave it untouched. The current-window slot is
// replaced unconditionally on every run. There is no expiry for historical
// entries; a fully elapsed window never changes.
type Store interface {
	GetHistorical(ctx context.Context, label string) (*model.CacheEntry, bool, error)
	PutHistorical(ctx context.Context, entry model.CacheEntry) error
	GetCurrent(ctx context.Context) (*model.CacheEntry, bool, error)
	PutCurrent(ctx context.Context, entry model.CacheEntry) error
}

// Memory is an in-process Store for tests and for one-shot runs on hosts
// without Redis.
type Memory struct {
	mu         sync.RWMutex
	historical map[string]model.CacheEntry
	current    *model.CacheEntry
}

func NewMemory() *Memory {
	return &Memory{historical: make(map[string]model.CacheEntry)}
}

func (m *Memory) GetHistorical(ctx context.Context, label string) (*model.CacheEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.historical[label]
	if !ok {
		return nil, false, nil
	}
	return &entry, true, nil
}

func (m *Memory) PutHistorical(ctx context.Context, entry model.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// First write wins.
	if _, exists := m.historical[entry.WindowLabel]; exists {
		return nil
	}
	m.historical[entry.WindowLabel] = entry
	return nil
}

func (m *Memory) GetCurrent(ctx context.Context) (*model.CacheEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, false, nil
	}
	entry := *m.current
	return &entry, true, nil
}

func (m *Memory) PutCurrent(ctx context.Context, entry model.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &entry
	return nil
}
