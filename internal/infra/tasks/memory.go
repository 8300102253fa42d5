package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/amcgready/BeatMapper/internal/domain"
)

type memoryStore struct {
	mu        sync.RWMutex
	now       func() time.Time
	retention time.Duration
	data      map[string]domain.GenerationTask
}

type MemoryStoreConfig struct {
	Now       func() time.Time
	Retention time.Duration
}

// NewMemoryStore keeps task records in process memory. Terminal records
// older than the retention window are garbage-collected on writes.
func NewMemoryStore(cfg MemoryStoreConfig) *memoryStore {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Retention <= 0 {
		cfg.Retention = time.Hour
	}
	return &memoryStore{
		now:       cfg.Now,
		retention: cfg.Retention,
		data:      make(map[string]domain.GenerationTask),
	}
}

func (m *memoryStore) Put(_ context.Context, task domain.GenerationTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task.UpdatedAt = m.now()
	m.data[task.ID] = task
	m.gc()
	return nil
}

func (m *memoryStore) Get(_ context.Context, taskID string) (*domain.GenerationTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.data[taskID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &task, nil
}

func (m *memoryStore) gc() {
	cutoff := m.now().Add(-m.retention)
	for id, task := range m.data {
		if task.Status.Terminal() && task.UpdatedAt.Before(cutoff) {
			delete(m.data, id)
		}
	}
}
