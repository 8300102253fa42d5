package catalogmem

import (
	"context"
	"sort"
	"sync"

	"github.com/amcgready/BeatMapper/internal/domain"
)

// Catalog is the in-memory beatmap repository: the default when no database
// is configured, and the fixture store in tests.
type Catalog struct {
	mu   sync.RWMutex
	data map[string]domain.Beatmap
}

func New() *Catalog {
	return &Catalog{data: make(map[string]domain.Beatmap)}
}

func (c *Catalog) Create(_ context.Context, b domain.Beatmap) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[b.ID] = b
	return nil
}

func (c *Catalog) GetByID(_ context.Context, id string) (*domain.Beatmap, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (c *Catalog) Update(_ context.Context, b domain.Beatmap) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[b.ID]; !ok {
		return domain.ErrNotFound
	}
	c.data[b.ID] = b
	return nil
}

func (c *Catalog) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[id]; !ok {
		return domain.ErrNotFound
	}
	delete(c.data, id)
	return nil
}

func (c *Catalog) List(_ context.Context) ([]domain.Beatmap, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Beatmap, 0, len(c.data))
	for _, b := range c.data {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
