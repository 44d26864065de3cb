package store

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps providers in insertion order. It enforces MaxInFilter
// like the real backends.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Provider
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Provider)}
}

func (m *MemoryStore) FindByZips(ctx context.Context, zips []string) ([]Provider, error) {
	if err := checkFilter(zips); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Provider
	for _, id := range m.order {
		p := m.byID[id]
		if slices.Contains(zips, p.Zip) {
			p.Materials = slices.Clone(p.Materials)
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryStore) Upsert(_ context.Context, p Provider) error {
	if err := checkProvider(p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	p.Materials = slices.Clone(p.Materials)
	m.byID[p.ID] = p
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
