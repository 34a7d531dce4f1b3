package storage

import (
	"context"
	"sync"

	"github.com/HatiCode/velostat/pkg/points"
)

// MemoryStore keeps every written batch in process. Useful for dry runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	batches [][]points.Point
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Write(ctx context.Context, batch []points.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cp := make([]points.Point, len(batch))
	copy(cp, batch)

	m.mu.Lock()
	m.batches = append(m.batches, cp)
	m.mu.Unlock()
	return nil
}

// Batches returns a copy of every batch written so far, oldest first.
func (m *MemoryStore) Batches() [][]points.Point {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([][]points.Point, len(m.batches))
	copy(out, m.batches)
	return out
}

// Last returns the most recent batch.
func (m *MemoryStore) Last() ([]points.Point, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.batches) == 0 {
		return nil, false
	}
	return m.batches[len(m.batches)-1], true
}

func (m *MemoryStore) Close() error { return nil }
