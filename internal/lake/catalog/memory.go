package catalog

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Catalog used in tests and local runs.
type Memory struct {
	mu      sync.Mutex
	entries map[TableRef][]Entry
}

// NewMemory returns an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[TableRef][]Entry),
	}
}

// Current implements Catalog.
func (m *Memory) Current(ctx context.Context, ref TableRef) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := m.entries[ref]
	if len(history) == 0 {
		return nil, nil
	}
	e := history[len(history)-1]
	return &e, nil
}

// Commit implements Catalog. The version check and append happen under
// one lock, so concurrent writers proposing the same version see
// exactly one winner.
func (m *Memory) Commit(ctx context.Context, ref TableRef, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := m.entries[ref]
	var current int64
	if len(history) > 0 {
		current = history[len(history)-1].Version
	}
	if entry.Version != current+1 {
		return ErrVersionConflict
	}
	if entry.CommittedAt.IsZero() {
		entry.CommittedAt = time.Now().UTC()
	}
	m.entries[ref] = append(history, entry)
	return nil
}

// Close implements Catalog.
func (m *Memory) Close() {}
