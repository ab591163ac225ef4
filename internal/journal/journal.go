// Package journal persists the outcome of the most recent refresh per
// table, so operators and schedulers can see where each layer stands
// without querying the catalog.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry records the latest refresh of one table.
type Entry struct {
	Layer      string    `json:"layer"`
	Table      string    `json:"table"`
	Date       string    `json:"date"`
	Outcome    string    `json:"outcome"`
	RowCount   int       `json:"row_count"`
	Attempts   int       `json:"attempts"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Manager stores and retrieves refresh journal entries.
type Manager interface {
	// Record saves the entry, replacing any previous entry for the
	// same layer and table.
	Record(ctx context.Context, e Entry) error
	// Last returns the latest entry for a layer and table, or nil.
	Last(ctx context.Context, layer, table string) (*Entry, error)
}

type fileManager struct {
	mu   sync.Mutex
	path string
}

// NewFileManager creates a journal backed by a single JSON file.
func NewFileManager(path string) (Manager, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	return &fileManager{path: path}, nil
}

func (m *fileManager) Record(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.load()
	if err != nil {
		return err
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}
	entries[e.Layer+"/"+e.Table] = e

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling journal: %w", err)
	}

	// Write to a temp file and rename so a crash never truncates the
	// journal.
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing journal: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replacing journal: %w", err)
	}
	return nil
}

func (m *fileManager) Last(ctx context.Context, layer, table string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.load()
	if err != nil {
		return nil, err
	}
	e, ok := entries[layer+"/"+table]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *fileManager) load() (map[string]Entry, error) {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return make(map[string]Entry), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing journal %s: %w", m.path, err)
	}
	return entries, nil
}

type noopManager struct{}

// NewNoopManager returns a Manager that stores nothing.
func NewNoopManager() Manager { return noopManager{} }

func (noopManager) Record(context.Context, Entry) error { return nil }

func (noopManager) Last(context.Context, string, string) (*Entry, error) { return nil, nil }
