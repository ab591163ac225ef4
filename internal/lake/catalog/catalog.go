// Package catalog tracks the current snapshot version of every lake
// table. A snapshot becomes visible to readers the moment its catalog
// entry commits, which makes the catalog the single commit point for
// partition replacement.
package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrVersionConflict is returned by Commit when another writer has
// already committed the version being proposed. Callers should reload
// the current entry and retry.
var ErrVersionConflict = errors.New("catalog: snapshot version already committed")

// TableRef identifies one lake table.
type TableRef struct {
	Namespace string
	Table     string
}

// String returns "namespace.table".
func (r TableRef) String() string {
	return r.Namespace + "." + r.Table
}

// Entry records one committed snapshot of a table.
type Entry struct {
	// Version is the monotonically increasing snapshot version,
	// starting at 1.
	Version int64
	// MetadataKey is the object key of the snapshot metadata file.
	MetadataKey string
	// SnapshotID is the unique ID of the snapshot.
	SnapshotID string
	// RowCount is the total row count across all partitions.
	RowCount int64
	// CommittedAt is when the entry was committed.
	CommittedAt time.Time
}

// Catalog stores the committed snapshot history of lake tables.
type Catalog interface {
	// Current returns the latest committed entry for ref, or nil if
	// the table has no committed snapshot yet.
	Current(ctx context.Context, ref TableRef) (*Entry, error)

	// Commit records a new snapshot entry. The entry's Version must be
	// exactly one greater than the current version (or 1 for a new
	// table); otherwise Commit returns ErrVersionConflict.
	Commit(ctx context.Context, ref TableRef, entry Entry) error

	// Close releases any resources held by the catalog.
	Close()
}
