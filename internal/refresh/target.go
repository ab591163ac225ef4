package refresh

import (
	"context"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// Engine identifies the storage engine backing a table.
type Engine string

const (
	// EngineLake is the snapshot-versioned table format over object storage.
	EngineLake Engine = "lake"
	// EngineWarehouse is a relational (PostgreSQL) table.
	EngineWarehouse Engine = "warehouse"
)

// TableHandle identifies a refresh target: table name, backing engine and
// partition column. The partition column is date_id for every table in the
// pipeline.
type TableHandle struct {
	Table           string
	Engine          Engine
	PartitionColumn string
}

func (h TableHandle) String() string {
	return string(h.Engine) + "/" + h.Table
}

// PartitionReader reads the committed rows of one date partition. An absent
// partition yields an empty slice, not an error.
type PartitionReader interface {
	ReadPartition(ctx context.Context, date rows.LogicalDate) ([]rows.Row, error)
}

// Target is a table the coordinator can refresh. ReplacePartition is the
// whole delete-insert unit: after it returns nil, readers observe exactly
// the given rows for the date and no other date is altered. Implementations
// wrap engine failures in *Error so the coordinator can classify them.
type Target interface {
	PartitionReader

	// Handle identifies the target table.
	Handle() TableHandle

	// ReplacePartition atomically replaces the date's partition with rows.
	ReplacePartition(ctx context.Context, date rows.LogicalDate, rs []rows.Row) error
}
