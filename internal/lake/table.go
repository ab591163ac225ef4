package lake

import (
	"context"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refresh"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// Table binds a named lake table and its column schema to a Store so
// it can serve as a refresh target.
type Table struct {
	store  *Store
	name   string
	schema rows.Schema
}

// NewTable returns a refresh target for one lake table.
func NewTable(store *Store, name string, schema rows.Schema) *Table {
	return &Table{
		store:  store,
		name:   name,
		schema: schema,
	}
}

// Handle implements refresh.Target.
func (t *Table) Handle() refresh.TableHandle {
	return refresh.TableHandle{
		Table:           t.name,
		Engine:          refresh.EngineLake,
		PartitionColumn: "date_id",
	}
}

// ReadPartition implements refresh.PartitionReader.
func (t *Table) ReadPartition(ctx context.Context, date rows.LogicalDate) ([]rows.Row, error) {
	return t.store.ReadPartition(ctx, t.name, date)
}

// ReplacePartition implements refresh.Target.
func (t *Table) ReplacePartition(ctx context.Context, date rows.LogicalDate, rs []rows.Row) error {
	_, err := t.store.CommitPartitionReplace(ctx, t.name, t.schema, date, rs)
	return err
}
