package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refresh"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// Table is one warehouse table serving as a refresh target. A
// partition replacement runs DELETE then COPY inside a single
// transaction, so readers observe the old rows or the new rows but
// never the gap in between.
type Table struct {
	sink            *Sink
	name            string
	schema          rows.Schema
	partitionColumn string
}

// NewTable returns a refresh target for one warehouse table.
func NewTable(sink *Sink, name string, schema rows.Schema) *Table {
	return &Table{
		sink:            sink,
		name:            name,
		schema:          schema,
		partitionColumn: "date_id",
	}
}

// EnsureTable creates the table if needed and adds any optional
// columns the schema has gained since the table was created.
func (t *Table) EnsureTable(ctx context.Context) error {
	ddl, err := createTableSQL(t.name, t.partitionColumn, t.schema)
	if err != nil {
		return err
	}
	if _, err := t.sink.pool.Exec(ctx, ddl); err != nil {
		return classifyPgErr(fmt.Errorf("creating table %s: %w", t.name, err))
	}

	for _, c := range t.schema.Columns {
		if c.Required {
			continue
		}
		alter, err := addColumnSQL(t.name, c)
		if err != nil {
			return err
		}
		if _, err := t.sink.pool.Exec(ctx, alter); err != nil {
			return classifyPgErr(fmt.Errorf("adding column %s.%s: %w", t.name, c.Name, err))
		}
	}
	return nil
}

// Handle implements refresh.Target.
func (t *Table) Handle() refresh.TableHandle {
	return refresh.TableHandle{
		Table:           t.name,
		Engine:          refresh.EngineWarehouse,
		PartitionColumn: t.partitionColumn,
	}
}

// ReadPartition implements refresh.PartitionReader.
func (t *Table) ReadPartition(ctx context.Context, date rows.LogicalDate) ([]rows.Row, error) {
	q := selectSQL(t.name, t.partitionColumn, t.schema)
	res, err := t.sink.pool.Query(ctx, q, date.String())
	if err != nil {
		return nil, classifyPgErr(fmt.Errorf("reading partition %s of %s: %w", date, t.name, err))
	}
	defer res.Close()

	var out []rows.Row
	for res.Next() {
		vals, err := res.Values()
		if err != nil {
			return nil, classifyPgErr(fmt.Errorf("scanning row from %s: %w", t.name, err))
		}
		r := make(rows.Row, len(t.schema.Columns))
		for i, c := range t.schema.Columns {
			r[c.Name] = normalizeValue(vals[i])
		}
		out = append(out, r)
	}
	if err := res.Err(); err != nil {
		return nil, classifyPgErr(fmt.Errorf("reading partition %s of %s: %w", date, t.name, err))
	}
	return out, nil
}

// ReplacePartition implements refresh.Target.
func (t *Table) ReplacePartition(ctx context.Context, date rows.LogicalDate, rs []rows.Row) error {
	tx, err := t.sink.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classifyPgErr(fmt.Errorf("beginning transaction on %s: %w", t.name, err))
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, deleteSQL(t.name, t.partitionColumn), date.String())
	if err != nil {
		return classifyPgErr(fmt.Errorf("deleting partition %s of %s: %w", date, t.name, err))
	}

	names := t.schema.Names()
	source := make([][]any, len(rs))
	for i, r := range rs {
		source[i] = copyValues(t.schema, r)
	}
	copied, err := tx.CopyFrom(ctx, pgx.Identifier{t.name}, names, pgx.CopyFromRows(source))
	if err != nil {
		return classifyPgErr(fmt.Errorf("copying %d rows into %s: %w", len(rs), t.name, err))
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyPgErr(fmt.Errorf("committing partition %s of %s: %w", date, t.name, err))
	}

	t.sink.log.Info("partition replaced",
		"table", t.name,
		"date", date.String(),
		"rows_deleted", tag.RowsAffected(),
		"rows_inserted", copied,
	)
	return nil
}

// normalizeValue maps driver values onto the row value domain.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC()
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
