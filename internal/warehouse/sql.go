package warehouse

import (
	"fmt"
	"strings"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// pgType maps a column type to its PostgreSQL type name.
func pgType(t rows.Type) (string, error) {
	switch t {
	case rows.TypeString:
		return "TEXT", nil
	case rows.TypeInt64:
		return "BIGINT", nil
	case rows.TypeFloat64:
		return "DOUBLE PRECISION", nil
	case rows.TypeBool:
		return "BOOLEAN", nil
	case rows.TypeTimestamp:
		return "TIMESTAMPTZ", nil
	default:
		return "", fmt.Errorf("unsupported column type %s", t)
	}
}

// createTableSQL renders CREATE TABLE IF NOT EXISTS DDL for a schema,
// with an index on the partition column.
func createTableSQL(table, partitionColumn string, sch rows.Schema) (string, error) {
	var cols []string
	for _, c := range sch.Columns {
		typ, err := pgType(c.Type)
		if err != nil {
			return "", fmt.Errorf("column %q: %w", c.Name, err)
		}
		def := fmt.Sprintf("%s %s", quoteIdent(c.Name), typ)
		if c.Required {
			def += " NOT NULL"
		}
		cols = append(cols, def)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n    %s\n);\n",
		quoteIdent(table), strings.Join(cols, ",\n    "))
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS %s ON %s (%s);",
		quoteIdent("idx_"+table+"_"+partitionColumn), quoteIdent(table), quoteIdent(partitionColumn))
	return b.String(), nil
}

// addColumnSQL renders DDL for adding one optional column.
func addColumnSQL(table string, c rows.Column) (string, error) {
	typ, err := pgType(c.Type)
	if err != nil {
		return "", fmt.Errorf("column %q: %w", c.Name, err)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
		quoteIdent(table), quoteIdent(c.Name), typ), nil
}

// deleteSQL renders the partition delete statement.
func deleteSQL(table, partitionColumn string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = $1", quoteIdent(table), quoteIdent(partitionColumn))
}

// selectSQL renders the partition read statement over the schema's
// columns, in schema order.
func selectSQL(table, partitionColumn string, sch rows.Schema) string {
	names := make([]string, len(sch.Columns))
	for i, c := range sch.Columns {
		names[i] = quoteIdent(c.Name)
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		strings.Join(names, ", "), quoteIdent(table), quoteIdent(partitionColumn))
}

// copyValues converts a row to positional values in schema order for
// CopyFrom. Missing or nil values become SQL NULL.
func copyValues(sch rows.Schema, r rows.Row) []any {
	out := make([]any, len(sch.Columns))
	for i, c := range sch.Columns {
		v, ok := r[c.Name]
		if !ok {
			out[i] = nil
			continue
		}
		out[i] = v
	}
	return out
}

// quoteIdent quotes a SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
