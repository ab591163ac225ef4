// Package rows defines the schema-carrying row model shared by every
// storage adapter and transform stage in the pipeline.
package rows

import (
	"fmt"
	"time"
)

// Row is a single record keyed by column name. Values are restricted to
// string, int64, float64, bool and time.Time; a nil entry (or an absent key
// for an optional column) means NULL.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the named column as a string, or "" when null/absent.
func (r Row) String(name string) string {
	if v, ok := r[name].(string); ok {
		return v
	}
	return ""
}

// Int64 returns the named column as an int64, or 0 when null/absent.
func (r Row) Int64(name string) int64 {
	if v, ok := r[name].(int64); ok {
		return v
	}
	return 0
}

// Float64 returns the named column as a float64, or 0 when null/absent.
// Integer values are widened so aggregations can treat counts as measures.
func (r Row) Float64(name string) float64 {
	switch v := r[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

// Time returns the named column as a time.Time, or the zero time.
func (r Row) Time(name string) time.Time {
	if v, ok := r[name].(time.Time); ok {
		return v
	}
	return time.Time{}
}

// valueType reports the column Type of a Go value carried in a Row.
func valueType(v any) (Type, error) {
	switch v.(type) {
	case string:
		return TypeString, nil
	case int64:
		return TypeInt64, nil
	case float64:
		return TypeFloat64, nil
	case bool:
		return TypeBool, nil
	case time.Time:
		return TypeTimestamp, nil
	default:
		return 0, fmt.Errorf("unsupported row value type %T", v)
	}
}
