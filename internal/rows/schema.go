package rows

import (
	"encoding/json"
	"fmt"
)

// Type enumerates the column types the pipeline can carry end to end.
type Type int

const (
	TypeString Type = iota
	TypeInt64
	TypeFloat64
	TypeBool
	TypeTimestamp
)

var typeNames = map[Type]string{
	TypeString:    "string",
	TypeInt64:     "int64",
	TypeFloat64:   "float64",
	TypeBool:      "bool",
	TypeTimestamp: "timestamp",
}

// String returns the canonical type name used in snapshot metadata.
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// MarshalJSON encodes the type as its canonical name.
func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a canonical type name.
func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for typ, name := range typeNames {
		if name == s {
			*t = typ
			return nil
		}
	}
	return fmt.Errorf("unknown column type %q", s)
}

// Column describes one field of a table schema.
type Column struct {
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Required bool   `json:"required,omitempty"`
}

// Schema is an ordered list of columns. Order is preserved for SQL DDL and
// insert statements; parquet files order leaves by name internally.
type Schema struct {
	Columns []Column `json:"columns"`
}

// NewSchema builds a schema from columns.
func NewSchema(cols ...Column) Schema {
	return Schema{Columns: cols}
}

// Column looks up a column by name.
func (s Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Names returns the column names in declaration order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// IsEmpty reports whether the schema has no columns.
func (s Schema) IsEmpty() bool {
	return len(s.Columns) == 0
}

// Validate checks a row against the schema: all required columns present and
// non-nil, every value of a declared column type, no undeclared columns.
func (s Schema) Validate(r Row) error {
	for _, c := range s.Columns {
		v, ok := r[c.Name]
		if !ok || v == nil {
			if c.Required {
				return fmt.Errorf("missing required column %q", c.Name)
			}
			continue
		}
		vt, err := valueType(v)
		if err != nil {
			return fmt.Errorf("column %q: %w", c.Name, err)
		}
		if vt != c.Type {
			return fmt.Errorf("column %q: have %s, want %s", c.Name, vt, c.Type)
		}
	}
	for name := range r {
		if _, ok := s.Column(name); !ok {
			return fmt.Errorf("undeclared column %q", name)
		}
	}
	return nil
}

// EvolveFrom merges the incoming schema (s) over the table's current schema.
// Evolution is additive only: every current column must be present in the
// incoming schema with an identical type, and columns new to the table must
// be optional. The merged schema keeps the current column order and appends
// new columns in their incoming order.
func (s Schema) EvolveFrom(current Schema) (Schema, error) {
	if current.IsEmpty() {
		return s, nil
	}
	for _, c := range current.Columns {
		in, ok := s.Column(c.Name)
		if !ok {
			return Schema{}, fmt.Errorf("incoming rows drop existing column %q", c.Name)
		}
		if in.Type != c.Type {
			return Schema{}, fmt.Errorf("column %q changes type from %s to %s", c.Name, c.Type, in.Type)
		}
	}
	merged := Schema{Columns: append([]Column(nil), current.Columns...)}
	for _, c := range s.Columns {
		if _, ok := current.Column(c.Name); ok {
			continue
		}
		if c.Required {
			return Schema{}, fmt.Errorf("new column %q must be nullable", c.Name)
		}
		merged.Columns = append(merged.Columns, c)
	}
	return merged, nil
}
