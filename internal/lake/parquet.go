package lake

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// parquetSchema builds a parquet schema from a column schema. Group
// fields are ordered alphabetically by parquet-go, so column indexes
// used during encoding must follow the same order.
func parquetSchema(name string, sch rows.Schema) (*parquet.Schema, []rows.Column, error) {
	group := parquet.Group{}
	for _, col := range sch.Columns {
		node, err := parquetNode(col.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		if !col.Required {
			node = parquet.Optional(node)
		}
		group[col.Name] = node
	}

	ordered := make([]rows.Column, len(sch.Columns))
	copy(ordered, sch.Columns)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Name < ordered[j].Name
	})

	return parquet.NewSchema(name, group), ordered, nil
}

func parquetNode(t rows.Type) (parquet.Node, error) {
	switch t {
	case rows.TypeString:
		return parquet.String(), nil
	case rows.TypeInt64:
		return parquet.Int(64), nil
	case rows.TypeFloat64:
		return parquet.Leaf(parquet.DoubleType), nil
	case rows.TypeBool:
		return parquet.Leaf(parquet.BooleanType), nil
	case rows.TypeTimestamp:
		return parquet.Timestamp(parquet.Millisecond), nil
	default:
		return nil, fmt.Errorf("unsupported column type %s", t)
	}
}

// EncodeParquet serializes rows into a snappy-compressed parquet file.
// Every row must already validate against sch.
func EncodeParquet(sch rows.Schema, rs []rows.Row) ([]byte, error) {
	psch, ordered, err := parquetSchema("partition", sch)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := parquet.NewWriter(&buf, psch, parquet.Compression(&parquet.Snappy))

	encoded := make([]parquet.Row, 0, len(rs))
	for i, r := range rs {
		prow, err := encodeRow(ordered, r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		encoded = append(encoded, prow)
	}
	if len(encoded) > 0 {
		if _, err := w.WriteRows(encoded); err != nil {
			return nil, fmt.Errorf("writing parquet rows: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeRow(ordered []rows.Column, r rows.Row) (parquet.Row, error) {
	prow := make(parquet.Row, 0, len(ordered))
	for col, c := range ordered {
		v, present := r[c.Name]
		if !present || v == nil {
			if c.Required {
				return nil, fmt.Errorf("missing required column %q", c.Name)
			}
			prow = append(prow, parquet.ValueOf(nil).Level(0, 0, col))
			continue
		}

		def := 0
		if !c.Required {
			def = 1
		}

		var pv parquet.Value
		switch c.Type {
		case rows.TypeTimestamp:
			ts, ok := v.(time.Time)
			if !ok {
				return nil, fmt.Errorf("column %q: expected time.Time, got %T", c.Name, v)
			}
			pv = parquet.ValueOf(ts.UnixMilli())
		default:
			pv = parquet.ValueOf(v)
		}
		prow = append(prow, pv.Level(0, def, col))
	}
	return prow, nil
}

// DecodeParquet reads a parquet file back into rows according to sch.
func DecodeParquet(sch rows.Schema, data []byte) ([]rows.Row, error) {
	psch, ordered, err := parquetSchema("partition", sch)
	if err != nil {
		return nil, err
	}

	reader := parquet.NewReader(bytes.NewReader(data), psch)
	defer reader.Close()

	var out []rows.Row
	buf := make([]parquet.Row, 64)
	for {
		n, err := reader.ReadRows(buf)
		for _, prow := range buf[:n] {
			r, derr := decodeRow(ordered, prow)
			if derr != nil {
				return nil, derr
			}
			out = append(out, r)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading parquet rows: %w", err)
		}
	}
	return out, nil
}

func decodeRow(ordered []rows.Column, prow parquet.Row) (rows.Row, error) {
	if len(prow) != len(ordered) {
		return nil, fmt.Errorf("parquet row has %d values, schema has %d columns", len(prow), len(ordered))
	}
	r := make(rows.Row, len(ordered))
	for i, pv := range prow {
		c := ordered[pv.Column()]
		if pv.IsNull() {
			r[c.Name] = nil
			continue
		}
		switch c.Type {
		case rows.TypeString:
			r[c.Name] = pv.String()
		case rows.TypeInt64:
			r[c.Name] = pv.Int64()
		case rows.TypeFloat64:
			r[c.Name] = pv.Double()
		case rows.TypeBool:
			r[c.Name] = pv.Boolean()
		case rows.TypeTimestamp:
			r[c.Name] = time.UnixMilli(pv.Int64()).UTC()
		default:
			return nil, fmt.Errorf("value %d: unsupported column type %s", i, c.Type)
		}
	}
	return r, nil
}
