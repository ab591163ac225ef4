package rows

import (
	"strings"
	"testing"
	"time"
)

func testSchema() Schema {
	return NewSchema(
		Column{Name: "city", Type: TypeString, Required: true},
		Column{Name: "temperature", Type: TypeFloat64, Required: true},
		Column{Name: "humidity", Type: TypeInt64},
		Column{Name: "observed_at", Type: TypeTimestamp},
	)
}

func TestSchemaValidate(t *testing.T) {
	sch := testSchema()

	tests := []struct {
		name    string
		row     Row
		wantErr string
	}{
		{
			name: "valid full row",
			row: Row{
				"city":        "Seattle",
				"temperature": 18.5,
				"humidity":    int64(60),
				"observed_at": time.Now(),
			},
		},
		{
			name: "optional columns absent",
			row:  Row{"city": "Seattle", "temperature": 18.5},
		},
		{
			name: "optional column nil",
			row:  Row{"city": "Seattle", "temperature": 18.5, "humidity": nil},
		},
		{
			name:    "missing required column",
			row:     Row{"city": "Seattle"},
			wantErr: "missing required column",
		},
		{
			name:    "required column nil",
			row:     Row{"city": nil, "temperature": 18.5},
			wantErr: "missing required column",
		},
		{
			name:    "wrong type",
			row:     Row{"city": "Seattle", "temperature": "hot"},
			wantErr: "want float64",
		},
		{
			name:    "undeclared column",
			row:     Row{"city": "Seattle", "temperature": 18.5, "wind": 3.2},
			wantErr: "undeclared column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sch.Validate(tt.row)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSchemaEvolveFrom(t *testing.T) {
	current := testSchema()

	t.Run("identical schema unchanged", func(t *testing.T) {
		merged, err := current.EvolveFrom(current)
		if err != nil {
			t.Fatalf("EvolveFrom: %v", err)
		}
		if len(merged.Columns) != len(current.Columns) {
			t.Errorf("merged has %d columns, want %d", len(merged.Columns), len(current.Columns))
		}
	})

	t.Run("new optional column appended", func(t *testing.T) {
		incoming := NewSchema(append(append([]Column(nil), current.Columns...),
			Column{Name: "wind_speed", Type: TypeFloat64})...)
		merged, err := incoming.EvolveFrom(current)
		if err != nil {
			t.Fatalf("EvolveFrom: %v", err)
		}
		last := merged.Columns[len(merged.Columns)-1]
		if last.Name != "wind_speed" {
			t.Errorf("last column = %q, want wind_speed", last.Name)
		}
		// Existing column order must not change.
		for i, c := range current.Columns {
			if merged.Columns[i].Name != c.Name {
				t.Errorf("column %d = %q, want %q", i, merged.Columns[i].Name, c.Name)
			}
		}
	})

	t.Run("new required column rejected", func(t *testing.T) {
		incoming := NewSchema(append(append([]Column(nil), current.Columns...),
			Column{Name: "station_id", Type: TypeString, Required: true})...)
		if _, err := incoming.EvolveFrom(current); err == nil {
			t.Fatal("EvolveFrom accepted a new required column")
		}
	})

	t.Run("dropped column rejected", func(t *testing.T) {
		incoming := NewSchema(current.Columns[:2]...)
		if _, err := incoming.EvolveFrom(current); err == nil {
			t.Fatal("EvolveFrom accepted a dropped column")
		}
	})

	t.Run("retyped column rejected", func(t *testing.T) {
		cols := append([]Column(nil), current.Columns...)
		cols[1] = Column{Name: "temperature", Type: TypeString, Required: true}
		incoming := NewSchema(cols...)
		if _, err := incoming.EvolveFrom(current); err == nil {
			t.Fatal("EvolveFrom accepted a retyped column")
		}
	})

	t.Run("empty current accepts incoming as-is", func(t *testing.T) {
		merged, err := current.EvolveFrom(Schema{})
		if err != nil {
			t.Fatalf("EvolveFrom: %v", err)
		}
		if len(merged.Columns) != len(current.Columns) {
			t.Errorf("merged has %d columns, want %d", len(merged.Columns), len(current.Columns))
		}
	})
}
