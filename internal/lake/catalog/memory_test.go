package catalog

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryCommitSequence(t *testing.T) {
	ctx := context.Background()
	cat := NewMemory()
	ref := TableRef{Namespace: "weather", Table: "bronze"}

	cur, err := cat.Current(ctx, ref)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur != nil {
		t.Fatalf("Current on fresh table = %+v, want nil", cur)
	}

	for v := int64(1); v <= 3; v++ {
		err := cat.Commit(ctx, ref, Entry{Version: v, SnapshotID: "snap", MetadataKey: "meta"})
		if err != nil {
			t.Fatalf("Commit v%d: %v", v, err)
		}
	}

	cur, err = cat.Current(ctx, ref)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.Version != 3 {
		t.Errorf("Current.Version = %d, want 3", cur.Version)
	}
	if cur.CommittedAt.IsZero() {
		t.Error("CommittedAt not populated")
	}
}

func TestMemoryCommitVersionConflict(t *testing.T) {
	ctx := context.Background()
	cat := NewMemory()
	ref := TableRef{Namespace: "weather", Table: "bronze"}

	if err := cat.Commit(ctx, ref, Entry{Version: 1}); err != nil {
		t.Fatalf("Commit v1: %v", err)
	}

	// Replaying v1 or skipping to v3 both lose.
	for _, v := range []int64{1, 3} {
		err := cat.Commit(ctx, ref, Entry{Version: v})
		if !errors.Is(err, ErrVersionConflict) {
			t.Errorf("Commit v%d = %v, want ErrVersionConflict", v, err)
		}
	}

	cur, _ := cat.Current(ctx, ref)
	if cur.Version != 1 {
		t.Errorf("Current.Version = %d, want 1 after rejected commits", cur.Version)
	}
}

func TestMemoryTablesAreIndependent(t *testing.T) {
	ctx := context.Background()
	cat := NewMemory()

	a := TableRef{Namespace: "weather", Table: "bronze"}
	b := TableRef{Namespace: "weather", Table: "silver"}

	if err := cat.Commit(ctx, a, Entry{Version: 1}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	cur, err := cat.Current(ctx, b)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur != nil {
		t.Errorf("table b sees version %d from table a", cur.Version)
	}
}
