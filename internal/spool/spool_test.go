package spool

import (
	"context"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "spool.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestOpen_MissingParentDir(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "no", "such", "dir", "spool.db")); err == nil {
		t.Fatal("Open with missing parent directory succeeded")
	}
}

func TestSaveAndPending(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	if err := s.Save(ctx, KindMessage, `{"a":1}`); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, KindProvision, `{"b":2}`); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rows, err := s.Pending(ctx, 10)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d; want 2", len(rows))
	}
	// Oldest first.
	if rows[0].Kind != KindMessage || rows[1].Kind != KindProvision {
		t.Fatalf("order = %s, %s", rows[0].Kind, rows[1].Kind)
	}

	if n, _ := s.Count(ctx); n != 2 {
		t.Fatalf("Count = %d; want 2", n)
	}
}

func TestPending_Limit(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := s.Save(ctx, KindMessage, `{}`); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	rows, err := s.Pending(ctx, 3)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d; want 3", len(rows))
	}
}

func TestDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.Save(ctx, KindMessage, `{}`); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rows, _ := s.Pending(ctx, 1)
	if err := s.Delete(ctx, rows[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Fatalf("Count after delete = %d; want 0", n)
	}
}
