package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "taskflow.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissingKey(t *testing.T) {
	s := openTestStore(t)

	v, ok, err := s.Get(context.Background(), "token")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok || v != "" {
		t.Errorf("expected absent key, got %q (ok=%v)", v, ok)
	}
}

func TestSetGetOverwriteDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "token", "first"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "token", "second"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	v, ok, err := s.Get(ctx, "token")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || v != "second" {
		t.Errorf("expected second, got %q (ok=%v)", v, ok)
	}

	if err := s.Delete(ctx, "token"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "token"); ok {
		t.Error("expected key to be gone after Delete")
	}
	if err := s.Delete(ctx, "token"); err != nil {
		t.Errorf("deleting an absent key should not fail: %v", err)
	}
}

func TestReopenKeepsValuesAndSkipsAppliedMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskflow.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set(ctx, "token", "persisted"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	v, ok, err := s.Get(ctx, "token")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || v != "persisted" {
		t.Errorf("expected persisted value, got %q (ok=%v)", v, ok)
	}
}

func TestInMemoryStore(t *testing.T) {
	s, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, _ := s.Get(context.Background(), "k"); !ok || v != "v" {
		t.Errorf("expected v, got %q", v)
	}
}
