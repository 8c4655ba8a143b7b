package sessionstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestSQLite(t *testing.T, name string, ttl time.Duration) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "sessions.db"), name, ttl)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t, "uuids", 0)

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Errorf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := s.Put(ctx, "11111111-1111-1111-1111-111111111111", "BigBuck_Arrow"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := s.Get(ctx, "11111111-1111-1111-1111-111111111111")
	if err != nil || !ok || got != "BigBuck_Arrow" {
		t.Errorf("Get: got %q ok=%v err=%v", got, ok, err)
	}

	if err := s.Put(ctx, "11111111-1111-1111-1111-111111111111", "BigBuck_Spikes"); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	got, _, _ = s.Get(ctx, "11111111-1111-1111-1111-111111111111")
	if got != "BigBuck_Spikes" {
		t.Errorf("Put should replace, got %q", got)
	}
	if n, err := s.Count(ctx); err != nil || n != 1 {
		t.Errorf("Count: n=%d err=%v", n, err)
	}
}

func TestSQLiteStore_reopen_keeps_entries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	s, err := OpenSQLite(ctx, path, "uuids", 0)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	_ = s.Put(ctx, "id", "ad")
	_ = s.Close()

	s, err = OpenSQLite(ctx, path, "uuids", 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if got, ok, _ := s.Get(ctx, "id"); !ok || got != "ad" {
		t.Errorf("expected entry to survive reopen, got %q ok=%v", got, ok)
	}
	if s.Path() != path {
		t.Errorf("Path: got %s want %s", s.Path(), path)
	}
}

func TestSQLiteStore_ttl_and_purge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := openTestSQLite(t, "uuids", time.Minute)
	s.now = func() time.Time { return now }

	_ = s.Put(ctx, "old", "a")
	now = now.Add(2 * time.Minute)
	_ = s.Put(ctx, "new", "b")

	if _, ok, _ := s.Get(ctx, "old"); ok {
		t.Error("expired entry should read as absent")
	}
	if _, ok, _ := s.Get(ctx, "new"); !ok {
		t.Error("fresh entry should be readable")
	}

	n, err := s.Purge(ctx)
	if err != nil || n != 1 {
		t.Errorf("Purge: n=%d err=%v", n, err)
	}
	if c, _ := s.Count(ctx); c != 1 {
		t.Errorf("expected 1 entry after purge, got %d", c)
	}
}

func TestSQLiteStore_separate_names(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	a, err := OpenSQLite(ctx, path, "store_a", 0)
	if err != nil {
		t.Fatalf("OpenSQLite a: %v", err)
	}
	defer a.Close()
	b, err := OpenSQLite(ctx, path, "store_b", 0)
	if err != nil {
		t.Fatalf("OpenSQLite b: %v", err)
	}
	defer b.Close()

	_ = a.Put(ctx, "id", "ad")
	if _, ok, _ := b.Get(ctx, "id"); ok {
		t.Error("stores with different names must not share entries")
	}
}

func TestOpenSQLite_invalid_name(t *testing.T) {
	for _, name := range []string{"", "1abc", "uuids; DROP TABLE x", "with-dash"} {
		if _, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "x.db"), name, 0); err == nil {
			t.Errorf("expected error for store name %q", name)
		}
	}
}
