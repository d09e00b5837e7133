package vectordb

import (
	"context"
	"testing"

	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/entities"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	err := store.Upsert(ctx, []entities.ChunkRecord{
		record("a", []float32{1, 0}, "default", "stored text"),
		record("b", []float32{0, 1}, "default", "other text"),
	}, "ns")
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	matches, err := store.Query(ctx, []float32{1, 0.1}, 1, "ns", nil)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "a" {
		t.Fatalf("expected nearest match a, got %v", matches)
	}
	if matches[0].Metadata.Text != "stored text" {
		t.Errorf("chunk text not preserved through persistence: %q", matches[0].Metadata.Text)
	}
}

func TestSQLiteStore_UpsertReplacesByID(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	store.Upsert(ctx, []entities.ChunkRecord{record("a", []float32{1, 0}, "default", "v1")}, "ns")
	store.Upsert(ctx, []entities.ChunkRecord{record("a", []float32{1, 0}, "default", "v2")}, "ns")

	matches, err := store.Query(ctx, []float32{1, 0}, 10, "ns", nil)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match after replace, got %d", len(matches))
	}
	if matches[0].Metadata.Text != "v2" {
		t.Errorf("expected overwritten metadata, got %q", matches[0].Metadata.Text)
	}
}

func TestSQLiteStore_DatasetFilterAndNamespaces(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	store.Upsert(ctx, []entities.ChunkRecord{
		record("a", []float32{1, 0}, "alpha", "a"),
		record("b", []float32{1, 0}, "beta", "b"),
	}, "ns-1")
	store.Upsert(ctx, []entities.ChunkRecord{record("c", []float32{1, 0}, "alpha", "c")}, "ns-2")

	matches, err := store.Query(ctx, []float32{1, 0}, 10, "ns-1", map[string]string{"dataset": "alpha"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "a" {
		t.Errorf("filter or namespace isolation broken: %v", matches)
	}
}

func TestSQLiteStore_EmptyNamespace(t *testing.T) {
	store := newTestSQLiteStore(t)

	matches, err := store.Query(context.Background(), []float32{1, 0}, 5, "empty", nil)
	if err != nil {
		t.Fatalf("query on empty namespace must not fail: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %v", matches)
	}
}
