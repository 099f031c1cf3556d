package mapping

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/amo-events/kb-assistant/internal/core/domain"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "mapping.json"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestTopicsOnEmptyStore(t *testing.T) {
	store := newStore(t)

	topics, err := store.Topics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(topics) != 0 {
		t.Fatalf("expected no topics, got %+v", topics)
	}
}

func TestPutThenTopicsDeduplicatesAndSorts(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	entries := map[string]domain.MappingEntry{
		"d1": {Title: "Venue Guide", Topics: []string{"venue", "parking"}},
		"d2": {Title: "Check-in Guide", Topics: []string{"check-in", "venue"}},
	}
	for id, entry := range entries {
		if err := store.Put(ctx, id, entry); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}

	topics, err := store.Topics(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"check-in", "parking", "venue"}
	if !reflect.DeepEqual(topics, want) {
		t.Fatalf("topics = %+v, want %+v", topics, want)
	}
}

func TestPutSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.json")
	ctx := context.Background()

	first, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Put(ctx, "d1", domain.MappingEntry{Title: "Guide", Topics: []string{"venue"}, ChunkCount: 2}); err != nil {
		t.Fatal(err)
	}

	second, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	topics, err := second.Topics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(topics) != 1 || topics[0] != "venue" {
		t.Fatalf("topics = %+v", topics)
	}
}

func TestPutDoesNotLeaveTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.json")
	store, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(context.Background(), "d1", domain.MappingEntry{Title: "Guide"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temporary file left behind")
	}
}
