package mapping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/amo-events/kb-assistant/internal/core/domain"
)

// Store is a JSON-file document mapping: document id to title, source
// and topics. It mirrors what the ingestion pipeline pushed into the
// vector index so topic lists can be served without touching the index.
type Store struct {
	path string

	mu sync.Mutex
}

func New(path string) (*Store, error) {
	if path == "" {
		path = "./data/document_mapping.json"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create mapping dir: %w", err)
	}
	return &Store{path: path}, nil
}

func (s *Store) Topics(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, entry := range entries {
		for _, topic := range entry.Topics {
			seen[topic] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for topic := range seen {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Put(_ context.Context, docID string, entry domain.MappingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[docID] = entry
	return s.write(entries)
}

func (s *Store) load() (map[string]domain.MappingEntry, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]domain.MappingEntry), nil
		}
		return nil, fmt.Errorf("read mapping file: %w", err)
	}

	entries := make(map[string]domain.MappingEntry)
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode mapping file: %w", err)
	}
	return entries, nil
}

// write replaces the file atomically so a concurrent reader never sees
// a half-written mapping.
func (s *Store) write(entries map[string]domain.MappingEntry) error {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write mapping tmp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace mapping file: %w", err)
	}
	return nil
}
