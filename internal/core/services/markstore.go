package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MarkStore persists the set of "marked" job IDs — jobs whose output files
// the Cleanup/Retention sweep must never delete — as a flat JSON array in a
// single file, rewritten atomically on every mutation.
type MarkStore struct {
	mu   sync.Mutex
	path string
	ids  map[string]bool
}

// NewMarkStore loads path if it exists, or starts with an empty set.
func NewMarkStore(path string) (*MarkStore, error) {
	s := &MarkStore{path: path, ids: make(map[string]bool)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read mark store %s: %w", path, err)
	}

	var marks []string
	if err := json.Unmarshal(data, &marks); err != nil {
		return nil, fmt.Errorf("parse mark store %s: %w", path, err)
	}
	for _, id := range marks {
		s.ids[id] = true
	}
	return s, nil
}

// Mark adds id to the marked set and rewrites the backing file.
func (s *MarkStore) Mark(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = true
	return s.flush()
}

// Unmark removes id from the marked set and rewrites the backing file.
func (s *MarkStore) Unmark(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
	return s.flush()
}

// IsMarked reports whether id is currently marked.
func (s *MarkStore) IsMarked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids[id]
}

// Snapshot returns every currently marked job ID.
func (s *MarkStore) Snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

// flush writes the current set to a temp file in the same directory, then
// renames it over the target path, so a crash mid-write never corrupts the
// existing file.
func (s *MarkStore) flush() error {
	marks := make([]string, 0, len(s.ids))
	for id := range s.ids {
		marks = append(marks, id)
	}

	data, err := json.Marshal(marks)
	if err != nil {
		return fmt.Errorf("marshal mark store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create mark store dir %s: %w", dir, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp mark store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename temp mark store into place: %w", err)
	}
	return nil
}
