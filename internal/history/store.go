// Package history persists query history as a single JSON file. The file is
// the source of truth across runs: it is read once at startup and rewritten
// in full on every mutation, with no batching.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/querydesk/internal/types"
)

// Store is a JSON-file-backed history store.
type Store struct {
	path    string
	mu      sync.RWMutex
	entries []*types.HistoryEntry
}

var _ types.HistoryStore = (*Store)(nil)

// NewStore loads (or initializes) the history file at dataDir/history.json.
func NewStore(dataDir string) (*Store, error) {
	s := &Store{path: filepath.Join(dataDir, "history.json")}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.entries = nil
			return nil
		}
		return fmt.Errorf("read history: %w", err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return fmt.Errorf("unmarshal history: %w", err)
	}
	return nil
}

// save rewrites the whole list atomically via temp file + rename.
func (s *Store) save() error {
	entries := s.entries
	if entries == nil {
		entries = []*types.HistoryEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp history: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp history: %w", err)
	}
	return nil
}

// List returns all entries, newest first.
func (s *Store) List(_ context.Context) ([]*types.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.HistoryEntry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Get returns the entry with the given ID. Short unique ID prefixes are
// accepted so CLI output stays usable.
func (s *Store) Get(_ context.Context, id types.EntryID) (*types.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *types.HistoryEntry
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
		if len(id) >= 4 && len(string(e.ID)) > len(id) && string(e.ID)[:len(id)] == string(id) {
			if found != nil {
				return nil, fmt.Errorf("ambiguous history id: %s", id)
			}
			found = e
		}
	}
	if found == nil {
		return nil, fmt.Errorf("history entry not found: %s", id)
	}
	return found, nil
}

// Add appends an entry and rewrites the file.
func (s *Store) Add(_ context.Context, entry *types.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	if err := s.save(); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		return err
	}
	return nil
}

// Update replaces the entry with a matching ID and rewrites the file.
func (s *Store) Update(_ context.Context, entry *types.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == entry.ID {
			s.entries[i] = entry
			return s.save()
		}
	}
	return fmt.Errorf("history entry not found: %s", entry.ID)
}
