package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/querydesk/internal/types"
)

// Store is a JSON-file-backed store of scheduled queries.
type Store struct {
	path string
	mu   sync.Mutex
}

var _ types.ScheduleStore = (*Store)(nil)

// NewStore creates a store persisting to the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) load() ([]*types.ScheduledQuery, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read schedules: %w", err)
	}
	var schedules []*types.ScheduledQuery
	if err := json.Unmarshal(data, &schedules); err != nil {
		return nil, fmt.Errorf("unmarshal schedules: %w", err)
	}
	return schedules, nil
}

func (s *Store) save(schedules []*types.ScheduledQuery) error {
	if schedules == nil {
		schedules = []*types.ScheduledQuery{}
	}
	data, err := json.MarshalIndent(schedules, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schedules: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create schedules dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp schedules: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp schedules: %w", err)
	}
	return nil
}

// List returns all scheduled queries.
func (s *Store) List(_ context.Context) ([]*types.ScheduledQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Add appends a scheduled query.
func (s *Store) Add(_ context.Context, sq *types.ScheduledQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedules, err := s.load()
	if err != nil {
		return err
	}
	return s.save(append(schedules, sq))
}

// Remove deletes the scheduled query with the given ID.
func (s *Store) Remove(_ context.Context, id types.ScheduleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedules, err := s.load()
	if err != nil {
		return err
	}
	kept := schedules[:0]
	removed := false
	for _, sq := range schedules {
		if sq.ID == id {
			removed = true
			continue
		}
		kept = append(kept, sq)
	}
	if !removed {
		return fmt.Errorf("schedule not found: %s", id)
	}
	return s.save(kept)
}
