package session

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/user/querydesk/internal/types"
)

// ConnectAll connects every existing source, at most maxConcurrent requests
// in flight at a time. Per-source failures are recorded and skipped; the
// returned map reports each attempted source's success.
func (s *Store) ConnectAll(ctx context.Context, maxConcurrent int64) map[string]bool {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	sem := semaphore.NewWeighted(maxConcurrent)

	s.mu.RLock()
	targets := make([]*types.Source, 0, len(s.sources))
	for _, src := range s.sources {
		if src.Exists {
			targets = append(targets, src)
		}
	}
	s.mu.RUnlock()

	results := make(map[string]bool, len(targets))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, src := range targets {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			defer sem.Release(1)
			ok, err := s.Connect(ctx, name)
			if err != nil {
				slog.Warn("connect failed", "source", name, "error", err)
			}
			mu.Lock()
			results[name] = ok
			mu.Unlock()
		}(src.Name)
	}
	wg.Wait()
	return results
}
