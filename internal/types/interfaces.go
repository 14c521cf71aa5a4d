// internal/types/interfaces.go
package types

import (
	"context"
)

// Backend is the effect boundary for everything the remote analytics service
// does. The session store only talks to the backend through this.
type Backend interface {
	ListSources(ctx context.Context) ([]*Source, error)
	SourceStatuses(ctx context.Context) ([]*SourceStatus, error)
	GenerateMetadata(ctx context.Context, dbFilename string) error
	Metadata(ctx context.Context, source string) (*Metadata, error)
	Connect(ctx context.Context, source string) error
	Query(ctx context.Context, req *QueryRequest) *QueryOutcome
	Status(ctx context.Context) (*BackendStatus, error)
	SetAPIKey(ctx context.Context, key string) error
}

// HistoryStore persists history entries across runs.
type HistoryStore interface {
	List(ctx context.Context) ([]*HistoryEntry, error)
	Get(ctx context.Context, id EntryID) (*HistoryEntry, error)
	Add(ctx context.Context, entry *HistoryEntry) error
	Update(ctx context.Context, entry *HistoryEntry) error
}

// ScheduleStore persists scheduled queries for the daemon.
type ScheduleStore interface {
	List(ctx context.Context) ([]*ScheduledQuery, error)
	Add(ctx context.Context, sq *ScheduledQuery) error
	Remove(ctx context.Context, id ScheduleID) error
}
