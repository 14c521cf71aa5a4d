// Package session holds the authoritative in-memory state for one
// conversational query session: connection status, discovered sources,
// cached schema metadata, the transcript, and the artifacts of the most
// recent query. All mutation goes through the Store; network effects go
// through the injected types.Backend.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/user/querydesk/internal/interpret"
	"github.com/user/querydesk/internal/types"
)

// Store is the session state store. Zero value is not usable; use New.
type Store struct {
	backend types.Backend
	history types.HistoryStore

	mu           sync.RWMutex
	connected    bool
	activeSource string
	sources      []*types.Source
	transcript   []types.Turn
	bundle       types.ArtifactBundle
	interpreted  *interpret.Result
	lastErr      string
	inFlight     bool
	querySeq     uint64

	// metadata keyed by source name; cached until an explicit refresh.
	metadata *cache.Cache
}

// New creates a session store over the given backend. The history store may
// be nil, in which case submissions are not recorded.
func New(backend types.Backend, history types.HistoryStore) *Store {
	return &Store{
		backend:  backend,
		history:  history,
		metadata: cache.New(cache.NoExpiration, 0),
	}
}

// ScanSources requests the discovery list. On success the full source list
// is replaced, every entry disconnected regardless of prior state. On
// failure the list is emptied and the error recorded; no retry.
func (s *Store) ScanSources(ctx context.Context) ([]*types.Source, error) {
	sources, err := s.backend.ListSources(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.sources = nil
		s.lastErr = fmt.Sprintf("scan sources: %v", err)
		return nil, err
	}
	for _, src := range sources {
		src.Connected = false
	}
	s.sources = sources
	return sources, nil
}

// Sources returns a copy of the current source list. Callers get their own
// entries; Connect keeps mutating the store's.
func (s *Store) Sources() []*types.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Source, len(s.sources))
	for i, src := range s.sources {
		cp := *src
		out[i] = &cp
	}
	return out
}

// LoadMetadata fetches and caches metadata for one source, overwriting any
// prior cached entry for that name. Failure records the error but leaves
// other cached entries untouched.
func (s *Store) LoadMetadata(ctx context.Context, source string) (*types.Metadata, error) {
	md, err := s.backend.Metadata(ctx, source)
	if err != nil {
		s.mu.Lock()
		s.lastErr = fmt.Sprintf("load metadata for %s: %v", source, err)
		s.mu.Unlock()
		return nil, err
	}
	s.metadata.Set(source, md, cache.NoExpiration)
	return md, nil
}

// CachedMetadata returns the cached metadata for a source, nil if absent.
func (s *Store) CachedMetadata(source string) *types.Metadata {
	if v, ok := s.metadata.Get(source); ok {
		return v.(*types.Metadata)
	}
	return nil
}

// MetadataFor returns cached metadata, fetching on first use.
func (s *Store) MetadataFor(ctx context.Context, source string) (*types.Metadata, error) {
	if md := s.CachedMetadata(source); md != nil {
		return md, nil
	}
	return s.LoadMetadata(ctx, source)
}

// InvalidateMetadata drops the cached entry so the next load refetches.
func (s *Store) InvalidateMetadata(source string) {
	s.metadata.Delete(source)
}

// Connect posts a connection request for the named source. On success the
// source and the session are marked connected, the source becomes active,
// and exactly one metadata load is triggered. A backend-reported failure
// returns (false, nil) with the error recorded; only transport failures
// surface as an error value.
func (s *Store) Connect(ctx context.Context, source string) (bool, error) {
	err := s.backend.Connect(ctx, source)
	if err != nil {
		var backendErr *types.BackendError
		if errors.As(err, &backendErr) {
			s.mu.Lock()
			s.lastErr = fmt.Sprintf("connect %s: %s", source, backendErr.Message)
			s.mu.Unlock()
			return false, nil
		}
		s.mu.Lock()
		s.lastErr = fmt.Sprintf("connect %s: %v", source, err)
		s.mu.Unlock()
		return false, err
	}

	s.mu.Lock()
	s.connected = true
	s.activeSource = source
	for _, src := range s.sources {
		if src.Name == source {
			src.Connected = true
		}
	}
	s.mu.Unlock()

	if _, err := s.LoadMetadata(ctx, source); err != nil {
		slog.Warn("metadata load after connect failed", "source", source, "error", err)
	}
	return true, nil
}

// Connected reports whether any source has been connected this session.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// ActiveSource returns the detected or explicitly connected source name.
func (s *Store) ActiveSource() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSource
}

// Loading reports whether a query submission is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight
}

// LastError returns the current error field, empty if none. It is not
// cleared automatically on later successes; callers clear it explicitly.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ClearError resets the current error field.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
}

// SubmitQuery runs one conversational turn: the user turn is appended to the
// transcript synchronously before the network call, the prior transcript is
// replayed verbatim alongside the new query, and on completion exactly one
// assistant turn is appended whatever the outcome. Artifacts replace the
// previous bundle wholesale, guarded by a sequence number so a response that
// resolves after a newer submission cannot overwrite its state.
func (s *Store) SubmitQuery(ctx context.Context, text string, execute bool, source string, langGraph bool) *types.QueryOutcome {
	s.mu.Lock()
	prior := make([]types.Turn, len(s.transcript))
	copy(prior, s.transcript)
	s.transcript = append(s.transcript, types.Turn{Role: types.RoleUser, Content: text})
	s.inFlight = true
	s.querySeq++
	seq := s.querySeq
	s.mu.Unlock()

	outcome := s.backend.Query(ctx, &types.QueryRequest{
		Query:     text,
		Source:    source,
		History:   prior,
		Execute:   execute,
		LangGraph: langGraph,
	})

	interpreted := interpret.Interpret(outcome.RawResult)

	s.mu.Lock()
	s.transcript = append(s.transcript, types.Turn{Role: types.RoleAssistant, Content: assistantSummary(outcome, interpreted)})
	if seq == s.querySeq {
		// Newest submission wins; stale responses only get their turn.
		s.inFlight = false
		if outcome.Kind == types.OutcomeSuccess || outcome.Kind == types.OutcomeExecutionFailure {
			s.bundle = types.ArtifactBundle{
				Code:   outcome.Code,
				SQL:    outcome.SQL,
				Result: displayResult(interpreted),
				Source: outcome.Source,
			}
			s.interpreted = interpreted
			if outcome.Source != "" {
				s.activeSource = outcome.Source
			}
		}
		if msg := outcome.ErrorMessage(); msg != "" {
			s.lastErr = msg
		}
	}
	s.mu.Unlock()

	s.record(ctx, text, outcome)
	return outcome
}

// record persists a history entry for the submission. The result snapshot
// keeps the raw payload so it can be re-interpreted later (e.g. for seeding
// a notebook).
func (s *Store) record(ctx context.Context, text string, outcome *types.QueryOutcome) {
	if s.history == nil {
		return
	}
	entry := &types.HistoryEntry{
		ID:        types.NewEntryID(),
		Query:     text,
		Timestamp: time.Now(),
		Source:    outcome.Source,
		Code:      outcome.Code,
		SQL:       outcome.SQL,
		Result:    outcome.RawResult,
	}
	if err := s.history.Add(ctx, entry); err != nil {
		slog.Warn("record history entry failed", "error", err)
	}
}

// ClearConversation empties the transcript and all current artifacts. History
// entries and connected sources are untouched.
func (s *Store) ClearConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = nil
	s.bundle = types.ArtifactBundle{}
	s.interpreted = nil
}

// Transcript returns a copy of the conversation so far.
func (s *Store) Transcript() []types.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Bundle returns the artifacts of the most recent completed query.
func (s *Store) Bundle() types.ArtifactBundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundle
}

// Interpreted returns the parsed form of the most recent result, nil when
// the last query produced no displayable result.
func (s *Store) Interpreted() *interpret.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interpreted
}

// displayResult picks the stored representation: an HTML table string for
// tabular results, the fragment itself for HTML payloads, raw text otherwise.
func displayResult(res *interpret.Result) string {
	if res == nil {
		return ""
	}
	switch res.Kind {
	case interpret.KindTable, interpret.KindHTML:
		return res.HTML
	default:
		return res.Text
	}
}

// assistantSummary builds the assistant turn recorded for one submission.
func assistantSummary(outcome *types.QueryOutcome, interpreted *interpret.Result) string {
	var parts []string
	if outcome.Code != "" {
		parts = append(parts, "Generated code:\n"+outcome.Code)
	}
	if outcome.SQL != "" {
		parts = append(parts, "SQL:\n"+outcome.SQL)
	}
	if interpreted != nil {
		parts = append(parts, "Result:\n"+interpreted.Text)
	}
	if outcome.Explanation != "" {
		parts = append(parts, outcome.Explanation)
	}
	if msg := outcome.ErrorMessage(); msg != "" {
		switch outcome.Kind {
		case types.OutcomeExecutionFailure:
			parts = append(parts, "Execution error: "+msg)
		default:
			parts = append(parts, "Error: "+msg)
		}
	}
	if len(parts) == 0 {
		return "No result."
	}
	return strings.Join(parts, "\n\n")
}
