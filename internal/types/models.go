// internal/types/models.go
package types

import (
	"slices"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the conversational transcript. The full ordered
// sequence of turns is replayed verbatim to the backend on every query so
// multi-turn context is preserved.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Source describes one connectable backend data repository.
type Source struct {
	Name         string   `json:"name"`
	Keywords     []string `json:"keywords,omitempty"`
	MetadataFile string   `json:"metadata_file,omitempty"`
	DatabaseFile string   `json:"database_file,omitempty"`
	Exists       bool     `json:"exists"`
	Connected    bool     `json:"connected"`
}

// SourceStatus is the raw discovery status for an on-disk database file,
// reported by the backend before metadata has been generated for it.
type SourceStatus struct {
	DBFilename  string `json:"db_filename"`
	DisplayName string `json:"display_name"`
	BaseName    string `json:"base_name"`
	HasJSON     bool   `json:"has_json"`
	HasMD       bool   `json:"has_md"`
}

// ColumnMeta describes a single column of a table.
type ColumnMeta struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// TableMeta describes one table of a source's schema.
type TableMeta struct {
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Columns     map[string]ColumnMeta `json:"columns,omitempty"`
}

// Metadata is the normalized schema for one source. The backend serves two
// incompatible shapes for this; the gateway folds both into this one.
type Metadata struct {
	Source string       `json:"source"`
	Tables []*TableMeta `json:"tables"`
}

// ArtifactBundle holds everything one query submission produced. A new
// submission replaces the whole bundle; bundles are never merged.
type ArtifactBundle struct {
	Code   string `json:"code,omitempty"`
	SQL    string `json:"sql,omitempty"`
	Result string `json:"result,omitempty"`
	Source string `json:"source,omitempty"`
}

// Empty reports whether the bundle carries no artifacts at all.
func (b ArtifactBundle) Empty() bool {
	return b.Code == "" && b.SQL == "" && b.Result == "" && b.Source == ""
}

// HistoryEntry is the durable record of one submitted query.
type HistoryEntry struct {
	ID        EntryID   `json:"id"`
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
	Favorite  bool      `json:"favorite"`
	Tags      []string  `json:"tags,omitempty"`
	Source    string    `json:"source,omitempty"`
	Code      string    `json:"code,omitempty"`
	SQL       string    `json:"sql,omitempty"`
	Result    string    `json:"result,omitempty"`
}

// AddTag adds a tag unless already present. Storage keeps tags as an ordered
// list; set semantics are the caller's job, which is this.
func (e *HistoryEntry) AddTag(tag string) bool {
	if slices.Contains(e.Tags, tag) {
		return false
	}
	e.Tags = append(e.Tags, tag)
	return true
}

// HasTag reports whether the entry carries the tag.
func (e *HistoryEntry) HasTag(tag string) bool {
	return slices.Contains(e.Tags, tag)
}

// RemoveTag removes a tag if present.
func (e *HistoryEntry) RemoveTag(tag string) bool {
	i := slices.Index(e.Tags, tag)
	if i < 0 {
		return false
	}
	e.Tags = slices.Delete(e.Tags, i, i+1)
	return true
}

// ScheduledQuery is a saved query re-run on a cron schedule by the daemon.
type ScheduledQuery struct {
	ID        ScheduleID `json:"id"`
	Name      string     `json:"name"`
	Query     string     `json:"query"`
	Source    string     `json:"source,omitempty"`
	Schedule  string     `json:"schedule"`
	Enabled   bool       `json:"enabled"`
	CreatedAt time.Time  `json:"created_at"`
}

// BackendError is an application-level failure: the backend answered but
// reported success=false. The message is the backend's own wording.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return "backend reported failure"
	}
	return e.Message
}

// BackendStatus reports the backend's processing capabilities.
type BackendStatus struct {
	LangGraphAvailable bool   `json:"langgraph_available"`
	LLMConfigured      bool   `json:"llm_api_configured"`
	LLMError           string `json:"llm_error,omitempty"`
}

// QueryRequest is one turn submitted to the backend, together with the
// transcript so far and the submission options.
type QueryRequest struct {
	Query     string
	Source    string // empty means auto-detect
	History   []Turn
	Execute   bool
	LangGraph bool
}

// QueryOutcomeKind tags the normalized result of a query submission.
type QueryOutcomeKind int

const (
	// OutcomeSuccess: translation succeeded and, if requested, execution did too.
	OutcomeSuccess QueryOutcomeKind = iota
	// OutcomeExecutionFailure: translation succeeded but running the code failed.
	OutcomeExecutionFailure
	// OutcomeApplicationFailure: the backend responded with success=false.
	OutcomeApplicationFailure
	// OutcomeTransportFailure: the backend could not be reached at all.
	OutcomeTransportFailure
)

// QueryOutcome is the gateway's normalized envelope for a query submission.
// Exactly one response shape produced it, but callers never see which.
type QueryOutcome struct {
	Kind        QueryOutcomeKind
	Code        string
	SQL         string
	RawResult   string
	Explanation string
	Source      string
	Err         string
}

// ErrorMessage returns the message to surface for a failed outcome, empty on
// success. Execution failures carry their own wording so screens can rank
// them above generic errors.
func (o *QueryOutcome) ErrorMessage() string {
	if o.Kind == OutcomeSuccess {
		return ""
	}
	return o.Err
}
