// Package dashboard exposes a small read-only HTTP API over the session
// and history state, for anything that wants to render it.
package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/user/querydesk/internal/session"
	"github.com/user/querydesk/internal/types"
)

// Server is a lightweight HTTP handler over session and history state.
type Server struct {
	store   *session.Store
	history types.HistoryStore
	mux     *http.ServeMux
}

// NewServer creates a dashboard Server over the given stores.
func NewServer(store *session.Store, history types.HistoryStore) *Server {
	s := &Server{
		store:   store,
		history: history,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/session", s.handleSession)
	s.mux.HandleFunc("GET /api/sources", s.handleSources)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("GET /api/history/", s.handleHistoryEntry)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionView is the wire shape of the session snapshot.
type sessionView struct {
	Connected    bool                 `json:"connected"`
	ActiveSource string               `json:"active_source,omitempty"`
	Loading      bool                 `json:"loading"`
	Error        string               `json:"error,omitempty"`
	Transcript   []types.Turn         `json:"transcript"`
	Bundle       types.ArtifactBundle `json:"bundle"`
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	view := sessionView{
		Connected:    s.store.Connected(),
		ActiveSource: s.store.ActiveSource(),
		Loading:      s.store.Loading(),
		Error:        s.store.LastError(),
		Transcript:   s.store.Transcript(),
		Bundle:       s.store.Bundle(),
	}
	if view.Transcript == nil {
		view.Transcript = []types.Turn{}
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	sources := s.store.Sources()
	if sources == nil {
		sources = []*types.Source{}
	}
	writeJSON(w, http.StatusOK, sources)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.history.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*types.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/history/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing history id")
		return
	}
	entry, err := s.history.Get(r.Context(), types.EntryID(id))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
