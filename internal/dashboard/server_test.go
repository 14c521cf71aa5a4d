package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/user/querydesk/internal/session"
	"github.com/user/querydesk/internal/types"
)

// stubBackend satisfies types.Backend with canned responses.
type stubBackend struct{}

var _ types.Backend = (*stubBackend)(nil)

func (stubBackend) ListSources(ctx context.Context) ([]*types.Source, error) {
	return []*types.Source{{Name: "Broker", Exists: true}}, nil
}
func (stubBackend) SourceStatuses(ctx context.Context) ([]*types.SourceStatus, error) {
	return nil, nil
}
func (stubBackend) GenerateMetadata(ctx context.Context, dbFilename string) error { return nil }
func (stubBackend) Metadata(ctx context.Context, source string) (*types.Metadata, error) {
	return &types.Metadata{Source: source, Tables: []*types.TableMeta{{Name: "t"}}}, nil
}
func (stubBackend) Connect(ctx context.Context, source string) error { return nil }
func (stubBackend) Query(ctx context.Context, req *types.QueryRequest) *types.QueryOutcome {
	return &types.QueryOutcome{Kind: types.OutcomeSuccess, Code: "result = x", RawResult: "42"}
}
func (stubBackend) Status(ctx context.Context) (*types.BackendStatus, error) {
	return &types.BackendStatus{}, nil
}
func (stubBackend) SetAPIKey(ctx context.Context, key string) error { return nil }

// stubHistory is a fixed-content types.HistoryStore.
type stubHistory struct {
	entries []*types.HistoryEntry
}

var _ types.HistoryStore = (*stubHistory)(nil)

func (h *stubHistory) List(ctx context.Context) ([]*types.HistoryEntry, error) {
	return h.entries, nil
}
func (h *stubHistory) Get(ctx context.Context, id types.EntryID) (*types.HistoryEntry, error) {
	for _, e := range h.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, errors.New("not found")
}
func (h *stubHistory) Add(ctx context.Context, entry *types.HistoryEntry) error {
	h.entries = append(h.entries, entry)
	return nil
}
func (h *stubHistory) Update(ctx context.Context, entry *types.HistoryEntry) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *session.Store, *stubHistory) {
	t.Helper()
	hist := &stubHistory{}
	store := session.New(stubBackend{}, hist)
	srv := httptest.NewServer(NewServer(store, hist))
	t.Cleanup(srv.Close)
	return srv, store, hist
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var body map[string]string
	if code := getJSON(t, srv.URL+"/health", &body); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestSessionSnapshot(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ctx := context.Background()

	store.Connect(ctx, "Broker")
	store.SubmitQuery(ctx, "top customers", true, "", false)

	var view struct {
		Connected    bool         `json:"connected"`
		ActiveSource string       `json:"active_source"`
		Transcript   []types.Turn `json:"transcript"`
		Bundle       struct {
			Code string `json:"code"`
		} `json:"bundle"`
	}
	if code := getJSON(t, srv.URL+"/api/session", &view); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if !view.Connected || view.ActiveSource != "Broker" {
		t.Errorf("connection state not reported: %+v", view)
	}
	if len(view.Transcript) != 2 {
		t.Errorf("expected 2 transcript turns, got %d", len(view.Transcript))
	}
	if view.Bundle.Code != "result = x" {
		t.Errorf("bundle not reported: %+v", view.Bundle)
	}
}

func TestSessionSnapshotEmpty(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var view struct {
		Transcript []types.Turn `json:"transcript"`
	}
	getJSON(t, srv.URL+"/api/session", &view)
	if view.Transcript == nil {
		t.Error("an empty transcript must serialize as [], not null")
	}
}

func TestSources(t *testing.T) {
	srv, store, _ := newTestServer(t)
	store.ScanSources(context.Background())

	var sources []*types.Source
	if code := getJSON(t, srv.URL+"/api/sources", &sources); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if len(sources) != 1 || sources[0].Name != "Broker" {
		t.Errorf("unexpected sources %+v", sources)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	srv, _, hist := newTestServer(t)
	hist.entries = []*types.HistoryEntry{{ID: "abc123", Query: "q"}}

	var entries []*types.HistoryEntry
	if code := getJSON(t, srv.URL+"/api/history", &entries); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if len(entries) != 1 {
		t.Fatalf("unexpected entries %+v", entries)
	}

	var entry types.HistoryEntry
	if code := getJSON(t, srv.URL+"/api/history/abc123", &entry); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if entry.Query != "q" {
		t.Errorf("unexpected entry %+v", entry)
	}

	if code := getJSON(t, srv.URL+"/api/history/zzz", nil); code != http.StatusNotFound {
		t.Errorf("missing entries should 404, got %d", code)
	}
}
