package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user/querydesk/internal/types"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := New(&Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	return client, srv
}

func TestListSourcesCamelAndSnakeFiles(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/databases" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"databases":[
			{"name":"Broker","keywords":["stocks"],"metadataFile":"broker.json","databaseFile":"broker.db","exists":true},
			{"name":"Dealership","metadata_file":"dealer.json","database_file":"dealer.db","exists":false}
		]}`))
	}))
	defer srv.Close()

	sources, err := client.ListSources(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].MetadataFile != "broker.json" || sources[1].MetadataFile != "dealer.json" {
		t.Errorf("file fields not normalized: %+v %+v", sources[0], sources[1])
	}
	for _, src := range sources {
		if src.Connected {
			t.Errorf("%s: discovery must never mark a source connected", src.Name)
		}
	}
}

func TestListSourcesBackendFailure(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"scan directory missing"}`))
	}))
	defer srv.Close()

	_, err := client.ListSources(context.Background())
	var backendErr *types.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if backendErr.Message != "scan directory missing" {
		t.Errorf("unexpected message %q", backendErr.Message)
	}
}

func TestConnectRefusedIsBackendError(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["domain"] != "Broker" {
			t.Errorf("expected domain Broker, got %q", body["domain"])
		}
		w.Write([]byte(`{"success":false,"error":"database file not found"}`))
	}))
	defer srv.Close()

	err := client.Connect(context.Background(), "Broker")
	var backendErr *types.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("refusal must be a BackendError, got %v", err)
	}
}

func TestConnectTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // force a connection failure

	client := New(&Config{BaseURL: srv.URL, Timeout: time.Second})
	err := client.Connect(context.Background(), "Broker")
	if err == nil {
		t.Fatal("expected transport error")
	}
	var backendErr *types.BackendError
	if errors.As(err, &backendErr) {
		t.Error("transport failure must not masquerade as a backend refusal")
	}
}

func TestMetadataTablesArrayShape(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metadata/Broker" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"metadata":{"tables":[
			{"name":"customers","description":"All customers","columns":{
				"id":{"type":"integer","description":"primary key"},
				"email":"text"
			}}
		]}}`))
	}))
	defer srv.Close()

	md, err := client.Metadata(context.Background(), "Broker")
	if err != nil {
		t.Fatal(err)
	}
	if len(md.Tables) != 1 || md.Tables[0].Name != "customers" {
		t.Fatalf("unexpected tables %+v", md.Tables)
	}
	cols := md.Tables[0].Columns
	if cols["id"].Type != "integer" || cols["id"].Description != "primary key" {
		t.Errorf("object column not parsed: %+v", cols["id"])
	}
	if cols["email"].Type != "text" {
		t.Errorf("bare type string column not parsed: %+v", cols["email"])
	}
}

func TestMetadataKeyedByNameShape(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"metadata":{
			"orders":{"description":"Order headers","properties":{"total":{"type":"real"}}},
			"customers":{"properties":{"id":{"type":"integer"}}}
		}}`))
	}))
	defer srv.Close()

	md, err := client.Metadata(context.Background(), "Broker")
	if err != nil {
		t.Fatal(err)
	}
	if len(md.Tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(md.Tables))
	}
	// Keyed shape has no inherent order; normalization sorts by name.
	if md.Tables[0].Name != "customers" || md.Tables[1].Name != "orders" {
		t.Errorf("tables not sorted by name: %s, %s", md.Tables[0].Name, md.Tables[1].Name)
	}
}

func TestMetadataEmpty(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"metadata":{}}`))
	}))
	defer srv.Close()

	if _, err := client.Metadata(context.Background(), "Broker"); err == nil {
		t.Fatal("expected an error for a schema with no tables")
	}
}

func TestStatus(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"langgraph_available":true,"llm_api_configured":false,"llm_error":"missing key"}`))
	}))
	defer srv.Close()

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !status.LangGraphAvailable || status.LLMConfigured || status.LLMError != "missing key" {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestSetAPIKey(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api-key" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["api_key"] != "sk-test" {
			t.Errorf("expected api_key sk-test, got %q", body["api_key"])
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	if err := client.SetAPIKey(context.Background(), "sk-test"); err != nil {
		t.Fatal(err)
	}
}

func TestNon200Status(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := client.Status(context.Background()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
