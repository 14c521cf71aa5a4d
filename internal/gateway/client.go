// Package gateway wraps the analytics backend's HTTP API behind one client.
// The backend speaks two generations of the query endpoint with incompatible
// field naming; everything is normalized here so shape detection never leaks
// into callers.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/querydesk/internal/types"
)

// Config holds the client's connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements types.Backend against the remote service.
type Client struct {
	config     *Config
	httpClient *http.Client
}

var _ types.Backend = (*Client)(nil)

// New creates a client for the backend at config.BaseURL.
func New(config *Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// transportError wraps a connection-level failure with a hint, since the
// usual cause is the backend process simply not running.
func (c *Client) transportError(err error) error {
	return fmt.Errorf("could not connect to backend at %s (is the server running?): %w", c.config.BaseURL, err)
}

// getJSON performs a GET and decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

// postJSON performs a POST with a JSON body and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend error (status %d): %s", resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// sourceEntry tolerates both camelCase and snake_case file references.
type sourceEntry struct {
	Name              string   `json:"name"`
	Keywords          []string `json:"keywords"`
	MetadataFile      string   `json:"metadataFile"`
	MetadataFileSnake string   `json:"metadata_file"`
	DatabaseFile      string   `json:"databaseFile"`
	DatabaseFileSnake string   `json:"database_file"`
	Exists            bool     `json:"exists"`
}

// ListSources calls GET /databases and returns every discovered source,
// all marked disconnected.
func (c *Client) ListSources(ctx context.Context) ([]*types.Source, error) {
	var resp struct {
		Success   bool          `json:"success"`
		Databases []sourceEntry `json:"databases"`
		Error     string        `json:"error"`
	}
	if err := c.getJSON(ctx, "/databases", &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &types.BackendError{Message: resp.Error}
	}

	sources := make([]*types.Source, 0, len(resp.Databases))
	for _, db := range resp.Databases {
		sources = append(sources, &types.Source{
			Name:         db.Name,
			Keywords:     db.Keywords,
			MetadataFile: firstNonEmpty(db.MetadataFile, db.MetadataFileSnake),
			DatabaseFile: firstNonEmpty(db.DatabaseFile, db.DatabaseFileSnake),
			Exists:       db.Exists,
			Connected:    false,
		})
	}
	return sources, nil
}

// SourceStatuses calls GET /databases/status.
func (c *Client) SourceStatuses(ctx context.Context) ([]*types.SourceStatus, error) {
	var statuses []*types.SourceStatus
	if err := c.getJSON(ctx, "/databases/status", &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// GenerateMetadata calls POST /databases/generate-metadata for one database
// file. The backend responds with free-form JSON; only the HTTP status and
// an optional success flag are checked.
func (c *Client) GenerateMetadata(ctx context.Context, dbFilename string) error {
	body := map[string]string{"db_filename": dbFilename}
	var resp struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
	}
	if err := c.postJSON(ctx, "/databases/generate-metadata", body, &resp); err != nil {
		return err
	}
	if resp.Success != nil && !*resp.Success {
		return &types.BackendError{Message: resp.Error}
	}
	return nil
}

// Metadata calls GET /metadata/{source} and normalizes either of the two
// schema shapes the backend serves.
func (c *Client) Metadata(ctx context.Context, source string) (*types.Metadata, error) {
	var resp struct {
		Success  bool            `json:"success"`
		Metadata json.RawMessage `json:"metadata"`
		Error    string          `json:"error"`
	}
	if err := c.getJSON(ctx, "/metadata/"+source, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &types.BackendError{Message: resp.Error}
	}
	return normalizeMetadata(source, resp.Metadata)
}

// Connect calls POST /connect. A backend-reported failure comes back as a
// *types.BackendError; anything else is a transport problem.
func (c *Client) Connect(ctx context.Context, source string) error {
	body := map[string]string{"domain": source}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := c.postJSON(ctx, "/connect", body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &types.BackendError{Message: resp.Error}
	}
	return nil
}

// Status calls GET /status.
func (c *Client) Status(ctx context.Context) (*types.BackendStatus, error) {
	var status types.BackendStatus
	if err := c.getJSON(ctx, "/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SetAPIKey calls POST /api-key.
func (c *Client) SetAPIKey(ctx context.Context, key string) error {
	body := map[string]string{"api_key": key}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := c.postJSON(ctx, "/api-key", body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &types.BackendError{Message: resp.Error}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
