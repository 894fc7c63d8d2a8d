// Package toggl is a small read-only client for the Toggl Track v9 API.
package toggl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the Toggl Track v9 API root.
const DefaultBaseURL = "https://api.track.toggl.com/api/v9"

// apiTokenPassword is the fixed basic-auth password Toggl expects when the
// API token is used as the username.
const apiTokenPassword = "api_token"

const dayLayout = "2006-01-02"

// Workspace is a Toggl workspace.
type Workspace struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Project is a Toggl project.
type Project struct {
	ID          int64  `json:"id"`
	WorkspaceID int64  `json:"workspace_id"`
	Name        string `json:"name"`
	Active      bool   `json:"active"`
}

// TimeEntry is a Toggl time entry. Duration is in seconds; a negative value
// means the entry is still running.
type TimeEntry struct {
	ID          int64      `json:"id"`
	WorkspaceID int64      `json:"workspace_id"`
	ProjectID   *int64     `json:"project_id"`
	Description string     `json:"description"`
	Start       time.Time  `json:"start"`
	Stop        *time.Time `json:"stop"`
	Duration    int64      `json:"duration"`
}

// APIError is returned for any failed call: a non-200 status or a transport
// failure (StatusCode 0).
type APIError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("toggl %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("toggl %s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// Client talks to the Toggl API with an API token.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Toggl client.
func NewClient(apiToken string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiToken:   apiToken,
		httpClient: http.DefaultClient,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListWorkspaces returns the workspaces of the authenticated user.
func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	c.logger.Info("Fetching workspaces")
	var out []Workspace
	if err := c.get(ctx, "list workspaces", "/me/workspaces", nil, &out); err != nil {
		return nil, err
	}
	c.logger.Info("Found workspaces", zap.Int("count", len(out)))
	return out, nil
}

// ListProjects returns the projects of a workspace.
func (c *Client) ListProjects(ctx context.Context, workspaceID int64) ([]Project, error) {
	c.logger.Info("Fetching projects", zap.Int64("workspace_id", workspaceID))
	var out []Project
	path := fmt.Sprintf("/workspaces/%d/projects", workspaceID)
	if err := c.get(ctx, "list projects", path, nil, &out); err != nil {
		return nil, err
	}
	c.logger.Info("Found projects", zap.Int64("workspace_id", workspaceID), zap.Int("count", len(out)))
	return out, nil
}

// ListEntries returns the time entries between start and end (dates only).
func (c *Client) ListEntries(ctx context.Context, start, end time.Time) ([]TimeEntry, error) {
	q := url.Values{
		"start_date": {start.Format(dayLayout)},
		"end_date":   {end.Format(dayLayout)},
	}
	c.logger.Info("Fetching time entries",
		zap.String("start_date", q.Get("start_date")),
		zap.String("end_date", q.Get("end_date")),
	)
	var out []TimeEntry
	if err := c.get(ctx, "list time entries", "/me/time_entries", q, &out); err != nil {
		return nil, err
	}
	c.logger.Info("Found time entries", zap.Int("count", len(out)))
	return out, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &APIError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.SetBasicAuth(c.apiToken, apiTokenPassword)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Toggl request failed", zap.String("op", op), zap.Error(err))
		return &APIError{Op: op, Err: err}
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Toggl request returned an error status",
			zap.String("op", op),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(body)),
		)
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
