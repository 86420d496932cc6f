package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauern/snapsync/internal/logging"
	"github.com/klauern/snapsync/internal/model"
	"github.com/klauern/snapsync/internal/status"
)

const defaultHTTPTimeout = 30 * time.Second

// StatusResponse is the body of GET /v1/projects/{id}/status.
type StatusResponse struct {
	ProjectID string        `json:"projectId"`
	Status    status.Status `json:"status"`
	UpdatedAt time.Time     `json:"updatedAt,omitzero"`
}

// HTTPTransport talks to a snapsync server over HTTP.
type HTTPTransport struct {
	baseURL string
	token   string
	client  *http.Client
}

// HTTPOption customizes an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) HTTPOption {
	return func(t *HTTPTransport) { t.token = token }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) HTTPOption {
	return func(t *HTTPTransport) {
		if d > 0 {
			t.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		if c != nil {
			t.client = c
		}
	}
}

// NewHTTPTransport creates a transport for the server at baseURL.
func NewHTTPTransport(baseURL string, opts ...HTTPOption) (*HTTPTransport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote url must be http or https, got %q", baseURL)
	}

	t := &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Fetch implements Transport.
func (t *HTTPTransport) Fetch(ctx context.Context, projectID string) (model.Snapshot, error) {
	var snap model.Snapshot
	if err := t.do(ctx, "fetch", projectID, http.MethodGet, projectPath(projectID), nil, &snap); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

// Push implements Transport.
func (t *HTTPTransport) Push(ctx context.Context, projectID string, snap model.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return newError("push", projectID, fmt.Errorf("encode snapshot: %w", err))
	}
	return t.do(ctx, "push", projectID, http.MethodPut, projectPath(projectID), body, nil)
}

// QueryStatus implements Transport. A project unknown to the server reports
// status.Unknown without error.
func (t *HTTPTransport) QueryStatus(ctx context.Context, projectID string) (status.Status, error) {
	var resp StatusResponse
	err := t.do(ctx, "status", projectID, http.MethodGet, projectPath(projectID)+"/status", nil, &resp)
	if errors.Is(err, ErrNotFound) {
		return status.Unknown, nil
	}
	if err != nil {
		return status.Unknown, err
	}
	return resp.Status, nil
}

// Ping implements Transport.
func (t *HTTPTransport) Ping(ctx context.Context) error {
	return t.do(ctx, "ping", "", http.MethodGet, "/healthz", nil, nil)
}

func (t *HTTPTransport) do(ctx context.Context, op, projectID, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return newError(op, projectID, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	logging.Debug("remote request",
		logging.Operation(op),
		logging.Project(projectID),
		logging.Path(path),
	)

	resp, err := t.client.Do(req)
	if err != nil {
		return newError(op, projectID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &Error{Op: op, ProjectID: projectID, StatusCode: resp.StatusCode, Err: ErrNotFound}
	case resp.StatusCode == http.StatusConflict:
		return &Error{Op: op, ProjectID: projectID, StatusCode: resp.StatusCode, Err: ErrStale}
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{
			Op:         op,
			ProjectID:  projectID,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(msg))),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return newError(op, projectID, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func projectPath(projectID string) string {
	return "/v1/projects/" + url.PathEscape(projectID)
}
