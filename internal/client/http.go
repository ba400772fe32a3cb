// Package client talks to a patrachat server over HTTP and WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"PatraChat/internal/presence"
	"PatraChat/internal/server"
)

// Session actions that take no body.
const (
	ActionOpen    = "open"
	ActionClose   = "close"
	ActionToggle  = "toggle"
	ActionSound   = "sound"
	ActionClear   = "clear"
	ActionEscape  = "escape"
	ActionOutside = "outside"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.Status, e.Message)
}

// HTTPClient calls the session endpoints of a server.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a client for the server at baseURL.
func NewHTTPClient(baseURL string, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// BaseURL returns the server address the client was created with.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Create starts a new session.
func (c *HTTPClient) Create(ctx context.Context) (server.SessionResponse, error) {
	var resp server.SessionResponse
	err := c.do(ctx, http.MethodPost, "/api/sessions", nil, &resp)
	if err == nil {
		c.logger.Info("created remote session", "session_id", resp.ID)
	}
	return resp, err
}

// Get returns the current view of a session.
func (c *HTTPClient) Get(ctx context.Context, id uuid.UUID) (server.SessionResponse, error) {
	var resp server.SessionResponse
	err := c.do(ctx, http.MethodGet, sessionPath(id, ""), nil, &resp)
	return resp, err
}

// Delete ends a session.
func (c *HTTPClient) Delete(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil)
}

// Do runs one of the Action* operations.
func (c *HTTPClient) Do(ctx context.Context, id uuid.UUID, action string) (server.SessionResponse, error) {
	var resp server.SessionResponse
	err := c.do(ctx, http.MethodPost, sessionPath(id, action), nil, &resp)
	return resp, err
}

// Send submits a message.
func (c *HTTPClient) Send(ctx context.Context, id uuid.UUID, text string) (server.SessionResponse, error) {
	var resp server.SessionResponse
	err := c.do(ctx, http.MethodPost, sessionPath(id, "messages"), map[string]string{"text": text}, &resp)
	return resp, err
}

// Scroll reports a page scroll.
func (c *HTTPClient) Scroll(ctx context.Context, id uuid.UUID, ev presence.ScrollEvent) error {
	return c.do(ctx, http.MethodPost, sessionPath(id, "scroll"), ev, nil)
}

func sessionPath(id uuid.UUID, action string) string {
	p := "/api/sessions/" + id.String()
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		apiErr := &APIError{Status: httpResp.StatusCode, Message: strings.TrimSpace(string(data))}
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			apiErr.Message = body.Error
		}
		return apiErr
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}
