// Package client is the HTTP client for the vault daemon API, used by
// the CLI and the shell hook.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/runger/cmdvault/internal/config"
	"github.com/runger/cmdvault/internal/server"
)

// Client talks to the cmdvault daemon over its JSON API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client from the loaded configuration.
func New(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Client.RequestTimeoutMs) * time.Millisecond
	if timeout == 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.Server.URL, "/"),
		token:   cfg.Server.Token,
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx response from the daemon.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("daemon returned %d", e.Status)
}

// Learn reports one executed command. The daemon folds it into the
// caller's usage history.
func (c *Client) Learn(ctx context.Context, req server.LearnRequest) error {
	return c.do(ctx, http.MethodPost, "/api/learn", req, nil)
}

// Suggest returns ranked suggestions for a query.
func (c *Client) Suggest(ctx context.Context, req server.SuggestRequest) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodPost, "/api/suggest", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCommands returns the caller's saved commands. favorite and tag
// filter when non-zero.
func (c *Client) ListCommands(ctx context.Context, favorite bool, tag string) ([]server.CommandResponse, error) {
	path := "/api/commands"
	sep := "?"
	if favorite {
		path += sep + "favorite=true"
		sep = "&"
	}
	if tag != "" {
		path += sep + "tag=" + tag
	}

	var out []server.CommandResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCommand saves a new vault entry.
func (c *Client) CreateCommand(ctx context.Context, req server.CommandRequest) (*server.CommandResponse, error) {
	var out server.CommandResponse
	if err := c.do(ctx, http.MethodPost, "/api/commands", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCommand replaces a vault entry.
func (c *Client) UpdateCommand(ctx context.Context, id string, req server.CommandRequest) (*server.CommandResponse, error) {
	var out server.CommandResponse
	if err := c.do(ctx, http.MethodPut, "/api/commands/"+id, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCommand removes a vault entry.
func (c *Client) DeleteCommand(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/commands/"+id, nil, nil)
}

// ListTags returns the caller's tag names.
func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/api/tags", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListLearned returns the caller's learned usage records.
func (c *Client) ListLearned(ctx context.Context) ([]server.LearnedResponse, error) {
	var out []server.LearnedResponse
	if err := c.do(ctx, http.MethodGet, "/api/learned", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ForgetLearned deletes a learned usage record.
func (c *Client) ForgetLearned(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/learned/"+id, nil, nil)
}

// Promote copies a learned command into the vault.
func (c *Client) Promote(ctx context.Context, learnedID string) (*server.CommandResponse, error) {
	var out server.CommandResponse
	if err := c.do(ctx, http.MethodPost, "/api/commands/"+learnedID+"/promote", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExchangeToken trades a device code for an API token.
func (c *Client) ExchangeToken(ctx context.Context, code, label string) (string, error) {
	var out map[string]string
	req := server.ExchangeTokenRequest{Code: code, Label: label}
	if err := c.do(ctx, http.MethodPost, "/api/exchange-token", req, &out); err != nil {
		return "", err
	}
	return out["token"], nil
}

// Health checks daemon reachability.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// do sends one JSON request and decodes the response into out when it
// is non-nil. Non-2xx responses come back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e server.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil {
			apiErr.Code = e.Error
			apiErr.Message = e.Message
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
