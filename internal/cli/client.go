package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/starboard/internal/domain/model"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to the starboard REST API.
type Client struct {
	baseURL  string
	password string
	token    string
	http     *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithPassword sends the admin password on mutating calls.
func WithPassword(pw string) ClientOption {
	return func(c *Client) { c.password = pw }
}

// WithToken sends a bearer token; it wins over the password.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the transport client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerationResult is the summary returned by generate and regenerate.
type GenerationResult struct {
	Boards      []model.MonthlyBoard `json:"boards"`
	Assigned    int                  `json:"assigned"`
	Unassigned  int                  `json:"unassigned"`
	StarsSpent  int                  `json:"starsSpent"`
	Regenerated []string             `json:"regenerated"`
	Skipped     []string             `json:"skipped"`
}

// Login exchanges the configured password for a token.
func (c *Client) Login(ctx context.Context) (string, time.Time, error) {
	var out struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	in := map[string]string{"password": c.password}
	if err := c.do(ctx, http.MethodPost, "/api/login", in, &out); err != nil {
		return "", time.Time{}, err
	}
	return out.Token, out.ExpiresAt, nil
}

// Coordinators lists the roster.
func (c *Client) Coordinators(ctx context.Context) ([]model.Coordinator, error) {
	var out []model.Coordinator
	err := c.do(ctx, http.MethodGet, "/api/coordinators", nil, &out)
	return out, err
}

// AddCoordinator adds one coordinator.
func (c *Client) AddCoordinator(ctx context.Context, name string, stars *int, available *bool, phone string) (model.Coordinator, error) {
	in := map[string]any{"name": name}
	if stars != nil {
		in["stars"] = *stars
	}
	if available != nil {
		in["available"] = *available
	}
	if phone != "" {
		in["phone"] = phone
	}
	var out model.Coordinator
	err := c.do(ctx, http.MethodPost, "/api/coordinators", in, &out)
	return out, err
}

// RemoveCoordinator deletes a coordinator by id.
func (c *Client) RemoveCoordinator(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/coordinators/"+url.PathEscape(id), nil, nil)
}

// ReplaceCoordinators overwrites the roster.
func (c *Client) ReplaceCoordinators(ctx context.Context, coords []model.Coordinator) ([]model.Coordinator, error) {
	var out []model.Coordinator
	err := c.do(ctx, http.MethodPut, "/api/coordinators", map[string]any{"coordinators": coords}, &out)
	return out, err
}

// Boards lists every board.
func (c *Client) Boards(ctx context.Context) ([]model.MonthlyBoard, error) {
	var out []model.MonthlyBoard
	err := c.do(ctx, http.MethodGet, "/api/boards", nil, &out)
	return out, err
}

// Board fetches one month.
func (c *Client) Board(ctx context.Context, month string) (model.MonthlyBoard, error) {
	var out model.MonthlyBoard
	err := c.do(ctx, http.MethodGet, "/api/boards/"+url.PathEscape(month), nil, &out)
	return out, err
}

// Generate replaces all boards with a fresh horizon. An empty start lets
// the server use the current month; zero months uses its default.
func (c *Client) Generate(ctx context.Context, start string, months int) (GenerationResult, error) {
	var out GenerationResult
	in := map[string]any{"start": start, "months": months}
	err := c.do(ctx, http.MethodPost, "/api/schedule", in, &out)
	return out, err
}

// Regenerate re-picks the remaining weeks of the given months.
func (c *Client) Regenerate(ctx context.Context, months ...string) (GenerationResult, error) {
	var out GenerationResult
	if len(months) == 1 {
		err := c.do(ctx, http.MethodPost, "/api/boards/"+url.PathEscape(months[0])+"/regenerate", nil, &out)
		return out, err
	}
	err := c.do(ctx, http.MethodPost, "/api/boards/regenerate", map[string]any{"months": months}, &out)
	return out, err
}

// do sends in as JSON and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.password != "":
		req.Header.Set("X-Admin-Password", c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &e) == nil {
			apiErr.Code, apiErr.Message = e.Code, e.Message
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
