// Package client talks to the netpanel backend over HTTP. Client implements
// session.Backend.
package client

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
	"sync"
	"time"

	"netpanel/internal/domain"
)

// DefaultTimeout is used when no timeout is configured
const DefaultTimeout = 10 * time.Second

// Client is an authenticated backend client
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithToken sets the bearer token sent with every request
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client for the backend at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// TokenResponse is the body returned by the login endpoint
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for a bearer token and keeps it for later
// requests
func (c *Client) Login(ctx context.Context, username, password string) error {
	form := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok TokenResponse
	if err := c.do(req, http.StatusOK, &tok); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if tok.AccessToken == "" {
		return errors.New("login: empty access token")
	}

	c.mu.Lock()
	c.token = tok.AccessToken
	c.mu.Unlock()
	return nil
}

// ============================================================================
// Configuration
// ============================================================================

// Configuration fetches the active configuration
func (c *Client) Configuration(ctx context.Context) (*domain.Configuration, error) {
	var cfg domain.Configuration
	if err := c.call(ctx, http.MethodGet, "/network/configuration", nil, http.StatusOK, &cfg); err != nil {
		return nil, err
	}
	if cfg.Intnets == nil {
		cfg.Intnets = make(domain.IntnetConfig)
	}
	return &cfg, nil
}

// PutPanelState saves the canvas layout
func (c *Client) PutPanelState(ctx context.Context, state domain.PanelState) error {
	return c.call(ctx, http.MethodPut, "/network/configuration/panelstate", state, http.StatusNoContent, nil)
}

// PutIntnets saves the intnet membership configuration
func (c *Client) PutIntnets(ctx context.Context, intnets domain.IntnetConfig) error {
	if intnets == nil {
		intnets = make(domain.IntnetConfig)
	}
	return c.call(ctx, http.MethodPut, "/network/configuration/intnets", intnets, http.StatusNoContent, nil)
}

// ============================================================================
// Snapshots
// ============================================================================

// CreateSnapshot stores a snapshot. A duplicate name yields domain.ErrConflict.
func (c *Client) CreateSnapshot(ctx context.Context, snapshot *domain.Snapshot) (*domain.Snapshot, error) {
	var created domain.Snapshot
	if err := c.call(ctx, http.MethodPost, "/network/snapshot", snapshot, http.StatusCreated, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Snapshots lists all snapshots
func (c *Client) Snapshots(ctx context.Context) ([]domain.Snapshot, error) {
	var snapshots []domain.Snapshot
	if err := c.call(ctx, http.MethodGet, "/network/snapshot/all", nil, http.StatusOK, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Snapshot fetches one snapshot
func (c *Client) Snapshot(ctx context.Context, uuid string) (*domain.Snapshot, error) {
	var snapshot domain.Snapshot
	if err := c.call(ctx, http.MethodGet, "/network/snapshot/"+url.PathEscape(uuid), nil, http.StatusOK, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// DeleteSnapshot removes a deletable snapshot
func (c *Client) DeleteSnapshot(ctx context.Context, uuid string) error {
	return c.call(ctx, http.MethodDelete, "/network/snapshot/"+url.PathEscape(uuid), nil, http.StatusNoContent, nil)
}

// RenameSnapshot changes the name of a snapshot
func (c *Client) RenameSnapshot(ctx context.Context, uuid, name string) (*domain.Snapshot, error) {
	var snapshot domain.Snapshot
	body := domain.RenameRequest{Name: name}
	if err := c.call(ctx, http.MethodPatch, "/network/snapshot/"+url.PathEscape(uuid), body, http.StatusOK, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ============================================================================
// Presets and machines
// ============================================================================

// Presets lists the available presets
func (c *Client) Presets(ctx context.Context) ([]domain.PresetSummary, error) {
	var presets []domain.PresetSummary
	if err := c.call(ctx, http.MethodGet, "/network/preset/all", nil, http.StatusOK, &presets); err != nil {
		return nil, err
	}
	return presets, nil
}

// Preset fetches one preset
func (c *Client) Preset(ctx context.Context, uuid string) (*domain.Preset, error) {
	var p domain.Preset
	if err := c.call(ctx, http.MethodGet, "/network/preset/"+url.PathEscape(uuid), nil, http.StatusOK, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Machines fetches the machine inventory keyed by machine uuid
func (c *Client) Machines(ctx context.Context) (map[string]domain.Machine, error) {
	machines := make(map[string]domain.Machine)
	if err := c.call(ctx, http.MethodGet, "/vm/all/networkdata", nil, http.StatusOK, &machines); err != nil {
		return nil, err
	}
	return machines, nil
}

// ============================================================================
// Transport
// ============================================================================

// StatusError is returned for an unexpected response status. It unwraps to
// the domain sentinel matching the status, if any.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrInvalid
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	default:
		return nil
	}
}

func (c *Client) call(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req, want, out)
}

func (c *Client) do(req *http.Request, want int, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return &StatusError{
			Method:     req.Method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts a message from an error body. Both the
// {error, details} shape and a bare {detail} are understood.
func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return strings.TrimSpace(string(data))
	}
	switch {
	case body.Error != "" && body.Details != "":
		return body.Error + ": " + body.Details
	case body.Error != "":
		return body.Error
	default:
		return body.Detail
	}
}
