// Package client is a typed Go client for the duo HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/duo/internal/model"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("duo api: %d %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// User is the public profile returned by the API.
type User struct {
	UID           string      `json:"uid"`
	DisplayName   string      `json:"displayName"`
	Discriminator string      `json:"discriminator"`
	FullTag       string      `json:"fullTag"`
	Status        string      `json:"status"`
	CreatedAt     int64       `json:"createdAt"`
	LastSeen      int64       `json:"lastSeen"`
	Stats         model.Stats `json:"stats"`
}

// Presence is a user's presence row plus the server's staleness verdict.
type Presence struct {
	UID             string  `json:"uid"`
	Status          string  `json:"status"`
	GroupID         *string `json:"groupId"`
	LastUpdated     int64   `json:"lastUpdated"`
	IsTyping        bool    `json:"isTyping"`
	Stale           bool    `json:"stale"`
	EffectiveStatus string  `json:"effectiveStatus"`
}

// Client talks to one duo server.
type Client struct {
	baseURL   string
	http      *http.Client
	log       *slog.Logger
	heartbeat time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger used for background heartbeat failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithHeartbeatInterval overrides DefaultHeartbeatInterval.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Client) { c.heartbeat = d }
}

// New returns a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      http.DefaultClient,
		log:       slog.Default(),
		heartbeat: DefaultHeartbeatInterval,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type authResp struct {
	User      User   `json:"user"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Signup creates an account and returns its first session.
func (c *Client) Signup(ctx context.Context, displayName, email, password string) (*Session, error) {
	var out authResp
	in := map[string]string{"displayName": displayName, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", "", in, &out); err != nil {
		return nil, err
	}
	return c.session(out), nil
}

// Login returns a new session for the given credentials.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var out authResp
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", in, &out); err != nil {
		return nil, err
	}
	return c.session(out), nil
}

func (c *Client) session(a authResp) *Session {
	return &Session{client: c, Token: a.Token, ExpiresAt: a.ExpiresAt, User: a.User}
}

// Logout revokes token. Revoking an unknown token succeeds.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil)
}

// Me returns the user behind token, or nil when the token does not resolve.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// GetUser fetches a public profile. A missing user is an APIError with 404.
func (c *Client) GetUser(ctx context.Context, uid string) (User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(uid), "", nil, &out)
	return out, err
}

// FindByTag looks a user up by full tag (Name#1234). It returns nil on a miss.
func (c *Client) FindByTag(ctx context.Context, tag string) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	path := "/api/users/search?tag=" + url.QueryEscape(tag)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// UpdateStatus sets uid's status. token must belong to uid.
func (c *Client) UpdateStatus(ctx context.Context, token, uid string, status model.Status) error {
	in := map[string]string{"status": string(status)}
	return c.do(ctx, http.MethodPost, "/api/users/"+url.PathEscape(uid)+"/status", token, in, nil)
}

// UpdateStats merges the non-nil fields of patch into uid's counters.
func (c *Client) UpdateStats(ctx context.Context, token, uid string, patch model.StatsPatch) error {
	in := map[string]model.StatsPatch{"stats": patch}
	return c.do(ctx, http.MethodPost, "/api/users/"+url.PathEscape(uid)+"/stats", token, in, nil)
}

// SetPresence records uid's status and study group.
func (c *Client) SetPresence(ctx context.Context, token, uid string, status model.Status, groupID *string) error {
	in := struct {
		UID     string  `json:"uid"`
		Status  string  `json:"status"`
		GroupID *string `json:"groupId"`
	}{uid, string(status), groupID}
	return c.do(ctx, http.MethodPost, "/api/presence", token, in, nil)
}

// SetTyping records only uid's typing flag.
func (c *Client) SetTyping(ctx context.Context, token, uid string, isTyping bool) error {
	in := struct {
		UID      string `json:"uid"`
		IsTyping bool   `json:"isTyping"`
	}{uid, isTyping}
	return c.do(ctx, http.MethodPost, "/api/presence/typing", token, in, nil)
}

// GetPresence returns uid's presence, or nil when none was recorded.
func (c *Client) GetPresence(ctx context.Context, token, uid string) (*Presence, error) {
	var out struct {
		Presence *Presence `json:"presence"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/presence/"+url.PathEscape(uid), token, nil, &out); err != nil {
		return nil, err
	}
	return out.Presence, nil
}

// Ready reports whether the server can reach its database.
func (c *Client) Ready(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", "", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
