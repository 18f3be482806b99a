// Package api is the client for the ILUMINA REST backend: the
// unauthenticated auth endpoints used by the session manager, and an
// authorized request layer for everything else.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ierrors "github.com/jrsteele09/ilumina-session/internal/errors"
	"github.com/jrsteele09/ilumina-session/internal/utils"
	"github.com/jrsteele09/ilumina-session/users"
)

const (
	RouteAuthLogin   = "/auth/login"
	RouteAuthRefresh = "/auth/refresh"
	RouteAuthMe      = "/auth/me"

	maxErrorBody = 4 << 10
)

// TokenResponse is the canonical body of /auth/login and /auth/refresh.
type TokenResponse struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

// Expiry returns the expiry, or the zero time when the backend sent none.
func (t *TokenResponse) Expiry() time.Time {
	return utils.Value(t.ExpiresAt)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// meResponse accepts both the flat profile and the {"user": {...}} envelope.
type meResponse struct {
	users.Profile
	User *users.Profile `json:"user,omitempty"`
}

// StatusError is a non-2xx backend response.
type StatusError struct {
	StatusCode int
	Message    string
	err        error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", e.err, e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d): %s", e.err, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.err
}

// Client talks to the backend rooted at baseURL (e.g. "https://host/api").
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges credentials for tokens. A 401 is reported as
// ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	var resp TokenResponse
	err := c.postJSON(ctx, RouteAuthLogin, loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		var se *StatusError
		if ierrors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
			se.err = ierrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("[Login] %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("[Login] %w", ierrors.ErrMissingToken)
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a new token set.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.postJSON(ctx, RouteAuthRefresh, refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, fmt.Errorf("[Refresh] %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("[Refresh] %w", ierrors.ErrMissingToken)
	}
	return &resp, nil
}

// Me fetches the profile for accessToken. It deliberately does not go through
// the authorized request layer: a rejected token here is a failed fetch, not
// a forced logout.
func (c *Client) Me(ctx context.Context, accessToken string) (*users.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+RouteAuthMe, nil)
	if err != nil {
		return nil, fmt.Errorf("[Me] failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	var resp meResponse
	if err := doJSON(c.httpClient, req, &resp); err != nil {
		return nil, fmt.Errorf("[Me] %w", err)
	}

	profile := resp.Profile
	if resp.User != nil {
		profile = *resp.User
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("[Me] %w: %v", ierrors.ErrInvalidProfile, err)
	}
	return &profile, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return doJSON(c.httpClient, req, out)
}

func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ierrors.ErrBadResponse, err)
	}
	return nil
}

func statusError(resp *http.Response) *StatusError {
	se := &StatusError{StatusCode: resp.StatusCode, err: ierrors.ErrBadResponse}
	if resp.StatusCode == http.StatusUnauthorized {
		se.err = ierrors.ErrUnauthorized
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Message          string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		switch {
		case payload.Message != "":
			se.Message = payload.Message
		case payload.ErrorDescription != "":
			se.Message = payload.ErrorDescription
		default:
			se.Message = payload.Error
		}
	}
	return se
}
