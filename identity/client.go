// Package identity is the HTTP client for the remote identity service: token
// obtain, token refresh and user registration.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Error sentinels for identity operations.
var (
	// ErrRequest indicates the call could not be made or its response read.
	ErrRequest = errors.New("identity request failed")

	// ErrMalformedResponse indicates a 2xx response without the expected fields.
	ErrMalformedResponse = errors.New("identity response malformed")
)

const (
	DefaultTokenPath    = "/auth/token/"
	DefaultRefreshPath  = "/auth/token/refresh/"
	DefaultRegisterPath = "/users/"

	defaultTimeout = 15 * time.Second

	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 1 << 20
)

// TokenPair is the token obtain response. The refresh response carries only
// Access unless the service rotates refresh tokens.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Options configures a [Client].
type Options struct {
	BaseURL      string
	TokenPath    string
	RefreshPath  string
	RegisterPath string

	// HTTPClient carries the transport chain. Its Timeout bounds every call.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls the identity endpoints.
type Client struct {
	base         string
	tokenPath    string
	refreshPath  string
	registerPath string
	httpClient   *http.Client
	log          *slog.Logger
}

// NewClient creates an identity [Client]. Empty paths take their defaults.
func NewClient(opts Options) *Client {
	c := &Client{
		base:         strings.TrimRight(opts.BaseURL, "/"),
		tokenPath:    opts.TokenPath,
		refreshPath:  opts.RefreshPath,
		registerPath: opts.RegisterPath,
		httpClient:   opts.HTTPClient,
		log:          opts.Logger,
	}
	if c.tokenPath == "" {
		c.tokenPath = DefaultTokenPath
	}
	if c.refreshPath == "" {
		c.refreshPath = DefaultRefreshPath
	}
	if c.registerPath == "" {
		c.registerPath = DefaultRegisterPath
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.log == nil {
		c.log = slog.New(slog.DiscardHandler)
	}
	return c
}

// Obtain exchanges credentials for a token pair. Credentials are validated
// before any request is made.
func (c *Client) Obtain(ctx context.Context, creds Credentials) (*TokenPair, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	var pair TokenPair
	if err := c.post(ctx, "obtain", c.tokenPath, creds, &pair); err != nil {
		return nil, err
	}
	if pair.Access == "" || pair.Refresh == "" {
		return nil, fmt.Errorf("%w: token pair incomplete", ErrMalformedResponse)
	}
	return &pair, nil
}

// Refresh exchanges a refresh token for a new access token. A response
// without "access" is an error.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair TokenPair
	body := struct {
		Refresh string `json:"refresh"`
	}{Refresh: refreshToken}

	if err := c.post(ctx, "refresh", c.refreshPath, body, &pair); err != nil {
		return nil, err
	}
	if pair.Access == "" {
		return nil, fmt.Errorf("%w: missing access", ErrMalformedResponse)
	}
	return &pair, nil
}

// Register creates a user account. The response body is not interpreted.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	return c.post(ctx, "register", c.registerPath, reg, nil)
}

func (c *Client) post(ctx context.Context, op, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: encoding %s request: %v", ErrRequest, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: creating %s request: %v", ErrRequest, op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRequest, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %v", ErrRequest, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(op, resp.StatusCode, body)
		c.log.Debug("identity call rejected",
			"op", op,
			"status", resp.StatusCode,
			"code", apiErr.Code,
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, op, err)
	}
	return nil
}
