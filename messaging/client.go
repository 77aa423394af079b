// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

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

	"github.com/bureau-foundation/roomsync/lib/clock"
	"github.com/bureau-foundation/roomsync/lib/metrics"
	"github.com/bureau-foundation/roomsync/lib/netutil"
	"github.com/bureau-foundation/roomsync/lib/ref"
	"github.com/bureau-foundation/roomsync/lib/secret"
	"github.com/bureau-foundation/roomsync/lib/version"
)

// defaultRetryAfter applies when a 429 carries no usable delay.
const defaultRetryAfter = time.Second

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// HomeserverURL is the base URL of the homeserver (e.g., "https://matrix.example.org").
	HomeserverURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// Clock drives rate-limit waits. If nil, clock.Real() is used.
	Clock clock.Clock
	// Metrics receives rate-limit counts. May be nil.
	Metrics *metrics.Metrics
}

// Client is an unauthenticated homeserver client. It is shared by every
// session derived from it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	clock      clock.Clock
	metrics    *metrics.Metrics
}

// NewClient creates a new unauthenticated client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.HomeserverURL == "" {
		return nil, fmt.Errorf("messaging: HomeserverURL is required")
	}
	// Request URLs are built by concatenation, so only structure is
	// checked here.
	parsed, err := url.Parse(config.HomeserverURL)
	if err != nil {
		return nil, fmt.Errorf("messaging: invalid HomeserverURL %q: %w", config.HomeserverURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("messaging: HomeserverURL %q must be absolute", config.HomeserverURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.HomeserverURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		clock:      clk,
		metrics:    config.Metrics,
	}, nil
}

// HomeserverURL returns the base URL without a trailing slash.
func (c *Client) HomeserverURL() string {
	return c.baseURL
}

// MediaDownloadURL returns the plain HTTP download URL for an mxc://
// reference, for handing to software that cannot resolve mxc URIs.
func (c *Client) MediaDownloadURL(uri ref.ContentURI) string {
	if uri.IsZero() {
		return ""
	}
	return c.baseURL + "/_matrix/media/v3/download/" +
		url.PathEscape(uri.Server()) + "/" + url.PathEscape(uri.MediaID())
}

// MediaThumbnailURL returns a scaled thumbnail URL for an mxc://
// reference.
func (c *Client) MediaThumbnailURL(uri ref.ContentURI, width, height int) string {
	if uri.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s/_matrix/media/v3/thumbnail/%s/%s?width=%d&height=%d",
		c.baseURL, url.PathEscape(uri.Server()), url.PathEscape(uri.MediaID()), width, height)
}

// Login authenticates with a password and returns a session holding
// the new access token in protected memory. The password buffer is
// read but not closed.
func (c *Client) Login(ctx context.Context, userID ref.UserID, password *secret.Buffer) (*DirectSession, error) {
	if userID.IsZero() {
		return nil, fmt.Errorf("messaging: user ID is required for login")
	}
	if password == nil {
		return nil, fmt.Errorf("messaging: password is required for login")
	}

	request := LoginRequest{
		Type: "m.login.password",
		Identifier: UserIdentifier{
			Type: "m.id.user",
			User: userID.String(),
		},
		Password:                 password.String(),
		InitialDeviceDisplayName: "roomsync",
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/_matrix/client/v3/login", nil, request, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: login failed: %w", err)
	}

	var response LoginResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse login response: %w", err)
	}
	if response.AccessToken == "" {
		return nil, &AuthError{Err: errors.New("login response carried no access token")}
	}

	c.logger.Info("logged in to homeserver",
		"user_id", response.UserID,
		"device_id", response.DeviceID,
	)

	token, err := secret.NewFromString(response.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("messaging: protecting access token: %w", err)
	}
	session := c.Session(response.UserID, NewSecretToken(token))
	session.deviceID = response.DeviceID
	return session, nil
}

// SessionFromToken creates a session from an existing access token.
// The token is copied into protected memory. It is not validated; use
// WhoAmI for that.
func (c *Client) SessionFromToken(userID ref.UserID, accessToken string) (*DirectSession, error) {
	token, err := secret.NewFromString(accessToken)
	if err != nil {
		return nil, fmt.Errorf("messaging: protecting access token: %w", err)
	}
	return c.Session(userID, NewSecretToken(token)), nil
}

// Session creates a session that asks provider for the token on every
// request. If provider implements io.Closer, DirectSession.Close
// closes it.
func (c *Client) Session(userID ref.UserID, provider TokenProvider) *DirectSession {
	return &DirectSession{
		client: c,
		token:  provider,
		userID: userID,
	}
}

// request is one homeserver call, replayable across rate-limit retries.
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	token       TokenProvider
	// readBody reads a 2xx body; nil means a bounded JSON read.
	readBody func(io.Reader) ([]byte, error)
}

// response is a successful 2xx answer.
type response struct {
	body   []byte
	header http.Header
}

// doRequest performs a JSON request and returns the 2xx body. token may
// be nil for unauthenticated endpoints; query may be nil.
func (c *Client) doRequest(ctx context.Context, method, path string, token TokenProvider, requestBody any, query url.Values) ([]byte, error) {
	call := request{method: method, path: path, query: query, token: token}
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("messaging: failed to encode request body: %w", err)
		}
		call.body = encoded
		call.contentType = "application/json"
	}
	result, err := c.execute(ctx, call)
	if err != nil {
		return nil, err
	}
	return result.body, nil
}

// execute runs call until it yields something other than a 429.
func (c *Client) execute(ctx context.Context, call request) (*response, error) {
	for {
		result, err := c.attempt(ctx, call)
		var rateLimited *RateLimitError
		if !errors.As(err, &rateLimited) {
			return result, err
		}

		c.logger.Warn("rate limited by homeserver",
			"method", call.method,
			"path", call.path,
			"retry_after", rateLimited.RetryAfter,
		)
		c.metrics.RateLimited(call.method)

		select {
		case <-ctx.Done():
			return nil, &NetworkError{Method: call.method, Path: call.path, Err: ctx.Err()}
		case <-c.clock.After(rateLimited.RetryAfter):
		}
	}
}

// attempt performs call once.
func (c *Client) attempt(ctx context.Context, call request) (*response, error) {
	requestURL := c.baseURL + call.path
	if len(call.query) > 0 {
		requestURL += "?" + call.query.Encode()
	}

	var bodyReader io.Reader
	if call.body != nil {
		bodyReader = bytes.NewReader(call.body)
	}
	httpRequest, err := http.NewRequestWithContext(ctx, call.method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("messaging: failed to create request: %w", err)
	}
	httpRequest.Header.Set("User-Agent", version.UserAgent())
	if call.contentType != "" {
		httpRequest.Header.Set("Content-Type", call.contentType)
	}
	if call.token != nil {
		token, err := call.token.Token(ctx)
		if err != nil {
			return nil, &AuthError{Err: err}
		}
		if token == "" {
			return nil, &AuthError{Err: errors.New("empty access token")}
		}
		httpRequest.Header.Set("Authorization", "Bearer "+token)
	}

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return nil, &NetworkError{Method: call.method, Path: call.path, Err: err}
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode >= 200 && httpResponse.StatusCode < 300 {
		readBody := call.readBody
		if readBody == nil {
			readBody = netutil.ReadResponse
		}
		body, err := readBody(httpResponse.Body)
		if err != nil {
			return nil, &NetworkError{Method: call.method, Path: call.path, Err: fmt.Errorf("reading response body: %w", err)}
		}
		return &response{body: body, header: httpResponse.Header}, nil
	}

	responseBody, err := netutil.ReadResponse(httpResponse.Body)
	if err != nil {
		return nil, &NetworkError{Method: call.method, Path: call.path, Err: fmt.Errorf("reading error body: %w", err)}
	}

	// Matrix error bodies share one JSON shape; anything else is kept
	// verbatim as the message.
	matrixErr := &MatrixError{StatusCode: httpResponse.StatusCode}
	if jsonErr := json.Unmarshal(responseBody, matrixErr); jsonErr != nil {
		matrixErr.Code = ErrCodeUnknown
		matrixErr.Message = string(responseBody)
	}

	switch httpResponse.StatusCode {
	case http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: c.retryAfter(httpResponse.Header, matrixErr)}
	case http.StatusUnauthorized:
		return nil, &AuthError{Err: matrixErr}
	}
	return nil, matrixErr
}

// retryAfter picks the wait for a 429: header, then body, then default.
func (c *Client) retryAfter(header http.Header, matrixErr *MatrixError) time.Duration {
	if delay, ok := netutil.ParseRetryAfter(header.Get("Retry-After"), c.clock.Now()); ok {
		return delay
	}
	if matrixErr.RetryAfterMS > 0 {
		return time.Duration(matrixErr.RetryAfterMS) * time.Millisecond
	}
	return defaultRetryAfter
}
