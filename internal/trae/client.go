// Package trae provides a client for the Trae billing API: session-to-token
// exchange, entitlement snapshots, and paginated usage records.
package trae

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/tidwall/gjson"
)

const (
	// PrimaryHost is the default API host.
	PrimaryHost = "https://api-sg-central.trae.ai"
	// AlternateHost is the host switched to when the primary rejects the session.
	AlternateHost = "https://api-us-east.trae.ai"

	tokenPath       = "/cloudide/api/v3/common/GetUserToken"
	entitlementPath = "/trae/api/v1/pay/user_current_entitlement_list"
	usagePath       = "/trae/api/v1/pay/query_user_usage_group_by_session"

	defaultTimeout = 10 * time.Second
	maxBodySize    = 4 << 20 // 4 MB

	// authErrorCode is reported in ResponseMetadata.Error.Code when the
	// session is not recognized by the host that received it.
	authErrorCode = "20310"
	// tokenExpiredCode is the top-level "code" of a pay API response whose
	// bearer token is no longer valid.
	tokenExpiredCode = 1001
)

var (
	// ErrUnauthorized indicates the host rejected the session with the auth error code.
	ErrUnauthorized = errors.New("trae: session rejected by host")
	// ErrUnauthenticated is terminal: the session was rejected even after host failover.
	ErrUnauthenticated = errors.New("trae: cannot authenticate")
	// ErrTokenExpired indicates the bearer token must be exchanged again.
	ErrTokenExpired = errors.New("trae: token expired")
	// ErrRateLimited indicates the API rate limit was hit.
	ErrRateLimited = errors.New("trae: rate limited")
	// ErrUnavailable indicates a 5xx response.
	ErrUnavailable = errors.New("trae: service unavailable")
	// ErrNetworkUnstable is returned once transient failures exhaust the retry budget.
	ErrNetworkUnstable = errors.New("trae: network unstable")
)

// APIError is a non-success response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("trae: api error %s (status %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("trae: unexpected status %d: %s", e.Status, e.Message)
}

// Unwrap maps the response onto the package sentinels so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch {
	case e.Code == authErrorCode:
		return ErrUnauthorized
	case e.Code == strconv.Itoa(tokenExpiredCode):
		return ErrTokenExpired
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.Status >= 500:
		return ErrUnavailable
	}
	return nil
}

// Options configures a Client.
type Options struct {
	HTTPClient *http.Client
	// Timeout bounds each individual HTTP attempt.
	Timeout time.Duration
	// RetryMax is the number of retries after the first attempt for transient failures.
	RetryMax   int
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// Client performs requests against a Trae API host. It is stateless apart
// from its retry executor and is safe for concurrent use.
type Client struct {
	http    *http.Client
	timeout time.Duration
	exec    failsafe.Executor[[]byte]
	log     *slog.Logger
}

// NewClient creates a client with the given options.
func NewClient(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		http:    opts.HTTPClient,
		timeout: opts.Timeout,
		exec:    failsafe.With(newRetryPolicy(opts.RetryMax, opts.RetryDelay, opts.Logger)),
		log:     opts.Logger,
	}
}

// ExchangeToken trades a session identifier for a short-lived bearer token.
func (c *Client) ExchangeToken(ctx context.Context, host, sessionID string) (string, error) {
	header := http.Header{}
	header.Set("Cookie", "X-Cloudide-Session="+sessionID)

	body, err := c.post(ctx, host, tokenPath, header, struct{}{})
	if err != nil {
		return "", err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("trae: parsing token response: %w", err)
	}
	if resp.Result.Token == "" {
		return "", errors.New("trae: token response has no token")
	}
	return resp.Result.Token, nil
}

// post sends a JSON body through the retry executor and returns the raw
// response body of the first successful attempt.
func (c *Client) post(ctx context.Context, host, path string, header http.Header, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("trae: encoding request: %w", err)
	}

	body, err := c.exec.WithContext(ctx).Get(func() ([]byte, error) {
		return c.do(ctx, host+path, header, data)
	})
	if err != nil {
		if IsTransient(err) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNetworkUnstable, path, err)
		}
		return nil, err
	}
	return body, nil
}

// do performs a single attempt with its own timeout.
func (c *Client) do(ctx context.Context, url string, header http.Header, data []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("trae: creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "tburn/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trae: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("trae: reading response: %w", err)
	}

	// The auth error code can arrive with any HTTP status, so look at the
	// body before the status.
	if code := gjson.GetBytes(body, "ResponseMetadata.Error.Code"); code.Exists() && code.String() != "" {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Code:    code.String(),
			Message: gjson.GetBytes(body, "ResponseMetadata.Error.Message").String(),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: snippet(body)}
	}

	if gjson.GetBytes(body, "code").Int() == tokenExpiredCode {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Code:    strconv.Itoa(tokenExpiredCode),
			Message: gjson.GetBytes(body, "message").String(),
		}
	}

	return body, nil
}

func snippet(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
