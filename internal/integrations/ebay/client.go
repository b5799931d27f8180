package ebay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TokenSource supplies a bearer token for outgoing requests. The user
// source is backed by per-account refresh tokens, the application source
// by the client-credentials grant.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// APIError is a non-2xx response from the marketplace.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300]
	}
	return fmt.Sprintf("api status %d: %s", e.Status, body)
}

// Temporary reports whether the request is worth retrying.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// rateState tracks the most recent X-EBAY-C-RATE-LIMIT headers.
type rateState struct {
	mu        sync.Mutex
	remaining int
	limit     int
	resetAt   time.Time
	seen      bool
}

func (r *rateState) update(h http.Header) {
	rem := h.Get("X-EBAY-C-RATE-LIMIT-REMAINING")
	lim := h.Get("X-EBAY-C-RATE-LIMIT-LIMIT")
	if rem == "" || lim == "" {
		return
	}
	remaining, err1 := strconv.Atoi(rem)
	limit, err2 := strconv.Atoi(lim)
	if err1 != nil || err2 != nil || limit <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = remaining
	r.limit = limit
	r.seen = true
	if reset := h.Get("X-EBAY-C-RATE-LIMIT-RESET"); reset != "" {
		if secs, err := strconv.Atoi(reset); err == nil {
			r.resetAt = time.Now().Add(time.Duration(secs) * time.Second)
		}
	}
}

// delay returns how long to pause before the next call. Below 20% of the
// window a bounded wait keeps the run under the quota.
func (r *rateState) delay() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.seen || r.limit == 0 {
		return 0
	}
	if float64(r.remaining)/float64(r.limit) >= 0.2 {
		return 0
	}
	wait := time.Until(r.resetAt)
	if wait <= 0 {
		wait = 5 * time.Second
	}
	if wait > time.Minute {
		wait = time.Minute
	}
	return wait
}

// Client talks to the marketplace REST APIs: identity, taxonomy,
// inventory, offers and fulfillment.
type Client struct {
	baseURL    string
	appID      string
	certID     string
	httpClient *http.Client

	userTokens TokenSource
	appTokens  TokenSource

	maxRetries int
	retryBase  time.Duration
	retryMax   time.Duration

	rate rateState
}

func NewClient(baseURL, appID, certID string, timeout time.Duration, maxRetries int, retryBase, retryMax time.Duration) *Client {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		appID:      appID,
		certID:     certID,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		retryBase:  retryBase,
		retryMax:   retryMax,
	}
}

// SetUserTokenSource installs the per-account token source. Identity
// calls work without one; everything under /sell needs it.
func (c *Client) SetUserTokenSource(ts TokenSource) { c.userTokens = ts }

// SetAppTokenSource installs the application token source used by the
// taxonomy endpoints.
func (c *Client) SetAppTokenSource(ts TokenSource) { c.appTokens = ts }

func (c *Client) basicAuth() string {
	cred := base64.StdEncoding.EncodeToString([]byte(c.appID + ":" + c.certID))
	return "Basic " + cred
}

type authKind int

const (
	authNone authKind = iota
	authUser
	authApp
	authBasic
)

func (c *Client) bearerFor(ctx context.Context, kind authKind) (string, error) {
	switch kind {
	case authUser:
		if c.userTokens == nil {
			return "", fmt.Errorf("no user token source configured")
		}
		return c.userTokens.AccessToken(ctx)
	case authApp:
		if c.appTokens == nil {
			return "", fmt.Errorf("no application token source configured")
		}
		return c.appTokens.AccessToken(ctx)
	}
	return "", nil
}

// do sends one API request with bounded retries on transient failures
// and decodes a JSON body into out when out is non-nil. okStatus lists
// the statuses treated as success.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, kind authKind, out interface{}, okStatus ...int) (int, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryBase << (attempt - 1)
			if backoff > c.retryMax {
				backoff = c.retryMax
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
		if wait := c.rate.delay(); wait > 0 {
			log.Printf("ebay: rate limit low, pausing %s", wait.Round(time.Second))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}

		status, err := c.doOnce(ctx, method, path, payload, kind, out, okStatus)
		if err == nil {
			return status, nil
		}
		lastErr = err
		var apiErr *APIError
		if asAPIError(err, &apiErr) && !apiErr.Temporary() {
			return status, err
		}
		if ctx.Err() != nil {
			return status, err
		}
	}
	return 0, lastErr
}

func asAPIError(err error, target **APIError) bool {
	e, ok := err.(*APIError)
	if ok {
		*target = e
	}
	return ok
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, kind authKind, out interface{}, okStatus []int) (int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Content-Language", "en-US")

	switch kind {
	case authBasic:
		req.Header.Set("Authorization", c.basicAuth())
	case authUser, authApp:
		token, err := c.bearerFor(ctx, kind)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &APIError{Status: http.StatusBadGateway, Body: err.Error()}
	}
	defer resp.Body.Close()

	c.rate.update(resp.Header)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if !statusOK(resp.StatusCode, okStatus) {
		return resp.StatusCode, &APIError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func statusOK(status int, okStatus []int) bool {
	if len(okStatus) == 0 {
		return status >= 200 && status < 300
	}
	for _, s := range okStatus {
		if s == status {
			return true
		}
	}
	return false
}

// TokenResponse is the identity endpoint's grant response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

func (c *Client) postTokenForm(ctx context.Context, form url.Values) (TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/identity/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return TokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", c.basicAuth())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenResponse{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return TokenResponse{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return TokenResponse{}, &APIError{Status: resp.StatusCode, Body: string(raw)}
	}
	var tok TokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return TokenResponse{}, fmt.Errorf("decode token response: %w", err)
	}
	return tok, nil
}

// RefreshUserToken exchanges a refresh token for a fresh access token.
func (c *Client) RefreshUserToken(ctx context.Context, refreshToken string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.postTokenForm(ctx, form)
}

// ExchangeAuthorizationCode trades a one-time consent code for the
// initial token pair.
func (c *Client) ExchangeAuthorizationCode(ctx context.Context, code, redirectURI string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	return c.postTokenForm(ctx, form)
}
