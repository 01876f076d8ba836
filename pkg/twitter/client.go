package twitter

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

	"golang.org/x/time/rate"

	"xpulse/pkg/accounts"
	"xpulse/pkg/config"
	"xpulse/pkg/errors"
	"xpulse/pkg/logger"
	"xpulse/pkg/retry"
)

// networkRetryAttempts bounds the transport retries of a single request.
const networkRetryAttempts = 3

// Client is the concrete network client. It owns the HTTP transport, the
// session cookies and a client-side rate limiter; recovery policy lives in
// the session manager and harvest controller, not here.
type Client struct {
	httpClient    *http.Client
	headers       map[string]string
	cookies       map[string]string
	limiter       *rate.Limiter
	baseURL       string
	lang          string
	logger        logger.Logger
	retryAttempts int
	retryBackoff  retry.BackoffStrategy
}

// NewClient creates a network client from configuration.
func NewClient(cfg *config.Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: map[string]string{
			"User-Agent":      cfg.Search.UserAgent,
			"Accept":          "application/json",
			"Accept-Language": cfg.Search.Language,
		},
		cookies: make(map[string]string),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst),
		baseURL:       BaseURL,
		lang:          cfg.Search.Language,
		logger:        log,
		retryAttempts: networkRetryAttempts,
		retryBackoff:  retry.DefaultExponentialBackoff(),
	}
}

// SetBaseURL overrides the API root (tests point it at a local server).
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// doRequest performs an HTTP request with the configured headers and cookies.
// Transport-level failures are retried with exponential backoff; HTTP status
// errors pass through untouched so the caller's recovery policy sees them.
func (c *Client) doRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.New(errors.KindNetwork, 0, fmt.Sprintf("rate limiter wait: %v", err))
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if len(c.cookies) > 0 {
		var pairs []string
		for name, value := range c.cookies {
			pairs = append(pairs, fmt.Sprintf("%s=%s", name, value))
		}
		req.Header.Set("Cookie", strings.Join(pairs, "; "))
	}
	if ct0 := c.cookies["ct0"]; ct0 != "" {
		req.Header.Set("x-csrf-token", ct0)
	}

	var resp *http.Response
	op := func() error {
		if req.Body != nil && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return errors.New(errors.KindUnknown, 0, fmt.Sprintf("failed to rewind request body: %v", err))
			}
			req.Body = body
		}

		start := time.Now()
		c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
			"method": req.Method,
			"url":    req.URL.String(),
		})

		r, err := c.httpClient.Do(req)
		duration := time.Since(start)

		if err != nil {
			c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
				"method":   req.Method,
				"url":      req.URL.String(),
				"error":    err.Error(),
				"duration": duration,
			})
			return errors.New(errors.KindNetwork, 0, fmt.Sprintf("network error: %v", err))
		}

		c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"status":   r.StatusCode,
			"duration": duration,
		})

		resp = r
		return nil
	}

	err := retry.Do(op, &retry.Config{
		MaxAttempts: c.retryAttempts,
		Backoff:     c.retryBackoff,
		RetryIf: func(error) bool {
			return ctx.Err() == nil
		},
		Context: ctx,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// getJSON performs a GET request and decodes the JSON response into target.
func (c *Client) getJSON(ctx context.Context, rawURL string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.New(errors.KindUnknown, 0, fmt.Sprintf("failed to create request: %v", err))
	}

	resp, err := c.doRequest(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New(errors.KindNetwork, resp.StatusCode, fmt.Sprintf("failed to read response body: %v", err))
	}

	if err := c.checkResponseStatus(resp.StatusCode, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errors.New(errors.KindParsing, resp.StatusCode, fmt.Sprintf("failed to parse JSON: %v", err))
	}

	return nil
}

// checkResponseStatus maps a non-2xx response to a typed error. An error
// code embedded in the body (blocked login, challenge) wins over the HTTP
// status so the classifier sees the real marker.
func (c *Client) checkResponseStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	code := status
	message := http.StatusText(status)

	var envelope apiErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Errors) > 0 {
		code = envelope.Errors[0].Code
		if envelope.Errors[0].Message != "" {
			message = envelope.Errors[0].Message
		}
	}

	kind := errors.KindAPI
	switch code {
	case errors.StatusUnauthorized, errors.StatusLoginBlocked, errors.StatusChallengeRequired:
		kind = errors.KindAuth
	}

	c.logger.WarnWithFields("API error response", map[string]interface{}{
		"status": status,
		"code":   code,
	})

	return errors.New(kind, code, message)
}

// PageHandle is one page of search results with a capability to fetch the
// next. Next failures carry the same typed errors as the initial search and
// must be classified identically.
type PageHandle interface {
	Posts() []Post
	HasNext() bool
	Next(ctx context.Context) (PageHandle, error)
}

// Search issues a date-bounded keyword search and returns the first page.
func (c *Client) Search(ctx context.Context, q Query) (PageHandle, error) {
	return c.searchPage(ctx, q, "")
}

func (c *Client) searchPage(ctx context.Context, q Query, cursor string) (PageHandle, error) {
	params := url.Values{}
	query := fmt.Sprintf("%s lang:%s since:%s until:%s", q.Keyword, q.Lang, q.Since, q.Until)
	params.Set("q", query)
	if q.Latest {
		params.Set("result_type", "recent")
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	endpoint := c.baseURL + searchPath + "?" + params.Encode()

	var result searchResponse
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	return &page{
		posts:  result.Posts,
		client: c,
		query:  q,
		cursor: result.NextCursor,
	}, nil
}

// Login performs a direct credential login and installs the issued session
// cookies on the client.
func (c *Client) Login(ctx context.Context, cred accounts.Credential) error {
	payload, err := json.Marshal(loginRequest{
		Username: cred.Username,
		Email:    cred.Email,
		Password: cred.Password,
	})
	if err != nil {
		return errors.New(errors.KindUnknown, 0, fmt.Sprintf("failed to encode login request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(payload))
	if err != nil {
		return errors.New(errors.KindUnknown, 0, fmt.Sprintf("failed to create login request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doRequest(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New(errors.KindNetwork, resp.StatusCode, fmt.Sprintf("failed to read login response: %v", err))
	}

	if err := c.checkResponseStatus(resp.StatusCode, body); err != nil {
		return err
	}

	var result loginResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return errors.New(errors.KindParsing, resp.StatusCode, fmt.Sprintf("failed to parse login response: %v", err))
	}
	if result.AuthToken == "" || result.CSRFToken == "" {
		return errors.New(errors.KindAuth, errors.StatusUnauthorized, "login response missing session cookies")
	}

	c.cookies["auth_token"] = result.AuthToken
	c.cookies["ct0"] = result.CSRFToken

	c.logger.InfoWithFields("credential login succeeded", map[string]interface{}{
		"account": cred.MaskedLabel(),
	})

	return nil
}

// LoadSession restores the client's cookies from a serialized session blob.
func (c *Client) LoadSession(blob []byte) error {
	var cookies map[string]string
	if err := json.Unmarshal(blob, &cookies); err != nil {
		return errors.New(errors.KindParsing, 0, fmt.Sprintf("invalid session blob: %v", err))
	}
	if cookies["auth_token"] == "" || cookies["ct0"] == "" {
		return errors.New(errors.KindAuth, errors.StatusUnauthorized, "session blob missing auth cookies")
	}
	c.cookies = cookies
	return nil
}

// SaveSession serializes the client's cookies into a session blob.
func (c *Client) SaveSession() ([]byte, error) {
	if c.cookies["auth_token"] == "" {
		return nil, errors.New(errors.KindAuth, errors.StatusUnauthorized, "no active session to save")
	}
	return json.Marshal(c.cookies)
}

// page is the concrete PageHandle over the search cursor.
type page struct {
	posts  []Post
	client *Client
	query  Query
	cursor string
}

func (p *page) Posts() []Post {
	return p.posts
}

func (p *page) HasNext() bool {
	return p.cursor != ""
}

func (p *page) Next(ctx context.Context) (PageHandle, error) {
	if p.cursor == "" {
		return nil, nil
	}
	return p.client.searchPage(ctx, p.query, p.cursor)
}
