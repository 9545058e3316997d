package platform

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
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"ml-pipeline-nodes/internal/config"
	"ml-pipeline-nodes/internal/core/domain"
)

// errNotFound marks a 404 from the platform. Repositories translate it into
// the entity specific domain error.
var errNotFound = errors.New("platform resource not found")

const (
	defaultTimeout    = 30 * time.Second
	defaultRateLimit  = 10.0
	defaultRateBurst  = 5
	defaultPageSize   = 100
	maxErrorBodyBytes = 512
)

// Client is a rate-limited REST client for the platform API. It retries
// throttled and unavailable responses with exponential backoff.
type Client struct {
	baseURL    string
	token      string
	maxRetries int
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg *config.PlatformConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = defaultRateBurst
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		token:      cfg.Token,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(limit), burst),
	}
}

func (c *Client) IsAvailable() bool {
	return c != nil && c.baseURL != ""
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) patch(ctx context.Context, path string, query url.Values, body, out interface{}) error {
	return c.do(ctx, http.MethodPatch, path, query, body, out)
}

// do sends one API call. body is JSON encoded when non-nil and the response
// is decoded into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		retry, err := c.doOnce(ctx, method, fullURL, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
		log.WithFields(log.Fields{
			"method":  method,
			"path":    path,
			"attempt": attempt + 1,
		}).WithError(err).Warn("platform request failed, retrying")
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, fullURL string, payload []byte, out interface{}) (bool, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return false, fmt.Errorf("create platform request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log.WithFields(log.Fields{
		"method": method,
		"url":    fullURL,
	}).Debug("platform request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return idempotent(method), fmt.Errorf("%w: %s %s: %v", domain.ErrPlatformRequest, method, fullURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return retryable(method, resp.StatusCode), statusError(method, fullURL, resp.StatusCode, msg)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("%w: decode %s %s: %v", domain.ErrPlatformRequest, method, fullURL, err)
	}
	return false, nil
}

// retryable reports whether a failed response may be sent again. A POST may
// already have taken effect behind a gateway error, so it is only repeated
// when the platform rejected it outright with 429.
func retryable(method string, status int) bool {
	switch status {
	case http.StatusTooManyRequests:
		return true
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return idempotent(method)
	}
	return false
}

// idempotent lists the methods the platform API treats as safe to repeat.
// PATCH requests here always set absolute values.
func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

func statusError(method, fullURL string, status int, body []byte) error {
	sentinel := domain.ErrPlatformRequest
	switch status {
	case http.StatusNotFound:
		sentinel = errNotFound
	case http.StatusBadRequest:
		sentinel = domain.ErrPlatformBadRequest
	}
	return fmt.Errorf("%w: %s %s: status %d: %s", sentinel, method, fullURL, status, strings.TrimSpace(string(body)))
}

// notFoundAs replaces a platform 404 with the domain error of the entity.
func notFoundAs(err error, target error, id string) error {
	if errors.Is(err, errNotFound) {
		return fmt.Errorf("%w: %s", target, id)
	}
	return err
}

type page[T any] struct {
	Items       []T  `json:"items"`
	HasNextPage bool `json:"hasNextPage"`
}

// listAll follows the platform's page/pageSize pagination until hasNextPage
// is false.
func listAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("pageSize", fmt.Sprint(defaultPageSize))

	var all []T
	for p := 0; ; p++ {
		query.Set("page", fmt.Sprint(p))
		var resp page[T]
		if err := c.get(ctx, path, query, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Items...)
		if !resp.HasNextPage {
			return all, nil
		}
	}
}

func escape(id string) string {
	return url.PathEscape(id)
}
