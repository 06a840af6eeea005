// Package transport is the HTTP client for the remote event catalog. It
// implements catalog.Service and maps every failure mode of the API to a
// transient fetch error.
package transport

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/eventdeck/pkg/catalog"
	"github.com/agentstation/eventdeck/pkg/constants"
	"github.com/agentstation/eventdeck/pkg/errors"
	"github.com/agentstation/eventdeck/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client talks to the catalog API.
type Client struct {
	baseURL string
	http    *http.Client
	auth    Authenticator
	token   string
	logger  *zerolog.Logger
}

var _ catalog.Service = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithAuth authenticates every request with token.
func WithAuth(auth Authenticator, token string) Option {
	return func(c *Client) {
		if auth != nil {
			c.auth = auth
			c.token = token
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		auth:    &NoAuth{},
		logger:  logging.Component("transport"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request against path with the given query.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", "GET "+target, err)
	}
	if c.token != "" {
		c.auth.Apply(req, c.token)
	}
	req.Header.Set("Accept", "application/json")

	return c.http.Do(req)
}

// FetchCategories implements catalog.Service.
func (c *Client) FetchCategories(ctx context.Context) ([]catalog.Category, error) {
	body, err := c.fetch(ctx, "categories", "/categories", nil)
	if err != nil {
		return nil, err
	}
	categories, err := catalog.NormalizeCategories(body)
	if err != nil {
		return nil, errors.NewTransientFetchError("categories", http.StatusOK, err)
	}
	return categories, nil
}

// FetchEvents implements catalog.Service.
func (c *Client) FetchEvents(ctx context.Context, q catalog.EventQuery) ([]catalog.EventSummary, error) {
	query := url.Values{}
	if q.CategoryID != nil {
		query.Set("categoryId", *q.CategoryID)
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}

	body, err := c.fetch(ctx, "events", "/events", query)
	if err != nil {
		return nil, err
	}
	events, err := catalog.NormalizeEvents(body)
	if err != nil {
		return nil, errors.NewTransientFetchError("events", http.StatusOK, err)
	}
	return events, nil
}

func (c *Client) fetch(ctx context.Context, operation, path string, query url.Values) ([]byte, error) {
	start := time.Now()
	resp, err := c.Get(ctx, path, query)
	if err != nil {
		c.logger.Debug().Err(err).Str("operation", operation).Msg("Catalog request failed")
		return nil, errors.NewTransientFetchError(operation, 0, err)
	}

	body, err := DecodeResponse(resp, operation)
	c.logger.Debug().
		Str("operation", operation).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Catalog request completed")
	return body, err
}
