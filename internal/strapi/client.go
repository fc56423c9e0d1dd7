// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package strapi is the upstream client layer. All requests to the Strapi
// content service go through a Client bound to one of two credential
// scopes: the content token for domain resources (profiles, topics,
// sessions, classrooms, ...) and the user token for the users-permissions
// surface. Both clients share one transport so the connection cap applies
// to the upstream as a whole; requests beyond the cap queue rather than fail.
package strapi

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"github.com/stayapp/stay-middleware/internal/logging"
)

// Config holds the settings for the upstream client pool.
type Config struct {
	// BaseURL is the Strapi instance root, e.g. http://localhost:1337.
	BaseURL string

	// ContentToken is the bearer token for content-scoped requests.
	ContentToken string

	// UserToken is the bearer token for user-scoped requests.
	UserToken string

	// Timeout bounds each upstream request end to end.
	Timeout time.Duration

	// MaxConns caps concurrent connections to the upstream.
	MaxConns int
}

// Clients is the upstream client pool, one Client per credential scope.
type Clients struct {
	Content *Client
	User    *Client
}

// NewClients builds the two scoped clients over a shared transport.
func NewClients(cfg Config) *Clients {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 32
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxConnsPerHost:     cfg.MaxConns,
		MaxIdleConns:        cfg.MaxConns,
		MaxIdleConnsPerHost: cfg.MaxConns,
		IdleConnTimeout:     90 * time.Second,
	}
	httpClient := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}

	return &Clients{
		Content: &Client{baseURL: cfg.BaseURL, token: cfg.ContentToken, http: httpClient},
		User:    &Client{baseURL: cfg.BaseURL, token: cfg.UserToken, http: httpClient},
	}
}

// Client issues requests against the upstream with one bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a standalone client. Used in tests; production code
// goes through NewClients.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, token: token, http: httpClient}
}

type quiet404Key struct{}

// WithQuiet404 marks the context so an upstream 404 on this request logs
// at debug instead of error. Used by existence probes where a miss is an
// expected outcome, not a fault.
func WithQuiet404(ctx context.Context) context.Context {
	return context.WithValue(ctx, quiet404Key{}, true)
}

func quiet404(ctx context.Context) bool {
	v, _ := ctx.Value(quiet404Key{}).(bool)
	return v
}

// Get issues a GET with the client's bearer token.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, c.token)
}

// Post issues a POST with a JSON body and the client's bearer token.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil, body, c.token)
}

// PostNoAuth issues a POST without an Authorization header. The upstream
// authentication endpoints reject requests that carry an API token.
func (c *Client) PostNoAuth(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil, body, "")
}

// GetAs issues a GET with an explicit bearer token instead of the
// client's own, for calls made on behalf of an end user.
func (c *Client) GetAs(ctx context.Context, path string, query url.Values, bearer string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, bearer)
}

// Put issues a PUT with a JSON body and the client's bearer token.
func (c *Client) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, path, nil, body, c.token)
}

// Delete issues a DELETE with the client's bearer token.
func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, nil, nil, c.token)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, bearer string) (json.RawMessage, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, newTransportError(err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, newTransportError(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	log := logging.Ctx(ctx)
	log.Debug().
		Str("method", method).
		Str("path", path).
		Msg("upstream request")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).
			Str("method", method).
			Str("path", path).
			Msg("upstream request failed")
		return nil, newTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := newAPIError(resp.StatusCode, data)
		evt := log.Error()
		if resp.StatusCode == http.StatusNotFound && quiet404(ctx) {
			evt = log.Debug()
		}
		evt.Int("status", resp.StatusCode).
			Str("method", method).
			Str("path", path).
			Str("message", apiErr.Message).
			Msg("upstream error response")
		return nil, apiErr
	}

	return data, nil
}
