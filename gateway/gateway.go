// Package gateway is the single path by which the application talks to the
// backend. It injects the stored access token into every request and runs
// the refresh-and-retry protocol when a token is rejected.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-gateway/credentials"
	"github.com/jrsteele09/go-session-gateway/internal/errors"
	"github.com/jrsteele09/go-session-gateway/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout = 15 * time.Second

	// maxAuthRetries caps how often one call is re-issued after a 401.
	maxAuthRetries = 1

	RequestIDHeader = "X-Request-ID"
)

// Authority owns the session the gateway's tokens belong to.
type Authority interface {
	// Refresh obtains a new access token to replace rejected.
	Refresh(ctx context.Context, rejected string) (string, error)
	// Expire ends the session because rejected was refused again after a
	// refresh.
	Expire(rejected string, reason error)
	// Reconcile is told, before every call, whether the store holds a token.
	Reconcile(hasToken bool)
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) {
		g.client = c
	}
}

// WithTimeout bounds every call, including the retry after a refresh.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the logger. Defaults to the global zerolog logger.
func WithLogger(l zerolog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = l
	}
}

// WithMetrics records request outcomes on m.
func WithMetrics(m *metrics.Metrics) GatewayOption {
	return func(g *Gateway) {
		g.metrics = m
	}
}

type Gateway struct {
	baseURL string
	store   credentials.Reader
	client  *http.Client
	timeout time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics

	lock      sync.RWMutex
	authority Authority
}

// New creates a gateway for the API rooted at baseURL. store is only ever
// read; the session machine is its writer.
func New(baseURL string, store credentials.Reader, opts ...GatewayOption) (*Gateway, error) {
	if store == nil {
		return nil, errors.New("[gateway.New] credential store is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[gateway.New] invalid base URL %q", baseURL)
	}

	g := &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		client:  &http.Client{},
		timeout: DefaultTimeout,
		logger:  log.Logger.With().Str("component", "gateway").Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Bind attaches the authority consulted on authentication failures. Until
// one is bound, 401 responses are returned to the caller unchanged.
func (g *Gateway) Bind(a Authority) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.authority = a
}

func (g *Gateway) bound() Authority {
	g.lock.RLock()
	defer g.lock.RUnlock()
	return g.authority
}

// URL resolves path against the base URL. Absolute URLs are returned as is.
func (g *Gateway) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return g.baseURL + "/" + strings.TrimLeft(path, "/")
}

// HTTPClient is the client used for every backend call.
func (g *Gateway) HTTPClient() *http.Client {
	return g.client
}

func (g *Gateway) Timeout() time.Duration {
	return g.timeout
}

func (g *Gateway) Get(ctx context.Context, path string) (*Response, error) {
	return g.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

func (g *Gateway) Post(ctx context.Context, path string, body any) (*Response, error) {
	return g.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Do sends req. Any status other than an authentication failure on a call
// that carried a token is returned as a Response with a nil error.
func (g *Gateway) Do(ctx context.Context, req Request) (*Response, error) {
	c, err := g.newCall(req)
	if err != nil {
		return nil, err
	}

	pair, hasToken, err := g.store.Load()
	if err != nil {
		g.logger.Warn().Err(err).Str("request_id", c.id).Msg("reading credentials failed, sending unauthenticated")
		hasToken = false
	}
	authority := g.bound()
	if authority != nil {
		authority.Reconcile(hasToken)
	}

	token := ""
	if hasToken {
		token = pair.AccessToken
	}

	for {
		resp, err := g.send(ctx, c, token)
		if err != nil {
			g.metrics.Request(metrics.OutcomeTransport)
			g.logger.Debug().Err(err).Str("request_id", c.id).Str("method", c.method).Str("url", c.url).Msg("transport failure")
			return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, c.method, c.url, err)
		}

		if resp.StatusCode != http.StatusUnauthorized || token == "" || authority == nil {
			if c.attempts > 0 {
				g.metrics.Request(metrics.OutcomeRetried)
			} else {
				g.metrics.Request(metrics.OutcomePassed)
			}
			return resp, nil
		}

		if c.attempts >= maxAuthRetries {
			g.metrics.Request(metrics.OutcomeExpired)
			g.logger.Info().Str("request_id", c.id).Str("url", c.url).Msg("token rejected after refresh, ending session")
			authority.Expire(token, fmt.Errorf("%w: %s %s rejected after refresh", ErrSessionExpired, c.method, c.url))
			return nil, fmt.Errorf("%w: %s %s rejected after refresh", ErrSessionExpired, c.method, c.url)
		}
		c.attempts++

		g.logger.Debug().Str("request_id", c.id).Str("url", c.url).Msg("access token rejected, refreshing")
		fresh, err := authority.Refresh(ctx, token)
		if err != nil {
			g.metrics.Request(metrics.OutcomeExpired)
			if errors.Is(err, ErrSessionExpired) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		token = fresh
	}
}

func (g *Gateway) newCall(req Request) (*call, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	target := g.URL(req.Path)
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	return &call{
		id:          uuid.New().String(),
		method:      method,
		url:         target,
		header:      req.Header.Clone(),
		body:        body,
		contentType: contentType,
	}, nil
}

func (g *Gateway) send(ctx context.Context, c *call, token string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var body io.Reader
	if c.body != nil {
		body = bytes.NewReader(c.body)
	}
	req, err := http.NewRequestWithContext(ctx, c.method, c.url, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", c.contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set(RequestIDHeader, c.id)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		Method:     c.method,
		URL:        c.url,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       raw,
	}, nil
}
