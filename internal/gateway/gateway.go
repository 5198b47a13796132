// Package gateway wraps every outbound call to the trading backend.
//
// The gateway attaches the current bearer token to each request, classifies
// failures (credential, stale session, connectivity, server) and returns them
// as *APIError. Classification is observational: the gateway logs, counts and
// reports each failure but never retries, logs out or redirects. Those
// decisions belong to the caller.
package gateway

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

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/tradeclient/internal/common"
	"github.com/bobmcallan/tradeclient/internal/interfaces"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 10 // requests per second

	// AuthPathPrefix marks authentication endpoints; a 401 under it is a
	// credential failure rather than a stale session.
	AuthPathPrefix = "/auth/"

	maxErrorBody = 64 << 10
)

// Observer receives every classified failure after it is logged.
type Observer func(*APIError)

// Gateway sends requests to the backend on behalf of every caller.
type Gateway struct {
	baseURL    string
	basePath   string
	tokens     interfaces.TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *common.Logger
	observer   Observer
	stats      counters
}

// Option configures the gateway
type Option func(*Gateway)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithTimeout sets the fixed per-request ceiling. The client is copied so a
// shared client passed to WithHTTPClient is left untouched.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		c := *g.httpClient
		c.Timeout = timeout
		g.httpClient = &c
	}
}

// WithRateLimit sets the rate limit. Zero or less disables limiting.
func WithRateLimit(requestsPerSecond int) Option {
	return func(g *Gateway) {
		if requestsPerSecond <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		g.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithHTTPClient replaces the underlying HTTP client. Apply before WithTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = client
	}
}

// WithObserver registers a callback for classified failures
func WithObserver(observer Observer) Option {
	return func(g *Gateway) {
		g.observer = observer
	}
}

// New creates a gateway for baseURL. tokens is read on every request, so a
// token change affects only requests issued after it.
func New(baseURL string, tokens interfaces.TokenSource, opts ...Option) *Gateway {
	baseURL = strings.TrimRight(baseURL, "/")
	g := &Gateway{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}
	if u, err := url.Parse(baseURL); err == nil {
		g.basePath = strings.TrimRight(u.Path, "/")
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// CanRetry reports whether the caller may re-issue the call that produced
// err. Only transient failures (connectivity, 5xx) qualify; a 401 is marked
// AlreadyRetried by the gateway and is never re-issued.
func CanRetry(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.AlreadyRetried {
		return false
	}
	return apiErr.Kind == KindConnectivity || apiErr.Kind == KindServer
}

// Stats returns the request and failure counters.
func (g *Gateway) Stats() Stats {
	return g.stats.snapshot()
}

// Do sends a caller-built request. On 2xx the response is returned for the
// caller to read and close; any other outcome is an *APIError.
func (g *Gateway) Do(req *http.Request) (*http.Response, error) {
	endpoint := strings.TrimPrefix(req.URL.Path, g.basePath)
	if endpoint == "" {
		endpoint = "/"
	}
	return g.do(req, endpoint)
}

// Get performs a GET and decodes the JSON response into result.
func (g *Gateway) Get(ctx context.Context, path string, result interface{}) error {
	return g.send(ctx, http.MethodGet, path, nil, "", result)
}

// PostForm performs a form-encoded POST and decodes the JSON response into result.
func (g *Gateway) PostForm(ctx context.Context, path string, form url.Values, result interface{}) error {
	return g.send(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", result)
}

// PostJSON performs a JSON POST and decodes the JSON response into result.
func (g *Gateway) PostJSON(ctx context.Context, path string, body, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return g.send(ctx, http.MethodPost, path, bytes.NewReader(data), "application/json", result)
}

func (g *Gateway) send(ctx context.Context, method, path string, body io.Reader, contentType string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := g.do(req, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return g.fail(&APIError{
			Kind:       KindDecode,
			StatusCode: resp.StatusCode,
			Method:     method,
			Endpoint:   path,
			RequestID:  req.Header.Get("X-Request-ID"),
			Err:        fmt.Errorf("failed to decode response: %w", err),
		})
	}
	return nil
}

func (g *Gateway) do(req *http.Request, endpoint string) (*http.Response, error) {
	ctx := req.Context()
	requestID := uuid.NewString()

	req.Header.Set("X-Request-ID", requestID)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	// read per request: never cache the token
	if token := g.tokens.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Del("Authorization")
	}

	g.stats.requests.Add(1)

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, g.fail(&APIError{
			Kind:      KindCanceled,
			Method:    req.Method,
			Endpoint:  endpoint,
			RequestID: requestID,
			Err:       fmt.Errorf("rate limit wait: %w", err),
		})
	}

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		kind := KindConnectivity
		if errors.Is(ctx.Err(), context.Canceled) {
			kind = KindCanceled
		}
		return nil, g.fail(&APIError{
			Kind:      kind,
			Method:    req.Method,
			Endpoint:  endpoint,
			RequestID: requestID,
			Err:       err,
		})
	}

	g.logger.Debug().
		Str("method", req.Method).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("elapsed", time.Since(start)).
		Msg("Backend request")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Method:     req.Method,
		Endpoint:   endpoint,
		Message:    string(body),
		RequestID:  requestID,
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		apiErr.Kind = classifyUnauthorized(endpoint)
		apiErr.AlreadyRetried = true
	case resp.StatusCode >= 500:
		apiErr.Kind = KindServer
	default:
		apiErr.Kind = KindClient
	}
	return nil, g.fail(apiErr)
}

func classifyUnauthorized(endpoint string) Kind {
	if strings.HasPrefix(endpoint, AuthPathPrefix) {
		return KindCredential
	}
	return KindStaleSession
}

// fail records and reports apiErr, then hands it back for returning.
func (g *Gateway) fail(apiErr *APIError) *APIError {
	g.stats.record(apiErr.Kind)

	evt := g.logger.Warn()
	if apiErr.Kind == KindCanceled {
		evt = g.logger.Debug()
	}
	evt.Str("kind", apiErr.Kind.String()).
		Str("method", apiErr.Method).
		Str("endpoint", apiErr.Endpoint).
		Int("status", apiErr.StatusCode).
		Str("request_id", apiErr.RequestID).
		Bool("already_retried", apiErr.AlreadyRetried).
		Err(apiErr.Err).
		Msg("Backend request failed")

	if g.observer != nil {
		g.observer(apiErr)
	}
	return apiErr
}
