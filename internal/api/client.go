package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pingguard/internal/session"
	"pingguard/pkg/errors"
	"pingguard/pkg/metrics"
)

// ErrSessionExpired is returned when the server rejects the session. The
// gateway has already cleared the session store and run the expiry hook, so
// callers treat it as "no result" rather than a presentable failure.
var ErrSessionExpired = errors.ErrSessionExpired

// Request describes one outgoing call. Body is marshaled as JSON; when Raw is
// set it is sent as-is and no JSON content type is attached.
type Request struct {
	Method string
	Path   string
	Body   interface{}
	Raw    io.Reader
}

// Client is the single chokepoint for all calls to the remote service: it
// attaches the bearer token, normalizes responses and errors, and tears the
// session down on an unauthorized response. It issues exactly one attempt per
// call; retrying is a caller concern.
type Client struct {
	baseURL   string
	http      *http.Client
	session   *session.Store
	log       *zap.Logger
	metrics   *metrics.Metrics
	onExpired func()
}

type Option func(*Client)

// WithExpiryHook sets the callback run after an unauthorized response has
// cleared the session. This is where the front end sends the user back to the
// login entry point.
func WithExpiryHook(fn func()) Option {
	return func(c *Client) { c.onExpired = fn }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(baseURL string, store *session.Store, timeout time.Duration, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		session: store,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// errorBody is the server's error payload shape.
type errorBody struct {
	Message string `json:"message"`
}

// Do issues the request and decodes a JSON response into out. A 204 or empty
// body resolves to an explicit empty result: nil error, out untouched. An
// unauthorized response clears the session and returns ErrSessionExpired.
func (c *Client) Do(ctx context.Context, req Request, out interface{}) error {
	var body io.Reader
	if req.Raw != nil {
		body = req.Raw
	} else if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	if req.Raw == nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(req.Method, metrics.OutcomeError)
		return errors.Wrapf(err, "request to %s failed", req.Path)
	}
	defer resp.Body.Close()

	c.log.Debug("api call",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode == http.StatusUnauthorized {
		c.observe(req.Method, metrics.OutcomeExpired)
		return c.expire()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(req.Method, metrics.OutcomeError)
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		return errors.API(resp.StatusCode, eb.Message)
	}

	c.observe(req.Method, metrics.OutcomeOK)

	if resp.StatusCode == http.StatusNoContent || out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "failed to decode response body")
	}
	return nil
}

// expire tears the session down exactly once per trigger: clear the store,
// notify via the hook, and hand callers the sentinel. Idempotent across
// repeated unauthorized responses.
func (c *Client) expire() error {
	if err := c.session.Clear(); err != nil {
		c.log.Warn("failed to clear session", zap.Error(err))
	}
	if c.onExpired != nil {
		c.onExpired()
	}
	return ErrSessionExpired
}

func (c *Client) observe(method, outcome string) {
	if c.metrics != nil {
		c.metrics.ObserveRequest(method, outcome)
	}
}

// Get is shorthand for a GET with a decoded JSON result.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path}, out)
}

// Post is shorthand for a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put is shorthand for a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete is shorthand for a DELETE discarding any response body.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, nil)
}
