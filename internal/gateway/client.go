// Package gateway is the typed client for the EventHub REST backend.
//
// Every call goes through Client.do, which attaches the bearer token when the
// route needs it, encodes the body as JSON and turns any non-2xx answer into
// an apperr NetworkError carrying the backend's message. No retries happen
// here; retry policy belongs to the caller.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/metrics"
)

// maxResponseBytes bounds a single response; event lists may carry inline
// data-URI banners.
const maxResponseBytes = 32 << 20

// TokenSource yields the current bearer token, or "" when signed out.
type TokenSource interface {
	Token(ctx context.Context) string
}

// Client talks JSON over HTTP to the backend.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     *zap.Logger
	metrics *metrics.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records request counts and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New builds a Client rooted at baseURL (for example http://host/api).
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request describes one backend call.
type request struct {
	op     string
	method string
	path   string
	body   any
	auth   bool
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	start := time.Now()
	status, err := c.roundTrip(ctx, r, out)
	if c.metrics != nil {
		c.metrics.GatewayRequests.WithLabelValues(r.op, strconv.Itoa(status)).Inc()
		c.metrics.GatewayDuration.WithLabelValues(r.op).Observe(time.Since(start).Seconds())
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, r request, out any) (int, error) {
	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return 0, apperr.Wrap(apperr.KindNetwork, err, "failed to encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindNetwork, err, "failed to create request")
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	if r.auth {
		if tok := c.tokens.Token(ctx); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		} else {
			c.log.Warn("authenticated request without a token",
				zap.String("operation", r.op), zap.String("request_id", reqID))
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("backend request failed",
			zap.String("operation", r.op), zap.String("request_id", reqID), zap.Error(err))
		return 0, apperr.Wrap(apperr.KindNetwork, err, fmt.Sprintf("%s %s failed: %v", r.method, r.path, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, &apperr.Error{
			Kind: apperr.KindNetwork, Status: resp.StatusCode,
			Message: "failed to read response", Err: err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := &apperr.Error{
			Kind:    apperr.KindNetwork,
			Status:  resp.StatusCode,
			Message: errorMessage(resp.StatusCode, data),
		}
		c.log.Debug("backend rejected request",
			zap.String("operation", r.op),
			zap.String("request_id", reqID),
			zap.Int("status", resp.StatusCode),
			zap.String("message", e.Message))
		return resp.StatusCode, e
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, &apperr.Error{
				Kind: apperr.KindNetwork, Status: resp.StatusCode,
				Message: "failed to decode response", Err: err,
			}
		}
	}
	return resp.StatusCode, nil
}

// errorMessage extracts {"message": ...} from an error body. A body that is
// not JSON yields "HTTP error <status>: <text>"; JSON without a message
// yields a generic status message.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Sprintf("HTTP error %d: %s", status, http.StatusText(status))
	}
	if payload.Message == "" {
		return fmt.Sprintf("An unexpected error occurred (Status: %d)", status)
	}
	return payload.Message
}

// IsUnauthorized reports whether err is a backend 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, apperr.ErrNetwork) && apperr.StatusOf(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNetwork) && apperr.StatusOf(err) == http.StatusNotFound
}
