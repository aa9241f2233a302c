// Package resource is the client for the e-commerce admin REST API. Every
// call is scoped by a store identifier passed explicitly by the caller.
//
// Calls are single attempts: there is no retry or backoff. Failures are
// classified as *TransportError (no response) or *APIError (non-2xx or an
// unreadable body); both carry enough for UserMessage to pick the text
// shown to the operator.
package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/GoCodeAlone/storeadmin/metrics"
)

// AssetKind is the metrics label used for asset deletion calls.
const AssetKind = "cloudinary"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

// Options configures a Client.
type Options struct {
	// BaseURL is the API origin, e.g. "https://admin.example.com".
	BaseURL string
	// Token is sent as a bearer token when set.
	Token string
	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing calls. Zero disables throttling.
	RequestsPerSecond float64
	// Burst is the limiter burst; defaults to 1 when throttling.
	Burst int
	// UserAgent overrides the default "storeadmin" user agent.
	UserAgent string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *metrics.Collector
}

// Client talks to the admin API.
type Client struct {
	base      *url.URL
	token     string
	timeout   time.Duration
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
	metrics   *metrics.Collector
	newID     func() string
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("resource: invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("resource: base url %q must be http or https", opts.BaseURL)
	}

	c := &Client{
		base:      base,
		token:     opts.Token,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		http:      opts.HTTPClient,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		newID:     uuid.NewString,
	}
	if c.userAgent == "" {
		c.userAgent = "storeadmin"
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c, nil
}

// List fetches every record of kind for the store.
func (c *Client) List(ctx context.Context, kind, scopeID string) ([]Record, error) {
	return ListAs[Record](ctx, c, kind, scopeID)
}

// ListAs fetches every record of kind for the store and decodes each data
// element into R. Elements that do not decode become zero values.
func ListAs[R any](ctx context.Context, c *Client, kind, scopeID string) ([]R, error) {
	var env listEnvelope
	if err := c.do(ctx, "list", kind, http.MethodGet, c.collectionPath(kind, scopeID), nil, &env); err != nil {
		return nil, err
	}
	out, bad := decodeEach[R](env.Data)
	if bad > 0 {
		c.logger.Warn("Skipped malformed records", "kind", kind, "store", scopeID, "count", bad)
	}
	return out, nil
}

// Delete removes one record and returns the server's message.
func (c *Client) Delete(ctx context.Context, kind, scopeID, recordID string) (string, error) {
	var body messageBody
	req := map[string]string{"id": recordID}
	if err := c.do(ctx, "delete", kind, http.MethodDelete, c.collectionPath(kind, scopeID), req, &body); err != nil {
		return "", err
	}
	return body.Message, nil
}

// DeleteAsset removes an externally stored asset by its public id. Any 2xx
// response is success; the body is ignored.
func (c *Client) DeleteAsset(ctx context.Context, publicID string) error {
	req := map[string]string{"public_id": publicID}
	return c.do(ctx, "delete", AssetKind, http.MethodDelete, "/api/cloudinary", req, nil)
}

func (c *Client) collectionPath(kind, scopeID string) string {
	return "/api/" + url.PathEscape(kind) + "/" + url.PathEscape(scopeID)
}

// do performs one request. out may be nil to discard the body.
func (c *Client) do(ctx context.Context, op, kind, method, path string, in, out any) (err error) {
	name := opName(op, kind)
	start := time.Now()
	defer func() {
		c.metrics.RecordAPIRequest(kind, op, outcome(err), time.Since(start))
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &TransportError{Op: name, Err: err}
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("resource: %s: failed to marshal body: %w", name, err)
		}
		body = bytes.NewReader(data)
	}

	target := *c.base
	target.RawPath = c.base.EscapedPath() + path
	if target.Path, err = url.PathUnescape(target.RawPath); err != nil {
		return fmt.Errorf("resource: %s: invalid path: %w", name, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return fmt.Errorf("resource: %s: failed to create request: %w", name, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	reqID := c.newID()
	req.Header.Set("X-Request-ID", reqID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: name, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Op: name, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("Admin API call", "op", name, "status", resp.StatusCode, "request_id", reqID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Op: name, StatusCode: resp.StatusCode}
		var msg messageBody
		if json.Unmarshal(data, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Op: name, StatusCode: resp.StatusCode, Err: fmt.Errorf("malformed response: %w", err)}
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrTransport):
		return metrics.OutcomeTransport
	case errors.Is(err, ErrAPI):
		return metrics.OutcomeAPI
	default:
		return metrics.OutcomeFailure
	}
}
