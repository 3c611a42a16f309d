package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
	"github.com/ensigniasec/cleaner-client/internal/validate"
)

//nolint:gochecknoglobals // default values are overwritten by WithBaseURL and WithHTTPClient.
var (
	defaultTimeout = 10 * time.Second
	defaultBaseURL = "http://localhost:8000/api"
)

const healthProbeTimeout = 3 * time.Second

// ErrorReporter receives every failed request once, before the error is returned
// to the caller. The notification layer implements it to raise toasts.
type ErrorReporter interface {
	ReportError(ctx context.Context, op string, err error)
}

// Client is the HTTP client wrapper for the cleaner backend.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	token      string
	userID     string
	reporter   ErrorReporter

	// Cached health state for one-shot health probing.
	healthOnce   sync.Once
	healthStatus string
	healthErr    error
	forceOffline atomic.Bool

	// skipHealthProbe disables the initial /health check; used by tests.
	skipHealthProbe bool
}

// ClientOption mutates Client configuration.
type ClientOption func(*Client)

// WithBaseURL configures the API base URL, e.g. http://localhost:8000/api.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		if base == "" {
			return
		}
		if u, err := url.Parse(base); err == nil {
			c.baseURL = u
		}
	}
}

// WithToken attaches "Authorization: Bearer <token>" to every request.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserID sets the user id sent when a request body leaves it empty.
func WithUserID(id string) ClientOption {
	return func(c *Client) {
		if id != "" {
			c.userID = id
		}
	}
}

// WithErrorReporter routes failed requests to r.
func WithErrorReporter(r ErrorReporter) ClientOption {
	return func(c *Client) {
		c.reporter = r
	}
}

// withSkipHealthProbe disables the initial /health probe on construction.
// Intended for internal tests that don't expose a /health endpoint.
func withSkipHealthProbe() ClientOption {
	return func(c *Client) {
		c.skipHealthProbe = true
	}
}

// NewClient constructs a new Client with defaults and probes /health once.
// When the probe fails the client is returned together with ErrOffline and
// every later request short-circuits with ErrOffline.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent(),
		userID:     apigen.DefaultUserID,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == nil {
		u, err := url.Parse(defaultBaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid default baseURL: %w", err)
		}
		c.baseURL = u
	}
	if c.skipHealthProbe {
		c.healthStatus = apigen.HealthStatusHealthy
		return c, nil
	}
	hctx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
	defer cancel()
	if status, err := c.checkHealth(hctx); err != nil || status != apigen.HealthStatusHealthy {
		c.forceOffline.Store(true)
		return c, ErrOffline
	}
	return c, nil
}

// BaseURL returns a copy of the configured base URL.
func (c *Client) BaseURL() url.URL {
	return *c.baseURL
}

// UserID returns the user id used for requests that do not name one.
func (c *Client) UserID() string {
	return c.userID
}

// checkHealth performs a one-time health probe to /health and caches the status.
// Subsequent calls return the cached status immediately.
func (c *Client) checkHealth(ctx context.Context) (string, error) {
	c.healthOnce.Do(func() {
		if c.skipHealthProbe {
			c.healthStatus = apigen.HealthStatusHealthy
			return
		}
		hctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
		defer cancel()

		// Raw request: newRequest would short-circuit once offline.
		req, err := http.NewRequestWithContext(hctx, http.MethodGet, c.buildURL(apigen.PathHealth, nil), nil)
		if err != nil {
			c.healthStatus = apigen.HealthStatusUnhealthy
			c.healthErr = err
			return
		}
		c.setCommonHeaders(req)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.healthStatus = apigen.HealthStatusUnhealthy
			c.healthErr = &NetworkError{Op: "health", Err: err}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			// Any 2xx counts; the body only refines the status when present.
			var hr apigen.HealthResponse
			if err := json.NewDecoder(resp.Body).Decode(&hr); err == nil && hr.Status != "" {
				c.healthStatus = hr.Status
			} else {
				c.healthStatus = apigen.HealthStatusHealthy
			}
			return
		}
		c.healthStatus = apigen.HealthStatusUnhealthy
		c.healthErr = fmt.Errorf("health check: unexpected status %d", resp.StatusCode)
	})
	return c.healthStatus, c.healthErr
}

// --- Helpers ---

func defaultUserAgent() string {
	return fmt.Sprintf("cleaner-client/%s (%s; %s)", BuildVersion, runtime.GOOS, runtime.GOARCH)
}

// joinURLPath joins two URL paths with exactly one slash boundary.
func joinURLPath(basePath, addPath string) string {
	switch {
	case basePath == "" || basePath == "/":
		return addPath
	case addPath == "":
		return basePath
	case hasTrailingSlash(basePath) && hasLeadingSlash(addPath):
		return basePath + addPath[1:]
	case !hasTrailingSlash(basePath) && !hasLeadingSlash(addPath):
		return basePath + "/" + addPath
	default:
		return basePath + addPath
	}
}

func hasTrailingSlash(p string) bool { return len(p) > 0 && p[len(p)-1] == '/' }
func hasLeadingSlash(p string) bool  { return len(p) > 0 && p[0] == '/' }

func (c *Client) buildURL(path string, q url.Values) string {
	u := *c.baseURL
	u.Path = joinURLPath(u.Path, path)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) setCommonHeaders(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) newRequest(ctx context.Context, method, fullURL string, body io.Reader) (*http.Request, error) {
	if c.forceOffline.Load() {
		return nil, ErrOffline
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	c.setCommonHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do performs a JSON round trip and reports failures to the ErrorReporter.
// in may be nil for bodiless requests; out must be a pointer or nil.
func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, in, out any) error {
	return c.report(ctx, op, c.roundTrip(ctx, op, method, path, q, in, out))
}

// requestFailed wraps a failure to build the request URL and reports it.
func (c *Client) requestFailed(ctx context.Context, op string, err error) error {
	return c.report(ctx, op, &RequestError{Op: op, Err: err})
}

func (c *Client) report(ctx context.Context, op string, err error) error {
	if err != nil && c.reporter != nil && !errors.Is(err, context.Canceled) {
		c.reporter.ReportError(ctx, op, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, q url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return &RequestError{Op: op, Err: err}
		}
		body = buf
	}
	req, err := c.newRequest(ctx, method, c.buildURL(path, q), body)
	if err != nil {
		var re *RequestError
		if errors.As(err, &re) {
			re.Op = op
		}
		return err
	}

	logrus.Debugf("api: %s %s", method, req.URL.Path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return handleHTTPError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := decodeJSON(resp.Body, out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	if err := validate.Struct(out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}

func decodeJSON[T any](r io.Reader, out T) error {
	dec := json.NewDecoder(r)
	return dec.Decode(out)
}
