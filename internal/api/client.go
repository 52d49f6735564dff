package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
)

// maxBodySize is the maximum response body read from the backend (4 MB).
const maxBodySize = 4 << 20

// MetricsRecorder is an optional interface for recording per-call metrics.
type MetricsRecorder interface {
	ObserveRequest(op, method string, statusCode int, seconds float64)
	IncRequestError(op, errorType string)
}

// BreakerSettings configures the circuit breaker that guards the backend.
type BreakerSettings struct {
	MaxFailures uint32        // consecutive failures before the breaker opens
	OpenTimeout time.Duration // how long the breaker stays open
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// Tokens supplies the bearer credential for authenticated calls.
	Tokens  oauth2.TokenSource
	Breaker BreakerSettings
	Logger  *slog.Logger
	// Transport is the base round tripper. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// Client is a typed gateway to the TaskFlow REST backend.
type Client struct {
	baseURL string
	public  *http.Client
	authed  *http.Client
	logger  *slog.Logger
	metrics MetricsRecorder
}

// New creates a new Client.
func New(opts Options) *Client {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Breaker.MaxFailures == 0 {
		opts.Breaker.MaxFailures = 5
	}
	if opts.Breaker.OpenTimeout == 0 {
		opts.Breaker.OpenTimeout = 30 * time.Second
	}

	guarded := &breakerTransport{
		base: base,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "taskflow-api",
			MaxRequests: 1,
			Timeout:     opts.Breaker.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= opts.Breaker.MaxFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		public:  &http.Client{Timeout: opts.Timeout, Transport: guarded},
		logger:  logger,
	}
	if opts.Tokens != nil {
		c.authed = &http.Client{
			Timeout:   opts.Timeout,
			Transport: &oauth2.Transport{Source: opts.Tokens, Base: guarded},
		}
	}
	return c
}

// SetMetrics sets the optional metrics recorder.
func (c *Client) SetMetrics(m MetricsRecorder) {
	c.metrics = m
}

// errServerStatus marks a 5xx response as a breaker failure. The response
// itself is still handed back to the caller.
var errServerStatus = errors.New("server error status")

// breakerTransport counts transport errors and 5xx responses against a
// circuit breaker. 4xx responses are the caller's problem and do not trip it.
type breakerTransport struct {
	base http.RoundTripper
	cb   *gobreaker.CircuitBreaker
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out, err := t.cb.Execute(func() (interface{}, error) {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, errServerStatus
		}
		return resp, nil
	})
	if errors.Is(err, errServerStatus) {
		return out.(*http.Response), nil
	}
	if err != nil {
		return nil, err
	}
	return out.(*http.Response), nil
}

// call describes one backend capability.
type call struct {
	name    string // metric label
	failure string // human-readable failure message
	method  string
	path    string
	authed  bool
}

// do performs a call, decoding a 2xx JSON body into out when out is non-nil.
// Any other status becomes a *StatusError.
func (c *Client) do(ctx context.Context, cl call, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", cl.failure, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", cl.failure, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.public
	if cl.authed {
		if c.authed == nil {
			return fmt.Errorf("%s: %w", cl.failure, ErrNotAuthenticated)
		}
		client = c.authed
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		errType := classifyError(err)
		if c.metrics != nil {
			c.metrics.IncRequestError(cl.name, errType)
		}
		c.logger.Warn("api request failed",
			"op", cl.name,
			"method", cl.method,
			"path", cl.path,
			"error_type", errType,
			"request_id", requestID,
			"error", err,
		)
		return fmt.Errorf("%s: %w", cl.failure, err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.ObserveRequest(cl.name, cl.method, resp.StatusCode, latency.Seconds())
	}
	c.logger.Debug("api request",
		"op", cl.name,
		"method", cl.method,
		"path", cl.path,
		"status", resp.StatusCode,
		"duration_ms", latency.Milliseconds(),
		"request_id", requestID,
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", cl.failure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := newStatusError(cl.failure, resp.StatusCode, data)
		c.logger.Warn("api request rejected",
			"op", cl.name,
			"status", resp.StatusCode,
			"detail", serr.Detail,
			"request_id", requestID,
		)
		return serr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", cl.failure, err)
	}
	return nil
}
