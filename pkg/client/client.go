// Package client provides the HTTP fetch primitive for catalog APIs: GET
// requests with query parameters, circuit breaking, optional shared rate
// limiting, error classification, metrics and tracing.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/product-catalog-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Prometheus metrics for catalog client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_requests_total",
		Help: "Total catalog requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Catalog request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_errors_total",
		Help: "Total catalog transport errors by class",
	}, []string{"class"})

	requestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_requests_in_flight",
		Help: "Catalog requests currently awaiting a response",
	})
)

const (
	tracerName   = "github.com/Sternrassler/product-catalog-client/pkg/client"
	maxBodyBytes = 10 << 20
)

// Params are query parameters; values are strings or numbers.
type Params map[string]any

// Values encodes the parameters as url.Values.
func (p Params) Values() url.Values {
	values := make(url.Values, len(p))
	for key, value := range p {
		values.Set(key, formatParam(value))
	}
	return values
}

func formatParam(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Result is the outcome of one Fetch. Err is nil on success, in which case
// Data holds the raw JSON body (nil when the body was empty).
type Result struct {
	Data       json.RawMessage
	StatusCode int
	Err        error
}

// HasData reports whether the request succeeded with a non-null payload.
func (r Result) HasData() bool {
	if r.Err != nil || len(r.Data) == 0 {
		return false
	}
	return !bytes.Equal(bytes.TrimSpace(r.Data), []byte("null"))
}

// Client is the catalog HTTP fetch primitive.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	breaker     *gobreaker.CircuitBreaker
	config      Config
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// Config holds the client configuration.
type Config struct {
	// Redis client for shared rate limit state (optional, nil disables the quota gate)
	Redis *redis.Client

	// User-Agent header sent with every request
	UserAgent string

	// Timeout bounds a single request including reading the body
	Timeout time.Duration

	// Circuit breaker
	BreakerThreshold uint32        // Consecutive failures that open the breaker
	BreakerCooldown  time.Duration // How long the breaker stays open
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent:        userAgent,
		Timeout:          10 * time.Second,
		BreakerThreshold: 5,
		BreakerCooldown:  30 * time.Second,
	}
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("%w: user-agent is required", ErrInvalidConfig)
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be > 0 (got %s)", ErrInvalidConfig, cfg.Timeout)
	}

	if cfg.BreakerThreshold < 1 {
		return nil, fmt.Errorf("%w: breaker_threshold must be >= 1 (got %d)", ErrInvalidConfig, cfg.BreakerThreshold)
	}

	if cfg.BreakerCooldown <= 0 {
		return nil, fmt.Errorf("%w: breaker_cooldown must be > 0 (got %s)", ErrInvalidConfig, cfg.BreakerCooldown)
	}

	logger := log.With().Str("component", "catalog-client").Logger()

	var rateLimiter *ratelimit.Tracker
	if cfg.Redis != nil {
		rateLimiter = ratelimit.NewTracker(cfg.Redis, logger)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "catalog-api",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		IsSuccessful: func(err error) bool {
			var te *TransportError
			if errors.As(err, &te) {
				return !countsAsFailure(te.ErrorClass)
			}
			return err == nil
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rateLimiter,
		breaker:     breaker,
		config:      cfg,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
	}, nil
}

// Fetch issues a GET request for rawURL with params merged into its query
// string. It never panics and never returns a nil-error Result for a failed
// request: network failures, non-2xx responses and non-JSON bodies all come
// back as a *TransportError in Result.Err.
func (c *Client) Fetch(ctx context.Context, rawURL string, params Params) Result {
	ctx, span := c.tracer.Start(ctx, "catalog.fetch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	result := c.fetch(ctx, rawURL, params)

	span.SetAttributes(attribute.Int("http.status_code", result.StatusCode))
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
	}

	return result
}

func (c *Client) fetch(ctx context.Context, rawURL string, params Params) Result {
	req, err := c.newRequest(ctx, rawURL, params)
	if err != nil {
		return c.failure(rawURL, &TransportError{
			ErrorClass: ErrorClassClient,
			Message:    "build request",
			Err:        err,
		})
	}

	endpoint := req.URL.Path
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("http.url", req.URL.String()))

	requestsInFlight.Inc()
	startTime := time.Now()
	defer func() {
		requestsInFlight.Dec()
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check shared quota
	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return c.failure(endpoint, &TransportError{
				ErrorClass: ErrorClassCanceled,
				Message:    "context done while throttled",
				Err:        ctx.Err(),
			})
		case err != nil:
			// Quota state is advisory; an unreachable Redis must not take the catalog down
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Rate limit check failed, sending request")
		case !allowed:
			requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
			return c.failure(endpoint, &TransportError{
				ErrorClass: ErrorClassRateLimit,
				Message:    "quota exhausted",
				Err:        ErrRequestBlocked,
			})
		}
	}

	// Step 2: Execute through the circuit breaker
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("query", req.URL.RawQuery).
		Msg("Executing catalog request")

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			requestsTotal.WithLabelValues(endpoint, "circuit_open").Inc()
			err = &TransportError{
				ErrorClass: ErrorClassCircuitOpen,
				Message:    "circuit breaker open",
				Err:        err,
			}
		}
		return c.failure(endpoint, err)
	}

	return out.(Result)
}

// do performs the HTTP exchange and validates the payload.
func (c *Client) do(req *http.Request) (Result, error) {
	endpoint := req.URL.Path

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if canceledByCaller(req.Context(), err) {
			requestsTotal.WithLabelValues(endpoint, "canceled").Inc()
			return Result{}, &TransportError{
				ErrorClass: ErrorClassCanceled,
				Message:    "request canceled",
				Err:        err,
			}
		}
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return Result{}, &TransportError{
			ErrorClass: c.classifyError(nil, err),
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	if c.rateLimiter != nil {
		if err := c.rateLimiter.UpdateFromHeaders(req.Context(), resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if errClass := c.classifyError(resp, nil); errClass != "" {
		return Result{}, &TransportError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		errClass := ErrorClassNetwork
		if canceledByCaller(req.Context(), err) {
			errClass = ErrorClassCanceled
		}
		return Result{}, &TransportError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    "read response body",
			Err:        err,
		}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return Result{StatusCode: resp.StatusCode}, nil
	}

	if !json.Valid(body) {
		return Result{}, &TransportError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "response body is not valid JSON",
		}
	}

	return Result{Data: json.RawMessage(body), StatusCode: resp.StatusCode}, nil
}

// failure records and logs a transport error and wraps it in a Result.
func (c *Client) failure(endpoint string, err error) Result {
	result := Result{Err: err}

	errClass := ErrorClassNetwork
	var te *TransportError
	if errors.As(err, &te) {
		errClass = te.ErrorClass
		result.StatusCode = te.StatusCode
	} else {
		result.Err = &TransportError{ErrorClass: errClass, Message: "request failed", Err: err}
	}

	errorsTotal.WithLabelValues(string(errClass)).Inc()

	c.logger.Warn().
		Err(result.Err).
		Str("endpoint", endpoint).
		Int("status", result.StatusCode).
		Str("error_class", string(errClass)).
		Msg("Catalog request error")

	return result
}

// newRequest builds the GET request with merged query parameters.
func (c *Client) newRequest(ctx context.Context, rawURL string, params Params) (*http.Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse url: %q is not an absolute URL", rawURL)
	}

	query := u.Query()
	for key, values := range params.Values() {
		query[key] = values
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// classifyError categorizes an error for observability and breaker accounting.
// It returns "" for 2xx responses.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return ""
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// Healthy reports whether the circuit breaker currently lets requests through.
func (c *Client) Healthy() bool {
	return c.breaker.State() != gobreaker.StateOpen
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
