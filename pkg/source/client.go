// Package source provides the HTTP session used to fetch range pages from
// the upstream paginated endpoint, with optional caching and retry.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/range-scanner/pkg/cache"
	"github.com/Sternrassler/range-scanner/pkg/logging"
	"github.com/Sternrassler/range-scanner/pkg/scan"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for upstream requests.
var (
	sourceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "source_requests_total",
		Help: "Total upstream range requests by status",
	}, []string{"status"})

	sourceRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "source_request_duration_seconds",
		Help:    "Upstream range request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	})

	sourceErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "source_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the full endpoint address, e.g. "http://host:5000/level2".
	// start and end are added as query parameters.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// MaxConnsPerHost sizes the idle connection pool. Match it to the
	// cohort size so every concurrent fetch can reuse a connection.
	MaxConnsPerHost int

	// Timeout is an outer bound per HTTP exchange (0 = none).
	Timeout time.Duration

	// Retry. The default is a single attempt.
	Retry RetryConfig

	// Cache is optional; nil disables caching.
	Cache *cache.Manager
}

// DefaultConfig returns a configuration for baseURL with no retry and no cache.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:         baseURL,
		UserAgent:       "range-scanner/0.1.0",
		MaxConnsPerHost: 10,
		Timeout:         30 * time.Second,
		Retry:           DefaultRetryConfig(),
	}
}

// Client is the shared upstream session. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	endpoint   string
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

var _ scan.PageSource = (*Client)(nil)

// New creates the session. An invalid base URL is the one unrecoverable
// failure: no scan can start without a session.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url has no host")
	}

	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = 10
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.MaxConnsPerHost

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		baseURL:  u,
		endpoint: endpointOf(u),
		cache:    cfg.Cache,
		config:   cfg,
		logger:   logging.NewLogger("source"),
	}, nil
}

// FetchRange performs GET <base>?start=S&end=E and returns the raw body of
// a 200 response. Any other status, transport error or body read error is
// returned as a *SourceError.
func (c *Client) FetchRange(ctx context.Context, r scan.Range) ([]byte, error) {
	key := cache.Key{Endpoint: c.endpoint, Start: r.Start, End: r.End}

	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug().Str("range", r.String()).Msg("Cache hit")
			return entry.Data, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("range", r.String()).Msg("Cache get error")
		}
	}

	var body []byte
	var header http.Header
	err := retryWithBackoff(ctx, c.config.Retry, func() error {
		var attemptErr error
		body, header, attemptErr = c.do(ctx, r)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil && cacheable(body) {
		if err := c.cache.Set(ctx, key, cache.NewEntry(body, header, c.cache.DefaultTTL())); err != nil {
			c.logger.Warn().Err(err).Str("range", r.String()).Msg("Failed to cache page")
		}
	}

	return body, nil
}

// do runs one HTTP exchange.
func (c *Client) do(ctx context.Context, r scan.Range) ([]byte, http.Header, error) {
	startTime := time.Now()
	defer func() {
		sourceRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rangeURL(r), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("range", r.String()).
		Msg("Executing range request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		sourceErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		sourceRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, nil, &SourceError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	sourceRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		class := classifyStatus(resp.StatusCode)
		sourceErrorsTotal.WithLabelValues(string(class)).Inc()
		// Drain so the connection goes back to the pool.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil, &SourceError{
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		sourceErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, nil, &SourceError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read body",
			Err:        err,
		}
	}

	return body, resp.Header, nil
}

// endpointOf identifies the upstream for cache keys: host, path and any
// fixed query of the base URL.
func endpointOf(u *url.URL) string {
	endpoint := u.Host + u.Path
	if u.RawQuery != "" {
		endpoint += "?" + u.RawQuery
	}
	return endpoint
}

// cacheable reports whether body decodes as a page. Malformed pages are
// not stored so a later run fetches them again.
func cacheable(body []byte) bool {
	var page scan.Page
	return json.Unmarshal(body, &page) == nil
}

// rangeURL adds start/end to the base URL, keeping any existing query.
func (c *Client) rangeURL(r scan.Range) string {
	u := *c.baseURL
	q := u.Query()
	q.Set("start", strconv.FormatInt(r.Start, 10))
	q.Set("end", strconv.FormatInt(r.End, 10))
	u.RawQuery = q.Encode()
	return u.String()
}

// Endpoint returns the host, path and base query the client fetches from.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Close releases pooled connections. The client must not be used afterwards.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient replaces the underlying HTTP client, e.g. to install a
// custom transport. Call before the first FetchRange.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
