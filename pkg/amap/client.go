// Package amap provides a client for the Amap (Gaode) WebService bus line API.
package amap

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/transitlab/linemap/internal/resilience"
)

const defaultBaseURL = "https://restapi.amap.com/v3"

// Client looks up bus lines by name or id.
type Client interface {
	// SearchByName returns all line candidates matching a keyword in a city.
	SearchByName(ctx context.Context, city, keyword string) ([]Line, error)

	// LineByID returns the full detail record for a single line id.
	LineByID(ctx context.Context, city, id string) (*Line, error)
}

// Line is a raw bus line record as returned by the provider. Coordinates are
// GCJ-02 encoded strings; callers convert them before use.
type Line struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Company   string `json:"company"`
	StartStop string `json:"start_stop"`
	EndStop   string `json:"end_stop"`
	Polyline  string `json:"polyline"`
	Stops     []Stop `json:"busstops"`
}

// Stop is a raw bus stop with its GCJ-02 "lon,lat" location string.
type Stop struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = u
	}
}

// WithRateLimit sets the requests-per-second limit for provider calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry overrides the retry policy for provider calls.
func WithRetry(cfg resilience.Config) Option {
	return func(c *client) {
		c.retry = cfg
	}
}

type client struct {
	httpClient *http.Client
	baseURL    string
	key        string
	limiter    *rate.Limiter
	retry      resilience.Config
}

// NewClient creates a Client using the given WebService key.
func NewClient(key string, opts ...Option) Client {
	c := &client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    defaultBaseURL,
		key:        key,
		limiter:    rate.NewLimiter(5, 5),
		retry:      resilience.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
