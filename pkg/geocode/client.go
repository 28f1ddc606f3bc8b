// Package geocode provides free-text address suggestions via the Mapbox
// forward geocoding API.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/siteopt/internal/model"
)

// Client turns free text into ranked place suggestions.
type Client interface {
	// Suggest returns up to the configured limit of suggestions for query.
	// An empty query returns no suggestions and issues no request.
	Suggest(ctx context.Context, query string) ([]Suggestion, error)
}

// Suggestion is a single place match reduced to what the address field needs.
type Suggestion struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Coordinates model.LatLng `json:"coordinates"`
}

// Option configures the geocoder.
type Option func(*mapbox)

// WithBaseURL overrides the Mapbox API host.
func WithBaseURL(u string) Option {
	return func(m *mapbox) {
		m.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(m *mapbox) {
		m.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second rate limit for API calls.
func WithRateLimit(rps float64) Option {
	return func(m *mapbox) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		m.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLimit sets the maximum number of suggestions requested.
func WithLimit(n int) Option {
	return func(m *mapbox) {
		if n > 0 {
			m.limit = n
		}
	}
}

// WithCountry restricts results to ISO 3166 alpha-2 country codes (e.g. "ph").
func WithCountry(codes string) Option {
	return func(m *mapbox) {
		m.country = codes
	}
}

// WithCache memoizes suggestions per normalized query.
func WithCache(c *Cache) Option {
	return func(m *mapbox) {
		m.cache = c
	}
}

type mapbox struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	limit       int
	country     string
	limiter     *rate.Limiter
	cache       *Cache
}

// NewClient creates a Mapbox-backed Client.
func NewClient(accessToken string, opts ...Option) Client {
	m := &mapbox{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     defaultBaseURL,
		accessToken: accessToken,
		limit:       defaultLimit,
		limiter:     rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
