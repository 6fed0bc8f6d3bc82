package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultUserAgent identifies this client per OSM usage policy.
	DefaultUserAgent = "MegalithAtlas/1.0 (https://github.com/megalith-foundation/server)"
	// DefaultTimeout for HTTP requests; Overpass queries can be slow.
	DefaultTimeout = 60 * time.Second
	// DefaultRateLimit is 1 request per second (public instance etiquette).
	DefaultRateLimit = rate.Limit(1.0)
	// queryTimeoutSeconds is the server-side Overpass timeout setting.
	queryTimeoutSeconds = 90
)

// DefaultEndpoints lists interchangeable public Overpass API instances,
// tried in order. The same query is retried against the next endpoint on any
// transport-level failure; the client errors only once the list is
// exhausted.
var DefaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
}

// Site is the intermediate record parsed from one Overpass element. It is
// discarded after normalization.
type Site struct {
	OSMID          string
	Name           string
	Description    string
	Latitude       float64
	Longitude      float64
	RawType        string
	CountryCode    string
	Inception      string
	WikidataID     string
	WikipediaURL   string
	ImageURL       string
	HeritageStatus string
}

// Client queries Overpass API instances with ordered endpoint fallback.
type Client struct {
	httpClient *http.Client
	endpoints  []string
	userAgent  string
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit sets a custom rate limit (requests per second).
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates an Overpass client. endpoints are tried in order; when
// empty, DefaultEndpoints is used.
func NewClient(endpoints []string, opts ...Option) *Client {
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints
	}
	client := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		endpoints: endpoints,
		userAgent: DefaultUserAgent,
		limiter:   rate.NewLimiter(DefaultRateLimit, 1),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BoundingBox is a south,west,north,east query scope.
type BoundingBox struct {
	South float64
	West  float64
	North float64
	East  float64
}

// FetchCandidates runs the global megalithic/historic query.
func (c *Client) FetchCandidates(ctx context.Context) ([]Site, error) {
	return c.run(ctx, buildQuery(""))
}

// FetchBoundingBox scopes the query to a bounding box.
func (c *Client) FetchBoundingBox(ctx context.Context, bbox BoundingBox) ([]Site, error) {
	scope := fmt.Sprintf("(%f,%f,%f,%f)", bbox.South, bbox.West, bbox.North, bbox.East)
	return c.run(ctx, buildQuery(scope))
}

// FetchAround scopes the query to a radius (meters) around a point.
func (c *Client) FetchAround(ctx context.Context, lat, lon, radiusMeters float64) ([]Site, error) {
	scope := fmt.Sprintf("(around:%f,%f,%f)", radiusMeters, lat, lon)
	return c.run(ctx, buildQuery(scope))
}

// FetchCountry scopes the query to an ISO 3166-1 alpha-2 country area.
func (c *Client) FetchCountry(ctx context.Context, isoCode string) ([]Site, error) {
	code := strings.ToUpper(strings.TrimSpace(isoCode))
	if len(code) != 2 {
		return nil, fmt.Errorf("invalid country code %q", isoCode)
	}
	return c.run(ctx, buildCountryQuery(code))
}

// run executes a query against each configured endpoint in order, returning
// the first successful parse. Transport failures, 5xx responses, and
// malformed bodies all advance to the next endpoint.
func (c *Client) run(ctx context.Context, query string) ([]Site, error) {
	var lastErr error

	for _, endpoint := range c.endpoints {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		elements, err := c.execute(ctx, endpoint, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("endpoint %s: %w", endpoint, err)
			continue
		}
		return parseElements(elements), nil
	}

	return nil, fmt.Errorf("all overpass endpoints failed: %w", lastErr)
}

// execute posts the query form-encoded (data=<query>) to one endpoint.
func (c *Client) execute(ctx context.Context, endpoint, query string) ([]element, error) {
	form := url.Values{}
	form.Set("data", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed overpassResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return parsed.Elements, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
