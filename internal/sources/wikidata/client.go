package wikidata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// DefaultEndpoint is the public Wikidata Query Service.
	DefaultEndpoint = "https://query.wikidata.org/sparql"
	// DefaultUserAgent identifies this client per Wikimedia API etiquette.
	DefaultUserAgent = "MegalithAtlas/1.0 (https://github.com/megalith-foundation/server)"
	// DefaultTimeout for HTTP requests; SPARQL queries can be slow.
	DefaultTimeout = 30 * time.Second
	// DefaultRateLimit keeps us well inside WDQS limits.
	DefaultRateLimit = rate.Limit(2.0)
	// MaxRetries for transient errors.
	MaxRetries = 2
	// RetryBaseDelay is the initial backoff delay.
	RetryBaseDelay = 1 * time.Second

	// ModernCutoffYear excludes entities built after the megalithic and
	// ancient eras; categories like "temple" would otherwise pull in
	// modern structures sharing the class.
	ModernCutoffYear = 1500
)

// Category is a Wikidata class whose transitive instances are fetched.
type Category struct {
	QID   string
	Label string
}

// DefaultCategories covers the archaeological/megalithic classes the atlas
// imports. Instances are matched transitively (wdt:P31/wdt:P279*), so
// subclasses like "recumbent stone circle" arrive through their parents.
var DefaultCategories = []Category{
	{QID: "Q164240", Label: "megalith"},
	{QID: "Q1134686", Label: "stone circle"},
	{QID: "Q166118", Label: "menhir"},
	{QID: "Q149621", Label: "dolmen"},
	{QID: "Q1361043", Label: "henge"},
	{QID: "Q34023", Label: "tumulus"},
	{QID: "Q12516", Label: "pyramid"},
	{QID: "Q839954", Label: "archaeological site"},
}

// Site is the intermediate record parsed from one SPARQL result row. It is
// discarded after normalization.
type Site struct {
	QID            string
	Name           string
	Description    string
	Latitude       float64
	Longitude      float64
	RawType        string
	Country        string
	CountryCode    string
	Inception      string
	WikipediaURL   string
	ImageURL       string
	HeritageStatus string
}

// Client queries the Wikidata SPARQL endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
	limiter    *rate.Limiter
	categories []Category
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

// WithCategories overrides the category set fetched by FetchCandidates.
func WithCategories(categories []Category) Option {
	return func(c *Client) {
		c.categories = categories
	}
}

// NewClient creates a Wikidata SPARQL client.
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	client := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		endpoint:   endpoint,
		userAgent:  DefaultUserAgent,
		limiter:    rate.NewLimiter(DefaultRateLimit, 1),
		categories: DefaultCategories,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// FetchCandidates runs one category query per configured category
// concurrently and unions the results, deduplicating by QID (an entity that
// is an instance of several categories arrives once).
//
// A single failing category query does not abort its siblings; an error is
// returned only when every category query failed.
func (c *Client) FetchCandidates(ctx context.Context) ([]Site, error) {
	perCategory := make([][]Site, len(c.categories))
	errs := make([]error, len(c.categories))

	var g errgroup.Group
	for i, category := range c.categories {
		i, category := i, category
		g.Go(func() error {
			siteList, err := c.FetchCategory(ctx, category)
			if err != nil {
				errs[i] = fmt.Errorf("category %s (%s): %w", category.Label, category.QID, err)
				return nil
			}
			perCategory[i] = siteList
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	var union []Site
	failed := 0
	for i := range c.categories {
		if errs[i] != nil {
			failed++
			continue
		}
		for _, site := range perCategory[i] {
			if _, dup := seen[site.QID]; dup {
				continue
			}
			seen[site.QID] = struct{}{}
			union = append(union, site)
		}
	}

	if failed == len(c.categories) {
		return nil, fmt.Errorf("all category queries failed: %w", errors.Join(errs...))
	}
	return union, nil
}

// FetchCategory fetches transitive instances of a single category class.
func (c *Client) FetchCategory(ctx context.Context, category Category) ([]Site, error) {
	query := buildCategoryQuery(category.QID)
	rows, err := c.runQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return parseBindings(rows, category.Label), nil
}

// runQuery executes a SPARQL query and returns the parsed result rows.
func (c *Client) runQuery(ctx context.Context, query string) ([]binding, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("format", "json")
	requestURL := fmt.Sprintf("%s?%s", c.endpoint, params.Encode())

	body, err := c.doWithRetry(ctx, requestURL)
	if err != nil {
		return nil, fmt.Errorf("sparql request: %w", err)
	}

	var resp sparqlResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse sparql response: %w", err)
	}
	return resp.Results.Bindings, nil
}

// doWithRetry executes an HTTP GET with exponential backoff retry logic.
func (c *Client) doWithRetry(ctx context.Context, requestURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s, ...
			delay := RetryBaseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/sparql-results+json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue // Retry on network errors
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue // Retry on read errors
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue // Retry rate limits
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error (%d)", resp.StatusCode)
			continue // Retry server errors
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
		}

		return body, nil // Success
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
