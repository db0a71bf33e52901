// Package wikidata implements [howmany.Fetcher] on top of the Wikidata action
// API (https://www.wikidata.org/w/api.php).
//
// Entity documents are fetched with wbgetentities and memoised for a
// configurable time, so resolving several properties (and the unit of each) of
// the same entity costs a single request. Requests are rate limited and retried
// on transient failures; be polite and set a descriptive user agent, as
// required by the Wikimedia User-Agent policy.
package wikidata

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-retryablehttp"
	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// DefaultEndpoint is the action API of the public Wikidata instance.
const DefaultEndpoint = "https://www.wikidata.org/w/api.php"

// Options configure a Client. The zero value is usable: every field has a
// default suitable for the public Wikidata instance.
type Options struct {
	// Endpoint is the URL of the action API (api.php); DefaultEndpoint if empty.
	Endpoint string
	// UserAgent is sent with every request.
	UserAgent string
	// Timeout bounds every HTTP attempt; 10 seconds if zero.
	Timeout time.Duration
	// RetryMax is the number of retries after a failed attempt; 3 if zero. Set a
	// negative value to disable retries.
	RetryMax int
	// RetryWaitMin and RetryWaitMax bound the exponential backoff between
	// attempts; retryablehttp's defaults if zero.
	RetryWaitMin, RetryWaitMax time.Duration
	// RequestsPerSecond limits the rate of HTTP attempts; unlimited if zero.
	RequestsPerSecond float64
	// CacheTTL is how long entity documents are memoised; 10 minutes if zero.
	// Set a negative value to disable memoisation.
	CacheTTL time.Duration
	// Transport sends the HTTP requests; http.DefaultTransport if nil.
	Transport http.RoundTripper
	// Logger receives the retry logs of the HTTP client; discarded if nil.
	Logger *slog.Logger
}

const (
	defaultUserAgent = "howmany/1.0 (https://github.com/go-digitaltwin/howmany)"
	defaultTimeout   = 10 * time.Second
	defaultRetryMax  = 3
	defaultCacheTTL  = 10 * time.Minute
)

// Client reads entities from Wikidata. It is safe for concurrent use.
type Client struct {
	endpoint  string
	userAgent string
	http      *retryablehttp.Client

	cache    *gocache.Cache // Entity ID to *entity.
	cacheTTL time.Duration
	inflight singleflight.Group
}

// New returns a Client configured with the given options.
func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if _, err := url.ParseRequestURI(opts.Endpoint); err != nil {
		return nil, errors.Wrap(err, "parse endpoint")
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	switch {
	case opts.RetryMax == 0:
		opts.RetryMax = defaultRetryMax
	case opts.RetryMax < 0:
		opts.RetryMax = 0
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.RequestsPerSecond < 0 {
		return nil, errors.Newf("negative request rate %v", opts.RequestsPerSecond)
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{
		Timeout: opts.Timeout,
		Transport: otelhttp.NewTransport(limitedTransport{
			limiter: rate.NewLimiter(limit, 1),
			next:    opts.Transport,
		}),
	}
	rc.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	rc.Logger = nil
	if opts.Logger != nil {
		rc.Logger = retryablehttp.LeveledLogger(opts.Logger)
	}

	c := &Client{
		endpoint:  opts.Endpoint,
		userAgent: opts.UserAgent,
		http:      rc,
		cacheTTL:  opts.CacheTTL,
	}
	if opts.CacheTTL > 0 {
		c.cache = gocache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return c, nil
}

// limitedTransport waits for the limiter before every attempt, retries
// included.
type limitedTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func (t limitedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(r.Context()); err != nil {
		return nil, errors.Wrap(err, "wait for rate limiter")
	}
	return t.next.RoundTrip(r)
}

// apiError is the error object of the action API.
type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// get calls the action API with the given parameters and decodes the JSON
// response into v.
func (c *Client) get(ctx context.Context, params url.Values, v any) error {
	params.Set("format", "json")
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s", params.Get("action"))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Newf("%s: unexpected status %s", params.Get("action"), resp.Status)
	}

	// Failures are reported in-band, with a 200 status.
	var raw json.RawMessage
	var failure struct {
		Error *apiError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return errors.Wrapf(err, "%s: decode response", params.Get("action"))
	}
	if err := json.Unmarshal(raw, &failure); err == nil && failure.Error != nil {
		return errors.Newf("%s: %s: %s", params.Get("action"), failure.Error.Code, failure.Error.Info)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrapf(err, "%s: decode response", params.Get("action"))
	}
	return nil
}
