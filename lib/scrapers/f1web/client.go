// Package f1web extracts rounds, sessions and results from the public
// event website. The markup is not contractually stable, so every
// field is resolved through an ordered list of extraction strategies
// and a round is only emitted once it passes the completeness gate.
package f1web

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/itsmrval/willitbemax/lib/f1"
	"github.com/itsmrval/willitbemax/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/f1web")

// StandingsSource resolves a season's driver-code to car-number
// mapping; consumed only by the live injector.
type StandingsSource interface {
	DriverStandings(ctx context.Context, season int) (map[string]int, error)
}

// CircuitSource looks up a round's circuit record from the results
// API; consulted only when a page carries no structured location data.
type CircuitSource interface {
	CircuitForRound(ctx context.Context, season, round int) (f1.Circuit, error)
}

// Renderer loads a JS-rendered page and returns its final HTML.
type Renderer interface {
	Render(ctx context.Context, pageUrl string) (string, error)
}

type Client struct {
	baseUrl       string
	liveTimingUrl string
	http          *resty.Client
	renderer      Renderer
	circuits      CircuitSource
	drivers       *driverNumbers
	delay         time.Duration
	metrics       *Metrics
	now           func() time.Time
}

type ClientOptions struct {
	BaseUrl       string
	LiveTimingUrl string
	Renderer      Renderer
	Standings     StandingsSource
	Circuits      CircuitSource
	Timeout       time.Duration
	MaxRetries    int
	// RetryBackoff is the first retry delay; it doubles per attempt.
	RetryBackoff time.Duration
	// Delay is the politeness pause between successive page fetches,
	// distinct from retry backoff.
	Delay     time.Duration
	UserAgent string
	Metrics   *Metrics
	// Now overrides the clock used for session status derivation,
	// primarily for tests.
	Now func() time.Time
}

func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = time.Second
	}
	if opts.Delay == 0 {
		opts.Delay = time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	metrics := opts.Metrics

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetTimeout(opts.Timeout)
	client.SetHeader("user-agent", opts.UserAgent)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetRetryCount(opts.MaxRetries)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
	})
	client.SetRetryAfter(func(_ *resty.Client, r *resty.Response) (time.Duration, error) {
		attempt := 1
		if r != nil && r.Request != nil && r.Request.Attempt > 0 {
			attempt = r.Request.Attempt
		}
		return opts.RetryBackoff << (attempt - 1), nil
	})
	client.AddRetryHook(func(_ *resty.Response, _ error) {
		metrics.IncRetries()
	})

	telemetry.InstrumentResty(client, "scrapers/f1web/http")

	return &Client{
		baseUrl:       strings.TrimRight(opts.BaseUrl, "/"),
		liveTimingUrl: opts.LiveTimingUrl,
		http:          client,
		renderer:      opts.Renderer,
		circuits:      opts.Circuits,
		drivers:       newDriverNumbers(opts.Standings),
		delay:         opts.Delay,
		metrics:       metrics,
		now:           opts.Now,
	}
}

// HttpClient exposes the underlying resty client so tests can attach
// a mock transport.
func (c *Client) HttpClient() *resty.Client {
	return c.http
}

// Metrics returns the scraper's collector registry.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

func (c *Client) absoluteUrl(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return c.baseUrl + href
}

// fetch retrieves a raw body. Transient failures (transport errors,
// 429, 5xx) are retried inside the resty client with exponential
// backoff; anything that survives becomes a FetchError. Other 4xx
// statuses fail immediately without retry.
func (c *Client) fetch(ctx context.Context, pageUrl string) ([]byte, error) {
	start := time.Now()
	res, err := c.http.R().SetContext(ctx).Get(pageUrl)
	c.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		c.metrics.IncPage("error")
		return nil, &FetchError{URL: pageUrl, Err: err}
	}
	if res.IsError() {
		c.metrics.IncPage("error")
		return nil, &FetchError{URL: pageUrl, Status: res.StatusCode()}
	}
	c.metrics.IncPage("ok")
	return res.Body(), nil
}

func (c *Client) page(ctx context.Context, pageUrl string) (*goquery.Document, error) {
	body, err := c.fetch(ctx, pageUrl)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Msg: fmt.Sprintf("invalid html at %s: %v", pageUrl, err)}
	}
	return doc, nil
}

// politeWait pauses between successive fetches so a season batch never
// hammers the site. Unrelated batches run by the caller are unaffected.
func (c *Client) politeWait(ctx context.Context) error {
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health reports whether the event website answers at all.
func (c *Client) Health(ctx context.Context) bool {
	res, err := c.http.R().SetContext(ctx).Get("/")
	if err != nil {
		return false
	}
	return res.StatusCode() == 200
}
