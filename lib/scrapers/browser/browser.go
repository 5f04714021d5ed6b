// Package browser talks to the headless-browser automation endpoint
// used for JS-rendered pages such as live timing. Rendering blocks for
// the lifetime of the page load, so every request is funneled through
// a single dedicated worker; callers suspend until their render
// completes and the scraping pipeline stays strictly sequential.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itsmrval/willitbemax/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/browser")

type Client struct {
	http *resty.Client

	startWorker sync.Once
	jobs        chan renderJob
	closed      chan struct{}
	closeOnce   sync.Once
}

type ClientOptions struct {
	BaseUrl string
	Timeout time.Duration
}

type renderJob struct {
	ctx  context.Context
	url  string
	done chan renderResult
}

type renderResult struct {
	html string
	err  error
}

func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetTimeout(opts.Timeout)
	telemetry.InstrumentResty(client, "scrapers/browser/http")

	return &Client{
		http:   client,
		jobs:   make(chan renderJob),
		closed: make(chan struct{}),
	}
}

// HttpClient exposes the underlying resty client so tests can attach
// a mock transport.
func (c *Client) HttpClient() *resty.Client {
	return c.http
}

// Render loads the page in the remote browser and returns its rendered
// HTML. Calls are serialized on the worker; the caller blocks until
// its turn completes or ctx is cancelled.
func (c *Client) Render(ctx context.Context, pageUrl string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:Render")
	defer span.End()

	c.startWorker.Do(func() {
		go c.worker()
	})

	job := renderJob{ctx: ctx, url: pageUrl, done: make(chan renderResult, 1)}
	select {
	case c.jobs <- job:
	case <-c.closed:
		return "", fmt.Errorf("browser client closed")
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case result := <-job.done:
		return result.html, result.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) worker() {
	for {
		select {
		case job := <-c.jobs:
			html, err := c.render(job.ctx, job.url)
			job.done <- renderResult{html: html, err: err}
		case <-c.closed:
			return
		}
	}
}

func (c *Client) render(ctx context.Context, pageUrl string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"url": pageUrl}).
		Post("/render")
	if err != nil {
		return "", fmt.Errorf("render %s: %w", pageUrl, err)
	}
	if res.IsError() {
		return "", fmt.Errorf("render %s: status %d", pageUrl, res.StatusCode())
	}
	return res.String(), nil
}

// Health reports whether the automation endpoint is reachable.
func (c *Client) Health(ctx context.Context) bool {
	res, err := c.http.R().
		SetContext(ctx).
		Get("/health")
	if err != nil {
		return false
	}
	return res.StatusCode() == 200
}

// Close stops the render worker. In-flight renders complete; later
// calls to Render fail.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}
