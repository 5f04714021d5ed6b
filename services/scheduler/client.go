// Package scheduler is the client for the data-scheduler write
// collaborator, which persists the canonical season and round records
// the fetcher assembles.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itsmrval/willitbemax/lib/f1"
	"github.com/itsmrval/willitbemax/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/scheduler")

// WriteResponse is the collaborator's acknowledgement of a batch
// write.
type WriteResponse struct {
	Success         bool   `json:"success"`
	RecordsAffected int    `json:"records_affected"`
	Message         string `json:"message"`
}

type Client struct {
	http *resty.Client
}

type ClientOptions struct {
	BaseUrl string
	Timeout time.Duration
}

func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetTimeout(opts.Timeout)
	client.SetHeader("content-type", "application/json")
	telemetry.InstrumentResty(client, "services/scheduler/http")

	return &Client{http: client}
}

// HttpClient exposes the underlying resty client so tests can attach
// a mock transport.
func (c *Client) HttpClient() *resty.Client {
	return c.http
}

func (c *Client) write(ctx context.Context, path string, body any) (WriteResponse, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return WriteResponse{}, err
	}
	if res.IsError() {
		return WriteResponse{}, fmt.Errorf("write %s failed: status %d", path, res.StatusCode())
	}

	var response WriteResponse
	err = json.Unmarshal(res.Body(), &response)
	if err != nil {
		return WriteResponse{}, fmt.Errorf("decode write response: %w", err)
	}
	return response, nil
}

// WriteSeasons persists a season batch.
func (c *Client) WriteSeasons(ctx context.Context, seasons []f1.Season) (WriteResponse, error) {
	ctx, span := tracer.Start(ctx, "client:WriteSeasons")
	defer span.End()

	return c.write(ctx, "/seasons", map[string]any{"seasons": seasons})
}

// WriteRounds persists a fully assembled round batch for one season.
func (c *Client) WriteRounds(ctx context.Context, rounds []f1.Round) (WriteResponse, error) {
	ctx, span := tracer.Start(ctx, "client:WriteRounds")
	defer span.End()

	return c.write(ctx, "/rounds", map[string]any{"rounds": rounds})
}

// GetSeasons reads back stored seasons, optionally filtered by year
// or status.
func (c *Client) GetSeasons(ctx context.Context, year int, status f1.SeasonStatus) ([]f1.Season, error) {
	ctx, span := tracer.Start(ctx, "client:GetSeasons")
	defer span.End()

	req := c.http.R().SetContext(ctx)
	if year != 0 {
		req.SetQueryParam("year", fmt.Sprintf("%d", year))
	}
	if status != "" {
		req.SetQueryParam("status", string(status))
	}

	res, err := req.Get("/seasons")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("get seasons failed: status %d", res.StatusCode())
	}

	var payload struct {
		Seasons []f1.Season `json:"seasons"`
	}
	err = json.Unmarshal(res.Body(), &payload)
	if err != nil {
		return nil, fmt.Errorf("decode seasons response: %w", err)
	}
	return payload.Seasons, nil
}

// Health reports whether the collaborator answers reads.
func (c *Client) Health(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := c.http.R().SetContext(ctx).Get("/seasons")
	if err != nil {
		return false
	}
	return !res.IsError()
}
