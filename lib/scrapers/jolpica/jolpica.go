// Package jolpica is a client for the Jolpica/Ergast results API: a
// stable, paginated JSON source used for the season list and for the
// per-season driver standings the live injector resolves car numbers
// from.
package jolpica

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/itsmrval/willitbemax/lib/f1"
	"github.com/itsmrval/willitbemax/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/jolpica")

type Client struct {
	http *resty.Client
	now  func() time.Time
}

type ClientOptions struct {
	BaseUrl string
	Timeout time.Duration
	// Now overrides the clock used for season status derivation,
	// primarily for tests.
	Now func() time.Time
}

func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetTimeout(opts.Timeout)
	telemetry.InstrumentResty(client, "scrapers/jolpica/http")

	return &Client{http: client, now: opts.Now}
}

// HttpClient exposes the underlying resty client so tests can attach
// a mock transport.
func (c *Client) HttpClient() *resty.Client {
	return c.http
}

type seasonsPayload struct {
	MRData struct {
		SeasonTable struct {
			Seasons []struct {
				Season string `json:"season"`
			} `json:"Seasons"`
		} `json:"SeasonTable"`
	} `json:"MRData"`
}

// Seasons lists every season the API knows about, annotated with a
// lifecycle status derived from the current date.
func (c *Client) Seasons(ctx context.Context) ([]f1.Season, error) {
	ctx, span := tracer.Start(ctx, "client:Seasons")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", "100").
		Get("/seasons.json")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("seasons request failed: status %d", res.StatusCode())
	}

	var payload seasonsPayload
	err = json.Unmarshal(res.Body(), &payload)
	if err != nil {
		return nil, fmt.Errorf("decode seasons payload: %w", err)
	}

	now := c.now()
	var seasons []f1.Season
	for _, item := range payload.MRData.SeasonTable.Seasons {
		year, err := strconv.Atoi(item.Season)
		if err != nil {
			slog.WarnContext(ctx, "skipping unparseable season", "season", item.Season)
			continue
		}
		seasons = append(seasons, f1.NewSeason(year, now))
	}
	return seasons, nil
}

type standingsPayload struct {
	MRData struct {
		StandingsTable struct {
			StandingsLists []struct {
				DriverStandings []struct {
					Driver struct {
						Code            string `json:"code"`
						PermanentNumber string `json:"permanentNumber"`
					} `json:"Driver"`
				} `json:"DriverStandings"`
			} `json:"StandingsLists"`
		} `json:"StandingsTable"`
	} `json:"MRData"`
}

// DriverStandings returns the season's driver-code to car-number
// mapping from the driver standings table.
func (c *Client) DriverStandings(ctx context.Context, season int) (map[string]int, error) {
	ctx, span := tracer.Start(ctx, "client:DriverStandings")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/%d/driverstandings.json", season))
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("driver standings request failed: status %d", res.StatusCode())
	}

	var payload standingsPayload
	err = json.Unmarshal(res.Body(), &payload)
	if err != nil {
		return nil, fmt.Errorf("decode driver standings payload: %w", err)
	}

	numbers := map[string]int{}
	for _, list := range payload.MRData.StandingsTable.StandingsLists {
		for _, standing := range list.DriverStandings {
			code := standing.Driver.Code
			if code == "" {
				continue
			}
			number, err := strconv.Atoi(standing.Driver.PermanentNumber)
			if err != nil {
				slog.WarnContext(ctx, "driver without a usable number",
					"code", code, "raw", standing.Driver.PermanentNumber)
				continue
			}
			numbers[code] = number
		}
	}
	return numbers, nil
}

type circuitsPayload struct {
	MRData struct {
		CircuitTable struct {
			Circuits []struct {
				CircuitName string `json:"circuitName"`
				Location    struct {
					Lat      string `json:"lat"`
					Long     string `json:"long"`
					Locality string `json:"locality"`
					Country  string `json:"country"`
				} `json:"Location"`
			} `json:"Circuits"`
		} `json:"CircuitTable"`
	} `json:"MRData"`
}

// CircuitForRound resolves a round's circuit record. The round is the
// API's own 1-based race number. Used as a last resort when an event
// page carries no structured location data.
func (c *Client) CircuitForRound(ctx context.Context, season, round int) (f1.Circuit, error) {
	ctx, span := tracer.Start(ctx, "client:CircuitForRound")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/%d/%d/circuits.json", season, round))
	if err != nil {
		return f1.Circuit{}, err
	}
	if res.IsError() {
		return f1.Circuit{}, fmt.Errorf("circuits request failed: status %d", res.StatusCode())
	}

	var payload circuitsPayload
	err = json.Unmarshal(res.Body(), &payload)
	if err != nil {
		return f1.Circuit{}, fmt.Errorf("decode circuits payload: %w", err)
	}

	circuits := payload.MRData.CircuitTable.Circuits
	if len(circuits) == 0 {
		return f1.Circuit{}, fmt.Errorf("no circuit for season %d round %d", season, round)
	}

	item := circuits[0]
	return f1.Circuit{
		Name:     item.CircuitName,
		Locality: item.Location.Locality,
		Country:  item.Location.Country,
		Lat:      item.Location.Lat,
		Long:     item.Location.Long,
	}, nil
}

// Health reports whether the API answers its current-season endpoint.
func (c *Client) Health(ctx context.Context) bool {
	res, err := c.http.R().
		SetContext(ctx).
		Get("/current.json")
	if err != nil {
		slog.WarnContext(ctx, "jolpica health check failed", "err", err)
		return false
	}
	return res.StatusCode() == 200
}
