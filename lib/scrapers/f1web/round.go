package f1web

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/itsmrval/willitbemax/lib/f1"
	"github.com/itsmrval/willitbemax/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

var (
	circuitTextRe = regexp.MustCompile(`(?i)circuit`)
	lapsTextRe    = regexp.MustCompile(`(?i)(\d+)\s*laps`)
	lapsLabelRe   = regexp.MustCompile(`(?i)^number of laps$`)
	dayMonthRe    = regexp.MustCompile(`(?i)(\d{1,2})\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)`)
	digitRunRe    = regexp.MustCompile(`\d+`)
)

// Round fetches one round's page and assembles the full record:
// circuit attributes, weekend date bounds, sessions and any live
// overlay. A round that fails the completeness gate is rejected with
// IncompleteDataError; partial rounds are never emitted.
func (c *Client) Round(ctx context.Context, season int, meta RoundMeta, opts FetchOptions) (f1.Round, error) {
	ctx, span := tracer.Start(ctx, "client:Round")
	defer span.End()
	span.SetAttributes(
		attribute.Int("season", season),
		attribute.String("location", meta.Location),
	)

	doc, err := c.page(ctx, fmt.Sprintf("/en/racing/%d/%s", season, meta.Location))
	if err != nil {
		return f1.Round{}, err
	}

	name := meta.Name
	if structured, ok := roundNameFromStructuredData(doc, season); ok {
		name = structured
	}

	circuit := c.extractCircuit(ctx, doc)
	circuit = c.backfillCircuit(ctx, season, meta.RoundID, circuit)
	firstDate, endDate := weekendDates(doc, season)

	sessions, err := c.extractSessions(ctx, season, meta.Location, doc)
	if err != nil {
		return f1.Round{}, err
	}

	sessions, err = c.injectLive(ctx, season, doc, sessions, opts.LiveOverride)
	if err != nil {
		return f1.Round{}, err
	}

	round := f1.Round{
		RoundID:   meta.RoundID,
		Name:      name,
		Season:    season,
		Circuit:   circuit,
		FirstDate: firstDate,
		EndDate:   endDate,
		Sessions:  sessions,
	}

	if missing := round.MissingFields(); len(missing) > 0 {
		c.metrics.IncFailure("incomplete")
		return f1.Round{}, &IncompleteDataError{
			Season:  season,
			Round:   name,
			Missing: missing,
		}
	}
	if err := round.CheckSessions(); err != nil {
		c.metrics.IncFailure("sessions")
		return f1.Round{}, &ParseError{Season: season, Round: name, Msg: err.Error()}
	}

	c.metrics.IncRounds()
	return round, nil
}

// roundNameFromStructuredData prefers the event's own name over the
// schedule-derived one, stripping a trailing season year.
func roundNameFromStructuredData(doc *goquery.Document, season int) (string, bool) {
	for _, event := range sportsEvents(doc) {
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(event.Name), strconv.Itoa(season)))
		if name != "" {
			return name, true
		}
	}
	return "", false
}

// extractCircuit resolves circuit attributes through ordered
// strategies: structured event-location data first, then a generic
// circuit-labeled text node for the name. The track-map image and lap
// count are located afterwards; a missing image is tolerated, the
// completeness gate catches everything else.
func (c *Client) extractCircuit(ctx context.Context, doc *goquery.Document) f1.Circuit {
	circuit := f1.Circuit{Lat: "0", Long: "0"}

	for _, event := range sportsEvents(doc) {
		location := event.Location
		if location == nil {
			continue
		}
		if circuit.Name == "" && location.Name != "" {
			circuit.Name = location.Name
		}
		if location.Address != nil {
			if location.Address.Locality != "" {
				circuit.Locality = location.Address.Locality
			}
			if location.Address.Country != "" {
				circuit.Country = location.Address.Country
			}
		}
		if location.Geo != nil {
			if lat := coordString(location.Geo.Latitude); lat != "" {
				circuit.Lat = lat
			}
			if long := coordString(location.Geo.Longitude); long != "" {
				circuit.Long = long
			}
		}
	}

	if circuit.Name == "" {
		if name, ok := circuitNameFromText(doc); ok {
			circuit.Name = name
		}
	}

	circuit.Laps, _ = firstOf(
		func() (int, bool) { return lapsFromLabel(doc) },
		func() (int, bool) { return lapsFromText(doc) },
	)

	if image := c.downloadCircuitImage(ctx, doc); len(image) > 0 {
		circuit.Image = image
	}

	return circuit
}

// backfillCircuit fills location fields the page did not yield from
// the results API's circuit record. Round ids are 0-based while the
// API numbers races from 1. Lookup failures are logged and the
// completeness gate keeps the final say.
func (c *Client) backfillCircuit(ctx context.Context, season, roundID int, circuit f1.Circuit) f1.Circuit {
	if c.circuits == nil || !circuitLocationMissing(circuit) {
		return circuit
	}

	fallback, err := c.circuits.CircuitForRound(ctx, season, roundID+1)
	if err != nil {
		slog.WarnContext(ctx, "circuit lookup fallback failed",
			"season", season, "round", roundID, "err", err)
		return circuit
	}

	if circuit.Name == "" {
		circuit.Name = fallback.Name
	}
	if circuit.Locality == "" {
		circuit.Locality = fallback.Locality
	}
	if circuit.Country == "" {
		circuit.Country = fallback.Country
	}
	if !validCoordinatePair(circuit.Lat, circuit.Long) &&
		validCoordinatePair(fallback.Lat, fallback.Long) {
		circuit.Lat = fallback.Lat
		circuit.Long = fallback.Long
	}
	return circuit
}

func circuitLocationMissing(circuit f1.Circuit) bool {
	return circuit.Name == "" || circuit.Locality == "" || circuit.Country == "" ||
		!validCoordinatePair(circuit.Lat, circuit.Long)
}

func validCoordinatePair(lat, long string) bool {
	return lat != "" && lat != "0" && long != "" && long != "0"
}

func circuitNameFromText(doc *goquery.Document) (string, bool) {
	matches := htmlutil.FindTextMatches(doc, circuitTextRe)
	if len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

// lapsFromLabel reads the "Number of Laps" definition pair, the layout
// used on current event pages.
func lapsFromLabel(doc *goquery.Document) (int, bool) {
	laps := 0
	doc.Find("dt, th, span, h2, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !lapsLabelRe.MatchString(htmlutil.CleanText(s.Text())) {
			return true
		}
		for _, candidate := range []string{s.Next().Text(), s.Parent().Text()} {
			if run := digitRunRe.FindString(candidate); run != "" {
				laps, _ = strconv.Atoi(run)
				return false
			}
		}
		return true
	})
	return laps, laps > 0
}

// lapsFromText scans for a bare "<n> laps" fragment, the older page
// layout.
func lapsFromText(doc *goquery.Document) (int, bool) {
	for _, text := range htmlutil.FindTextMatches(doc, lapsTextRe) {
		groups := lapsTextRe.FindStringSubmatch(text)
		if len(groups) < 2 {
			continue
		}
		laps, err := strconv.Atoi(groups[1])
		if err == nil && laps > 0 {
			return laps, true
		}
	}
	return 0, false
}

func (c *Client) downloadCircuitImage(ctx context.Context, doc *goquery.Document) []byte {
	img := doc.Find(`img[src*="Circuit"], img[src*="circuit"], img[alt*="circuit"]`).First()
	src := img.AttrOr("src", "")
	if src == "" {
		return nil
	}

	body, err := c.fetch(ctx, c.absoluteUrl(src))
	if err != nil {
		slog.WarnContext(ctx, "failed to download circuit image", "src", src, "err", err)
		return nil
	}
	return body
}

// weekendDates resolves the weekend bounds: structured start/end
// timestamps first, else the earliest and latest of the first five
// date-like text fragments pinned to the season year. (0, 0) means
// no strategy produced anything and the round will be rejected.
func weekendDates(doc *goquery.Document, season int) (int64, int64) {
	bounds, ok := firstOf(
		func() ([2]int64, bool) { return weekendDatesFromStructuredData(doc) },
		func() ([2]int64, bool) { return weekendDatesFromText(doc, season) },
	)
	if !ok {
		return 0, 0
	}
	return bounds[0], bounds[1]
}

func weekendDatesFromStructuredData(doc *goquery.Document) ([2]int64, bool) {
	for _, event := range sportsEvents(doc) {
		start, okStart := parseEventDate(event.StartDate)
		end, okEnd := parseEventDate(event.EndDate)
		if okStart && okEnd {
			return [2]int64{start.Unix(), end.Unix()}, true
		}
	}
	return [2]int64{}, false
}

func weekendDatesFromText(doc *goquery.Document, season int) ([2]int64, bool) {
	fragments := htmlutil.FindTextMatches(doc, dayMonthRe)
	if len(fragments) > 5 {
		fragments = fragments[:5]
	}

	var dates []int64
	for _, fragment := range fragments {
		ts, ok := parseDayMonth(fragment, season)
		if ok {
			dates = append(dates, ts)
		}
	}
	if len(dates) == 0 {
		return [2]int64{}, false
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return [2]int64{dates[0], dates[len(dates)-1]}, true
}

// parseDayMonth interprets a "12 Mar" style fragment within the given
// year.
func parseDayMonth(text string, year int) (int64, bool) {
	groups := dayMonthRe.FindStringSubmatch(text)
	if len(groups) < 3 {
		return 0, false
	}
	day, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0, false
	}
	month, ok := monthByName(groups[2])
	if !ok {
		return 0, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix(), true
}

func monthByName(name string) (time.Month, bool) {
	if len(name) != 3 {
		return 0, false
	}
	name = strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
	parsed, err := time.Parse("Jan", name)
	if err != nil {
		return 0, false
	}
	return parsed.Month(), true
}
