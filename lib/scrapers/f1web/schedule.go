package f1web

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/itsmrval/willitbemax/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

// RoundMeta is the schedule-level identity of one round: its dense
// 0-based id, a location slug usable in URLs and a display name.
type RoundMeta struct {
	RoundID  int
	Location string
	Name     string
}

var (
	roundPrefixRe   = regexp.MustCompile(`(?i)ROUND\s*\d+\s*`)
	chequeredFlagRe = regexp.MustCompile(`(?i)Chequered\s*Flag\s*`)
	dateRangeRe     = regexp.MustCompile(`(?i)\d{1,2}\s*-\s*\d{1,2}\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)`)
)

// cleanEventName strips the schedule-page decorations (round counter,
// chequered flag banner, date range) from an event name.
func cleanEventName(name string) string {
	name = roundPrefixRe.ReplaceAllString(name, "")
	name = chequeredFlagRe.ReplaceAllString(name, "")
	name = dateRangeRe.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

func localitySlug(locality string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(locality)), " ", "-")
}

// Schedule enumerates the season's rounds from the overview page.
// Structured event data is preferred; anchor scanning is the fallback
// for deployments that dropped the JSON-LD blocks. Zero rounds is a
// ParseError.
func (c *Client) Schedule(ctx context.Context, season int) ([]RoundMeta, error) {
	ctx, span := tracer.Start(ctx, "client:Schedule")
	defer span.End()
	span.SetAttributes(attribute.Int("season", season))

	doc, err := c.page(ctx, fmt.Sprintf("/en/racing/%d", season))
	if err != nil {
		return nil, err
	}

	metas, _ := firstOf(
		func() ([]RoundMeta, bool) { return scheduleFromStructuredData(doc) },
		func() ([]RoundMeta, bool) { return scheduleFromAnchors(doc, season) },
	)

	metas = dedupeRounds(metas)
	if len(metas) == 0 {
		c.metrics.IncFailure("schedule")
		return nil, &ParseError{Season: season, Msg: "no rounds found on season overview page"}
	}
	return metas, nil
}

func scheduleFromStructuredData(doc *goquery.Document) ([]RoundMeta, bool) {
	var metas []RoundMeta
	for _, event := range sportsEvents(doc) {
		name := cleanEventName(event.Name)
		if name == "" || event.Location == nil || event.Location.Address == nil {
			continue
		}
		slug := localitySlug(event.Location.Address.Locality)
		if slug == "" {
			continue
		}
		metas = append(metas, RoundMeta{
			RoundID:  len(metas),
			Location: slug,
			Name:     name,
		})
	}
	return metas, len(metas) > 0
}

func scheduleFromAnchors(doc *goquery.Document, season int) ([]RoundMeta, bool) {
	seasonPath := fmt.Sprintf("/racing/%d/", season)

	var metas []RoundMeta
	doc.Find(`a[href*="/racing/"]`).Each(func(idx int, card *goquery.Selection) {
		href := card.AttrOr("href", "")
		if !strings.Contains(href, seasonPath) || strings.Count(href, "/") < 4 {
			return
		}

		parts := strings.Split(strings.TrimRight(href, "/"), "/")
		location := parts[len(parts)-1]
		if location == "" || location == strconv.Itoa(season) {
			return
		}

		name := htmlutil.CleanText(card.Find(`[class*="title"], [class*="name"], h2, h3, h4, h5, span`).First().Text())
		if name == "" {
			name = fmt.Sprintf("Round %d", idx+1)
		}
		if isAllDigits(name) {
			return
		}

		metas = append(metas, RoundMeta{
			RoundID:  idx,
			Location: location,
			Name:     name,
		})
	})
	return metas, len(metas) > 0
}

// dedupeRounds keeps the first occurrence of each location slug and
// reassigns round ids so they form a dense 0-based sequence in
// first-seen order.
func dedupeRounds(metas []RoundMeta) []RoundMeta {
	seen := map[string]bool{}
	var unique []RoundMeta
	for _, meta := range metas {
		if seen[meta.Location] {
			continue
		}
		seen[meta.Location] = true
		meta.RoundID = len(unique)
		unique = append(unique, meta)
	}
	return unique
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
