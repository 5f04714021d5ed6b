package f1web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/itsmrval/willitbemax/lib/f1"
	"github.com/itsmrval/willitbemax/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

// sessionPathTable maps result-archive path segments to canonical
// session types. Order is the precedence: the sprint-qualifying
// entries sit first so a link naming both "sprint" and "qualifying"
// never degrades to either generic type.
var sessionPathTable = []struct {
	key string
	typ f1.SessionType
}{
	{"sprint-qualifying", f1.SessionSprintQualifying},
	{"sprint-shootout", f1.SessionSprintQualifying},
	{"practice/1", f1.SessionPractice1},
	{"practice/2", f1.SessionPractice2},
	{"practice/3", f1.SessionPractice3},
	{"qualifying", f1.SessionQualifying},
	{"sprint", f1.SessionSprint},
	{"race-result", f1.SessionRace},
}

func sessionTypeFromPath(href string) (f1.SessionType, bool) {
	for _, entry := range sessionPathTable {
		if strings.HasSuffix(href, "/"+entry.key) || strings.Contains(href, "/"+entry.key+"/") {
			return entry.typ, true
		}
	}
	return "", false
}

// NormalizeSessionLabel resolves a free-text session label to a
// canonical type. The sprint/qualifying disambiguation rule applies
// before any single keyword: "sprint qualifying" and "sprint shootout"
// are sprint_qualifying, never sprint or qualifying alone.
func NormalizeSessionLabel(label string) (f1.SessionType, bool) {
	label = strings.ToLower(label)

	sprint := strings.Contains(label, "sprint")
	qualifying := strings.Contains(label, "qualifying") || strings.Contains(label, "shootout")

	switch {
	case sprint && qualifying:
		return f1.SessionSprintQualifying, true
	case strings.Contains(label, "practice 1"), strings.Contains(label, "fp1"):
		return f1.SessionPractice1, true
	case strings.Contains(label, "practice 2"), strings.Contains(label, "fp2"):
		return f1.SessionPractice2, true
	case strings.Contains(label, "practice 3"), strings.Contains(label, "fp3"):
		return f1.SessionPractice3, true
	case qualifying:
		return f1.SessionQualifying, true
	case sprint:
		return f1.SessionSprint, true
	case strings.Contains(label, "race"), strings.Contains(label, "grand prix"):
		return f1.SessionRace, true
	}
	return "", false
}

var sessionDateRe = regexp.MustCompile(`(?i)(\d{1,2})\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+(\d{4})`)

// extractSessions discovers the round's sessions from its result
// links. Every resolved link is fetched for a date and a results
// table; a date that cannot be resolved while result links exist is
// fatal. When the event has no result links at all it has not been
// contested yet, and scheduled-session placeholders are scraped from
// embedded script payloads instead.
func (c *Client) extractSessions(ctx context.Context, season int, location string, doc *goquery.Document) ([]f1.Session, error) {
	ctx, span := tracer.Start(ctx, "client:extractSessions")
	defer span.End()
	span.SetAttributes(
		attribute.Int("season", season),
		attribute.String("location", location),
	)

	archiveRe := regexp.MustCompile(fmt.Sprintf(`/results/%d/races/\d+/%s`, season, regexp.QuoteMeta(location)))

	resolved := map[f1.SessionType]bool{}
	var sessions []f1.Session
	sawResultLinks := false

	for _, anchor := range htmlutil.GetAnchors(doc.Find("a[href]")) {
		if !archiveRe.MatchString(anchor.Href) {
			continue
		}
		if !strings.Contains(anchor.Href, fmt.Sprintf("/results/%d/", season)) ||
			!strings.Contains(anchor.Href, "/"+location+"/") {
			slog.WarnContext(ctx, "skipping malformed session link", "href", anchor.Href)
			continue
		}
		sawResultLinks = true

		sessionType, ok := sessionTypeFromPath(anchor.Href)
		if !ok || resolved[sessionType] {
			continue
		}

		session, err := c.fetchSession(ctx, c.absoluteUrl(anchor.Href), sessionType, season)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
		resolved[sessionType] = true

		if err := c.politeWait(ctx); err != nil {
			return nil, err
		}
	}

	if !sawResultLinks {
		sessions = scheduledSessionsFromScripts(doc)
		span.SetAttributes(attribute.Int("placeholder_sessions", len(sessions)))
	}

	return sessions, nil
}

// fetchSession loads one result page and turns it into a dated session
// with finishing-order rows.
func (c *Client) fetchSession(ctx context.Context, pageUrl string, sessionType f1.SessionType, season int) (f1.Session, error) {
	doc, err := c.page(ctx, pageUrl)
	if err != nil {
		return f1.Session{}, err
	}

	date, ok := sessionDate(doc, season)
	if !ok {
		c.metrics.IncFailure("session_date")
		return f1.Session{}, &ParseError{
			Season:  season,
			Session: string(sessionType),
			Msg:     fmt.Sprintf("failed to extract session date from %s", pageUrl),
		}
	}

	results := parseResults(doc)
	if len(results) == 0 {
		c.metrics.IncFailure("session_results")
		return f1.Session{}, &ParseError{
			Season:  season,
			Session: string(sessionType),
			Msg:     fmt.Sprintf("failed to extract session results from %s", pageUrl),
		}
	}

	return f1.Session{
		Type:    sessionType,
		Date:    date,
		Results: results,
	}, nil
}

// sessionDate resolves a session's start from structured data first,
// then from date-pattern text carrying the target season's year.
func sessionDate(doc *goquery.Document, season int) (int64, bool) {
	ts, ok := firstOf(
		func() (int64, bool) { return sessionDateFromStructuredData(doc) },
		func() (int64, bool) { return sessionDateFromText(doc, season) },
	)
	return ts, ok
}

func sessionDateFromStructuredData(doc *goquery.Document) (int64, bool) {
	for _, event := range sportsEvents(doc) {
		start, ok := parseEventDate(event.StartDate)
		if ok {
			return start.Unix(), true
		}
	}
	return 0, false
}

func sessionDateFromText(doc *goquery.Document, season int) (int64, bool) {
	for _, fragment := range htmlutil.FindTextMatches(doc, sessionDateRe) {
		groups := sessionDateRe.FindStringSubmatch(fragment)
		if len(groups) < 4 {
			continue
		}
		if groups[3] != fmt.Sprintf("%d", season) {
			continue
		}
		ts, ok := parseDayMonth(fmt.Sprintf("%s %s", groups[1], groups[2]), season)
		if ok {
			return ts, true
		}
	}
	return 0, false
}

// scheduledSessionBlock is the shape of the per-session objects found
// inside embedded script payloads on not-yet-contested event pages.
type scheduledSessionBlock struct {
	Name        string `json:"name"`
	SessionType string `json:"sessionType"`
}

// scheduledSessionsFromScripts scans script payloads with a
// brace-matched JSON walk and emits dateless, resultless placeholder
// sessions for events that have no result links yet.
func scheduledSessionsFromScripts(doc *goquery.Document) []f1.Session {
	resolved := map[f1.SessionType]bool{}
	var sessions []f1.Session

	doc.Find("script").Each(func(_ int, script *goquery.Selection) {
		for _, raw := range jsonObjectsWithKey(script.Text(), `"sessionType"`) {
			var block scheduledSessionBlock
			if err := json.Unmarshal([]byte(raw), &block); err != nil {
				continue
			}

			label := block.SessionType
			if label == "" {
				label = block.Name
			}
			sessionType, ok := NormalizeSessionLabel(label)
			if !ok || resolved[sessionType] {
				continue
			}
			resolved[sessionType] = true

			sessions = append(sessions, f1.Session{
				Type:   sessionType,
				Status: f1.StatusUpcoming,
			})
		}
	})
	return sessions
}
