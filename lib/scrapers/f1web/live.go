package f1web

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/itsmrval/willitbemax/lib/f1"
	"github.com/itsmrval/willitbemax/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

// liveWindow is how long after its start a session is considered live
// when only the schedule is available.
const liveWindow = 2 * time.Hour

var liveMarkerRe = regexp.MustCompile(`(?i)live\s+timing`)

var errNoRenderer = errors.New("no browser renderer configured")

// injectLive assigns every session a status and, when a session is in
// progress, overlays freshly scraped live standings. An explicit
// override from the caller wins over marker detection, and both win
// over the time-window derivation.
func (c *Client) injectLive(ctx context.Context, season int, roundDoc *goquery.Document, sessions []f1.Session, override f1.SessionType) ([]f1.Session, error) {
	ctx, span := tracer.Start(ctx, "client:injectLive")
	defer span.End()

	liveType := override
	if liveType == "" {
		liveType, _ = detectLiveSession(roundDoc)
	}
	span.SetAttributes(attribute.String("live_type", string(liveType)))

	now := c.now()
	for i := range sessions {
		sessions[i].Status = deriveStatus(sessions[i].Date, now)
		sessions[i].IsLive = false
	}

	if liveType == "" {
		return sessions, nil
	}

	rows, err := c.fetchLiveStandings(ctx, season)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range sessions {
		if sessions[i].Type == liveType {
			idx = i
			break
		}
	}
	// explicit detection wins: the window derivation may not flag a
	// second session live alongside the real one
	for i := range sessions {
		if i != idx && sessions[i].Status == f1.StatusLive {
			sessions[i].Status = f1.StatusFinished
		}
	}
	if idx < 0 {
		// the live session has no result link yet, surface it anyway
		sessions = append(sessions, f1.Session{Type: liveType})
		idx = len(sessions) - 1
	}

	sessions[idx].Status = f1.StatusLive
	sessions[idx].IsLive = true
	sessions[idx].Results = rows
	return sessions, nil
}

// deriveStatus is the schedule-based state machine for sessions that
// were not explicitly detected live.
func deriveStatus(date int64, now time.Time) f1.SessionStatus {
	if date == 0 {
		return f1.StatusUpcoming
	}
	start := time.Unix(date, 0)
	switch {
	case now.Before(start):
		return f1.StatusUpcoming
	case now.Before(start.Add(liveWindow)):
		return f1.StatusLive
	default:
		return f1.StatusFinished
	}
}

// detectLiveSession looks for a live-timing marker on the round page
// and resolves the session it is attached to from nearby text.
func detectLiveSession(doc *goquery.Document) (f1.SessionType, bool) {
	var found f1.SessionType
	doc.Find("a, span, div, p, li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		own := htmlutil.CleanText(s.Text())
		// long blocks are containers, the marker itself is a short badge
		if len(own) > 120 || !liveMarkerRe.MatchString(own) {
			return true
		}

		for _, candidate := range []string{own, htmlutil.CleanText(s.Parent().Text())} {
			if sessionType, ok := NormalizeSessionLabel(candidate); ok {
				found = sessionType
				return false
			}
		}
		return true
	})
	return found, found != ""
}

// fetchLiveStandings renders the live-timing page through the browser
// worker and parses the current standings, resolving any missing
// driver numbers from the season's cached mapping. An unresolvable
// driver code is fatal.
func (c *Client) fetchLiveStandings(ctx context.Context, season int) ([]f1.SessionResult, error) {
	if c.renderer == nil {
		return nil, &FetchError{URL: c.liveTimingUrl, Err: errNoRenderer}
	}

	html, err := c.renderer.Render(ctx, c.liveTimingUrl)
	if err != nil {
		return nil, &FetchError{URL: c.liveTimingUrl, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{Season: season, Msg: "invalid live timing html"}
	}

	rows := parseLiveRows(doc)
	if len(rows) == 0 {
		return nil, &ParseError{Season: season, Msg: "no rows found on live timing page"}
	}

	var numbers map[string]int
	for i := range rows {
		if rows[i].DriverNumber != 0 {
			continue
		}
		if numbers == nil {
			numbers, err = c.drivers.lookup(ctx, season)
			if err != nil {
				return nil, &DriverLookupError{Season: season, Err: err}
			}
		}
		resolved, ok := numbers[rows[i].DriverCode]
		if !ok {
			return nil, &DriverLookupError{Season: season, Code: rows[i].DriverCode}
		}
		rows[i].DriverNumber = resolved
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
	return rows, nil
}

// parseLiveRows reads the live standings table: position, an optional
// car number, the driver cell and the gap/time cell. Unparsable rows
// are skipped.
func parseLiveRows(doc *goquery.Document) []f1.SessionResult {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil
	}

	var rows []f1.SessionResult
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) < 3 {
			return
		}

		result := f1.SessionResult{Position: firstInt(cells[0])}

		driverCell := 1
		if numericCellRe.MatchString(cells[1]) && len(cells) >= 4 {
			result.DriverNumber = firstInt(cells[1])
			driverCell = 2
		}

		rawName := cells[driverCell]
		result.DriverCode = trailingCodeRe.FindString(rawName)
		result.DriverName = strings.TrimSpace(trailingCodeRe.ReplaceAllString(rawName, ""))
		if result.DriverName == "" {
			result.DriverName = rawName
		}
		if driverCell+1 < len(cells) {
			result.Time = cells[driverCell+1]
		}

		rows = append(rows, result)
	})
	return rows
}
