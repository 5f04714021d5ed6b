package f1web

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// sportsEvent mirrors the machine-readable event blocks the website
// embeds as JSON-LD. Only the fields the pipeline consumes are
// declared.
type sportsEvent struct {
	Type      string         `json:"@type"`
	Name      string         `json:"name"`
	StartDate string         `json:"startDate"`
	EndDate   string         `json:"endDate"`
	Location  *eventLocation `json:"location"`
}

type eventLocation struct {
	Name    string        `json:"name"`
	Address *eventAddress `json:"address"`
	Geo     *eventGeo     `json:"geo"`
}

type eventAddress struct {
	Locality string `json:"addressLocality"`
	Country  string `json:"addressCountry"`
}

type eventGeo struct {
	Latitude  any `json:"latitude"`
	Longitude any `json:"longitude"`
}

// coordString renders a JSON-LD coordinate, which may arrive as a
// number or a string. Zero values collapse to "" so the caller's
// sentinel handling stays in one place.
func coordString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		if value == "" || value == "0" {
			return ""
		}
		return value
	case float64:
		if value == 0 {
			return ""
		}
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", value), "0"), ".")
	default:
		return ""
	}
}

// sportsEvents scans every JSON-LD script block for SportsEvent
// payloads, accepting both single-object and list forms. Blocks that
// fail to decode are skipped.
func sportsEvents(doc *goquery.Document) []sportsEvent {
	var events []sportsEvent
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}

		if strings.HasPrefix(raw, "[") {
			var list []sportsEvent
			if err := json.Unmarshal([]byte(raw), &list); err != nil {
				return
			}
			for _, item := range list {
				if item.Type == "SportsEvent" {
					events = append(events, item)
				}
			}
			return
		}

		var single sportsEvent
		if err := json.Unmarshal([]byte(raw), &single); err != nil {
			return
		}
		if single.Type == "SportsEvent" {
			events = append(events, single)
		}
	})
	return events
}

// parseEventDate accepts the timestamp formats observed in structured
// event data.
func parseEventDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		ts, err := time.Parse(layout, raw)
		if err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// jsonObjectsWithKey extracts every balanced JSON object in text that
// contains the given quoted key, using a brace-matched scan. The
// matcher tracks string literals so braces inside values do not
// unbalance the walk; it is a heuristic fit for embedded script
// payloads, not a full JSON parser.
func jsonObjectsWithKey(text, key string) []string {
	var objects []string
	offset := 0
	for {
		idx := strings.Index(text[offset:], key)
		if idx < 0 {
			break
		}
		idx += offset

		open := enclosingBrace(text, idx)
		if open < 0 {
			offset = idx + len(key)
			continue
		}
		closing := matchingBrace(text, open)
		if closing < 0 {
			offset = idx + len(key)
			continue
		}
		objects = append(objects, text[open:closing+1])
		offset = closing + 1
	}
	return objects
}

// enclosingBrace walks left from idx to the '{' that opens the object
// containing it.
func enclosingBrace(text string, idx int) int {
	depth := 0
	for i := idx; i >= 0; i-- {
		switch text[i] {
		case '}':
			depth++
		case '{':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// matchingBrace walks right from the opening brace to its balanced
// partner, skipping over string literals.
func matchingBrace(text string, open int) int {
	depth := 0
	inString := false
	for i := open; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch ch {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
