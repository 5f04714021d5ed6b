package f1web

import (
	"fmt"
	"strings"
)

// FetchError indicates a network or HTTP failure that survived the
// retry bound (transient kinds) or was not worth retrying (other 4xx).
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError indicates an expected page structure was absent or
// unrecognized. It is never retried and is fatal to the current round.
type ParseError struct {
	Season  int
	Round   string
	Session string
	Msg     string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parse season %d", e.Season)
	if e.Round != "" {
		fmt.Fprintf(&b, " round %q", e.Round)
	}
	if e.Session != "" {
		fmt.Fprintf(&b, " session %q", e.Session)
	}
	fmt.Fprintf(&b, ": %s", e.Msg)
	return b.String()
}

// IncompleteDataError indicates a round failed the completeness gate
// after every extraction strategy was tried. Partial rounds are never
// emitted.
type IncompleteDataError struct {
	Season  int
	Round   string
	Missing []string
}

func (e *IncompleteDataError) Error() string {
	return fmt.Sprintf("season %d round %q is incomplete, missing: %s",
		e.Season, e.Round, strings.Join(e.Missing, ", "))
}

// DriverLookupError indicates the season standings were unavailable or
// a driver code could not be resolved during live injection.
type DriverLookupError struct {
	Season int
	Code   string
	Err    error
}

func (e *DriverLookupError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("season %d: cannot resolve driver number for code %q", e.Season, e.Code)
	}
	return fmt.Sprintf("season %d: driver standings unavailable: %v", e.Season, e.Err)
}

func (e *DriverLookupError) Unwrap() error {
	return e.Err
}
