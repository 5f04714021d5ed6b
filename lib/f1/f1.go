// Package f1 holds the canonical data model emitted by the fetcher:
// seasons, rounds, circuits, sessions and per-session results. The
// field layout mirrors what the data scheduler persists; entities are
// assembled once per extraction run and never mutated afterwards.
package f1

import (
	"math"
	"time"
)

type SeasonStatus string

const (
	SeasonCompleted  SeasonStatus = "completed"
	SeasonInProgress SeasonStatus = "in_progress"
	SeasonUpcoming   SeasonStatus = "upcoming"
)

// StatusForYear derives a season's lifecycle status from the current
// date.
func StatusForYear(year int, now time.Time) SeasonStatus {
	switch {
	case year < now.Year():
		return SeasonCompleted
	case year == now.Year():
		return SeasonInProgress
	default:
		return SeasonUpcoming
	}
}

type Season struct {
	Year         int          `json:"year"`
	Status       SeasonStatus `json:"status"`
	Rounds       int          `json:"rounds"`
	CurrentRound int          `json:"current_round"`
	TotalDrivers int          `json:"total_drivers"`
	TotalTeams   int          `json:"total_teams"`
	StartDate    int64        `json:"start_date"`
	EndDate      int64        `json:"end_date"`
}

// NewSeason builds a season record with Jan 1 / Dec 31 bounds; the
// counters are filled in by the scheduler as rounds arrive.
func NewSeason(year int, now time.Time) Season {
	return Season{
		Year:      year,
		Status:    StatusForYear(year, now),
		StartDate: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Unix(),
		EndDate:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).Unix(),
	}
}

type SessionType string

const (
	SessionPractice1        SessionType = "practice_1"
	SessionPractice2        SessionType = "practice_2"
	SessionPractice3        SessionType = "practice_3"
	SessionQualifying       SessionType = "qualifying"
	SessionSprintQualifying SessionType = "sprint_qualifying"
	SessionSprint           SessionType = "sprint"
	SessionRace             SessionType = "race"
)

// SessionTypes lists every canonical session type.
var SessionTypes = []SessionType{
	SessionPractice1,
	SessionPractice2,
	SessionPractice3,
	SessionQualifying,
	SessionSprintQualifying,
	SessionSprint,
	SessionRace,
}

func (t SessionType) Valid() bool {
	for _, known := range SessionTypes {
		if t == known {
			return true
		}
	}
	return false
}

type SessionStatus string

const (
	StatusUpcoming SessionStatus = "upcoming"
	StatusLive     SessionStatus = "live"
	StatusFinished SessionStatus = "finished"
)

type SessionResult struct {
	Position     int    `json:"position"`
	DriverNumber int    `json:"driver_number"`
	DriverName   string `json:"driver_name"`
	DriverCode   string `json:"driver_code"`
	Team         string `json:"team"`
	Time         string `json:"time"`
	Laps         int    `json:"laps"`
}

type Session struct {
	Type       SessionType     `json:"type"`
	Date       int64           `json:"date"`
	TotalLaps  int             `json:"total_laps"`
	CurrentLap int             `json:"current_lap"`
	IsLive     bool            `json:"is_live"`
	Status     SessionStatus   `json:"status"`
	Results    []SessionResult `json:"results"`
}

type Circuit struct {
	Name     string `json:"name"`
	Locality string `json:"locality"`
	Country  string `json:"country"`
	Lat      string `json:"lat"`
	Long     string `json:"long"`
	Laps     int    `json:"laps"`
	Image    []byte `json:"image"`
}

type Round struct {
	RoundID   int       `json:"round_id"`
	Name      string    `json:"name"`
	Season    int       `json:"season"`
	Circuit   Circuit   `json:"circuit"`
	FirstDate int64     `json:"first_date"`
	EndDate   int64     `json:"end_date"`
	Sessions  []Session `json:"sessions"`
}

// ValidEpoch reports whether ts is a usable unix timestamp: non-zero
// and within the signed 32-bit range the scheduler stores.
func ValidEpoch(ts int64) bool {
	return ts > 0 && ts <= math.MaxInt32
}

// coordinate "0" is a sentinel for unknown, not a valid value
func validCoordinate(c string) bool {
	return c != "" && c != "0"
}

// MissingFields returns the names of required round fields that are
// absent or carry sentinel values. An empty result means the round
// passes the completeness gate.
func (r Round) MissingFields() []string {
	var missing []string
	if r.Name == "" {
		missing = append(missing, "name")
	}
	if r.Circuit.Name == "" {
		missing = append(missing, "circuit_name")
	}
	if r.Circuit.Laps <= 0 {
		missing = append(missing, "laps")
	}
	if !validCoordinate(r.Circuit.Lat) {
		missing = append(missing, "lat")
	}
	if !validCoordinate(r.Circuit.Long) {
		missing = append(missing, "long")
	}
	if r.Circuit.Locality == "" {
		missing = append(missing, "locality")
	}
	if r.Circuit.Country == "" {
		missing = append(missing, "country")
	}
	if !ValidEpoch(r.FirstDate) {
		missing = append(missing, "first_date")
	}
	if !ValidEpoch(r.EndDate) {
		missing = append(missing, "end_date")
	}
	return missing
}

// CheckSessions enforces the per-round session invariants: types are
// unique and at most one session is marked live.
func (r Round) CheckSessions() error {
	seen := map[SessionType]bool{}
	live := 0
	for _, s := range r.Sessions {
		if seen[s.Type] {
			return &DuplicateSessionError{Round: r.Name, Type: s.Type}
		}
		seen[s.Type] = true
		if s.IsLive {
			live++
		}
	}
	if live > 1 {
		return &MultipleLiveError{Round: r.Name, Count: live}
	}
	return nil
}
