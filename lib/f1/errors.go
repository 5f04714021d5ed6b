package f1

import "fmt"

// DuplicateSessionError indicates a round carried the same session
// type twice.
type DuplicateSessionError struct {
	Round string
	Type  SessionType
}

func (e *DuplicateSessionError) Error() string {
	return fmt.Sprintf("round %q has duplicate session type %q", e.Round, e.Type)
}

// MultipleLiveError indicates more than one session in a round was
// marked live.
type MultipleLiveError struct {
	Round string
	Count int
}

func (e *MultipleLiveError) Error() string {
	return fmt.Sprintf("round %q has %d live sessions, at most one is allowed", e.Round, e.Count)
}
