package f1web

// strategy is one heuristic attempt at extracting a value. ok reports
// whether the strategy produced anything usable.
type strategy[T any] func() (value T, ok bool)

// firstOf tries strategies in order and returns the first value
// produced. The order of the arguments IS the documented extraction
// precedence for the field in question.
func firstOf[T any](strategies ...strategy[T]) (T, bool) {
	for _, try := range strategies {
		if value, ok := try(); ok {
			return value, true
		}
	}
	var zero T
	return zero, false
}
