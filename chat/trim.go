package chat

import "chefkit/core"

// DefaultWindow is the number of most recent turns forwarded to the backend.
const DefaultWindow = 6

// TrimWindow returns the last window turns in original order, or all of them
// when fewer exist. The input slice is not mutated.
func TrimWindow(turns []core.Turn, window int) []core.Turn {
	if window <= 0 || len(turns) <= window {
		out := make([]core.Turn, len(turns))
		copy(out, turns)
		return out
	}
	out := make([]core.Turn, window)
	copy(out, turns[len(turns)-window:])
	return out
}
