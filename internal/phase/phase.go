package phase

import "time"

// Phase is one named, fixed-duration segment of a session's scripted timeline.
type Phase struct {
	Name        string
	Duration    time.Duration
	Description string
}

// State is the derived position within a timeline for a given elapsed time.
// When Complete is true, Index and Remaining are zero-valued and meaningless.
type State struct {
	Index     int
	Remaining time.Duration
	Complete  bool
}

// Timeline is an ordered, immutable list of phases with precomputed
// cumulative upper bounds.
type Timeline struct {
	phases []Phase
	bounds []time.Duration // bounds[i] = sum of durations[0..i]
	total  time.Duration
}

// NewTimeline builds a timeline from an ordered phase list. Phases with
// non-positive durations contribute nothing to the cumulative bounds, so a
// fully misconfigured table yields a zero total and an immediately-complete
// timeline rather than a division or range error.
func NewTimeline(phases []Phase) *Timeline {
	t := &Timeline{
		phases: append([]Phase(nil), phases...),
		bounds: make([]time.Duration, len(phases)),
	}
	var cum time.Duration
	for i, p := range phases {
		if p.Duration > 0 {
			cum += p.Duration
		}
		t.bounds[i] = cum
	}
	t.total = cum
	return t
}

// Total is the full session duration, the sum of all phase durations.
func (t *Timeline) Total() time.Duration { return t.total }

// Len is the number of phases.
func (t *Timeline) Len() int { return len(t.phases) }

// Phase returns the phase at index i.
func (t *Timeline) Phase(i int) Phase { return t.phases[i] }

// IndexOf returns the index of the named phase, or -1.
func (t *Timeline) IndexOf(name string) int {
	for i, p := range t.phases {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// At maps elapsed time to the current state. The returned index is the first
// phase whose cumulative upper bound exceeds elapsed; elapsed at or beyond the
// total duration reports Complete instead of an out-of-range index. Negative
// elapsed (clock skew) is treated as zero.
func (t *Timeline) At(elapsed time.Duration) State {
	if elapsed < 0 {
		elapsed = 0
	}
	if t.total <= 0 || elapsed >= t.total {
		return State{Complete: true}
	}
	for i, bound := range t.bounds {
		if elapsed < bound {
			return State{Index: i, Remaining: t.total - elapsed}
		}
	}
	// Unreachable given elapsed < total, but keep the sentinel behaviour.
	return State{Complete: true}
}
