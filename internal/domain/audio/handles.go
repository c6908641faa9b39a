package audio

// HandleID identifies an audio context inside the current document. IDs are
// assigned by the creation hook and restart at 1 for every document.
type HandleID int64

// PlaybackState is the state an audio context last reported.
type PlaybackState string

// Playback states reported by Web Audio contexts. StateUnknown means the
// content never reported one.
const (
	StateUnknown     PlaybackState = ""
	StateRunning     PlaybackState = "running"
	StateSuspended   PlaybackState = "suspended"
	StateInterrupted PlaybackState = "interrupted"
	StateClosed      PlaybackState = "closed"
)

// HandleSet is the host-owned record of audio contexts the content created.
// Entries are only ever added or updated; the whole set is cleared when the
// document that owns them is replaced.
type HandleSet struct {
	states map[HandleID]PlaybackState
	order  []HandleID
}

// NewHandleSet returns an empty set.
func NewHandleSet() *HandleSet {
	return &HandleSet{states: make(map[HandleID]PlaybackState)}
}

// Record adds id or updates its state. It reports whether id was new.
// An empty state never overwrites a known one.
func (s *HandleSet) Record(id HandleID, state PlaybackState) bool {
	prev, exists := s.states[id]
	if !exists {
		s.order = append(s.order, id)
		s.states[id] = state
		return true
	}
	if state != StateUnknown || prev == StateUnknown {
		s.states[id] = state
	}
	return false
}

// State returns the last reported state of id.
func (s *HandleSet) State(id HandleID) (PlaybackState, bool) {
	state, ok := s.states[id]
	return state, ok
}

// Len returns the number of tracked handles.
func (s *HandleSet) Len() int {
	return len(s.order)
}

// Candidates returns, in creation order, every handle that might still be
// resumed. Closed contexts are final and skipped.
func (s *HandleSet) Candidates() []HandleID {
	ids := make([]HandleID, 0, len(s.order))
	for _, id := range s.order {
		if s.states[id] != StateClosed {
			ids = append(ids, id)
		}
	}
	return ids
}

// Clear drops every handle.
func (s *HandleSet) Clear() {
	s.states = make(map[HandleID]PlaybackState)
	s.order = nil
}
