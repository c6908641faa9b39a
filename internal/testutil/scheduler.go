package testutil

import (
	"sort"
	"time"
)

type timer struct {
	at  time.Duration
	seq int
	fn  func()
}

// ManualScheduler is a virtual clock. Callbacks run synchronously from
// Advance, in deadline order.
type ManualScheduler struct {
	now    time.Duration
	seq    int
	timers []timer
}

// NewManualScheduler starts the clock at zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc registers fn to run d after the current virtual time.
func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) {
	s.seq++
	s.timers = append(s.timers, timer{at: s.now + d, seq: s.seq, fn: fn})
}

// Advance moves the clock forward by d and runs every callback that came
// due, including callbacks scheduled by those callbacks.
func (s *ManualScheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		idx := s.next(target)
		if idx < 0 {
			break
		}
		t := s.timers[idx]
		s.timers = append(s.timers[:idx], s.timers[idx+1:]...)
		s.now = t.at
		t.fn()
	}
	s.now = target
}

// Pending returns the delays, relative to now, of callbacks not yet run.
func (s *ManualScheduler) Pending() []time.Duration {
	out := make([]time.Duration, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, t.at-s.now)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Now returns the virtual time.
func (s *ManualScheduler) Now() time.Duration {
	return s.now
}

func (s *ManualScheduler) next(limit time.Duration) int {
	idx := -1
	for i, t := range s.timers {
		if t.at > limit {
			continue
		}
		if idx < 0 || t.at < s.timers[idx].at || (t.at == s.timers[idx].at && t.seq < s.timers[idx].seq) {
			idx = i
		}
	}
	return idx
}
