package lifecycle

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/bridge"
)

// TimerScheduler runs callbacks on a Dispatcher after a delay. Timers never
// block the owner context; when one fires its callback is queued like any
// other task.
type TimerScheduler struct {
	dispatcher bridge.Dispatcher

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	closed bool
}

// NewTimerScheduler creates a scheduler for dispatcher.
func NewTimerScheduler(dispatcher bridge.Dispatcher) *TimerScheduler {
	return &TimerScheduler{
		dispatcher: dispatcher,
		timers:     make(map[*time.Timer]struct{}),
	}
}

// AfterFunc dispatches fn after d. It does nothing once Stop was called.
func (s *TimerScheduler) AfterFunc(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.timers[t]
		delete(s.timers, t)
		s.mu.Unlock()
		if live {
			s.dispatcher.Dispatch(fn)
		}
	})
	s.timers[t] = struct{}{}
}

// Stop cancels every pending timer.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for t := range s.timers {
		t.Stop()
	}
	s.timers = make(map[*time.Timer]struct{})
}

// Pending returns the number of timers that have not fired.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
