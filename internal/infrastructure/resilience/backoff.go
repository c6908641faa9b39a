package resilience

import "time"

// Backoff maps a 1-based attempt number to the delay before that attempt.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// Linear waits attempt × Unit before each retry: 1u, 2u, 3u, ...
//
// Content loads use linear rather than exponential growth: the usual cause
// of a cold offline failure is a service worker that needs a moment to
// activate, not sustained congestion.
type Linear struct {
	Unit time.Duration
}

// Delay returns attempt × Unit; attempts below 1 wait nothing.
func (l Linear) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return time.Duration(attempt) * l.Unit
}

// Budget counts attempts against a fixed maximum. It is not safe for
// concurrent use; the owner serializes access.
type Budget struct {
	max  int
	used int
}

// NewBudget creates a budget allowing max attempts. Negative max is treated
// as zero.
func NewBudget(max int) *Budget {
	if max < 0 {
		max = 0
	}
	return &Budget{max: max}
}

// Spend consumes one attempt. It returns the 1-based attempt number and
// false, without consuming, once the budget is spent.
func (b *Budget) Spend() (int, bool) {
	if b.used >= b.max {
		return b.used, false
	}
	b.used++
	return b.used, true
}

// Reset returns the budget to zero used attempts.
func (b *Budget) Reset() {
	b.used = 0
}

// Used returns the number of attempts consumed.
func (b *Budget) Used() int {
	return b.used
}

// Max returns the attempt limit.
func (b *Budget) Max() int {
	return b.max
}

// Exhausted reports whether no attempts remain.
func (b *Budget) Exhausted() bool {
	return b.used >= b.max
}
