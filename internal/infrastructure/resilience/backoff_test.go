package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinearDelay(t *testing.T) {
	backoff := Linear{Unit: time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: -1, want: 0},
		{attempt: 0, want: 0},
		{attempt: 1, want: time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 3 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, backoff.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestBudgetSpend(t *testing.T) {
	budget := NewBudget(3)

	for want := 1; want <= 3; want++ {
		attempt, ok := budget.Spend()
		assert.True(t, ok)
		assert.Equal(t, want, attempt)
	}

	assert.True(t, budget.Exhausted())

	attempt, ok := budget.Spend()
	assert.False(t, ok)
	assert.Equal(t, 3, attempt)
	assert.Equal(t, 3, budget.Used(), "spending past the limit must not consume")

	budget.Reset()
	assert.Equal(t, 0, budget.Used())
	assert.False(t, budget.Exhausted())
}

func TestBudgetZeroAndNegative(t *testing.T) {
	for _, max := range []int{0, -2} {
		budget := NewBudget(max)
		_, ok := budget.Spend()
		assert.False(t, ok)
		assert.Equal(t, 0, budget.Max())
	}
}
