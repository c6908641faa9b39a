package lifecycle

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/logging"
)

// Loop is the single owner context for controller state. Tasks run one at
// a time in the order they were dispatched. Dispatch never blocks, so it is
// safe from timer callbacks and from within a running task.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	signal chan struct{}
	logger *zap.Logger
}

// NewLoop creates a loop. Tasks queue until Run is called.
func NewLoop(logger *zap.Logger) *Loop {
	return &Loop{
		signal: make(chan struct{}, 1),
		logger: logging.OrNop(logger),
	}
}

// Dispatch queues fn.
func (l *Loop) Dispatch(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// Run executes tasks until ctx is done. A panicking task is logged and the
// loop continues with the next one.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.drain(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.signal:
		}
	}
}

// Do dispatches fn and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Dispatch(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) drain(ctx context.Context) {
	for ctx.Err() == nil {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.run(fn)
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Task panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
}
