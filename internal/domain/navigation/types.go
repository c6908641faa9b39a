package navigation

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

var (
	// ErrEmptyTarget is returned by Start for a target without a URL.
	ErrEmptyTarget = errors.New("navigation: empty load target")
	// ErrInvalidTarget is returned by Start for a URL without a host.
	ErrInvalidTarget = errors.New("navigation: invalid load target")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("navigation: already started")
	// ErrNotStarted is returned by operations that need a target.
	ErrNotStarted = errors.New("navigation: not started")
)

// LoadTarget is the content entry point. It is fixed by Start.
type LoadTarget struct {
	URL     string
	Timeout time.Duration
}

// Parse validates the target and returns its URL.
func (t LoadTarget) Parse() (*url.URL, error) {
	if t.URL == "" {
		return nil, ErrEmptyTarget
	}
	u, err := url.Parse(t.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidTarget, t.URL)
	}
	return u, nil
}

// RetryState is the provisional-failure budget as seen from outside.
type RetryState struct {
	AttemptCount    int
	MaxAttempts     int
	LastFailureKind FailureKind
}

// State is the navigation state machine position.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateProvisionalFailed
	StateNonProvisionalFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateProvisionalFailed:
		return "provisional_failed"
	case StateNonProvisionalFailed:
		return "non_provisional_failed"
	default:
		return "unknown"
	}
}

// StatusKind distinguishes retry progress from budget exhaustion.
type StatusKind int

const (
	StatusRetrying StatusKind = iota
	StatusExhausted
)

func (k StatusKind) String() string {
	if k == StatusExhausted {
		return "exhausted"
	}
	return "retrying"
}

// Status is emitted after every counted provisional failure.
type Status struct {
	Kind        StatusKind
	Attempt     int
	MaxAttempts int
	Delay       time.Duration
	Failure     FailureKind
}

// Decision is the outcome of the navigation allow-list.
type Decision int

const (
	AllowInternal Decision = iota
	DelegateExternal
)

func (d Decision) String() string {
	if d == DelegateExternal {
		return "delegate_external"
	}
	return "allow_internal"
}

// Request is one load issued to the content surface.
type Request struct {
	URL     *url.URL
	Timeout time.Duration
	// Attempt is 0 for the first load and the retry number otherwise.
	Attempt int
}

// Loader issues loads into the primary content surface.
type Loader interface {
	Load(req Request)
}

// Scheduler runs fn on the owner context after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// Opener hands a destination to an external browsing context.
type Opener interface {
	OpenExternal(u *url.URL)
}

// StatusSink receives retry and exhaustion statuses.
type StatusSink interface {
	OnRetryStatus(status Status)
}

// StatusFunc adapts a function to StatusSink.
type StatusFunc func(Status)

// OnRetryStatus calls f.
func (f StatusFunc) OnRetryStatus(status Status) { f(status) }

// Snapshot is a copy of the controller state.
type Snapshot struct {
	State     State
	Retry     RetryState
	Exhausted bool
	Target    string
}
