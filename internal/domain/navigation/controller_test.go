package navigation

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/resilience"
)

type scheduled struct {
	delay time.Duration
	fn    func()
}

type fakeScheduler struct {
	pending []scheduled
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) {
	s.pending = append(s.pending, scheduled{delay: d, fn: fn})
}

// fire runs the oldest scheduled callback.
func (s *fakeScheduler) fire(t *testing.T) time.Duration {
	t.Helper()
	require.NotEmpty(t, s.pending, "nothing scheduled")
	next := s.pending[0]
	s.pending = s.pending[1:]
	next.fn()
	return next.delay
}

type fakeLoader struct {
	requests []Request
}

func (l *fakeLoader) Load(req Request) { l.requests = append(l.requests, req) }

type fakeOpener struct {
	opened []string
}

func (o *fakeOpener) OpenExternal(u *url.URL) { o.opened = append(o.opened, u.String()) }

type harness struct {
	ctrl      *Controller
	loader    *fakeLoader
	scheduler *fakeScheduler
	opener    *fakeOpener
	statuses  []Status
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		loader:    &fakeLoader{},
		scheduler: &fakeScheduler{},
		opener:    &fakeOpener{},
	}
	h.ctrl = NewController(Options{
		MaxAttempts: 3,
		Backoff:     resilience.Linear{Unit: time.Second},
		Loader:      h.loader,
		Scheduler:   h.scheduler,
		Opener:      h.opener,
		Status:      StatusFunc(func(s Status) { h.statuses = append(h.statuses, s) }),
	})
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.Start(LoadTarget{URL: "https://bouncengi.net", Timeout: 15 * time.Second}))
}

func TestStartIssuesLoadWithTimeout(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	require.Len(t, h.loader.requests, 1)
	req := h.loader.requests[0]
	assert.Equal(t, "https://bouncengi.net", req.URL.String())
	assert.Equal(t, 15*time.Second, req.Timeout)
	assert.Equal(t, 0, req.Attempt)
	assert.Equal(t, StateLoading, h.ctrl.Snapshot().State)
}

func TestStartValidation(t *testing.T) {
	h := newHarness(t)

	assert.ErrorIs(t, h.ctrl.Start(LoadTarget{}), ErrEmptyTarget)
	assert.ErrorIs(t, h.ctrl.Start(LoadTarget{URL: "not a url"}), ErrInvalidTarget)
	assert.Empty(t, h.loader.requests)

	h.start(t)
	assert.ErrorIs(t, h.ctrl.Start(LoadTarget{URL: "https://other.net"}), ErrAlreadyStarted)
}

func TestProvisionalFailuresBackOffLinearly(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	for n := 1; n <= 3; n++ {
		h.ctrl.OnLoadFailed(FailureOffline)

		snap := h.ctrl.Snapshot()
		assert.Equal(t, n, snap.Retry.AttemptCount)
		require.Len(t, h.statuses, n)
		assert.Equal(t, StatusRetrying, h.statuses[n-1].Kind)
		assert.Equal(t, n, h.statuses[n-1].Attempt)
		assert.Equal(t, 3, h.statuses[n-1].MaxAttempts)

		delay := h.scheduler.fire(t)
		assert.Equal(t, time.Duration(n)*time.Second, delay)
		require.Len(t, h.loader.requests, n+1)
		assert.Equal(t, n, h.loader.requests[n].Attempt)
	}

	// The fourth consecutive failure schedules nothing.
	h.ctrl.OnLoadFailed(FailureOffline)

	assert.Empty(t, h.scheduler.pending)
	require.Len(t, h.statuses, 4)
	assert.Equal(t, StatusExhausted, h.statuses[3].Kind)
	snap := h.ctrl.Snapshot()
	assert.True(t, snap.Exhausted)
	assert.Equal(t, 3, snap.Retry.AttemptCount)
	assert.Equal(t, FailureOffline, snap.Retry.LastFailureKind)

	// Further failures stay silent and never exceed the budget.
	h.ctrl.OnLoadFailed(FailureTimeout)
	assert.Len(t, h.statuses, 4)
	assert.Empty(t, h.scheduler.pending)
	assert.Equal(t, 3, h.ctrl.Snapshot().Retry.AttemptCount)
}

func TestRetryThenSuccessResetsCount(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.ctrl.OnLoadFailed(FailureOffline)
	require.Len(t, h.statuses, 1)
	assert.Equal(t, time.Second, h.scheduler.fire(t))

	h.ctrl.OnLoadSucceeded()

	snap := h.ctrl.Snapshot()
	assert.Equal(t, 0, snap.Retry.AttemptCount)
	assert.Equal(t, StateLoaded, snap.State)
	assert.Len(t, h.statuses, 1, "no status after success")
}

func TestSuccessResetsRegardlessOfCount(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.ctrl.OnLoadFailed(FailureDNS)
	h.scheduler.fire(t)
	h.ctrl.OnLoadFailed(FailureDNS)

	h.ctrl.OnLoadSucceeded()
	h.ctrl.OnLoadSucceeded()

	assert.Equal(t, 0, h.ctrl.Snapshot().Retry.AttemptCount)
}

func TestStaleRetryIsDiscarded(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.ctrl.OnLoadFailed(FailureOffline)
	// The page loads before the retry fires.
	h.ctrl.OnLoadSucceeded()

	h.scheduler.fire(t)

	assert.Len(t, h.loader.requests, 1, "late retry must not reload")
	assert.Equal(t, StateLoaded, h.ctrl.Snapshot().State)
}

func TestStaleRetryAfterReconnectIsDiscarded(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.ctrl.OnLoadFailed(FailureOffline)
	require.NoError(t, h.ctrl.Reconnect())
	h.ctrl.OnLoadFailed(FailureOffline)

	// Both callbacks carry attempt 1; only the one from the current epoch runs.
	h.scheduler.fire(t)
	assert.Len(t, h.loader.requests, 2)
	h.scheduler.fire(t)
	assert.Len(t, h.loader.requests, 3)
}

func TestNonProvisionalFailureIsReportedOnly(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.ctrl.OnLoadSucceeded()

	h.ctrl.OnNonProvisionalLoadFailed(FailureHTTP)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateNonProvisionalFailed, snap.State)
	assert.Equal(t, 0, snap.Retry.AttemptCount)
	assert.Empty(t, h.scheduler.pending)
	assert.Empty(t, h.statuses)
}

func TestCancelledFailureIsNotCounted(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.ctrl.OnLoadFailed(FailureCancelled)

	assert.Equal(t, 0, h.ctrl.Snapshot().Retry.AttemptCount)
	assert.Empty(t, h.scheduler.pending)
}

func TestReconnectClearsExhaustion(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.ctrl.Reconnect(), ErrNotStarted)
	h.start(t)

	for i := 0; i < 3; i++ {
		h.ctrl.OnLoadFailed(FailureOffline)
		h.scheduler.fire(t)
	}
	h.ctrl.OnLoadFailed(FailureOffline)
	require.True(t, h.ctrl.Snapshot().Exhausted)

	require.NoError(t, h.ctrl.Reconnect())

	snap := h.ctrl.Snapshot()
	assert.False(t, snap.Exhausted)
	assert.Equal(t, 0, snap.Retry.AttemptCount)
	assert.Equal(t, StateLoading, snap.State)
	assert.Equal(t, "https://bouncengi.net", h.loader.requests[len(h.loader.requests)-1].URL.String())

	h.ctrl.OnLoadFailed(FailureOffline)
	assert.Len(t, h.scheduler.pending, 1, "budget is available again")
}

func TestEventsBeforeStartAreIgnored(t *testing.T) {
	h := newHarness(t)

	h.ctrl.OnLoadFailed(FailureOffline)
	h.ctrl.OnLoadSucceeded()
	h.ctrl.OnNonProvisionalLoadFailed(FailureHTTP)

	assert.Equal(t, StateIdle, h.ctrl.Snapshot().State)
	assert.Empty(t, h.scheduler.pending)
}

func TestHandleNavigationDelegatesExternal(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	internal, _ := url.Parse("https://cdn.bouncengi.net/level/2")
	external, _ := url.Parse("https://example.com/article")

	assert.Equal(t, AllowInternal, h.ctrl.HandleNavigation(internal))
	assert.Equal(t, DelegateExternal, h.ctrl.HandleNavigation(external))
	assert.Equal(t, []string{"https://example.com/article"}, h.opener.opened)
	assert.Equal(t, AllowInternal, h.ctrl.HandleNavigation(nil))
}

func TestCreateSubordinateRequest(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	shop, _ := url.Parse("https://bouncengi.net/shop")
	ad, _ := url.Parse("https://advertiser.example/landing")

	assert.True(t, h.ctrl.CreateSubordinateRequest(SubordinateRequest{URL: shop}))
	require.Len(t, h.loader.requests, 2)
	assert.Equal(t, "https://bouncengi.net/shop", h.loader.requests[1].URL.String())

	assert.False(t, h.ctrl.CreateSubordinateRequest(SubordinateRequest{URL: shop, HasTargetFrame: true}))
	assert.False(t, h.ctrl.CreateSubordinateRequest(SubordinateRequest{URL: ad}))
	assert.Len(t, h.loader.requests, 2)
	assert.Equal(t, []string{"https://advertiser.example/landing"}, h.opener.opened)
}
