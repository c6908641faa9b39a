package navigation

import (
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/resilience"
)

// Load triggers, used for logging and metrics.
const (
	TriggerStart       = "start"
	TriggerRetry       = "retry"
	TriggerReconnect   = "reconnect"
	TriggerSubordinate = "subordinate"
)

// Options configures a Controller. Loader and Scheduler are required.
type Options struct {
	MaxAttempts      int
	Backoff          resilience.Backoff
	AuxiliaryDomains []string

	Loader    Loader
	Scheduler Scheduler
	Opener    Opener
	Status    StatusSink

	Logger  *zap.Logger
	Metrics *monitoring.Metrics
}

// Controller drives the content load and recovers from provisional
// failures with linear backoff. It is not safe for concurrent use: every
// method, and every callback the Scheduler runs, must execute on the owner
// context.
type Controller struct {
	loader    Loader
	scheduler Scheduler
	opener    Opener
	status    StatusSink
	backoff   resilience.Backoff
	budget    *resilience.Budget
	auxiliary []string
	policy    *Policy

	target      LoadTarget
	entry       *url.URL
	started     bool
	state       State
	exhausted   bool
	lastFailure FailureKind
	// epoch advances whenever the budget is reset, so retries scheduled
	// against an older budget are discarded.
	epoch uint64

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewController creates an idle controller.
func NewController(opts Options) *Controller {
	backoff := opts.Backoff
	if backoff == nil {
		backoff = resilience.Linear{Unit: time.Second}
	}
	aux := opts.AuxiliaryDomains
	if aux == nil {
		aux = DefaultAuxiliaryDomains
	}
	return &Controller{
		loader:    opts.Loader,
		scheduler: opts.Scheduler,
		opener:    opts.Opener,
		status:    opts.Status,
		backoff:   backoff,
		budget:    resilience.NewBudget(opts.MaxAttempts),
		auxiliary: aux,
		policy:    NewPolicy(aux...),
		logger:    logging.OrNop(opts.Logger),
		metrics:   opts.Metrics,
	}
}

// SetStatusSink replaces the status receiver. Call before Start.
func (c *Controller) SetStatusSink(sink StatusSink) {
	c.status = sink
}

// Start fixes the target and issues the first load.
func (c *Controller) Start(target LoadTarget) error {
	if c.started {
		return ErrAlreadyStarted
	}
	entry, err := target.Parse()
	if err != nil {
		return err
	}

	c.target = target
	c.entry = entry
	c.started = true
	c.policy = NewPolicy(append([]string{contentDomain(entry.Host)}, c.auxiliary...)...)

	c.logger.Info("Starting content load",
		zap.String("url", target.URL),
		zap.Duration("timeout", target.Timeout),
		zap.Int("max_attempts", c.budget.Max()))
	c.issue(c.entry, 0, TriggerStart)
	return nil
}

// OnLoadSucceeded resets the retry budget. Any retry still scheduled is
// discarded when it fires.
func (c *Controller) OnLoadSucceeded() {
	if !c.started {
		return
	}
	if c.state == StateLoaded && c.budget.Used() == 0 && !c.exhausted {
		return
	}
	if c.budget.Used() > 0 || c.exhausted {
		c.logger.Info("Content loaded after failures",
			zap.Int("attempts", c.budget.Used()),
			zap.Bool("was_exhausted", c.exhausted))
	}

	c.resetBudget()
	c.state = StateLoaded
	c.metrics.RecordLoadOutcome("success", "")
}

// OnLoadFailed handles a failure before any content arrived. Each failure
// spends one attempt and schedules a retry after attempt × unit; a failure
// arriving with the budget spent emits StatusExhausted and schedules
// nothing. Cancelled loads were superseded by another navigation and are
// not counted.
func (c *Controller) OnLoadFailed(kind FailureKind) {
	if !c.started {
		return
	}
	c.metrics.RecordLoadOutcome("provisional_failure", string(kind))
	if kind == FailureCancelled {
		c.logger.Debug("Ignoring cancelled load")
		return
	}
	if c.exhausted {
		c.logger.Debug("Load failed after retry budget exhausted", zap.String("kind", string(kind)))
		return
	}

	c.state = StateProvisionalFailed
	c.lastFailure = kind

	attempt, ok := c.budget.Spend()
	if !ok {
		c.exhausted = true
		c.metrics.IncRetryBudgetExhausted()
		c.logger.Warn("Retry budget exhausted",
			zap.String("kind", string(kind)),
			zap.Int("attempts", attempt))
		c.emit(Status{
			Kind:        StatusExhausted,
			Attempt:     attempt,
			MaxAttempts: c.budget.Max(),
			Failure:     kind,
		})
		return
	}

	delay := c.backoff.Delay(attempt)
	epoch := c.epoch
	c.scheduler.AfterFunc(delay, func() { c.retry(epoch, attempt) })
	c.metrics.IncRetriesScheduled()

	c.logger.Info("Load failed, retry scheduled",
		zap.String("kind", string(kind)),
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", c.budget.Max()),
		zap.Duration("delay", delay))
	c.emit(Status{
		Kind:        StatusRetrying,
		Attempt:     attempt,
		MaxAttempts: c.budget.Max(),
		Delay:       delay,
		Failure:     kind,
	})
}

// OnNonProvisionalLoadFailed records a failure after content began loading.
// The content is assumed to recover on its own: no budget is spent and no
// retry is scheduled.
func (c *Controller) OnNonProvisionalLoadFailed(kind FailureKind) {
	if !c.started {
		return
	}
	c.state = StateNonProvisionalFailed
	c.lastFailure = kind
	c.metrics.RecordLoadOutcome("failure", string(kind))
	c.logger.Warn("Navigation failed after content loaded", zap.String("kind", string(kind)))
}

// DecideNavigation applies the allow-list to a destination authority.
func (c *Controller) DecideNavigation(authority string) Decision {
	d := c.policy.Decide(authority)
	c.metrics.RecordNavigationDecision(d.String())
	return d
}

// HandleNavigation decides u and, when it must leave the surface, hands it
// to the external opener. The caller cancels the internal navigation on
// DelegateExternal.
func (c *Controller) HandleNavigation(u *url.URL) Decision {
	if u == nil {
		return AllowInternal
	}
	d := c.DecideNavigation(u.Host)
	if d == DelegateExternal {
		c.logger.Info("Delegating navigation", zap.String("url", u.Redacted()))
		if c.opener != nil {
			c.opener.OpenExternal(u)
		}
	}
	return d
}

// SubordinateRequest is the content asking for a secondary browsing
// context, e.g. window.open or a target=_blank link.
type SubordinateRequest struct {
	URL *url.URL
	// HasTargetFrame is true when an existing frame will receive the load.
	HasTargetFrame bool
}

// CreateSubordinateRequest loads a request that has no target frame in the
// primary surface. A second surface is never created. It reports whether a
// load was issued; external destinations are delegated instead.
func (c *Controller) CreateSubordinateRequest(req SubordinateRequest) bool {
	if req.HasTargetFrame || req.URL == nil || !c.started {
		return false
	}
	if c.HandleNavigation(req.URL) == DelegateExternal {
		return false
	}
	c.issue(req.URL, 0, TriggerSubordinate)
	return true
}

// Reconnect resets the budget, clears exhaustion and reissues the entry
// load. It is the only way out of the exhausted state besides a load that
// succeeds on its own.
func (c *Controller) Reconnect() error {
	if !c.started {
		return ErrNotStarted
	}
	c.logger.Info("Reconnecting", zap.Bool("was_exhausted", c.exhausted))
	c.resetBudget()
	c.issue(c.entry, 0, TriggerReconnect)
	return nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		State: c.state,
		Retry: RetryState{
			AttemptCount:    c.budget.Used(),
			MaxAttempts:     c.budget.Max(),
			LastFailureKind: c.lastFailure,
		},
		Exhausted: c.exhausted,
		Target:    c.target.URL,
	}
}

func (c *Controller) retry(epoch uint64, attempt int) {
	if epoch != c.epoch || attempt != c.budget.Used() || c.state != StateProvisionalFailed || c.exhausted {
		c.logger.Debug("Discarding stale retry",
			zap.Uint64("epoch", epoch),
			zap.Int("attempt", attempt))
		return
	}
	c.issue(c.entry, attempt, TriggerRetry)
}

func (c *Controller) issue(u *url.URL, attempt int, trigger string) {
	c.state = StateLoading
	c.metrics.RecordLoadAttempt(trigger)
	c.logger.Debug("Issuing load",
		zap.String("url", u.Redacted()),
		zap.String("trigger", trigger),
		zap.Int("attempt", attempt))
	c.loader.Load(Request{URL: u, Timeout: c.target.Timeout, Attempt: attempt})
}

func (c *Controller) resetBudget() {
	c.budget.Reset()
	c.exhausted = false
	c.epoch++
}

func (c *Controller) emit(status Status) {
	if c.status != nil {
		c.status.OnRetryStatus(status)
	}
}
