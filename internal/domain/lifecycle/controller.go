package lifecycle

import (
	"errors"
	"net/url"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/audio"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/bridge"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/navigation"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/presentation"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/resilience"
)

var (
	// ErrNoShell is returned by New without a Shell.
	ErrNoShell = errors.New("lifecycle: shell is required")
	// ErrNoSurface is returned by New without a loading Surface.
	ErrNoSurface = errors.New("lifecycle: loading surface is required")
	// ErrNoDispatcher is returned by New without a Dispatcher.
	ErrNoDispatcher = errors.New("lifecycle: dispatcher is required")
)

// Scheduler runs fn on the owner context after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// Deps are the collaborators a Controller is wired to.
type Deps struct {
	Shell      Shell
	Surface    presentation.Surface
	Dispatcher bridge.Dispatcher
	// Scheduler defaults to a TimerScheduler on Dispatcher.
	Scheduler Scheduler
	Logger    *zap.Logger
	Metrics   *monitoring.Metrics
}

// Snapshot is a point-in-time copy of the controller state, safe to read
// from any goroutine.
type Snapshot struct {
	Started      bool                `json:"started"`
	Navigation   navigation.Snapshot `json:"-"`
	State        string              `json:"state"`
	Attempts     int                 `json:"attempts"`
	MaxAttempts  int                 `json:"max_attempts"`
	Exhausted    bool                `json:"exhausted"`
	LastFailure  string              `json:"last_failure,omitempty"`
	Phase        string              `json:"phase"`
	Mode         string              `json:"mode"`
	AudioHandles int                 `json:"audio_handles"`
	Target       string              `json:"target"`
}

// Controller composes navigation, presentation, audio and the bridge, and
// is the entry point for every signal from the shell and the OS. Its
// methods may be called from any goroutine; work runs on the dispatcher.
type Controller struct {
	cfg        config.Config
	shell      Shell
	dispatcher bridge.Dispatcher
	scheduler  Scheduler
	timers     *TimerScheduler

	channel   *bridge.Channel
	nav       *navigation.Controller
	presenter presentation.Presenter
	audio     *audio.Tracker

	started  bool
	snapshot atomic.Pointer[Snapshot]

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// New wires a controller. Nothing is loaded until Start.
func New(cfg config.Config, deps Deps) (*Controller, error) {
	switch {
	case deps.Shell == nil:
		return nil, ErrNoShell
	case deps.Surface == nil:
		return nil, ErrNoSurface
	case deps.Dispatcher == nil:
		return nil, ErrNoDispatcher
	}

	logger := logging.OrNop(deps.Logger)
	c := &Controller{
		cfg:        cfg,
		shell:      deps.Shell,
		dispatcher: deps.Dispatcher,
		logger:     logger.Named("lifecycle"),
		metrics:    deps.Metrics,
	}

	inner := deps.Scheduler
	if inner == nil {
		c.timers = NewTimerScheduler(deps.Dispatcher)
		inner = c.timers
	}
	c.scheduler = publishing{inner: inner, publish: c.publish}

	opts := presentation.OptionsFrom(cfg.Presentation)
	opts.Scheduler = c.scheduler
	opts.Logger = logger.Named("presentation")
	opts.Metrics = deps.Metrics
	presenter, err := presentation.New(cfg.Presentation.Mode, deps.Surface, opts)
	if err != nil {
		return nil, err
	}
	c.presenter = presenter

	c.audio = audio.NewTracker(deps.Shell, logger.Named("audio"), deps.Metrics)
	c.channel = bridge.NewChannel(deps.Dispatcher, deps.Shell, c.onMessage, logger.Named("bridge"), deps.Metrics)
	c.nav = navigation.NewController(navigation.Options{
		MaxAttempts:      cfg.Retry.MaxAttempts,
		Backoff:          resilience.Linear{Unit: cfg.Retry.BackoffUnit},
		AuxiliaryDomains: cfg.Content.AllowedDomains,
		Loader:           loaderFunc(c.load),
		Scheduler:        c.scheduler,
		Opener:           deps.Shell,
		Status:           presenter,
		Logger:           logger.Named("navigation"),
		Metrics:          deps.Metrics,
	})

	c.publish()
	return c, nil
}

// Start installs the content scripts and issues the first load. The
// target is validated before anything is dispatched.
func (c *Controller) Start() error {
	target := navigation.LoadTarget{URL: c.cfg.Content.URL, Timeout: c.cfg.Content.Timeout}
	if _, err := target.Parse(); err != nil {
		return err
	}

	c.dispatch(func() {
		if c.started {
			return
		}
		c.started = true
		c.audio.RegisterCreationHook(c.shell)
		if c.cfg.Content.CompatScript != "" {
			c.shell.AddUserScript(bridge.UserScript{
				Source:        c.cfg.Content.CompatScript,
				InjectionTime: bridge.AtDocumentEnd,
				MainFrameOnly: true,
			})
		}
		if err := c.nav.Start(target); err != nil {
			c.logger.Error("Failed to start navigation", zap.Error(err))
		}
	})
	return nil
}

// ApplicationBecameActive resumes interrupted audio.
func (c *Controller) ApplicationBecameActive() {
	c.dispatch(func() { c.audio.ResumeAll(audio.TriggerAppActive) })
}

// AudioInterruptionEnded resumes interrupted audio.
func (c *Controller) AudioInterruptionEnded() {
	c.dispatch(func() { c.audio.ResumeAll(audio.TriggerInterruptionEnded) })
}

// DidFinishLoad reports that the main frame finished loading.
func (c *Controller) DidFinishLoad() {
	c.dispatch(func() {
		c.nav.OnLoadSucceeded()
		c.presenter.OnLoadFinished()
		c.shell.EvaluateScript(ViewportScript)
	})
}

// DidFailProvisionalLoad reports a failure before any content arrived.
func (c *Controller) DidFailProvisionalLoad(kind navigation.FailureKind) {
	c.dispatch(func() { c.nav.OnLoadFailed(kind) })
}

// DidFailLoad reports a failure after content began loading.
func (c *Controller) DidFailLoad(kind navigation.FailureKind) {
	c.dispatch(func() { c.nav.OnNonProvisionalLoadFailed(kind) })
}

// DecidePolicy decides a navigation and reports the result through
// decide, on the owner context. External destinations are already handed
// to the shell's opener when decide runs; the shell cancels its own
// navigation.
func (c *Controller) DecidePolicy(u *url.URL, decide func(navigation.Decision)) {
	c.dispatch(func() {
		d := c.nav.HandleNavigation(u)
		if decide != nil {
			decide(d)
		}
	})
}

// CreateWindow handles a request for a secondary browsing context. No
// second surface is created; untargeted requests load in the primary one.
func (c *Controller) CreateWindow(u *url.URL, hasTargetFrame bool) {
	c.dispatch(func() {
		c.nav.CreateSubordinateRequest(navigation.SubordinateRequest{URL: u, HasTargetFrame: hasTargetFrame})
	})
}

// ReceiveScriptMessage accepts a raw bridge message from the content.
func (c *Controller) ReceiveScriptMessage(raw []byte) {
	c.channel.Receive(raw)
}

// Reconnect resets the retry budget and reloads the content.
func (c *Controller) Reconnect() {
	c.dispatch(func() {
		if err := c.nav.Reconnect(); err != nil {
			c.logger.Warn("Reconnect ignored", zap.Error(err))
		}
	})
}

// Hide removes the loading surface regardless of strategy.
func (c *Controller) Hide(animated bool) {
	c.dispatch(func() { c.presenter.Hide(animated) })
}

// Snapshot returns the state as of the last completed task.
func (c *Controller) Snapshot() Snapshot {
	return *c.snapshot.Load()
}

// Close stops pending timers owned by the controller.
func (c *Controller) Close() {
	if c.timers != nil {
		c.timers.Stop()
	}
}

func (c *Controller) onMessage(msg bridge.Message) {
	switch msg.Type {
	case bridge.TypeAudioContextCreated, bridge.TypeAudioState:
		c.audio.HandleMessage(msg)
	default:
		c.presenter.OnBridgeMessage(msg)
	}
	c.publish()
}

// load issues a document load. The old document's audio contexts go with
// it.
func (c *Controller) load(req navigation.Request) {
	c.audio.Reset()
	c.shell.Load(req)
}

func (c *Controller) dispatch(fn func()) {
	c.dispatcher.Dispatch(func() {
		fn()
		c.publish()
	})
}

func (c *Controller) publish() {
	nav := c.nav.Snapshot()
	c.snapshot.Store(&Snapshot{
		Started:      c.started,
		Navigation:   nav,
		State:        nav.State.String(),
		Attempts:     nav.Retry.AttemptCount,
		MaxAttempts:  nav.Retry.MaxAttempts,
		Exhausted:    nav.Exhausted,
		LastFailure:  string(nav.Retry.LastFailureKind),
		Phase:        c.presenter.Phase().String(),
		Mode:         c.presenter.Mode(),
		AudioHandles: c.audio.Handles().Len(),
		Target:       nav.Target,
	})
}

type loaderFunc func(navigation.Request)

func (f loaderFunc) Load(req navigation.Request) { f(req) }

// publishing republishes the snapshot after every timer callback.
type publishing struct {
	inner   Scheduler
	publish func()
}

func (p publishing) AfterFunc(d time.Duration, fn func()) {
	p.inner.AfterFunc(d, func() {
		fn()
		p.publish()
	})
}
