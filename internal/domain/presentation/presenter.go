package presentation

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/bridge"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/navigation"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/monitoring"
)

// ErrUnknownMode is returned by New for an unsupported strategy name.
var ErrUnknownMode = errors.New("presentation: unknown mode")

// Phase is the native loading surface state. It only moves forward.
type Phase int

const (
	PhasePending Phase = iota
	PhaseContentVisible
	PhaseHidden
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseContentVisible:
		return "content_visible"
	case PhaseHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// Surface is the native loading view.
type Surface interface {
	SetStatusText(text string)
	StopProgress()
	Remove(animated bool)
}

// Scheduler runs fn on the owner context after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// Presenter coordinates the native loading surface with the content.
// Implementations are not safe for concurrent use.
type Presenter interface {
	OnBridgeMessage(msg bridge.Message)
	OnRetryStatus(status navigation.Status)
	OnLoadFinished()
	Hide(animated bool)
	Phase() Phase
	Mode() string
}

// Options tunes a Presenter.
type Options struct {
	DOMReadyGrace     time.Duration
	FallbackHideDelay time.Duration
	// SafetyTimeout force-hides the surface this long after the first
	// finished load. Zero disables it.
	SafetyTimeout time.Duration
	Animated      bool

	Scheduler Scheduler
	Logger    *zap.Logger
	Metrics   *monitoring.Metrics
}

// OptionsFrom maps the presentation config section onto Options.
func OptionsFrom(cfg config.PresentationConfig) Options {
	return Options{
		DOMReadyGrace:     cfg.DOMReadyGrace,
		FallbackHideDelay: cfg.FallbackHideDelay,
		SafetyTimeout:     cfg.SafetyTimeout,
		Animated:          cfg.Animated,
	}
}

// New returns the strategy named by mode: config.ModeBridge or
// config.ModePaint.
func New(mode string, surface Surface, opts Options) (Presenter, error) {
	switch mode {
	case config.ModeBridge:
		return NewBridgeHandoff(surface, opts), nil
	case config.ModePaint:
		return NewPaintFallback(surface, opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// core holds the phase machine both strategies share.
type core struct {
	phase     Phase
	surface   Surface
	scheduler Scheduler
	opts      Options
	safety    bool
	logger    *zap.Logger
	metrics   *monitoring.Metrics
}

func newCore(surface Surface, opts Options, name string) *core {
	return &core{
		surface:   surface,
		scheduler: opts.Scheduler,
		opts:      opts,
		logger:    logging.OrNop(opts.Logger).With(zap.String("mode", name)),
		metrics:   opts.Metrics,
	}
}

func (c *core) Phase() Phase {
	return c.phase
}

// advance moves to a later phase. It reports false when to is not ahead.
func (c *core) advance(to Phase) bool {
	if to <= c.phase {
		return false
	}
	c.logger.Debug("Loading phase changed",
		zap.Stringer("from", c.phase),
		zap.Stringer("to", to))
	c.phase = to
	c.metrics.RecordPhaseTransition(to.String())
	return true
}

// Hide removes the native surface exactly once.
func (c *core) Hide(animated bool) {
	if !c.advance(PhaseHidden) {
		return
	}
	c.surface.Remove(animated)
}

func (c *core) OnRetryStatus(status navigation.Status) {
	if c.phase == PhaseHidden {
		return
	}
	c.surface.SetStatusText(StatusText(status))
	if status.Kind == navigation.StatusExhausted {
		c.surface.StopProgress()
	}
}

func (c *core) after(d time.Duration, fn func()) {
	if d <= 0 || c.scheduler == nil {
		fn()
		return
	}
	c.scheduler.AfterFunc(d, fn)
}

// armSafety starts the optional force-hide timer once.
func (c *core) armSafety() {
	if c.safety || c.opts.SafetyTimeout <= 0 || c.phase == PhaseHidden {
		return
	}
	c.safety = true
	c.after(c.opts.SafetyTimeout, func() {
		if c.phase == PhaseHidden {
			return
		}
		c.logger.Warn("Loading surface still visible, forcing hide",
			zap.Duration("timeout", c.opts.SafetyTimeout))
		c.Hide(c.opts.Animated)
	})
}

// StatusText is the connectivity message shown for a retry status.
func StatusText(status navigation.Status) string {
	if status.Kind == navigation.StatusExhausted {
		return "No connection. Check your network and try again."
	}
	return fmt.Sprintf("No connection. Retrying (%d/%d)…", status.Attempt, status.MaxAttempts)
}
