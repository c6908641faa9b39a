package presentation

import (
	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/bridge"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/config"
)

// PaintFallback is for content without the bridge: the surface is hidden
// shortly after the first load finishes.
type PaintFallback struct {
	*core
	scheduled bool
}

// NewPaintFallback creates the timer-driven strategy.
func NewPaintFallback(surface Surface, opts Options) *PaintFallback {
	return &PaintFallback{core: newCore(surface, opts, config.ModePaint)}
}

// Mode returns config.ModePaint.
func (p *PaintFallback) Mode() string { return config.ModePaint }

// OnBridgeMessage ignores content messages.
func (p *PaintFallback) OnBridgeMessage(bridge.Message) {}

// OnLoadFinished schedules the hide once.
func (p *PaintFallback) OnLoadFinished() {
	if p.scheduled || p.phase == PhaseHidden {
		return
	}
	p.scheduled = true
	p.after(p.opts.FallbackHideDelay, func() { p.Hide(p.opts.Animated) })
}
