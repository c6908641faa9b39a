package presentation

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/bridge"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/config"
)

// BridgeHandoff hands the loading experience to the content: dom_ready
// marks the content visible, loading_text mirrors its narration, and
// web_loading_hidden removes the native surface.
type BridgeHandoff struct {
	*core
	text *TextSanitizer
}

// NewBridgeHandoff creates the bridge-driven strategy.
func NewBridgeHandoff(surface Surface, opts Options) *BridgeHandoff {
	return &BridgeHandoff{
		core: newCore(surface, opts, config.ModeBridge),
		text: NewTextSanitizer(),
	}
}

// Mode returns config.ModeBridge.
func (b *BridgeHandoff) Mode() string { return config.ModeBridge }

// OnBridgeMessage applies one content message.
func (b *BridgeHandoff) OnBridgeMessage(msg bridge.Message) {
	switch msg.Type {
	case bridge.TypeDOMReady:
		b.after(b.opts.DOMReadyGrace, func() {
			if b.phase == PhasePending {
				b.advance(PhaseContentVisible)
			}
		})
	case bridge.TypeLoadingText:
		if b.phase == PhaseHidden {
			return
		}
		text := b.text.Sanitize(msg.Text)
		if text == "" {
			return
		}
		b.surface.SetStatusText(text)
	case bridge.TypeWebLoadingHidden:
		b.Hide(b.opts.Animated)
	default:
		b.logger.Debug("Ignoring bridge message", zap.String("type", string(msg.Type)))
	}
}

// OnLoadFinished arms the safety timeout when one is configured. The
// surface otherwise waits for the content.
func (b *BridgeHandoff) OnLoadFinished() {
	b.armSafety()
}
