package headless

import (
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/logging"
)

// Splash is a loading surface that logs instead of drawing.
type Splash struct {
	mu       sync.Mutex
	text     string
	stopped  bool
	removed  bool
	animated bool
	logger   *zap.Logger
}

// SplashState is a copy of what the splash would show.
type SplashState struct {
	Text            string `json:"text"`
	ProgressStopped bool   `json:"progress_stopped"`
	Removed         bool   `json:"removed"`
	Animated        bool   `json:"animated"`
}

// NewSplash creates a visible splash.
func NewSplash(logger *zap.Logger) *Splash {
	return &Splash{logger: logging.OrNop(logger).Named("splash")}
}

// SetStatusText shows text under the progress indicator.
func (s *Splash) SetStatusText(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
	s.logger.Info("Status", zap.String("text", text))
}

// StopProgress stops the progress indicator.
func (s *Splash) StopProgress() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.logger.Info("Progress stopped")
}

// Remove takes the splash down.
func (s *Splash) Remove(animated bool) {
	s.mu.Lock()
	s.removed = true
	s.animated = animated
	s.mu.Unlock()
	s.logger.Info("Removed", zap.Bool("animated", animated))
}

// State returns the current splash state.
func (s *Splash) State() SplashState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SplashState{Text: s.text, ProgressStopped: s.stopped, Removed: s.removed, Animated: s.animated}
}
