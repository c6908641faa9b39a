package audio

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/bridge"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/monitoring"
)

// Trigger names why a resume pass ran.
type Trigger string

const (
	TriggerAppActive         Trigger = "app_active"
	TriggerInterruptionEnded Trigger = "interruption_ended"
)

// Tracker keeps audio contexts created by the content alive across
// interruptions. It must only be used from the controller's dispatch loop.
type Tracker struct {
	handles       *HandleSet
	evaluator     bridge.Evaluator
	hookInstalled bool
	logger        *zap.Logger
	metrics       *monitoring.Metrics
}

// NewTracker creates a tracker that sends resume instructions through
// evaluator.
func NewTracker(evaluator bridge.Evaluator, logger *zap.Logger, metrics *monitoring.Metrics) *Tracker {
	return &Tracker{
		handles:   NewHandleSet(),
		evaluator: evaluator,
		logger:    logging.OrNop(logger),
		metrics:   metrics,
	}
}

// RegisterCreationHook installs the AudioContext hook at document start in
// all frames. It must run before the first load; later calls are no-ops.
func (t *Tracker) RegisterCreationHook(installer bridge.ScriptInstaller) {
	if t.hookInstalled {
		return
	}
	installer.AddUserScript(bridge.UserScript{
		Source:        HookScript(),
		InjectionTime: bridge.AtDocumentStart,
		MainFrameOnly: false,
	})
	t.hookInstalled = true
	t.logger.Debug("Audio creation hook installed")
}

// HookInstalled reports whether RegisterCreationHook has run.
func (t *Tracker) HookInstalled() bool {
	return t.hookInstalled
}

// HandleMessage records audio registrations from the bridge and ignores
// every other message type.
func (t *Tracker) HandleMessage(msg bridge.Message) {
	switch msg.Type {
	case bridge.TypeAudioContextCreated, bridge.TypeAudioState:
	default:
		return
	}

	id := HandleID(msg.Audio.ID)
	if t.handles.Record(id, PlaybackState(msg.Audio.State)) {
		t.logger.Debug("Audio context tracked",
			zap.Int64("id", int64(id)),
			zap.String("state", msg.Audio.State))
		t.metrics.SetAudioHandles(t.handles.Len())
	}
}

// ResumeAll asks the content to resume every tracked context that is
// suspended or interrupted. It is best-effort: nothing is acknowledged, a
// context that fails to resume is retried on the next trigger, and an empty
// set sends nothing. It returns the number of contexts targeted.
func (t *Tracker) ResumeAll(trigger Trigger) int {
	ids := t.handles.Candidates()
	if len(ids) == 0 {
		return 0
	}

	t.evaluator.EvaluateScript(ResumeScript(ids))
	t.metrics.RecordAudioResume(string(trigger))
	t.logger.Debug("Audio resume requested",
		zap.String("trigger", string(trigger)),
		zap.Int("contexts", len(ids)))
	return len(ids)
}

// Reset forgets all handles. Call it when a new document load is issued;
// the old execution context and its audio contexts are gone.
func (t *Tracker) Reset() {
	if t.handles.Len() == 0 {
		return
	}
	t.handles.Clear()
	t.metrics.SetAudioHandles(0)
}

// Handles exposes the tracked set for inspection.
func (t *Tracker) Handles() *HandleSet {
	return t.handles
}
