package ws

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/bridge"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/lifecycle"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/navigation"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/shared/id"
)

// outboundBuffer bounds commands queued for a slow shell.
const outboundBuffer = 256

// Session is one remote shell with its own controller. It is the
// controller's Shell and loading Surface: every call becomes a command on
// the connection.
type Session struct {
	ID      id.SessionID
	ConnID  string
	Created time.Time

	ctrl *lifecycle.Controller
	loop *lifecycle.Loop

	out       chan Command
	done      chan struct{}
	closeOnce sync.Once

	overflow     chan struct{}
	overflowOnce sync.Once

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// SessionInfo describes a session for listings.
type SessionInfo struct {
	ID         string             `json:"id"`
	Connection string             `json:"connection"`
	Created    time.Time          `json:"created"`
	State      lifecycle.Snapshot `json:"state"`
}

// NewSession wires a controller for a new connection. Run must be called
// before Start.
func NewSession(cfg config.Config, logger *zap.Logger, metrics *monitoring.Metrics) (*Session, error) {
	sid := id.NewSessionID()
	connID := uuid.NewString()
	log := logging.OrNop(logger).With(zap.String("session", sid.String()), zap.String("conn", connID))

	s := &Session{
		ID:       sid,
		ConnID:   connID,
		Created:  time.Now(),
		loop:     lifecycle.NewLoop(log),
		out:      make(chan Command, outboundBuffer),
		done:     make(chan struct{}),
		overflow: make(chan struct{}),
		logger:   log,
		metrics:  metrics,
	}

	ctrl, err := lifecycle.New(cfg, lifecycle.Deps{
		Shell:      s,
		Surface:    s,
		Dispatcher: s.loop,
		Logger:     log,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, err
	}
	s.ctrl = ctrl
	return s, nil
}

// Run processes the session's controller tasks until ctx is done.
func (s *Session) Run(ctx context.Context) {
	_ = s.loop.Run(ctx)
}

// Start begins loading the content.
func (s *Session) Start() error {
	return s.ctrl.Start()
}

// Outbound is the stream of commands for the shell.
func (s *Session) Outbound() <-chan Command {
	return s.out
}

// Controller exposes the session's controller.
func (s *Session) Controller() *lifecycle.Controller {
	return s.ctrl
}

// Info returns a listing entry.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:         s.ID.String(),
		Connection: s.ConnID,
		Created:    s.Created,
		State:      s.ctrl.Snapshot(),
	}
}

// Handle applies one shell event.
func (s *Session) Handle(ev Event) {
	switch ev.Type {
	case EventDidFinish:
		s.ctrl.DidFinishLoad()
	case EventDidFailProvisional:
		s.ctrl.DidFailProvisionalLoad(navigation.ParseFailureKind(ev.Kind))
	case EventDidFail:
		s.ctrl.DidFailLoad(navigation.ParseFailureKind(ev.Kind))
	case EventDecidePolicy:
		u, err := ev.ParsedURL()
		if err != nil {
			s.sendError(err.Error())
			return
		}
		s.ctrl.DecidePolicy(u, func(d navigation.Decision) {
			s.send(Command{Type: CommandPolicy, ID: ev.ID, Decision: d.String()})
		})
	case EventCreateWindow:
		u, err := ev.ParsedURL()
		if err != nil {
			s.sendError(err.Error())
			return
		}
		s.ctrl.CreateWindow(u, ev.HasTargetFrame)
	case EventScriptMessage:
		s.ctrl.ReceiveScriptMessage(ev.Message)
	case EventAppActive:
		s.ctrl.ApplicationBecameActive()
	case EventAudioInterruptionEnded:
		s.ctrl.AudioInterruptionEnded()
	case EventReconnect:
		s.ctrl.Reconnect()
	case EventPing:
		s.send(Command{Type: CommandPong})
	default:
		s.sendError("unknown event type: " + ev.Type)
	}
}

// Close stops timers and the outbound stream.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.ctrl.Close()
		close(s.done)
	})
}

// Load implements lifecycle.Shell.
func (s *Session) Load(req navigation.Request) {
	s.send(Command{
		Type:      CommandLoad,
		URL:       req.URL.String(),
		TimeoutMS: req.Timeout.Milliseconds(),
		Attempt:   req.Attempt,
	})
}

// EvaluateScript implements lifecycle.Shell.
func (s *Session) EvaluateScript(script string) {
	s.send(Command{Type: CommandEvaluate, Script: script})
}

// AddUserScript implements lifecycle.Shell.
func (s *Session) AddUserScript(script bridge.UserScript) {
	s.send(Command{
		Type:          CommandAddUserScript,
		Script:        script.Source,
		InjectionTime: script.InjectionTime.String(),
		MainFrameOnly: script.MainFrameOnly,
	})
}

// OpenExternal implements lifecycle.Shell.
func (s *Session) OpenExternal(u *url.URL) {
	s.send(Command{Type: CommandOpenExternal, URL: u.String()})
}

// SetStatusText implements presentation.Surface.
func (s *Session) SetStatusText(text string) {
	s.send(Command{Type: CommandSetStatus, Text: text})
}

// StopProgress implements presentation.Surface.
func (s *Session) StopProgress() {
	s.send(Command{Type: CommandStopProgress})
}

// Remove implements presentation.Surface.
func (s *Session) Remove(animated bool) {
	s.send(Command{Type: CommandRemoveLoading, Animated: animated})
}

// Overflowed is closed when a command that cannot be dropped did not fit
// in the outbound buffer. The connection must be closed so the shell
// reconnects and starts a fresh session.
func (s *Session) Overflowed() <-chan struct{} {
	return s.overflow
}

// send queues cmd without blocking the controller. Repeatable commands
// (status text, evaluations, pongs, errors) are dropped when the shell
// stops reading; losing any other command overflows the session.
func (s *Session) send(cmd Command) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.out <- cmd:
		return
	default:
	}

	s.metrics.RecordWSMessage("dropped", cmd.Type)
	if !droppable(cmd.Type) {
		s.overflowOnce.Do(func() {
			s.logger.Error("Outbound buffer full, closing session", zap.String("type", cmd.Type))
			close(s.overflow)
		})
		return
	}
	s.logger.Warn("Dropping command for slow shell", zap.String("type", cmd.Type))
}

// droppable reports whether losing a command of type typ leaves the shell
// consistent. One-shot commands (loads, script installs, policy answers,
// loading surface teardown) are not.
func droppable(typ string) bool {
	switch typ {
	case CommandSetStatus, CommandEvaluate, CommandPong, CommandError:
		return true
	default:
		return false
	}
}

func (s *Session) sendError(msg string) {
	s.send(Command{Type: CommandError, Message: msg})
}

// Sessions tracks live sessions.
type Sessions struct {
	mu      sync.RWMutex
	byID    map[id.SessionID]*Session
	metrics *monitoring.Metrics
}

// NewSessions creates an empty set.
func NewSessions(metrics *monitoring.Metrics) *Sessions {
	return &Sessions{byID: make(map[id.SessionID]*Session), metrics: metrics}
}

// Add registers s.
func (m *Sessions) Add(s *Session) {
	m.mu.Lock()
	m.byID[s.ID] = s
	n := len(m.byID)
	m.mu.Unlock()
	m.metrics.SetSessionsActive(n)
}

// Remove unregisters the session with sid.
func (m *Sessions) Remove(sid id.SessionID) {
	m.mu.Lock()
	delete(m.byID, sid)
	n := len(m.byID)
	m.mu.Unlock()
	m.metrics.SetSessionsActive(n)
}

// Get returns the session with sid.
func (m *Sessions) Get(sid id.SessionID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[sid]
	return s, ok
}

// List returns every session, oldest first.
func (m *Sessions) List() []SessionInfo {
	m.mu.RLock()
	out := make([]SessionInfo, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s.Info())
	}
	m.mu.RUnlock()

	// Session IDs are ULIDs and sort by creation time.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of sessions.
func (m *Sessions) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
