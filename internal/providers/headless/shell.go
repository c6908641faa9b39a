package headless

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/bridge"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/navigation"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/monitoring"
)

// ErrNoDocument is returned when no document has been loaded yet.
var ErrNoDocument = errors.New("headless: no document loaded")

// Events receives what the shell observes. lifecycle.Controller
// implements it.
type Events interface {
	DidFinishLoad()
	DidFailProvisionalLoad(kind navigation.FailureKind)
	DidFailLoad(kind navigation.FailureKind)
	ReceiveScriptMessage(raw []byte)
	CreateWindow(u *url.URL, hasTargetFrame bool)
	DecidePolicy(u *url.URL, decide func(navigation.Decision))
}

// Options configures a Shell.
type Options struct {
	Fetcher       *Fetcher
	ScriptTimeout time.Duration
	// Opener receives destinations delegated to an external browser.
	Opener  func(u *url.URL)
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
}

// Shell hosts the content without a platform web view: it fetches the
// document, gives it a fresh script context, and reports load progress.
type Shell struct {
	fetcher       *Fetcher
	scriptTimeout time.Duration
	opener        func(u *url.URL)

	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	events   Events
	scripts  []bridge.UserScript
	runtime  *Runtime
	gen      uint64
	inflight context.CancelFunc
	opened   []*url.URL

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// New creates a shell. Attach must be called before the first Load.
func New(opts Options) *Shell {
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = NewFetcher(DefaultUserAgent, opts.Metrics)
	}
	timeout := opts.ScriptTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	base, cancel := context.WithCancel(context.Background())
	return &Shell{
		fetcher:       fetcher,
		scriptTimeout: timeout,
		opener:        opts.Opener,
		base:          base,
		cancel:        cancel,
		logger:        logging.OrNop(opts.Logger).Named("headless"),
		metrics:       opts.Metrics,
	}
}

// Attach sets the event receiver.
func (s *Shell) Attach(events Events) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
}

// Load asks for a policy decision and, when allowed, loads req in a new
// document. A newer Load supersedes any load still in flight.
func (s *Shell) Load(req navigation.Request) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.inflight != nil {
		s.inflight()
	}
	ctx, cancel := context.WithCancel(s.base)
	s.inflight = cancel
	events := s.events
	s.mu.Unlock()

	if events == nil {
		s.logger.Warn("Load without attached events", zap.String("url", req.URL.Redacted()))
		cancel()
		return
	}

	events.DecidePolicy(req.URL, func(d navigation.Decision) {
		if d == navigation.DelegateExternal {
			cancel()
			return
		}
		go s.navigate(ctx, gen, req, events)
	})
}

func (s *Shell) navigate(ctx context.Context, gen uint64, req navigation.Request, events Events) {
	page, err := s.fetcher.Fetch(ctx, req.URL, req.Timeout)
	if !s.isCurrent(gen) {
		return
	}
	if errors.Is(err, ErrDocumentTooLarge) {
		s.logger.Warn("Loaded document is too large",
			zap.String("url", req.URL.Redacted()),
			zap.Error(err))
		events.DidFailLoad(navigation.FailureContent)
		return
	}
	if err != nil {
		kind := navigation.ClassifyError(err)
		s.logger.Info("Provisional load failed",
			zap.String("url", req.URL.Redacted()),
			zap.String("kind", string(kind)),
			zap.Error(err))
		events.DidFailProvisionalLoad(kind)
		return
	}

	doc, err := ParseDocument(page)
	if err != nil {
		kind := navigation.FailureContent
		if page.Status >= 400 {
			kind = navigation.FailureHTTP
		}
		s.logger.Warn("Loaded response is not a document",
			zap.String("url", req.URL.Redacted()),
			zap.Int("status", page.Status),
			zap.Error(err))
		events.DidFailLoad(kind)
		return
	}

	rt, err := NewRuntime(doc, RuntimeHooks{
		PostMessage: events.ReceiveScriptMessage,
		OpenWindow:  func(u *url.URL) { events.CreateWindow(u, false) },
	}, s.scriptTimeout, s.logger)
	if err != nil {
		s.logger.Error("Failed to create script context", zap.Error(err))
		events.DidFailLoad(navigation.FailureContent)
		return
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		rt.Close()
		return
	}
	old := s.runtime
	s.runtime = rt
	scripts := append([]bridge.UserScript(nil), s.scripts...)
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}

	s.logger.Info("Document loaded",
		zap.String("url", page.URL.Redacted()),
		zap.Int("status", page.Status),
		zap.String("title", doc.Title()),
		zap.String("charset", doc.Charset))

	s.runUserScripts(rt, scripts, bridge.AtDocumentStart)
	for i, src := range doc.InlineScripts() {
		if err := rt.Run(fmt.Sprintf("inline-%d", i), src); err != nil {
			s.logger.Debug("Page script failed", zap.Int("index", i), zap.Error(err))
		}
	}
	s.runUserScripts(rt, scripts, bridge.AtDocumentEnd)

	if !s.isCurrent(gen) {
		return
	}
	events.DidFinishLoad()
}

func (s *Shell) runUserScripts(rt *Runtime, scripts []bridge.UserScript, at bridge.InjectionTime) {
	for i, script := range scripts {
		if script.InjectionTime != at {
			continue
		}
		if err := rt.Run(fmt.Sprintf("%s-%d", at, i), script.Source); err != nil {
			s.logger.Debug("User script failed",
				zap.Stringer("injection", at),
				zap.Int("index", i),
				zap.Error(err))
		}
	}
}

func (s *Shell) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

// EvaluateScript runs src in the current document. It is dropped when no
// document is loaded.
func (s *Shell) EvaluateScript(src string) {
	s.mu.Lock()
	rt := s.runtime
	s.mu.Unlock()
	if rt == nil {
		s.logger.Debug("No document to evaluate in")
		return
	}
	rt.Evaluate(src)
}

// AddUserScript registers src for every later document. The headless
// shell has a single frame, so MainFrameOnly makes no difference.
func (s *Shell) AddUserScript(script bridge.UserScript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = append(s.scripts, script)
}

// OpenExternal records u and passes it to the configured opener.
func (s *Shell) OpenExternal(u *url.URL) {
	s.logger.Info("Opening externally", zap.String("url", u.Redacted()))
	s.mu.Lock()
	s.opened = append(s.opened, u)
	s.mu.Unlock()
	if s.opener != nil {
		s.opener(u)
	}
}

// Opened returns every destination handed to OpenExternal.
func (s *Shell) Opened() []*url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*url.URL(nil), s.opened...)
}

// InterruptAudio moves every running audio context of the current document
// to the interrupted state, as an OS audio session interruption would.
func (s *Shell) InterruptAudio() error {
	rt, err := s.current()
	if err != nil {
		return err
	}
	return rt.Run("interrupt-audio", "window.__headlessAudio && window.__headlessAudio.interrupt();")
}

// AudioStates returns the state of every audio context of the current
// document in creation order.
func (s *Shell) AudioStates() ([]string, error) {
	rt, err := s.current()
	if err != nil {
		return nil, err
	}
	v, err := rt.Eval("window.__headlessAudio ? window.__headlessAudio.states() : []")
	if err != nil {
		return nil, err
	}
	items, _ := v.([]interface{})
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, fmt.Sprint(item))
	}
	return out, nil
}

// DocumentHTML renders the current document as scripts left it.
func (s *Shell) DocumentHTML() (string, error) {
	rt, err := s.current()
	if err != nil {
		return "", err
	}
	var out string
	var renderErr error
	if err := rt.Do(func(doc *Document) { out, renderErr = doc.HTML() }); err != nil {
		return "", err
	}
	return out, renderErr
}

// Viewport returns the current document's viewport meta content.
func (s *Shell) Viewport() (string, error) {
	rt, err := s.current()
	if err != nil {
		return "", err
	}
	var out string
	if err := rt.Do(func(doc *Document) { out = doc.Viewport() }); err != nil {
		return "", err
	}
	return out, nil
}

// Close cancels loads in flight and tears down the current document.
func (s *Shell) Close() {
	s.cancel()
	s.mu.Lock()
	rt := s.runtime
	s.runtime = nil
	s.mu.Unlock()
	if rt != nil {
		rt.Close()
	}
}

func (s *Shell) current() (*Runtime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runtime == nil {
		return nil, ErrNoDocument
	}
	return s.runtime, nil
}
