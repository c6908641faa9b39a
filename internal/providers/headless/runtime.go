package headless

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/bridge"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/logging"
)

// ErrRuntimeClosed is returned for work posted to a closed runtime.
var ErrRuntimeClosed = errors.New("headless: runtime closed")

// RuntimeHooks connect a document's scripts to the shell.
type RuntimeHooks struct {
	// PostMessage receives window.webkit.messageHandlers.host.postMessage
	// payloads as JSON.
	PostMessage func(raw []byte)
	// OpenWindow receives window.open requests, resolved against the
	// document URL.
	OpenWindow func(u *url.URL)
}

// Runtime is one document's script execution context. A dedicated
// goroutine owns the goja VM; every script, timer callback and host
// evaluation runs there in order.
type Runtime struct {
	vm      *goja.Runtime
	doc     *Document
	hooks   RuntimeHooks
	timeout time.Duration

	tasks     chan func()
	done      chan struct{}
	closeOnce sync.Once

	timerMu sync.Mutex
	timers  map[int64]*time.Timer
	timerID int64

	logger *zap.Logger
}

// NewRuntime creates the execution context for doc and starts its
// goroutine. timeout bounds each script run.
func NewRuntime(doc *Document, hooks RuntimeHooks, timeout time.Duration, logger *zap.Logger) (*Runtime, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &Runtime{
		vm:      goja.New(),
		doc:     doc,
		hooks:   hooks,
		timeout: timeout,
		tasks:   make(chan func(), 64),
		done:    make(chan struct{}),
		timers:  make(map[int64]*time.Timer),
		logger:  logging.OrNop(logger),
	}
	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	go r.loop()
	return r, nil
}

func (r *Runtime) loop() {
	for {
		select {
		case fn := <-r.tasks:
			fn()
		case <-r.done:
			return
		}
	}
}

func (r *Runtime) post(fn func()) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.tasks <- fn:
		return true
	case <-r.done:
		return false
	}
}

// Run executes src and waits for it. Script errors are returned; they
// never stop the runtime.
func (r *Runtime) Run(name, src string) error {
	result := make(chan error, 1)
	if !r.post(func() { result <- r.exec(name, src) }) {
		return ErrRuntimeClosed
	}
	select {
	case err := <-result:
		return err
	case <-r.done:
		return ErrRuntimeClosed
	}
}

// Eval executes src, waits, and returns its exported completion value.
func (r *Runtime) Eval(src string) (interface{}, error) {
	type outcome struct {
		value interface{}
		err   error
	}
	result := make(chan outcome, 1)
	ok := r.post(func() {
		var o outcome
		defer func() {
			if p := recover(); p != nil {
				o.err = fmt.Errorf("eval panicked: %v", p)
			}
			result <- o
		}()
		v, err := r.vm.RunString(src)
		if err != nil {
			o.err = err
			return
		}
		if v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
			o.value = v.Export()
		}
	})
	if !ok {
		return nil, ErrRuntimeClosed
	}
	select {
	case o := <-result:
		return o.value, o.err
	case <-r.done:
		return nil, ErrRuntimeClosed
	}
}

// Evaluate queues src without waiting. Errors are logged.
func (r *Runtime) Evaluate(src string) {
	r.post(func() {
		if err := r.exec("evaluate", src); err != nil {
			r.logger.Debug("Evaluated script failed", zap.Error(err))
		}
	})
}

// Do runs fn on the runtime goroutine and waits for it.
func (r *Runtime) Do(fn func(doc *Document)) error {
	finished := make(chan struct{})
	if !r.post(func() { defer close(finished); fn(r.doc) }) {
		return ErrRuntimeClosed
	}
	select {
	case <-finished:
		return nil
	case <-r.done:
		return ErrRuntimeClosed
	}
}

// Close stops the goroutine and every pending timer.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
		r.vm.Interrupt("runtime closed")

		r.timerMu.Lock()
		for id, t := range r.timers {
			t.Stop()
			delete(r.timers, id)
		}
		r.timerMu.Unlock()
	})
}

func (r *Runtime) exec(name, src string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("script %s panicked: %v", name, p)
		}
	}()

	timer := time.AfterFunc(r.timeout, func() { r.vm.Interrupt("script timeout exceeded") })
	_, err = r.vm.RunScript(name, src)
	timer.Stop()
	r.vm.ClearInterrupt()
	if err != nil {
		return fmt.Errorf("script %s: %w", name, err)
	}
	return nil
}

func (r *Runtime) setupGlobals() error {
	global := r.vm.GlobalObject()
	for _, name := range []string{"require", "process", "module", "exports"} {
		_ = r.vm.Set(name, goja.Undefined())
	}
	_ = r.vm.Set("window", global)
	_ = r.vm.Set("self", global)

	console := r.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		_ = console.Set(level, r.consoleFunc(level))
	}
	_ = r.vm.Set("console", console)

	_ = r.vm.Set("setTimeout", r.setTimeout)
	_ = r.vm.Set("clearTimeout", r.clearTimeout)
	_ = r.vm.Set("open", r.openWindow)

	handler := r.vm.NewObject()
	_ = handler.Set("postMessage", r.postMessage)
	handlers := r.vm.NewObject()
	_ = handlers.Set(bridge.HandlerName, handler)
	webkit := r.vm.NewObject()
	_ = webkit.Set("messageHandlers", handlers)
	_ = r.vm.Set("webkit", webkit)

	location := r.vm.NewObject()
	if r.doc != nil && r.doc.URL != nil {
		_ = location.Set("href", r.doc.URL.String())
		_ = location.Set("host", r.doc.URL.Host)
		_ = location.Set("hostname", r.doc.URL.Hostname())
		_ = location.Set("protocol", r.doc.URL.Scheme+":")
		_ = location.Set("pathname", r.doc.URL.EscapedPath())
	}
	_ = r.vm.Set("location", location)

	if r.doc != nil {
		if err := newDOMBinding(r.vm, r.doc).install(); err != nil {
			return fmt.Errorf("install DOM: %w", err)
		}
	}

	if _, err := r.vm.RunScript("audio-stub", audioStub); err != nil {
		return fmt.Errorf("install audio stub: %w", err)
	}
	return nil
}

func (r *Runtime) consoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		r.logger.Debug("Console", zap.String("level", level), zap.String("message", strings.Join(parts, " ")))
		return goja.Undefined()
	}
}

func (r *Runtime) postMessage(call goja.FunctionCall) goja.Value {
	if r.hooks.PostMessage == nil {
		return goja.Undefined()
	}
	raw, err := sonic.Marshal(call.Argument(0).Export())
	if err != nil {
		r.logger.Debug("Unserializable bridge message", zap.Error(err))
		return goja.Undefined()
	}
	r.hooks.PostMessage(raw)
	return goja.Undefined()
}

func (r *Runtime) openWindow(call goja.FunctionCall) goja.Value {
	if r.hooks.OpenWindow == nil || goja.IsUndefined(call.Argument(0)) {
		return goja.Null()
	}
	ref, err := url.Parse(call.Argument(0).String())
	if err != nil {
		return goja.Null()
	}
	if r.doc != nil && r.doc.URL != nil {
		ref = r.doc.URL.ResolveReference(ref)
	}
	r.hooks.OpenWindow(ref)
	return goja.Null()
}

func (r *Runtime) setTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		return goja.Undefined()
	}
	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	if delay < 0 {
		delay = 0
	}

	r.timerMu.Lock()
	r.timerID++
	id := r.timerID
	r.timers[id] = time.AfterFunc(delay, func() {
		r.timerMu.Lock()
		_, live := r.timers[id]
		delete(r.timers, id)
		r.timerMu.Unlock()
		if !live {
			return
		}
		r.post(func() {
			if _, err := fn(goja.Undefined()); err != nil {
				r.logger.Debug("Timer callback failed", zap.Error(err))
			}
		})
	})
	r.timerMu.Unlock()
	return r.vm.ToValue(id)
}

func (r *Runtime) clearTimeout(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	r.timerMu.Lock()
	if t, ok := r.timers[id]; ok {
		t.Stop()
		delete(r.timers, id)
	}
	r.timerMu.Unlock()
	return goja.Undefined()
}

// audioStub stands in for Web Audio. Contexts start running and report
// state changes through statechange listeners.
const audioStub = `(function() {
	var all = [];
	function AudioContext() {
		this.state = 'running';
		this._listeners = [];
		all.push(this);
	}
	AudioContext.prototype.addEventListener = function(type, fn) {
		if (type === 'statechange') { this._listeners.push(fn); }
	};
	AudioContext.prototype._setState = function(state) {
		if (this.state === state) { return; }
		this.state = state;
		for (var i = 0; i < this._listeners.length; i++) {
			try { this._listeners[i]({type: 'statechange'}); } catch (e) {}
		}
	};
	AudioContext.prototype.resume = function() {
		if (this.state !== 'closed') { this._setState('running'); }
		return Promise.resolve();
	};
	AudioContext.prototype.suspend = function() {
		if (this.state !== 'closed') { this._setState('suspended'); }
		return Promise.resolve();
	};
	AudioContext.prototype.close = function() {
		this._setState('closed');
		return Promise.resolve();
	};
	window.AudioContext = AudioContext;
	window.__headlessAudio = {
		interrupt: function() {
			for (var i = 0; i < all.length; i++) {
				if (all[i].state === 'running') { all[i]._setState('interrupted'); }
			}
		},
		states: function() {
			var out = [];
			for (var i = 0; i < all.length; i++) { out.push(all[i].state); }
			return out;
		}
	};
})();`
