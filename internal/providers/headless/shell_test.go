package headless

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/audio"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/bridge"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/lifecycle"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/navigation"
)

const gamePage = `<!doctype html>
<html><head>
<title>Bounce</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
</head><body>
<div id="loader">Loading</div>
<script src="/bundle.js"></script>
<script type="module">ignored()</script>
<script>
	var ctx = new AudioContext();
	window.webkit.messageHandlers.host.postMessage({type: 'loading_text', data: {text: 'Loading levels'}});
	window.webkit.messageHandlers.host.postMessage({type: 'dom_ready'});
	setTimeout(function() {
		window.webkit.messageHandlers.host.postMessage({type: 'web_loading_hidden'});
	}, 10);
</script>
</body></html>`

type recorder struct {
	mu          sync.Mutex
	messages    []string
	finished    int
	provisional []navigation.FailureKind
	failed      []navigation.FailureKind
	windows     []string
	decision    navigation.Decision
}

func (r *recorder) DidFinishLoad() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished++
}

func (r *recorder) DidFailProvisionalLoad(kind navigation.FailureKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.provisional = append(r.provisional, kind)
}

func (r *recorder) DidFailLoad(kind navigation.FailureKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, kind)
}

func (r *recorder) ReceiveScriptMessage(raw []byte) {
	msg, err := bridge.Decode(raw)
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, string(msg.Type))
}

func (r *recorder) CreateWindow(u *url.URL, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = append(r.windows, u.String())
}

func (r *recorder) DecidePolicy(_ *url.URL, decide func(navigation.Decision)) {
	r.mu.Lock()
	d := r.decision
	r.mu.Unlock()
	decide(d)
}

func (r *recorder) snapshot() recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return recorder{
		messages:    append([]string(nil), r.messages...),
		finished:    r.finished,
		provisional: append([]navigation.FailureKind(nil), r.provisional...),
		failed:      append([]navigation.FailureKind(nil), r.failed...),
		windows:     append([]string(nil), r.windows...),
	}
}

func serve(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newShell(t *testing.T) (*Shell, *recorder) {
	t.Helper()
	shell := New(Options{ScriptTimeout: time.Second})
	t.Cleanup(shell.Close)
	events := &recorder{}
	shell.Attach(events)
	return shell, events
}

func load(t *testing.T, shell *Shell, raw string) {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	shell.Load(navigation.Request{URL: u, Timeout: 2 * time.Second})
}

func TestShellLoadsDocumentAndRunsScripts(t *testing.T) {
	srv := serve(t, "text/html; charset=utf-8", gamePage)
	shell, events := newShell(t)
	shell.AddUserScript(bridge.UserScript{Source: audio.HookScript(), InjectionTime: bridge.AtDocumentStart})
	shell.AddUserScript(bridge.UserScript{
		Source:        `(function(){ var s = document.createElement('style'); s.textContent = 'body{}'; document.head.appendChild(s); })();`,
		InjectionTime: bridge.AtDocumentEnd,
		MainFrameOnly: true,
	})

	load(t, shell, srv.URL)

	require.Eventually(t, func() bool {
		s := events.snapshot()
		return s.finished == 1 && len(s.messages) == 4
	}, 2*time.Second, 10*time.Millisecond)

	s := events.snapshot()
	assert.Equal(t, []string{"audio_context_created", "loading_text", "dom_ready", "web_loading_hidden"}, s.messages)

	rendered, err := shell.DocumentHTML()
	require.NoError(t, err)
	assert.Contains(t, rendered, "<style>body{}</style>")
}

func TestShellViewportNormalization(t *testing.T) {
	srv := serve(t, "text/html", gamePage)
	shell, events := newShell(t)

	load(t, shell, srv.URL)
	require.Eventually(t, func() bool { return events.snapshot().finished == 1 }, 2*time.Second, 10*time.Millisecond)

	shell.EvaluateScript(lifecycle.ViewportScript)
	shell.EvaluateScript(lifecycle.ViewportScript)

	require.Eventually(t, func() bool {
		vp, err := shell.Viewport()
		return err == nil && vp == "width=device-width, initial-scale=1, viewport-fit=cover"
	}, time.Second, 10*time.Millisecond)
}

func TestShellAudioInterruptionAndResume(t *testing.T) {
	srv := serve(t, "text/html", gamePage)
	shell, events := newShell(t)
	shell.AddUserScript(bridge.UserScript{Source: audio.HookScript(), InjectionTime: bridge.AtDocumentStart})

	load(t, shell, srv.URL)
	require.Eventually(t, func() bool { return events.snapshot().finished == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, shell.InterruptAudio())
	states, err := shell.AudioStates()
	require.NoError(t, err)
	assert.Equal(t, []string{"interrupted"}, states)
	assert.Contains(t, events.snapshot().messages, "audio_state")

	shell.EvaluateScript(audio.ResumeScript([]audio.HandleID{1}))
	require.Eventually(t, func() bool {
		states, err := shell.AudioStates()
		return err == nil && len(states) == 1 && states[0] == "running"
	}, time.Second, 10*time.Millisecond)
}

func TestShellProvisionalFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	shell, events := newShell(t)
	load(t, shell, addr)

	require.Eventually(t, func() bool { return len(events.snapshot().provisional) == 1 }, 2*time.Second, 10*time.Millisecond)
	kind := events.snapshot().provisional[0]
	assert.NotEqual(t, navigation.FailureContent, kind)
	assert.NotEqual(t, navigation.FailureNone, kind)
	assert.Zero(t, events.snapshot().finished)
}

func TestShellTimeoutIsProvisional(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	shell, events := newShell(t)
	u, _ := url.Parse(srv.URL)
	shell.Load(navigation.Request{URL: u, Timeout: 50 * time.Millisecond})

	require.Eventually(t, func() bool { return len(events.snapshot().provisional) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, navigation.FailureTimeout, events.snapshot().provisional[0])
}

func TestShellNonDocumentIsNonProvisional(t *testing.T) {
	srv := serve(t, "application/json", `{"ok":true}`)
	shell, events := newShell(t)

	load(t, shell, srv.URL)

	require.Eventually(t, func() bool { return len(events.snapshot().failed) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, navigation.FailureContent, events.snapshot().failed[0])
}

func TestFetchRejectsOversizedDocument(t *testing.T) {
	body := "<html><body>" + strings.Repeat("x", 4096) + "</body></html>"
	srv := serve(t, "text/html", body)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	_, err = NewFetcher("", nil).SetBodyLimit(1024).Fetch(context.Background(), u, time.Second)
	assert.ErrorIs(t, err, ErrDocumentTooLarge)

	page, err := NewFetcher("", nil).Fetch(context.Background(), u, time.Second)
	require.NoError(t, err)
	assert.Len(t, page.Body, len(body))
}

func TestFetchNeverRetries(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	page, err := NewFetcher("", nil).Fetch(context.Background(), u, time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, page.Status)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits)
}

func TestShellOversizedDocumentIsNonProvisional(t *testing.T) {
	srv := serve(t, "text/html", "<html><body>"+strings.Repeat("x", 4096)+"</body></html>")
	shell := New(Options{Fetcher: NewFetcher("", nil).SetBodyLimit(1024), ScriptTimeout: time.Second})
	t.Cleanup(shell.Close)
	events := &recorder{}
	shell.Attach(events)

	load(t, shell, srv.URL)

	require.Eventually(t, func() bool { return len(events.snapshot().failed) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, navigation.FailureContent, events.snapshot().failed[0])
	assert.Empty(t, events.snapshot().provisional)
	assert.Zero(t, events.snapshot().finished)
}

func TestShellWindowOpen(t *testing.T) {
	page := `<html><head></head><body><script>window.open('/shop?item=3');</script></body></html>`
	srv := serve(t, "text/html", page)
	shell, events := newShell(t)

	load(t, shell, srv.URL+"/play")

	require.Eventually(t, func() bool { return events.snapshot().finished == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{srv.URL + "/shop?item=3"}, events.snapshot().windows)
}

func TestShellDelegatedLoadIsNotFetched(t *testing.T) {
	hits := 0
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
	}))
	t.Cleanup(srv.Close)

	shell, events := newShell(t)
	events.decision = navigation.DelegateExternal
	load(t, shell, srv.URL)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, hits)
}

func TestEvaluateWithoutDocumentIsDropped(t *testing.T) {
	shell, _ := newShell(t)

	shell.EvaluateScript("1 + 1")

	_, err := shell.DocumentHTML()
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestSplashState(t *testing.T) {
	s := NewSplash(nil)

	s.SetStatusText("No connection. Retrying (1/3)…")
	s.StopProgress()
	s.Remove(true)

	assert.Equal(t, SplashState{
		Text:            "No connection. Retrying (1/3)…",
		ProgressStopped: true,
		Removed:         true,
		Animated:        true,
	}, s.State())
}

func TestParseDocument(t *testing.T) {
	u, _ := url.Parse("https://bouncengi.net/")
	body := "<html><head><title>Caf\xe9</title></head><body>" +
		`<script>a()</script><script src="x.js"></script><script type="text/javascript">b()</script>` +
		"</body></html>"

	doc, err := ParseDocument(&Page{URL: u, Status: 200, ContentType: "text/html; charset=ISO-8859-1", Body: []byte(body)})
	require.NoError(t, err)

	assert.Equal(t, "Café", doc.Title())
	assert.Equal(t, "iso-8859-1", doc.Charset)
	assert.Equal(t, []string{"a()", "b()"}, doc.InlineScripts())

	_, err = ParseDocument(&Page{URL: u, ContentType: "image/png", Body: []byte("\x89PNG\r\n\x1a\n")})
	assert.ErrorIs(t, err, ErrNotHTML)

	sniffed, err := ParseDocument(&Page{URL: u, Body: []byte("<!DOCTYPE html><html><body>hi</body></html>")})
	require.NoError(t, err)
	assert.Equal(t, "text/html", sniffed.MediaType)
	assert.NotEmpty(t, sniffed.Charset)
}
