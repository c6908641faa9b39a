package headless

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/lifecycle"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/config"
)

func startController(t *testing.T, cfg config.Config) (*lifecycle.Controller, *Shell, *Splash) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	loop := lifecycle.NewLoop(nil)
	go func() { _ = loop.Run(ctx) }()

	shell := New(Options{ScriptTimeout: time.Second})
	splash := NewSplash(nil)
	ctrl, err := lifecycle.New(cfg, lifecycle.Deps{Shell: shell, Surface: splash, Dispatcher: loop})
	require.NoError(t, err)
	shell.Attach(ctrl)

	t.Cleanup(func() {
		ctrl.Close()
		shell.Close()
		cancel()
	})
	require.NoError(t, ctrl.Start())
	return ctrl, shell, splash
}

func TestControllerDrivesHeadlessShell(t *testing.T) {
	srv := serve(t, "text/html", gamePage)
	cfg := *config.Default()
	cfg.Content.URL = srv.URL

	ctrl, shell, splash := startController(t, cfg)

	require.Eventually(t, func() bool {
		snap := ctrl.Snapshot()
		return snap.State == "loaded" && snap.Phase == "hidden" && snap.AudioHandles == 1
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, "Loading levels", splash.State().Text)
	assert.True(t, splash.State().Removed)

	require.Eventually(t, func() bool {
		vp, err := shell.Viewport()
		return err == nil && vp == "width=device-width, initial-scale=1, viewport-fit=cover"
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, shell.InterruptAudio())
	ctrl.AudioInterruptionEnded()
	require.Eventually(t, func() bool {
		states, err := shell.AudioStates()
		return err == nil && len(states) == 1 && states[0] == "running"
	}, time.Second, 10*time.Millisecond)
}

func TestControllerRetriesUntilContentIsUp(t *testing.T) {
	var up atomic.Bool
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !up.Load() {
			// Drop the connection without a response.
			hj, ok := w.(http.Hijacker)
			if !ok {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			conn, _, _ := hj.Hijack()
			_ = conn.Close()
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(gamePage))
	}))
	t.Cleanup(srv.Close)

	cfg := *config.Default()
	cfg.Content.URL = srv.URL
	cfg.Retry.BackoffUnit = 100 * time.Millisecond

	ctrl, _, splash := startController(t, cfg)

	require.Eventually(t, func() bool { return ctrl.Snapshot().Attempts >= 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, splash.State().Text, "No connection. Retrying")

	up.Store(true)
	require.Eventually(t, func() bool {
		snap := ctrl.Snapshot()
		return snap.State == "loaded" && snap.Attempts == 0
	}, 3*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, hits.Load(), int32(2))
}

func TestControllerDelegatesExternalWindowOpen(t *testing.T) {
	srv := serve(t, "text/html", `<html><head><title>t</title></head><body>
<script>window.open("https://elsewhere.example/promo?id=7");</script>
</body></html>`)
	cfg := *config.Default()
	cfg.Content.URL = srv.URL

	ctrl, shell, _ := startController(t, cfg)

	require.Eventually(t, func() bool { return len(shell.Opened()) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "https://elsewhere.example/promo?id=7", shell.Opened()[0].String())
	require.Eventually(t, func() bool { return ctrl.Snapshot().State == "loaded" }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, srv.URL, ctrl.Snapshot().Target)
}
