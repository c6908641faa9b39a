package ws

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/navigation"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/config"
)

func newFullSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(*config.Default(), nil, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	for i := 0; i < outboundBuffer; i++ {
		s.send(Command{Type: CommandPong})
	}
	require.Len(t, s.out, outboundBuffer)
	return s
}

func overflowed(s *Session) bool {
	select {
	case <-s.Overflowed():
		return true
	default:
		return false
	}
}

func TestFullBufferDropsRepeatableCommands(t *testing.T) {
	s := newFullSession(t)

	s.SetStatusText("No connection. Retrying (1/3)…")
	s.EvaluateScript("void 0")
	s.sendError("rate limit exceeded")

	assert.False(t, overflowed(s))
	assert.Len(t, s.out, outboundBuffer)
}

func TestFullBufferOverflowsOnOneShotCommands(t *testing.T) {
	u, err := url.Parse("https://content.example/play")
	require.NoError(t, err)

	tests := []struct {
		name string
		emit func(s *Session)
	}{
		{"remove_loading", func(s *Session) { s.Remove(true) }},
		{"stop_progress", func(s *Session) { s.StopProgress() }},
		{"load", func(s *Session) { s.Load(navigation.Request{URL: u, Timeout: time.Second, Attempt: 1}) }},
		{"open_external", func(s *Session) { s.OpenExternal(u) }},
		{"policy", func(s *Session) { s.send(Command{Type: CommandPolicy, ID: "p1", Decision: "allow_internal"}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFullSession(t)
			tt.emit(s)
			assert.True(t, overflowed(s))

			// A second loss does not panic on the closed channel.
			tt.emit(s)
			assert.True(t, overflowed(s))
		})
	}
}

func TestOneShotCommandsQueueWhenThereIsRoom(t *testing.T) {
	s, err := NewSession(*config.Default(), nil, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	s.Remove(true)

	assert.False(t, overflowed(s))
	cmd := <-s.Outbound()
	assert.Equal(t, CommandRemoveLoading, cmd.Type)
	assert.True(t, cmd.Animated)
}
