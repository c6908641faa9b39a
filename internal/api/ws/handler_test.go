package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/monitoring"
)

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, mutate ...func(*config.Config)) (*client, *Sessions) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := *config.Default()
	cfg.Content.URL = "https://content.example/play"
	cfg.Retry.BackoffUnit = 10 * time.Millisecond
	for _, m := range mutate {
		m(&cfg)
	}

	sessions := NewSessions(monitoring.NewMetricsWithRegistry(prometheus.NewRegistry()))
	router := gin.New()
	router.GET("/shell", NewHandler(cfg, sessions, nil, nil).HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/shell"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn}, sessions
}

func (c *client) send(ev Event) {
	c.t.Helper()
	data, err := sonic.Marshal(ev)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, data))
}

func (c *client) read() Command {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	var cmd Command
	require.NoError(c.t, sonic.Unmarshal(data, &cmd))
	return cmd
}

// until reads commands until one of type typ arrives.
func (c *client) until(typ string) Command {
	c.t.Helper()
	for i := 0; i < 32; i++ {
		if cmd := c.read(); cmd.Type == typ {
			return cmd
		}
	}
	c.t.Fatalf("no %s command received", typ)
	return Command{}
}

func TestHandshakeInstallsHookThenLoads(t *testing.T) {
	c, sessions := dial(t)

	hello := c.read()
	assert.Equal(t, CommandHello, hello.Type)
	assert.NotEmpty(t, hello.Session)

	hook := c.read()
	assert.Equal(t, CommandAddUserScript, hook.Type)
	assert.Equal(t, "document_start", hook.InjectionTime)
	assert.False(t, hook.MainFrameOnly)

	load := c.read()
	assert.Equal(t, CommandLoad, load.Type)
	assert.Equal(t, "https://content.example/play", load.URL)
	assert.Equal(t, int64(15000), load.TimeoutMS)

	assert.Eventually(t, func() bool { return sessions.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestProvisionalFailureRetries(t *testing.T) {
	c, _ := dial(t)
	c.until(CommandLoad)

	c.send(Event{Type: EventDidFailProvisional, Kind: "offline"})

	status := c.until(CommandSetStatus)
	assert.Equal(t, "No connection. Retrying (1/3)…", status.Text)

	retry := c.until(CommandLoad)
	assert.Equal(t, 1, retry.Attempt)
}

func TestDecidePolicyAnswersWithID(t *testing.T) {
	c, _ := dial(t)
	c.until(CommandLoad)

	c.send(Event{Type: EventDecidePolicy, ID: "p1", URL: "https://pagead2.googlesyndication.com/x"})
	internal := c.until(CommandPolicy)
	assert.Equal(t, "p1", internal.ID)
	assert.Equal(t, "allow_internal", internal.Decision)

	c.send(Event{Type: EventDecidePolicy, ID: "p2", URL: "https://elsewhere.example/"})
	external := c.until(CommandPolicy)
	assert.Equal(t, "p2", external.ID)
	assert.Equal(t, "delegate_external", external.Decision)
}

func TestBridgeHandoffRemovesLoading(t *testing.T) {
	c, _ := dial(t)
	c.until(CommandLoad)

	c.send(Event{Type: EventDidFinish})
	c.send(Event{Type: EventScriptMessage, Message: []byte(`{"type":"web_loading_hidden"}`)})

	assert.Equal(t, CommandRemoveLoading, c.until(CommandRemoveLoading).Type)
}

func TestPingAndInvalidEvents(t *testing.T) {
	c, _ := dial(t)
	c.until(CommandLoad)

	c.send(Event{Type: EventPing})
	assert.Equal(t, CommandPong, c.until(CommandPong).Type)

	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte(`{"url":"x"}`)))
	errCmd := c.until(CommandError)
	assert.Contains(t, errCmd.Message, "invalid shell event")
}

func TestDisconnectRemovesSession(t *testing.T) {
	c, sessions := dial(t)
	c.until(CommandLoad)
	require.Equal(t, 1, sessions.Len())

	require.NoError(t, c.conn.Close())
	assert.Eventually(t, func() bool { return sessions.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
