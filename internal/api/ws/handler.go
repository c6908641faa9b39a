package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/monitoring"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 1 << 20
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are filtered by the CORS middleware
	},
}

// Handler manages shell WebSocket connections. Each connection gets its own
// Session.
type Handler struct {
	cfg      config.Config
	sessions *Sessions
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler
func NewHandler(cfg config.Config, sessions *Sessions, logger *zap.Logger, metrics *monitoring.Metrics) *Handler {
	return &Handler{
		cfg:      cfg,
		sessions: sessions,
		logger:   logging.OrNop(logger).Named("ws"),
		metrics:  metrics,
	}
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	session, err := NewSession(h.cfg, h.logger, h.metrics)
	if err != nil {
		h.logger.Error("Session setup failed", zap.Error(err))
		h.closeWith(conn, websocket.CloseInternalServerErr, err.Error())
		return
	}
	h.sessions.Add(session)
	defer h.sessions.Remove(session.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer session.Close()

	go session.Run(ctx)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, session)
	}()

	session.send(Command{Type: CommandHello, Session: session.ID.String()})
	if err := session.Start(); err != nil {
		h.logger.Warn("Session start failed", zap.Error(err))
		session.sendError(err.Error())
		cancel()
		<-writerDone
		return
	}

	h.logger.Info("Shell connected",
		zap.String("session", session.ID.String()),
		zap.String("remote", c.ClientIP()))

	h.readLoop(conn, session)
	cancel()
	<-writerDone

	h.logger.Info("Shell disconnected", zap.String("session", session.ID.String()))
}

func (h *Handler) readLoop(conn *websocket.Conn, session *Session) {
	var limiter *rate.Limiter
	if h.cfg.RateLimit.Enabled {
		limiter = rate.NewLimiter(rate.Limit(h.cfg.RateLimit.MessagesPerSecond), h.cfg.RateLimit.Burst)
	}

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if limiter != nil && !limiter.Allow() {
			h.metrics.RecordWSMessage("in", "rate_limited")
			session.sendError("rate limit exceeded")
			continue
		}

		ev, err := DecodeEvent(raw)
		if err != nil {
			h.metrics.RecordWSMessage("in", "invalid")
			session.sendError(err.Error())
			continue
		}
		h.metrics.RecordWSMessage("in", ev.Type)
		session.Handle(ev)
	}
}

// writeLoop is the only writer on conn.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, session *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case cmd := <-session.Outbound():
			if err := h.write(conn, cmd); err != nil {
				h.logger.Debug("WebSocket write failed", zap.Error(err))
				_ = conn.Close()
				return
			}
			h.metrics.RecordWSMessage("out", cmd.Type)
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		case <-session.Overflowed():
			h.closeWith(conn, websocket.CloseTryAgainLater, "outbound buffer full")
			_ = conn.Close()
			return
		case <-ctx.Done():
			h.flush(conn, session)
			h.closeWith(conn, websocket.CloseNormalClosure, "")
			return
		}
	}
}

// flush writes commands already queued when the connection is closing.
func (h *Handler) flush(conn *websocket.Conn, session *Session) {
	for {
		select {
		case cmd := <-session.Outbound():
			if err := h.write(conn, cmd); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, cmd Command) error {
	data, err := sonic.Marshal(cmd)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Handler) closeWith(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		h.logger.Debug("WebSocket close failed", zap.Error(err))
	}
}
