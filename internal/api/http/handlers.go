package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/shared/id"
)

// Handlers serves the gateway's operator endpoints.
type Handlers struct {
	cfg      config.Config
	sessions *ws.Sessions
	started  time.Time
}

// NewHandlers creates the operator handlers.
func NewHandlers(cfg config.Config, sessions *ws.Sessions) *Handlers {
	return &Handlers{cfg: cfg, sessions: sessions, started: time.Now()}
}

// Health reports liveness and the configured content.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"sessions": h.sessions.Len(),
		"content": gin.H{
			"url":          h.cfg.Content.URL,
			"loading_mode": h.cfg.Presentation.Mode,
			"max_attempts": h.cfg.Retry.MaxAttempts,
		},
	})
}

// ListSessions lists connected shells.
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.sessions.List()
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession returns one session's lifecycle state.
func (h *Handlers) GetSession(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Info())
}

// Reconnect reissues the entry load for a session.
func (h *Handlers) Reconnect(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	s.Controller().Reconnect()
	c.JSON(http.StatusAccepted, gin.H{"session": s.ID.String(), "action": "reconnect"})
}

// ResumeAudio resumes a session's suspended audio as if the app became
// active.
func (h *Handlers) ResumeAudio(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	s.Controller().ApplicationBecameActive()
	c.JSON(http.StatusAccepted, gin.H{"session": s.ID.String(), "action": "resume_audio"})
}

func (h *Handlers) lookup(c *gin.Context) (*ws.Session, bool) {
	sid := id.SessionID(c.Param("id"))
	if !sid.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return nil, false
	}
	s, ok := h.sessions.Get(sid)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return s, true
}
