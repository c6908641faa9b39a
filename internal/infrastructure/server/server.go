package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	httpapi "github.com/GriffinCanCode/AgentOS/webhost/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/monitoring"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the gateway HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	sessions *ws.Sessions
	logger   *zap.Logger
	config   config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg config.Config, logger *logging.Logger, metrics *monitoring.Metrics) *Server {
	log := logger.Component("server")
	log.Info("Initializing host gateway",
		zap.String("port", cfg.Server.Port),
		zap.String("content", cfg.Content.URL),
		zap.String("loading_mode", cfg.Presentation.Mode),
	)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger.Component("http")))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		log.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.MessagesPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.MessagesPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	sessions := ws.NewSessions(metrics)
	handlers := httpapi.NewHandlers(cfg, sessions)
	wsHandler := ws.NewHandler(cfg, sessions, logger.Component("gateway"), metrics)

	router.GET("/health", handlers.Health)
	router.GET("/metrics", monitoring.Handler(metrics))

	router.GET("/sessions", handlers.ListSessions)
	router.GET("/sessions/:id", handlers.GetSession)
	router.POST("/sessions/:id/reconnect", handlers.Reconnect)
	router.POST("/sessions/:id/resume-audio", handlers.ResumeAudio)

	// WebSocket
	router.GET("/shell", wsHandler.HandleConnection)

	return &Server{
		router:   router,
		sessions: sessions,
		logger:   log,
		config:   cfg,
		metrics:  metrics,
	}
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the live session set.
func (s *Server) Sessions() *ws.Sessions {
	return s.sessions
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...", zap.Int("sessions", s.sessions.Len()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
