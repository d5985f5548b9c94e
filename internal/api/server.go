package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/aeoscan/internal/api/middleware"
	"github.com/jonesrussell/aeoscan/internal/logger"
)

// shutdownTimeout bounds graceful shutdown on Stop.
const shutdownTimeout = 10 * time.Second

// ServerConfig holds the HTTP server settings the api package needs.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Development  bool
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	log        logger.Interface
}

// NewServer wires routes and middleware into a ready-to-start server.
func NewServer(cfg ServerConfig, handler *ScansHandler, log logger.Interface) *Server {
	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.RequestLogger(log))
	engine.Use(middleware.Recovery(log))

	registerRoutes(engine, handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

// registerRoutes declares the API surface.
func registerRoutes(engine *gin.Engine, handler *ScansHandler) {
	engine.GET("/health", handler.Health)

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/scans", handler.CreateScan)
		v1.GET("/scans", handler.ListScans)
		v1.GET("/scans/:id", handler.GetScan)
		v1.GET("/scans/:id/pages/:pageID/raw", handler.GetRawPage)
		v1.GET("/scans/:id/issues/:issueID", handler.GetIssue)
		v1.GET("/scans/:id/issues/:issueID/export", handler.ExportIssueURLs)
	}
}

// Start runs the server until it fails or Stop is called.
func (s *Server) Start() error {
	s.log.Info("starting API server", "address", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}

	return nil
}

// Stop shuts the server down gracefully, draining in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("stopping API server")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}

	return nil
}
