package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/duskpool/dp-indexer/internal/api/middleware"
	"github.com/duskpool/dp-indexer/internal/api/rest"
	"github.com/duskpool/dp-indexer/internal/domain"
	"github.com/duskpool/dp-indexer/internal/logger"
	"github.com/duskpool/dp-indexer/internal/providers/temporal"
	"github.com/duskpool/dp-indexer/internal/store"
)

// Config holds the server configuration
type Config struct {
	Debug           bool
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	WorkerTaskQueue string
	Chains          []domain.Chain
	Auth            middleware.AuthConfig
}

// Server serves the read API and the authenticated write endpoints
type Server struct {
	config       Config
	store        store.Store
	orchestrator temporal.TemporalOrchestrator
	httpServer   *http.Server
}

// New creates a server. Nothing listens until Start is called.
func New(cfg Config, store store.Store, orchestrator temporal.TemporalOrchestrator) *Server {
	return &Server{
		config:       cfg,
		store:        store,
		orchestrator: orchestrator,
	}
}

// Start builds the router and blocks serving HTTP until Shutdown
func (s *Server) Start() error {
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS())

	restHandler := rest.NewHandler(s.store, s.orchestrator, s.config.WorkerTaskQueue, s.config.Chains)
	rest.SetupRoutes(router, restHandler, s.config.Auth)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting API server",
		zap.String("address", addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown drains in-flight requests until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
