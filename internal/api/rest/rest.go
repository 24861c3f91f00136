package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/duskpool/dp-indexer/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// State object endpoints (public read access)
		v1.GET("/accounts/:account_id/objects", handler.GetAccountObjects)
		v1.GET("/objects/:recovery_stream_seed", handler.GetObject)

		// Chain checkpoint endpoint (public read access)
		v1.GET("/chains/:chain/checkpoint", handler.GetChainCheckpoint)

		// Workflow endpoints (public read access)
		v1.GET("/workflows/:workflow_id/runs/:run_id", handler.GetWorkflowStatus)

		// Account registration (requires authentication)
		v1.POST("/accounts", middleware.Auth(authCfg), handler.RegisterAccount)

		// Expected object announcements (requires authentication)
		v1.POST("/expectations", middleware.Auth(authCfg), handler.CreateExpectation)

		// Backfill triggers (requires authentication)
		v1.POST("/accounts/:account_id/backfill", middleware.Auth(authCfg), handler.TriggerBackfill)
	}
}
