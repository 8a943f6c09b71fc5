package api

import (
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"

	"github.com/moodloom/recengine/internal/api/handlers"
	"github.com/moodloom/recengine/internal/api/middleware"
	"github.com/moodloom/recengine/internal/session"
)

// SetupRouter builds the engine exposing health, metrics, and the
// recommendation engine's public contract over HTTP.
func SetupRouter(db *gorm.DB, workflowService *session.Service, version string) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(middleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(middleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(middleware.RequestTracking())

	// Health check
	healthHandler := handlers.NewHealthHandler(db)
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoint
	metricsHandler := handlers.NewMetricsHandler(version)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	// Recommendation engine's public contract
	workflowHandler := handlers.NewWorkflowHandler(workflowService)
	v1 := router.Group("/api/v1")
	{
		v1.POST("/workflows", workflowHandler.Start)
		v1.GET("/workflows/:session_id", workflowHandler.Get)
		v1.POST("/workflows/:session_id/cancel", workflowHandler.Cancel)
	}

	return router
}
