package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/attempt-service/internal/cache"
	"github.com/SAP-F-2025/attempt-service/internal/config"
	"github.com/SAP-F-2025/attempt-service/internal/repositories"
	"github.com/SAP-F-2025/attempt-service/internal/services"
	"github.com/SAP-F-2025/attempt-service/internal/utils"
)

const healthCheckTimeout = 3 * time.Second

type HandlerManager struct {
	attemptHandler *AttemptHandler
	userHandler    *UserHandler
	authMiddleware *CasdoorAuthMiddleware
	rateLimit      gin.HandlerFunc
	health         func(ctx context.Context) error
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	cfg *config.Config,
	userRepo repositories.UserRepository,
	cacheManager *cache.CacheManager,
) *HandlerManager {
	var limiter *cache.CacheHelper
	if cacheManager != nil && cacheManager.Enabled() {
		limiter = cacheManager.RateLimit
	}

	return &HandlerManager{
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), serviceManager.Export(), logger),
		userHandler:    NewUserHandler(serviceManager.Attempt(), logger),
		authMiddleware: NewCasdoorAuthMiddleware(cfg.Casdoor, userRepo, logger),
		rateLimit:      RateLimitMiddleware(limiter, cfg.RateLimit, logger),
		health:         serviceManager.HealthCheck,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Starting and submitting are addressed by the assessment
		assessments := v1.Group("/assessments")
		{
			assessments.POST("/:slug/attempts", hm.rateLimit, hm.attemptHandler.StartAttempt)
			assessments.POST("/:slug/attempts/:session_id/submit", hm.rateLimit, hm.attemptHandler.SubmitAttempt)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.GET("/me", hm.attemptHandler.GetMyAttempts)
			attempts.GET("/me/export", hm.rateLimit, hm.attemptHandler.ExportMyAttempts)
		}

		// User routes
		users := v1.Group("/users")
		{
			users.GET("/me", hm.userHandler.GetMe)
			users.GET("/me/points", hm.userHandler.GetMyPoints)
		}
	}

	// Health check endpoint
	router.GET("/health", hm.HealthCheck)
}

// HealthCheck reports liveness and datastore reachability
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := hm.health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "attempt-service",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "attempt-service",
	})
}
