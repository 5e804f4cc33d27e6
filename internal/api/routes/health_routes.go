package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/cache"
	"github.com/gin-gonic/gin"
)

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`
	Timestamp time.Time `json:"timestamp" example:"2026-04-17T02:00:00Z"`
	Error     string    `json:"error,omitempty"`
}

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping() error
}

// SetupHealthRoutes registers health check endpoints. redis may be nil when caching is disabled.
func SetupHealthRoutes(router *gin.Engine, db Pinger, redis *cache.RedisClient) {
	// @Summary Health check endpoint
	// @Tags health
	// @Produce json
	// @Success 200 {object} HealthResponse
	// @Router /health [get]
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
		})
	})

	// @Summary Readiness check endpoint
	// @Description Ready once the store answers
	// @Tags health
	// @Produce json
	// @Success 200 {object} HealthResponse
	// @Failure 503 {object} HealthResponse
	// @Router /health/ready [get]
	router.GET("/health/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, HealthResponse{
				Status:    "unavailable",
				Timestamp: time.Now().UTC(),
				Error:     err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, HealthResponse{
			Status:    "ready",
			Timestamp: time.Now().UTC(),
		})
	})

	router.GET("/health/cache", func(c *gin.Context) {
		if redis == nil {
			c.JSON(http.StatusOK, gin.H{"status": "disabled", "component": "cache"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := redis.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"component": "cache",
				"error":     err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"component": "cache",
			"metrics":   redis.GetMetrics(),
		})
	})
}
