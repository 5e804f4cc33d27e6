package routes

import (
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/api/dto"
	"github.com/ahmedelhadi17776/worklog/internal/api/handlers"
	"github.com/ahmedelhadi17776/worklog/internal/api/middleware"
	"github.com/ahmedelhadi17776/worklog/pkg/security/auth"
	"github.com/gin-gonic/gin"
)

// NotificationRoutes manages notification endpoint routes
type NotificationRoutes struct {
	handler        *handlers.NotificationHandler
	authMiddleware gin.HandlerFunc
	rateLimiter    auth.RateLimiter
}

// NewNotificationRoutes creates a new notification routes handler
func NewNotificationRoutes(handler *handlers.NotificationHandler, authMiddleware gin.HandlerFunc, rateLimiter auth.RateLimiter) *NotificationRoutes {
	return &NotificationRoutes{
		handler:        handler,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
	}
}

// RegisterRoutes registers notification routes with the provided router
func (r *NotificationRoutes) RegisterRoutes(api *gin.RouterGroup) {
	validation := middleware.NewValidationMiddleware()

	notifications := api.Group("/notifications")
	notifications.Use(r.authMiddleware)

	// not rate limited
	notifications.GET("/ws", r.handler.WebSocket)

	limited := notifications.Group("")
	limited.Use(middleware.RateLimitMiddleware(r.rateLimiter.WithLimit(120, time.Minute)))
	{
		limited.GET("", validation.ValidateQuery(&dto.NotificationQuery{}), r.handler.List)
		limited.GET("/unread-count", r.handler.CountUnread)
		limited.POST("", validation.ValidateRequest(&dto.CreateNotificationRequest{}), r.handler.Create)
		limited.PUT("/read-all", r.handler.MarkAllAsRead)
		limited.PUT("/:id/read", r.handler.MarkAsRead)
		limited.DELETE("/:id", r.handler.Delete)
	}
}
