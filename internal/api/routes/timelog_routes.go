package routes

import (
	"github.com/ahmedelhadi17776/worklog/internal/api/dto"
	"github.com/ahmedelhadi17776/worklog/internal/api/handlers"
	"github.com/ahmedelhadi17776/worklog/internal/api/middleware"
	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/timelog"
	"github.com/gin-gonic/gin"
)

// TimeLogRoutes registers the timer, manual entries and the approval queue
type TimeLogRoutes struct {
	handler        *handlers.TimeLogHandler
	authMiddleware gin.HandlerFunc
}

func NewTimeLogRoutes(handler *handlers.TimeLogHandler, authMiddleware gin.HandlerFunc) *TimeLogRoutes {
	return &TimeLogRoutes{handler: handler, authMiddleware: authMiddleware}
}

func (r *TimeLogRoutes) RegisterRoutes(api *gin.RouterGroup) {
	validation := middleware.NewValidationMiddleware()

	logs := api.Group("/time-logs")
	logs.Use(r.authMiddleware)

	timer := logs.Group("/timer")
	{
		timer.POST("/start", validation.ValidateRequest(&dto.StartTimerRequest{}), r.handler.StartTimer)
		timer.POST("/stop", r.handler.StopTimer)
		timer.GET("/active", r.handler.ActiveTimer)
	}

	logs.GET("/approvals", middleware.RequireView(authz.ViewApprovals), validation.ValidateQuery(&dto.TimeLogQuery{}), r.handler.PendingApprovals)

	logs.GET("", validation.ValidateQuery(&dto.TimeLogQuery{}), r.handler.List)
	logs.POST("", validation.ValidateRequest(&timelog.ManualEntryInput{}), r.handler.ManualEntry)
	logs.GET("/:id", r.handler.Get)
	logs.PUT("/:id", validation.ValidateRequest(&timelog.UpdateInput{}), r.handler.Update)
	logs.DELETE("/:id", r.handler.Delete)

	logs.POST("/:id/approve", r.handler.Approve)
	logs.POST("/:id/reject", r.handler.Reject)
}
