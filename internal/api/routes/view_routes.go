package routes

import (
	"github.com/ahmedelhadi17776/worklog/internal/api/dto"
	"github.com/ahmedelhadi17776/worklog/internal/api/handlers"
	"github.com/ahmedelhadi17776/worklog/internal/api/middleware"
	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/gin-gonic/gin"
)

// ViewRoutes registers the dashboard, reports and calendar
type ViewRoutes struct {
	handler        *handlers.ViewsHandler
	authMiddleware gin.HandlerFunc
}

func NewViewRoutes(handler *handlers.ViewsHandler, authMiddleware gin.HandlerFunc) *ViewRoutes {
	return &ViewRoutes{handler: handler, authMiddleware: authMiddleware}
}

func (r *ViewRoutes) RegisterRoutes(api *gin.RouterGroup) {
	validation := middleware.NewValidationMiddleware()

	api.GET("/dashboard", r.authMiddleware, middleware.RequireView(authz.ViewDashboard), r.handler.Dashboard)

	reports := api.Group("/reports")
	reports.Use(r.authMiddleware, middleware.RequireView(authz.ViewReports))
	{
		reports.GET("", validation.ValidateQuery(&dto.ReportQuery{}), r.handler.Report)
		reports.GET("/export", validation.ValidateQuery(&dto.ReportQuery{}), r.handler.ExportReport)
	}

	calendar := api.Group("/calendar")
	calendar.Use(r.authMiddleware, middleware.RequireView(authz.ViewCalendar))
	{
		calendar.GET("", validation.ValidateQuery(&dto.CalendarQuery{}), r.handler.CalendarMonth)
		calendar.GET("/day", validation.ValidateQuery(&dto.CalendarDayQuery{}), r.handler.CalendarDay)
	}
}
