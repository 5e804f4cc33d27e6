package routes

import (
	"github.com/ahmedelhadi17776/worklog/internal/api/dto"
	"github.com/ahmedelhadi17776/worklog/internal/api/handlers"
	"github.com/ahmedelhadi17776/worklog/internal/api/middleware"
	"github.com/ahmedelhadi17776/worklog/internal/domain/project"
	"github.com/gin-gonic/gin"
)

// ProjectRoutes handles the setup of project and membership routes
type ProjectRoutes struct {
	handler        *handlers.ProjectHandler
	authMiddleware gin.HandlerFunc
}

func NewProjectRoutes(handler *handlers.ProjectHandler, authMiddleware gin.HandlerFunc) *ProjectRoutes {
	return &ProjectRoutes{handler: handler, authMiddleware: authMiddleware}
}

// RegisterRoutes registers all project-related routes
func (r *ProjectRoutes) RegisterRoutes(api *gin.RouterGroup) {
	validation := middleware.NewValidationMiddleware()

	projects := api.Group("/projects")
	projects.Use(r.authMiddleware)

	projects.GET("", validation.ValidateQuery(&dto.ProjectQuery{}), r.handler.ListProjects)
	projects.GET("/:id", r.handler.GetProject)
	projects.POST("", validation.ValidateRequest(&project.CreateProjectInput{}), r.handler.CreateProject)
	projects.PUT("/:id", validation.ValidateRequest(&project.UpdateProjectInput{}), r.handler.UpdateProject)
	projects.DELETE("/:id", r.handler.DeleteProject)

	// Members
	projects.GET("/:id/members", r.handler.ListMembers)
	projects.POST("/:id/members", validation.ValidateRequest(&dto.AddMemberRequest{}), r.handler.AddMember)
	projects.DELETE("/:id/members/:user_id", r.handler.RemoveMember)
}
