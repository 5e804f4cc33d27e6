package routes

import (
	"github.com/ahmedelhadi17776/worklog/internal/api/dto"
	"github.com/ahmedelhadi17776/worklog/internal/api/handlers"
	"github.com/ahmedelhadi17776/worklog/internal/api/middleware"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/gin-gonic/gin"
)

// TaskRoutes handles the setup of task-related routes
type TaskRoutes struct {
	handler        *handlers.TaskHandler
	authMiddleware gin.HandlerFunc
}

// NewTaskRoutes creates a new TaskRoutes instance
func NewTaskRoutes(handler *handlers.TaskHandler, authMiddleware gin.HandlerFunc) *TaskRoutes {
	return &TaskRoutes{handler: handler, authMiddleware: authMiddleware}
}

// RegisterRoutes registers all task-related routes
func (r *TaskRoutes) RegisterRoutes(api *gin.RouterGroup) {
	validation := middleware.NewValidationMiddleware()

	tasks := api.Group("/tasks")
	tasks.Use(r.authMiddleware)

	tasks.GET("", validation.ValidateQuery(&dto.TaskQuery{}), r.handler.ListTasks)
	tasks.GET("/:id", r.handler.GetTask)
	tasks.POST("", validation.ValidateRequest(&task.CreateTaskInput{}), r.handler.CreateTask)
	tasks.PUT("/:id", validation.ValidateRequest(&task.UpdateTaskInput{}), r.handler.UpdateTask)
	tasks.DELETE("/:id", r.handler.DeleteTask)

	// Status updates
	tasks.PATCH("/:id/status", validation.ValidateRequest(&dto.UpdateTaskStatusRequest{}), r.handler.UpdateTaskStatus)
	tasks.PATCH("/:id/assign", validation.ValidateRequest(&dto.AssignTaskRequest{}), r.handler.AssignTask)
}
