package handlers

import (
	"net/http"

	"github.com/ahmedelhadi17776/worklog/internal/api/dto"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TaskHandler handles HTTP requests for task operations
type TaskHandler struct {
	service task.Service
	logger  *zap.Logger
}

// NewTaskHandler creates a new TaskHandler instance
func NewTaskHandler(service task.Service, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{service: service, logger: logger}
}

// CreateTask godoc
// @Summary Create a new task
// @Description A task without project_id is a personal task of the caller
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param task body task.CreateTaskInput true "Task creation request"
// @Success 201 {object} task.Task "Task created successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 403 {object} dto.ErrorResponse "Insufficient permissions"
// @Router /api/tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	input, ok := bind[task.CreateTaskInput](c)
	if !ok {
		return
	}
	created, err := h.service.CreateTask(c.Request.Context(), callerOf(c), *input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": created})
}

// GetTask godoc
// @Summary Get a task by ID
// @Tags tasks
// @Security BearerAuth
// @Param id path string true "Task ID" format(uuid)
// @Success 200 {object} task.Task
// @Failure 404 {object} dto.ErrorResponse "Task not found"
// @Router /api/tasks/{id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	t, err := h.service.GetTask(c.Request.Context(), callerOf(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": t})
}

// ListTasks godoc
// @Summary List the tasks visible to the caller
// @Tags tasks
// @Security BearerAuth
// @Param page query int false "Page number (default: 0)"
// @Param page_size query int false "Items per page (default: 20)"
// @Param project_id query string false "Filter by project ID"
// @Param personal query bool false "Only tasks without a project"
// @Param status query string false "Filter by status"
// @Param assigned_to query string false "Filter by assignee ID"
// @Success 200 {object} dto.ListResponse[task.Task]
// @Router /api/tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	q, ok := bindQuery[dto.TaskQuery](c)
	if !ok {
		return
	}
	tasks, total, err := h.service.ListTasks(c.Request.Context(), callerOf(c), q.Filter())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dto.NewListResponse(tasks, total, q.Page, q.Size())})
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	input, ok := bind[task.UpdateTaskInput](c)
	if !ok {
		return
	}
	updated, err := h.service.UpdateTask(c.Request.Context(), callerOf(c), id, *input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req, ok := bind[dto.UpdateTaskStatusRequest](c)
	if !ok {
		return
	}
	updated, err := h.service.UpdateTaskStatus(c.Request.Context(), callerOf(c), id, req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (h *TaskHandler) AssignTask(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req, ok := bind[dto.AssignTaskRequest](c)
	if !ok {
		return
	}
	updated, err := h.service.AssignTask(c.Request.Context(), callerOf(c), id, req.AssignedTo)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteTask(c.Request.Context(), callerOf(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
