package handlers

import (
	"net/http"

	"github.com/ahmedelhadi17776/worklog/internal/api/dto"
	"github.com/ahmedelhadi17776/worklog/internal/domain/project"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProjectHandler handles HTTP requests for projects and their members
type ProjectHandler struct {
	service project.Service
	logger  *zap.Logger
}

func NewProjectHandler(service project.Service, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{service: service, logger: logger}
}

// CreateProject godoc
// @Summary Create a project
// @Description Admin only. Optional fields left out are stored as null.
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param project body project.CreateProjectInput true "Project"
// @Success 201 {object} project.Project
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	input, ok := bind[project.CreateProjectInput](c)
	if !ok {
		return
	}
	p, err := h.service.CreateProject(c.Request.Context(), callerOf(c), *input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": p})
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	details, err := h.service.GetProjectDetails(c.Request.Context(), callerOf(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": details})
}

// ListProjects godoc
// @Summary List the projects visible to the caller
// @Tags projects
// @Security BearerAuth
// @Param status query string false "planned, in_progress or completed"
// @Param name query string false "Name contains"
// @Success 200 {object} dto.ListResponse[project.Project]
// @Router /api/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	q, ok := bindQuery[dto.ProjectQuery](c)
	if !ok {
		return
	}
	projects, total, err := h.service.ListProjects(c.Request.Context(), callerOf(c), q.Filter())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dto.NewListResponse(projects, total, q.Page, q.Size())})
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	input, ok := bind[project.UpdateProjectInput](c)
	if !ok {
		return
	}
	p, err := h.service.UpdateProject(c.Request.Context(), callerOf(c), id, *input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteProject(c.Request.Context(), callerOf(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProjectHandler) ListMembers(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	members, err := h.service.ListProjectMembers(c.Request.Context(), callerOf(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if members == nil {
		members = []project.ProjectMember{}
	}
	c.JSON(http.StatusOK, gin.H{"data": members})
}

func (h *ProjectHandler) AddMember(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req, ok := bind[dto.AddMemberRequest](c)
	if !ok {
		return
	}
	member, err := h.service.AddProjectMember(c.Request.Context(), callerOf(c), id, req.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": member})
}

func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	if err := h.service.RemoveProjectMember(c.Request.Context(), callerOf(c), id, userID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
