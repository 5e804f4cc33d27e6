package handlers

import (
	"net/http"

	"github.com/ahmedelhadi17776/worklog/internal/api/dto"
	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/profile"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	service profile.Service
	logger  *zap.Logger
}

func NewProfileHandler(service profile.Service, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{service: service, logger: logger}
}

// Me returns the caller's own profile
func (h *ProfileHandler) Me(c *gin.Context) {
	caller := callerOf(c)
	p, err := h.service.Get(c.Request.Context(), caller, caller.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": p})
}

// Navigation lists the views the caller's role may open
func (h *ProfileHandler) Navigation(c *gin.Context) {
	caller := callerOf(c)
	c.JSON(http.StatusOK, gin.H{"data": dto.NavigationResponse{
		Role:  caller.Role,
		Views: authz.Navigation(caller),
	}})
}

// List godoc
// @Summary List profiles
// @Tags profiles
// @Security BearerAuth
// @Param role query string false "Role"
// @Param status query string false "Status"
// @Param search query string false "Name or email"
// @Success 200 {object} dto.ListResponse[profile.Profile]
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/profiles [get]
func (h *ProfileHandler) List(c *gin.Context) {
	q, ok := bindQuery[dto.ProfileQuery](c)
	if !ok {
		return
	}
	profiles, total, err := h.service.List(c.Request.Context(), callerOf(c), q.Filter())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dto.NewListResponse(profiles, total, q.Page, q.Size())})
}

func (h *ProfileHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), callerOf(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": p})
}

// Update godoc
// @Summary Update a profile
// @Description Role and status changes are honoured for admins only
// @Tags profiles
// @Security BearerAuth
// @Param id path string true "Profile ID"
// @Param request body dto.UpdateProfileRequest true "Changes"
// @Success 200 {object} profile.Profile
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/profiles/{id} [patch]
func (h *ProfileHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req, ok := bind[dto.UpdateProfileRequest](c)
	if !ok {
		return
	}
	p, err := h.service.Update(c.Request.Context(), callerOf(c), id, req.Input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	req, ok := bind[dto.ChangePasswordRequest](c)
	if !ok {
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), callerOf(c), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

func (h *ProfileHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), callerOf(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
