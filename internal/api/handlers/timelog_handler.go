package handlers

import (
	"context"
	"net/http"

	"github.com/ahmedelhadi17776/worklog/internal/api/dto"
	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/timelog"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TimeLogHandler serves the timer, manual entries and approvals
type TimeLogHandler struct {
	service timelog.Service
	logger  *zap.Logger
}

func NewTimeLogHandler(service timelog.Service, logger *zap.Logger) *TimeLogHandler {
	return &TimeLogHandler{service: service, logger: logger}
}

// StartTimer godoc
// @Summary Start the caller's timer on a task
// @Tags time-logs
// @Security BearerAuth
// @Param request body dto.StartTimerRequest true "Task"
// @Success 201 {object} timelog.TimeLog
// @Failure 409 {object} dto.ErrorResponse "A timer is already running"
// @Router /api/time-logs/timer/start [post]
func (h *TimeLogHandler) StartTimer(c *gin.Context) {
	req, ok := bind[dto.StartTimerRequest](c)
	if !ok {
		return
	}
	log, err := h.service.Start(c.Request.Context(), callerOf(c), req.TaskID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": log})
}

// StopTimer godoc
// @Summary Stop the caller's running timer
// @Tags time-logs
// @Security BearerAuth
// @Success 200 {object} timelog.TimeLog
// @Failure 404 {object} dto.ErrorResponse "No timer is running"
// @Router /api/time-logs/timer/stop [post]
func (h *TimeLogHandler) StopTimer(c *gin.Context) {
	log, err := h.service.Stop(c.Request.Context(), callerOf(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": log})
}

// ActiveTimer returns the running timer with its elapsed time, or null
func (h *TimeLogHandler) ActiveTimer(c *gin.Context) {
	active, err := h.service.Active(c.Request.Context(), callerOf(c))
	if err != nil {
		if StatusFor(err) == http.StatusNotFound {
			c.JSON(http.StatusOK, gin.H{"data": nil})
			return
		}
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": active})
}

// ManualEntry godoc
// @Summary Record time after the fact
// @Description Manual entries always start pending, whatever approval_status is sent
// @Tags time-logs
// @Security BearerAuth
// @Param request body timelog.ManualEntryInput true "Entry"
// @Success 201 {object} timelog.TimeLog
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/time-logs [post]
func (h *TimeLogHandler) ManualEntry(c *gin.Context) {
	input, ok := bind[timelog.ManualEntryInput](c)
	if !ok {
		return
	}
	log, err := h.service.ManualEntry(c.Request.Context(), callerOf(c), *input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": log})
}

func (h *TimeLogHandler) List(c *gin.Context) {
	q, ok := bindQuery[dto.TimeLogQuery](c)
	if !ok {
		return
	}
	logs, total, err := h.service.List(c.Request.Context(), callerOf(c), q.Filter())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dto.NewListResponse(logs, total, q.Page, q.Size())})
}

// PendingApprovals lists the logs awaiting review
func (h *TimeLogHandler) PendingApprovals(c *gin.Context) {
	q, ok := bindQuery[dto.TimeLogQuery](c)
	if !ok {
		return
	}
	filter := q.Filter()
	pending := timelog.ApprovalPending
	filter.ApprovalStatus = &pending
	logs, total, err := h.service.List(c.Request.Context(), callerOf(c), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dto.NewListResponse(logs, total, q.Page, q.Size())})
}

func (h *TimeLogHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	log, err := h.service.Get(c.Request.Context(), callerOf(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": log})
}

func (h *TimeLogHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	input, ok := bind[timelog.UpdateInput](c)
	if !ok {
		return
	}
	log, err := h.service.Update(c.Request.Context(), callerOf(c), id, *input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": log})
}

func (h *TimeLogHandler) Delete(c *gin.Context) {
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

// Approve godoc
// @Summary Approve a pending time log
// @Tags time-logs
// @Security BearerAuth
// @Param id path string true "Time log ID"
// @Success 200 {object} timelog.TimeLog
// @Failure 403 {object} dto.ErrorResponse "Admins only"
// @Failure 409 {object} dto.ErrorResponse "Not pending"
// @Router /api/time-logs/{id}/approve [post]
func (h *TimeLogHandler) Approve(c *gin.Context) {
	h.review(c, h.service.Approve)
}

func (h *TimeLogHandler) Reject(c *gin.Context) {
	h.review(c, h.service.Reject)
}

type reviewFunc func(ctx context.Context, caller authz.Caller, id uuid.UUID) (*timelog.TimeLog, error)

func (h *TimeLogHandler) review(c *gin.Context, decide reviewFunc) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	log, err := decide(c.Request.Context(), callerOf(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": log})
}
