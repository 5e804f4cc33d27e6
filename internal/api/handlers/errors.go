package handlers

import (
	"errors"
	"net/http"

	"github.com/ahmedelhadi17776/worklog/internal/api/middleware"
	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/calendar"
	"github.com/ahmedelhadi17776/worklog/internal/domain/notification"
	"github.com/ahmedelhadi17776/worklog/internal/domain/profile"
	"github.com/ahmedelhadi17776/worklog/internal/domain/project"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/ahmedelhadi17776/worklog/internal/domain/timelog"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{authz.ErrUnauthenticated, http.StatusUnauthorized},
	{authz.ErrInactive, http.StatusForbidden},
	{authz.ErrForbidden, http.StatusForbidden},

	{profile.ErrInvalidCredentials, http.StatusUnauthorized},
	{profile.ErrAccountInactive, http.StatusForbidden},

	{profile.ErrProfileNotFound, http.StatusNotFound},
	{project.ErrProjectNotFound, http.StatusNotFound},
	{project.ErrMemberNotFound, http.StatusNotFound},
	{task.ErrTaskNotFound, http.StatusNotFound},
	{timelog.ErrTimeLogNotFound, http.StatusNotFound},
	{timelog.ErrNoActiveTimer, http.StatusNotFound},
	{notification.ErrNotFound, http.StatusNotFound},

	{timelog.ErrTimerAlreadyRunning, http.StatusConflict},
	{timelog.ErrInvalidApprovalTransition, http.StatusConflict},
	{project.ErrAlreadyMember, http.StatusConflict},
	{profile.ErrEmailExists, http.StatusConflict},
	{profile.ErrLastAdmin, http.StatusConflict},

	{profile.ErrInvalidInput, http.StatusBadRequest},
	{project.ErrInvalidInput, http.StatusBadRequest},
	{task.ErrInvalidInput, http.StatusBadRequest},
	{timelog.ErrInvalidInput, http.StatusBadRequest},
	{timelog.ErrInvalidInterval, http.StatusBadRequest},
	{notification.ErrInvalidInput, http.StatusBadRequest},
	{calendar.ErrInvalidRange, http.StatusBadRequest},
}

// StatusFor maps a domain error to its HTTP status
func StatusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes the error response. Unexpected errors are logged and hidden.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// callerOf returns the caller resolved by the auth middleware
func callerOf(c *gin.Context) authz.Caller {
	caller, _ := middleware.GetCaller(c)
	return caller
}

// bind reads the body validated by the middleware, falling back to plain binding
func bind[T any](c *gin.Context) (*T, bool) {
	if req, ok := middleware.Validated[T](c); ok {
		return req, true
	}
	req := new(T)
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return nil, false
	}
	return req, true
}

func bindQuery[T any](c *gin.Context) (*T, bool) {
	if q, ok := middleware.ValidatedQuery[T](c); ok {
		return q, true
	}
	q := new(T)
	if err := c.ShouldBindQuery(q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return nil, false
	}
	return q, true
}
