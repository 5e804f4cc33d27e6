package handlers

import (
	"net/http"

	"github.com/ahmedelhadi17776/worklog/internal/api/dto"
	"github.com/ahmedelhadi17776/worklog/internal/api/middleware"
	"github.com/ahmedelhadi17776/worklog/internal/domain/profile"
	"github.com/ahmedelhadi17776/worklog/pkg/security/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler handles registration, login and token lifecycle
type AuthHandler struct {
	profiles profile.Service
	jwt      *auth.JWTService
	sessions *auth.SessionStore
	logger   *zap.Logger
}

func NewAuthHandler(profiles profile.Service, jwt *auth.JWTService, sessions *auth.SessionStore, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{profiles: profiles, jwt: jwt, sessions: sessions, logger: logger}
}

func (h *AuthHandler) issue(c *gin.Context, p *profile.Profile) (*dto.AuthResponse, error) {
	token, expiresAt, err := h.jwt.Issue(p.ID, p.Email, string(p.Role))
	if err != nil {
		return nil, err
	}
	h.sessions.CreateSession(p.ID, c.Request.UserAgent(), c.ClientIP(), token, expiresAt)
	return &dto.AuthResponse{Token: token, ExpiresAt: expiresAt, Profile: p}, nil
}

// Register godoc
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration"
// @Success 201 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	req, ok := bind[dto.RegisterRequest](c)
	if !ok {
		return
	}

	p, err := h.profiles.Register(c.Request.Context(), req.Input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp, err := h.issue(c, p)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// Login godoc
// @Summary Exchange credentials for a token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	req, ok := bind[dto.LoginRequest](c)
	if !ok {
		return
	}

	p, err := h.profiles.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp, err := h.issue(c, p)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info("User logged in", zap.String("user_id", p.ID.String()))
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Logout godoc
// @Summary Invalidate the current token
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token := middleware.GetToken(c)
	if session, ok := h.sessions.GetSession(token); ok {
		auth.GetTokenBlacklist().AddToBlacklist(token, session.ExpiresAt)
	}
	h.sessions.InvalidateSession(token)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Refresh godoc
// @Summary Renew a token close to expiry
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} dto.AuthResponse
// @Router /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	old := middleware.GetToken(c)
	token, expiresAt, err := h.jwt.RefreshToken(old)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	caller := callerOf(c)
	if token != old {
		if session, ok := h.sessions.GetSession(old); ok {
			auth.GetTokenBlacklist().AddToBlacklist(old, session.ExpiresAt)
		}
		h.sessions.InvalidateSession(old)
		h.sessions.CreateSession(caller.ID, c.Request.UserAgent(), c.ClientIP(), token, expiresAt)
	}

	p, err := h.profiles.Get(c.Request.Context(), caller, caller.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dto.AuthResponse{Token: token, ExpiresAt: expiresAt, Profile: p}})
}

// Sessions lists the caller's live sessions
func (h *AuthHandler) Sessions(c *gin.Context) {
	caller := callerOf(c)
	c.JSON(http.StatusOK, gin.H{"data": h.sessions.GetUserSessions(caller.ID)})
}
