package routes

import (
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/api/dto"
	"github.com/ahmedelhadi17776/worklog/internal/api/handlers"
	"github.com/ahmedelhadi17776/worklog/internal/api/middleware"
	"github.com/ahmedelhadi17776/worklog/pkg/security/auth"
	"github.com/gin-gonic/gin"
)

// AuthRoutes registers sign-up, sign-in and the caller's own profile
type AuthRoutes struct {
	authHandler    *handlers.AuthHandler
	profileHandler *handlers.ProfileHandler
	authMiddleware gin.HandlerFunc
	rateLimiter    auth.RateLimiter
}

func NewAuthRoutes(authHandler *handlers.AuthHandler, profileHandler *handlers.ProfileHandler, authMiddleware gin.HandlerFunc, rateLimiter auth.RateLimiter) *AuthRoutes {
	return &AuthRoutes{
		authHandler:    authHandler,
		profileHandler: profileHandler,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
	}
}

// RegisterRoutes sets up /api/auth and /api/profiles
func (r *AuthRoutes) RegisterRoutes(api *gin.RouterGroup) {
	validation := middleware.NewValidationMiddleware()

	authGroup := api.Group("/auth")
	{
		// Public routes with stricter rate limiting
		public := authGroup.Group("")
		public.Use(middleware.RateLimitMiddleware(r.rateLimiter.WithLimit(10, time.Minute)))
		{
			public.POST("/register", validation.ValidateRequest(&dto.RegisterRequest{}), r.authHandler.Register)
			public.POST("/login", validation.ValidateRequest(&dto.LoginRequest{}), r.authHandler.Login)
		}

		protected := authGroup.Group("")
		protected.Use(r.authMiddleware)
		{
			protected.POST("/logout", r.authHandler.Logout)
			protected.POST("/refresh", r.authHandler.Refresh)
			protected.GET("/sessions", r.authHandler.Sessions)
		}
	}

	profiles := api.Group("/profiles")
	profiles.Use(r.authMiddleware)
	{
		profiles.GET("/me", r.profileHandler.Me)
		profiles.GET("/me/navigation", r.profileHandler.Navigation)
		profiles.PUT("/me/password", validation.ValidateRequest(&dto.ChangePasswordRequest{}), r.profileHandler.ChangePassword)

		profiles.GET("", validation.ValidateQuery(&dto.ProfileQuery{}), r.profileHandler.List)
		profiles.GET("/:id", r.profileHandler.Get)
		profiles.PUT("/:id", validation.ValidateRequest(&dto.UpdateProfileRequest{}), r.profileHandler.Update)
		profiles.DELETE("/:id", r.profileHandler.Delete)
	}
}
