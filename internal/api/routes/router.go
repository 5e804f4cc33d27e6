package routes

import (
	"slices"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/api/handlers"
	"github.com/ahmedelhadi17776/worklog/internal/api/middleware"
	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/cache"
	"github.com/ahmedelhadi17776/worklog/pkg/config"
	"github.com/ahmedelhadi17776/worklog/pkg/security/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers bundles every HTTP handler served under /api
type Handlers struct {
	Auth          *handlers.AuthHandler
	Profiles      *handlers.ProfileHandler
	Projects      *handlers.ProjectHandler
	Tasks         *handlers.TaskHandler
	TimeLogs      *handlers.TimeLogHandler
	Notifications *handlers.NotificationHandler
	Views         *handlers.ViewsHandler
}

// RouterDeps holds what the router needs besides the handlers
type RouterDeps struct {
	Config      *config.Config
	Resolver    middleware.CallerResolver
	RateLimiter auth.RateLimiter
	DB          Pinger
	Redis       *cache.RedisClient
	Logger      *zap.Logger
}

// NewRouter builds the gin engine with the global middleware chain and every route group
func NewRouter(h Handlers, deps RouterDeps) *gin.Engine {
	cfg := deps.Config

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(corsMiddleware(cfg.CORS))
	router.Use(middleware.NewMetricsMiddleware().CollectMetrics())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	SetupHealthRoutes(router, deps.DB, deps.Redis)

	api := router.Group("/api")
	api.Use(middleware.APIKeyMiddleware(cfg.Auth.PublicAPIKey))

	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, deps.Resolver)

	NewAuthRoutes(h.Auth, h.Profiles, authMiddleware, deps.RateLimiter).RegisterRoutes(api)
	NewProjectRoutes(h.Projects, authMiddleware).RegisterRoutes(api)
	NewTaskRoutes(h.Tasks, authMiddleware).RegisterRoutes(api)
	NewTimeLogRoutes(h.TimeLogs, authMiddleware).RegisterRoutes(api)
	NewNotificationRoutes(h.Notifications, authMiddleware, deps.RateLimiter).RegisterRoutes(api)
	NewViewRoutes(h.Views, authMiddleware).RegisterRoutes(api)

	return router
}

func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods: cfg.AllowedMethods,
		AllowHeaders: append(cfg.AllowedHeaders,
			"Accept-Encoding",
			"Content-Type",
			"Authorization",
			"X-Request-ID",
		),
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Disposition",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"X-Request-ID",
		},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(c)
}
