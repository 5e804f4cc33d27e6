package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/api/handlers"
	"github.com/ahmedelhadi17776/worklog/internal/api/routes"
	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/calendar"
	"github.com/ahmedelhadi17776/worklog/internal/domain/dashboard"
	"github.com/ahmedelhadi17776/worklog/internal/domain/events"
	"github.com/ahmedelhadi17776/worklog/internal/domain/profile"
	"github.com/ahmedelhadi17776/worklog/internal/domain/project"
	"github.com/ahmedelhadi17776/worklog/internal/domain/report"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/ahmedelhadi17776/worklog/internal/domain/timelog"
	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/cache"
	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/persistence/postgres/connection"
	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/persistence/postgres/migrations"
	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/scheduler"
	"github.com/ahmedelhadi17776/worklog/pkg/config"
	"github.com/ahmedelhadi17776/worklog/pkg/logger"
	"github.com/ahmedelhadi17776/worklog/pkg/security/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title           Worklog API
// @version         1.0
// @description     Projects, tasks, time tracking and approvals for small teams.

// @host      localhost:8000
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name apikey

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.NewLoggerWithLevel(cfg.Logging.Level)
	defer log.Sync()

	log.Info("Configuration loaded successfully", zap.String("mode", cfg.Server.Mode))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	gin.DisableBindValidation()

	db, err := connection.NewDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migrations.AutoMigrate(db, log.Logger); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Redis is optional: without it views are computed on every request
	var (
		redisClient *cache.RedisClient
		rateLimiter auth.RateLimiter
		callerCache profile.Cache
	)
	redisClient, err = cache.NewRedisClient(cache.NewConfigFromEnv(cfg))
	if err != nil {
		log.Warn("Redis unavailable, caching disabled", zap.Error(err))
		rateLimiter = auth.NewMemoryRateLimiter(time.Minute, 1000)
	} else {
		defer redisClient.Close()
		rateLimiter = auth.NewRedisRateLimiter(redisClient.GetClient(), time.Minute, 1000)
		callerCache = redisClient
	}
	broadcaster := cache.NewDashboardBroadcaster(redisClient)

	policy := authz.NewEvaluator()
	sessions := auth.GetSessionStore()
	jwtService := auth.NewJWTService(cfg)

	notificationSystem, err := SetupNotificationSystem(db, policy, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize notification system", zap.Error(err))
	}
	defer notificationSystem.Shutdown()
	notifier := notificationSystem.DomainNotifier

	// Repositories
	profileRepo := profile.NewRepository(db)
	projectRepo := project.NewRepository(db)
	taskRepo := task.NewRepository(db)
	timeLogRepo := timelog.NewRepository(db)

	// Services
	profileService := profile.NewService(profileRepo, policy, callerCache, sessions, log.Named("profile").Logger)
	projectService := project.NewService(projectRepo, policy, broadcaster, log.Named("project").Logger)
	taskService := task.NewService(taskRepo, projectService, policy, notifier, broadcaster, log.Named("task").Logger)
	timeLogService := timelog.NewService(timelog.Dependencies{
		Repository: timeLogRepo,
		Tasks:      taskService,
		Projects:   projectService,
		Admins:     profileService,
		Policy:     policy,
		Notifier:   notifier,
		Events:     broadcaster,
		Logger:     log.Named("timelog").Logger,
	})
	dashboardService := dashboard.NewService(taskService, timeLogService, notificationSystem.Service, redisClient, log.Named("dashboard").Logger)
	reportService := report.NewService(taskService, timeLogService, projectService, profileService, redisClient, log.Named("report").Logger)
	calendarService := calendar.NewService(taskService, redisClient, log.Named("calendar").Logger)

	jobs := scheduler.NewScheduler(taskService, notificationSystem.Service, notifier, sessions, cfg.Scheduler, log.Named("scheduler"))
	jobsCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	jobs.Start(jobsCtx)
	defer jobs.Stop()
	log.Info("Scheduler started")

	if redisClient != nil {
		go func() {
			err := redisClient.SubscribeToDashboardEvents(jobsCtx, func(event *events.DashboardEvent) error {
				log.Info("Dashboard event received",
					zap.String("event_type", event.EventType),
					zap.String("user_id", event.UserID.String()))
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Failed to listen for dashboard events", zap.Error(err))
			}
		}()
	}

	router := routes.NewRouter(routes.Handlers{
		Auth:          handlers.NewAuthHandler(profileService, jwtService, sessions, log.Named("auth").Logger),
		Profiles:      handlers.NewProfileHandler(profileService, log.Logger),
		Projects:      handlers.NewProjectHandler(projectService, log.Logger),
		Tasks:         handlers.NewTaskHandler(taskService, log.Logger),
		TimeLogs:      handlers.NewTimeLogHandler(timeLogService, log.Logger),
		Notifications: handlers.NewNotificationHandler(notificationSystem.Service, log.Logger, nil),
		Views:         handlers.NewViewsHandler(dashboardService, reportService, calendarService, log.Logger),
	}, routes.RouterDeps{
		Config:      cfg,
		Resolver:    profileService,
		RateLimiter: rateLimiter,
		DB:          db,
		Redis:       redisClient,
		Logger:      log.Logger,
	})

	for _, route := range router.Routes() {
		log.Info("Route registered",
			zap.String("method", route.Method),
			zap.String("path", route.Path),
		)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info(fmt.Sprintf("Server starting on port %d", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Info("Shutting down server...")
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited properly")
}
