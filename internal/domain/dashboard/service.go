package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/ahmedelhadi17776/worklog/internal/domain/timelog"
	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/cache"
	"go.uber.org/zap"
)

const upcomingLimit = 5

type TaskLister interface {
	ListTasks(ctx context.Context, caller authz.Caller, filter task.TaskFilter) ([]task.Task, int64, error)
}

type TimeLogReader interface {
	List(ctx context.Context, caller authz.Caller, filter timelog.Filter) ([]timelog.TimeLog, int64, error)
	Active(ctx context.Context, caller authz.Caller) (*timelog.ActiveTimer, error)
}

type UnreadCounter interface {
	CountUnread(ctx context.Context, caller authz.Caller) (int, error)
}

type Service interface {
	GetSummary(ctx context.Context, caller authz.Caller) (*Summary, error)
}

type service struct {
	tasks         TaskLister
	timeLogs      TimeLogReader
	notifications UnreadCounter
	redis         *cache.RedisClient
	logger        *zap.Logger
	now           func() time.Time
}

// NewService builds the dashboard service. redis may be nil to disable caching.
func NewService(tasks TaskLister, timeLogs TimeLogReader, notifications UnreadCounter, redis *cache.RedisClient, logger *zap.Logger) Service {
	return &service{
		tasks:         tasks,
		timeLogs:      timeLogs,
		notifications: notifications,
		redis:         redis,
		logger:        logger,
		now:           time.Now,
	}
}

// Scope names the rows a dashboard is computed over
func Scope(caller authz.Caller) string {
	if caller.IsAdmin() {
		return cache.ScopeAll
	}
	return "own"
}

// GetSummary builds the caller's dashboard. The aggregate is cached per user;
// the running timer is always read fresh.
func (s *service) GetSummary(ctx context.Context, caller authz.Caller) (*Summary, error) {
	if err := authz.RequireView(caller, authz.ViewDashboard); err != nil {
		return nil, err
	}

	key := cache.GenerateCacheKey(cache.TypeDashboard, caller.ID, Scope(caller))
	summary, err := cache.CacheResponse(ctx, s.redis, key, cache.TypeDashboard, func() (*Summary, error) {
		return s.compute(ctx, caller)
	})
	if err != nil {
		return nil, err
	}

	active, err := s.timeLogs.Active(ctx, caller)
	switch {
	case err == nil:
		summary.ActiveTimer = active
	case errors.Is(err, timelog.ErrNoActiveTimer):
		summary.ActiveTimer = nil
	default:
		s.logger.Warn("Failed to load active timer", zap.String("user_id", caller.ID.String()), zap.Error(err))
	}

	unread, err := s.notifications.CountUnread(ctx, caller)
	if err != nil {
		s.logger.Warn("Failed to count unread notifications", zap.String("user_id", caller.ID.String()), zap.Error(err))
	}
	summary.UnreadNotifications = unread
	return summary, nil
}

func (s *service) compute(ctx context.Context, caller authz.Caller) (*Summary, error) {
	now := s.now().UTC()

	tasks, _, err := s.tasks.ListTasks(ctx, caller, task.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	today := now
	logs, _, err := s.timeLogs.List(ctx, caller, timelog.Filter{From: &today, To: &today})
	if err != nil {
		return nil, fmt.Errorf("listing time logs: %w", err)
	}

	summary := &Summary{
		Scope:             Scope(caller),
		TotalTasks:        len(tasks),
		StatusCounts:      CountByStatus(tasks),
		Overdue:           CountOverdue(tasks, now),
		UpcomingDeadlines: UpcomingDeadlines(tasks, now, upcomingLimit),
		GeneratedAt:       now,
	}

	if caller.IsAdmin() {
		summary.TodayMinutes = TodayMinutes(logs, now, nil)

		pending := timelog.ApprovalPending
		_, count, err := s.timeLogs.List(ctx, caller, timelog.Filter{ApprovalStatus: &pending, PageSize: 1})
		if err != nil {
			return nil, fmt.Errorf("counting pending approvals: %w", err)
		}
		n := int(count)
		summary.PendingApprovals = &n
	} else {
		own := caller.ID
		summary.TodayMinutes = TodayMinutes(logs, now, &own)
	}

	s.logger.Debug("Dashboard computed",
		zap.String("user_id", caller.ID.String()),
		zap.String("scope", summary.Scope),
		zap.Int("tasks", summary.TotalTasks))
	return summary, nil
}
