package calendar

import (
	"context"
	"fmt"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/cache"
	"go.uber.org/zap"
)

type TaskLister interface {
	ListTasks(ctx context.Context, caller authz.Caller, filter task.TaskFilter) ([]task.Task, int64, error)
}

// Service renders task deadlines as calendar pages
type Service interface {
	Month(ctx context.Context, caller authz.Caller, year, month int) (*Month, error)
	Day(ctx context.Context, caller authz.Caller, date string) (*Day, error)
}

type service struct {
	tasks  TaskLister
	redis  *cache.RedisClient
	logger *zap.Logger
}

func NewService(tasks TaskLister, redis *cache.RedisClient, logger *zap.Logger) Service {
	return &service{tasks: tasks, redis: redis, logger: logger}
}

func (s *service) Month(ctx context.Context, caller authz.Caller, year, month int) (*Month, error) {
	if err := authz.RequireView(caller, authz.ViewCalendar); err != nil {
		return nil, err
	}
	start, end, err := MonthBounds(year, month)
	if err != nil {
		return nil, err
	}

	key := cache.GenerateCacheKey(cache.TypeCalendar, caller.ID, start.Format("2006-01"))
	return cache.CacheResponse(ctx, s.redis, key, cache.TypeCalendar, func() (*Month, error) {
		tasks, _, err := s.tasks.ListTasks(ctx, caller, task.TaskFilter{DueAfter: &start, DueBefore: &end})
		if err != nil {
			return nil, fmt.Errorf("listing tasks for %s: %w", start.Format("2006-01"), err)
		}
		days := Days(BucketByEndDate(tasks))
		total := 0
		for _, d := range days {
			total += len(d.Tasks)
		}
		s.logger.Debug("Calendar month built",
			zap.String("user_id", caller.ID.String()),
			zap.String("month", start.Format("2006-01")),
			zap.Int("tasks", total))
		return &Month{Year: year, Month: month, Days: days, Total: total}, nil
	})
}

func (s *service) Day(ctx context.Context, caller authz.Caller, date string) (*Day, error) {
	if err := authz.RequireView(caller, authz.ViewCalendar); err != nil {
		return nil, err
	}
	start, err := ParseDay(date)
	if err != nil {
		return nil, err
	}
	end := start.AddDate(0, 0, 1)

	tasks, _, err := s.tasks.ListTasks(ctx, caller, task.TaskFilter{DueAfter: &start, DueBefore: &end})
	if err != nil {
		return nil, fmt.Errorf("listing tasks for %s: %w", date, err)
	}
	key := DayKey(start)
	day := &Day{Date: key, Tasks: []task.Task{}}
	if days := Days(BucketByEndDate(tasks)); len(days) > 0 {
		day.Tasks = days[0].Tasks
	}
	return day, nil
}
