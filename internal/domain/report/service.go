package report

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/profile"
	"github.com/ahmedelhadi17776/worklog/internal/domain/project"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/ahmedelhadi17776/worklog/internal/domain/timelog"
	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/cache"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskLister interface {
	ListTasks(ctx context.Context, caller authz.Caller, filter task.TaskFilter) ([]task.Task, int64, error)
}

type TimeLogLister interface {
	List(ctx context.Context, caller authz.Caller, filter timelog.Filter) ([]timelog.TimeLog, int64, error)
}

type ProjectLister interface {
	ListProjects(ctx context.Context, caller authz.Caller, filter project.ProjectFilter) ([]project.Project, int64, error)
}

type ProfileLister interface {
	List(ctx context.Context, caller authz.Caller, filter profile.ProfileFilter) ([]profile.Profile, int64, error)
}

type Service interface {
	Generate(ctx context.Context, caller authz.Caller, filter Filter) (*Report, error)
	Export(ctx context.Context, caller authz.Caller, filter Filter) (*bytes.Buffer, error)
}

type service struct {
	tasks    TaskLister
	timeLogs TimeLogLister
	projects ProjectLister
	profiles ProfileLister
	redis    *cache.RedisClient
	logger   *zap.Logger
}

func NewService(tasks TaskLister, timeLogs TimeLogLister, projects ProjectLister, profiles ProfileLister, redis *cache.RedisClient, logger *zap.Logger) Service {
	return &service{
		tasks:    tasks,
		timeLogs: timeLogs,
		projects: projects,
		profiles: profiles,
		redis:    redis,
		logger:   logger,
	}
}

func cacheKey(caller authz.Caller, f Filter) string {
	day := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format("2006-01-02")
	}
	projectID := "-"
	if f.ProjectID != nil {
		projectID = f.ProjectID.String()
	}
	return cache.GenerateCacheKey(cache.TypeReport, caller.ID, day(f.From), day(f.To), projectID, strconv.FormatBool(f.ApprovedOnly))
}

// Generate builds the report over the rows the caller may see. The date range
// bounds the time logs; task figures reflect current state.
func (s *service) Generate(ctx context.Context, caller authz.Caller, filter Filter) (*Report, error) {
	if err := authz.RequireView(caller, authz.ViewReports); err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: range ends before it starts", timelog.ErrInvalidInput)
	}

	return cache.CacheResponse(ctx, s.redis, cacheKey(caller, filter), cache.TypeReport, func() (*Report, error) {
		return s.build(ctx, caller, filter)
	})
}

func (s *service) build(ctx context.Context, caller authz.Caller, filter Filter) (*Report, error) {
	tasks, _, err := s.tasks.ListTasks(ctx, caller, task.TaskFilter{ProjectID: filter.ProjectID})
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	logFilter := timelog.Filter{From: filter.From, To: filter.To, ProjectID: filter.ProjectID}
	if filter.ApprovedOnly {
		approved := timelog.ApprovalApproved
		logFilter.ApprovalStatus = &approved
	}
	logs, _, err := s.timeLogs.List(ctx, caller, logFilter)
	if err != nil {
		return nil, fmt.Errorf("listing time logs: %w", err)
	}

	projectNames, err := s.projectNames(ctx, caller, filter.ProjectID)
	if err != nil {
		return nil, err
	}
	userNames, err := s.userNames(ctx, caller)
	if err != nil {
		return nil, err
	}

	report := &Report{
		From:               filter.From,
		To:                 filter.To,
		StatusDistribution: StatusDistribution(tasks),
		Projects:           ProjectCompletion(tasks, projectNames),
		Users:              Productivity(logs, userNames),
		GeneratedAt:        time.Now().UTC(),
	}
	s.logger.Info("Report generated",
		zap.String("user_id", caller.ID.String()),
		zap.Int("tasks", len(tasks)),
		zap.Int("time_logs", len(logs)))
	return report, nil
}

// namePageSize is the page size used when walking projects and profiles for labels
const namePageSize = 200

// allPages calls list with increasing page numbers until the reported total is covered
func allPages[T any](list func(page int) ([]T, int64, error)) ([]T, error) {
	var all []T
	for page := 0; ; page++ {
		items, total, err := list(page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if int64((page+1)*namePageSize) >= total {
			return all, nil
		}
	}
}

func (s *service) projectNames(ctx context.Context, caller authz.Caller, only *uuid.UUID) (map[uuid.UUID]string, error) {
	projects, err := allPages(func(page int) ([]project.Project, int64, error) {
		return s.projects.ListProjects(ctx, caller, project.ProjectFilter{Page: page, PageSize: namePageSize})
	})
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	names := make(map[uuid.UUID]string, len(projects))
	for _, p := range projects {
		if only != nil && p.ID != *only {
			continue
		}
		names[p.ID] = p.Name
	}
	return names, nil
}

func (s *service) userNames(ctx context.Context, caller authz.Caller) (map[uuid.UUID]string, error) {
	profiles, err := allPages(func(page int) ([]profile.Profile, int64, error) {
		return s.profiles.List(ctx, caller, profile.ProfileFilter{Page: page, PageSize: namePageSize})
	})
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	names := make(map[uuid.UUID]string, len(profiles))
	for _, p := range profiles {
		names[p.ID] = p.FullName
	}
	return names, nil
}

func (s *service) Export(ctx context.Context, caller authz.Caller, filter Filter) (*bytes.Buffer, error) {
	report, err := s.Generate(ctx, caller, filter)
	if err != nil {
		return nil, err
	}
	return ExportXLSX(report)
}
