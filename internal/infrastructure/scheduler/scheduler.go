package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/notification"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/ahmedelhadi17776/worklog/pkg/config"
	"github.com/ahmedelhadi17776/worklog/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskLister interface {
	ListTasks(ctx context.Context, caller authz.Caller, filter task.TaskFilter) ([]task.Task, int64, error)
}

// ReminderLog tells whether a reminder was already sent
type ReminderLog interface {
	ExistsForReference(ctx context.Context, userID uuid.UUID, t notification.Type, referenceID uuid.UUID, since time.Time) (bool, error)
}

type SessionCleaner interface {
	CleanupExpiredSessions() int
}

type Scheduler struct {
	tasks     TaskLister
	reminders ReminderLog
	notifier  notification.DomainNotifier
	sessions  SessionCleaner
	cfg       config.SchedulerConfig
	logger    *logger.Logger
	now       func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(tasks TaskLister, reminders ReminderLog, notifier notification.DomainNotifier, sessions SessionCleaner, cfg config.SchedulerConfig, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		tasks:     tasks,
		reminders: reminders,
		notifier:  notifier,
		sessions:  sessions,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Start runs the periodic jobs until Stop is called
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.logger.Info("Scheduler initialized",
		zap.Duration("deadline_check_interval", s.cfg.DeadlineCheckInterval),
		zap.Duration("deadline_window", s.cfg.DeadlineWindow),
		zap.Duration("session_cleanup", s.cfg.SessionCleanup),
	)

	s.every(ctx, s.cfg.DeadlineCheckInterval, s.runDeadlineReminders)
	if s.sessions != nil {
		s.every(ctx, s.cfg.SessionCleanup, s.runSessionCleanup)
	}
}

// Stop cancels the jobs and waits for a running one to finish
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) every(ctx context.Context, interval time.Duration, job func(context.Context)) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		job(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				job(ctx)
			}
		}
	}()
}

func (s *Scheduler) runDeadlineReminders(ctx context.Context) {
	startTime := s.now()
	sent, err := s.SendDeadlineReminders(ctx)
	if err != nil {
		s.logger.Error("Failed to send deadline reminders", zap.Error(err))
		return
	}
	s.logger.Info("Completed deadline reminders",
		zap.Int("sent", sent),
		zap.Duration("duration", s.now().Sub(startTime)),
	)
}

func (s *Scheduler) runSessionCleanup(ctx context.Context) {
	if removed := s.sessions.CleanupExpiredSessions(); removed > 0 {
		s.logger.Info("Removed expired sessions", zap.Int("count", removed))
	}
}

// SendDeadlineReminders notifies the assignee, or the creator of an unassigned
// task, about open tasks due within the window. Each recipient gets at most one
// reminder per task per UTC day.
func (s *Scheduler) SendDeadlineReminders(ctx context.Context) (int, error) {
	now := s.now().UTC()
	until := now.Add(s.cfg.DeadlineWindow)
	excluded := task.TaskStatusCompleted

	due, _, err := s.tasks.ListTasks(ctx, authz.System, task.TaskFilter{
		DueAfter:      &now,
		DueBefore:     &until,
		ExcludeStatus: &excluded,
	})
	if err != nil {
		return 0, fmt.Errorf("listing due tasks: %w", err)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	sent := 0
	for _, t := range due {
		if t.EndDate == nil {
			continue
		}
		recipient := t.CreatedBy
		if t.AssignedTo != nil {
			recipient = *t.AssignedTo
		}

		already, err := s.reminders.ExistsForReference(ctx, recipient, notification.TypeDeadlineReminder, t.ID, dayStart)
		if err != nil {
			s.logger.Warn("Skipping reminder, lookup failed", zap.String("task_id", t.ID.String()), zap.Error(err))
			continue
		}
		if already {
			continue
		}

		taskID := t.ID
		s.notifier.NotifyUser(ctx, recipient, notification.TypeDeadlineReminder,
			"Deadline approaching",
			fmt.Sprintf("Task %q is due %s", t.Name, t.EndDate.UTC().Format("Mon Jan 2 15:04 UTC")),
			&taskID)
		sent++
	}
	return sent, nil
}
