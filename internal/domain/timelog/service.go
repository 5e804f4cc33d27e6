package timelog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/events"
	"github.com/ahmedelhadi17776/worklog/internal/domain/notification"
	"github.com/ahmedelhadi17776/worklog/internal/domain/profile"
	"github.com/ahmedelhadi17776/worklog/internal/domain/project"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	Start(ctx context.Context, caller authz.Caller, taskID uuid.UUID) (*TimeLog, error)
	Stop(ctx context.Context, caller authz.Caller) (*TimeLog, error)
	Active(ctx context.Context, caller authz.Caller) (*ActiveTimer, error)
	ManualEntry(ctx context.Context, caller authz.Caller, input ManualEntryInput) (*TimeLog, error)
	Approve(ctx context.Context, caller authz.Caller, id uuid.UUID) (*TimeLog, error)
	Reject(ctx context.Context, caller authz.Caller, id uuid.UUID) (*TimeLog, error)
	Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*TimeLog, error)
	List(ctx context.Context, caller authz.Caller, filter Filter) ([]TimeLog, int64, error)
	Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateInput) (*TimeLog, error)
	Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error
}

// TaskReader fetches a task through the caller's read policy
type TaskReader interface {
	GetTask(ctx context.Context, caller authz.Caller, id uuid.UUID) (*task.Task, error)
}

// ProjectAccess resolves the projects a user manages or belongs to
type ProjectAccess interface {
	Memberships(ctx context.Context, userID uuid.UUID) (project.Memberships, error)
}

// AdminDirectory lists the reviewers of manual entries
type AdminDirectory interface {
	ListActiveAdmins(ctx context.Context) ([]profile.Profile, error)
}

type Dependencies struct {
	Repository Repository
	Tasks      TaskReader
	Projects   ProjectAccess
	Admins     AdminDirectory
	Policy     *authz.Evaluator
	Notifier   notification.DomainNotifier
	Events     events.Broadcaster
	Logger     *zap.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

type service struct {
	repo     Repository
	tasks    TaskReader
	projects ProjectAccess
	admins   AdminDirectory
	policy   *authz.Evaluator
	notifier notification.DomainNotifier
	events   events.Broadcaster
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(deps Dependencies) Service {
	s := &service{
		repo:     deps.Repository,
		tasks:    deps.Tasks,
		projects: deps.Projects,
		admins:   deps.Admins,
		policy:   deps.Policy,
		notifier: deps.Notifier,
		events:   deps.Events,
		logger:   deps.Logger,
		now:      deps.Now,
	}
	if s.notifier == nil {
		s.notifier = notification.NopNotifier{}
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) memberships(ctx context.Context, caller authz.Caller) (project.Memberships, error) {
	if caller.IsSystem() {
		return project.Memberships{}, nil
	}
	m, err := s.projects.Memberships(ctx, caller.ID)
	if err != nil {
		return project.Memberships{}, fmt.Errorf("loading memberships: %w", err)
	}
	return m, nil
}

// load fetches a log together with its policy subject for the caller
func (s *service) load(ctx context.Context, caller authz.Caller, id uuid.UUID) (*TimeLog, authz.Subject, error) {
	log, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, authz.Subject{}, err
	}
	m, err := s.memberships(ctx, caller)
	if err != nil {
		return nil, authz.Subject{}, err
	}
	return log, m.Scope(log.Subject()), nil
}

// Start opens a running log on the task. A second start while a log is
// running fails, including when two requests race past the pre-check.
func (s *service) Start(ctx context.Context, caller authz.Caller, taskID uuid.UUID) (*TimeLog, error) {
	if err := s.policy.Check(caller, authz.TableTimeLogs, authz.ActionInsert, authz.Subject{OwnerID: caller.ID, Pending: true}); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindActive(ctx, caller.ID); err == nil {
		timerConflicts.Inc()
		return nil, ErrTimerAlreadyRunning
	} else if !errors.Is(err, ErrNoActiveTimer) {
		return nil, err
	}

	t, err := s.tasks.GetTask(ctx, caller, taskID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	log := &TimeLog{
		ID:             uuid.New(),
		UserID:         caller.ID,
		TaskID:         t.ID,
		ProjectID:      t.ProjectID,
		StartTime:      now,
		Date:           DateOf(now),
		Source:         SourceTimer,
		ApprovalStatus: ApprovalPending,
	}
	if err := s.repo.Create(ctx, log); err != nil {
		if errors.Is(err, ErrTimerAlreadyRunning) {
			timerConflicts.Inc()
		}
		return nil, err
	}

	timersStarted.Inc()
	s.logger.Info("Timer started",
		zap.String("time_log_id", log.ID.String()),
		zap.String("user_id", caller.ID.String()),
		zap.String("task_id", t.ID.String()))
	events.Broadcast(ctx, s.events, events.EventTypeTimeLogUpdate, log.ID, caller.ID)
	return log, nil
}

func (s *service) Stop(ctx context.Context, caller authz.Caller) (*TimeLog, error) {
	if err := s.policy.Admit(caller, authz.TableTimeLogs); err != nil {
		return nil, err
	}
	log, err := s.repo.FindActive(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Check(caller, authz.TableTimeLogs, authz.ActionUpdate, log.Subject()); err != nil {
		return nil, err
	}

	end := s.now().UTC()
	// a stop within the first second would leave an empty interval
	if !end.After(log.StartTime) {
		end = log.StartTime.Add(time.Second)
	}
	log.EndTime = &end
	log.DurationMinutes = ComputeDurationMinutes(log.StartTime, log.EndTime)

	if err := s.repo.Update(ctx, log); err != nil {
		return nil, err
	}

	timersStopped.Inc()
	loggedMinutes.WithLabelValues(string(log.Source)).Add(float64(log.Minutes()))
	s.logger.Info("Timer stopped",
		zap.String("time_log_id", log.ID.String()),
		zap.Int("duration_minutes", log.Minutes()))
	events.Broadcast(ctx, s.events, events.EventTypeTimeLogUpdate, log.ID, caller.ID)
	return log, nil
}

// Active reports the running timer. The elapsed time is computed for display only.
func (s *service) Active(ctx context.Context, caller authz.Caller) (*ActiveTimer, error) {
	if err := s.policy.Admit(caller, authz.TableTimeLogs); err != nil {
		return nil, err
	}
	log, err := s.repo.FindActive(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	return newActiveTimer(log, s.now()), nil
}

func (s *service) ManualEntry(ctx context.Context, caller authz.Caller, input ManualEntryInput) (*TimeLog, error) {
	if err := s.policy.Check(caller, authz.TableTimeLogs, authz.ActionInsert, authz.Subject{OwnerID: caller.ID, Pending: true}); err != nil {
		return nil, err
	}
	if !input.EndTime.After(input.StartTime) {
		return nil, ErrInvalidInterval
	}

	t, err := s.tasks.GetTask(ctx, caller, input.TaskID)
	if err != nil {
		return nil, err
	}

	start := input.StartTime.UTC()
	end := input.EndTime.UTC()
	day := DateOf(start)
	if input.Date != nil {
		day = DateOf(*input.Date)
	}

	log := &TimeLog{
		ID:              uuid.New(),
		UserID:          caller.ID,
		TaskID:          t.ID,
		ProjectID:       t.ProjectID,
		StartTime:       start,
		EndTime:         &end,
		DurationMinutes: ComputeDurationMinutes(start, &end),
		Date:            day,
		Description:     input.Description,
		Source:          SourceManual,
		ApprovalStatus:  ApprovalPending,
	}
	if err := s.repo.Create(ctx, log); err != nil {
		return nil, err
	}

	loggedMinutes.WithLabelValues(string(SourceManual)).Add(float64(log.Minutes()))
	s.logger.Info("Manual time entry created",
		zap.String("time_log_id", log.ID.String()),
		zap.String("user_id", caller.ID.String()),
		zap.Int("duration_minutes", log.Minutes()))

	s.requestApproval(ctx, caller, t, log)
	events.Broadcast(ctx, s.events, events.EventTypeTimeLogUpdate, log.ID, caller.ID)
	return log, nil
}

func (s *service) requestApproval(ctx context.Context, caller authz.Caller, t *task.Task, log *TimeLog) {
	if s.admins == nil {
		return
	}
	admins, err := s.admins.ListActiveAdmins(ctx)
	if err != nil {
		s.logger.Warn("Failed to list admins for approval request", zap.Error(err))
		return
	}

	ids := make([]uuid.UUID, 0, len(admins))
	for _, a := range admins {
		if a.ID != caller.ID {
			ids = append(ids, a.ID)
		}
	}
	ref := log.ID
	s.notifier.NotifyUsers(ctx, ids, notification.TypeApprovalRequest,
		"Time entry awaiting approval",
		fmt.Sprintf("%s logged %d minutes on %q", caller.Email, log.Minutes(), t.Name),
		&ref)
}

func (s *service) Approve(ctx context.Context, caller authz.Caller, id uuid.UUID) (*TimeLog, error) {
	return s.review(ctx, caller, id, ApprovalApproved)
}

func (s *service) Reject(ctx context.Context, caller authz.Caller, id uuid.UUID) (*TimeLog, error) {
	return s.review(ctx, caller, id, ApprovalRejected)
}

// review moves a stopped, pending log to its final approval status
func (s *service) review(ctx context.Context, caller authz.Caller, id uuid.UUID, decision ApprovalStatus) (*TimeLog, error) {
	log, subject, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	subject.ChangesApproval = true
	if err := s.policy.Check(caller, authz.TableTimeLogs, authz.ActionUpdate, subject); err != nil {
		return nil, err
	}
	if !caller.IsAdmin() {
		return nil, &authz.Denial{Table: authz.TableTimeLogs, Action: authz.ActionUpdate, Reason: authz.ErrForbidden}
	}
	if !log.IsPending() || log.IsRunning() {
		return nil, ErrInvalidApprovalTransition
	}

	now := s.now().UTC()
	log.ApprovalStatus = decision
	log.ReviewedAt = &now
	if caller.IsAuthenticated() {
		reviewer := caller.ID
		log.ReviewedBy = &reviewer
	}
	if err := s.repo.Update(ctx, log); err != nil {
		return nil, err
	}

	reviews.WithLabelValues(string(decision)).Inc()
	s.logger.Info("Time log reviewed",
		zap.String("time_log_id", log.ID.String()),
		zap.String("decision", string(decision)),
		zap.String("reviewed_by", caller.ID.String()))

	ref := log.ID
	s.notifier.NotifyUser(ctx, log.UserID, notification.TypeStatusChange,
		fmt.Sprintf("Time entry %s", decision),
		fmt.Sprintf("Your %d minute entry for %s was %s", log.Minutes(), log.Day().Format("2006-01-02"), decision),
		&ref)
	events.Broadcast(ctx, s.events, events.EventTypeApprovalUpdate, log.ID, log.UserID, caller.ID)
	return log, nil
}

func (s *service) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*TimeLog, error) {
	log, subject, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Check(caller, authz.TableTimeLogs, authz.ActionSelect, subject); err != nil {
		return nil, err
	}
	return log, nil
}

// List returns every matching log for admins, otherwise the caller's own logs
// plus the logs booked on projects they manage
func (s *service) List(ctx context.Context, caller authz.Caller, filter Filter) ([]TimeLog, int64, error) {
	if err := s.policy.Admit(caller, authz.TableTimeLogs); err != nil {
		return nil, 0, err
	}
	m, err := s.memberships(ctx, caller)
	if err != nil {
		return nil, 0, err
	}
	if !caller.IsAdmin() {
		visibleTo := caller.ID
		filter.VisibleTo = &visibleTo
		filter.ManagedProjectIDs = managedIDs(m)
	}

	logs, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	visible := authz.Filter(s.policy, caller, authz.TableTimeLogs, logs, func(l TimeLog) authz.Subject {
		return m.Scope(l.Subject())
	})
	return visible, total, nil
}

func (s *service) Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateInput) (*TimeLog, error) {
	log, subject, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Check(caller, authz.TableTimeLogs, authz.ActionUpdate, subject); err != nil {
		return nil, err
	}

	wasRunning := log.IsRunning()
	if input.Description != nil {
		log.Description = input.Description
	}
	if input.StartTime != nil {
		start := input.StartTime.UTC()
		log.StartTime = start
		log.Date = DateOf(start)
	}
	if input.EndTime != nil {
		end := input.EndTime.UTC()
		log.EndTime = &end
	}
	if log.EndTime != nil && !log.EndTime.After(log.StartTime) {
		return nil, ErrInvalidInterval
	}
	log.DurationMinutes = ComputeDurationMinutes(log.StartTime, log.EndTime)

	if err := s.repo.Update(ctx, log); err != nil {
		return nil, err
	}
	if wasRunning && !log.IsRunning() {
		timersStopped.Inc()
	}
	events.Broadcast(ctx, s.events, events.EventTypeTimeLogUpdate, log.ID, log.UserID)
	return log, nil
}

// Delete removes a log. Owners may delete only while it is pending; admins always.
func (s *service) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	log, subject, err := s.load(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.policy.Check(caller, authz.TableTimeLogs, authz.ActionDelete, subject); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Time log deleted",
		zap.String("time_log_id", id.String()),
		zap.String("deleted_by", caller.ID.String()))
	events.Broadcast(ctx, s.events, events.EventTypeTimeLogUpdate, id, log.UserID)
	return nil
}

func managedIDs(m project.Memberships) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m.Managed))
	for id, ok := range m.Managed {
		if ok {
			ids = append(ids, id)
		}
	}
	return ids
}
