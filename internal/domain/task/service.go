package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/events"
	"github.com/ahmedelhadi17776/worklog/internal/domain/notification"
	"github.com/ahmedelhadi17776/worklog/internal/domain/project"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	CreateTask(ctx context.Context, caller authz.Caller, input CreateTaskInput) (*Task, error)
	GetTask(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Task, error)
	ListTasks(ctx context.Context, caller authz.Caller, filter TaskFilter) ([]Task, int64, error)
	UpdateTask(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateTaskInput) (*Task, error)
	UpdateTaskStatus(ctx context.Context, caller authz.Caller, id uuid.UUID, status TaskStatus) (*Task, error)
	AssignTask(ctx context.Context, caller authz.Caller, id uuid.UUID, assigneeID uuid.UUID) (*Task, error)
	DeleteTask(ctx context.Context, caller authz.Caller, id uuid.UUID) error
	// Scope returns a function filling the project fields of a task subject for the caller
	Scope(ctx context.Context, caller authz.Caller) (func(authz.Subject) authz.Subject, error)
}

// ProjectAccess resolves the projects a user manages or belongs to
type ProjectAccess interface {
	Memberships(ctx context.Context, userID uuid.UUID) (project.Memberships, error)
}

type service struct {
	repo     TaskRepository
	projects ProjectAccess
	policy   *authz.Evaluator
	notifier notification.DomainNotifier
	events   events.Broadcaster
	logger   *zap.Logger
}

func NewService(repo TaskRepository, projects ProjectAccess, policy *authz.Evaluator, notifier notification.DomainNotifier, broadcaster events.Broadcaster, logger *zap.Logger) Service {
	if notifier == nil {
		notifier = notification.NopNotifier{}
	}
	if broadcaster == nil {
		broadcaster = events.Nop{}
	}
	return &service{
		repo:     repo,
		projects: projects,
		policy:   policy,
		notifier: notifier,
		events:   broadcaster,
		logger:   logger,
	}
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

func (s *service) Scope(ctx context.Context, caller authz.Caller) (func(authz.Subject) authz.Subject, error) {
	m, err := s.memberships(ctx, caller)
	if err != nil {
		return nil, err
	}
	return m.Scope, nil
}

func (s *service) CreateTask(ctx context.Context, caller authz.Caller, input CreateTaskInput) (*Task, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	task := &Task{
		ID:          uuid.New(),
		Name:        name,
		Description: input.Description,
		ProjectID:   input.ProjectID,
		AssignedTo:  input.AssignedTo,
		Status:      TaskStatusToDo,
		Priority:    TaskPriorityMedium,
		CreatedBy:   caller.ID,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: check status, priority and dates", err)
	}

	m, err := s.memberships(ctx, caller)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Check(caller, authz.TableTasks, authz.ActionInsert, m.Scope(task.Subject())); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("Task created",
		zap.String("task_id", task.ID.String()),
		zap.String("created_by", caller.ID.String()),
		zap.Bool("personal", task.IsPersonal()))

	if task.AssignedTo != nil && *task.AssignedTo != caller.ID {
		s.notifyAssignment(ctx, task)
	}
	events.Broadcast(ctx, s.events, events.EventTypeTaskUpdate, task.ID, task.CreatedBy, derefID(task.AssignedTo))
	return task, nil
}

func (s *service) GetTask(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := s.memberships(ctx, caller)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Check(caller, authz.TableTasks, authz.ActionSelect, m.Scope(task.Subject())); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns every matching task for admins and the visible ones otherwise
func (s *service) ListTasks(ctx context.Context, caller authz.Caller, filter TaskFilter) ([]Task, int64, error) {
	if err := s.policy.Admit(caller, authz.TableTasks); err != nil {
		return nil, 0, err
	}

	m, err := s.memberships(ctx, caller)
	if err != nil {
		return nil, 0, err
	}
	if !caller.IsAdmin() {
		visibleTo := caller.ID
		filter.VisibleTo = &visibleTo
		filter.ProjectIDs = m.ProjectIDs()
	}

	tasks, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	visible := authz.Filter(s.policy, caller, authz.TableTasks, tasks, func(t Task) authz.Subject {
		return m.Scope(t.Subject())
	})
	return visible, total, nil
}

func (s *service) UpdateTask(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateTaskInput) (*Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := s.memberships(ctx, caller)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Check(caller, authz.TableTasks, authz.ActionUpdate, m.Scope(task.Subject())); err != nil {
		return nil, err
	}

	previous := *task

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		task.Name = name
	}
	if input.Description != nil {
		task.Description = input.Description
	}
	if input.MakePersonal {
		task.ProjectID = nil
	} else if input.ProjectID != nil {
		task.ProjectID = input.ProjectID
	}
	if input.Unassign {
		task.AssignedTo = nil
	} else if input.AssignedTo != nil {
		task.AssignedTo = input.AssignedTo
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.ClearDates {
		task.StartDate = nil
		task.EndDate = nil
	} else {
		if input.StartDate != nil {
			task.StartDate = input.StartDate
		}
		if input.EndDate != nil {
			task.EndDate = input.EndDate
		}
	}

	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: check status, priority and dates", err)
	}

	// moving a task into a project needs the same access as creating it there
	if !sameID(previous.ProjectID, task.ProjectID) && task.ProjectID != nil && !caller.IsAdmin() {
		target := m.Scope(authz.Subject{CreatorID: caller.ID, ProjectID: task.ProjectID})
		if err := s.policy.Check(caller, authz.TableTasks, authz.ActionInsert, target); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}

	s.afterUpdate(ctx, caller, &previous, task)
	return task, nil
}

func (s *service) UpdateTaskStatus(ctx context.Context, caller authz.Caller, id uuid.UUID, status TaskStatus) (*Task, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrInvalidInput, status)
	}
	return s.UpdateTask(ctx, caller, id, UpdateTaskInput{Status: &status})
}

func (s *service) AssignTask(ctx context.Context, caller authz.Caller, id uuid.UUID, assigneeID uuid.UUID) (*Task, error) {
	if assigneeID == uuid.Nil {
		return s.UpdateTask(ctx, caller, id, UpdateTaskInput{Unassign: true})
	}
	return s.UpdateTask(ctx, caller, id, UpdateTaskInput{AssignedTo: &assigneeID})
}

func (s *service) DeleteTask(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Check(caller, authz.TableTasks, authz.ActionDelete, task.Subject()); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Task deleted",
		zap.String("task_id", id.String()),
		zap.String("deleted_by", caller.ID.String()))
	events.Broadcast(ctx, s.events, events.EventTypeTaskUpdate, id, task.CreatedBy, derefID(task.AssignedTo))
	return nil
}

// afterUpdate raises the assignment and status notifications and refreshes dashboards
func (s *service) afterUpdate(ctx context.Context, caller authz.Caller, previous, task *Task) {
	if task.AssignedTo != nil && !sameID(previous.AssignedTo, task.AssignedTo) && *task.AssignedTo != caller.ID {
		s.notifyAssignment(ctx, task)
	}
	if previous.Status != task.Status && task.CreatedBy != caller.ID {
		ref := task.ID
		s.notifier.NotifyUser(ctx, task.CreatedBy, notification.TypeStatusChange,
			"Task status changed",
			fmt.Sprintf("%q moved from %s to %s", task.Name, previous.Status, task.Status),
			&ref)
	}

	events.Broadcast(ctx, s.events, events.EventTypeTaskUpdate, task.ID,
		task.CreatedBy, derefID(task.AssignedTo), derefID(previous.AssignedTo))
}

func (s *service) notifyAssignment(ctx context.Context, task *Task) {
	ref := task.ID
	s.notifier.NotifyUser(ctx, *task.AssignedTo, notification.TypeTaskAssignment,
		"New task assigned",
		fmt.Sprintf("You have been assigned %q", task.Name),
		&ref)
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func derefID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
