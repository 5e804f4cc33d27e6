package project

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service interface
type Service interface {
	CreateProject(ctx context.Context, caller authz.Caller, input CreateProjectInput) (*Project, error)
	GetProject(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Project, error)
	GetProjectDetails(ctx context.Context, caller authz.Caller, id uuid.UUID) (*ProjectDetails, error)
	ListProjects(ctx context.Context, caller authz.Caller, filter ProjectFilter) ([]Project, int64, error)
	UpdateProject(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateProjectInput) (*Project, error)
	DeleteProject(ctx context.Context, caller authz.Caller, id uuid.UUID) error
	AddProjectMember(ctx context.Context, caller authz.Caller, projectID, userID uuid.UUID) (*ProjectMember, error)
	RemoveProjectMember(ctx context.Context, caller authz.Caller, projectID, userID uuid.UUID) error
	ListProjectMembers(ctx context.Context, caller authz.Caller, projectID uuid.UUID) ([]ProjectMember, error)
	Memberships(ctx context.Context, userID uuid.UUID) (Memberships, error)
}

type service struct {
	repo   Repository
	policy *authz.Evaluator
	events events.Broadcaster
	logger *zap.Logger
}

func NewService(repo Repository, policy *authz.Evaluator, broadcaster events.Broadcaster, logger *zap.Logger) Service {
	if broadcaster == nil {
		broadcaster = events.Nop{}
	}
	return &service{
		repo:   repo,
		policy: policy,
		events: broadcaster,
		logger: logger,
	}
}

func (s *service) Memberships(ctx context.Context, userID uuid.UUID) (Memberships, error) {
	return s.repo.Memberships(ctx, userID)
}

// load fetches a project and the caller's memberships for policy checks
func (s *service) load(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Project, Memberships, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, Memberships{}, err
	}
	m, err := s.repo.Memberships(ctx, caller.ID)
	if err != nil {
		return nil, Memberships{}, fmt.Errorf("loading memberships: %w", err)
	}
	return project, m, nil
}

func (s *service) CreateProject(ctx context.Context, caller authz.Caller, input CreateProjectInput) (*Project, error) {
	if err := s.policy.Check(caller, authz.TableProjects, authz.ActionInsert, authz.Subject{}); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrInvalidInput, *input.Status)
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return nil, fmt.Errorf("%w: end date precedes start date", ErrInvalidInput)
	}

	project := &Project{
		ID:          uuid.New(),
		Name:        name,
		Description: input.Description,
		ManagerID:   input.ManagerID,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		CreatedBy:   caller.ID,
	}
	if input.Status != nil {
		project.Status = *input.Status
	}

	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("Project created",
		zap.String("project_id", project.ID.String()),
		zap.String("created_by", caller.ID.String()))
	events.Broadcast(ctx, s.events, events.EventTypeProjectUpdate, project.ID, caller.ID, derefID(project.ManagerID))
	return project, nil
}

func (s *service) GetProject(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Project, error) {
	project, m, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Check(caller, authz.TableProjects, authz.ActionSelect, project.Subject(m)); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *service) GetProjectDetails(ctx context.Context, caller authz.Caller, id uuid.UUID) (*ProjectDetails, error) {
	project, err := s.GetProject(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	tasks, err := s.repo.CountTasks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("counting tasks: %w", err)
	}

	return &ProjectDetails{
		Project:      project,
		MembersCount: int64(len(members)),
		TasksCount:   tasks,
		Members:      members,
	}, nil
}

// ListProjects returns every project for admins and the managed or joined ones otherwise
func (s *service) ListProjects(ctx context.Context, caller authz.Caller, filter ProjectFilter) ([]Project, int64, error) {
	if err := s.policy.Admit(caller, authz.TableProjects); err != nil {
		return nil, 0, err
	}

	m, err := s.repo.Memberships(ctx, caller.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("loading memberships: %w", err)
	}
	if !caller.IsAdmin() {
		filter.Scoped = true
		filter.ProjectIDs = m.ProjectIDs()
	}

	projects, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	visible := authz.Filter(s.policy, caller, authz.TableProjects, projects, func(p Project) authz.Subject {
		return p.Subject(m)
	})
	return visible, total, nil
}

func (s *service) UpdateProject(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateProjectInput) (*Project, error) {
	project, m, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Check(caller, authz.TableProjects, authz.ActionUpdate, project.Subject(m)); err != nil {
		return nil, err
	}

	previousManager := derefID(project.ManagerID)

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = input.Description
	}
	if input.ManagerID != nil {
		// reassigning the manager is an admin decision
		if !caller.IsAdmin() && *input.ManagerID != previousManager {
			return nil, &authz.Denial{Table: authz.TableProjects, Action: authz.ActionUpdate, Reason: authz.ErrForbidden}
		}
		project.ManagerID = input.ManagerID
	}
	if input.StartDate != nil {
		project.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		project.EndDate = input.EndDate
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, fmt.Errorf("%w: invalid status %q", ErrInvalidInput, *input.Status)
		}
		project.Status = *input.Status
	}
	if project.StartDate != nil && project.EndDate != nil && project.EndDate.Before(*project.StartDate) {
		return nil, fmt.Errorf("%w: end date precedes start date", ErrInvalidInput)
	}

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, err
	}

	events.Broadcast(ctx, s.events, events.EventTypeProjectUpdate, project.ID, caller.ID, previousManager, derefID(project.ManagerID))
	return project, nil
}

func (s *service) DeleteProject(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	project, m, err := s.load(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.policy.Check(caller, authz.TableProjects, authz.ActionDelete, project.Subject(m)); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Project deleted",
		zap.String("project_id", id.String()),
		zap.String("deleted_by", caller.ID.String()))
	events.Broadcast(ctx, s.events, events.EventTypeProjectUpdate, id, caller.ID, derefID(project.ManagerID))
	return nil
}

func (s *service) AddProjectMember(ctx context.Context, caller authz.Caller, projectID, userID uuid.UUID) (*ProjectMember, error) {
	project, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	subject := authz.Subject{OwnerID: userID, ProjectID: &project.ID, ManagerID: project.ManagerID}
	if err := s.policy.Check(caller, authz.TableProjectMembers, authz.ActionInsert, subject); err != nil {
		return nil, err
	}

	member := &ProjectMember{ID: uuid.New(), ProjectID: projectID, UserID: userID}
	if err := s.repo.AddMember(ctx, member); err != nil {
		return nil, err
	}
	events.Broadcast(ctx, s.events, events.EventTypeProjectUpdate, projectID, userID)
	return member, nil
}

func (s *service) RemoveProjectMember(ctx context.Context, caller authz.Caller, projectID, userID uuid.UUID) error {
	project, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		return err
	}
	subject := authz.Subject{OwnerID: userID, ProjectID: &project.ID, ManagerID: project.ManagerID}
	if err := s.policy.Check(caller, authz.TableProjectMembers, authz.ActionDelete, subject); err != nil {
		return err
	}
	if err := s.repo.RemoveMember(ctx, projectID, userID); err != nil {
		return err
	}
	events.Broadcast(ctx, s.events, events.EventTypeProjectUpdate, projectID, userID)
	return nil
}

func (s *service) ListProjectMembers(ctx context.Context, caller authz.Caller, projectID uuid.UUID) ([]ProjectMember, error) {
	project, m, err := s.load(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Check(caller, authz.TableProjects, authz.ActionSelect, project.Subject(m)); err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return authz.Filter(s.policy, caller, authz.TableProjectMembers, members, func(pm ProjectMember) authz.Subject {
		return authz.Subject{OwnerID: pm.UserID, ProjectID: &project.ID, ManagerID: project.ManagerID}
	}), nil
}

func derefID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
