package project

import (
	"errors"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Common errors
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrMemberNotFound  = errors.New("project member not found")
	ErrAlreadyMember   = errors.New("user is already a member of this project")
	ErrInvalidInput    = errors.New("invalid input")
)

type ProjectStatus string

const (
	ProjectStatusPlanned    ProjectStatus = "planned"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
)

// IsValid validates the project status
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusPlanned, ProjectStatusInProgress, ProjectStatusCompleted:
		return true
	}
	return false
}

// Project is a unit of work, optionally led by a manager. Every optional column
// is a pointer so an unset value is stored and returned as null.
type Project struct {
	ID          uuid.UUID     `json:"id" gorm:"type:uuid;primary_key"`
	Name        string        `json:"name" gorm:"type:varchar(255);not null"`
	Description *string       `json:"description" gorm:"type:text"`
	ManagerID   *uuid.UUID    `json:"manager_id" gorm:"type:uuid;index:idx_projects_manager"`
	StartDate   *time.Time    `json:"start_date" gorm:"type:date"`
	EndDate     *time.Time    `json:"end_date" gorm:"type:date"`
	Status      ProjectStatus `json:"status" gorm:"type:varchar(32);not null;default:'planned';index:idx_projects_status"`
	CreatedBy   uuid.UUID     `json:"created_by" gorm:"type:uuid;not null"`
	CreatedAt   time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Project) TableName() string {
	return "projects"
}

// BeforeCreate is called before inserting a new project
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = ProjectStatusPlanned
	}
	return p.validate()
}

// BeforeUpdate is called before updating a project
func (p *Project) BeforeUpdate(tx *gorm.DB) error {
	return p.validate()
}

func (p *Project) validate() error {
	if !p.Status.IsValid() {
		return errors.New("invalid project status")
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return errors.New("end date precedes start date")
	}
	return nil
}

// Subject is the policy view of the project for a caller with the given memberships
func (p *Project) Subject(m Memberships) authz.Subject {
	return authz.Subject{
		ProjectID: &p.ID,
		ManagerID: p.ManagerID,
		Member:    m.IsMember(p.ID),
	}
}

// ProjectMember links a profile to a project
type ProjectMember struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ProjectID uuid.UUID `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_project_members_pair,priority:1"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_project_members_pair,priority:2;index:idx_project_members_user"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (ProjectMember) TableName() string {
	return "project_members"
}

func (m *ProjectMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Memberships are the projects a user manages or belongs to
type Memberships struct {
	UserID  uuid.UUID
	Managed map[uuid.UUID]bool
	Joined  map[uuid.UUID]bool
}

func (m Memberships) Manages(projectID uuid.UUID) bool {
	return m.Managed[projectID]
}

func (m Memberships) IsMember(projectID uuid.UUID) bool {
	return m.Joined[projectID]
}

// ProjectIDs lists every project the user can reach through either link
func (m Memberships) ProjectIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(m.Managed)+len(m.Joined))
	ids := make([]uuid.UUID, 0, len(m.Managed)+len(m.Joined))
	for _, set := range []map[uuid.UUID]bool{m.Managed, m.Joined} {
		for id := range set {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Scope fills the project part of a task or time log subject. Personal rows are left alone.
func (m Memberships) Scope(s authz.Subject) authz.Subject {
	if s.ProjectID == nil {
		return s
	}
	if m.Manages(*s.ProjectID) {
		managerID := m.UserID
		s.ManagerID = &managerID
	}
	s.Member = m.IsMember(*s.ProjectID)
	return s
}

type CreateProjectInput struct {
	Name        string         `json:"name" validate:"required,min=1,max=255"`
	Description *string        `json:"description" validate:"omitempty,max=2000"`
	ManagerID   *uuid.UUID     `json:"manager_id"`
	StartDate   *time.Time     `json:"start_date"`
	EndDate     *time.Time     `json:"end_date"`
	Status      *ProjectStatus `json:"status" validate:"omitempty,project_status"`
}

type UpdateProjectInput struct {
	Name        *string        `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string        `json:"description" validate:"omitempty,max=2000"`
	ManagerID   *uuid.UUID     `json:"manager_id"`
	StartDate   *time.Time     `json:"start_date"`
	EndDate     *time.Time     `json:"end_date"`
	Status      *ProjectStatus `json:"status" validate:"omitempty,project_status"`
}

type ProjectFilter struct {
	Page     int
	PageSize int
	Name     *string
	Status   *ProjectStatus
	// ProjectIDs restricts the result to these projects when not nil
	ProjectIDs []uuid.UUID
	Scoped     bool
}

type ProjectDetails struct {
	Project      *Project        `json:"project"`
	MembersCount int64           `json:"members_count"`
	TasksCount   int64           `json:"tasks_count"`
	Members      []ProjectMember `json:"members"`
}
