package task

import (
	"errors"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidInput = errors.New("invalid input")
)

type TaskStatus string

const (
	TaskStatusToDo       TaskStatus = "to_do"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusOnHold     TaskStatus = "on_hold"
)

// Statuses lists every task status in board order
var Statuses = []TaskStatus{TaskStatusToDo, TaskStatusInProgress, TaskStatusCompleted, TaskStatusOnHold}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

func (t TaskStatus) IsValid() bool {
	switch t {
	case TaskStatusToDo, TaskStatusInProgress, TaskStatusCompleted, TaskStatusOnHold:
		return true
	}
	return false
}

func (t TaskPriority) IsValid() bool {
	switch t {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task is a unit of work. A nil ProjectID makes it a personal task.
type Task struct {
	ID          uuid.UUID    `json:"id" gorm:"type:uuid;primary_key"`
	Name        string       `json:"name" gorm:"type:varchar(255);not null"`
	Description *string      `json:"description" gorm:"type:text"`
	ProjectID   *uuid.UUID   `json:"project_id" gorm:"type:uuid;index:idx_tasks_project"`
	AssignedTo  *uuid.UUID   `json:"assigned_to" gorm:"type:uuid;index:idx_tasks_assignee"`
	Status      TaskStatus   `json:"status" gorm:"type:varchar(32);not null;default:'to_do';index:idx_tasks_status"`
	Priority    TaskPriority `json:"priority" gorm:"type:varchar(16);not null;default:'medium'"`
	CreatedBy   uuid.UUID    `json:"created_by" gorm:"type:uuid;not null;index:idx_tasks_creator"`
	StartDate   *time.Time   `json:"start_date"`
	EndDate     *time.Time   `json:"end_date" gorm:"index:idx_tasks_end_date"`
	CreatedAt   time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Task model
func (Task) TableName() string {
	return "tasks"
}

// Validate checks if the task data is valid
func (t *Task) Validate() error {
	if t.Name == "" {
		return ErrInvalidInput
	}
	if !t.Status.IsValid() || !t.Priority.IsValid() {
		return ErrInvalidInput
	}
	if t.CreatedBy == uuid.Nil {
		return ErrInvalidInput
	}
	if t.StartDate != nil && t.EndDate != nil && t.EndDate.Before(*t.StartDate) {
		return ErrInvalidInput
	}
	return nil
}

// BeforeCreate is called before creating a new task record
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = TaskStatusToDo
	}
	if t.Priority == "" {
		t.Priority = TaskPriorityMedium
	}
	return t.Validate()
}

// BeforeUpdate is called before updating a task record
func (t *Task) BeforeUpdate(tx *gorm.DB) error {
	return t.Validate()
}

// IsPersonal reports whether the task belongs to no project
func (t *Task) IsPersonal() bool {
	return t.ProjectID == nil
}

// IsOverdue reports whether the task missed its end date without being completed
func (t *Task) IsOverdue(now time.Time) bool {
	return t.EndDate != nil && t.EndDate.Before(now) && t.Status != TaskStatusCompleted
}

// Subject is the bare policy view of the task. Project fields are filled by the memberships scope.
func (t *Task) Subject() authz.Subject {
	return authz.Subject{
		CreatorID:  t.CreatedBy,
		AssigneeID: t.AssignedTo,
		ProjectID:  t.ProjectID,
	}
}

// Owner is the user whose dashboard the task lands on
func (t *Task) Owner() uuid.UUID {
	if t.AssignedTo != nil {
		return *t.AssignedTo
	}
	return t.CreatedBy
}

type CreateTaskInput struct {
	Name        string        `json:"name" validate:"required,min=1,max=255"`
	Description *string       `json:"description" validate:"omitempty,max=5000"`
	ProjectID   *uuid.UUID    `json:"project_id"`
	AssignedTo  *uuid.UUID    `json:"assigned_to"`
	Status      *TaskStatus   `json:"status" validate:"omitempty,task_status"`
	Priority    *TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
	StartDate   *time.Time    `json:"start_date"`
	EndDate     *time.Time    `json:"end_date"`
}

// UpdateTaskInput carries a partial update. Nil fields are left unchanged;
// the Clear flags null the corresponding column.
type UpdateTaskInput struct {
	Name         *string       `json:"name" validate:"omitempty,min=1,max=255"`
	Description  *string       `json:"description" validate:"omitempty,max=5000"`
	ProjectID    *uuid.UUID    `json:"project_id"`
	AssignedTo   *uuid.UUID    `json:"assigned_to"`
	Status       *TaskStatus   `json:"status" validate:"omitempty,task_status"`
	Priority     *TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
	StartDate    *time.Time    `json:"start_date"`
	EndDate      *time.Time    `json:"end_date"`
	MakePersonal bool          `json:"make_personal"`
	Unassign     bool          `json:"unassign"`
	ClearDates   bool          `json:"clear_dates"`
}

// TaskFilter defines filtering options for tasks
type TaskFilter struct {
	ProjectID     *uuid.UUID
	PersonalOnly  bool
	AssignedTo    *uuid.UUID
	CreatedBy     *uuid.UUID
	Status        *TaskStatus
	ExcludeStatus *TaskStatus
	// DueAfter and DueBefore bound end_date as [DueAfter, DueBefore)
	DueAfter  *time.Time
	DueBefore *time.Time
	Search    *string
	Page      int
	PageSize  int

	// VisibleTo restricts rows to those created by or assigned to the user,
	// or belonging to one of ProjectIDs
	VisibleTo  *uuid.UUID
	ProjectIDs []uuid.UUID
}
