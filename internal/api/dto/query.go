package dto

import (
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/notification"
	"github.com/ahmedelhadi17776/worklog/internal/domain/profile"
	"github.com/ahmedelhadi17776/worklog/internal/domain/project"
	"github.com/ahmedelhadi17776/worklog/internal/domain/report"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/ahmedelhadi17776/worklog/internal/domain/timelog"
	"github.com/google/uuid"
)

const defaultPageSize = 20

// optionalUUID parses a query value already checked by the uuid validator
func optionalUUID(s *string) *uuid.UUID {
	if s == nil || *s == "" {
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil
	}
	return &id
}

type PageQuery struct {
	Page     int `form:"page" validate:"min=0"`
	PageSize int `form:"page_size" validate:"min=0,max=500"`
}

func (q PageQuery) Size() int {
	if q.PageSize == 0 {
		return defaultPageSize
	}
	return q.PageSize
}

type ProfileQuery struct {
	PageQuery
	Role   *authz.Role   `form:"role" validate:"omitempty,role"`
	Status *authz.Status `form:"status" validate:"omitempty,account_status"`
	Search *string       `form:"search" validate:"omitempty,max=255"`
}

func (q ProfileQuery) Filter() profile.ProfileFilter {
	return profile.ProfileFilter{
		Role:     q.Role,
		Status:   q.Status,
		Search:   q.Search,
		Page:     q.Page,
		PageSize: q.Size(),
	}
}

type ProjectQuery struct {
	PageQuery
	Name   *string                `form:"name" validate:"omitempty,max=255"`
	Status *project.ProjectStatus `form:"status" validate:"omitempty,project_status"`
}

func (q ProjectQuery) Filter() project.ProjectFilter {
	return project.ProjectFilter{
		Page:     q.Page,
		PageSize: q.Size(),
		Name:     q.Name,
		Status:   q.Status,
	}
}

type TaskQuery struct {
	PageQuery
	ProjectID    *string          `form:"project_id" validate:"omitempty,uuid"`
	PersonalOnly bool             `form:"personal"`
	AssignedTo   *string          `form:"assigned_to" validate:"omitempty,uuid"`
	CreatedBy    *string          `form:"created_by" validate:"omitempty,uuid"`
	Status       *task.TaskStatus `form:"status" validate:"omitempty,task_status"`
	DueAfter     *time.Time       `form:"due_after" time_format:"2006-01-02"`
	DueBefore    *time.Time       `form:"due_before" time_format:"2006-01-02"`
	Search       *string          `form:"search" validate:"omitempty,max=255"`
}

func (q TaskQuery) Filter() task.TaskFilter {
	return task.TaskFilter{
		ProjectID:    optionalUUID(q.ProjectID),
		PersonalOnly: q.PersonalOnly,
		AssignedTo:   optionalUUID(q.AssignedTo),
		CreatedBy:    optionalUUID(q.CreatedBy),
		Status:       q.Status,
		DueAfter:     q.DueAfter,
		DueBefore:    q.DueBefore,
		Search:       q.Search,
		Page:         q.Page,
		PageSize:     q.Size(),
	}
}

type TimeLogQuery struct {
	PageQuery
	UserID         *string                 `form:"user_id" validate:"omitempty,uuid"`
	TaskID         *string                 `form:"task_id" validate:"omitempty,uuid"`
	ProjectID      *string                 `form:"project_id" validate:"omitempty,uuid"`
	From           *time.Time              `form:"from" time_format:"2006-01-02"`
	To             *time.Time              `form:"to" time_format:"2006-01-02"`
	ApprovalStatus *timelog.ApprovalStatus `form:"approval_status" validate:"omitempty,approval_status"`
	Source         *timelog.Source         `form:"source" validate:"omitempty,oneof=timer manual"`
	Running        bool                    `form:"running"`
}

func (q TimeLogQuery) Filter() timelog.Filter {
	return timelog.Filter{
		UserID:         optionalUUID(q.UserID),
		TaskID:         optionalUUID(q.TaskID),
		ProjectID:      optionalUUID(q.ProjectID),
		From:           q.From,
		To:             q.To,
		ApprovalStatus: q.ApprovalStatus,
		Source:         q.Source,
		RunningOnly:    q.Running,
		Page:           q.Page,
		PageSize:       q.Size(),
	}
}

type NotificationQuery struct {
	PageQuery
	UnreadOnly bool               `form:"unread"`
	Type       *notification.Type `form:"type" validate:"omitempty,notification_type"`
}

func (q NotificationQuery) Filter() notification.ListFilter {
	return notification.ListFilter{
		UnreadOnly: q.UnreadOnly,
		Type:       q.Type,
		Limit:      q.Size(),
		Offset:     q.Page * q.Size(),
	}
}

type CalendarQuery struct {
	Year  int `form:"year" validate:"required,min=1970,max=9999"`
	Month int `form:"month" validate:"required,min=1,max=12"`
}

type CalendarDayQuery struct {
	Date string `form:"date" validate:"required,datetime=2006-01-02"`
}

type ReportQuery struct {
	From         *time.Time `form:"from" time_format:"2006-01-02"`
	To           *time.Time `form:"to" time_format:"2006-01-02"`
	ProjectID    *string    `form:"project_id" validate:"omitempty,uuid"`
	ApprovedOnly bool       `form:"approved_only"`
}

func (q ReportQuery) Filter() report.Filter {
	return report.Filter{
		From:         q.From,
		To:           q.To,
		ProjectID:    optionalUUID(q.ProjectID),
		ApprovedOnly: q.ApprovedOnly,
	}
}
