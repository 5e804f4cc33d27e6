package dto

import (
	"github.com/ahmedelhadi17776/worklog/internal/domain/notification"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/google/uuid"
)

type UpdateTaskStatusRequest struct {
	Status task.TaskStatus `json:"status" validate:"required,task_status"`
}

type AssignTaskRequest struct {
	AssignedTo uuid.UUID `json:"assigned_to" validate:"required"`
}

type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

type StartTimerRequest struct {
	TaskID uuid.UUID `json:"task_id" validate:"required"`
}

// CreateNotificationRequest lets a user note something for themselves, or an admin notify anyone
type CreateNotificationRequest struct {
	UserID      *uuid.UUID        `json:"user_id"`
	Type        notification.Type `json:"type" validate:"required,notification_type"`
	Title       string            `json:"title" validate:"required,not_empty,max=255"`
	Message     string            `json:"message" validate:"required,not_empty,max=2000"`
	ReferenceID *uuid.UUID        `json:"reference_id"`
}
