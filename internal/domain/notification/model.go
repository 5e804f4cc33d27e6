package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Type represents the type of notification
type Type string

const (
	TypeTaskAssignment   Type = "task_assignment"
	TypeDeadlineReminder Type = "deadline_reminder"
	TypeStatusChange     Type = "status_change"
	TypeApprovalRequest  Type = "approval_request"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeTaskAssignment, TypeDeadlineReminder, TypeStatusChange, TypeApprovalRequest:
		return true
	}
	return false
}

// Notification represents a notification entity
type Notification struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index:idx_notifications_user_read,priority:1"`
	Title       string     `json:"title" gorm:"type:varchar(255);not null"`
	Message     string     `json:"message" gorm:"type:text;not null"`
	Type        Type       `json:"type" gorm:"type:varchar(32);not null"`
	Read        bool       `json:"read" gorm:"not null;default:false;index:idx_notifications_user_read,priority:2"`
	ReferenceID *uuid.UUID `json:"reference_id,omitempty" gorm:"type:uuid;index"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate hook to set default values
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// Draft is a notification about to be created
type Draft struct {
	UserID      uuid.UUID  `json:"user_id"`
	Type        Type       `json:"type"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	ReferenceID *uuid.UUID `json:"reference_id,omitempty"`
}

// ListFilter narrows a user's notification list
type ListFilter struct {
	UnreadOnly bool
	Type       *Type
	Limit      int
	Offset     int
}
