package timelog

import (
	"errors"
	"fmt"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrTimeLogNotFound           = errors.New("time log not found")
	ErrTimerAlreadyRunning       = errors.New("a timer is already running")
	ErrNoActiveTimer             = errors.New("no timer is running")
	ErrInvalidInterval           = errors.New("end time must be after start time")
	ErrInvalidApprovalTransition = errors.New("only stopped, pending time logs can be reviewed")
	ErrInvalidInput              = errors.New("invalid input")
)

// ActiveTimerIndex is the partial unique index allowing one running log per user
const ActiveTimerIndex = "idx_time_logs_one_active"

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

type Source string

const (
	SourceTimer  Source = "timer"
	SourceManual Source = "manual"
)

// TimeLog is a span of work on a task. A nil EndTime means the timer is running.
type TimeLog struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	UserID          uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index:idx_time_logs_user_date,priority:1"`
	TaskID          uuid.UUID      `json:"task_id" gorm:"type:uuid;not null;index:idx_time_logs_task"`
	ProjectID       *uuid.UUID     `json:"project_id" gorm:"type:uuid;index:idx_time_logs_project"`
	StartTime       time.Time      `json:"start_time" gorm:"not null"`
	EndTime         *time.Time     `json:"end_time"`
	DurationMinutes *int           `json:"duration_minutes"`
	Date            datatypes.Date `json:"date" gorm:"not null;index:idx_time_logs_user_date,priority:2"`
	Description     *string        `json:"description" gorm:"type:text"`
	Source          Source         `json:"source" gorm:"type:varchar(16);not null;default:'timer'"`
	ApprovalStatus  ApprovalStatus `json:"approval_status" gorm:"type:varchar(16);not null;default:'pending';index:idx_time_logs_approval"`
	ReviewedBy      *uuid.UUID     `json:"reviewed_by" gorm:"type:uuid"`
	ReviewedAt      *time.Time     `json:"reviewed_at"`
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

func (TimeLog) TableName() string {
	return "time_logs"
}

// ComputeDurationMinutes truncates both ends to whole seconds and floors the
// difference to minutes. It returns nil while the log is running.
func ComputeDurationMinutes(start time.Time, end *time.Time) *int {
	if end == nil {
		return nil
	}
	delta := end.Truncate(time.Second).Sub(start.Truncate(time.Second))
	minutes := int(delta / time.Minute)
	return &minutes
}

// BeforeSave keeps duration_minutes in step with the timestamps on every write
func (l *TimeLog) BeforeSave(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if err := l.Validate(); err != nil {
		return err
	}
	l.DurationMinutes = ComputeDurationMinutes(l.StartTime, l.EndTime)
	return nil
}

func (l *TimeLog) Validate() error {
	if l.UserID == uuid.Nil || l.TaskID == uuid.Nil {
		return fmt.Errorf("%w: user and task are required", ErrInvalidInput)
	}
	if l.EndTime != nil && !l.EndTime.After(l.StartTime) {
		return ErrInvalidInterval
	}
	if !l.ApprovalStatus.IsValid() {
		return fmt.Errorf("%w: approval status %q", ErrInvalidInput, l.ApprovalStatus)
	}
	return nil
}

func (l *TimeLog) IsRunning() bool {
	return l.EndTime == nil
}

func (l *TimeLog) IsPending() bool {
	return l.ApprovalStatus == ApprovalPending
}

// Minutes is the stored duration, zero while running
func (l *TimeLog) Minutes() int {
	if l.DurationMinutes == nil {
		return 0
	}
	return *l.DurationMinutes
}

// Day is the calendar day the log is booked on
func (l *TimeLog) Day() time.Time {
	return time.Time(l.Date)
}

// Subject is the bare policy view of the log. Project fields are filled by the memberships scope.
func (l *TimeLog) Subject() authz.Subject {
	return authz.Subject{
		OwnerID:   l.UserID,
		ProjectID: l.ProjectID,
		Pending:   l.IsPending(),
	}
}

// DateOf returns the UTC calendar day containing t
func DateOf(t time.Time) datatypes.Date {
	y, m, d := t.UTC().Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// ActiveTimer is a running log with its elapsed time, computed on read and never stored
type ActiveTimer struct {
	Log            *TimeLog `json:"log"`
	ElapsedSeconds int64    `json:"elapsed_seconds"`
	Elapsed        string   `json:"elapsed"`
}

func newActiveTimer(log *TimeLog, now time.Time) *ActiveTimer {
	elapsed := now.Sub(log.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	seconds := int64(elapsed / time.Second)
	return &ActiveTimer{
		Log:            log,
		ElapsedSeconds: seconds,
		Elapsed:        fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60),
	}
}

type ManualEntryInput struct {
	TaskID      uuid.UUID  `json:"task_id" validate:"required"`
	Date        *time.Time `json:"date"`
	StartTime   time.Time  `json:"start_time" validate:"required"`
	EndTime     time.Time  `json:"end_time" validate:"required"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	// ApprovalStatus is accepted from clients but ignored: manual entries start pending
	ApprovalStatus *ApprovalStatus `json:"approval_status,omitempty"`
}

type UpdateInput struct {
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

// Filter narrows a time log listing
type Filter struct {
	UserID         *uuid.UUID
	TaskID         *uuid.UUID
	ProjectID      *uuid.UUID
	From           *time.Time
	To             *time.Time
	ApprovalStatus *ApprovalStatus
	Source         *Source
	RunningOnly    bool
	Page           int
	PageSize       int

	// VisibleTo restricts rows to the user's own logs plus those in ManagedProjectIDs
	VisibleTo         *uuid.UUID
	ManagedProjectIDs []uuid.UUID
}
