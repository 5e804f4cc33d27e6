package timelog

import (
	"context"
	"errors"

	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/persistence/postgres/connection"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxPageSize = 10000

// Repository defines the interface for time log persistence operations
type Repository interface {
	Create(ctx context.Context, log *TimeLog) error
	FindByID(ctx context.Context, id uuid.UUID) (*TimeLog, error)
	// FindActive returns the user's running log or ErrNoActiveTimer
	FindActive(ctx context.Context, userID uuid.UUID) (*TimeLog, error)
	FindAll(ctx context.Context, filter Filter) ([]TimeLog, int64, error)
	Update(ctx context.Context, log *TimeLog) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{db: db}
}

// Create maps a violation of the one-running-timer index to ErrTimerAlreadyRunning
func (r *repository) Create(ctx context.Context, log *TimeLog) error {
	err := r.db.WithContext(ctx).Create(log).Error
	switch {
	case err == nil:
		return nil
	case connection.IsUniqueViolation(err, ActiveTimerIndex):
		return ErrTimerAlreadyRunning
	case connection.IsForeignKeyViolation(err):
		return ErrInvalidInput
	}
	return err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*TimeLog, error) {
	var log TimeLog
	result := r.db.WithContext(ctx).First(&log, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTimeLogNotFound
		}
		return nil, result.Error
	}
	return &log, nil
}

func (r *repository) FindActive(ctx context.Context, userID uuid.UUID) (*TimeLog, error) {
	var log TimeLog
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND end_time IS NULL", userID).
		First(&log)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveTimer
		}
		return nil, result.Error
	}
	return &log, nil
}

func (r *repository) FindAll(ctx context.Context, filter Filter) ([]TimeLog, int64, error) {
	var logs []TimeLog
	var total int64
	query := r.db.WithContext(ctx).Model(&TimeLog{})

	if filter.VisibleTo != nil {
		if len(filter.ManagedProjectIDs) > 0 {
			query = query.Where("user_id = ? OR project_id IN ?", *filter.VisibleTo, filter.ManagedProjectIDs)
		} else {
			query = query.Where("user_id = ?", *filter.VisibleTo)
		}
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.TaskID != nil {
		query = query.Where("task_id = ?", *filter.TaskID)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.From != nil {
		query = query.Where("date >= ?", DateOf(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("date <= ?", DateOf(*filter.To))
	}
	if filter.ApprovalStatus != nil {
		query = query.Where("approval_status = ?", *filter.ApprovalStatus)
	}
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	if filter.RunningOnly {
		query = query.Where("end_time IS NULL")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize <= 0 || filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}
	err := query.Order("start_time DESC").
		Offset(filter.Page * filter.PageSize).
		Limit(filter.PageSize).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *repository) Update(ctx context.Context, log *TimeLog) error {
	result := r.db.WithContext(ctx).Model(log).Select("*").Updates(log)
	if result.Error != nil {
		if connection.IsUniqueViolation(result.Error, ActiveTimerIndex) {
			return ErrTimerAlreadyRunning
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTimeLogNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&TimeLog{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTimeLogNotFound
	}
	return nil
}
