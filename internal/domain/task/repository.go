package task

import (
	"context"
	"errors"

	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/persistence/postgres/connection"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxPageSize = 10000

// TaskRepository defines the interface for task persistence operations
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)
	FindAll(ctx context.Context, filter TaskFilter) ([]Task, int64, error)
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type taskRepository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *Task) error {
	err := r.db.WithContext(ctx).Create(task).Error
	if connection.IsForeignKeyViolation(err) {
		return ErrInvalidInput
	}
	return err
}

func (r *taskRepository) FindByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	var task Task
	result := r.db.WithContext(ctx).First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

func (r *taskRepository) FindAll(ctx context.Context, filter TaskFilter) ([]Task, int64, error) {
	var tasks []Task
	var total int64

	query := r.db.WithContext(ctx).Model(&Task{})

	if filter.VisibleTo != nil {
		if len(filter.ProjectIDs) > 0 {
			query = query.Where("created_by = ? OR assigned_to = ? OR project_id IN ?",
				*filter.VisibleTo, *filter.VisibleTo, filter.ProjectIDs)
		} else {
			query = query.Where("created_by = ? OR assigned_to = ?", *filter.VisibleTo, *filter.VisibleTo)
		}
	}
	if filter.PersonalOnly {
		query = query.Where("project_id IS NULL")
	} else if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ExcludeStatus != nil {
		query = query.Where("status <> ?", *filter.ExcludeStatus)
	}
	if filter.DueAfter != nil {
		query = query.Where("end_date >= ?", *filter.DueAfter)
	}
	if filter.DueBefore != nil {
		query = query.Where("end_date < ?", *filter.DueBefore)
	}
	if filter.Search != nil && *filter.Search != "" {
		pattern := connection.ContainsPattern(*filter.Search)
		query = query.Where(`name ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\'`, pattern, pattern)
	}

	// Count total before pagination
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize <= 0 || filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}

	err := query.Order("end_date ASC NULLS LAST, created_at DESC").
		Offset(filter.Page * filter.PageSize).
		Limit(filter.PageSize).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

func (r *taskRepository) Update(ctx context.Context, task *Task) error {
	result := r.db.WithContext(ctx).Model(task).Select("*").Updates(task)
	if result.Error != nil {
		if connection.IsForeignKeyViolation(result.Error) {
			return ErrInvalidInput
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Task{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
