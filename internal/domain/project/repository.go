package project

import (
	"context"
	"errors"

	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/persistence/postgres/connection"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for project persistence operations
type Repository interface {
	Create(ctx context.Context, project *Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*Project, error)
	FindAll(ctx context.Context, filter ProjectFilter) ([]Project, int64, error)
	Update(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddMember(ctx context.Context, member *ProjectMember) error
	RemoveMember(ctx context.Context, projectID uuid.UUID, userID uuid.UUID) error
	ListMembers(ctx context.Context, projectID uuid.UUID) ([]ProjectMember, error)
	CountTasks(ctx context.Context, projectID uuid.UUID) (int64, error)
	Memberships(ctx context.Context, userID uuid.UUID) (Memberships, error)
}

type repository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, project *Project) error {
	err := r.db.WithContext(ctx).Create(project).Error
	if connection.IsForeignKeyViolation(err) {
		return ErrInvalidInput
	}
	return err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	var project Project
	result := r.db.WithContext(ctx).First(&project, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, result.Error
	}
	return &project, nil
}

func (r *repository) FindAll(ctx context.Context, filter ProjectFilter) ([]Project, int64, error) {
	var projects []Project
	var total int64
	query := r.db.WithContext(ctx).Model(&Project{})

	if filter.Scoped {
		if len(filter.ProjectIDs) == 0 {
			return []Project{}, 0, nil
		}
		query = query.Where("id IN ?", filter.ProjectIDs)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Name != nil && *filter.Name != "" {
		query = query.Where(`name ILIKE ? ESCAPE '\'`, connection.ContainsPattern(*filter.Name))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	err := query.Order("created_at DESC").
		Offset(filter.Page * filter.PageSize).
		Limit(filter.PageSize).
		Find(&projects).Error
	if err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

func (r *repository) Update(ctx context.Context, project *Project) error {
	result := r.db.WithContext(ctx).Model(project).Select("*").Updates(project)
	if result.Error != nil {
		if connection.IsForeignKeyViolation(result.Error) {
			return ErrInvalidInput
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// Delete removes the project with its memberships. Tasks and time logs keep
// their rows with project_id set to null by the foreign key.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&ProjectMember{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&Project{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrProjectNotFound
		}
		return nil
	})
}

func (r *repository) AddMember(ctx context.Context, member *ProjectMember) error {
	err := r.db.WithContext(ctx).Create(member).Error
	switch {
	case connection.IsUniqueViolation(err, "idx_project_members_pair"):
		return ErrAlreadyMember
	case connection.IsForeignKeyViolation(err):
		return ErrInvalidInput
	}
	return err
}

func (r *repository) RemoveMember(ctx context.Context, projectID uuid.UUID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&ProjectMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *repository) ListMembers(ctx context.Context, projectID uuid.UUID) ([]ProjectMember, error) {
	var members []ProjectMember
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *repository) CountTasks(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("tasks").Where("project_id = ?", projectID).Count(&count).Error
	return count, err
}

func (r *repository) Memberships(ctx context.Context, userID uuid.UUID) (Memberships, error) {
	m := Memberships{
		UserID:  userID,
		Managed: make(map[uuid.UUID]bool),
		Joined:  make(map[uuid.UUID]bool),
	}

	var managed []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&Project{}).
		Where("manager_id = ?", userID).
		Pluck("id", &managed).Error; err != nil {
		return m, err
	}
	for _, id := range managed {
		m.Managed[id] = true
	}

	var joined []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&ProjectMember{}).
		Where("user_id = ?", userID).
		Pluck("project_id", &joined).Error; err != nil {
		return m, err
	}
	for _, id := range joined {
		m.Joined[id] = true
	}

	return m, nil
}
