package profile

import (
	"context"
	"errors"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/persistence/postgres/connection"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileFilter defines the filtering options for profiles
type ProfileFilter struct {
	Role     *authz.Role
	Status   *authz.Status
	Search   *string
	Page     int
	PageSize int
}

type Repository interface {
	Create(ctx context.Context, profile *Profile) error
	// CreateRegistered inserts a self-registered profile, promoting it to admin
	// when no profile exists yet
	CreateRegistered(ctx context.Context, profile *Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	FindAll(ctx context.Context, filter ProfileFilter) ([]Profile, int64, error)
	Update(ctx context.Context, profile *Profile) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountActiveByRole(ctx context.Context, role authz.Role) (int64, error)
}

type repository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, profile *Profile) error {
	err := r.db.WithContext(ctx).Create(profile).Error
	if connection.IsUniqueViolation(err, "idx_profiles_email") {
		return ErrEmailExists
	}
	return err
}

// registrationLock is the advisory lock key held while the first-profile check runs
const registrationLock int64 = 0x776f726b6c6f67

func (r *repository) CreateRegistered(ctx context.Context, profile *Profile) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", registrationLock).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&Profile{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			profile.Role = authz.RoleAdmin
		}
		return tx.Create(profile).Error
	})
	if connection.IsUniqueViolation(err, "idx_profiles_email") {
		return ErrEmailExists
	}
	return err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var profile Profile
	result := r.db.WithContext(ctx).First(&profile, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, result.Error
	}
	return &profile, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	var profile Profile
	result := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&profile)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, result.Error
	}
	return &profile, nil
}

func (r *repository) FindAll(ctx context.Context, filter ProfileFilter) ([]Profile, int64, error) {
	var profiles []Profile
	var total int64
	query := r.db.WithContext(ctx).Model(&Profile{})

	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != nil && *filter.Search != "" {
		like := connection.ContainsPattern(*filter.Search)
		query = query.Where(`full_name ILIKE ? ESCAPE '\' OR email ILIKE ? ESCAPE '\'`, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	if filter.Page < 0 {
		filter.Page = 0
	}

	err := query.Order("full_name ASC").
		Offset(filter.Page * filter.PageSize).
		Limit(filter.PageSize).
		Find(&profiles).Error
	if err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}

func (r *repository) Update(ctx context.Context, profile *Profile) error {
	result := r.db.WithContext(ctx).Model(profile).Select("*").Updates(profile)
	if result.Error != nil {
		if connection.IsUniqueViolation(result.Error, "idx_profiles_email") {
			return ErrEmailExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Profile{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *repository) CountActiveByRole(ctx context.Context, role authz.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Profile{}).
		Where("role = ? AND status = ?", role, authz.StatusActive).
		Count(&count).Error
	return count, err
}
