package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/persistence/postgres/connection"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultListLimit = 50

// postgresRepository implements the Repository interface for PostgreSQL
type postgresRepository struct {
	db     *connection.Database
	logger *logrus.Logger
}

// NewRepository creates a new PostgreSQL notification repository
func NewRepository(db *connection.Database, logger *logrus.Logger) Repository {
	return &postgresRepository{
		db:     db,
		logger: logger,
	}
}

// withRecovery runs fn once more after a reconnect when the first attempt lost the connection
func (r *postgresRepository) withRecovery(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error {
	err := fn(r.db.WithContext(ctx))
	if err == nil || !isConnectionError(err) {
		return err
	}

	r.logger.WithError(err).WithField("operation", operation).Warn("Database connection error, attempting reconnection")
	if reconnectErr := r.db.Reconnect(); reconnectErr != nil {
		r.logger.WithError(reconnectErr).Error("Failed to reconnect to database")
		return err
	}

	r.logger.WithField("operation", operation).Info("Reconnection successful, retrying operation")
	if retryErr := fn(r.db.WithContext(ctx)); retryErr != nil {
		r.logger.WithError(retryErr).WithField("operation", operation).Error("Operation failed after reconnection")
		return retryErr
	}
	return nil
}

var connectionErrors = []string{
	"connection refused",
	"bad connection",
	"connection reset by peer",
	"broken pipe",
	"connection closed",
	"hostname resolving error",
}

func isConnectionError(err error) bool {
	msg := err.Error()
	for _, s := range connectionErrors {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (r *postgresRepository) Create(ctx context.Context, notification *Notification) error {
	return r.withRecovery(ctx, "Create", func(tx *gorm.DB) error {
		return tx.Create(notification).Error
	})
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	var notification Notification
	err := r.withRecovery(ctx, "GetByID", func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).First(&notification).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &notification, nil
}

// ListByUser returns unread notifications first, newest first within each group
func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Notification, error) {
	var notifications []*Notification
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}

	err := r.withRecovery(ctx, "ListByUser", func(tx *gorm.DB) error {
		query := tx.Model(&Notification{}).Where("user_id = ?", userID)
		if filter.UnreadOnly {
			query = query.Where("read = ?", false)
		}
		if filter.Type != nil {
			query = query.Where("type = ?", *filter.Type)
		}
		return query.Order("read ASC, created_at DESC").
			Limit(filter.Limit).
			Offset(filter.Offset).
			Find(&notifications).Error
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *postgresRepository) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	return r.withRecovery(ctx, "MarkAsRead", func(tx *gorm.DB) error {
		result := tx.Model(&Notification{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"read":       true,
				"read_at":    now,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *postgresRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	now := time.Now().UTC()
	var affected int64
	err := r.withRecovery(ctx, "MarkAllAsRead", func(tx *gorm.DB) error {
		result := tx.Model(&Notification{}).
			Where("user_id = ? AND read = ?", userID, false).
			Updates(map[string]interface{}{
				"read":       true,
				"read_at":    now,
				"updated_at": now,
			})
		affected = result.RowsAffected
		return result.Error
	})
	return affected, err
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.withRecovery(ctx, "Delete", func(tx *gorm.DB) error {
		result := tx.Delete(&Notification{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *postgresRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int64
	err := r.withRecovery(ctx, "CountUnread", func(tx *gorm.DB) error {
		return tx.Model(&Notification{}).
			Where("user_id = ? AND read = ?", userID, false).
			Count(&count).Error
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *postgresRepository) ExistsForReference(ctx context.Context, userID uuid.UUID, t Type, referenceID uuid.UUID, since time.Time) (bool, error) {
	var count int64
	err := r.withRecovery(ctx, "ExistsForReference", func(tx *gorm.DB) error {
		return tx.Model(&Notification{}).
			Where("user_id = ? AND type = ? AND reference_id = ? AND created_at >= ?", userID, t, referenceID, since).
			Limit(1).
			Count(&count).Error
	})
	return count > 0, err
}
