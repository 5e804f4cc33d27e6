package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for notification data access
type Repository interface {
	Create(ctx context.Context, notification *Notification) error

	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)

	ListByUser(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Notification, error)

	MarkAsRead(ctx context.Context, id uuid.UUID) error

	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)

	Delete(ctx context.Context, id uuid.UUID) error

	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)

	// ExistsForReference reports whether userID already got a notification of
	// type t about referenceID at or after since
	ExistsForReference(ctx context.Context, userID uuid.UUID, t Type, referenceID uuid.UUID, since time.Time) (bool, error)
}
