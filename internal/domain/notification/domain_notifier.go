package notification

import (
	"context"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DomainNotifier lets other domains raise notifications as side effects of their
// own operations. Failures are logged and never fail the originating operation.
type DomainNotifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, t Type, title, message string, referenceID *uuid.UUID)
	NotifyUsers(ctx context.Context, userIDs []uuid.UUID, t Type, title, message string, referenceID *uuid.UUID)
}

type domainNotifierImpl struct {
	service Service
	logger  *logrus.Logger
}

func NewDomainNotifier(service Service, logger *logrus.Logger) DomainNotifier {
	return &domainNotifierImpl{service: service, logger: logger}
}

func (n *domainNotifierImpl) NotifyUser(ctx context.Context, userID uuid.UUID, t Type, title, message string, referenceID *uuid.UUID) {
	_, err := n.service.Create(ctx, authz.System, Draft{
		UserID:      userID,
		Type:        t,
		Title:       title,
		Message:     message,
		ReferenceID: referenceID,
	})
	if err != nil {
		n.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"type":    t,
		}).Error("Failed to create notification")
	}
}

func (n *domainNotifierImpl) NotifyUsers(ctx context.Context, userIDs []uuid.UUID, t Type, title, message string, referenceID *uuid.UUID) {
	for _, id := range userIDs {
		n.NotifyUser(ctx, id, t, title, message, referenceID)
	}
}

// NopNotifier drops every notification
type NopNotifier struct{}

func (NopNotifier) NotifyUser(context.Context, uuid.UUID, Type, string, string, *uuid.UUID) {}

func (NopNotifier) NotifyUsers(context.Context, []uuid.UUID, Type, string, string, *uuid.UUID) {}
