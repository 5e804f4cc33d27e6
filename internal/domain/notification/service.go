package notification

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service defines the notification service interface
type Service interface {
	// Create stores a notification on behalf of the caller (self or admin)
	Create(ctx context.Context, caller authz.Caller, draft Draft) (*Notification, error)

	List(ctx context.Context, caller authz.Caller, filter ListFilter) ([]*Notification, error)

	CountUnread(ctx context.Context, caller authz.Caller) (int, error)

	MarkAsRead(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Notification, error)

	MarkAllAsRead(ctx context.Context, caller authz.Caller) (int64, error)

	Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error

	SubscribeToNotifications(caller authz.Caller) (<-chan *Notification, func(), error)

	ExistsForReference(ctx context.Context, userID uuid.UUID, t Type, referenceID uuid.UUID, since time.Time) (bool, error)
}

// ServiceConfig holds the configuration for the notification service
type ServiceConfig struct {
	Repository Repository
	Policy     *authz.Evaluator
	Logger     *logrus.Logger
	SignalRepo SignalRepository
	// Producer and ExternalMethods enable delivery beyond the websocket hub.
	// InApp is always delivered inline and is ignored here.
	Producer        Producer
	ExternalMethods []DeliveryMethod
}

type serviceImpl struct {
	repo            Repository
	policy          *authz.Evaluator
	logger          *logrus.Logger
	inApp           DeliveryService
	signalRepo      SignalRepository
	producer        Producer
	externalMethods []DeliveryMethod
}

// NewService creates a new notification service
func NewService(config ServiceConfig) Service {
	return &serviceImpl{
		repo:            config.Repository,
		policy:          config.Policy,
		logger:          config.Logger,
		inApp:           NewInAppDeliveryService(config.SignalRepo),
		signalRepo:      config.SignalRepo,
		producer:        config.Producer,
		externalMethods: slices.DeleteFunc(slices.Clone(config.ExternalMethods), func(m DeliveryMethod) bool {
			return m == InApp
		}),
	}
}

func validateDraft(d Draft) error {
	if d.UserID == uuid.Nil {
		return fmt.Errorf("%w: recipient is required", ErrInvalidInput)
	}
	if !d.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidInput, d.Type)
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	return nil
}

func (s *serviceImpl) Create(ctx context.Context, caller authz.Caller, draft Draft) (*Notification, error) {
	if err := s.policy.Check(caller, authz.TableNotifications, authz.ActionInsert, authz.Subject{OwnerID: draft.UserID}); err != nil {
		return nil, err
	}
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	notification := &Notification{
		ID:          uuid.New(),
		UserID:      draft.UserID,
		Title:       strings.TrimSpace(draft.Title),
		Message:     draft.Message,
		Type:        draft.Type,
		ReferenceID: draft.ReferenceID,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		s.logger.WithError(err).Error("Failed to create notification")
		return nil, err
	}

	s.deliver(ctx, notification)
	return notification, nil
}

// deliver pushes to live websocket listeners and queues external channels
func (s *serviceImpl) deliver(ctx context.Context, notification *Notification) {
	if err := s.inApp.Deliver(ctx, notification); err != nil {
		s.logger.WithError(err).WithField("notification_id", notification.ID).Warn("In-app delivery failed")
	}
	if s.producer == nil || len(s.externalMethods) == 0 {
		return
	}
	if err := s.producer.ProduceNotification(ctx, notification, s.externalMethods); err != nil {
		s.logger.WithError(err).WithField("notification_id", notification.ID).Warn("External delivery not queued")
	}
}

func (s *serviceImpl) List(ctx context.Context, caller authz.Caller, filter ListFilter) ([]*Notification, error) {
	if err := s.policy.Admit(caller, authz.TableNotifications); err != nil {
		return nil, err
	}
	notifications, err := s.repo.ListByUser(ctx, caller.ID, filter)
	if err != nil {
		return nil, err
	}
	return authz.Filter(s.policy, caller, authz.TableNotifications, notifications, func(n *Notification) authz.Subject {
		return authz.Subject{OwnerID: n.UserID}
	}), nil
}

func (s *serviceImpl) CountUnread(ctx context.Context, caller authz.Caller) (int, error) {
	if err := s.policy.Admit(caller, authz.TableNotifications); err != nil {
		return 0, err
	}
	return s.repo.CountUnread(ctx, caller.ID)
}

// MarkAsRead flips the read flag. Only the recipient may do it.
func (s *serviceImpl) MarkAsRead(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Notification, error) {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Check(caller, authz.TableNotifications, authz.ActionUpdate, authz.Subject{OwnerID: notification.UserID}); err != nil {
		return nil, err
	}
	if notification.Read {
		return notification, nil
	}

	if err := s.repo.MarkAsRead(ctx, id); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	notification.Read = true
	notification.ReadAt = &now
	return notification, nil
}

func (s *serviceImpl) MarkAllAsRead(ctx context.Context, caller authz.Caller) (int64, error) {
	if err := s.policy.Check(caller, authz.TableNotifications, authz.ActionUpdate, authz.Subject{OwnerID: caller.ID}); err != nil {
		return 0, err
	}
	return s.repo.MarkAllAsRead(ctx, caller.ID)
}

func (s *serviceImpl) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Check(caller, authz.TableNotifications, authz.ActionDelete, authz.Subject{OwnerID: notification.UserID}); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *serviceImpl) SubscribeToNotifications(caller authz.Caller) (<-chan *Notification, func(), error) {
	if err := s.policy.Admit(caller, authz.TableNotifications); err != nil {
		return nil, nil, err
	}
	return s.signalRepo.Subscribe(caller.ID.String())
}

func (s *serviceImpl) ExistsForReference(ctx context.Context, userID uuid.UUID, t Type, referenceID uuid.UUID, since time.Time) (bool, error) {
	return s.repo.ExistsForReference(ctx, userID, t, referenceID, since)
}
