package main

import (
	"context"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/notification"
	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/persistence/postgres/connection"
	"github.com/ahmedelhadi17776/worklog/pkg/broker"
	"github.com/ahmedelhadi17776/worklog/pkg/config"
	"github.com/ahmedelhadi17776/worklog/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// NotificationSystem holds all notification-related components
type NotificationSystem struct {
	Service          notification.Service
	Producer         notification.Producer
	Consumer         notification.Consumer
	SignalRepository notification.SignalRepository
	MessageBroker    broker.MessageBroker
	Logger           *logrus.Logger
	CancelFunc       context.CancelFunc
	DomainNotifier   notification.DomainNotifier
}

// SetupNotificationSystem initializes and configures all notification components
func SetupNotificationSystem(
	db *connection.Database,
	policy *authz.Evaluator,
	cfg *config.Config,
	appLogger *logger.Logger,
) (*NotificationSystem, error) {
	notifLogger := logrus.New()
	notifLogger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.IsProduction() {
		notifLogger.SetLevel(logrus.InfoLevel)
	} else {
		notifLogger.SetLevel(logrus.DebugLevel)
	}

	repo := notification.NewRepository(db, notifLogger)
	signalRepo := notification.NewSignalRepository(cfg.Notifications.SignalTopicSize, notifLogger)

	msgBroker := broker.NewInMemoryBroker(notifLogger, 1000)
	producer := notification.NewBrokerProducer(msgBroker, notifLogger)

	// The service delivers in-app inline; the broker carries the external
	// channels and may still name in_app when a message is replayed
	deliveries := map[notification.DeliveryMethod]notification.DeliveryService{
		notification.InApp: notification.NewInAppDeliveryService(signalRepo),
	}
	var external []notification.DeliveryMethod
	if url := cfg.Notifications.SlackWebhookURL; url != "" {
		deliveries[notification.Slack] = notification.NewSlackDeliveryService(url, notifLogger)
		external = append(external, notification.Slack)
		appLogger.Info("Slack notifications enabled")
	}

	service := notification.NewService(notification.ServiceConfig{
		Repository:      repo,
		Policy:          policy,
		Logger:          notifLogger,
		SignalRepo:      signalRepo,
		Producer:        producer,
		ExternalMethods: external,
	})

	consumer := notification.NewBrokerConsumer(msgBroker, deliveries, notifLogger)
	domainNotifier := notification.NewDomainNotifier(service, notifLogger)

	consumerCtx, cancelFunc := context.WithCancel(context.Background())
	if err := consumer.Start(consumerCtx); err != nil {
		cancelFunc()
		appLogger.Error("Failed to start notification consumer", zap.Error(err))
		return nil, err
	}

	appLogger.Info("Notification system started successfully")

	return &NotificationSystem{
		Service:          service,
		Producer:         producer,
		Consumer:         consumer,
		SignalRepository: signalRepo,
		MessageBroker:    msgBroker,
		Logger:           notifLogger,
		CancelFunc:       cancelFunc,
		DomainNotifier:   domainNotifier,
	}, nil
}

// Shutdown gracefully stops all notification components
func (ns *NotificationSystem) Shutdown() error {
	if ns.Consumer != nil && ns.Consumer.IsRunning() {
		if err := ns.Consumer.Stop(); err != nil {
			ns.Logger.WithError(err).Error("Error shutting down notification consumer")
			return err
		}
	}

	if ns.CancelFunc != nil {
		ns.CancelFunc()
	}

	if ns.MessageBroker != nil {
		if err := ns.MessageBroker.Close(); err != nil {
			ns.Logger.WithError(err).Error("Error closing message broker")
			return err
		}
	}

	ns.Logger.Info("Notification system shut down successfully")
	return nil
}
