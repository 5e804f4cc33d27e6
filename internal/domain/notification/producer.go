package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ahmedelhadi17776/worklog/pkg/broker"
	"github.com/sirupsen/logrus"
)

// Topic carries notifications awaiting external delivery
const Topic = "notifications.external"

// Producer hands stored notifications to the external delivery pipeline
type Producer interface {
	ProduceNotification(ctx context.Context, notification *Notification, methods []DeliveryMethod) error
}

// deliveryMessage is the broker payload
type deliveryMessage struct {
	Notification *Notification   `json:"notification"`
	Methods      []DeliveryMethod `json:"methods"`
}

type brokerProducer struct {
	messageBroker broker.MessageBroker
	logger        *logrus.Logger
}

func NewBrokerProducer(messageBroker broker.MessageBroker, logger *logrus.Logger) Producer {
	return &brokerProducer{messageBroker: messageBroker, logger: logger}
}

func (p *brokerProducer) ProduceNotification(ctx context.Context, notification *Notification, methods []DeliveryMethod) error {
	if notification == nil {
		return fmt.Errorf("notification cannot be nil")
	}
	if len(methods) == 0 {
		return nil
	}

	payload, err := json.Marshal(deliveryMessage{Notification: notification, Methods: methods})
	if err != nil {
		return fmt.Errorf("encoding notification message: %w", err)
	}

	attributes := map[string]string{
		"type": string(notification.Type),
		"user": notification.UserID.String(),
	}
	if err := p.messageBroker.Publish(ctx, Topic, payload, attributes); err != nil {
		p.logger.WithError(err).Error("Failed to publish notification message")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"notification_id": notification.ID,
		"user_id":         notification.UserID,
	}).Debug("Notification message published")
	return nil
}
