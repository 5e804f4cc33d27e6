package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ahmedelhadi17776/worklog/pkg/broker"
	"github.com/sirupsen/logrus"
)

// Consumer drains the external delivery topic
type Consumer interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
}

type brokerConsumer struct {
	messageBroker broker.MessageBroker
	deliveries    map[DeliveryMethod]DeliveryService
	logger        *logrus.Logger

	mu           sync.Mutex
	subscription broker.Subscription
}

func NewBrokerConsumer(messageBroker broker.MessageBroker, deliveries map[DeliveryMethod]DeliveryService, logger *logrus.Logger) Consumer {
	return &brokerConsumer{
		messageBroker: messageBroker,
		deliveries:    deliveries,
		logger:        logger,
	}
}

func (c *brokerConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscription != nil {
		return errors.New("consumer already running")
	}

	sub, err := c.messageBroker.Subscribe(ctx, Topic, c.handle)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", Topic, err)
	}
	c.subscription = sub
	c.logger.WithField("topic", Topic).Info("Notification consumer started")
	return nil
}

func (c *brokerConsumer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscription == nil {
		return nil
	}
	err := c.subscription.Unsubscribe()
	c.subscription = nil
	return err
}

func (c *brokerConsumer) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscription != nil
}

// handle delivers through every requested channel and reports the failures together
func (c *brokerConsumer) handle(ctx context.Context, msg *broker.Message) error {
	var m deliveryMessage
	if err := json.Unmarshal(msg.Payload, &m); err != nil {
		return fmt.Errorf("decoding notification message: %w", err)
	}
	if m.Notification == nil {
		return errors.New("notification message without notification")
	}

	var errs []error
	for _, method := range m.Methods {
		svc, ok := c.deliveries[method]
		if !ok {
			c.logger.WithField("method", method).Warn("Delivery method not configured, skipping")
			continue
		}
		if err := svc.Deliver(ctx, m.Notification); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", method, err))
		}
	}
	return errors.Join(errs...)
}
