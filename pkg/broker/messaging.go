package broker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrBrokerClosed = errors.New("broker is closed")
	ErrQueueFull    = errors.New("queue is full")
)

// Message is one unit of work published on a topic
type Message struct {
	ID          string            `json:"id"`
	Topic       string            `json:"topic"`
	Payload     []byte            `json:"payload"`
	PublishedAt time.Time         `json:"published_at"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// MessageHandler processes a message. Returned errors are logged, not retried.
type MessageHandler func(context.Context, *Message) error

// MessageBroker defines an interface for a message broker
type MessageBroker interface {
	Publish(ctx context.Context, topic string, payload []byte, attributes map[string]string) error
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)
	Close() error
}

type Subscription interface {
	ID() string
	Topic() string
	Unsubscribe() error
}

// InMemoryBroker delivers each message to every subscriber of its topic.
// Every subscription owns a bounded queue drained by a single worker goroutine,
// so a handler sees messages in publish order.
type InMemoryBroker struct {
	mu            sync.RWMutex
	subscriptions map[string]map[string]*subscription
	logger        *logrus.Logger
	queueSize     int
	closed        bool
	wg            sync.WaitGroup
}

type subscription struct {
	id      string
	topic   string
	broker  *InMemoryBroker
	queue   chan *Message
	handler MessageHandler
	once    sync.Once
}

// NewInMemoryBroker creates a new in-memory message broker
func NewInMemoryBroker(logger *logrus.Logger, queueSize int) *InMemoryBroker {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &InMemoryBroker{
		subscriptions: make(map[string]map[string]*subscription),
		logger:        logger,
		queueSize:     queueSize,
	}
}

// Publish enqueues the message for every current subscriber without blocking.
// A full subscriber queue fails the publish with ErrQueueFull.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, payload []byte, attributes map[string]string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBrokerClosed
	}

	msg := &Message{
		ID:          uuid.New().String(),
		Topic:       topic,
		Payload:     payload,
		PublishedAt: time.Now(),
		Attributes:  attributes,
	}

	var full bool
	for _, sub := range b.subscriptions[topic] {
		select {
		case sub.queue <- msg:
		default:
			full = true
			b.logger.WithFields(logrus.Fields{
				"topic":           topic,
				"subscription_id": sub.id,
				"message_id":      msg.ID,
			}).Warn("Subscriber queue full, dropping message")
		}
	}
	if full {
		return ErrQueueFull
	}
	return nil
}

// Subscribe registers handler on topic and starts its worker
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	sub := &subscription{
		id:      uuid.New().String(),
		topic:   topic,
		broker:  b,
		queue:   make(chan *Message, b.queueSize),
		handler: handler,
	}
	if b.subscriptions[topic] == nil {
		b.subscriptions[topic] = make(map[string]*subscription)
	}
	b.subscriptions[topic][sub.id] = sub

	b.wg.Add(1)
	go b.run(sub)

	return sub, nil
}

func (b *InMemoryBroker) run(sub *subscription) {
	defer b.wg.Done()
	for msg := range sub.queue {
		// handlers outlive the publishing request
		if err := sub.handler(context.Background(), msg); err != nil {
			b.logger.WithError(err).WithFields(logrus.Fields{
				"topic":      msg.Topic,
				"message_id": msg.ID,
			}).Error("Error processing message")
		}
	}
}

// Close stops accepting messages and waits for queued ones to be handled
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, subs := range b.subscriptions {
		for _, sub := range subs {
			sub.close()
		}
	}
	b.subscriptions = nil
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

func (s *subscription) ID() string {
	return s.id
}

func (s *subscription) Topic() string {
	return s.topic
}

func (s *subscription) close() {
	s.once.Do(func() { close(s.queue) })
}

// Unsubscribe removes the subscription; already queued messages are still handled
func (s *subscription) Unsubscribe() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()

	if subs, ok := s.broker.subscriptions[s.topic]; ok {
		delete(subs, s.id)
	}
	s.close()
	return nil
}
