package notification

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SignalRepository fans freshly created notifications out to live listeners
type SignalRepository interface {
	// Subscribe returns a channel of notifications for topic and a cancel func
	Subscribe(topic string) (<-chan *Notification, func(), error)

	// Publish hands the notification to every listener of topic
	Publish(topic string, notification *Notification) error
}

type signalRepository struct {
	mutex     sync.Mutex
	topics    map[string]map[string]chan *Notification
	topicSize int
	logger    *logrus.Logger
}

// NewSignalRepository creates a new signal repository
func NewSignalRepository(topicSize int, logger *logrus.Logger) SignalRepository {
	if topicSize <= 0 {
		topicSize = 100
	}
	return &signalRepository{
		topics:    make(map[string]map[string]chan *Notification),
		topicSize: topicSize,
		logger:    logger,
	}
}

func (r *signalRepository) Subscribe(topic string) (<-chan *Notification, func(), error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.topics[topic]; !exists {
		r.topics[topic] = make(map[string]chan *Notification)
	}

	ch := make(chan *Notification, r.topicSize)
	subscriberID := uuid.New().String()
	r.topics[topic][subscriberID] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mutex.Lock()
			defer r.mutex.Unlock()

			if topicMap, exists := r.topics[topic]; exists {
				delete(topicMap, subscriberID)
				if len(topicMap) == 0 {
					delete(r.topics, topic)
				}
			}
			close(ch)
		})
	}

	return ch, cancel, nil
}

// Publish never blocks: a listener whose buffer is full misses the notification
func (r *signalRepository) Publish(topic string, notification *Notification) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	subscribers := r.topics[topic]
	if len(subscribers) == 0 {
		return nil
	}

	r.logger.WithFields(logrus.Fields{
		"notification_id": notification.ID,
		"topic":           topic,
		"subscribers":     len(subscribers),
	}).Debug("Publishing notification to subscribers")

	for id, ch := range subscribers {
		select {
		case ch <- notification:
		default:
			r.logger.WithFields(logrus.Fields{
				"notification_id": notification.ID,
				"topic":           topic,
				"subscriber":      id,
			}).Warn("Failed to deliver notification to subscriber (channel full)")
		}
	}
	return nil
}
