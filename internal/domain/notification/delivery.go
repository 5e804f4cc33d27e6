package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

// DeliveryMethod defines how notifications are delivered
type DeliveryMethod string

const (
	// InApp pushes to connected websocket clients
	InApp DeliveryMethod = "in_app"
	// Slack posts to the team's incoming webhook
	Slack DeliveryMethod = "slack"
)

// DeliveryService sends a stored notification through one channel
type DeliveryService interface {
	Deliver(ctx context.Context, notification *Notification) error
}

type inAppDeliveryService struct {
	signalRepo SignalRepository
}

// NewInAppDeliveryService creates a new in-app delivery service
func NewInAppDeliveryService(signalRepo SignalRepository) DeliveryService {
	return &inAppDeliveryService{signalRepo: signalRepo}
}

func (s *inAppDeliveryService) Deliver(ctx context.Context, notification *Notification) error {
	return s.signalRepo.Publish(notification.UserID.String(), notification)
}

// PostWebhookFunc matches slack.PostWebhookContext
type PostWebhookFunc func(ctx context.Context, url string, msg *slack.WebhookMessage) error

type slackDeliveryService struct {
	webhookURL string
	post       PostWebhookFunc
	logger     *logrus.Logger
}

// NewSlackDeliveryService posts notifications to a Slack incoming webhook
func NewSlackDeliveryService(webhookURL string, logger *logrus.Logger) DeliveryService {
	return newSlackDeliveryService(webhookURL, slack.PostWebhookContext, logger)
}

func newSlackDeliveryService(webhookURL string, post PostWebhookFunc, logger *logrus.Logger) *slackDeliveryService {
	return &slackDeliveryService{
		webhookURL: webhookURL,
		post:       post,
		logger:     logger,
	}
}

var slackColors = map[Type]string{
	TypeTaskAssignment:   "#2eb886",
	TypeDeadlineReminder: "#daa038",
	TypeStatusChange:     "#439fe0",
	TypeApprovalRequest:  "#a30200",
}

func (s *slackDeliveryService) Deliver(ctx context.Context, notification *Notification) error {
	msg := &slack.WebhookMessage{
		Text: notification.Title,
		Attachments: []slack.Attachment{
			{
				Color:  slackColors[notification.Type],
				Text:   notification.Message,
				Footer: fmt.Sprintf("%s · user %s", notification.Type, notification.UserID),
				Ts:     slackTimestamp(notification),
			},
		},
	}

	if err := s.post(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"notification_id": notification.ID,
		"type":            notification.Type,
	}).Debug("Notification posted to Slack")
	return nil
}

func slackTimestamp(n *Notification) json.Number {
	return json.Number(strconv.FormatInt(n.CreatedAt.Unix(), 10))
}
