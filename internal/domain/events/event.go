package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Dashboard event types
const (
	EventTypeTaskUpdate      = "task_update"
	EventTypeTimeLogUpdate   = "time_log_update"
	EventTypeProjectUpdate   = "project_update"
	EventTypeApprovalUpdate  = "approval_update"
	EventTypeDashboardUpdate = "dashboard_update"
)

// DashboardEvent tells dashboard subscribers that a user's figures moved
type DashboardEvent struct {
	EventType string      `json:"event_type"`
	UserID    uuid.UUID   `json:"user_id"`
	EntityID  uuid.UUID   `json:"entity_id"`
	Timestamp time.Time   `json:"timestamp"`
	Details   interface{} `json:"details,omitempty"`
}

func NewDashboardEvent(eventType string, userID, entityID uuid.UUID, details interface{}) *DashboardEvent {
	return &DashboardEvent{
		EventType: eventType,
		UserID:    userID,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
		Details:   details,
	}
}

// Broadcaster propagates a data change to caches and dashboard subscribers.
// Publishing is best effort; failures are logged by the implementation.
type Broadcaster interface {
	Publish(ctx context.Context, event *DashboardEvent)
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, *DashboardEvent) {}

// Broadcast publishes the event to every user in userIDs, skipping duplicates and nil ids
func Broadcast(ctx context.Context, b Broadcaster, eventType string, entityID uuid.UUID, userIDs ...uuid.UUID) {
	if b == nil {
		return
	}
	seen := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		b.Publish(ctx, NewDashboardEvent(eventType, id, entityID, nil))
	}
}
