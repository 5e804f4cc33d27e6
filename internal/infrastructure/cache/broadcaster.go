package cache

import (
	"context"
	"fmt"

	"github.com/ahmedelhadi17776/worklog/internal/domain/events"
	"go.uber.org/zap"
)

// ScopeAll marks cached views computed over every user's rows (admin dashboards)
const ScopeAll = "all"

// DashboardBroadcaster evicts the views an event makes stale and forwards it on
// the dashboard channel so other instances and websocket listeners can refresh.
type DashboardBroadcaster struct {
	redis *RedisClient
}

func NewDashboardBroadcaster(redis *RedisClient) *DashboardBroadcaster {
	return &DashboardBroadcaster{redis: redis}
}

func (b *DashboardBroadcaster) Publish(ctx context.Context, event *events.DashboardEvent) {
	if b == nil || b.redis == nil || event == nil {
		return
	}

	if err := b.redis.InvalidateUserViews(ctx, event.UserID); err != nil {
		log.Warn("Failed to invalidate user views",
			zap.String("user_id", event.UserID.String()),
			zap.Error(err))
	}
	switch event.EventType {
	case events.EventTypeTaskUpdate, events.EventTypeProjectUpdate:
		if err := b.redis.InvalidateTaskViews(ctx); err != nil {
			log.Warn("Failed to invalidate task views",
				zap.String("event_type", event.EventType),
				zap.Error(err))
		}
	}
	if err := b.redis.InvalidateSharedViews(ctx); err != nil {
		log.Warn("Failed to invalidate shared views", zap.Error(err))
	}
	if err := b.redis.ClearByPattern(ctx, fmt.Sprintf("%s:*:%s", TypeDashboard, ScopeAll)); err != nil {
		log.Warn("Failed to invalidate admin dashboards", zap.Error(err))
	}

	if err := b.redis.PublishDashboardEvent(ctx, event); err != nil {
		log.Warn("Failed to publish dashboard event",
			zap.String("event_type", event.EventType),
			zap.Error(err))
	}
}
