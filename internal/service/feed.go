package service

import (
	"context"

	"inkwell/internal/middleware"
	"inkwell/internal/notifications"
)

// FeedPublisher receives content events for the live feed.
type FeedPublisher interface {
	PublishFeed(ctx context.Context, ev notifications.FeedEvent) error
}

// publish delivers ev best-effort: the write it describes has already committed.
func publish(ctx context.Context, feed FeedPublisher, ev notifications.FeedEvent) {
	if feed == nil {
		return
	}
	if err := feed.PublishFeed(ctx, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "feed publish failed", "type", ev.Type, "error", err)
	}
}
