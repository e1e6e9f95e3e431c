// Package notifications fans content events out to live feed subscribers.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FeedChannel carries every feed event.
const FeedChannel = "inkwell:feed"

// EventType names a feed event.
type EventType string

const (
	EventPostPublished  EventType = "post_published"
	EventPostDeleted    EventType = "post_deleted"
	EventCommentCreated EventType = "comment_created"
	EventCommentDeleted EventType = "comment_deleted"
)

// FeedEvent is the JSON payload pushed to feed clients. Commenter origins
// never appear here.
type FeedEvent struct {
	Type      EventType  `json:"type"`
	PostID    uuid.UUID  `json:"postId"`
	Title     string     `json:"title,omitempty"`
	CommentID *uuid.UUID `json:"commentId,omitempty"`
	ParentID  *uuid.UUID `json:"parentId,omitempty"`
	Name      string     `json:"name,omitempty"`
	At        time.Time  `json:"at"`
}

// Notifier publishes feed events into Redis.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier. A nil client makes every publish a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishFeed sends ev to every subscribed instance.
func (n *Notifier) PublishFeed(ctx context.Context, ev FeedEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}
	if err := n.rdb.Publish(ctx, FeedChannel, payload).Err(); err != nil {
		return err
	}
	observability.FeedEvents.WithLabelValues(string(ev.Type)).Inc()
	return nil
}

// StartFeedSubscriber subscribes to FeedChannel and calls onMessage for each
// payload until ctx is done.
func (n *Notifier) StartFeedSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, FeedChannel)
	// Wait for the subscription so events published right after return are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", FeedChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in feed subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
