// Package notifications provides real-time notification delivery and management.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// PersonaEventsChannel carries persona lifecycle and mode-change events
// between instances.
const PersonaEventsChannel = "personas:events"

// Event types published on PersonaEventsChannel and user channels.
const (
	EventModeChanged    = "mode_changed"
	EventPersonaRemoved = "persona_removed"
	EventForcedExit     = "forced_exit"
)

// PersonaEvent is the wire form of a persona lifecycle or mode event.
type PersonaEvent struct {
	Type      string `json:"type"`
	UserID    uint   `json:"user_id"`
	PersonaID string `json:"persona_id,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Forced    bool   `json:"forced,omitempty"`
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(
	ctx context.Context, userID uint, payload string,
) error {
	if n.rdb == nil {
		return nil
	}
	channel := fmt.Sprintf("notifications:user:%d", userID)
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// PublishBroadcast sends a notification payload to all connected users.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, "notifications:broadcast", payload).Err()
}

// PublishPersonaEvent publishes a persona lifecycle/mode event. Every
// instance subscribed via StartPersonaEventSubscriber receives it, which is
// how a persona deletion on one instance forces the exit on whichever
// instance holds the owner's session.
func (n *Notifier) PublishPersonaEvent(ctx context.Context, event PersonaEvent) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal persona event: %w", err)
	}
	return n.rdb.Publish(ctx, PersonaEventsChannel, payload).Err()
}

// StartPatternSubscriber subscribes to pattern `notifications:user:*` and calls onMessage
// for each incoming message. onMessage receives channel and payload.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notifications:user:*", "notifications:broadcast")
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
							log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// StartPersonaEventSubscriber subscribes to the persona events channel and
// calls onEvent for each decoded event. Malformed payloads are logged and
// skipped.
func (n *Notifier) StartPersonaEventSubscriber(
	ctx context.Context, onEvent func(event PersonaEvent),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, PersonaEventsChannel)
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
				var event PersonaEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("invalid persona event payload: %v", err)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in PersonaEventSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onEvent(event)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}
