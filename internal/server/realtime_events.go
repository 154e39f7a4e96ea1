package server

import (
	"context"
	"encoding/json"

	"linker/internal/middleware"
)

// Realtime event types pushed to connected clients over the notification hub.
const (
	eventVerificationUpdated = "verification_updated"
)

type realtimeEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// publishUserEvent pushes an event onto a user's notification channel.
// Publish failures are logged, never surfaced to the HTTP caller.
func (s *Server) publishUserEvent(ctx context.Context, userID uint, eventType string, payload interface{}) {
	data, err := json.Marshal(realtimeEvent{Type: eventType, Payload: payload})
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "marshal realtime event", "type", eventType, "error", err)
		return
	}
	if err := s.notifier.PublishUser(ctx, userID, string(data)); err != nil {
		middleware.Logger.ErrorContext(ctx, "publish realtime event", "type", eventType, "user_id", userID, "error", err)
	}
}
