package routing

import (
	"context"
	"encoding/json"
	"time"

	"remitroute/internal/domain"
)

// publishEvent is the event publishing helper for the routing engine.
// If bus is nil, this is a no-op.
func publishEvent(bus domain.EventBus, ctx context.Context, eventType domain.EventType, intentID string, payload any) {
	if bus == nil {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err == nil {
			raw = data
		}
	}
	bus.Publish(ctx, domain.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		IntentID:  intentID,
		Payload:   raw,
	})
}
