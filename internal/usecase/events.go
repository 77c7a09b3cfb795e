package usecase

import (
	"context"
	"encoding/json"
	"time"

	"remitroute/internal/domain"
)

// publishEvent is the shared event publishing helper for the usecase layer.
// If bus is nil, this is a no-op.
func publishEvent(bus domain.EventBus, ctx context.Context, eventType domain.EventType, agentID, intentID string, payload any) {
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
		AgentID:   agentID,
		IntentID:  intentID,
		Payload:   raw,
	})
}
