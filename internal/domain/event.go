package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventTaskStarted   EventType = "task.started"
	EventTaskCompleted EventType = "task.completed"
	EventTaskFailed    EventType = "task.failed"
	EventTaskRejected  EventType = "task.rejected"
	EventTaskCancelled EventType = "task.cancelled"

	EventBreakerStateChange EventType = "breaker.state_change"

	EventRouteSelected  EventType = "route.selected"
	EventCacheRefreshed EventType = "cache.refreshed"

	EventTransferExecuted EventType = "transfer.executed"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	AgentID   string          `json:"agent_id,omitempty"`
	IntentID  string          `json:"intent_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for domain events.
// An external message-bus bridge would subscribe here; the core only ever
// publishes in-process.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type, or for every
	// event when eventType is empty. Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}

// TaskEventPayload describes a task lifecycle event.
type TaskEventPayload struct {
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status,omitempty"`
	ErrorCode ErrorCode `json:"error_code,omitempty"`
	Attempts  int       `json:"attempts,omitempty"`
}

// BreakerEventPayload describes a circuit breaker transition.
type BreakerEventPayload struct {
	Breaker string `json:"breaker"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// RouteEventPayload describes a completed route selection.
type RouteEventPayload struct {
	RouteID        string  `json:"route_id"`
	Provider       string  `json:"provider"`
	TotalScore     float64 `json:"total_score"`
	CacheHit       bool    `json:"cache_hit"`
	CandidateCount int     `json:"candidate_count"`
}
