package domain

import "time"

// AgentStatus is the lifecycle state of an agent runtime.
type AgentStatus string

const (
	AgentIdle     AgentStatus = "idle"
	AgentBusy     AgentStatus = "busy"
	AgentStopping AgentStatus = "stopping"
	AgentStopped  AgentStatus = "stopped"
	AgentError    AgentStatus = "error" // last task ended in UNEXPECTED_ERROR
)

// AgentState is a point-in-time snapshot of one runtime, exported for
// health/monitoring surfaces. The owning runtime is the only mutator of the
// underlying fields; callers always receive a copy.
type AgentState struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	Status                AgentStatus   `json:"status"`
	CurrentTasks          int           `json:"current_tasks"`
	CompletedTasks        int64         `json:"completed_tasks"`
	FailedTasks           int64         `json:"failed_tasks"`
	SuccessRate           float64       `json:"success_rate"`            // completed / (completed + failed); 0 before any terminal task
	AverageProcessingTime time.Duration `json:"average_processing_time"` // incremental mean over completed tasks
	BreakerOpen           bool          `json:"breaker_open"`
	BreakerOpenedAt       *time.Time    `json:"breaker_opened_at,omitempty"` // nil unless open
}
