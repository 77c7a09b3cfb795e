package domain

import "time"

// TaskStatus is the terminal disposition of one runtime task.
type TaskStatus string

const (
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskRejected  TaskStatus = "rejected"  // breaker open or runtime stopped; work never invoked
	TaskCancelled TaskStatus = "cancelled" // caller or runtime stop() cancelled the task
)

// TaskResult is the single normalized outcome of a runtime task. Every path
// through the runtime, success or failure, folds into one of these.
type TaskResult struct {
	TaskID    string        `json:"task_id"`
	IntentID  string        `json:"intent_id,omitempty"`
	Success   bool          `json:"success"`
	Status    TaskStatus    `json:"status"`
	ErrorCode ErrorCode     `json:"error_code,omitempty"` // empty on success and on cancellation
	Message   string        `json:"message,omitempty"`
	Payload   any           `json:"payload,omitempty"` // e.g. *TransferReceipt
	Attempts  int           `json:"attempts"`           // work invocations, 0 when never invoked
	Duration  time.Duration `json:"duration"`
}

// TransferReceipt is the settlement backend's answer to executeTransfer.
type TransferReceipt struct {
	Handle    string `json:"handle"`   // backend transfer handle
	Provider  string `json:"provider"` // provider that accepted the transfer
	Finalized bool   `json:"finalized"`
}
