package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"remitroute/internal/domain"
	"remitroute/internal/infra/tracer"
)

// Retry loop constants.
const (
	defaultRetryDelayBase = 500 * time.Millisecond
	maxRetryDelay         = 10 * time.Second
)

// WorkFunc is one unit of routing or settlement work executed under the
// runtime's policy. The returned payload lands on TaskResult.Payload.
type WorkFunc func(ctx context.Context, intent domain.PaymentIntent) (any, error)

// RuntimePolicy bounds a runtime's concurrency, retries and circuit breaker.
type RuntimePolicy struct {
	MaxConcurrentTasks int
	RetryAttempts      int
	RetryDelayBase     time.Duration
	TaskTimeout        time.Duration
	BreakerEnabled     bool
	BreakerThreshold   uint32
	BreakerTimeout     time.Duration
}

// RuntimeDeps holds injected dependencies for a runtime.
type RuntimeDeps struct {
	Logger    *slog.Logger
	Bus       domain.EventBus // optional, nil = no events
	Clock     Clock           // optional, nil = wall clock
	Validator func(ctx context.Context, intent domain.PaymentIntent) error // optional pre-flight check
}

// AgentRuntime wraps units of work with validation, bounded concurrency,
// retry-with-backoff and a per-instance circuit breaker. It tracks running
// success and latency statistics for the health report.
type AgentRuntime struct {
	id     string
	name   string
	policy RuntimePolicy
	deps   RuntimeDeps
	clock  Clock

	slots   *semaphore.Weighted
	breaker *gobreaker.CircuitBreaker[any]

	mu            sync.Mutex
	status        domain.AgentStatus
	runCtx        context.Context
	cancelRun     context.CancelFunc
	wg            sync.WaitGroup
	current       int64
	completed     int64
	failed        int64
	avgProcessing time.Duration
	openedAt      *time.Time
}

// NewAgentRuntime creates a runtime with the given policy. Zero policy
// fields fall back to production defaults.
func NewAgentRuntime(name string, policy RuntimePolicy, deps RuntimeDeps) *AgentRuntime {
	if policy.MaxConcurrentTasks <= 0 {
		policy.MaxConcurrentTasks = 8
	}
	if policy.RetryAttempts < 0 {
		policy.RetryAttempts = 0
	}
	if policy.RetryDelayBase <= 0 {
		policy.RetryDelayBase = defaultRetryDelayBase
	}
	if policy.TaskTimeout <= 0 {
		policy.TaskTimeout = 30 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r := &AgentRuntime{
		id:        newID(),
		name:      name,
		policy:    policy,
		deps:      deps,
		clock:     deps.Clock,
		slots:     semaphore.NewWeighted(int64(policy.MaxConcurrentTasks)),
		status:    domain.AgentIdle,
		runCtx:    runCtx,
		cancelRun: cancel,
	}

	if policy.BreakerEnabled {
		threshold := policy.BreakerThreshold
		if threshold == 0 {
			threshold = 5
		}
		timeout := policy.BreakerTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		r.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        "runtime:" + name,
			MaxRequests: 1, // allow 1 probe in half-open state
			Interval:    0, // consecutive failures only reset on success
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(bname string, from, to gobreaker.State) {
				deps.Logger.Warn("circuit breaker state change",
					"breaker", bname,
					"from", from.String(),
					"to", to.String(),
				)
				r.mu.Lock()
				switch to {
				case gobreaker.StateOpen:
					now := r.clock.Now()
					r.openedAt = &now
				case gobreaker.StateClosed:
					r.openedAt = nil
				}
				r.mu.Unlock()
				publishEvent(deps.Bus, context.Background(), domain.EventBreakerStateChange, r.id, "",
					domain.BreakerEventPayload{Breaker: bname, From: from.String(), To: to.String()})
			},
			IsSuccessful: func(err error) bool {
				if err == nil {
					return true
				}
				// Invalid intents and empty candidate sets are business
				// outcomes, not provider failures; they never trip the
				// breaker. Neither does cooperative cancellation.
				if domain.IsStructural(err) {
					return true
				}
				return errors.Is(err, context.Canceled)
			},
		})
	}

	return r
}

// ID returns the runtime's unique identifier.
func (r *AgentRuntime) ID() string { return r.id }

// SetValidator installs the pre-flight intent check. Must be called before
// the first task is submitted.
func (r *AgentRuntime) SetValidator(v func(ctx context.Context, intent domain.PaymentIntent) error) {
	r.deps.Validator = v
}

// Name returns the runtime's configured name.
func (r *AgentRuntime) Name() string { return r.name }

// RunWithPolicy executes work under the runtime's full policy: breaker
// gate, concurrency slot, validation hook, bounded retry with exponential
// backoff and per-task timeout. Every path folds into a TaskResult; the
// method itself never returns an error.
func (r *AgentRuntime) RunWithPolicy(ctx context.Context, intent domain.PaymentIntent, work WorkFunc) (res domain.TaskResult) {
	taskID := newID()

	r.mu.Lock()
	if r.status == domain.AgentStopping || r.status == domain.AgentStopped {
		r.mu.Unlock()
		return domain.TaskResult{
			TaskID:   taskID,
			IntentID: intent.ID,
			Status:   domain.TaskCancelled,
			Message:  "runtime is stopped",
		}
	}
	r.wg.Add(1)
	r.current++
	r.status = domain.AgentBusy
	runCtx := r.runCtx
	r.mu.Unlock()

	ctx, span := tracer.StartSpan(ctx, "runtime.run_task",
		trace.WithAttributes(
			tracer.StringAttr("runtime", r.name),
			tracer.StringAttr("intent", intent.ID),
		),
	)
	defer span.End()

	startedAt := r.clock.Now()
	publishEvent(r.deps.Bus, ctx, domain.EventTaskStarted, r.id, intent.ID,
		domain.TaskEventPayload{TaskID: taskID})

	defer func() {
		if rec := recover(); rec != nil {
			res = domain.TaskResult{
				TaskID:    taskID,
				IntentID:  intent.ID,
				Status:    domain.TaskFailed,
				ErrorCode: domain.CodeUnexpected,
				Message:   fmt.Sprintf("unexpected error: %v", rec),
			}
		}
		res.Duration = r.clock.Now().Sub(startedAt)
		if res.Success {
			tracer.SetOK(span)
		} else {
			span.SetAttributes(
				tracer.StringAttr("status", string(res.Status)),
				tracer.StringAttr("error_code", string(res.ErrorCode)),
			)
		}
		r.finalize(ctx, res)
	}()

	// Per-task timeout; Stop() cancels through the same context.
	tctx, cancel := context.WithTimeout(ctx, r.policy.TaskTimeout)
	defer cancel()
	stopWatch := context.AfterFunc(runCtx, cancel)
	defer stopWatch()

	var attempts int
	body := func() (any, error) {
		payload, n, err := r.runTask(tctx, intent, work)
		attempts = n
		return payload, err
	}

	var payload any
	var err error
	if r.breaker != nil {
		payload, err = r.breaker.Execute(body)
	} else {
		payload, err = body()
	}

	res = r.buildResult(taskID, intent, payload, attempts, err)
	return res
}

// runTask is the breaker-guarded task body: slot, validation, retry loop.
func (r *AgentRuntime) runTask(ctx context.Context, intent domain.PaymentIntent, work WorkFunc) (any, int, error) {
	if err := r.slots.Acquire(ctx, 1); err != nil {
		return nil, 0, err
	}
	defer r.slots.Release(1)

	if r.deps.Validator != nil {
		if err := r.deps.Validator(ctx, intent); err != nil {
			return nil, 0, domain.NewDomainError("runtime.validate", domain.ErrValidationFailed, err.Error())
		}
	}

	var lastErr error
	for attempt := 0; attempt <= r.policy.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBackoff(r.policy.RetryDelayBase, attempt)
			r.deps.Logger.Info("retrying task after error",
				"runtime", r.name, "intent", intent.ID,
				"attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-r.clock.After(delay):
			case <-ctx.Done():
				return nil, attempt, ctx.Err()
			}
		}

		payload, err := invoke(ctx, intent, work)
		if err == nil {
			return payload, attempt + 1, nil
		}
		lastErr = err

		// Structural outcomes fail fast; the retry budget is for
		// transient provider trouble only.
		if domain.IsStructural(err) {
			return nil, attempt + 1, err
		}
		if ctx.Err() != nil {
			return nil, attempt + 1, ctx.Err()
		}
	}

	return nil, r.policy.RetryAttempts + 1,
		domain.NewDomainError("runtime.run", domain.ErrRetryExhausted, lastErr.Error())
}

// invoke runs work with panic containment. A panicking attempt counts as a
// failed attempt and is retried like any other error.
func invoke(ctx context.Context, intent domain.PaymentIntent, work WorkFunc) (payload any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panic: %v", rec)
		}
	}()
	return work(ctx, intent)
}

// buildResult normalizes the task outcome into a TaskResult.
func (r *AgentRuntime) buildResult(taskID string, intent domain.PaymentIntent, payload any, attempts int, err error) domain.TaskResult {
	res := domain.TaskResult{TaskID: taskID, IntentID: intent.ID, Attempts: attempts}

	switch {
	case err == nil:
		res.Success = true
		res.Status = domain.TaskCompleted
		res.Payload = payload
		res.Message = "completed"
	case err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests:
		res.Status = domain.TaskRejected
		res.ErrorCode = domain.CodeCircuitOpen
		res.Message = "circuit breaker open, task not invoked"
	case errors.Is(err, context.Canceled):
		res.Status = domain.TaskCancelled
		res.Message = "task cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		res.Status = domain.TaskFailed
		res.ErrorCode = domain.CodeRetryExhausted
		res.Message = "task timeout exceeded"
	default:
		code := domain.ErrorCodeOf(err)
		if code == domain.CodeUnknown {
			code = domain.CodeUnexpected
		}
		res.ErrorCode = code
		res.Message = err.Error()
		if code == domain.CodeValidationFailed {
			res.Status = domain.TaskRejected
		} else {
			res.Status = domain.TaskFailed
		}
	}

	return res
}

// finalize applies stats and status transitions for a terminal result and
// publishes the matching lifecycle event. Stats are updated only here, after
// the task's terminal outcome is known.
func (r *AgentRuntime) finalize(ctx context.Context, res domain.TaskResult) {
	r.mu.Lock()
	r.current--
	switch res.Status {
	case domain.TaskCompleted:
		r.completed++
		r.avgProcessing += (res.Duration - r.avgProcessing) / time.Duration(r.completed)
	case domain.TaskFailed:
		r.failed++
	}
	switch {
	case r.status == domain.AgentStopping || r.status == domain.AgentStopped:
		// shutdown status wins
	case res.ErrorCode == domain.CodeUnexpected:
		r.status = domain.AgentError
	case r.current == 0:
		r.status = domain.AgentIdle
	}
	r.mu.Unlock()
	r.wg.Done()

	publishEvent(r.deps.Bus, ctx, taskEvent(res.Status), r.id, res.IntentID, domain.TaskEventPayload{
		TaskID:    res.TaskID,
		Status:    string(res.Status),
		ErrorCode: res.ErrorCode,
		Attempts:  res.Attempts,
	})
}

func taskEvent(status domain.TaskStatus) domain.EventType {
	switch status {
	case domain.TaskCompleted:
		return domain.EventTaskCompleted
	case domain.TaskRejected:
		return domain.EventTaskRejected
	case domain.TaskCancelled:
		return domain.EventTaskCancelled
	default:
		return domain.EventTaskFailed
	}
}

// Stop flips the runtime to stopping, cancels in-flight tasks cooperatively
// and waits for them to acknowledge. Breaker and stats state survive a
// stop/start cycle; only a process restart resets them.
func (r *AgentRuntime) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.status == domain.AgentStopped || r.status == domain.AgentStopping {
		r.mu.Unlock()
		return nil
	}
	r.status = domain.AgentStopping
	cancel := r.cancelRun
	r.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.mu.Lock()
	r.status = domain.AgentStopped
	r.mu.Unlock()
	r.deps.Logger.Info("runtime stopped", "runtime", r.name)
	return nil
}

// Start returns a stopped runtime to service.
func (r *AgentRuntime) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != domain.AgentStopped {
		return
	}
	r.runCtx, r.cancelRun = context.WithCancel(context.Background())
	r.status = domain.AgentIdle
}

// Snapshot returns a point-in-time view of the runtime's state and stats.
func (r *AgentRuntime) Snapshot() domain.AgentState {
	r.mu.Lock()
	defer r.mu.Unlock()

	var successRate float64
	if total := r.completed + r.failed; total > 0 {
		successRate = float64(r.completed) / float64(total)
	}

	state := domain.AgentState{
		ID:                    r.id,
		Name:                  r.name,
		Status:                r.status,
		CurrentTasks:          int(r.current),
		CompletedTasks:        r.completed,
		FailedTasks:           r.failed,
		SuccessRate:           successRate,
		AverageProcessingTime: r.avgProcessing,
	}
	if r.breaker != nil {
		state.BreakerOpen = r.breaker.State() == gobreaker.StateOpen
		if r.openedAt != nil {
			t := *r.openedAt
			state.BreakerOpenedAt = &t
		}
	}
	return state
}

// BreakerState exposes the circuit breaker state for monitoring. Returns
// StateClosed when the breaker is disabled.
func (r *AgentRuntime) BreakerState() gobreaker.State {
	if r.breaker == nil {
		return gobreaker.StateClosed
	}
	return r.breaker.State()
}

// retryBackoff computes exponential backoff with jitter for attempt >= 1.
func retryBackoff(base time.Duration, attempt int) time.Duration {
	delay := base * time.Duration(1<<uint(attempt-1))
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	// Add 0-25% jitter.
	jitter := time.Duration(rand.Int63n(int64(delay/4) + 1))
	return delay + jitter
}

// newID generates a ULID for task and runtime identifiers.
func newID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
