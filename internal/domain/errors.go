package domain

import (
	"errors"
	"fmt"
)

// Category sentinels shared across subsystems.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrDuplicate    = fmt.Errorf("duplicate")
	ErrTimeout      = fmt.Errorf("operation timed out")
	ErrUnavailable  = fmt.Errorf("unavailable")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrProvider     = fmt.Errorf("provider error")
)

// Sentinel errors for the payment routing core. Each maps to exactly one
// ErrorCode carried on the TaskResult returned to callers.
var (
	ErrValidationFailed  = fmt.Errorf("intent validation failed")
	ErrCircuitOpen       = fmt.Errorf("circuit breaker open")
	ErrRetryExhausted    = fmt.Errorf("retry attempts exhausted")
	ErrNoRouteAvailable  = fmt.Errorf("no route available")
	ErrRouteOptimization = fmt.Errorf("route optimization failed")
	ErrUnexpected        = fmt.Errorf("unexpected error")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "runtime.run")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsStructural reports whether err is a structural outcome that must fail
// fast: no retry budget is consumed and the circuit breaker does not count
// it as a provider failure. Covers invalid intents and empty candidate sets;
// transient provider failures are not structural and go through the retry
// path.
func IsStructural(err error) bool {
	return errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrNoRouteAvailable)
}

// ErrorCode is a machine-parseable error category for callers and monitoring.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	CodeCircuitOpen       ErrorCode = "CIRCUIT_BREAKER_OPEN"
	CodeRetryExhausted    ErrorCode = "RETRY_EXHAUSTED"
	CodeNoRouteAvailable  ErrorCode = "NO_ROUTE_AVAILABLE"
	CodeRouteOptimization ErrorCode = "ROUTE_OPTIMIZATION_ERROR"
	CodeUnexpected        ErrorCode = "UNEXPECTED_ERROR"

	// Category codes, used for internal logging only; TaskResult surfaces the
	// taxonomy above.
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeDuplicate    ErrorCode = "DUPLICATE"
	CodeTimeout      ErrorCode = "TIMEOUT"
	CodeUnavailable  ErrorCode = "UNAVAILABLE"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeProvider     ErrorCode = "PROVIDER_ERROR"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrValidationFailed:  CodeValidationFailed,
	ErrCircuitOpen:       CodeCircuitOpen,
	ErrRetryExhausted:    CodeRetryExhausted,
	ErrNoRouteAvailable:  CodeNoRouteAvailable,
	ErrRouteOptimization: CodeRouteOptimization,
	ErrUnexpected:        CodeUnexpected,

	ErrNotFound:     CodeNotFound,
	ErrDuplicate:    CodeDuplicate,
	ErrTimeout:      CodeTimeout,
	ErrUnavailable:  CodeUnavailable,
	ErrInvalidInput: CodeInvalidInput,
	ErrProvider:     CodeProvider,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and walks the chain with errors.Is.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
