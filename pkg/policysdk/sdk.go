// Package policysdk provides types for building remitroute selection
// policies and for embedding the router.
//
// NOTE: This package re-exports internal/domain via type aliases. It is
// usable by integrations that live inside the remitroute module (in-tree
// policies, trainers, tooling). External authors targeting the WASM policy
// backend do not need these types at all: the guest contract in
// pkg/policysdk/wasm is a plain numeric ABI.
package policysdk

import (
	"remitroute/internal/domain"
)

// Re-exported domain types for policy and integration authors.
type (
	PaymentIntent           = domain.PaymentIntent
	PaymentPreferences      = domain.PaymentPreferences
	Corridor                = domain.Corridor
	Country                 = domain.Country
	Currency                = domain.Currency
	RouteLink               = domain.RouteLink
	CandidateRoute          = domain.CandidateRoute
	ScoredRoute             = domain.ScoredRoute
	RouteOptimizationResult = domain.RouteOptimizationResult
	TaskResult              = domain.TaskResult
	TaskStatus              = domain.TaskStatus
	ErrorCode               = domain.ErrorCode
	ProviderKind            = domain.ProviderKind
	AgentState              = domain.AgentState
)

// Re-exported provider kind constants.
const (
	KindMobileMoney = domain.ProviderMobileMoney
	KindBank        = domain.ProviderBank
	KindBridge      = domain.ProviderBridge
)

// Re-exported error codes surfaced on TaskResult.
const (
	CodeValidationFailed  = domain.CodeValidationFailed
	CodeCircuitOpen       = domain.CodeCircuitOpen
	CodeRetryExhausted    = domain.CodeRetryExhausted
	CodeNoRouteAvailable  = domain.CodeNoRouteAvailable
	CodeRouteOptimization = domain.CodeRouteOptimization
	CodeUnexpected        = domain.CodeUnexpected
)

// ErrorCodeOf resolves the machine-parseable code for an error returned by
// the router.
func ErrorCodeOf(err error) ErrorCode {
	return domain.ErrorCodeOf(err)
}
