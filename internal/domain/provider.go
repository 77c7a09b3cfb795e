package domain

import "context"

// AvailabilityChecker reports whether a provider can currently accept
// transfers. Concrete implementations (status pages, health probes) live
// outside the core.
type AvailabilityChecker interface {
	ProviderAvailable(ctx context.Context, providerID string) bool
}

// ComplianceChecker is the single boolean compliance gate for a route. The
// optional reasons are surfaced for audit logging only; scoring uses the
// boolean alone. There is deliberately no mechanism to clear a violation
// after detection.
type ComplianceChecker interface {
	CheckRoute(ctx context.Context, route CandidateRoute, from, to Country) (bool, []string)
}

// RateSource quotes the realized exchange rate for a currency pair as a
// fraction of mid-market (1.0 = no spread, 0.98 = 2% lost to conversion).
// The second return value is false when no rate is known for the pair;
// candidates that cannot be priced are skipped by discovery.
type RateSource interface {
	ExchangeRate(ctx context.Context, from, to Currency) (float64, bool)
}

// TransferExecutor is the capability interface implemented by each
// settlement strategy (mobile money, bank rails, blockchain bridge).
// Implementations must be async-safe: a genuinely blocking SDK hides behind
// a bounded worker pool inside the implementation.
type TransferExecutor interface {
	// Kind tags the settlement rail this executor serves; routes dispatch on
	// the kind of their first leg.
	Kind() ProviderKind
	// ValidateIntent rejects intents this strategy cannot settle
	// (unsupported currency, amount out of bounds). A non-nil error fails
	// the task without retry.
	ValidateIntent(intent PaymentIntent) error
	// Execute submits the transfer and returns the backend receipt.
	Execute(ctx context.Context, route CandidateRoute, intent PaymentIntent) (*TransferReceipt, error)
}
