// Package integration holds full-stack tests that wire real components
// end to end: seeded directory, discovery, scoring, selection, runtime and
// simulated settlement, with no mocked collaborator in between.
package integration

import (
	"context"
	"testing"
	"time"

	"remitroute/internal/domain"
)

// DefaultTimeout bounds one end-to-end payment flow.
const DefaultTimeout = 30 * time.Second

// NewTestContext creates a context with timeout for integration tests.
func NewTestContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// SkipIfShort skips integration tests in short mode.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// EastAfricaLinks returns the corridor fixture shared by the end-to-end
// tests: two direct KE->UG providers on different rails plus a UG-bound
// link from the AE hub.
func EastAfricaLinks() []domain.RouteLink {
	return []domain.RouteLink{
		{
			Provider: "mpesa", Kind: domain.ProviderMobileMoney,
			FromCountry: "KE", ToCountry: "UG",
			FromCurrency: "KES", ToCurrency: "UGX",
			Fee: 2.5, ExchangeRate: 0.98, DeliveryMinutes: 30, SuccessRate: 0.95,
		},
		{
			Provider: "equity", Kind: domain.ProviderBank,
			FromCountry: "KE", ToCountry: "UG",
			FromCurrency: "KES", ToCurrency: "UGX",
			Fee: 8, ExchangeRate: 0.995, DeliveryMinutes: 2880, SuccessRate: 0.99,
		},
		{
			Provider: "wise", Kind: domain.ProviderBank,
			FromCountry: "KE", ToCountry: "AE",
			FromCurrency: "KES", ToCurrency: "AED",
			Fee: 4, ExchangeRate: 0.99, DeliveryMinutes: 120, SuccessRate: 0.97,
		},
		{
			Provider: "lulu", Kind: domain.ProviderMobileMoney,
			FromCountry: "AE", ToCountry: "UG",
			FromCurrency: "AED", ToCurrency: "UGX",
			Fee: 3, ExchangeRate: 0.985, DeliveryMinutes: 60, SuccessRate: 0.93,
		},
	}
}

// KampalaIntent returns a KE->UG payment intent for amount.
func KampalaIntent(amount float64) domain.PaymentIntent {
	return domain.PaymentIntent{
		Amount: amount,
		Corridor: domain.Corridor{
			FromCountry: "KE", ToCountry: "UG",
			FromCurrency: "KES", ToCurrency: "UGX",
		},
	}
}
