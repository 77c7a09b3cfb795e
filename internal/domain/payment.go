package domain

import (
	"fmt"
	"strings"
	"time"
)

// Country is an ISO 3166-1 alpha-2 country code, e.g. "KE".
type Country string

// Currency is an ISO 4217 currency code, e.g. "KES".
type Currency string

// Corridor identifies a payment path's endpoints: ordered country pair plus
// the currency on each side.
type Corridor struct {
	FromCountry  Country  `json:"from_country" yaml:"from_country"`
	ToCountry    Country  `json:"to_country" yaml:"to_country"`
	FromCurrency Currency `json:"from_currency" yaml:"from_currency"`
	ToCurrency   Currency `json:"to_currency" yaml:"to_currency"`
}

// Key returns the canonical cache/lookup key for the corridor,
// e.g. "KE:UG:KES:UGX".
func (c Corridor) Key() string {
	return fmt.Sprintf("%s:%s:%s:%s", c.FromCountry, c.ToCountry, c.FromCurrency, c.ToCurrency)
}

func (c Corridor) String() string { return c.Key() }

// Validate checks that all four corridor fields are present.
func (c Corridor) Validate() error {
	if c.FromCountry == "" || c.ToCountry == "" {
		return fmt.Errorf("%w: corridor countries must be set", ErrInvalidInput)
	}
	if c.FromCurrency == "" || c.ToCurrency == "" {
		return fmt.Errorf("%w: corridor currencies must be set", ErrInvalidInput)
	}
	return nil
}

// PaymentPreferences carries the request-level routing preferences.
// The prioritize flags bias scoring weights; the remaining fields act as
// best-effort selection filters, not hard constraints.
type PaymentPreferences struct {
	PrioritizeCost        bool    `json:"prioritize_cost,omitempty" yaml:"prioritize_cost,omitempty"`
	PrioritizeSpeed       bool    `json:"prioritize_speed,omitempty" yaml:"prioritize_speed,omitempty"`
	PrioritizeReliability bool    `json:"prioritize_reliability,omitempty" yaml:"prioritize_reliability,omitempty"`
	MaxDeliveryMinutes    float64 `json:"max_delivery_minutes,omitempty" yaml:"max_delivery_minutes,omitempty"` // 0 = unset
	MaxFee                float64 `json:"max_fee,omitempty" yaml:"max_fee,omitempty"`                           // 0 = unset
	PreferredProvider     string  `json:"preferred_provider,omitempty" yaml:"preferred_provider,omitempty"`    // "" = unset
}

// PaymentIntent is a request to move Amount across Corridor. Immutable once
// submitted to a runtime for a given attempt.
type PaymentIntent struct {
	ID          string             `json:"id"`
	Amount      float64            `json:"amount"` // in source currency units
	Corridor    Corridor           `json:"corridor"`
	Preferences PaymentPreferences `json:"preferences"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Validate checks structural correctness of the intent. It does not consult
// any external collaborator.
func (p PaymentIntent) Validate() error {
	if p.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %v", ErrInvalidInput, p.Amount)
	}
	if err := p.Corridor.Validate(); err != nil {
		return err
	}
	if p.Preferences.MaxDeliveryMinutes < 0 {
		return fmt.Errorf("%w: max_delivery_minutes must not be negative", ErrInvalidInput)
	}
	if p.Preferences.MaxFee < 0 {
		return fmt.Errorf("%w: max_fee must not be negative", ErrInvalidInput)
	}
	return nil
}

// NormalizeCodes uppercases country and currency codes in place-style and
// returns the updated intent. Lookups and cache keys are case-sensitive.
func (p PaymentIntent) NormalizeCodes() PaymentIntent {
	p.Corridor.FromCountry = Country(strings.ToUpper(string(p.Corridor.FromCountry)))
	p.Corridor.ToCountry = Country(strings.ToUpper(string(p.Corridor.ToCountry)))
	p.Corridor.FromCurrency = Currency(strings.ToUpper(string(p.Corridor.FromCurrency)))
	p.Corridor.ToCurrency = Currency(strings.ToUpper(string(p.Corridor.ToCurrency)))
	return p
}
