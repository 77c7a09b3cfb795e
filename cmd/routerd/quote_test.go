package main

import (
	"path/filepath"
	"testing"
)

func TestParseQuoteFlags_SpaceForm(t *testing.T) {
	flags, err := parseQuoteFlags([]string{
		"--amount", "500",
		"--from", "KE", "--to", "UG",
		"--from-currency", "KES", "--to-currency", "UGX",
		"--prioritize", "cost,speed",
		"--max-fee", "12.5",
		"--provider", "mpesa",
	})
	if err != nil {
		t.Fatalf("parseQuoteFlags: %v", err)
	}
	if flags.Amount != 500 {
		t.Errorf("Amount = %v, want 500", flags.Amount)
	}
	if flags.From != "KE" || flags.To != "UG" {
		t.Errorf("corridor = %s->%s, want KE->UG", flags.From, flags.To)
	}
	if flags.FromCurrency != "KES" || flags.ToCurrency != "UGX" {
		t.Errorf("currencies = %s->%s, want KES->UGX", flags.FromCurrency, flags.ToCurrency)
	}
	if flags.Prioritize != "cost,speed" {
		t.Errorf("Prioritize = %q, want cost,speed", flags.Prioritize)
	}
	if flags.MaxFee != 12.5 {
		t.Errorf("MaxFee = %v, want 12.5", flags.MaxFee)
	}
	if flags.Provider != "mpesa" {
		t.Errorf("Provider = %q, want mpesa", flags.Provider)
	}
}

func TestParseQuoteFlags_EqualsForm(t *testing.T) {
	flags, err := parseQuoteFlags([]string{
		"--amount=1200",
		"--from=NG", "--to=GH",
		"--from-currency=NGN", "--to-currency=GHS",
		"--max-delivery-minutes=120",
	})
	if err != nil {
		t.Fatalf("parseQuoteFlags: %v", err)
	}
	if flags.Amount != 1200 {
		t.Errorf("Amount = %v, want 1200", flags.Amount)
	}
	if flags.From != "NG" || flags.To != "GH" {
		t.Errorf("corridor = %s->%s, want NG->GH", flags.From, flags.To)
	}
	if flags.MaxDelivery != 120 {
		t.Errorf("MaxDelivery = %v, want 120", flags.MaxDelivery)
	}
}

func TestParseQuoteFlags_SkipsConfig(t *testing.T) {
	flags, err := parseQuoteFlags([]string{
		"--config", "/etc/routerd.yaml",
		"--amount", "50",
		"--config=/other.yaml",
	})
	if err != nil {
		t.Fatalf("parseQuoteFlags: %v", err)
	}
	if flags.Amount != 50 {
		t.Errorf("Amount = %v, want 50", flags.Amount)
	}
}

func TestParseQuoteFlags_UnknownFlag(t *testing.T) {
	if _, err := parseQuoteFlags([]string{"--bogus", "1"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestParseQuoteFlags_BadNumber(t *testing.T) {
	if _, err := parseQuoteFlags([]string{"--amount", "lots"}); err == nil {
		t.Fatal("expected error for non-numeric amount")
	}
}

func TestBuildIntent_FromFlags(t *testing.T) {
	intent, err := buildIntent(quoteFlags{
		Amount:       500,
		From:         "ke", To: "ug",
		FromCurrency: "kes", ToCurrency: "ugx",
		Prioritize:   "Speed, reliability",
		MaxFee:       10,
		MaxDelivery:  90,
		Provider:     "mpesa",
	})
	if err != nil {
		t.Fatalf("buildIntent: %v", err)
	}
	if intent.Amount != 500 {
		t.Errorf("Amount = %v, want 500", intent.Amount)
	}
	// Codes pass through as given; the agent normalizes case.
	if intent.Corridor.FromCountry != "ke" || intent.Corridor.ToCountry != "ug" {
		t.Errorf("corridor = %s->%s, want ke->ug", intent.Corridor.FromCountry, intent.Corridor.ToCountry)
	}
	if intent.Preferences.PrioritizeCost {
		t.Error("PrioritizeCost = true, want false")
	}
	if !intent.Preferences.PrioritizeSpeed || !intent.Preferences.PrioritizeReliability {
		t.Error("expected speed and reliability prioritized")
	}
	if intent.Preferences.MaxFee != 10 || intent.Preferences.MaxDeliveryMinutes != 90 {
		t.Errorf("limits = (%v, %v), want (10, 90)", intent.Preferences.MaxFee, intent.Preferences.MaxDeliveryMinutes)
	}
	if intent.Preferences.PreferredProvider != "mpesa" {
		t.Errorf("PreferredProvider = %q, want mpesa", intent.Preferences.PreferredProvider)
	}
}

func TestBuildIntent_UnknownPriority(t *testing.T) {
	_, err := buildIntent(quoteFlags{Prioritize: "cost,cheapness"})
	if err == nil {
		t.Fatal("expected error for unknown prioritize dimension")
	}
}

func TestBuildIntent_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intent.json")
	writeTestFile(t, path, `{
		"id": "pay-42",
		"amount": 750,
		"corridor": {
			"from_country": "KE", "to_country": "UG",
			"from_currency": "KES", "to_currency": "UGX"
		},
		"preferences": {"prioritize_cost": true, "max_fee": 20}
	}`)

	intent, err := buildIntent(quoteFlags{IntentPath: path})
	if err != nil {
		t.Fatalf("buildIntent: %v", err)
	}
	if intent.ID != "pay-42" {
		t.Errorf("ID = %q, want pay-42", intent.ID)
	}
	if intent.Amount != 750 {
		t.Errorf("Amount = %v, want 750", intent.Amount)
	}
	if intent.Corridor.FromCountry != "KE" {
		t.Errorf("FromCountry = %s, want KE", intent.Corridor.FromCountry)
	}
	if !intent.Preferences.PrioritizeCost || intent.Preferences.MaxFee != 20 {
		t.Errorf("preferences not decoded: %+v", intent.Preferences)
	}
}

func TestBuildIntent_FileMissing(t *testing.T) {
	_, err := buildIntent(quoteFlags{IntentPath: filepath.Join(t.TempDir(), "absent.json")})
	if err == nil {
		t.Fatal("expected error for missing intent file")
	}
}

func TestBuildIntent_FileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intent.json")
	writeTestFile(t, path, `{broken`)

	_, err := buildIntent(quoteFlags{IntentPath: path})
	if err == nil {
		t.Fatal("expected error for invalid intent JSON")
	}
}
