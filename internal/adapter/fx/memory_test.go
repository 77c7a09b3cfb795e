package fx

import (
	"context"
	"testing"
)

func TestMemoryRateSource_SetAndLookup(t *testing.T) {
	src := NewMemoryRateSource()
	src.SetRate("KES", "UGX", 0.97)
	ctx := context.Background()

	rate, ok := src.ExchangeRate(ctx, "KES", "UGX")
	if !ok {
		t.Fatal("ExchangeRate ok = false for loaded pair")
	}
	if rate != 0.97 {
		t.Errorf("rate = %v, want 0.97", rate)
	}
}

func TestMemoryRateSource_UnknownPair(t *testing.T) {
	src := NewMemoryRateSource()
	src.SetRate("KES", "UGX", 0.97)

	if _, ok := src.ExchangeRate(context.Background(), "NGN", "GHS"); ok {
		t.Fatal("ExchangeRate ok = true for unknown pair")
	}
}

func TestMemoryRateSource_Directional(t *testing.T) {
	src := NewMemoryRateSource()
	src.SetRate("KES", "UGX", 0.97)

	if _, ok := src.ExchangeRate(context.Background(), "UGX", "KES"); ok {
		t.Fatal("reverse direction resolved, want miss")
	}
}

func TestMemoryRateSource_SameCurrency(t *testing.T) {
	src := NewMemoryRateSource()

	rate, ok := src.ExchangeRate(context.Background(), "KES", "KES")
	if !ok || rate != 1.0 {
		t.Fatalf("same-currency rate = (%v, %v), want (1.0, true)", rate, ok)
	}
	rate, ok = src.ExchangeRate(context.Background(), "kes", "KES")
	if !ok || rate != 1.0 {
		t.Fatalf("case-folded same-currency rate = (%v, %v), want (1.0, true)", rate, ok)
	}
}

func TestMemoryRateSource_CaseInsensitiveKeys(t *testing.T) {
	src := NewMemoryRateSource()
	src.SetRate("kes", "ugx", 0.96)

	rate, ok := src.ExchangeRate(context.Background(), "KES", "UGX")
	if !ok || rate != 0.96 {
		t.Fatalf("rate = (%v, %v), want (0.96, true)", rate, ok)
	}
}

func TestMemoryRateSource_NonPositiveRateRemovesPair(t *testing.T) {
	src := NewMemoryRateSource()
	src.SetRate("KES", "UGX", 0.97)
	src.SetRate("KES", "UGX", 0)

	if _, ok := src.ExchangeRate(context.Background(), "KES", "UGX"); ok {
		t.Fatal("pair still resolves after removal")
	}
	if src.Len() != 0 {
		t.Errorf("Len = %d, want 0", src.Len())
	}
}

func TestMemoryRateSource_Overwrite(t *testing.T) {
	src := NewMemoryRateSource()
	src.SetRate("KES", "UGX", 0.97)
	src.SetRate("KES", "UGX", 0.95)

	rate, _ := src.ExchangeRate(context.Background(), "KES", "UGX")
	if rate != 0.95 {
		t.Errorf("rate = %v after overwrite, want 0.95", rate)
	}
	if src.Len() != 1 {
		t.Errorf("Len = %d, want 1", src.Len())
	}
}
