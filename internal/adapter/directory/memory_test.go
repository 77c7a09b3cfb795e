package directory

import (
	"context"
	"errors"
	"testing"

	"remitroute/internal/domain"
)

func mkLink(provider string, from, to domain.Country, fromCur, toCur domain.Currency) domain.RouteLink {
	return domain.RouteLink{
		Provider:        provider,
		Kind:            domain.ProviderMobileMoney,
		FromCountry:     from,
		ToCountry:       to,
		FromCurrency:    fromCur,
		ToCurrency:      toCur,
		Fee:             2.5,
		ExchangeRate:    0.98,
		DeliveryMinutes: 30,
		SuccessRate:     0.95,
	}
}

func TestMemoryDirectory_DirectLinks(t *testing.T) {
	dir, err := NewMemoryDirectory(
		mkLink("mpesa", "KE", "UG", "KES", "UGX"),
		mkLink("airtel", "KE", "UG", "KES", "UGX"),
		mkLink("mpesa", "KE", "TZ", "KES", "TZS"),
	)
	if err != nil {
		t.Fatalf("NewMemoryDirectory: %v", err)
	}

	links, err := dir.DirectLinks(context.Background(), domain.Corridor{
		FromCountry: "KE", ToCountry: "UG", FromCurrency: "KES", ToCurrency: "UGX",
	})
	if err != nil {
		t.Fatalf("DirectLinks: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("DirectLinks returned %d links, want 2", len(links))
	}
	for _, l := range links {
		if l.ToCountry != "UG" {
			t.Errorf("link %q crosses to %q, want UG", l.Provider, l.ToCountry)
		}
	}
}

func TestMemoryDirectory_DirectLinksCurrencyMismatch(t *testing.T) {
	dir, err := NewMemoryDirectory(mkLink("wise", "KE", "UG", "USD", "UGX"))
	if err != nil {
		t.Fatalf("NewMemoryDirectory: %v", err)
	}

	links, err := dir.DirectLinks(context.Background(), domain.Corridor{
		FromCountry: "KE", ToCountry: "UG", FromCurrency: "KES", ToCurrency: "UGX",
	})
	if err != nil {
		t.Fatalf("DirectLinks: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("DirectLinks returned %d links, want 0 for currency mismatch", len(links))
	}
}

func TestMemoryDirectory_LinksFrom(t *testing.T) {
	dir, err := NewMemoryDirectory(
		mkLink("mpesa", "KE", "UG", "KES", "UGX"),
		mkLink("mpesa", "KE", "TZ", "KES", "TZS"),
		mkLink("wise", "KE", "AE", "USD", "AED"),
		mkLink("chipper", "NG", "KE", "NGN", "KES"),
	)
	if err != nil {
		t.Fatalf("NewMemoryDirectory: %v", err)
	}

	links, err := dir.LinksFrom(context.Background(), "KE", "KES")
	if err != nil {
		t.Fatalf("LinksFrom: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("LinksFrom returned %d links, want 2", len(links))
	}
	for _, l := range links {
		if l.FromCountry != "KE" || l.FromCurrency != "KES" {
			t.Errorf("link %q origin = %s/%s, want KE/KES", l.Provider, l.FromCountry, l.FromCurrency)
		}
	}
}

func TestMemoryDirectory_AddRejectsInvalidLink(t *testing.T) {
	dir, err := NewMemoryDirectory()
	if err != nil {
		t.Fatalf("NewMemoryDirectory: %v", err)
	}

	bad := mkLink("", "KE", "UG", "KES", "UGX")
	if err := dir.Add(bad); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("Add error = %v, want ErrInvalidInput", err)
	}
	if dir.Len() != 0 {
		t.Errorf("Len = %d after rejected add, want 0", dir.Len())
	}
}

func TestMemoryDirectory_NewRejectsInvalidSeed(t *testing.T) {
	bad := mkLink("mpesa", "KE", "UG", "KES", "UGX")
	bad.Fee = -1
	if _, err := NewMemoryDirectory(bad); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("NewMemoryDirectory error = %v, want ErrInvalidInput", err)
	}
}

func TestMemoryDirectory_Len(t *testing.T) {
	dir, err := NewMemoryDirectory(
		mkLink("mpesa", "KE", "UG", "KES", "UGX"),
		mkLink("airtel", "KE", "UG", "KES", "UGX"),
	)
	if err != nil {
		t.Fatalf("NewMemoryDirectory: %v", err)
	}
	if dir.Len() != 2 {
		t.Fatalf("Len = %d, want 2", dir.Len())
	}
	if err := dir.Add(mkLink("nala", "KE", "RW", "KES", "RWF")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if dir.Len() != 3 {
		t.Errorf("Len after add = %d, want 3", dir.Len())
	}
}
