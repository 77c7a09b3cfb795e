package compliance

import (
	"context"
	"strings"
	"testing"

	"remitroute/internal/domain"
)

func route(providers ...string) domain.CandidateRoute {
	return domain.CandidateRoute{
		ID:        strings.Join(providers, ">") + "@KE:UG:KES:UGX",
		Providers: providers,
		Hops:      len(providers),
	}
}

func TestStaticChecker_CleanRoutePasses(t *testing.T) {
	c := NewStaticChecker(DenyLists{
		Countries: []string{"KP"},
		Corridors: []string{"RU:KP"},
		Providers: []string{"shadybank"},
	})

	ok, reasons := c.CheckRoute(context.Background(), route("mpesa"), "KE", "UG")
	if !ok {
		t.Fatalf("clean route blocked: %v", reasons)
	}
	if len(reasons) != 0 {
		t.Errorf("reasons = %v, want none", reasons)
	}
}

func TestStaticChecker_BlockedOriginCountry(t *testing.T) {
	c := NewStaticChecker(DenyLists{Countries: []string{"KP"}})

	ok, reasons := c.CheckRoute(context.Background(), route("mpesa"), "KP", "UG")
	if ok {
		t.Fatal("route from blocked country passed")
	}
	if len(reasons) != 1 || !strings.Contains(reasons[0], "origin country KP") {
		t.Errorf("reasons = %v", reasons)
	}
}

func TestStaticChecker_BlockedDestinationCountry(t *testing.T) {
	c := NewStaticChecker(DenyLists{Countries: []string{"KP"}})

	ok, reasons := c.CheckRoute(context.Background(), route("mpesa"), "KE", "KP")
	if ok {
		t.Fatal("route to blocked country passed")
	}
	if len(reasons) != 1 || !strings.Contains(reasons[0], "destination country KP") {
		t.Errorf("reasons = %v", reasons)
	}
}

func TestStaticChecker_BlockedCorridor(t *testing.T) {
	c := NewStaticChecker(DenyLists{Corridors: []string{"KE:SO"}})
	ctx := context.Background()

	if ok, _ := c.CheckRoute(ctx, route("dahabshiil"), "KE", "SO"); ok {
		t.Fatal("blocked corridor passed")
	}
	// Direction matters: the reverse corridor is not blocked.
	if ok, _ := c.CheckRoute(ctx, route("dahabshiil"), "SO", "KE"); !ok {
		t.Fatal("reverse corridor blocked")
	}
}

func TestStaticChecker_BlockedProviderAnyLeg(t *testing.T) {
	c := NewStaticChecker(DenyLists{Providers: []string{"shadybank"}})

	ok, reasons := c.CheckRoute(context.Background(), route("wise", "shadybank"), "KE", "AE")
	if ok {
		t.Fatal("route with blocked middle leg passed")
	}
	if len(reasons) != 1 || !strings.Contains(reasons[0], "provider shadybank") {
		t.Errorf("reasons = %v", reasons)
	}
}

func TestStaticChecker_MultipleReasonsAccumulate(t *testing.T) {
	c := NewStaticChecker(DenyLists{
		Countries: []string{"KP"},
		Corridors: []string{"KE:KP"},
		Providers: []string{"shadybank"},
	})

	ok, reasons := c.CheckRoute(context.Background(), route("shadybank"), "KE", "KP")
	if ok {
		t.Fatal("route matching three lists passed")
	}
	if len(reasons) != 3 {
		t.Fatalf("got %d reasons, want 3: %v", len(reasons), reasons)
	}
}

func TestStaticChecker_CaseInsensitiveCountries(t *testing.T) {
	c := NewStaticChecker(DenyLists{Countries: []string{"kp"}, Corridors: []string{"ke:so"}})
	ctx := context.Background()

	if ok, _ := c.CheckRoute(ctx, route("mpesa"), "KP", "UG"); ok {
		t.Fatal("lowercase deny-list entry did not match uppercase country")
	}
	if ok, _ := c.CheckRoute(ctx, route("mpesa"), "KE", "SO"); ok {
		t.Fatal("lowercase corridor entry did not match")
	}
}

func TestStaticChecker_EmptyListsAllowAll(t *testing.T) {
	c := NewStaticChecker(DenyLists{})

	ok, reasons := c.CheckRoute(context.Background(), route("anything"), "RU", "KP")
	if !ok {
		t.Fatalf("empty deny-lists blocked a route: %v", reasons)
	}
}
