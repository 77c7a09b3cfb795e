package availability

import (
	"context"
	"reflect"
	"testing"
)

func TestStaticChecker_DefaultAvailable(t *testing.T) {
	c := NewStaticChecker()
	if !c.ProviderAvailable(context.Background(), "mpesa") {
		t.Fatal("unknown provider should be available")
	}
}

func TestStaticChecker_SeededDown(t *testing.T) {
	c := NewStaticChecker("chipper", "wise")
	ctx := context.Background()

	if c.ProviderAvailable(ctx, "chipper") {
		t.Error("chipper should be down")
	}
	if c.ProviderAvailable(ctx, "wise") {
		t.Error("wise should be down")
	}
	if !c.ProviderAvailable(ctx, "mpesa") {
		t.Error("mpesa should be up")
	}
}

func TestStaticChecker_MarkDownMarkUp(t *testing.T) {
	c := NewStaticChecker()
	ctx := context.Background()

	c.MarkDown("mpesa")
	if c.ProviderAvailable(ctx, "mpesa") {
		t.Fatal("mpesa still available after MarkDown")
	}

	c.MarkUp("mpesa")
	if !c.ProviderAvailable(ctx, "mpesa") {
		t.Fatal("mpesa still down after MarkUp")
	}
}

func TestStaticChecker_MarkUpUnknownIsNoop(t *testing.T) {
	c := NewStaticChecker()
	c.MarkUp("never-seen")
	if !c.ProviderAvailable(context.Background(), "never-seen") {
		t.Fatal("provider should be available")
	}
}

func TestStaticChecker_DownSorted(t *testing.T) {
	c := NewStaticChecker("wise", "airtel", "mukuru")
	got := c.Down()
	want := []string{"airtel", "mukuru", "wise"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Down() = %v, want %v", got, want)
	}
}

func TestStaticChecker_DownEmpty(t *testing.T) {
	c := NewStaticChecker()
	if got := c.Down(); len(got) != 0 {
		t.Fatalf("Down() = %v, want empty", got)
	}
}
