package engine

import (
	"testing"

	"github.com/iliyamo/facility-reservation/internal/catalog"
)

func TestPriceDiscountBoundary(t *testing.T) {
	workshop, ok := catalog.Lookup("workshop")
	if !ok {
		t.Fatal("workshop kind missing from catalog")
	}
	today := mustDate(t, "2024-01-01")

	cases := []struct {
		name     string
		date     string
		duration float64
		want     float64
	}{
		{"14 days ahead gets the discount", "2024-01-15", 0.5, 37.125},
		{"13 days ahead pays full price", "2024-01-14", 0.5, 49.5},
		{"same day pays full price", "2024-01-01", 2.0, 198},
		{"long lead, two hours", "2024-02-01", 2.0, 148.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Price(workshop, tc.duration, mustDate(t, tc.date), today)
			if got != tc.want {
				t.Fatalf("Price(%s, %g) = %g, want %g", tc.date, tc.duration, got, tc.want)
			}
		})
	}
}

func TestPriceScalesWithRate(t *testing.T) {
	crusher, ok := catalog.Lookup("crusher")
	if !ok {
		t.Fatal("crusher kind missing from catalog")
	}
	today := mustDate(t, "2024-01-01")
	if got := Price(crusher, 1.0, mustDate(t, "2024-01-02"), today); got != 20000 {
		t.Fatalf("one hour of crusher = %g, want 20000", got)
	}
}

func TestRefundTiers(t *testing.T) {
	booking := mustDate(t, "2024-03-20")

	cases := []struct {
		name   string
		cancel string
		paid   float64
		want   float64
	}{
		{"8 days notice refunds 75%", "2024-03-12", 100, 75},
		{"7 days notice refunds 50%", "2024-03-13", 100, 50},
		{"3 days notice refunds 50%", "2024-03-17", 100, 50},
		{"2 days notice refunds nothing", "2024-03-18", 100, 0},
		{"same day refunds nothing", "2024-03-20", 100, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RefundAmount(tc.paid, booking, mustDate(t, tc.cancel))
			if got != tc.want {
				t.Fatalf("RefundAmount(%g, cancel %s) = %g, want %g", tc.paid, tc.cancel, got, tc.want)
			}
		})
	}
}

// Refunds apply to the recorded payment, so a discounted booking
// refunds a share of the discounted amount.
func TestRefundUsesRecordedPayment(t *testing.T) {
	booking := mustDate(t, "2024-03-20")
	cancel := mustDate(t, "2024-03-01")
	if got := RefundAmount(37.125, booking, cancel); got != 37.125*0.75 {
		t.Fatalf("refund of discounted payment = %g, want %g", got, 37.125*0.75)
	}
}
