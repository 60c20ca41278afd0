package engine

import (
	"time"

	"github.com/iliyamo/facility-reservation/internal/catalog"
)

// Pricing rules.  Booking at least 14 days ahead earns a 25% discount.
// Refunds are tiered by the notice given before the booked date: more
// than 7 days returns 75% of the recorded payment, more than 2 days
// returns 50%, anything later returns nothing.
const (
	earlyBookingDays     = 14
	earlyBookingDiscount = 0.25

	longNoticeDays    = 7
	longNoticeRefund  = 0.75
	shortNoticeDays   = 2
	shortNoticeRefund = 0.5
)

// daysBetween returns the whole number of days from `from` to `to`.
// Both arguments are midnight-normalized dates, so the division is
// exact.
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// Price computes the cost of booking `duration` hours of the given
// item kind on bookingDate, as seen from today.  It is a pure
// function: base = hourly rate × duration, discounted when the booking
// is made earlyBookingDays or more ahead.
func Price(kind catalog.ItemKind, duration float64, bookingDate, today time.Time) float64 {
	amount := kind.HourlyRate * duration
	if daysBetween(today, bookingDate) >= earlyBookingDays {
		amount *= 1 - earlyBookingDiscount
	}
	return amount
}

// RefundAmount computes the refund owed when a reservation that paid
// `paid` is cancelled on cancelDate ahead of bookingDate.  The tiers
// apply to the recorded payment amount, never to a recomputed price.
func RefundAmount(paid float64, bookingDate, cancelDate time.Time) float64 {
	switch notice := daysBetween(cancelDate, bookingDate); {
	case notice > longNoticeDays:
		return paid * longNoticeRefund
	case notice > shortNoticeDays:
		return paid * shortNoticeRefund
	default:
		return 0
	}
}
