// Package engine implements the reservation and ledger core: the
// operating-hours validator, the pricing and refund calculator, and
// the Book/Hold/Cancel state machine that keeps the reservation store
// and the ledger moving in lock-step.
package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors reported to callers.  Handlers translate these into
// HTTP status codes; everything else coming out of the engine wraps
// ErrUnavailable and indicates a storage fault with no partial commit.
var (
	// ErrInvalidRequest covers malformed dates, non-half-hour
	// increments, zero or negative durations and requests outside
	// operating hours or the catalog.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAccountInactive is returned when a deactivated account
	// attempts a paid booking.
	ErrAccountInactive = errors.New("account is not active")

	// ErrInsufficientFunds is returned when the account balance is
	// below the computed price at booking time.
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrCapacityExceeded is returned when the requested window has no
	// remaining capacity for the item kind.
	ErrCapacityExceeded = errors.New("item booked for that time")

	// ErrNotFound is returned when a cancellation targets an unknown
	// reservation id.
	ErrNotFound = errors.New("reservation does not exist")

	// ErrAlreadyCancelled is returned when a cancellation targets a
	// reservation already in its terminal state.
	ErrAlreadyCancelled = errors.New("reservation is already cancelled")

	// ErrUnavailable wraps storage-layer faults.  It is not a business
	// error; the engine guarantees no partial commit occurred.
	ErrUnavailable = errors.New("storage unavailable")
)

// invalidf wraps ErrInvalidRequest with a human-readable reason.
func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// business reports whether err is one of the engine's business
// sentinels, as opposed to a storage fault.
func business(err error) bool {
	for _, s := range []error{
		ErrInvalidRequest, ErrAccountInactive, ErrInsufficientFunds,
		ErrCapacityExceeded, ErrNotFound, ErrAlreadyCancelled,
	} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// storeErr passes business errors through unchanged and wraps anything
// else as ErrUnavailable so handlers can report storage faults
// distinctly.
func storeErr(err error) error {
	if err == nil || business(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
