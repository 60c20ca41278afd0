package engine

import (
	"context"
	"time"

	"github.com/iliyamo/facility-reservation/internal/model"
)

// Store is the persistence handle the engine is constructed with.
// There is deliberately no package-level store instance: callers
// inject either the MySQL implementation or the in-memory one used by
// tests.
//
// Atomic runs fn inside a single storage transaction.  Every read made
// through the Tx must reflect the latest committed write at the moment
// of the call, and the mutations fn performs are applied all-or-
// nothing: when fn returns an error nothing is persisted.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error

	// Read-only projections.  These run outside Atomic with
	// read-committed semantics, which is sufficient for reports.
	// GetReservation returns ErrNotFound for unknown ids.
	GetReservation(ctx context.Context, id int64) (*model.Reservation, error)
	ListReservations(ctx context.Context, q ReservationQuery) ([]model.Reservation, error)
	ListTransactions(ctx context.Context, q TransactionQuery) ([]model.Transaction, error)
}

// Tx is the transactional surface used by Book, Hold and Cancel.  The
// engine is the only component that creates reservations, transitions
// their status or appends ledger entries.
type Tx interface {
	// NextReservationID returns max-existing-id + 1.  Ids are never
	// reused; the engine serializes callers so two transactions cannot
	// observe the same maximum.
	NextReservationID(ctx context.Context) (int64, error)
	InsertReservation(ctx context.Context, r *model.Reservation) error
	// GetReservation returns ErrNotFound for unknown ids.
	GetReservation(ctx context.Context, id int64) (*model.Reservation, error)
	// MarkCancelled performs the status transition; rows are never
	// deleted.
	MarkCancelled(ctx context.Context, id int64) error
	// CountOverlapping counts non-cancelled reservations of the given
	// item on date whose [start,end) interval truly intersects
	// [start,end): existing.start < end AND existing.end > start.
	CountOverlapping(ctx context.Context, date, item string, start, end float64) (int, error)

	InsertTransaction(ctx context.Context, t *model.Transaction) error
	// PaymentAmount returns the amount of the payment transaction
	// recorded for the reservation at creation time.
	PaymentAmount(ctx context.Context, reservationID int64) (float64, error)

	// Account balance collaborator.  Each balance delta is applied in
	// the same transaction as the reservation/ledger writes.
	AccountActive(ctx context.Context, accountID string) (bool, error)
	// Balance returns the account's current funds and locks them for
	// the remainder of the transaction.  Two transactions paying from
	// one account must observe each other's debits in order, even when
	// the engine's slot keys do not serialize them.
	Balance(ctx context.Context, accountID string) (float64, error)
	AdjustBalance(ctx context.Context, accountID string, delta float64) error
}

// ReservationQuery filters reservation reads.  Empty string fields are
// ignored.  From/To are inclusive YYYY-MM-DD bounds.
type ReservationQuery struct {
	From     string
	To       string
	Facility string
	Status   string
	ClientID string
}

// TransactionQuery filters ledger reads.  Zero times are ignored.
type TransactionQuery struct {
	From      time.Time
	To        time.Time
	AccountID string
}
