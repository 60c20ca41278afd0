package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/facility-reservation/internal/catalog"
	"github.com/iliyamo/facility-reservation/internal/model"
)

// Engine is the reservation and hold orchestrator.  It owns every
// state transition of a reservation and every ledger append; all other
// components are read-only consumers.  Construct it with New and an
// injected Store.
type Engine struct {
	store Store
	locks *slotLocks
	now   func() time.Time
}

// New returns an Engine using the wall clock.
func New(store Store) *Engine {
	return NewWithClock(store, time.Now)
}

// NewWithClock returns an Engine with an explicit clock.  Tests use
// this to pin "today" for discount and refund boundaries.
func NewWithClock(store Store, now func() time.Time) *Engine {
	if store == nil {
		panic("nil store passed to engine.New")
	}
	return &Engine{store: store, locks: newSlotLocks(), now: now}
}

// today returns the current date at midnight UTC.
func (e *Engine) today() time.Time {
	return e.now().UTC().Truncate(24 * time.Hour)
}

// BookRequest describes a paid booking attempt.  ClientID is both the
// owner of the reservation and the account that pays for it.
type BookRequest struct {
	Facility  string
	Item      string
	ClientID  string
	Date      string // YYYY-MM-DD
	StartTime float64
	Duration  float64
}

// BookResult reports a successful booking.
type BookResult struct {
	ReservationID int64
	Amount        float64
	EndTime       float64
}

// Book validates the request and, when every check passes, persists an
// active reservation, debits the paying account and appends the
// payment transaction as one atomic unit.  Checks run in a fixed
// order: operating hours, account active, balance, availability; the
// first failure aborts with no partial writes.
func (e *Engine) Book(ctx context.Context, req BookRequest) (*BookResult, error) {
	kind, ok := catalog.Lookup(req.Item)
	if !ok {
		return nil, invalidf("unknown item kind %q", req.Item)
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := validateWindow(date, req.StartTime, req.Duration); err != nil {
		return nil, err
	}
	price := Price(kind, req.Duration, date, e.today())
	end := req.StartTime + req.Duration

	key := slotKey(req.Date, req.Item)
	e.locks.lock(key)
	defer e.locks.unlock(key)

	var res BookResult
	err = e.store.Atomic(ctx, func(tx Tx) error {
		active, err := tx.AccountActive(ctx, req.ClientID)
		if err != nil {
			return err
		}
		if !active {
			return fmt.Errorf("%w: %s", ErrAccountInactive, req.ClientID)
		}
		balance, err := tx.Balance(ctx, req.ClientID)
		if err != nil {
			return err
		}
		if balance < price {
			return fmt.Errorf("%w: cost is %g and balance is %g", ErrInsufficientFunds, price, balance)
		}
		booked, err := tx.CountOverlapping(ctx, req.Date, req.Item, req.StartTime, end)
		if err != nil {
			return err
		}
		if booked >= kind.Capacity {
			return ErrCapacityExceeded
		}
		id, err := tx.NextReservationID(ctx)
		if err != nil {
			return err
		}
		if err := tx.InsertReservation(ctx, &model.Reservation{
			ID:        id,
			Facility:  req.Facility,
			Date:      req.Date,
			Item:      req.Item,
			ClientID:  req.ClientID,
			StartTime: req.StartTime,
			EndTime:   end,
			Status:    model.StatusActive,
		}); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, req.ClientID, -price); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, &model.Transaction{
			ID:            paymentTxnID(id),
			Type:          model.TxnPayment,
			Amount:        price,
			Timestamp:     e.now().UTC(),
			AccountID:     req.ClientID,
			ReservationID: id,
		}); err != nil {
			return err
		}
		res = BookResult{ReservationID: id, Amount: price, EndTime: end}
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return &res, nil
}

// Hold persists a held reservation for a remote party.  Only operating
// hours and availability are checked; holds never touch the ledger.
func (e *Engine) Hold(ctx context.Context, req BookRequest) (*BookResult, error) {
	kind, ok := catalog.Lookup(req.Item)
	if !ok {
		return nil, invalidf("unknown item kind %q", req.Item)
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := validateWindow(date, req.StartTime, req.Duration); err != nil {
		return nil, err
	}
	end := req.StartTime + req.Duration

	key := slotKey(req.Date, req.Item)
	e.locks.lock(key)
	defer e.locks.unlock(key)

	var res BookResult
	err = e.store.Atomic(ctx, func(tx Tx) error {
		booked, err := tx.CountOverlapping(ctx, req.Date, req.Item, req.StartTime, end)
		if err != nil {
			return err
		}
		if booked >= kind.Capacity {
			return ErrCapacityExceeded
		}
		id, err := tx.NextReservationID(ctx)
		if err != nil {
			return err
		}
		if err := tx.InsertReservation(ctx, &model.Reservation{
			ID:        id,
			Facility:  req.Facility,
			Date:      req.Date,
			Item:      req.Item,
			ClientID:  req.ClientID,
			StartTime: req.StartTime,
			EndTime:   end,
			Status:    model.StatusHeld,
		}); err != nil {
			return err
		}
		res = BookResult{ReservationID: id, EndTime: end}
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return &res, nil
}

// CancelResult reports the outcome of a cancellation.
type CancelResult struct {
	Reservation *model.Reservation
	WasHeld     bool
	Refund      float64
}

// Cancel transitions a reservation to its terminal state.  Cancelling
// an active reservation credits the owning account with the tiered
// refund of its recorded payment and appends the refund transaction in
// the same atomic unit; cancelling a hold touches nothing else.  The
// reservation is re-read inside the serialized section so a racing
// cancel cannot refund twice.
func (e *Engine) Cancel(ctx context.Context, reservationID int64) (*CancelResult, error) {
	// First read only locates the slot key; all decisions are made on
	// the re-read inside the lock.
	r, err := e.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, storeErr(err)
	}

	key := slotKey(r.Date, r.Item)
	e.locks.lock(key)
	defer e.locks.unlock(key)

	var res CancelResult
	err = e.store.Atomic(ctx, func(tx Tx) error {
		r, err := tx.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		switch r.Status {
		case model.StatusCancelled:
			return ErrAlreadyCancelled
		case model.StatusHeld:
			if err := tx.MarkCancelled(ctx, reservationID); err != nil {
				return err
			}
			res = CancelResult{Reservation: r, WasHeld: true}
			return nil
		}
		// Active reservation: refund against the recorded payment.
		paid, err := tx.PaymentAmount(ctx, reservationID)
		if err != nil {
			return err
		}
		bookingDate, err := parseDate(r.Date)
		if err != nil {
			return err
		}
		refund := RefundAmount(paid, bookingDate, e.today())
		if err := tx.MarkCancelled(ctx, reservationID); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, r.ClientID, refund); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, &model.Transaction{
			ID:            refundTxnID(reservationID),
			Type:          model.TxnRefund,
			Amount:        refund,
			Timestamp:     e.now().UTC(),
			AccountID:     r.ClientID,
			ReservationID: reservationID,
		}); err != nil {
			return err
		}
		res = CancelResult{Reservation: r, Refund: refund}
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return &res, nil
}

// GetReservation returns a reservation by id, for callers that need to
// inspect status or ownership before acting.
func (e *Engine) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	r, err := e.store.GetReservation(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return r, nil
}

// IsAvailable reports whether the requested window still has capacity.
// It is a read-only check and makes no promise that a subsequent Book
// will succeed.
func (e *Engine) IsAvailable(ctx context.Context, date string, start, end float64, item string) (bool, error) {
	kind, ok := catalog.Lookup(item)
	if !ok {
		return false, invalidf("unknown item kind %q", item)
	}
	var booked int
	err := e.store.Atomic(ctx, func(tx Tx) error {
		var err error
		booked, err = tx.CountOverlapping(ctx, date, item, start, end)
		return err
	})
	if err != nil {
		return false, storeErr(err)
	}
	return booked < kind.Capacity, nil
}

// ListReservations returns active reservations for the date range,
// optionally filtered by client.  Results come back in id order.
func (e *Engine) ListReservations(ctx context.Context, from, to, facility, clientID string) ([]model.Reservation, error) {
	out, err := e.store.ListReservations(ctx, ReservationQuery{
		From: from, To: to, Facility: facility,
		Status: model.StatusActive, ClientID: clientID,
	})
	return out, storeErr(err)
}

// ListHolds returns held reservations.  Both date bounds may be empty
// to list every hold on record.
func (e *Engine) ListHolds(ctx context.Context, from, to string) ([]model.Reservation, error) {
	out, err := e.store.ListReservations(ctx, ReservationQuery{
		From: from, To: to, Status: model.StatusHeld,
	})
	return out, storeErr(err)
}

// ListTransactions returns ledger entries between the given instants,
// optionally filtered by account.  Zero times mean unbounded.
func (e *Engine) ListTransactions(ctx context.Context, from, to time.Time, accountID string) ([]model.Transaction, error) {
	out, err := e.store.ListTransactions(ctx, TransactionQuery{From: from, To: to, AccountID: accountID})
	return out, storeErr(err)
}

// Transaction id suffixes: one payment at creation, one refund at
// cancellation.
func paymentTxnID(reservationID int64) string { return fmt.Sprintf("%d-t1", reservationID) }
func refundTxnID(reservationID int64) string  { return fmt.Sprintf("%d-t2", reservationID) }
