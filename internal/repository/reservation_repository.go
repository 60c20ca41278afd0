package repository

import (
	"context"

	"github.com/iliyamo/facility-reservation/internal/model"
)

// Reservation persistence inside an engine transaction.  All methods
// run on the *sql.Tx owned by the surrounding Atomic block.

// NextReservationID returns max-existing-id + 1.  FOR UPDATE makes two
// overlapping transactions observe the maximum serially, so ids are
// unique and never reused even though cancelled rows stay in place.
func (t *storeTx) NextReservationID(ctx context.Context) (int64, error) {
	const q = `SELECT COALESCE(MAX(reservation_id), 0) + 1 FROM reservations FOR UPDATE`
	var id int64
	if err := t.tx.QueryRowContext(ctx, q).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// InsertReservation writes a new reservation row with an explicit id.
func (t *storeTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	const q = `INSERT INTO reservations
	           (reservation_id, facility, recurrence, reservation_date, item, client_id, start_time, end_time, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := t.tx.ExecContext(ctx, q, r.ID, r.Facility, r.Recurrence, r.Date,
		r.Item, r.ClientID, r.StartTime, r.EndTime, r.Status)
	return err
}

// GetReservation reads a reservation within the transaction so the
// caller decides on current state, not a stale snapshot.
func (t *storeTx) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	return scanReservation(t.tx.QueryRowContext(ctx, getReservationSQL, id))
}

// MarkCancelled flips the status to cancelled.  Rows are never
// deleted; cancellation is the only mutation a reservation ever sees.
func (t *storeTx) MarkCancelled(ctx context.Context, id int64) error {
	const q = `UPDATE reservations SET status = ? WHERE reservation_id = ?`
	_, err := t.tx.ExecContext(ctx, q, model.StatusCancelled, id)
	return err
}

// CountOverlapping counts non-cancelled reservations of the item on
// the date whose interval truly intersects [start, end).  The
// condition is existing.start < end AND existing.end > start; touching
// endpoints do not conflict.
func (t *storeTx) CountOverlapping(ctx context.Context, date, item string, start, end float64) (int, error) {
	const q = `SELECT COUNT(*) FROM reservations
	           WHERE reservation_date = ? AND item = ? AND status <> ?
	             AND start_time < ? AND end_time > ?`
	var n int
	if err := t.tx.QueryRowContext(ctx, q, date, item, model.StatusCancelled, end, start).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
