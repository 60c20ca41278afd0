package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/facility-reservation/internal/engine"
	"github.com/iliyamo/facility-reservation/internal/model"
)

// Store is the MySQL implementation of engine.Store.  The engine
// serializes conflicting writers itself; Store's job is to make each
// Atomic block all-or-nothing and to keep reads inside it current.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to the given database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying handle for components that manage their
// own queries (account repository, health checks).
func (s *Store) DB() *sql.DB { return s.db }

// Atomic runs fn inside a single database transaction.  When fn
// returns an error the transaction is rolled back and nothing is
// persisted.
func (s *Store) Atomic(ctx context.Context, fn func(tx engine.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&storeTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// storeTx adapts one *sql.Tx to the engine.Tx surface.  Methods live
// in reservation_repository.go and ledger_repository.go next to the
// queries they run.
type storeTx struct {
	tx *sql.Tx
}

// GetReservation returns a single reservation by id, outside any
// transaction.  Unknown ids map to engine.ErrNotFound.
func (s *Store) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	return scanReservation(s.db.QueryRowContext(ctx, getReservationSQL, id))
}

// ListReservations returns reservations matching q ordered by id,
// which is insertion order.
func (s *Store) ListReservations(ctx context.Context, q engine.ReservationQuery) ([]model.Reservation, error) {
	query := `SELECT reservation_id, facility, recurrence, reservation_date, item, client_id,
	                 start_time, end_time, status
	          FROM reservations`
	var conds []string
	var args []interface{}
	if q.From != "" {
		conds = append(conds, "reservation_date >= ?")
		args = append(args, q.From)
	}
	if q.To != "" {
		conds = append(conds, "reservation_date <= ?")
		args = append(args, q.To)
	}
	if q.Facility != "" {
		conds = append(conds, "facility = ?")
		args = append(args, q.Facility)
	}
	if q.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, q.Status)
	}
	if q.ClientID != "" {
		conds = append(conds, "client_id = ?")
		args = append(args, q.ClientID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY reservation_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var r model.Reservation
		if err := rows.Scan(&r.ID, &r.Facility, &r.Recurrence, &r.Date, &r.Item,
			&r.ClientID, &r.StartTime, &r.EndTime, &r.Status); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListTransactions returns ledger entries matching q in insertion
// order.
func (s *Store) ListTransactions(ctx context.Context, q engine.TransactionQuery) ([]model.Transaction, error) {
	query := `SELECT transaction_id, transaction_type, amount, created_at, account_id, reservation_id
	          FROM transactions`
	var conds []string
	var args []interface{}
	if !q.From.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, q.From)
	}
	if !q.To.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, q.To)
	}
	if q.AccountID != "" {
		conds = append(conds, "account_id = ?")
		args = append(args, q.AccountID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, transaction_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Transaction, 0)
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.Type, &t.Amount, &t.Timestamp,
			&t.AccountID, &t.ReservationID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// rowScanner lets scanReservation serve both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const getReservationSQL = `SELECT reservation_id, facility, recurrence, reservation_date, item,
                                  client_id, start_time, end_time, status
                           FROM reservations WHERE reservation_id = ?`

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var r model.Reservation
	err := row.Scan(&r.ID, &r.Facility, &r.Recurrence, &r.Date, &r.Item,
		&r.ClientID, &r.StartTime, &r.EndTime, &r.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
