package repository

import (
	"context"

	"github.com/iliyamo/facility-reservation/internal/model"
)

// Ledger and account-balance persistence inside an engine transaction.
// A ledger append and its balance delta always share one *sql.Tx, so
// either both land or neither does.

// InsertTransaction appends one ledger entry.  The ledger is
// append-only; there is deliberately no update or delete statement in
// this file.
func (t *storeTx) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	const q = `INSERT INTO transactions
	           (transaction_id, transaction_type, amount, created_at, account_id, reservation_id)
	           VALUES (?, ?, ?, ?, ?, ?)`
	_, err := t.tx.ExecContext(ctx, q, txn.ID, txn.Type, txn.Amount,
		txn.Timestamp, txn.AccountID, txn.ReservationID)
	return err
}

// PaymentAmount returns the amount recorded by the payment transaction
// written when the reservation was created.
func (t *storeTx) PaymentAmount(ctx context.Context, reservationID int64) (float64, error) {
	const q = `SELECT amount FROM transactions
	           WHERE reservation_id = ? AND transaction_type = ?`
	var amount float64
	if err := t.tx.QueryRowContext(ctx, q, reservationID, model.TxnPayment).Scan(&amount); err != nil {
		return 0, err
	}
	return amount, nil
}

// AccountActive reports whether the account exists and is enabled.  A
// missing account counts as inactive, matching the booking rule that
// only known, active accounts may pay.
func (t *storeTx) AccountActive(ctx context.Context, accountID string) (bool, error) {
	const q = `SELECT is_active FROM accounts WHERE user_id = ?`
	var active bool
	err := t.tx.QueryRowContext(ctx, q, accountID).Scan(&active)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return active, nil
}

// Balance returns the account's current funds.  FOR UPDATE holds the
// row lock until the transaction commits: the slot mutex only orders
// writers on one (date, item) key, so two bookings paid from the same
// account on different slots must serialize here or both would clear
// the insufficient-funds check against the same snapshot.
func (t *storeTx) Balance(ctx context.Context, accountID string) (float64, error) {
	const q = `SELECT balance FROM accounts WHERE user_id = ? FOR UPDATE`
	var balance float64
	if err := t.tx.QueryRowContext(ctx, q, accountID).Scan(&balance); err != nil {
		if isNoRows(err) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return balance, nil
}

// AdjustBalance applies a signed delta to the account's funds: the
// debit of a booking or the credit of a refund.
func (t *storeTx) AdjustBalance(ctx context.Context, accountID string, delta float64) error {
	const q = `UPDATE accounts SET balance = balance + ? WHERE user_id = ?`
	_, err := t.tx.ExecContext(ctx, q, delta, accountID)
	return err
}
