package model

import "time"

// Transaction types recorded in the ledger.  A payment is written when
// a paid booking is created; a refund when a previously active
// reservation is cancelled.  The ledger is append-only: rows are never
// updated or deleted.
const (
	TxnPayment = "payment"
	TxnRefund  = "refund"
)

// Transaction is one ledger entry tied to exactly one reservation.
//
// Fields:
//  ID            – reservation id plus a sequence suffix ("17-t1" for
//                  the payment, "17-t2" for the refund), unique.
//  Type          – TxnPayment or TxnRefund.
//  Amount        – non-negative monetary amount; a refund may be 0.
//  Timestamp     – when the entry was written (UTC).
//  AccountID     – account whose balance the entry moved.
//  ReservationID – owning reservation.
type Transaction struct {
	ID            string    `json:"transaction_id"`   // transactions.transaction_id
	Type          string    `json:"transaction_type"` // transactions.transaction_type
	Amount        float64   `json:"amount"`           // transactions.amount
	Timestamp     time.Time `json:"timestamp"`        // transactions.created_at
	AccountID     string    `json:"account_id"`       // transactions.account_id
	ReservationID int64     `json:"reservation_id"`   // transactions.reservation_id
}
