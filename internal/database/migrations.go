package database

import (
	"context"
	"database/sql"
	"strings"
)

// Schema for the reservation engine.  Reservation ids are assigned by
// the engine (max + 1 inside its transaction), so the column is a
// plain primary key rather than AUTO_INCREMENT.  Dates are stored as
// ISO YYYY-MM-DD strings and slot times as half-hour floats, matching
// the engine's wire format.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS accounts (
	user_id VARCHAR(64) PRIMARY KEY,
	role VARCHAR(16) NOT NULL,
	password_hash VARCHAR(100) NOT NULL,
	balance DOUBLE NOT NULL DEFAULT 0,
	is_active TINYINT(1) NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS reservations (
	reservation_id BIGINT PRIMARY KEY,
	facility VARCHAR(64) NOT NULL,
	recurrence INT NOT NULL DEFAULT 0,
	reservation_date VARCHAR(10) NOT NULL,
	item VARCHAR(32) NOT NULL,
	client_id VARCHAR(64) NOT NULL,
	start_time DOUBLE NOT NULL,
	end_time DOUBLE NOT NULL,
	status VARCHAR(16) NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_reservations_slot (reservation_date, item, status),
	INDEX idx_reservations_client (client_id)
);

CREATE TABLE IF NOT EXISTS transactions (
	transaction_id VARCHAR(32) PRIMARY KEY,
	transaction_type VARCHAR(16) NOT NULL,
	amount DOUBLE NOT NULL,
	created_at DATETIME NOT NULL,
	account_id VARCHAR(64) NOT NULL,
	reservation_id BIGINT NOT NULL,
	INDEX idx_transactions_account (account_id),
	INDEX idx_transactions_created (created_at)
);
`

// Migrate applies the schema.  Every statement is IF NOT EXISTS, so
// running it on each startup is safe.  MySQL executes one statement
// per call, hence the split.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";\n\n") {
		stmt = strings.TrimSuffix(strings.TrimSpace(stmt), ";")
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
