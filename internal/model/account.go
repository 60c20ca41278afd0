package model

import "time"

// Roles an account can carry.  The role is embedded in the JWT and
// consulted by the capability table; the engine itself only cares
// whether an account is active.
const (
	RoleScheduler = "scheduler"
	RoleAdmin     = "admin"
	RoleClient    = "client"
	RoleRemote    = "remote"
)

// Account represents a row in the `accounts` table.  Accounts are the
// external balance holders the ledger debits and credits; the engine
// never mutates anything here except Balance and only through the
// ledger.
//
// Fields:
//  UserID       – unique account identifier chosen at registration.
//  Role         – one of the Role* constants above.
//  PasswordHash – bcrypt hash of the account password.
//  Balance      – current funds; never driven negative by a booking.
//  IsActive     – deactivated accounts cannot pay for bookings.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Account struct {
	UserID       string    // accounts.user_id
	Role         string    // accounts.role
	PasswordHash string    // accounts.password_hash
	Balance      float64   // accounts.balance
	IsActive     bool      // accounts.is_active
	CreatedAt    time.Time // accounts.created_at
	UpdatedAt    time.Time // accounts.updated_at
}
