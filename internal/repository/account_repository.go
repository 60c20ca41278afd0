package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/facility-reservation/internal/model"
	"github.com/iliyamo/facility-reservation/internal/utils"
)

// AccountRepo provides the management surface over the accounts table:
// registration, credentials, role changes, activation and funds.
// Balance mutations caused by bookings never go through here; those
// run inside the engine's transaction in ledger_repository.go.
type AccountRepo struct {
	db *sql.DB
}

// NewAccountRepo returns an AccountRepo bound to the given database.
func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{db: db} }

// Create registers a new account with a bcrypt-hashed password, a zero
// balance and active status.  ErrAccountExists is returned when the
// user id is taken.
func (r *AccountRepo) Create(ctx context.Context, userID, password, role string, bcryptCost int) error {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE user_id = ?`, userID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return ErrAccountExists
	}
	hash, err := utils.HashPassword(password, bcryptCost)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id, role, password_hash, balance, is_active) VALUES (?, ?, ?, 0, 1)`,
		userID, role, hash)
	return err
}

// GetByID loads a full account row.  Unknown ids map to
// ErrAccountNotFound.
func (r *AccountRepo) GetByID(ctx context.Context, userID string) (*model.Account, error) {
	const q = `SELECT user_id, role, password_hash, balance, is_active, created_at, updated_at
	           FROM accounts WHERE user_id = ?`
	var a model.Account
	err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&a.UserID, &a.Role, &a.PasswordHash, &a.Balance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if isNoRows(err) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateRole changes an account's role.  Downgrading the final admin
// is refused so the system always keeps at least one.
func (r *AccountRepo) UpdateRole(ctx context.Context, userID, role string) error {
	current, err := r.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if current.Role == model.RoleAdmin && role != model.RoleAdmin {
		admins, err := r.CountAdmins(ctx)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE accounts SET role = ? WHERE user_id = ?`, role, userID)
	return err
}

// UpdatePassword replaces the stored credential hash.
func (r *AccountRepo) UpdatePassword(ctx context.Context, userID, password string, bcryptCost int) error {
	if _, err := r.GetByID(ctx, userID); err != nil {
		return err
	}
	hash, err := utils.HashPassword(password, bcryptCost)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ? WHERE user_id = ?`, hash, userID)
	return err
}

// Rename changes an account's user id, provided the new id is free.
func (r *AccountRepo) Rename(ctx context.Context, userID, newUserID string) error {
	if _, err := r.GetByID(ctx, userID); err != nil {
		return err
	}
	if _, err := r.GetByID(ctx, newUserID); err == nil {
		return ErrAccountExists
	} else if err != ErrAccountNotFound {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET user_id = ? WHERE user_id = ?`, newUserID, userID)
	return err
}

// SetActive enables or disables an account.  Deactivated accounts keep
// their balance and history but cannot pay for bookings.
func (r *AccountRepo) SetActive(ctx context.Context, userID string, active bool) error {
	if _, err := r.GetByID(ctx, userID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET is_active = ? WHERE user_id = ?`, active, userID)
	return err
}

// Delete removes an account.  The final admin cannot be removed.
func (r *AccountRepo) Delete(ctx context.Context, userID string) error {
	current, err := r.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if current.Role == model.RoleAdmin {
		admins, err := r.CountAdmins(ctx)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM accounts WHERE user_id = ?`, userID)
	return err
}

// CountAdmins returns the number of admin accounts.
func (r *AccountRepo) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE role = ?`, model.RoleAdmin).Scan(&n)
	return n, err
}

// List returns all accounts ordered by user id.
func (r *AccountRepo) List(ctx context.Context) ([]model.Account, error) {
	return r.list(ctx,
		`SELECT user_id, role, password_hash, balance, is_active, created_at, updated_at
		 FROM accounts ORDER BY user_id`)
}

// ListClients returns client accounts with their balances, ordered by
// user id.
func (r *AccountRepo) ListClients(ctx context.Context) ([]model.Account, error) {
	return r.list(ctx,
		`SELECT user_id, role, password_hash, balance, is_active, created_at, updated_at
		 FROM accounts WHERE role = ? ORDER BY user_id`, model.RoleClient)
}

func (r *AccountRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Account, 0)
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.UserID, &a.Role, &a.PasswordHash, &a.Balance,
			&a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddFunds credits the account outside of any reservation flow (a
// client topping up).  The amount must already be validated positive
// by the caller.
func (r *AccountRepo) AddFunds(ctx context.Context, userID string, amount float64) (float64, error) {
	if _, err := r.GetByID(ctx, userID); err != nil {
		return 0, err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + ? WHERE user_id = ?`, amount, userID)
	if err != nil {
		return 0, err
	}
	return r.GetBalance(ctx, userID)
}

// GetBalance returns the account's current funds.
func (r *AccountRepo) GetBalance(ctx context.Context, userID string) (float64, error) {
	var balance float64
	err := r.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE user_id = ?`, userID).Scan(&balance)
	if isNoRows(err) {
		return 0, ErrAccountNotFound
	}
	return balance, err
}
