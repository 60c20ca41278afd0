// Package repository implements persistence for the reservation
// engine: a MySQL-backed engine.Store plus the account repository used
// by the management endpoints, and an in-memory Store for tests and
// local development.  All SQL uses parameterized queries; no
// identifier or value is ever interpolated into query text.
package repository

import "errors"

// ErrAccountExists is returned when registration targets a user id
// that is already taken.  Handlers translate this into HTTP 400.
var ErrAccountExists = errors.New("account already exists")

// ErrAccountNotFound is returned when an account operation targets an
// unknown user id.  Handlers translate this into HTTP 400/404.
var ErrAccountNotFound = errors.New("account not found")

// ErrLastAdmin is returned when removing or downgrading the final
// admin account, which would leave the system without one.
var ErrLastAdmin = errors.New("cannot remove the final admin")

// ErrPaymentMissing indicates an active reservation with no recorded
// payment transaction, which the engine's invariants rule out; seeing
// it means the store is corrupt.
var ErrPaymentMissing = errors.New("payment transaction missing")
