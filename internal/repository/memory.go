package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/facility-reservation/internal/engine"
	"github.com/iliyamo/facility-reservation/internal/model"
)

// MemoryStore is an ephemeral engine.Store used by tests and local
// development.  Atomic blocks work on a cloned copy of the state and
// swap it in only when the block succeeds, so a failing block leaves
// nothing behind — the same all-or-nothing contract the MySQL store
// gets from transactions.
type MemoryStore struct {
	mu    sync.RWMutex
	state memState
}

type memState struct {
	reservations map[int64]model.Reservation
	txns         []model.Transaction
	accounts     map[string]model.Account
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memState{
		reservations: make(map[int64]model.Reservation),
		accounts:     make(map[string]model.Account),
	}}
}

func (s memState) clone() memState {
	out := memState{
		reservations: make(map[int64]model.Reservation, len(s.reservations)),
		txns:         make([]model.Transaction, len(s.txns), len(s.txns)+2),
		accounts:     make(map[string]model.Account, len(s.accounts)),
	}
	for k, v := range s.reservations {
		out.reservations[k] = v
	}
	copy(out.txns, s.txns)
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	return out
}

// SeedAccount inserts or replaces an account directly; tests use it to
// arrange balances and active flags.
func (s *MemoryStore) SeedAccount(a model.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.accounts[a.UserID] = a
}

// Account returns a snapshot of the account, if present.
func (s *MemoryStore) Account(userID string) (model.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.accounts[userID]
	return a, ok
}

// Atomic implements engine.Store.
func (s *MemoryStore) Atomic(_ context.Context, fn func(tx engine.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(&memTx{state: &work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// GetReservation implements engine.Store.
func (s *MemoryStore) GetReservation(_ context.Context, id int64) (*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.reservations[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return &r, nil
}

// ListReservations implements engine.Store; results come back in id
// order.
func (s *MemoryStore) ListReservations(_ context.Context, q engine.ReservationQuery) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Reservation, 0)
	for _, r := range s.state.reservations {
		if q.From != "" && r.Date < q.From {
			continue
		}
		if q.To != "" && r.Date > q.To {
			continue
		}
		if q.Facility != "" && r.Facility != q.Facility {
			continue
		}
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		if q.ClientID != "" && r.ClientID != q.ClientID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListTransactions implements engine.Store; results keep ledger append
// order.
func (s *MemoryStore) ListTransactions(_ context.Context, q engine.TransactionQuery) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Transaction, 0)
	for _, t := range s.state.txns {
		if !q.From.IsZero() && t.Timestamp.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && t.Timestamp.After(q.To) {
			continue
		}
		if q.AccountID != "" && t.AccountID != q.AccountID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// memTx mutates the working copy owned by one Atomic block.
type memTx struct {
	state *memState
}

func (t *memTx) NextReservationID(context.Context) (int64, error) {
	var max int64
	for id := range t.state.reservations {
		if id > max {
			max = id
		}
	}
	return max + 1, nil
}

func (t *memTx) InsertReservation(_ context.Context, r *model.Reservation) error {
	t.state.reservations[r.ID] = *r
	return nil
}

func (t *memTx) GetReservation(_ context.Context, id int64) (*model.Reservation, error) {
	r, ok := t.state.reservations[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return &r, nil
}

func (t *memTx) MarkCancelled(_ context.Context, id int64) error {
	r, ok := t.state.reservations[id]
	if !ok {
		return engine.ErrNotFound
	}
	r.Status = model.StatusCancelled
	t.state.reservations[id] = r
	return nil
}

func (t *memTx) CountOverlapping(_ context.Context, date, item string, start, end float64) (int, error) {
	n := 0
	for _, r := range t.state.reservations {
		if r.Date == date && r.Item == item && r.Status != model.StatusCancelled &&
			r.StartTime < end && r.EndTime > start {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertTransaction(_ context.Context, txn *model.Transaction) error {
	t.state.txns = append(t.state.txns, *txn)
	return nil
}

func (t *memTx) PaymentAmount(_ context.Context, reservationID int64) (float64, error) {
	for _, txn := range t.state.txns {
		if txn.ReservationID == reservationID && txn.Type == model.TxnPayment {
			return txn.Amount, nil
		}
	}
	return 0, ErrPaymentMissing
}

func (t *memTx) AccountActive(_ context.Context, accountID string) (bool, error) {
	a, ok := t.state.accounts[accountID]
	return ok && a.IsActive, nil
}

func (t *memTx) Balance(_ context.Context, accountID string) (float64, error) {
	a, ok := t.state.accounts[accountID]
	if !ok {
		return 0, ErrAccountNotFound
	}
	return a.Balance, nil
}

func (t *memTx) AdjustBalance(_ context.Context, accountID string, delta float64) error {
	a, ok := t.state.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	a.Balance += delta
	t.state.accounts[accountID] = a
	return nil
}
