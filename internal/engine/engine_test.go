package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/facility-reservation/internal/engine"
	"github.com/iliyamo/facility-reservation/internal/model"
	"github.com/iliyamo/facility-reservation/internal/repository"
)

// fixedClock pins "today" to 2024-01-01 so discount and refund windows
// are deterministic.
func fixedClock() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func newTestEngine(t *testing.T) (*engine.Engine, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	store.SeedAccount(model.Account{UserID: "alice", Role: model.RoleClient, Balance: 100000, IsActive: true})
	store.SeedAccount(model.Account{UserID: "frozen", Role: model.RoleClient, Balance: 100000, IsActive: false})
	store.SeedAccount(model.Account{UserID: "broke", Role: model.RoleClient, Balance: 10, IsActive: true})
	return engine.NewWithClock(store, fixedClock), store
}

func bookReq(item, client, date string, start, duration float64) engine.BookRequest {
	return engine.BookRequest{
		Facility:  "facility1",
		Item:      item,
		ClientID:  client,
		Date:      date,
		StartTime: start,
		Duration:  duration,
	}
}

func TestBookDebitsAndRecordsPayment(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	// 2024-01-15 is a Monday, 14 days ahead: the discount applies.
	res, err := eng.Book(ctx, bookReq("workshop", "alice", "2024-01-15", 9.0, 2.0))
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if res.ReservationID != 1 {
		t.Fatalf("first reservation id = %d, want 1", res.ReservationID)
	}
	if res.Amount != 148.5 {
		t.Fatalf("discounted amount = %g, want 148.5", res.Amount)
	}
	if res.EndTime != 11.0 {
		t.Fatalf("end time = %g, want 11", res.EndTime)
	}

	a, _ := store.Account("alice")
	if a.Balance != 100000-148.5 {
		t.Fatalf("balance = %g, want %g", a.Balance, 100000-148.5)
	}

	txns, err := eng.ListTransactions(ctx, time.Time{}, time.Time{}, "alice")
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(txns))
	}
	if txns[0].ID != "1-t1" || txns[0].Type != model.TxnPayment || txns[0].Amount != 148.5 {
		t.Fatalf("unexpected payment entry: %+v", txns[0])
	}
}

func TestBookRejectsInactiveAccount(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.Book(context.Background(), bookReq("workshop", "frozen", "2024-01-15", 9.0, 1.0))
	if !errors.Is(err, engine.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestBookRejectsInsufficientFunds(t *testing.T) {
	eng, store := newTestEngine(t)
	_, err := eng.Book(context.Background(), bookReq("workshop", "broke", "2024-01-15", 9.0, 1.0))
	if !errors.Is(err, engine.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	// A failed booking must leave no trace.
	a, _ := store.Account("broke")
	if a.Balance != 10 {
		t.Fatalf("failed booking changed balance to %g", a.Balance)
	}
	txns, _ := eng.ListTransactions(context.Background(), time.Time{}, time.Time{}, "broke")
	if len(txns) != 0 {
		t.Fatalf("failed booking appended %d ledger entries", len(txns))
	}
}

func TestBookRejectsUnknownItem(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.Book(context.Background(), bookReq("teleporter", "alice", "2024-01-15", 9.0, 1.0))
	if !errors.Is(err, engine.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestBookCapacity(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	// The crusher has a single unit.
	if _, err := eng.Book(ctx, bookReq("crusher", "alice", "2024-01-15", 9.0, 2.0)); err != nil {
		t.Fatalf("first crusher booking failed: %v", err)
	}
	if _, err := eng.Book(ctx, bookReq("crusher", "alice", "2024-01-15", 10.0, 2.0)); !errors.Is(err, engine.ErrCapacityExceeded) {
		t.Fatalf("overlapping crusher booking: expected ErrCapacityExceeded, got %v", err)
	}
	// Back-to-back windows do not intersect.
	if _, err := eng.Book(ctx, bookReq("crusher", "alice", "2024-01-15", 11.0, 2.0)); err != nil {
		t.Fatalf("adjacent crusher booking failed: %v", err)
	}
	// A different day is a different slot.
	if _, err := eng.Book(ctx, bookReq("crusher", "alice", "2024-01-16", 9.0, 2.0)); err != nil {
		t.Fatalf("next-day crusher booking failed: %v", err)
	}
}

func TestBookCapacityMultipleUnits(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	// Four workshops may overlap; the fifth request is turned away.
	for i := 0; i < 4; i++ {
		if _, err := eng.Book(ctx, bookReq("workshop", "alice", "2024-01-15", 9.0, 2.0)); err != nil {
			t.Fatalf("workshop booking %d failed: %v", i+1, err)
		}
	}
	if _, err := eng.Book(ctx, bookReq("workshop", "alice", "2024-01-15", 10.0, 2.0)); !errors.Is(err, engine.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded on fifth overlap, got %v", err)
	}
}

func TestBookConcurrentSingleWinner(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	// Many goroutines race for the single harvester; exactly one may
	// win and the rest must see the capacity rejection.
	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.Book(ctx, bookReq("harvester", "alice", "2024-01-15", 9.0, 1.0))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, engine.ErrCapacityExceeded):
		default:
			t.Fatalf("unexpected error from racing booking: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("%d bookings won the race, want exactly 1", wins)
	}

	txns, _ := eng.ListTransactions(ctx, time.Time{}, time.Time{}, "alice")
	if len(txns) != 1 {
		t.Fatalf("ledger has %d entries after the race, want 1", len(txns))
	}
}

func TestHoldSkipsLedger(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	// Holds do not check the account at all, so an unknown party works.
	res, err := eng.Hold(ctx, bookReq("workshop", "partner-17", "2024-01-15", 9.0, 2.0))
	if err != nil {
		t.Fatalf("Hold failed: %v", err)
	}
	if res.Amount != 0 {
		t.Fatalf("hold carried an amount: %g", res.Amount)
	}

	r, err := eng.GetReservation(ctx, res.ReservationID)
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if r.Status != model.StatusHeld {
		t.Fatalf("status = %q, want %q", r.Status, model.StatusHeld)
	}

	txns, _ := eng.ListTransactions(ctx, time.Time{}, time.Time{}, "")
	if len(txns) != 0 {
		t.Fatalf("hold appended %d ledger entries", len(txns))
	}
	a, _ := store.Account("alice")
	if a.Balance != 100000 {
		t.Fatalf("hold changed a balance: %g", a.Balance)
	}
}

func TestHoldConsumesCapacity(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.Hold(ctx, bookReq("crusher", "partner-17", "2024-01-15", 9.0, 2.0)); err != nil {
		t.Fatalf("Hold failed: %v", err)
	}
	if _, err := eng.Book(ctx, bookReq("crusher", "alice", "2024-01-15", 9.0, 1.0)); !errors.Is(err, engine.ErrCapacityExceeded) {
		t.Fatalf("expected hold to block the booking, got %v", err)
	}
}

func TestCancelRefundTiersAndLedger(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	res, err := eng.Book(ctx, bookReq("workshop", "alice", "2024-01-15", 9.0, 2.0))
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	// Cancelling 14 days ahead lands in the 75% tier.
	out, err := eng.Cancel(ctx, res.ReservationID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	want := 148.5 * 0.75
	if out.Refund != want {
		t.Fatalf("refund = %g, want %g", out.Refund, want)
	}
	if out.WasHeld {
		t.Fatal("active cancellation reported as a hold")
	}

	r, err := eng.GetReservation(ctx, res.ReservationID)
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if r.Status != model.StatusCancelled {
		t.Fatalf("status = %q, want %q", r.Status, model.StatusCancelled)
	}

	a, _ := store.Account("alice")
	if a.Balance != 100000-148.5+want {
		t.Fatalf("balance = %g, want %g", a.Balance, 100000-148.5+want)
	}

	txns, _ := eng.ListTransactions(ctx, time.Time{}, time.Time{}, "alice")
	if len(txns) != 2 {
		t.Fatalf("ledger has %d entries, want payment and refund", len(txns))
	}
	if txns[1].ID != "1-t2" || txns[1].Type != model.TxnRefund || txns[1].Amount != want {
		t.Fatalf("unexpected refund entry: %+v", txns[1])
	}
}

func TestCancelIsTerminal(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	res, err := eng.Book(ctx, bookReq("workshop", "alice", "2024-01-15", 9.0, 1.0))
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if _, err := eng.Cancel(ctx, res.ReservationID); err != nil {
		t.Fatalf("first Cancel failed: %v", err)
	}
	balanceAfter, _ := store.Account("alice")

	if _, err := eng.Cancel(ctx, res.ReservationID); !errors.Is(err, engine.ErrAlreadyCancelled) {
		t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}
	// The second attempt must not refund again.
	a, _ := store.Account("alice")
	if a.Balance != balanceAfter.Balance {
		t.Fatalf("double cancel changed balance from %g to %g", balanceAfter.Balance, a.Balance)
	}
}

func TestCancelHoldTouchesNothing(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	res, err := eng.Hold(ctx, bookReq("workshop", "partner-17", "2024-01-15", 9.0, 1.0))
	if err != nil {
		t.Fatalf("Hold failed: %v", err)
	}
	out, err := eng.Cancel(ctx, res.ReservationID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if !out.WasHeld || out.Refund != 0 {
		t.Fatalf("cancelled hold reported %+v", out)
	}
	txns, _ := eng.ListTransactions(ctx, time.Time{}, time.Time{}, "")
	if len(txns) != 0 {
		t.Fatalf("hold cancellation appended %d ledger entries", len(txns))
	}
}

func TestCancelUnknownReservation(t *testing.T) {
	eng, _ := newTestEngine(t)
	if _, err := eng.Cancel(context.Background(), 999); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelFreesCapacityAndIdsAdvance(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := eng.Book(ctx, bookReq("crusher", "alice", "2024-01-15", 9.0, 2.0))
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if _, err := eng.Cancel(ctx, first.ReservationID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	second, err := eng.Book(ctx, bookReq("crusher", "alice", "2024-01-15", 9.0, 2.0))
	if err != nil {
		t.Fatalf("rebooking a freed slot failed: %v", err)
	}
	// The cancelled row stays on record, so the id keeps advancing.
	if second.ReservationID != first.ReservationID+1 {
		t.Fatalf("second id = %d, want %d", second.ReservationID, first.ReservationID+1)
	}
}

func TestIsAvailable(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	free, err := eng.IsAvailable(ctx, "2024-01-15", 9.0, 11.0, "crusher")
	if err != nil || !free {
		t.Fatalf("empty schedule not available: %v, %v", free, err)
	}
	if _, err := eng.Book(ctx, bookReq("crusher", "alice", "2024-01-15", 9.0, 2.0)); err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	free, err = eng.IsAvailable(ctx, "2024-01-15", 10.0, 12.0, "crusher")
	if err != nil || free {
		t.Fatalf("overlapping window reported available: %v, %v", free, err)
	}
	free, err = eng.IsAvailable(ctx, "2024-01-15", 11.0, 12.0, "crusher")
	if err != nil || !free {
		t.Fatalf("adjacent window reported unavailable: %v, %v", free, err)
	}
}

func TestListReservationsFilters(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	store.SeedAccount(model.Account{UserID: "bob", Role: model.RoleClient, Balance: 100000, IsActive: true})

	if _, err := eng.Book(ctx, bookReq("workshop", "alice", "2024-01-15", 9.0, 1.0)); err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if _, err := eng.Book(ctx, bookReq("workshop", "bob", "2024-01-16", 9.0, 1.0)); err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if _, err := eng.Hold(ctx, bookReq("workshop", "partner-17", "2024-01-15", 10.0, 1.0)); err != nil {
		t.Fatalf("Hold failed: %v", err)
	}
	cancelled, err := eng.Book(ctx, bookReq("workshop", "alice", "2024-01-17", 9.0, 1.0))
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if _, err := eng.Cancel(ctx, cancelled.ReservationID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	// Active listings exclude holds and cancelled rows.
	all, err := eng.ListReservations(ctx, "2024-01-15", "2024-01-17", "facility1", "")
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("listed %d active reservations, want 2", len(all))
	}
	if all[0].ID > all[1].ID {
		t.Fatal("reservations not in id order")
	}

	mine, err := eng.ListReservations(ctx, "2024-01-15", "2024-01-17", "facility1", "alice")
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(mine) != 1 || mine[0].ClientID != "alice" {
		t.Fatalf("client filter returned %+v", mine)
	}

	holds, err := eng.ListHolds(ctx, "2024-01-15", "2024-01-17")
	if err != nil {
		t.Fatalf("ListHolds failed: %v", err)
	}
	if len(holds) != 1 || holds[0].Status != model.StatusHeld {
		t.Fatalf("hold listing returned %+v", holds)
	}

	// Repeating the read with no intervening writes returns the same
	// rows in the same order.
	again, err := eng.ListReservations(ctx, "2024-01-15", "2024-01-17", "facility1", "")
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(again) != len(all) {
		t.Fatalf("repeated read returned %d rows, want %d", len(again), len(all))
	}
	for i := range all {
		if again[i] != all[i] {
			t.Fatalf("repeated read differs at %d: %+v vs %+v", i, again[i], all[i])
		}
	}
}

func TestListReservationsOpenEndedRange(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.Book(ctx, bookReq("workshop", "alice", "2024-01-15", 9.0, 1.0)); err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if _, err := eng.Book(ctx, bookReq("workshop", "alice", "2024-01-22", 9.0, 1.0)); err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	// Each bound works on its own.
	later, err := eng.ListReservations(ctx, "2024-01-16", "", "facility1", "")
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(later) != 1 || later[0].Date != "2024-01-22" {
		t.Fatalf("from-only range returned %+v", later)
	}
	earlier, err := eng.ListReservations(ctx, "", "2024-01-16", "facility1", "")
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(earlier) != 1 || earlier[0].Date != "2024-01-15" {
		t.Fatalf("to-only range returned %+v", earlier)
	}
}

// lockingStore mimics a SQL store: Atomic blocks run concurrently and
// Balance takes the account's row lock until the block finishes, the
// way a SELECT ... FOR UPDATE does.  The in-memory store cannot show
// the difference because it serializes whole Atomic blocks.
type lockingStore struct {
	mu           sync.Mutex
	balance      float64
	nextID       int64
	reservations map[int64]model.Reservation
	txns         []model.Transaction

	rowMu sync.Mutex
}

func newLockingStore(balance float64) *lockingStore {
	return &lockingStore{balance: balance, reservations: make(map[int64]model.Reservation)}
}

func (s *lockingStore) Atomic(_ context.Context, fn func(tx engine.Tx) error) error {
	tx := &lockingTx{s: s}
	err := fn(tx)
	if tx.holdsRow {
		s.rowMu.Unlock()
	}
	return err
}

func (s *lockingStore) GetReservation(_ context.Context, id int64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return &r, nil
}

func (s *lockingStore) ListReservations(context.Context, engine.ReservationQuery) ([]model.Reservation, error) {
	return nil, nil
}

func (s *lockingStore) ListTransactions(context.Context, engine.TransactionQuery) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Transaction(nil), s.txns...), nil
}

type lockingTx struct {
	s        *lockingStore
	holdsRow bool
}

func (t *lockingTx) NextReservationID(context.Context) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.nextID++
	return t.s.nextID, nil
}

func (t *lockingTx) InsertReservation(_ context.Context, r *model.Reservation) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.reservations[r.ID] = *r
	return nil
}

func (t *lockingTx) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	return t.s.GetReservation(ctx, id)
}

func (t *lockingTx) MarkCancelled(_ context.Context, id int64) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	r, ok := t.s.reservations[id]
	if !ok {
		return engine.ErrNotFound
	}
	r.Status = model.StatusCancelled
	t.s.reservations[id] = r
	return nil
}

func (t *lockingTx) CountOverlapping(_ context.Context, date, item string, start, end float64) (int, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	n := 0
	for _, r := range t.s.reservations {
		if r.Date == date && r.Item == item && r.Status != model.StatusCancelled &&
			r.StartTime < end && r.EndTime > start {
			n++
		}
	}
	return n, nil
}

func (t *lockingTx) InsertTransaction(_ context.Context, txn *model.Transaction) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.txns = append(t.s.txns, *txn)
	return nil
}

func (t *lockingTx) PaymentAmount(_ context.Context, reservationID int64) (float64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, txn := range t.s.txns {
		if txn.ReservationID == reservationID && txn.Type == model.TxnPayment {
			return txn.Amount, nil
		}
	}
	return 0, engine.ErrNotFound
}

func (t *lockingTx) AccountActive(context.Context, string) (bool, error) { return true, nil }

func (t *lockingTx) Balance(context.Context, string) (float64, error) {
	if !t.holdsRow {
		t.s.rowMu.Lock()
		t.holdsRow = true
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.balance, nil
}

func (t *lockingTx) AdjustBalance(_ context.Context, _ string, delta float64) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.balance += delta
	return nil
}

func TestConcurrentBookingsShareOneBalance(t *testing.T) {
	// The crusher and the harvester have different slot keys, so the
	// slot mutex does not order these two bookings.  Only the locking
	// balance read keeps one account from paying for both when its
	// funds cover just one.
	store := newLockingStore(25000)
	eng := engine.NewWithClock(store, fixedClock)
	ctx := context.Background()

	reqs := []engine.BookRequest{
		bookReq("crusher", "alice", "2024-01-02", 9.0, 1.0),
		bookReq("harvester", "alice", "2024-01-02", 9.0, 1.0),
	}
	var wg sync.WaitGroup
	errs := make([]error, len(reqs))
	wg.Add(len(reqs))
	for i, req := range reqs {
		go func(i int, req engine.BookRequest) {
			defer wg.Done()
			_, errs[i] = eng.Book(ctx, req)
		}(i, req)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, engine.ErrInsufficientFunds):
		default:
			t.Fatalf("unexpected booking error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("%d bookings cleared a balance that covers only one, want 1", wins)
	}

	txns, _ := store.ListTransactions(ctx, engine.TransactionQuery{})
	var paid float64
	for _, txn := range txns {
		paid += txn.Amount
	}
	store.mu.Lock()
	balance := store.balance
	store.mu.Unlock()
	if balance < 0 {
		t.Fatalf("balance driven negative: %g", balance)
	}
	if balance != 25000-paid {
		t.Fatalf("balance %g does not match ledger total %g", balance, paid)
	}
}
