package engine

import (
	"sync"
	"testing"
)

func TestSlotLocksSerializeSameKey(t *testing.T) {
	locks := newSlotLocks()

	const workers = 50
	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			locks.lock("2024-01-08|workshop")
			counter++
			locks.unlock("2024-01-08|workshop")
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("counter = %d, want %d", counter, workers)
	}
}

func TestSlotLocksReleaseEntries(t *testing.T) {
	locks := newSlotLocks()

	locks.lock("a")
	locks.unlock("a")
	locks.lock("b")
	locks.lock("a")
	locks.unlock("a")
	locks.unlock("b")

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if n := len(locks.slots); n != 0 {
		t.Fatalf("expected lock table to be empty after release, have %d entries", n)
	}
}

func TestSlotLocksIndependentKeys(t *testing.T) {
	locks := newSlotLocks()

	// Holding one key must not block another.
	locks.lock("2024-01-08|workshop")
	done := make(chan struct{})
	go func() {
		locks.lock("2024-01-08|crusher")
		locks.unlock("2024-01-08|crusher")
		close(done)
	}()
	<-done
	locks.unlock("2024-01-08|workshop")
}
