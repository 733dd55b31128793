package bank

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/txnbench/tmharness/internal/refstm"
)

func newTestBank(t *testing.T, nbWorkers int) *Bank {
	t.Helper()
	b, err := New(refstm.New(), nbWorkers, 2000, 8, 64, 100, 0.1, 0.05, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBankInit(t *testing.T) {
	b := newTestBank(t, 1)
	if err := b.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
}

func TestBankRunSingleWorker(t *testing.T) {
	b := newTestBank(t, 1)
	if err := b.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := b.Run(0, 1); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestBankRunConcurrentWorkers(t *testing.T) {
	const nbWorkers = 4
	b := newTestBank(t, nbWorkers)
	if err := b.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, nbWorkers)
	wg.Add(nbWorkers)
	for i := 0; i < nbWorkers; i++ {
		go func(uid int) {
			defer wg.Done()
			errs[uid] = b.Run(Uid(uid), Seed(uid+1))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("worker %d: Run: %v", i, err)
		}
	}
}

func TestBankCheck(t *testing.T) {
	const nbWorkers = 3
	b := newTestBank(t, nbWorkers)

	var wg sync.WaitGroup
	errs := make([]error, nbWorkers)
	wg.Add(nbWorkers)
	for i := 0; i < nbWorkers; i++ {
		go func(uid int) {
			defer wg.Done()
			errs[uid] = b.Check(Uid(uid), Seed(uid+1))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("worker %d: Check: %v", i, err)
		}
	}
}

func TestGammaSampleNonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		if v := gammaSample(rng, 32); v < 0 {
			t.Fatalf("gammaSample returned negative value %v", v)
		}
	}
}
