package bounded

import (
	"errors"
	"testing"
	"time"
)

func TestRunCompletesInTime(t *testing.T) {
	err := Run(100*time.Millisecond, "quick", func() error {
		return nil
	})
	if err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
}

func TestRunPropagatesError(t *testing.T) {
	want := errors.New("boom")
	err := Run(100*time.Millisecond, "erroring", func() error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("Run() = %v, want %v", err, want)
	}
}

func TestRunOverrun(t *testing.T) {
	err := Run(10*time.Millisecond, "slow", func() error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, ErrOverrun) {
		t.Fatalf("Run() = %v, want ErrOverrun", err)
	}
}

func TestRunRecoversPanic(t *testing.T) {
	err := Run(100*time.Millisecond, "panicking", func() error {
		panic("kaboom")
	})
	if err == nil {
		t.Fatalf("Run() = nil, want panic error")
	}
}
