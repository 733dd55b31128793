package clockutil

import (
	"testing"
	"time"
)

func TestChronoNeverStarted(t *testing.T) {
	var c Chrono
	if c.Delta() != InvalidTick {
		t.Errorf("Delta on unstarted Chrono = %d, want InvalidTick", c.Delta())
	}
	if c.Stop() != InvalidTick {
		t.Errorf("Stop on unstarted Chrono != InvalidTick")
	}
}

func TestChronoElapses(t *testing.T) {
	var c Chrono
	c.Start()
	time.Sleep(2 * time.Millisecond)
	d := c.Stop()
	if d == InvalidTick {
		t.Fatalf("Stop returned InvalidTick after Start")
	}
	if d < Tick(time.Millisecond) {
		t.Errorf("Stop() = %d ns, want at least 1ms", d)
	}
}

func TestChronoResetStopsRunning(t *testing.T) {
	var c Chrono
	c.Start()
	if !c.Running() {
		t.Fatalf("Running() = false after Start")
	}
	c.Reset()
	if c.Running() {
		t.Errorf("Running() = true after Reset")
	}
	if c.Delta() != InvalidTick {
		t.Errorf("Delta() after Reset != InvalidTick")
	}
}
