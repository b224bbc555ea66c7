package pauser

import (
	"testing"
	"time"
)

func TestLongPauserBusyAndYieldPhases(t *testing.T) {
	p := New(2, 2, time.Millisecond, 10*time.Millisecond)

	p.Pause() // busy 1
	p.Pause() // busy 2
	p.Pause() // yield 1
	p.Pause() // yield 2

	stats := p.Stats()
	if stats.BusySpins != 2 {
		t.Errorf("BusySpins = %d, want 2", stats.BusySpins)
	}
	if stats.YieldSpins != 2 {
		t.Errorf("YieldSpins = %d, want 2", stats.YieldSpins)
	}
	if stats.TotalPauses != 4 {
		t.Errorf("TotalPauses = %d, want 4", stats.TotalPauses)
	}
}

func TestLongPauserResetReturnsToBusyPhase(t *testing.T) {
	p := New(1, 0, time.Millisecond, 10*time.Millisecond)

	p.Pause() // busy, spins -> 1
	p.Pause() // past busyMax, parks briefly

	p.Reset()

	p.Pause() // should count as busy again, not another park
	stats := p.Stats()
	if stats.BusySpins != 2 {
		t.Errorf("BusySpins after Reset = %d, want 2", stats.BusySpins)
	}
}

func TestLongPauserUnpauseInterruptsPark(t *testing.T) {
	p := New(0, 0, time.Hour, time.Hour)

	done := make(chan struct{})
	go func() {
		p.Pause()
		close(done)
	}()

	// Give the goroutine a moment to enter the park before waking it; an
	// early Unpause is not lost either, since it leaves a pending wake that
	// the park consumes at once.
	time.Sleep(5 * time.Millisecond)
	p.Unpause()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Unpause did not interrupt the parked Pause call")
	}
}

func TestNewCoreAndNewReplicationBounds(t *testing.T) {
	core := NewCore(false)
	if core.maxPause != 20*time.Millisecond {
		t.Errorf("NewCore maxPause = %v, want 20ms", core.maxPause)
	}
	coreDebug := NewCore(true)
	if coreDebug.maxPause != 200*time.Millisecond {
		t.Errorf("NewCore(debug) maxPause = %v, want 200ms", coreDebug.maxPause)
	}

	repl := NewReplication(50, false)
	if repl.maxPause != 50*time.Millisecond {
		t.Errorf("NewReplication maxPause = %v, want 50ms", repl.maxPause)
	}
	replDebug := NewReplication(50, true)
	if replDebug.maxPause != 200*time.Millisecond {
		t.Errorf("NewReplication(debug) maxPause = %v, want 200ms", replDebug.maxPause)
	}
}
