// Package pauser implements the adaptive back-off primitive a loop uses
// between empty polls. The algorithm — busy-spin, then yield-spin, then a
// parked sleep that ramps from a minimum to a maximum duration — and its
// two canonical configurations (core, and replication/concurrent) are
// specified by the scheduler's component design; the doubling-backoff shape
// itself is grounded on the teacher's EventLoop.Run poll/backoff loop,
// adapted here to the three-phase spin/yield/park algorithm the spec calls
// for instead of the teacher's plain exponential sleep.
package pauser

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Pauser is an adaptive back-off between empty polls. Pause is called by an
// idle loop and may sleep; Unpause wakes a paused loop, is idempotent, and
// is safe to call from any goroutine.
type Pauser interface {
	// Pause blocks the calling goroutine for some bounded duration, unless
	// Unpause is called first, in which case it returns immediately.
	Pause()

	// Unpause wakes a goroutine blocked in Pause. Calling it when nothing
	// is paused leaves one pending wake, so the next park returns at once;
	// calling it multiple times before then collapses to a single wake.
	Unpause()

	// Reset returns the pauser to its fastest (busy-spin) state, as if no
	// back-off had accumulated. A loop calls this after making progress.
	Reset()

	// Stats returns a snapshot of the rolling counters PauserMonitor
	// reports.
	Stats() Stats
}

// Stats is a point-in-time snapshot of a LongPauser's rolling counters,
// read by PauserMonitor.
type Stats struct {
	BusySpins   uint64
	YieldSpins  uint64
	Parks       uint64
	TotalPauses uint64
}

// LongPauser is the concrete Pauser: busyMax busy-spins, then yieldMax
// yield-spins, then a parked sleep ramping from minPause to maxPause.
// Unpause interrupts a park early via a buffered wake channel.
type LongPauser struct {
	busyMax  int
	yieldMax int
	minPause time.Duration
	maxPause time.Duration

	spins     atomic.Int64 // consecutive empty-poll count since last Reset
	wake      chan struct{}
	wakeMu    sync.Mutex
	woken     bool
	busySpins atomic.Uint64
	yieldCnt  atomic.Uint64
	parks     atomic.Uint64
	total     atomic.Uint64
}

// New builds a LongPauser with explicit phase sizes, matching the Java
// LongPauser's (busy, yield, min, max) constructor shape.
func New(busyMax, yieldMax int, minPause, maxPause time.Duration) *LongPauser {
	if busyMax < 0 {
		busyMax = 0
	}
	if yieldMax < 0 {
		yieldMax = 0
	}
	if maxPause < minPause {
		maxPause = minPause
	}
	return &LongPauser{
		busyMax:  busyMax,
		yieldMax: yieldMax,
		minPause: minPause,
		maxPause: maxPause,
		wake:     make(chan struct{}, 1),
	}
}

// NewCore builds the "moderate" core pauser from spec §4.6: 1000 busy
// spins, 200 yield spins, ramp 250µs → 20ms (200ms in debug mode).
func NewCore(debug bool) *LongPauser {
	max := 20 * time.Millisecond
	if debug {
		max = 200 * time.Millisecond
	}
	return New(1000, 200, 250*time.Microsecond, max)
}

// NewReplication builds the replication/concurrent pauser from spec §4.6:
// 500 busy spins, 100 yield spins, ramp 250µs → pauseTimeMS (200ms in debug
// mode). The upper bound equals replicationEventPauseTime directly, not a
// multiple of it; see DESIGN.md for why the original source, not spec.md's
// prose formula, governs here.
func NewReplication(pauseTimeMS int64, debug bool) *LongPauser {
	if pauseTimeMS <= 0 {
		pauseTimeMS = 1
	}
	maxPause := time.Duration(pauseTimeMS) * time.Millisecond
	if debug {
		maxPause = 200 * time.Millisecond
	}
	return New(500, 100, 250*time.Microsecond, maxPause)
}

// Pause implements Pauser.
func (p *LongPauser) Pause() {
	p.total.Add(1)
	n := p.spins.Add(1)

	if n <= int64(p.busyMax) {
		p.busySpins.Add(1)
		return
	}
	if n <= int64(p.busyMax+p.yieldMax) {
		p.yieldCnt.Add(1)
		runtime.Gosched()
		return
	}

	p.parks.Add(1)
	ramp := n - int64(p.busyMax+p.yieldMax)
	d := p.minPause * time.Duration(ramp)
	if d > p.maxPause || d <= 0 {
		d = p.maxPause
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-p.wake:
		p.clearWoken()
	case <-timer.C:
	}
}

// Unpause implements Pauser; idempotent and safe from any goroutine.
func (p *LongPauser) Unpause() {
	p.wakeMu.Lock()
	defer p.wakeMu.Unlock()
	if p.woken {
		return
	}
	p.woken = true
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *LongPauser) clearWoken() {
	p.wakeMu.Lock()
	p.woken = false
	p.wakeMu.Unlock()
}

// Reset implements Pauser.
func (p *LongPauser) Reset() {
	p.spins.Store(0)
}

// Stats implements Pauser.
func (p *LongPauser) Stats() Stats {
	return Stats{
		BusySpins:   p.busySpins.Load(),
		YieldSpins:  p.yieldCnt.Load(),
		Parks:       p.parks.Load(),
		TotalPauses: p.total.Load(),
	}
}
