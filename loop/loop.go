// Package loop provides the EventLoop worker contract and its concrete
// implementations: the cooperative Loop used for the core, replication and
// concurrent-pool slots, and BlockingLoop used for handlers that are
// expected to block inside Action.
//
// Grounded on the teacher's core/concurrency/eventloop.go (atomic
// copy-on-write handler registry, quit/done channel pair, adaptive
// backoff-via-pauser loop body) and executor.go (per-worker goroutine with
// stopCh/stoppedCh lifecycle, affinity binding inside the worker goroutine).
package loop

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carrot-garden/chronicle-threads/affinity"
	"github.com/carrot-garden/chronicle-threads/handler"
	"github.com/carrot-garden/chronicle-threads/pauser"
	"github.com/rs/zerolog"
)

// loopStartMS sentinel values. Anything else stored in loopStartMS is the
// millisecond timestamp at which the currently executing handler's Action
// was entered, letting a monitor loop detect a stalled handler from another
// goroutine without taking a lock.
const (
	StateQuiet       int64 = 0
	StateIdle        int64 = math.MaxInt64
	StateTerminated  int64 = math.MaxInt64 - 1
)

// EventLoop is the contract every loop flavor in this package satisfies,
// and the type the dispatcher holds slots of regardless of flavor.
type EventLoop interface {
	Name() string
	AddHandler(h handler.EventHandler) error
	Start()
	Stop()
	Close()
	IsAlive() bool
	IsClosed() bool
	LoopStartMS() int64
	// DumpRunningState logs a stall dump. recheck is evaluated at log time
	// and reports whether the condition that triggered the dump still
	// holds — dumping is asynchronous relative to the loop's own
	// goroutine, so the two can disagree; that race is inherent and is
	// logged rather than hidden.
	DumpRunningState(log zerolog.Logger, recheck func() bool)
}

// Loop is the cooperative worker: a single goroutine repeatedly snapshots
// its handler list and calls Action on each entry in priority-registration
// order, backing off through a Pauser when nothing progresses.
type Loop struct {
	name    string
	daemon  bool
	cpuID   int
	pauser  pauser.Pauser
	log     zerolog.Logger

	handlers   atomic.Value // []handler.EventHandler
	handlersMu sync.Mutex

	loopStartMS atomic.Int64

	stopCh    chan struct{}
	stoppedCh chan struct{}
	started   atomic.Bool
	closed    atomic.Bool
}

// New constructs a cooperative Loop. cpuID < 0 means no affinity binding.
func New(name string, daemon bool, cpuID int, p pauser.Pauser, log zerolog.Logger) *Loop {
	l := &Loop{
		name:      name,
		daemon:    daemon,
		cpuID:     cpuID,
		pauser:    p,
		log:       log.With().Str("loop", name).Logger(),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	l.handlers.Store([]handler.EventHandler{})
	l.loopStartMS.Store(StateIdle)
	return l
}

func (l *Loop) Name() string { return l.name }

// AddHandler registers h for this loop via copy-on-write, mirroring the
// teacher's RegisterHandler, and wakes the loop's pauser so a parked loop
// picks h up promptly. Safe to call before or after Start.
func (l *Loop) AddHandler(h handler.EventHandler) error {
	if l.closed.Load() {
		return ErrLoopClosed
	}
	l.handlersMu.Lock()
	defer l.handlersMu.Unlock()
	old := l.handlers.Load().([]handler.EventHandler)
	next := make([]handler.EventHandler, len(old)+1)
	copy(next, old)
	next[len(old)] = h
	l.handlers.Store(next)
	l.pauser.Unpause()
	return nil
}

// removeHandler drops the handler at position pos. Only the worker
// goroutine removes handlers and AddHandler only appends, so a position in
// the worker's snapshot, less the removals already made from that snapshot,
// is still the handler's position in the current list.
func (l *Loop) removeHandler(pos int) {
	l.handlersMu.Lock()
	defer l.handlersMu.Unlock()
	old := l.handlers.Load().([]handler.EventHandler)
	next := make([]handler.EventHandler, 0, len(old)-1)
	next = append(next, old[:pos]...)
	next = append(next, old[pos+1:]...)
	l.handlers.Store(next)
}

// Start launches the worker goroutine. Calling Start more than once is a
// no-op.
func (l *Loop) Start() {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	go l.run()
}

func (l *Loop) run() {
	defer close(l.stoppedCh)

	if l.cpuID >= 0 {
		if err := affinity.Bind(l.cpuID); err != nil {
			l.log.Warn().Err(err).Int("cpu", l.cpuID).Msg("affinity bind failed, continuing unbound")
		}
		defer affinity.Unbind()
	}

	for {
		select {
		case <-l.stopCh:
			l.loopStartMS.Store(StateTerminated)
			return
		default:
		}

		handlers := l.handlers.Load().([]handler.EventHandler)
		progressed := false
		removed := 0

		for i, h := range handlers {
			l.loopStartMS.Store(nowMS())
			ok, err := h.Action()
			l.loopStartMS.Store(StateQuiet)
			if err != nil {
				if errors.Is(err, handler.ErrInvalid) {
					l.log.Warn().Err(err).Msg("handler removed itself after error")
					l.removeHandler(i - removed)
					removed++
				} else {
					l.log.Warn().Err(err).Msg("handler raised an error, keeping it registered")
				}
				continue
			}
			if ok {
				progressed = true
			}
		}

		if progressed {
			l.pauser.Reset()
		} else {
			l.loopStartMS.Store(StateIdle)
			l.pauser.Pause()
		}
	}
}

// Stop requests the worker goroutine to exit and blocks until it has.
func (l *Loop) Stop() {
	if l.started.Load() {
		select {
		case <-l.stopCh:
		default:
			close(l.stopCh)
		}
		<-l.stoppedCh
	}
}

// Close stops the loop and marks it unable to accept further handlers.
func (l *Loop) Close() {
	if l.closed.CompareAndSwap(false, true) {
		l.Stop()
	}
}

// IsAlive reports whether the worker goroutine has been started and has not
// yet exited.
func (l *Loop) IsAlive() bool {
	if !l.started.Load() {
		return false
	}
	select {
	case <-l.stoppedCh:
		return false
	default:
		return true
	}
}

func (l *Loop) IsClosed() bool { return l.closed.Load() }

// LoopStartMS exposes the sentinel field for a LoopBlockMonitor to poll
// from another goroutine without synchronization.
func (l *Loop) LoopStartMS() int64 { return l.loopStartMS.Load() }

func (l *Loop) DumpRunningState(log zerolog.Logger, recheck func() bool) {
	handlers := l.handlers.Load().([]handler.EventHandler)
	log.Warn().
		Str("loop", l.name).
		Int64("loopStartMS", l.loopStartMS.Load()).
		Int("handlers", len(handlers)).
		Bool("daemon", l.daemon).
		Bool("still_blocked", recheck()).
		Msg("dumping loop state")
}

func nowMS() int64 { return time.Now().UnixMilli() }
