// Package group implements EventGroup, the priority-routed dispatcher that
// fans registered handlers out across a core cooperative loop, a blocking
// loop, a lazily created replication loop, a lazily created pool of
// concurrent loops, and a monitor loop that hosts stall-detection and
// pauser-statistics probes.
//
// Grounded on the teacher's server/options.go functional-options pattern
// for construction, and on core/concurrency/executor.go's lazy,
// mutex-guarded resource creation (manageResizes) for the replication and
// concurrent-pool slot protocol.
package group

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carrot-garden/chronicle-threads/handler"
	"github.com/carrot-garden/chronicle-threads/internal/config"
	"github.com/carrot-garden/chronicle-threads/internal/logging"
	"github.com/carrot-garden/chronicle-threads/loop"
	"github.com/carrot-garden/chronicle-threads/pauser"
	"github.com/carrot-garden/chronicle-threads/priority"
	"github.com/rs/zerolog"
)

// EventGroup owns every loop in the scheduler and is the only type
// application code constructs directly.
type EventGroup struct {
	name   string
	daemon bool

	settings config.Settings
	log      zerolog.Logger
	debug    bool

	coreCPU        int
	replicationCPU int
	concurrentCPUs []int
	concThreads    int

	corePauserFn func(debug bool) pauser.Pauser
	concPauserFn func(pauseTimeMS int64, debug bool) pauser.Pauser

	core           *loop.Loop
	corePauser     pauser.Pauser
	blockingLoop   *loop.BlockingLoop
	blockingPauser pauser.Pauser
	monitorLoop    *loop.Loop

	mu              sync.Mutex
	replication     *slot
	concurrentSlots []*slot

	started atomic.Bool
	closed  atomic.Bool
}

// New constructs an EventGroup. daemon marks the core loop's worker
// goroutine as best-effort background work. It has no effect on the
// monitor, replication or concurrent-pool loops, which always run as
// daemons regardless of the group's own flag (see DESIGN.md), and the
// blocking loop carries no daemon flag.
func New(daemon bool, opts ...Option) *EventGroup {
	g := &EventGroup{
		name:           "event-group",
		daemon:         daemon,
		settings:       config.Load(),
		log:            logging.Nop(),
		coreCPU:        -1,
		replicationCPU: -1,
		corePauserFn: func(debug bool) pauser.Pauser {
			return pauser.NewCore(debug)
		},
		concPauserFn: func(pauseTimeMS int64, debug bool) pauser.Pauser {
			return pauser.NewReplication(pauseTimeMS, debug)
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.concThreads <= 0 {
		g.concThreads = g.settings.ConcThreads
	}
	if g.concThreads <= 0 {
		g.concThreads = 1
	}
	g.concurrentSlots = make([]*slot, g.concThreads)

	g.corePauser = g.corePauserFn(g.debug)
	g.core = loop.New(g.name+"-core", g.daemon, g.coreCPU, g.corePauser, g.log)

	g.blockingPauser = pauser.NewCore(g.debug)
	g.blockingLoop = loop.NewBlocking(g.name+"-blocking", -1, g.blockingPauser, g.log)

	g.monitorLoop = loop.New(g.name+"-monitor", true, -1,
		pauser.New(0, 0, 100*time.Millisecond, 100*time.Millisecond), g.log)

	// The core PauserMonitor is registered eagerly here, before Start, the
	// same way the original constructor does it. The core LoopBlockMonitor
	// is registered in Start instead, matching spec.md §4.1's "start()...
	// register a LoopBlockMonitor(MONITOR_INTERVAL_MS, core)".
	_ = g.monitorLoop.AddHandler(pauser.NewMonitor(g.corePauser, g.name+"-core", 30*time.Second, g.log))

	return g
}

// AddHandler routes h to the loop matching its priority, creating
// replication or concurrent-pool loops on first use.
func (g *EventGroup) AddHandler(h handler.EventHandler) error {
	if g.closed.Load() {
		return ErrClosed
	}
	switch h.Priority() {
	case priority.HIGH, priority.MEDIUM, priority.TIMER, priority.DAEMON:
		return g.core.AddHandler(h)
	case priority.BLOCKING:
		return g.blockingLoop.AddHandler(h)
	case priority.MONITOR:
		return g.monitorLoop.AddHandler(h)
	case priority.REPLICATION:
		s := g.ensureReplication()
		return s.l.AddHandler(h)
	case priority.CONCURRENT:
		s := g.ensureConcurrentSlot(g.slotFor(h))
		return s.l.AddHandler(h)
	default:
		return ErrUnknownPriority
	}
}

// AddHandlerDeferred is the two-argument form of AddHandler. dontRunInline
// is accepted for parity with callers migrating from a host that offers a
// same-iteration fast path for registrations made from inside a handler's
// own Action, but this implementation has no such fast path: the hint is
// ignored and every call delegates to AddHandler.
func (g *EventGroup) AddHandlerDeferred(dontRunInline bool, h handler.EventHandler) error {
	return g.AddHandler(h)
}

// slotFor picks the concurrent-pool slot index for h: a handler exposing
// Identity is placed deterministically via slotHash on that identity, so
// repeated calls for the same logical source land on the same loop. A
// handler that doesn't implement handler.Identified is placed
// deterministically on its own pointer identity instead — the original's
// equivalent case keys off the handler object's hashCode(), which, absent
// an explicit identity, is itself just the object's own identity; this is
// the closest Go analogue and, unlike a round-robin counter, is a pure
// function of the handler rather than of call order.
func (g *EventGroup) slotFor(h handler.EventHandler) int {
	if id, ok := h.(handler.Identified); ok {
		return slotHash(id.Identity(), g.concThreads)
	}
	return slotHash(uint64(reflect.ValueOf(h).Pointer()), g.concThreads)
}

// ensureReplication implements the lazy-creation protocol: check under
// lock, build the pauser, construct the loop, register its
// LoopBlockMonitor with the monitor loop BEFORE starting or publishing
// it, start the loop, register its PauserMonitor, then publish.
func (g *EventGroup) ensureReplication() *slot {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.replication != nil {
		return g.replication
	}

	p := g.concPauserFn(g.settings.ReplicationEventPauseTime, g.debug)
	name := g.name + "-replication"
	// Replication is always a daemon loop regardless of g.daemon: Chronicle
	// hardcodes this in the original EventGroup constructor.
	l := loop.New(name, true, g.replicationCPU, p, g.log)

	window := time.Duration(g.settings.ReplicationMonitorIntervalMS) * time.Millisecond
	_ = g.monitorLoop.AddHandler(NewLoopBlockMonitor(name, l, window, g.debug, g.log))

	l.Start()

	_ = g.monitorLoop.AddHandler(pauser.NewMonitor(p, name, 60*time.Second, g.log))

	s := &slot{l: l, p: p}
	g.replication = s
	return s
}

func (g *EventGroup) ensureConcurrentSlot(idx int) *slot {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.concurrentSlots[idx] != nil {
		return g.concurrentSlots[idx]
	}

	cpuID := -1
	if idx < len(g.concurrentCPUs) {
		cpuID = g.concurrentCPUs[idx]
	}

	p := g.concPauserFn(g.settings.ReplicationEventPauseTime, g.debug)
	name := fmt.Sprintf("%s-concurrent-%d", g.name, idx)
	l := loop.New(name, true, cpuID, p, g.log)

	window := time.Duration(g.settings.ReplicationMonitorIntervalMS) * time.Millisecond
	_ = g.monitorLoop.AddHandler(NewLoopBlockMonitor(name, l, window, g.debug, g.log))

	l.Start()

	_ = g.monitorLoop.AddHandler(pauser.NewMonitor(p, name, 60*time.Second, g.log))

	s := &slot{l: l, p: p}
	g.concurrentSlots[idx] = s
	return s
}

// SetConcThreadPauserSupplier overrides how future replication and
// concurrent-pool pausers are built. Loops already created keep their
// existing pauser; this only affects slots created after the call.
func (g *EventGroup) SetConcThreadPauserSupplier(f func(pauseTimeMS int64, debug bool) pauser.Pauser) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.concPauserFn = f
}

// Start launches the monitor, core and blocking loops along with any
// replication or concurrent-pool loops already created by an AddHandler
// call that preceded Start.
func (g *EventGroup) Start() {
	if !g.started.CompareAndSwap(false, true) {
		return
	}
	monitorWindow := time.Duration(g.settings.MonitorIntervalMS) * time.Millisecond
	_ = g.monitorLoop.AddHandler(NewLoopBlockMonitor(g.name+"-core", g.core, monitorWindow, g.debug, g.log))

	g.monitorLoop.Start()
	g.core.Start()
	g.blockingLoop.Start()

	g.mu.Lock()
	if g.replication != nil {
		g.replication.l.Start()
	}
	for _, s := range g.concurrentSlots {
		if s != nil {
			s.l.Start()
		}
	}
	g.mu.Unlock()
}

// Unpause wakes the core loop's pauser out of a parked sleep, e.g. after
// registering a HIGH/MEDIUM/TIMER/DAEMON handler that should be serviced
// promptly. Replication and concurrent-pool loops have their own pausers
// and are not affected — a handler routed to one of those wakes the loop
// it was actually added to via that loop's AddHandler/Unpause path.
func (g *EventGroup) Unpause() {
	g.corePauser.Unpause()
}

// Stop requests every loop to exit and blocks until each has, in the
// order monitor, replication, each present concurrent slot, core,
// blocking — so nothing a later-stopped loop depends on is torn down
// out from under it first.
func (g *EventGroup) Stop() {
	g.monitorLoop.Stop()

	g.mu.Lock()
	if g.replication != nil {
		g.replication.l.Stop()
	}
	for _, s := range g.concurrentSlots {
		if s != nil {
			s.l.Stop()
		}
	}
	g.mu.Unlock()

	g.core.Stop()
	g.blockingLoop.Stop()
}

// Close stops the group and marks every loop closed, rejecting further
// AddHandler calls.
func (g *EventGroup) Close() {
	if !g.closed.CompareAndSwap(false, true) {
		return
	}
	g.Stop()
	g.monitorLoop.Close()

	g.mu.Lock()
	if g.replication != nil {
		g.replication.l.Close()
	}
	for _, s := range g.concurrentSlots {
		if s != nil {
			s.l.Close()
		}
	}
	g.mu.Unlock()

	g.core.Close()
	g.blockingLoop.Close()
}

func (g *EventGroup) IsAlive() bool  { return g.started.Load() && !g.closed.Load() }
func (g *EventGroup) IsClosed() bool { return g.closed.Load() }

// Snapshot returns a diagnostics view of the group's loop topology,
// suitable for logging or an HTTP debug handler registered by the host
// application.
func (g *EventGroup) Snapshot() map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()

	active := 0
	for _, s := range g.concurrentSlots {
		if s != nil {
			active++
		}
	}

	return map[string]any{
		"name":                g.name,
		"alive":               g.IsAlive(),
		"closed":              g.IsClosed(),
		"core_loop_start_ms":  g.core.LoopStartMS(),
		"replication_created": g.replication != nil,
		"conc_threads":        g.concThreads,
		"conc_slots_created":  active,
	}
}
