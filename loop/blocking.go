package loop

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/carrot-garden/chronicle-threads/affinity"
	"github.com/carrot-garden/chronicle-threads/handler"
	"github.com/carrot-garden/chronicle-threads/pauser"
	"github.com/rs/zerolog"
)

// BlockingLoop hosts handlers whose Action is expected to block for
// extended periods (e.g. waiting on a socket or a condition variable), so
// unlike Loop it dedicates one goroutine per handler rather than round
// robining a single goroutine across all of them — a handler stuck inside
// Action never starves its siblings.
//
// Grounded on the teacher's executor.go worker-per-slot lifecycle
// (stopCh/stoppedCh pair, sync.WaitGroup draining on Close), adapted from
// task-queue workers to long-lived handler hosts.
type BlockingLoop struct {
	name   string
	cpuID  int
	pauser pauser.Pauser
	log    zerolog.Logger

	mu       sync.Mutex
	entries  []*blockingEntry
	wg       sync.WaitGroup
	closed   atomic.Bool
	started  atomic.Bool
}

type blockingEntry struct {
	h         handler.EventHandler
	stopCh    chan struct{}
	startedMS atomic.Int64
}

func NewBlocking(name string, cpuID int, p pauser.Pauser, log zerolog.Logger) *BlockingLoop {
	return &BlockingLoop{
		name:   name,
		cpuID:  cpuID,
		pauser: p,
		log:    log.With().Str("loop", name).Logger(),
	}
}

func (b *BlockingLoop) Name() string { return b.name }

func (b *BlockingLoop) AddHandler(h handler.EventHandler) error {
	if b.closed.Load() {
		return ErrLoopClosed
	}
	entry := &blockingEntry{h: h, stopCh: make(chan struct{})}
	entry.startedMS.Store(StateIdle)

	b.mu.Lock()
	b.entries = append(b.entries, entry)
	b.mu.Unlock()

	if b.started.Load() {
		b.launch(entry)
	}
	return nil
}

func (b *BlockingLoop) Start() {
	if !b.started.CompareAndSwap(false, true) {
		return
	}
	b.mu.Lock()
	entries := append([]*blockingEntry(nil), b.entries...)
	b.mu.Unlock()
	for _, e := range entries {
		b.launch(e)
	}
}

func (b *BlockingLoop) launch(entry *blockingEntry) {
	b.wg.Add(1)
	go b.run(entry)
}

func (b *BlockingLoop) run(entry *blockingEntry) {
	defer b.wg.Done()

	if b.cpuID >= 0 {
		if err := affinity.Bind(b.cpuID); err != nil {
			b.log.Warn().Err(err).Int("cpu", b.cpuID).Msg("affinity bind failed, continuing unbound")
		}
		defer affinity.Unbind()
	}

	p := b.pauser
	for {
		select {
		case <-entry.stopCh:
			entry.startedMS.Store(StateTerminated)
			return
		default:
		}

		entry.startedMS.Store(nowMS())
		ok, err := entry.h.Action()
		entry.startedMS.Store(StateQuiet)

		if err != nil {
			if errors.Is(err, handler.ErrInvalid) {
				b.log.Warn().Err(err).Msg("blocking handler removed itself after error")
				entry.startedMS.Store(StateTerminated)
				b.removeEntry(entry)
				return
			}
			b.log.Warn().Err(err).Msg("blocking handler raised an error, keeping it registered")
			entry.startedMS.Store(StateIdle)
			p.Pause()
			continue
		}
		if ok {
			p.Reset()
		} else {
			entry.startedMS.Store(StateIdle)
			p.Pause()
		}
	}
}

func (b *BlockingLoop) removeEntry(target *blockingEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := make([]*blockingEntry, 0, len(b.entries))
	for _, e := range b.entries {
		if e != target {
			next = append(next, e)
		}
	}
	b.entries = next
}

func (b *BlockingLoop) Stop() {
	b.mu.Lock()
	entries := append([]*blockingEntry(nil), b.entries...)
	b.mu.Unlock()
	for _, e := range entries {
		select {
		case <-e.stopCh:
		default:
			close(e.stopCh)
		}
	}
	b.wg.Wait()
}

func (b *BlockingLoop) Close() {
	if b.closed.CompareAndSwap(false, true) {
		b.Stop()
	}
}

func (b *BlockingLoop) IsAlive() bool  { return b.started.Load() && !b.closed.Load() }
func (b *BlockingLoop) IsClosed() bool { return b.closed.Load() }

// LoopStartMS returns the oldest (most stalled) per-handler start
// timestamp, the worst case across all hosted handlers.
func (b *BlockingLoop) LoopStartMS() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == 0 {
		return StateIdle
	}
	worst := int64(0)
	for _, e := range b.entries {
		v := e.startedMS.Load()
		if v != StateIdle && v != StateTerminated && v != StateQuiet {
			if worst == 0 || v < worst {
				worst = v
			}
		}
	}
	if worst == 0 {
		return StateIdle
	}
	return worst
}

func (b *BlockingLoop) DumpRunningState(log zerolog.Logger, recheck func() bool) {
	b.mu.Lock()
	n := len(b.entries)
	b.mu.Unlock()
	log.Warn().
		Str("loop", b.name).
		Int("handlers", n).
		Bool("still_blocked", recheck()).
		Msg("dumping blocking loop state")
}
