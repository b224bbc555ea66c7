package group

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/carrot-garden/chronicle-threads/internal/config"
	"github.com/carrot-garden/chronicle-threads/priority"
)

type testHandler struct {
	priority priority.Priority
	identity uint64
	hasID    bool
	calls    atomic.Int64
}

func (h *testHandler) Priority() priority.Priority { return h.priority }
func (h *testHandler) Action() (bool, error) {
	h.calls.Add(1)
	return true, nil
}
func (h *testHandler) Identity() uint64 { return h.identity }

func newSettings() config.Settings {
	return config.Settings{
		ReplicationMonitorIntervalMS: 50,
		MonitorIntervalMS:            20,
		ConcThreads:                  2,
		ReplicationEventPauseTime:    5,
	}
}

func TestEventGroupRoutesCoreHandler(t *testing.T) {
	g := New(false, WithSettings(newSettings()))
	defer g.Close()

	h := &testHandler{priority: priority.HIGH}
	if err := g.AddHandler(h); err != nil {
		t.Fatalf("AddHandler: %v", err)
	}
	g.Start()

	deadline := time.Now().Add(time.Second)
	for h.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if h.calls.Load() < 3 {
		t.Fatalf("core handler invoked only %d times", h.calls.Load())
	}
}

func TestEventGroupLazilyCreatesReplicationLoop(t *testing.T) {
	g := New(false, WithSettings(newSettings()))
	defer g.Close()

	snapshotBefore := g.Snapshot()
	if snapshotBefore["replication_created"].(bool) {
		t.Fatal("replication loop should not exist before any REPLICATION handler is added")
	}

	h := &testHandler{priority: priority.REPLICATION}
	if err := g.AddHandler(h); err != nil {
		t.Fatalf("AddHandler: %v", err)
	}

	snapshotAfter := g.Snapshot()
	if !snapshotAfter["replication_created"].(bool) {
		t.Fatal("replication loop should exist after a REPLICATION handler is added")
	}

	deadline := time.Now().Add(time.Second)
	for h.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if h.calls.Load() < 3 {
		t.Fatalf("replication handler invoked only %d times", h.calls.Load())
	}
}

func TestEventGroupConcurrentHandlersWithSameIdentityShareASlot(t *testing.T) {
	g := New(false, WithSettings(newSettings()))
	defer g.Close()

	h1 := &testHandler{priority: priority.CONCURRENT, identity: 7}
	h2 := &testHandler{priority: priority.CONCURRENT, identity: 7}
	_ = g.AddHandler(h1)
	_ = g.AddHandler(h2)

	idx1 := g.slotFor(h1)
	idx2 := g.slotFor(h2)
	if idx1 != idx2 {
		t.Errorf("handlers with identity 7 mapped to different slots: %d != %d", idx1, idx2)
	}
}

type unidentifiedHandler struct {
	priority priority.Priority
	calls    atomic.Int64
}

func (h *unidentifiedHandler) Priority() priority.Priority { return h.priority }
func (h *unidentifiedHandler) Action() (bool, error) {
	h.calls.Add(1)
	return true, nil
}

func TestEventGroupSlotForIsStableForUnidentifiedHandler(t *testing.T) {
	g := New(false, WithSettings(newSettings()))
	defer g.Close()

	h := &unidentifiedHandler{priority: priority.CONCURRENT}
	idx1 := g.slotFor(h)
	idx2 := g.slotFor(h)
	if idx1 != idx2 {
		t.Errorf("same handler mapped to different slots across calls: %d != %d", idx1, idx2)
	}
}

func TestEventGroupAddHandlerDeferredDelegatesToAddHandler(t *testing.T) {
	g := New(false, WithSettings(newSettings()))
	defer g.Close()

	h := &testHandler{priority: priority.HIGH}
	if err := g.AddHandlerDeferred(true, h); err != nil {
		t.Fatalf("AddHandlerDeferred: %v", err)
	}
	g.Start()

	deadline := time.Now().Add(time.Second)
	for h.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if h.calls.Load() < 3 {
		t.Fatalf("handler added via AddHandlerDeferred invoked only %d times", h.calls.Load())
	}
}

func TestEventGroupUnpauseBeforeStartDoesNotBlock(t *testing.T) {
	g := New(false, WithSettings(newSettings()))
	defer g.Close()
	// Unpause must not panic or block even before replication/concurrent
	// slots exist, and must not require the group to be started.
	g.Unpause()
}

func TestEventGroupAddHandlerAfterCloseFails(t *testing.T) {
	g := New(false, WithSettings(newSettings()))
	g.Start()
	g.Close()

	if err := g.AddHandler(&testHandler{priority: priority.HIGH}); err != ErrClosed {
		t.Errorf("AddHandler after Close = %v, want ErrClosed", err)
	}
}

func TestEventGroupUnknownPriorityRejected(t *testing.T) {
	g := New(false, WithSettings(newSettings()))
	defer g.Close()

	if err := g.AddHandler(&testHandler{priority: priority.Priority(99)}); err != ErrUnknownPriority {
		t.Errorf("AddHandler with unknown priority = %v, want ErrUnknownPriority", err)
	}
}
