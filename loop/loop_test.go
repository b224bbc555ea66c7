package loop

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carrot-garden/chronicle-threads/handler"
	"github.com/carrot-garden/chronicle-threads/pauser"
	"github.com/carrot-garden/chronicle-threads/priority"
	"github.com/rs/zerolog"
)

// handlerFunc adapts a plain func to handler.EventHandler for tests.
type handlerFunc func() (bool, error)

func (f handlerFunc) Priority() priority.Priority { return priority.HIGH }
func (f handlerFunc) Action() (bool, error)       { return f() }

func TestLoopRunsRegisteredHandlers(t *testing.T) {
	var calls atomic.Int64
	h := handlerFunc(func() (bool, error) {
		calls.Add(1)
		return true, nil
	})

	l := New("test", false, -1, pauser.New(10, 10, time.Millisecond, 5*time.Millisecond), zerolog.Nop())
	if err := l.AddHandler(h); err != nil {
		t.Fatalf("AddHandler: %v", err)
	}
	l.Start()
	defer l.Close()

	deadline := time.Now().Add(time.Second)
	for calls.Load() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if calls.Load() < 5 {
		t.Fatalf("handler invoked only %d times", calls.Load())
	}
}

func TestLoopKeepsHandlerRegisteredOnTransientError(t *testing.T) {
	var calls atomic.Int64
	h := handlerFunc(func() (bool, error) {
		calls.Add(1)
		return false, errors.New("boom")
	})

	l := New("test", false, -1, pauser.New(10, 10, time.Millisecond, 5*time.Millisecond), zerolog.Nop())
	_ = l.AddHandler(h)
	l.Start()
	defer l.Close()

	deadline := time.Now().Add(time.Second)
	for calls.Load() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := calls.Load(); got < 5 {
		t.Fatalf("handler invoked only %d times, a transient error must not remove it", got)
	}
}

func TestLoopRemovesHandlerOnErrInvalid(t *testing.T) {
	var calls atomic.Int64
	h := handlerFunc(func() (bool, error) {
		n := calls.Add(1)
		if n == 1 {
			return false, handler.ErrInvalid
		}
		return true, nil
	})

	l := New("test", false, -1, pauser.New(10, 10, time.Millisecond, 5*time.Millisecond), zerolog.Nop())
	_ = l.AddHandler(h)
	l.Start()
	defer l.Close()

	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("handler invoked %d times after returning ErrInvalid, want exactly 1", got)
	}
}

func TestLoopStopIsIdempotentAndBlocksUntilExit(t *testing.T) {
	l := New("test", false, -1, pauser.New(0, 0, time.Millisecond, time.Millisecond), zerolog.Nop())
	l.Start()
	l.Stop()
	l.Stop() // must not panic or hang on a second call
	if l.IsAlive() {
		t.Error("loop should not report alive after Stop")
	}
}

func TestLoopAddHandlerAfterCloseFails(t *testing.T) {
	l := New("test", false, -1, pauser.New(0, 0, time.Millisecond, time.Millisecond), zerolog.Nop())
	l.Start()
	l.Close()
	if err := l.AddHandler(handlerFunc(func() (bool, error) { return false, nil })); err != ErrLoopClosed {
		t.Errorf("AddHandler after Close = %v, want ErrLoopClosed", err)
	}
}

func TestLoopStartMSSentinelIdleWhenUnused(t *testing.T) {
	l := New("test", false, -1, pauser.New(0, 0, time.Millisecond, time.Millisecond), zerolog.Nop())
	if got := l.LoopStartMS(); got != StateIdle {
		t.Errorf("LoopStartMS before Start = %d, want StateIdle", got)
	}
}
