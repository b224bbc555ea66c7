package group

import (
	"time"

	"github.com/carrot-garden/chronicle-threads/handler"
	"github.com/carrot-garden/chronicle-threads/loop"
	"github.com/carrot-garden/chronicle-threads/priority"
	"github.com/rs/zerolog"
)

// LoopBlockMonitor is a MONITOR-priority handler that watches a single
// loop's loopStartMS field from the monitor loop's goroutine and logs a
// dump when the loop appears stuck inside a handler for longer than the
// previous observation allowed.
//
// Escalation rule: let blocked be the milliseconds the loop has been
// stuck in its current handler and window be the observation window
// passed to NewLoopBlockMonitor.
// intervals = blocked / ((window+1)/2). A dump fires when intervals
// strictly exceeds lastInterval (and the target isn't in debug mode and
// is still alive); any poll that does NOT dump advances lastInterval to
// max(1, intervals) instead. lastInterval is never advanced on a poll
// that dumps, so once a stall pushes intervals past a frozen
// lastInterval, later polls with an even larger intervals keep exceeding
// that same frozen value — dumps repeat on every poll once a stall is
// truly underway rather than thinning out. A terminated target is
// reported once and then dropped by returning handler.ErrInvalid, which
// the hosting loop treats as a self-removal request.
type LoopBlockMonitor struct {
	name         string
	target       loop.EventLoop
	windowMS     int64
	debug        bool
	lastInterval int64
	log          zerolog.Logger
}

// NewLoopBlockMonitor builds a probe watching target over window. debug
// suppresses dumping, matching Jvm.isDebug() gating dumps off so a
// debugger breakpoint isn't mistaken for a stall.
func NewLoopBlockMonitor(name string, target loop.EventLoop, window time.Duration, debug bool, log zerolog.Logger) *LoopBlockMonitor {
	ms := window.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	return &LoopBlockMonitor{name: name, target: target, windowMS: ms, debug: debug, lastInterval: 1, log: log}
}

func (m *LoopBlockMonitor) Priority() priority.Priority { return priority.MONITOR }

func (m *LoopBlockMonitor) Action() (bool, error) {
	start := m.target.LoopStartMS()
	if start == loop.StateTerminated {
		m.log.Warn().Str("monitored_loop", m.name).Msg("monitoring a task which has finished")
		return false, handler.ErrInvalid
	}
	if start <= 0 || start == loop.StateIdle {
		return false, nil
	}

	now := time.Now().UnixMilli()
	blocked := now - start
	halfWindow := (m.windowMS + 1) / 2
	intervals := blocked / halfWindow

	if intervals > m.lastInterval && !m.debug && m.target.IsAlive() {
		capturedStart := start
		logger := m.log.With().Str("monitored_loop", m.name).Int64("blocked_ms", blocked).Logger()
		m.target.DumpRunningState(logger, func() bool {
			return m.target.LoopStartMS() == capturedStart
		})
		return true, nil
	}

	m.lastInterval = maxInt64(1, intervals)
	return false, nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
