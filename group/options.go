package group

import (
	"github.com/carrot-garden/chronicle-threads/internal/config"
	"github.com/carrot-garden/chronicle-threads/pauser"
	"github.com/rs/zerolog"
)

// Option configures an EventGroup at construction time, replacing the
// Java constructor-overload family with the functional-options idiom.
//
// Grounded on the teacher's server/options.go ServerOption pattern
// (WithMiddleware/WithAffinityScope/WithBatchSize/WithExecutorWorkers).
type Option func(*EventGroup)

// WithName sets the prefix used when naming loops and their pausers in
// logs and dumps.
func WithName(name string) Option {
	return func(g *EventGroup) { g.name = name }
}

// WithLogger overrides the default no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(g *EventGroup) { g.log = log }
}

// WithBinding requests that the core, replication and concurrent-pool
// loops bind their worker threads to specific CPUs. A nil or short slice
// leaves the corresponding loop unbound (cpuID -1).
func WithBinding(coreCPU, replicationCPU int, concurrentCPUs []int) Option {
	return func(g *EventGroup) {
		g.coreCPU = coreCPU
		g.replicationCPU = replicationCPU
		g.concurrentCPUs = append([]int(nil), concurrentCPUs...)
	}
}

// WithConcThreads overrides the concurrent-pool slot count otherwise
// read from config.Settings.ConcThreads.
func WithConcThreads(n int) Option {
	return func(g *EventGroup) {
		if n > 0 {
			g.concThreads = n
		}
	}
}

// WithSettings overrides the config.Settings otherwise read from the
// environment via config.Load at construction time.
func WithSettings(s config.Settings) Option {
	return func(g *EventGroup) { g.settings = s }
}

// WithPauser sets the core loop's Pauser directly, the Go equivalent of
// the original's EventGroup(daemon, pauser, binding) constructor overload.
func WithPauser(p pauser.Pauser) Option {
	return func(g *EventGroup) { g.corePauserFn = func(bool) pauser.Pauser { return p } }
}

// WithCorePauserSupplier overrides how the core loop's Pauser is built,
// for callers that want debug-mode awareness rather than a fixed Pauser.
func WithCorePauserSupplier(f func(debug bool) pauser.Pauser) Option {
	return func(g *EventGroup) { g.corePauserFn = f }
}

// WithConcPauserSupplier overrides how replication and concurrent-pool
// loop Pausers are built. Exposed separately from construction because
// Chronicle's EventGroup.setConcurrentEventPauser is a post-construction
// escape hatch in the original; this option is the constructor-time
// equivalent and SetConcThreadPauserSupplier the runtime one.
func WithConcPauserSupplier(f func(pauseTimeMS int64, debug bool) pauser.Pauser) Option {
	return func(g *EventGroup) { g.concPauserFn = f }
}

// WithDebug enables the wider, debug-friendly pauser backoff ceilings
// used by the teacher's own debug builds.
func WithDebug(debug bool) Option {
	return func(g *EventGroup) { g.debug = debug }
}
