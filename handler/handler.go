// Package handler defines the unit of cooperative work dispatched by an
// EventGroup and run by a loop.
package handler

import (
	"errors"

	"github.com/carrot-garden/chronicle-threads/priority"
)

// ErrInvalid is returned by Action to request permanent self-removal from
// the hosting loop. It is the Go analogue of the original's
// InvalidEventHandlerException: a loop that sees this error drops the
// handler and never invokes it again, without treating the loop itself as
// failed.
var ErrInvalid = errors.New("handler: invalid, requesting removal")

// EventHandler is one unit of cooperative work. A loop invokes Action
// repeatedly, round-robin with every other handler it owns, for as long as
// the handler is registered.
type EventHandler interface {
	// Priority selects the worker this handler is routed to. It must be
	// stable for the handler's entire lifetime.
	Priority() priority.Priority

	// Action performs one short, non-blocking step. The returned bool is a
	// progress flag (true if useful work was done this invocation); a loop
	// may use it to decide whether to keep polling eagerly or back off via
	// its pauser. Returning ErrInvalid (or an error satisfying
	// errors.Is(err, ErrInvalid)) requests permanent removal.
	Action() (progressed bool, err error)
}

// Identified is implemented by handlers routed with CONCURRENT priority.
// Identity must be stable and collision-tolerant: it only needs to spread
// handlers across the concurrent pool, not uniquely name them.
type Identified interface {
	Identity() uint64
}
