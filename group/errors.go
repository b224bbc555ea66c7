package group

import "errors"

var (
	// ErrUnknownPriority is returned by AddHandler when a handler reports a
	// Priority value outside the closed enum.
	ErrUnknownPriority = errors.New("group: unknown priority")
	// ErrClosed is returned by AddHandler once the group has been closed.
	ErrClosed = errors.New("group: closed")
)
