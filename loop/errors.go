package loop

import "errors"

// ErrLoopClosed is returned by AddHandler once Close has been called.
var ErrLoopClosed = errors.New("loop: closed")
