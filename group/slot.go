package group

import (
	"github.com/carrot-garden/chronicle-threads/loop"
	"github.com/carrot-garden/chronicle-threads/pauser"
)

// slot pairs a lazily created loop with the pauser instance that drives
// it, so the group can still reach the pauser directly for Unpause and
// stats reporting after the loop has swallowed it behind an interface.
type slot struct {
	l *loop.Loop
	p pauser.Pauser
}

// slotHash reproduces Chronicle's concurrent-handler placement function:
// fold the high bits into the low bits twice, clear the sign bit, then
// reduce mod the slot count. Kept as a pure function so it is trivially
// testable independent of any EventGroup.
func slotHash(id uint64, mod int) int {
	if mod <= 0 {
		return 0
	}
	n := uint32(id)
	folded := (n >> 23) ^ (n >> 9) ^ n
	return int(folded&0x7FFFFFFF) % mod
}
