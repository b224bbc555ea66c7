package group

import "testing"

func TestSlotHashIsStableForSameIdentity(t *testing.T) {
	a := slotHash(12345, 8)
	b := slotHash(12345, 8)
	if a != b {
		t.Errorf("slotHash not stable: %d != %d", a, b)
	}
}

func TestSlotHashInRange(t *testing.T) {
	for _, id := range []uint64{0, 1, 42, 1 << 40, ^uint64(0)} {
		slot := slotHash(id, 5)
		if slot < 0 || slot >= 5 {
			t.Errorf("slotHash(%d, 5) = %d, out of range", id, slot)
		}
	}
}

func TestSlotHashSpreadsSequentialIdentities(t *testing.T) {
	seen := map[int]bool{}
	for i := uint64(0); i < 64; i++ {
		seen[slotHash(i, 8)] = true
	}
	if len(seen) < 2 {
		t.Errorf("slotHash mapped 64 sequential identities onto only %d slot(s)", len(seen))
	}
}
