// Package transplant copies banks between Octatrack projects, reallocating the sample
// slots each bank references so playback in the destination project stays correct
package transplant

import (
	"fmt"
	"sort"

	"github.com/james-see/octatools/pkg/octatrack"
)

// freeSlotLimit is one past the highest id handed out for new slots.
// Slot 127 is kept back so there is always a candidate for the inactive sink.
const freeSlotLimit = octatrack.MaxSlotID

// ToZeroIndexed returns a copy of slots with ids shifted from on-disk (1-indexed) to zero-indexed
func ToZeroIndexed(slots []octatrack.SampleSlot) ([]octatrack.SampleSlot, error) {
	out := make([]octatrack.SampleSlot, len(slots))
	for i, s := range slots {
		if s.SlotID < 1 {
			return nil, fmt.Errorf("%s slot id %d is not one-indexed: %w", s.Type, s.SlotID, ErrFormat)
		}
		s.SlotID--
		out[i] = s
	}
	return out, nil
}

// ToOneIndexed returns a copy of slots with ids shifted from zero-indexed to on-disk
func ToOneIndexed(slots []octatrack.SampleSlot) []octatrack.SampleSlot {
	out := make([]octatrack.SampleSlot, len(slots))
	for i, s := range slots {
		s.SlotID++
		out[i] = s
	}
	return out
}

// EqualForDedup reports whether two slots hold the same sample with the same settings.
// Only the slot id is ignored.
func EqualForDedup(a, b octatrack.SampleSlot) bool {
	a.SlotID = b.SlotID
	return a == b
}

// FreeSlotIDs returns the zero-indexed ids in 0-126 not used by a slot of type t, ascending
func FreeSlotIDs(slots []octatrack.SampleSlot, t octatrack.SampleType) []int {
	used := usedIDs(slots, t)
	var free []int
	for id := 0; id < freeSlotLimit; id++ {
		if !used[id] {
			free = append(free, id)
		}
	}
	return free
}

// LastEmptySlot returns the greatest zero-indexed id in 0-127 not used by a slot of type t
func LastEmptySlot(slots []octatrack.SampleSlot, t octatrack.SampleType) (int, error) {
	used := usedIDs(slots, t)
	for id := octatrack.MaxSlotID; id >= 0; id-- {
		if !used[id] {
			return id, nil
		}
	}
	return 0, fmt.Errorf("no empty %s slot in project: %w", t, ErrInsufficientSlots)
}

func usedIDs(slots []octatrack.SampleSlot, t octatrack.SampleType) map[int]bool {
	used := make(map[int]bool, len(slots))
	for _, s := range slots {
		if s.Type == t {
			used[s.SlotID] = true
		}
	}
	return used
}

// findSettingsMatch returns the lowest-id slot in slots equal to candidate for deduplication
func findSettingsMatch(candidate octatrack.SampleSlot, slots []octatrack.SampleSlot) (octatrack.SampleSlot, bool) {
	var (
		best  octatrack.SampleSlot
		found bool
	)
	for _, s := range slots {
		if !EqualForDedup(candidate, s) {
			continue
		}
		if !found || s.SlotID < best.SlotID {
			best, found = s, true
		}
	}
	return best, found
}

func findSlot(slots []octatrack.SampleSlot, t octatrack.SampleType, id int) (octatrack.SampleSlot, bool) {
	for _, s := range slots {
		if s.Type == t && s.SlotID == id {
			return s, true
		}
	}
	return octatrack.SampleSlot{}, false
}

// slotPool hands out free ids from the top of the range down
type slotPool struct {
	ids []int // ascending
}

func newSlotPool(free []int, reserved int) *slotPool {
	p := &slotPool{}
	for _, id := range free {
		if id != reserved {
			p.ids = append(p.ids, id)
		}
	}
	sort.Ints(p.ids)
	return p
}

func (p *slotPool) Len() int { return len(p.ids) }

func (p *slotPool) pop() (int, bool) {
	if len(p.ids) == 0 {
		return 0, false
	}
	id := p.ids[len(p.ids)-1]
	p.ids = p.ids[:len(p.ids)-1]
	return id, true
}
