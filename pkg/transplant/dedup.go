package transplant

import (
	"github.com/james-see/octatools/pkg/octatrack"
)

// Dedup collapses slots holding the same sample with the same settings onto the one
// with the lowest id. It returns the remaining slots and a reassignment for every
// removed slot. Recorder buffers are never merged.
func Dedup(slots []octatrack.SampleSlot) ([]octatrack.SampleSlot, []Reassignment) {
	sorted := append([]octatrack.SampleSlot(nil), slots...)
	octatrack.SortSlots(sorted)

	var (
		kept []octatrack.SampleSlot
		rs   []Reassignment
	)
	for _, s := range sorted {
		if s.Type != octatrack.RecorderBuffer {
			if canon, ok := findSettingsMatch(s, kept); ok {
				rs = append(rs, Reassignment{Type: s.Type, OldID: s.SlotID, NewID: canon.SlotID})
				continue
			}
		}
		kept = append(kept, s)
	}
	return kept, rs
}
