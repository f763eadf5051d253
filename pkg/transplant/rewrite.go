package transplant

import (
	"sort"

	"github.com/james-see/octatools/pkg/octatrack"
)

// Reassignment moves every bank reference of a zero-indexed slot to another id
type Reassignment struct {
	Type  octatrack.SampleType `json:"type" yaml:"type"`
	OldID int                  `json:"old_id" yaml:"old_id"`
	NewID int                  `json:"new_id" yaml:"new_id"`
}

// rewriter applies reassignments to a bank. Each field is rewritten at most once,
// so a reference moved to an id that is itself being reassigned is not moved again.
type rewriter struct {
	bank       *octatrack.Bank
	savedParts bool
	plocks     [octatrack.PatternsPerBank][octatrack.AudioTracks][octatrack.Steps][2]bool
	unsaved    [octatrack.PartsPerBank][octatrack.AudioTracks][2]bool
	saved      [octatrack.PartsPerBank][octatrack.AudioTracks][2]bool
}

func newRewriter(bank *octatrack.Bank) *rewriter {
	return &rewriter{bank: bank}
}

// field indexes into the rewritten masks
const (
	staticField = 0
	flexField   = 1
)

func fieldFor(t octatrack.SampleType) (int, bool) {
	switch t {
	case octatrack.Static:
		return staticField, true
	case octatrack.Flex:
		return flexField, true
	default:
		return 0, false
	}
}

func rewriteField(v *uint8, done *bool, from, to int) int {
	if *done || int(*v) != from {
		return 0
	}
	*v = uint8(to)
	*done = true
	return 1
}

// apply rewrites one reassignment and returns the number of fields changed
func (w *rewriter) apply(r Reassignment) int {
	f, ok := fieldFor(r.Type)
	if !ok || r.OldID == r.NewID {
		return 0
	}
	n := 0
	for p := range w.bank.Patterns {
		for t := range w.bank.Patterns[p].AudioTracks {
			plocks := &w.bank.Patterns[p].AudioTracks[t].Plocks
			for s := range plocks {
				v := &plocks[s].StaticSlotID
				if f == flexField {
					v = &plocks[s].FlexSlotID
				}
				if !plockSet(*v) {
					continue
				}
				n += rewriteField(v, &w.plocks[p][t][s][f], r.OldID, r.NewID)
			}
		}
	}
	n += w.applyParts(&w.bank.PartsUnsaved, &w.unsaved, f, r)
	if w.savedParts {
		n += w.applyParts(&w.bank.PartsSaved, &w.saved, f, r)
	}
	return n
}

func (w *rewriter) applyParts(parts *[octatrack.PartsPerBank]octatrack.Part, mask *[octatrack.PartsPerBank][octatrack.AudioTracks][2]bool, f int, r Reassignment) int {
	n := 0
	for p := range parts {
		for t := range parts[p].MachineSlots {
			ms := &parts[p].MachineSlots[t]
			v := &ms.StaticSlotID
			if f == flexField {
				v = &ms.FlexSlotID
			}
			n += rewriteField(v, &mask[p][t][f], r.OldID, r.NewID)
		}
	}
	return n
}

// applyPass applies reassignments in descending order of the id being replaced
func (w *rewriter) applyPass(rs []Reassignment) int {
	sorted := append([]Reassignment(nil), rs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OldID > sorted[j].OldID
	})
	n := 0
	for _, r := range sorted {
		n += w.apply(r)
	}
	return n
}

// ApplyReassignments rewrites the plocks and unsaved parts of bank in place and
// returns the number of fields changed
func ApplyReassignments(rs []Reassignment, bank *octatrack.Bank) int {
	return newRewriter(bank).applyPass(rs)
}
