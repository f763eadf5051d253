package transplant

import (
	"fmt"
	"sort"

	"github.com/james-see/octatools/pkg/octatrack"
)

// RefKind tells whether a bank reference points at a slot the project has
type RefKind int

const (
	// Active references point at a loaded sample slot
	Active RefKind = iota
	// Inactive references point at an empty slot, usually a track's default machine slot
	Inactive
)

func (k RefKind) String() string {
	if k == Active {
		return "active"
	}
	return "inactive"
}

// MarshalText renders the kind by name in JSON and YAML output
func (k RefKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind written by MarshalText
func (k *RefKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "active":
		*k = Active
	case "inactive":
		*k = Inactive
	default:
		return fmt.Errorf("unknown reference kind %q", b)
	}
	return nil
}

// SlotRef is a reference from bank data to a zero-indexed sample slot
type SlotRef struct {
	Type   octatrack.SampleType `json:"type" yaml:"type"`
	SlotID int                  `json:"slot_id" yaml:"slot_id"`
	Kind   RefKind              `json:"kind" yaml:"kind"`
}

type slotKey struct {
	t  octatrack.SampleType
	id int
}

// RefSet is a set of slot references keyed by slot type and id
type RefSet map[slotKey]SlotRef

func (s RefSet) add(r SlotRef) {
	s[slotKey{r.Type, r.SlotID}] = r
}

// Union adds every reference of o to s
func (s RefSet) Union(o RefSet) RefSet {
	for k, r := range o {
		s[k] = r
	}
	return s
}

// Contains reports whether the set holds a reference to slot (t, id)
func (s RefSet) Contains(t octatrack.SampleType, id int) bool {
	_, ok := s[slotKey{t, id}]
	return ok
}

// Sorted returns the references ordered by type then id
func (s RefSet) Sorted() []SlotRef {
	refs := make([]SlotRef, 0, len(s))
	for _, r := range s {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Type != refs[j].Type {
			return refs[i].Type < refs[j].Type
		}
		return refs[i].SlotID < refs[j].SlotID
	})
	return refs
}

type classifier map[slotKey]bool

func newClassifier(slots []octatrack.SampleSlot) classifier {
	c := make(classifier, len(slots))
	for _, s := range slots {
		c[slotKey{s.Type, s.SlotID}] = true
	}
	return c
}

func (c classifier) ref(t octatrack.SampleType, id int) SlotRef {
	kind := Inactive
	if c[slotKey{t, id}] {
		kind = Active
	}
	return SlotRef{Type: t, SlotID: id, Kind: kind}
}

// plockSet reports whether a plock slot field holds an override
func plockSet(v uint8) bool {
	return int(v) <= octatrack.MaxSlotID
}

// machineSlotType classifies a machine slot field. Flex machines address the
// recorder buffers with ids from 128.
func machineSlotType(t octatrack.SampleType, v uint8) octatrack.SampleType {
	if t == octatrack.Flex && int(v) >= octatrack.RecorderSlotBase {
		return octatrack.RecorderBuffer
	}
	return t
}

// ScanPatterns finds every slot referenced by the plocks of the patterns' audio tracks.
// slots are zero-indexed.
func ScanPatterns(slots []octatrack.SampleSlot, patterns []octatrack.Pattern) RefSet {
	c := newClassifier(slots)
	refs := RefSet{}
	for p := range patterns {
		for t := range patterns[p].AudioTracks {
			for _, pl := range patterns[p].AudioTracks[t].Plocks {
				if plockSet(pl.StaticSlotID) {
					refs.add(c.ref(octatrack.Static, int(pl.StaticSlotID)))
				}
				if plockSet(pl.FlexSlotID) {
					refs.add(c.ref(octatrack.Flex, int(pl.FlexSlotID)))
				}
			}
		}
	}
	return refs
}

// ScanParts finds every slot assigned to the parts' audio track machines.
// Default assignments count, so tracks without a sample give Inactive references.
func ScanParts(slots []octatrack.SampleSlot, parts []octatrack.Part) RefSet {
	c := newClassifier(slots)
	refs := RefSet{}
	for p := range parts {
		for _, ms := range parts[p].MachineSlots {
			refs.add(c.ref(octatrack.Static, int(ms.StaticSlotID)))
			refs.add(c.ref(machineSlotType(octatrack.Flex, ms.FlexSlotID), int(ms.FlexSlotID)))
		}
	}
	return refs
}

// ScanBank finds the slots referenced by a bank's patterns and unsaved parts.
// Saved parts are only restored on the device and are not scanned.
func ScanBank(slots []octatrack.SampleSlot, bank *octatrack.Bank) RefSet {
	refs := ScanPatterns(slots, bank.Patterns[:])
	return refs.Union(ScanParts(slots, bank.PartsUnsaved[:]))
}
