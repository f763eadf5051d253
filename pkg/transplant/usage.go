package transplant

import (
	"fmt"
	"sort"

	"github.com/james-see/octatools/pkg/octatrack"
)

// SlotUsage is a sample slot and the banks that reference it. SlotID is one-indexed.
type SlotUsage struct {
	Type   octatrack.SampleType `json:"type" yaml:"type"`
	SlotID int                  `json:"slot_id" yaml:"slot_id"`
	Loaded bool                 `json:"loaded" yaml:"loaded"`
	Path   string               `json:"path,omitempty" yaml:"path,omitempty"`
	Banks  []int                `json:"banks" yaml:"banks"`
}

type usageIndex struct {
	slots []octatrack.SampleSlot // zero-indexed
	byKey map[slotKey]*SlotUsage
}

func newUsageIndex(project *octatrack.Project) (*usageIndex, error) {
	slots, err := ToZeroIndexed(project.Slots)
	if err != nil {
		return nil, err
	}
	return &usageIndex{slots: slots, byKey: map[slotKey]*SlotUsage{}}, nil
}

func (u *usageIndex) addBank(n int, bank *octatrack.Bank) {
	u.addRefs(n, ScanBank(u.slots, bank))
}

func (u *usageIndex) addRefs(n int, refs RefSet) {
	for _, ref := range refs.Sorted() {
		k := slotKey{ref.Type, ref.SlotID}
		su, ok := u.byKey[k]
		if !ok {
			su = &SlotUsage{Type: ref.Type, SlotID: ref.SlotID + 1, Loaded: ref.Kind == Active}
			if s, found := findSlot(u.slots, ref.Type, ref.SlotID); found {
				su.Path = s.Path
			}
			u.byKey[k] = su
		}
		su.Banks = append(su.Banks, n)
	}
}

func (u *usageIndex) addUnreferenced() {
	for _, s := range u.slots {
		k := slotKey{s.Type, s.SlotID}
		if _, ok := u.byKey[k]; !ok {
			u.byKey[k] = &SlotUsage{Type: s.Type, SlotID: s.SlotID + 1, Loaded: true, Path: s.Path, Banks: []int{}}
		}
	}
}

func (u *usageIndex) list() []SlotUsage {
	out := make([]SlotUsage, 0, len(u.byKey))
	for _, su := range u.byKey {
		out = append(out, *su)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].SlotID < out[j].SlotID
	})
	return out
}

// loadBank reads the project in dir and its bank n
func loadBank(dir string, n int) (*usageIndex, *octatrack.Bank, error) {
	if !validIndex(n) {
		return nil, nil, fmt.Errorf("bank %d: %w", n, ErrInvalidIndex)
	}
	project, err := octatrack.ReadProjectFile(octatrack.ProjectFile(dir))
	if err != nil {
		return nil, nil, err
	}
	bank, err := octatrack.ReadBankFile(octatrack.BankFile(dir, n))
	if err != nil {
		return nil, nil, err
	}
	u, err := newUsageIndex(project)
	if err != nil {
		return nil, nil, err
	}
	return u, bank, nil
}

// ListBankUsage lists the slots referenced by bank n of the project in dir,
// including references to empty slots
func ListBankUsage(dir string, n int) ([]SlotUsage, error) {
	u, bank, err := loadBank(dir, n)
	if err != nil {
		return nil, err
	}
	u.addBank(n, bank)
	return u.list(), nil
}

// ListPatternUsage lists the slots the plocks of pattern p (1-16) of bank n reference
func ListPatternUsage(dir string, n, p int) ([]SlotUsage, error) {
	if p < 1 || p > octatrack.PatternsPerBank {
		return nil, fmt.Errorf("pattern %d, must be between 1 and %d", p, octatrack.PatternsPerBank)
	}
	u, bank, err := loadBank(dir, n)
	if err != nil {
		return nil, err
	}
	u.addRefs(n, ScanPatterns(u.slots, bank.Patterns[p-1:p]))
	return u.list(), nil
}

// ListPartUsage lists the slots part p (1-4) of bank n assigns to its machines.
// saved selects the saved copy of the part instead of the working one.
func ListPartUsage(dir string, n, p int, saved bool) ([]SlotUsage, error) {
	if p < 1 || p > octatrack.PartsPerBank {
		return nil, fmt.Errorf("part %d, must be between 1 and %d", p, octatrack.PartsPerBank)
	}
	u, bank, err := loadBank(dir, n)
	if err != nil {
		return nil, err
	}
	parts := bank.PartsUnsaved[p-1 : p]
	if saved {
		parts = bank.PartsSaved[p-1 : p]
	}
	u.addRefs(n, ScanParts(u.slots, parts))
	return u.list(), nil
}

// LoadedOnly drops usages of empty slots
func LoadedOnly(usage []SlotUsage) []SlotUsage {
	out := make([]SlotUsage, 0, len(usage))
	for _, su := range usage {
		if su.Loaded {
			out = append(out, su)
		}
	}
	return out
}

// ListProjectUsage lists every slot of the project in dir and every slot its banks
// reference, with the banks referencing each. Missing bank files are skipped.
func ListProjectUsage(dir string) ([]SlotUsage, error) {
	project, err := octatrack.ReadProjectFile(octatrack.ProjectFile(dir))
	if err != nil {
		return nil, err
	}
	u, err := newUsageIndex(project)
	if err != nil {
		return nil, err
	}
	for n := 1; n <= octatrack.MaxBanks; n++ {
		path := octatrack.BankFile(dir, n)
		if !exists(path) {
			continue
		}
		bank, err := octatrack.ReadBankFile(path)
		if err != nil {
			return nil, err
		}
		u.addBank(n, bank)
	}
	u.addUnreferenced()
	return u.list(), nil
}
