package transplant

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/octatools/pkg/octatrack"
)

// OpKind is how a source slot is carried into the destination project
type OpKind int

const (
	// ReuseSlot points references at an existing destination slot (or the inactive sink)
	ReuseSlot OpKind = iota
	// NewSlot adds a copy of the source slot to the destination project
	NewSlot
)

func (k OpKind) String() string {
	if k == NewSlot {
		return "new"
	}
	return "reuse"
}

// MarshalText renders the kind by name in JSON and YAML output
func (k OpKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind written by MarshalText
func (k *OpKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "reuse":
		*k = ReuseSlot
	case "new":
		*k = NewSlot
	default:
		return fmt.Errorf("unknown operation kind %q", b)
	}
	return nil
}

// Operation maps one referenced source slot onto a destination slot. Ids are zero-indexed.
type Operation struct {
	Kind     OpKind               `json:"kind" yaml:"kind"`
	Inactive bool                 `json:"inactive" yaml:"inactive"`
	Src      octatrack.SampleSlot `json:"src" yaml:"src"`
	Dest     octatrack.SampleSlot `json:"dest" yaml:"dest"`
}

func (op Operation) reassignment() Reassignment {
	return Reassignment{Type: op.Src.Type, OldID: op.Src.SlotID, NewID: op.Dest.SlotID}
}

// FileTransfer is an audio file, and its attributes file when the source has one,
// to copy into the destination project. Paths are relative to their project directory
// unless absolute.
type FileTransfer struct {
	Audio          string `json:"audio" yaml:"audio"`
	Attributes     string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	DestAudio      string `json:"dest_audio" yaml:"dest_audio"`
	DestAttributes string `json:"dest_attributes" yaml:"dest_attributes"`
}

// Plan is the computed result of copying a bank into a destination project
type Plan struct {
	Project       *octatrack.Project `json:"-" yaml:"-"` // new destination project, one-indexed
	Bank          *octatrack.Bank    `json:"-" yaml:"-"` // rewritten source bank
	Operations    []Operation        `json:"operations" yaml:"operations"`
	Transfers     []FileTransfer     `json:"transfers" yaml:"transfers"`
	Deduplicated  []Reassignment     `json:"deduplicated" yaml:"deduplicated"`
	StaticSink    int                `json:"static_sink" yaml:"static_sink"`
	FlexSink      int                `json:"flex_sink" yaml:"flex_sink"`
	FreeStatic    int                `json:"free_static" yaml:"free_static"`
	FreeFlex      int                `json:"free_flex" yaml:"free_flex"`
	FieldsChanged int                `json:"fields_changed" yaml:"fields_changed"`
}

// Count returns how many operations of the given kind the plan holds, ignoring inactive remaps
func (p *Plan) Count(t octatrack.SampleType, kind OpKind) int {
	n := 0
	for _, op := range p.Operations {
		if !op.Inactive && op.Kind == kind && op.Src.Type == t {
			n++
		}
	}
	return n
}

// Inactive returns how many inactive references the plan remaps to the sinks
func (p *Plan) Inactive() int {
	n := 0
	for _, op := range p.Operations {
		if op.Inactive {
			n++
		}
	}
	return n
}

// resolvePath joins a slot path onto its project directory
func resolvePath(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, filepath.FromSlash(path))
}

// CheckSourceAudio verifies every loaded slot the bank references has its audio file
// on disk. srcDir is the source project directory.
func CheckSourceAudio(srcDir string, srcProject *octatrack.Project, srcBank *octatrack.Bank) error {
	slots, err := ToZeroIndexed(srcProject.Slots)
	if err != nil {
		return err
	}
	var missing []string
	for _, ref := range ScanBank(slots, srcBank).Sorted() {
		if ref.Kind != Active || ref.Type == octatrack.RecorderBuffer {
			continue
		}
		s, _ := findSlot(slots, ref.Type, ref.SlotID)
		path := resolvePath(srcDir, s.Path)
		if s.Path == "" {
			missing = append(missing, fmt.Sprintf("%s slot %d: no path", s.Type, s.SlotID+1))
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to check %s: %w", path, err)
			}
			missing = append(missing, fmt.Sprintf("%s slot %d: %s", s.Type, s.SlotID+1, path))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(missing, "; "), ErrMissingSourceAudio)
	}
	return nil
}

// destNamer picks destination file names for copied samples. A name is free when no
// other source file claimed it in this plan, no existing destination slot points at it,
// and any file already there has the same contents as the source.
type destNamer struct {
	srcDir, destDir string
	claimed         map[string]string // destination path -> source path
	referenced      map[string]bool
}

// newDestNamer names files copied from srcDir into destDir. referenced holds the
// absolute paths that slots already point at.
func newDestNamer(srcDir, destDir string, referenced map[string]bool) *destNamer {
	return &destNamer{srcDir: srcDir, destDir: destDir, claimed: map[string]string{}, referenced: referenced}
}

// slotPaths returns the absolute paths of the slots' files, relative paths resolved against dir
func slotPaths(dir string, slots []octatrack.SampleSlot) map[string]bool {
	paths := map[string]bool{}
	for _, s := range slots {
		if s.Path != "" {
			paths[filepath.Clean(resolvePath(dir, s.Path))] = true
		}
	}
	return paths
}

func (n *destNamer) free(src, dest string) (bool, error) {
	if owner, ok := n.claimed[dest]; ok {
		return owner == src, nil
	}
	if !exists(dest) {
		return !n.referenced[dest], nil
	}
	return sameContents(src, dest)
}

// name returns the destination path, relative to destDir, for the source audio path.
// Colliding names get a numeric suffix: kick.wav, kick-2.wav, kick-3.wav.
func (n *destNamer) name(srcPath string) (string, error) {
	src := resolvePath(n.srcDir, srcPath)
	base := filepath.Base(filepath.FromSlash(srcPath))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 1; ; i++ {
		name := base
		if i > 1 {
			name = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		dest := resolvePath(n.destDir, name)
		ok, err := n.free(src, dest)
		if err != nil {
			return "", err
		}
		if ok {
			n.claimed[dest] = src
			return name, nil
		}
	}
}

// PlanBankCopy computes how srcBank, with the sample slots of srcProject, is carried
// into destProject, the project in destDir. Neither input is modified and nothing is
// written to disk.
func PlanBankCopy(srcDir, destDir string, srcProject *octatrack.Project, srcBank *octatrack.Bank, destProject *octatrack.Project) (*Plan, error) {
	if err := CheckSourceAudio(srcDir, srcProject, srcBank); err != nil {
		return nil, err
	}

	srcSlots, err := ToZeroIndexed(srcProject.Slots)
	if err != nil {
		return nil, fmt.Errorf("source project: %w", err)
	}
	destSlots, err := ToZeroIndexed(destProject.Slots)
	if err != nil {
		return nil, fmt.Errorf("destination project: %w", err)
	}

	bank := srcBank.Clone()
	srcSlots, dedup := Dedup(srcSlots)
	ApplyReassignments(dedup, bank)

	staticSink, err := LastEmptySlot(destSlots, octatrack.Static)
	if err != nil {
		return nil, err
	}
	flexSink, err := LastEmptySlot(destSlots, octatrack.Flex)
	if err != nil {
		return nil, err
	}
	pools := map[octatrack.SampleType]*slotPool{
		octatrack.Static: newSlotPool(FreeSlotIDs(destSlots, octatrack.Static), staticSink),
		octatrack.Flex:   newSlotPool(FreeSlotIDs(destSlots, octatrack.Flex), flexSink),
	}
	sinks := map[octatrack.SampleType]int{
		octatrack.Static: staticSink,
		octatrack.Flex:   flexSink,
	}

	plan := &Plan{
		Deduplicated: dedup,
		StaticSink:   staticSink,
		FlexSink:     flexSink,
		FreeStatic:   pools[octatrack.Static].Len(),
		FreeFlex:     pools[octatrack.Flex].Len(),
	}

	var inactive, reuse, inserts []Operation
	for _, ref := range ScanBank(srcSlots, bank).Sorted() {
		if ref.Type == octatrack.RecorderBuffer {
			continue
		}
		if ref.Kind == Inactive {
			src := octatrack.SampleSlot{Type: ref.Type, SlotID: ref.SlotID}
			dest := octatrack.NewSampleSlot(ref.Type, sinks[ref.Type], "")
			inactive = append(inactive, Operation{Kind: ReuseSlot, Inactive: true, Src: src, Dest: dest})
			continue
		}
		src, _ := findSlot(srcSlots, ref.Type, ref.SlotID)
		if dest, ok := findSettingsMatch(src, destSlots); ok {
			reuse = append(reuse, Operation{Kind: ReuseSlot, Src: src, Dest: dest})
			continue
		}
		inserts = append(inserts, Operation{Kind: NewSlot, Src: src})
	}

	for _, t := range []octatrack.SampleType{octatrack.Static, octatrack.Flex} {
		need := 0
		for _, op := range inserts {
			if op.Src.Type == t {
				need++
			}
		}
		if free := pools[t].Len(); need > free {
			return nil, fmt.Errorf("destination needs %d new %s slots but has %d free: %w", need, t, free, ErrInsufficientSlots)
		}
	}

	names := newDestNamer(srcDir, destDir, slotPaths(destDir, destSlots))
	newSlots := append([]octatrack.SampleSlot(nil), destSlots...)
	for i := range inserts {
		op := &inserts[i]
		id, ok := pools[op.Src.Type].pop()
		if !ok {
			return nil, fmt.Errorf("no free %s slot left: %w", op.Src.Type, ErrInsufficientSlots)
		}
		op.Dest = op.Src
		op.Dest.SlotID = id
		if op.Dest.Path, err = names.name(op.Src.Path); err != nil {
			return nil, err
		}
		newSlots = append(newSlots, op.Dest)

		t := FileTransfer{
			Audio:          op.Src.Path,
			DestAudio:      op.Dest.Path,
			DestAttributes: octatrack.AttributesPath(op.Dest.Path),
		}
		attrs := octatrack.AttributesPath(op.Src.Path)
		if _, err := os.Stat(resolvePath(srcDir, attrs)); err == nil {
			t.Attributes = attrs
		}
		plan.Transfers = append(plan.Transfers, t)
	}

	w := newRewriter(bank)
	for _, pass := range [][]Operation{inactive, reuse, inserts} {
		rs := make([]Reassignment, 0, len(pass))
		for _, op := range pass {
			rs = append(rs, op.reassignment())
		}
		plan.FieldsChanged += w.applyPass(rs)
	}

	plan.Operations = append(append(append(plan.Operations, inactive...), reuse...), inserts...)
	plan.Bank = bank

	project := *destProject
	octatrack.SortSlots(newSlots)
	project.Slots = ToOneIndexed(newSlots)
	plan.Project = &project

	if err := checkUnique(project.Slots); err != nil {
		return nil, err
	}
	return plan, nil
}

func checkUnique(slots []octatrack.SampleSlot) error {
	seen := make(map[slotKey]bool, len(slots))
	for _, s := range slots {
		k := slotKey{s.Type, s.SlotID}
		if seen[k] {
			return fmt.Errorf("planned %s slot %d twice", s.Type, s.SlotID)
		}
		seen[k] = true
	}
	return nil
}
