package transplant

import (
	"testing"

	"github.com/james-see/octatools/pkg/octatrack"
)

func TestScanDefaultBank(t *testing.T) {
	refs := ScanBank(nil, octatrack.NewBank())

	// every track defaults to the static and flex slot of its own index
	if len(refs) != 2*octatrack.AudioTracks {
		t.Fatalf("ScanBank() found %d references, want %d", len(refs), 2*octatrack.AudioTracks)
	}
	for _, r := range refs.Sorted() {
		if r.Kind != Inactive {
			t.Errorf("reference %+v should be inactive", r)
		}
		if r.SlotID >= octatrack.AudioTracks {
			t.Errorf("unexpected reference %+v", r)
		}
	}
}

func TestScanBank(t *testing.T) {
	slots := []octatrack.SampleSlot{
		octatrack.NewSampleSlot(octatrack.Static, 5, "a.wav"),
		octatrack.NewSampleSlot(octatrack.Flex, 20, "b.wav"),
		octatrack.NewSampleSlot(octatrack.RecorderBuffer, 130, ""),
	}
	bank := octatrack.NewBank()
	for p := range bank.PartsUnsaved {
		for tr := range bank.PartsUnsaved[p].MachineSlots {
			bank.PartsUnsaved[p].MachineSlots[tr] = octatrack.MachineSlot{StaticSlotID: 5, FlexSlotID: 130}
		}
	}
	bank.PartsSaved[0].MachineSlots[0].StaticSlotID = 99
	bank.Patterns[2].AudioTracks[3].Plocks[10].FlexSlotID = 20
	bank.Patterns[2].AudioTracks[3].Plocks[11].StaticSlotID = 60
	bank.Patterns[15].AudioTracks[7].Plocks[63].StaticSlotID = 200

	refs := ScanBank(slots, bank)
	want := []SlotRef{
		{octatrack.Static, 5, Active},
		{octatrack.Static, 60, Inactive},
		{octatrack.Flex, 20, Active},
		{octatrack.RecorderBuffer, 130, Active},
	}
	got := refs.Sorted()
	if len(got) != len(want) {
		t.Fatalf("ScanBank() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ScanBank()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if refs.Contains(octatrack.Static, 99) {
		t.Error("saved parts should not be scanned")
	}
	if refs.Contains(octatrack.Static, 200) {
		t.Error("plock values above 127 are not references")
	}
}

func TestScanPatternsIgnoresUnset(t *testing.T) {
	patterns := []octatrack.Pattern{octatrack.NewPattern()}
	if refs := ScanPatterns(nil, patterns); len(refs) != 0 {
		t.Errorf("ScanPatterns(default) = %+v, want none", refs.Sorted())
	}
}
