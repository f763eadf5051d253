package octatrack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestRecordSizes(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want int
	}{
		{"Bank", new(Bank), BankSize},
		{"Pattern", new(Pattern), PatternSize},
		{"Part", new(Part), PartSize},
		{"AudioTrackTrigs", new(AudioTrackTrigs), 2338},
		{"MidiTrackTrigs", new(MidiTrackTrigs), 2233},
		{"AudioPlock", new(AudioPlock), 32},
		{"Attributes", new(Attributes), AttributesSize},
		{"rawArrangeBlock", new(rawArrangeBlock), 5650},
		{"rawArrangement", new(rawArrangement), ArrangementSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := binary.Size(tt.v); got != tt.want {
				t.Errorf("binary.Size(%s) = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestNewBankIsDefault(t *testing.T) {
	b := NewBank()
	if !b.IsDefault() {
		t.Fatal("NewBank().IsDefault() = false, want true")
	}

	b.Checksum = [2]uint8{0x12, 0x34}
	if !b.IsDefault() {
		t.Error("IsDefault() should ignore the checksum")
	}

	SetStep(&b.Patterns[3].AudioTracks[2].Masks.Trigger, 5, true)
	if b.IsDefault() {
		t.Error("IsDefault() = true after adding a trig, want false")
	}
}

func TestBankRoundTrip(t *testing.T) {
	b := NewBank()
	b.Patterns[0].AudioTracks[0].Plocks[12].StaticSlotID = 7
	b.Patterns[15].AudioTracks[7].Plocks[63].FlexSlotID = 99
	b.PartsUnsaved[2].MachineSlots[4].StaticSlotID = 42
	b.PartsSaved[1].MachineSlots[0].FlexSlotID = 3

	data, err := b.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(data) != BankSize {
		t.Fatalf("Encode() returned %d bytes, want %d", len(data), BankSize)
	}
	if !bytes.Equal(data[:22], bankHeader[:]) {
		t.Errorf("Encode() header = % x, want % x", data[:22], bankHeader)
	}

	got, err := DecodeBank(data)
	if err != nil {
		t.Fatalf("DecodeBank() error = %v", err)
	}
	if *got != *b {
		t.Error("DecodeBank(Encode()) does not match the original bank")
	}
	if got.PartsUnsaved[2].MachineSlots[4].StaticSlotID != 42 {
		t.Errorf("unsaved part 3 track 5 static slot = %d, want 42", got.PartsUnsaved[2].MachineSlots[4].StaticSlotID)
	}
}

func TestDecodeBankErrors(t *testing.T) {
	valid, err := NewBank().Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	badHeader := append([]byte(nil), valid...)
	badHeader[0] = 'X'

	badPattern := append([]byte(nil), valid...)
	badPattern[22+PatternSize] = 'X'

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", valid[:BankSize-1]},
		{"too long", append(append([]byte(nil), valid...), 0)},
		{"bad header", badHeader},
		{"bad pattern header", badPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBank(tt.data)
			if !errors.Is(err, ErrFormat) {
				t.Errorf("DecodeBank() error = %v, want ErrFormat", err)
			}
		})
	}
}

func TestNewPartDefaults(t *testing.T) {
	p := NewPart(2)
	if p.PartID != 2 {
		t.Errorf("PartID = %d, want 2", p.PartID)
	}
	for track, ms := range p.MachineSlots {
		if int(ms.StaticSlotID) != track || int(ms.FlexSlotID) != track {
			t.Errorf("track %d machine slots = %d/%d, want %d/%d", track, ms.StaticSlotID, ms.FlexSlotID, track, track)
		}
		if int(ms.RecorderSlotID) != RecorderSlotBase+track {
			t.Errorf("track %d recorder slot = %d, want %d", track, ms.RecorderSlotID, RecorderSlotBase+track)
		}
	}
}

func TestStepMask(t *testing.T) {
	tests := []struct {
		step int
		idx  int
		bit  uint8
	}{
		{0, 7, 0x01},
		{7, 7, 0x80},
		{8, 6, 0x01},
		{16, 4, 0x01},
		{31, 5, 0x80},
		{48, 0, 0x01},
		{63, 1, 0x80},
	}

	for _, tt := range tests {
		var mask [8]uint8
		SetStep(&mask, tt.step, true)
		if mask[tt.idx] != tt.bit {
			t.Errorf("SetStep(%d) mask = % x, want byte %d = %#x", tt.step, mask, tt.idx, tt.bit)
		}
		steps := StepMask(mask)
		for s, on := range steps {
			if on != (s == tt.step) {
				t.Errorf("StepMask() step %d = %v after SetStep(%d)", s, on, tt.step)
			}
		}
		SetStep(&mask, tt.step, false)
		if mask != ([8]uint8{}) {
			t.Errorf("SetStep(%d, false) mask = % x, want all zero", tt.step, mask)
		}
	}
}

func TestBankSummarize(t *testing.T) {
	b := NewBank()
	SetStep(&b.Patterns[0].AudioTracks[1].Masks.Trigger, 0, true)
	SetStep(&b.Patterns[0].AudioTracks[1].Masks.Trigger, 4, true)
	b.Patterns[0].AudioTracks[1].Plocks[4].StaticSlotID = 10

	s := b.Summarize()
	if s.Default {
		t.Error("Summarize().Default = true, want false")
	}
	if len(s.Patterns) != PatternsPerBank || len(s.Parts) != PartsPerBank {
		t.Fatalf("Summarize() has %d patterns and %d parts", len(s.Patterns), len(s.Parts))
	}
	tracks := s.Patterns[0].Tracks
	if len(tracks) != 1 {
		t.Fatalf("pattern 1 tracks = %d, want 1", len(tracks))
	}
	if tracks[0].Track != 2 || tracks[0].Trigs != 2 || tracks[0].SlotLocks != 1 {
		t.Errorf("pattern 1 track summary = %+v", tracks[0])
	}
	if s.Parts[2].Name != "THREE" {
		t.Errorf("part 3 name = %q, want THREE", s.Parts[2].Name)
	}
}

func TestPatternTempoAndLength(t *testing.T) {
	p := NewPattern()
	if got := p.BPM(); got != 120 {
		t.Errorf("BPM() = %v, want 120", got)
	}
	tests := []struct {
		masterLen uint8
		want      int
	}{
		{16, 16},
		{64, 64},
		{1, 1},
		{0, Steps},
		{255, Steps},
	}
	for _, tt := range tests {
		p.Scale.MasterLen = tt.masterLen
		if got := p.Length(); got != tt.want {
			t.Errorf("Length() with MasterLen %d = %d, want %d", tt.masterLen, got, tt.want)
		}
	}
}
