package octatrack

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const flexSampleBlock = "TYPE=FLEX\r\nSLOT=001\r\nPATH=../AUDIO/flex.wav\r\nTRIM_BARSx100=173\r\nTSMODE=2\r\nLOOPMODE=1\r\nGAIN=48\r\nTRIGQUANTIZATION=-1\r\n"

func TestDecodeSampleSlot(t *testing.T) {
	slot, err := decodeSampleSlot(flexSampleBlock)
	if err != nil {
		t.Fatalf("decodeSampleSlot() error = %v", err)
	}

	want := SampleSlot{
		Type:             Flex,
		SlotID:           1,
		Path:             "../AUDIO/flex.wav",
		TrimBarsX100:     173,
		Timestretch:      TimestretchNormal,
		Loop:             LoopNormal,
		TrigQuantization: TrigQuantDirect,
		Gain:             0,
		BPM:              DefaultBPM,
	}
	if slot != want {
		t.Errorf("decodeSampleSlot() = %+v, want %+v", slot, want)
	}
}

func TestDecodeSampleSlotErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing slot", "TYPE=FLEX\r\nPATH=a.wav\r\n"},
		{"bad slot", "TYPE=FLEX\r\nSLOT=abc\r\n"},
		{"slot out of range", "TYPE=FLEX\r\nSLOT=200\r\n"},
		{"bad type", "TYPE=THRU\r\nSLOT=001\r\n"},
		{"bad tsmode", "TYPE=STATIC\r\nSLOT=001\r\nTSMODE=9\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeSampleSlot(tt.body)
			if !errors.Is(err, ErrFormat) {
				t.Errorf("decodeSampleSlot() error = %v, want ErrFormat", err)
			}
		})
	}
}

func TestEncodeSampleSlot(t *testing.T) {
	s := NewSampleSlot(Static, 7, "kick.wav")
	s.Gain = -6
	s.BPM = 95

	got := encodeSampleSlot(s)
	for _, want := range []string{
		"TYPE=STATIC\r\n",
		"SLOT=007\r\n",
		"PATH=kick.wav\r\n",
		"GAIN=42\r\n",
		"BPM=2280\r\n",
		"TRIGQUANTIZATION=-1\r\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("encodeSampleSlot() missing %q in %q", want, got)
		}
	}

	rec := encodeSampleSlot(NewSampleSlot(RecorderBuffer, 129, ""))
	if !strings.Contains(rec, "TYPE=FLEX\r\n") {
		t.Errorf("recorder buffers should be written as FLEX, got %q", rec)
	}
}

func TestProjectRoundTrip(t *testing.T) {
	p := NewProject()
	p.Slots = append(p.Slots,
		NewSampleSlot(Static, 2, "../AUDIO/snare.wav"),
		NewSampleSlot(Flex, 1, "pad.wav"),
		NewSampleSlot(Static, 1, "kick.wav"),
	)
	p.Slots[len(p.Slots)-1].TrigQuantization = 4

	got, err := DecodeProject(p.Encode())
	if err != nil {
		t.Fatalf("DecodeProject() error = %v", err)
	}

	if got.Metadata != p.Metadata {
		t.Errorf("Metadata = %+v, want %+v", got.Metadata, p.Metadata)
	}
	if !reflect.DeepEqual(got.Settings, p.Settings) {
		t.Error("Settings differ after round trip")
	}
	if !reflect.DeepEqual(got.States, p.States) {
		t.Error("States differ after round trip")
	}

	want := append([]SampleSlot(nil), p.Slots...)
	SortSlots(want)
	if !reflect.DeepEqual(got.Slots, want) {
		t.Errorf("Slots = %+v, want %+v", got.Slots, want)
	}
	if got.Slots[0].Path != "kick.wav" {
		t.Errorf("first slot = %q, want kick.wav (sorted by type and id)", got.Slots[0].Path)
	}
}

func TestProjectEncodeLayout(t *testing.T) {
	text := string(NewProject().Encode())
	if !strings.HasPrefix(text, "[META]\r\nTYPE=OCTATRACK DPS-1 PROJECT\r\nVERSION=19\r\nOS_VERSION=R0177     1.40B\r\n[/META]") {
		t.Errorf("unexpected META section: %q", text[:80])
	}
	if !strings.HasSuffix(text, "[/SAMPLE]\r\n\r\n############################\r\n\r\n") {
		t.Errorf("unexpected footer: %q", text[len(text)-60:])
	}
	if n := strings.Count(text, "[SAMPLE]"); n != RecorderSlots {
		t.Errorf("default project has %d sample blocks, want %d", n, RecorderSlots)
	}
}

func TestDecodeProjectErrors(t *testing.T) {
	valid := string(NewProject().Encode())

	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"missing settings", strings.Replace(valid, "[SETTINGS]", "[XETTINGS]", 1)},
		{"missing states end", strings.Replace(valid, "[/STATES]", "", 1)},
		{"unterminated sample", strings.TrimSuffix(valid, "[/SAMPLE]\r\n\r\n############################\r\n\r\n")},
		{"duplicate slot", valid + "[SAMPLE]\r\nTYPE=FLEX\r\nSLOT=129\r\n[/SAMPLE]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeProject([]byte(tt.text))
			if !errors.Is(err, ErrFormat) {
				t.Errorf("DecodeProject() error = %v, want ErrFormat", err)
			}
		})
	}
}

func TestSectionOrdinalKeys(t *testing.T) {
	p := NewProject()
	s := &p.Settings

	if n := s.Count("TRIG_MODE_MIDI"); n != MidiTracks {
		t.Fatalf("Count(TRIG_MODE_MIDI) = %d, want %d", n, MidiTracks)
	}
	if err := s.Set("TRIG_MODE_MIDI", 3, "1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	for i := 0; i < MidiTracks; i++ {
		want := "0"
		if i == 3 {
			want = "1"
		}
		if got, ok := s.Get("TRIG_MODE_MIDI", i); !ok || got != want {
			t.Errorf("Get(TRIG_MODE_MIDI, %d) = %q, %v, want %q", i, got, ok, want)
		}
	}

	got, err := DecodeProject(p.Encode())
	if err != nil {
		t.Fatalf("DecodeProject() error = %v", err)
	}
	if v, _ := got.Settings.Get("TRIG_MODE_MIDI", 3); v != "1" {
		t.Errorf("TRIG_MODE_MIDI[3] after round trip = %q, want 1", v)
	}

	if err := s.Set("TRIG_MODE_MIDI", 8, "0"); err != nil {
		t.Errorf("Set() one past the end should append, got %v", err)
	}
	if err := s.Set("TRIG_MODE_MIDI", 12, "0"); err == nil {
		t.Error("Set() beyond the end should fail")
	}
	if _, ok := s.Get("NOPE", 0); ok {
		t.Error("Get() of a missing key should report false")
	}
}

func TestProjectTempo(t *testing.T) {
	p := NewProject()
	if got := p.Tempo(); got != 120 {
		t.Errorf("Tempo() = %v, want 120", got)
	}
	if err := p.Settings.Set("TEMPOx24", 0, "3000"); err != nil {
		t.Fatal(err)
	}
	if got := p.Tempo(); got != 125 {
		t.Errorf("Tempo() = %v, want 125", got)
	}
}

func TestValidateOS(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{"R0177     1.40A", false},
		{"R0177     1.40B", false},
		{"R0177     1.40C", false},
		{"R0176     1.31", true},
		{"1.40B", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := Metadata{OSVersion: tt.version}.ValidateOS()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOS(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnsupportedOS) {
				t.Errorf("ValidateOS(%q) error = %v, want ErrUnsupportedOS", tt.version, err)
			}
		})
	}
}
