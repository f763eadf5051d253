package octatrack

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrUnsupportedOS is returned for projects saved by an OS release this package cannot handle
var ErrUnsupportedOS = errors.New("unsupported OS version")

// SupportedOSReleases lists the OS releases whose file layout this package implements
var SupportedOSReleases = []string{"1.40A", "1.40B", "1.40C"}

const (
	crlf          = "\r\n"
	hashLine      = "############################"
	samplesHeader = hashLine + crlf + "# Samples" + crlf + hashLine
	samplesFooter = crlf + crlf + hashLine + crlf + crlf
)

// Entry is one KEY=VALUE line of a project section
type Entry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Section is an ordered list of entries. Keys may repeat (TRIG_MODE_MIDI appears
// once per MIDI track) so entries are addressed by key and ordinal.
type Section struct {
	Name    string  `json:"name" yaml:"name"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// Get returns the value of the ordinal-th (0-based) occurrence of key
func (s *Section) Get(key string, ordinal int) (string, bool) {
	n := 0
	for _, e := range s.Entries {
		if !strings.EqualFold(e.Key, key) {
			continue
		}
		if n == ordinal {
			return e.Value, true
		}
		n++
	}
	return "", false
}

// Int returns the ordinal-th occurrence of key parsed as an integer
func (s *Section) Int(key string, ordinal int) (int, error) {
	v, ok := s.Get(key, ordinal)
	if !ok {
		return 0, fmt.Errorf("%s: key %s[%d] not found", s.Name, key, ordinal)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: key %s[%d]: %w", s.Name, key, ordinal, err)
	}
	return n, nil
}

// Set replaces the ordinal-th occurrence of key, appending when ordinal is one past the last
func (s *Section) Set(key string, ordinal int, value string) error {
	n := 0
	for i, e := range s.Entries {
		if !strings.EqualFold(e.Key, key) {
			continue
		}
		if n == ordinal {
			s.Entries[i].Value = value
			return nil
		}
		n++
	}
	if n != ordinal {
		return fmt.Errorf("%s: key %s has %d occurrences, cannot set ordinal %d", s.Name, key, n, ordinal)
	}
	s.Entries = append(s.Entries, Entry{Key: key, Value: value})
	return nil
}

// Count returns how many times key occurs
func (s *Section) Count(key string) int {
	n := 0
	for _, e := range s.Entries {
		if strings.EqualFold(e.Key, key) {
			n++
		}
	}
	return n
}

func (s *Section) encode() string {
	var b strings.Builder
	b.WriteString("[" + s.Name + "]" + crlf)
	for _, e := range s.Entries {
		b.WriteString(e.Key + "=" + e.Value + crlf)
	}
	b.WriteString("[/" + s.Name + "]")
	return b.String()
}

func parseSection(name, body string) Section {
	s := Section{Name: name}
	for _, line := range strings.Split(body, crlf) {
		line = strings.TrimSpace(line)
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		s.Entries = append(s.Entries, Entry{Key: key, Value: value})
	}
	return s
}

// Metadata is the [META] section of a project file
type Metadata struct {
	Type      string `json:"type" yaml:"type"`
	Version   int    `json:"version" yaml:"version"`
	OSVersion string `json:"os_version" yaml:"os_version"`
}

// DefaultMetadata returns the metadata written by OS 1.40B
func DefaultMetadata() Metadata {
	return Metadata{
		Type:      "OCTATRACK DPS-1 PROJECT",
		Version:   19,
		OSVersion: "R0177     1.40B",
	}
}

// OSRelease returns the release part of OS_VERSION, e.g. "1.40B"
func (m Metadata) OSRelease() string {
	fields := strings.Fields(m.OSVersion)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// ValidateOS checks the project was saved by a supported OS release
func (m Metadata) ValidateOS() error {
	release := m.OSRelease()
	for _, r := range SupportedOSReleases {
		if release == r {
			return nil
		}
	}
	return fmt.Errorf("%q: %w", m.OSVersion, ErrUnsupportedOS)
}

func (m Metadata) encode() string {
	s := Section{Name: "META", Entries: []Entry{
		{"TYPE", m.Type},
		{"VERSION", strconv.Itoa(m.Version)},
		{"OS_VERSION", m.OSVersion},
	}}
	return s.encode()
}

// Project is the content of a project.work or project.strd file.
// Slot ids are one-indexed as on disk.
type Project struct {
	Metadata Metadata     `json:"metadata" yaml:"metadata"`
	Settings Section      `json:"settings" yaml:"settings"`
	States   Section      `json:"states" yaml:"states"`
	Slots    []SampleSlot `json:"slots" yaml:"slots"`
}

var defaultSettings = []Entry{
	{"WRITEPROTECTED", "0"},
	{"TEMPOx24", "2880"},
	{"PATTERN_TEMPO_ENABLED", "0"},
	{"MIDI_CLOCK_SEND", "0"},
	{"MIDI_CLOCK_RECEIVE", "0"},
	{"MIDI_TRANSPORT_SEND", "0"},
	{"MIDI_TRANSPORT_RECEIVE", "0"},
	{"MIDI_PROGRAM_CHANGE_SEND", "0"},
	{"MIDI_PROGRAM_CHANGE_SEND_CH", "-1"},
	{"MIDI_PROGRAM_CHANGE_RECEIVE", "0"},
	{"MIDI_PROGRAM_CHANGE_RECEIVE_CH", "-1"},
	{"MIDI_TRIG_CH1", "0"},
	{"MIDI_TRIG_CH2", "1"},
	{"MIDI_TRIG_CH3", "2"},
	{"MIDI_TRIG_CH4", "3"},
	{"MIDI_TRIG_CH5", "4"},
	{"MIDI_TRIG_CH6", "5"},
	{"MIDI_TRIG_CH7", "6"},
	{"MIDI_TRIG_CH8", "7"},
	{"MIDI_AUTO_CHANNEL", "10"},
	{"MIDI_SOFT_THRU", "0"},
	{"MIDI_AUDIO_TRK_CC_IN", "1"},
	{"MIDI_AUDIO_TRK_CC_OUT", "3"},
	{"MIDI_AUDIO_TRK_NOTE_IN", "1"},
	{"MIDI_AUDIO_TRK_NOTE_OUT", "3"},
	{"MIDI_MIDI_TRK_CC_IN", "1"},
	{"PATTERN_CHANGE_CHAIN_BEHAVIOR", "0"},
	{"PATTERN_CHANGE_AUTO_SILENCE_TRACKS", "0"},
	{"PATTERN_CHANGE_AUTO_TRIG_LFOS", "0"},
	{"LOAD_24BIT_FLEX", "0"},
	{"DYNAMIC_RECORDERS", "0"},
	{"RECORD_24BIT", "0"},
	{"RESERVED_RECORDER_COUNT", "8"},
	{"RESERVED_RECORDER_LENGTH", "16"},
	{"INPUT_DELAY_COMPENSATION", "0"},
	{"GATE_AB", "127"},
	{"GATE_CD", "127"},
	{"GAIN_AB", "64"},
	{"GAIN_CD", "64"},
	{"DIR_AB", "0"},
	{"DIR_CD", "0"},
	{"PHONES_MIX", "64"},
	{"MAIN_TO_CUE", "0"},
	{"MASTER_TRACK", "0"},
	{"CUE_STUDIO_MODE", "0"},
	{"MAIN_LEVEL", "64"},
	{"CUE_LEVEL", "64"},
	{"METRONOME_TIME_SIGNATURE", "3"},
	{"METRONOME_TIME_SIGNATURE_DENOMINATOR", "2"},
	{"METRONOME_PREROLL", "0"},
	{"METRONOME_CUE_VOLUME", "32"},
	{"METRONOME_MAIN_VOLUME", "0"},
	{"METRONOME_PITCH", "12"},
	{"METRONOME_TONAL", "1"},
	{"METRONOME_ENABLED", "0"},
	{"TRIG_MODE_MIDI", "0"},
	{"TRIG_MODE_MIDI", "0"},
	{"TRIG_MODE_MIDI", "0"},
	{"TRIG_MODE_MIDI", "0"},
	{"TRIG_MODE_MIDI", "0"},
	{"TRIG_MODE_MIDI", "0"},
	{"TRIG_MODE_MIDI", "0"},
	{"TRIG_MODE_MIDI", "0"},
}

var defaultStateKeys = []string{
	"BANK", "PATTERN", "ARRANGEMENT", "ARRANGEMENT_MODE", "PART", "TRACK",
	"TRACK_OTHERMODE", "SCENE_A_MUTE", "SCENE_B_MUTE", "TRACK_CUE_MASK",
	"TRACK_MUTE_MASK", "TRACK_SOLO_MASK", "MIDI_TRACK_MUTE_MASK",
	"MIDI_TRACK_SOLO_MASK", "MIDI_MODE",
}

// NewProject returns a project in the state the device creates it
func NewProject() *Project {
	p := &Project{
		Metadata: DefaultMetadata(),
		Settings: Section{Name: "SETTINGS", Entries: append([]Entry(nil), defaultSettings...)},
		States:   Section{Name: "STATES"},
		Slots:    DefaultRecorderSlots(),
	}
	for _, k := range defaultStateKeys {
		p.States.Entries = append(p.States.Entries, Entry{Key: k, Value: "0"})
	}
	return p
}

// Tempo returns the project tempo in BPM
func (p *Project) Tempo() float64 {
	v, err := p.Settings.Int("TEMPOx24", 0)
	if err != nil {
		return DefaultBPM
	}
	return float64(v) / 24
}

// Slot returns the slot with the given type and on-disk id
func (p *Project) Slot(t SampleType, id int) (SampleSlot, bool) {
	for _, s := range p.Slots {
		if s.Type == t && s.SlotID == id {
			return s, true
		}
	}
	return SampleSlot{}, false
}

// SampleSlots returns the static and flex slots, skipping recorder buffers
func (p *Project) SampleSlots() []SampleSlot {
	var out []SampleSlot
	for _, s := range p.Slots {
		if s.Type != RecorderBuffer {
			out = append(out, s)
		}
	}
	return out
}

// DecodeProject parses project file text
func DecodeProject(data []byte) (*Project, error) {
	text := string(data)

	metaBody, err := sectionBody(text, "META")
	if err != nil {
		return nil, err
	}
	meta := parseSection("META", metaBody)
	p := &Project{}
	p.Metadata.Type, _ = meta.Get("TYPE", 0)
	p.Metadata.OSVersion, _ = meta.Get("OS_VERSION", 0)
	if v, ok := meta.Get("VERSION", 0); ok {
		if p.Metadata.Version, err = strconv.Atoi(v); err != nil {
			return nil, formatErr("project", "invalid VERSION %q", v)
		}
	}

	settingsBody, err := sectionBody(text, "SETTINGS")
	if err != nil {
		return nil, err
	}
	p.Settings = parseSection("SETTINGS", settingsBody)

	statesBody, err := sectionBody(text, "STATES")
	if err != nil {
		return nil, err
	}
	p.States = parseSection("STATES", statesBody)

	rest := text
	for {
		start := strings.Index(rest, "[SAMPLE]")
		if start < 0 {
			break
		}
		end := strings.Index(rest[start:], "[/SAMPLE]")
		if end < 0 {
			return nil, formatErr("project", "unterminated [SAMPLE] block")
		}
		body := rest[start+len("[SAMPLE]") : start+end]
		slot, err := decodeSampleSlot(body)
		if err != nil {
			return nil, err
		}
		p.Slots = append(p.Slots, slot)
		rest = rest[start+end+len("[/SAMPLE]"):]
	}

	seen := make(map[[2]int]bool, len(p.Slots))
	for _, s := range p.Slots {
		k := [2]int{int(s.Type), s.SlotID}
		if seen[k] {
			return nil, formatErr("project", "duplicate %s slot %d", s.Type, s.SlotID)
		}
		seen[k] = true
	}
	return p, nil
}

func sectionBody(text, name string) (string, error) {
	open, closing := "["+name+"]", "[/"+name+"]"
	start := strings.Index(text, open)
	if start < 0 {
		return "", formatErr("project", "missing %s section", open)
	}
	end := strings.Index(text[start:], closing)
	if end < 0 {
		return "", formatErr("project", "missing %s", closing)
	}
	return text[start+len(open) : start+end], nil
}

// Encode serializes the project to the device's text layout. Slots are written
// ordered by type then id.
func (p *Project) Encode() []byte {
	slots := append([]SampleSlot(nil), p.Slots...)
	SortSlots(slots)

	var b strings.Builder
	b.WriteString(p.Metadata.encode())
	b.WriteString(crlf + crlf)
	b.WriteString(p.Settings.encode())
	b.WriteString(crlf + crlf)
	b.WriteString(p.States.encode())
	b.WriteString(crlf + crlf)
	b.WriteString(samplesHeader)
	for _, s := range slots {
		b.WriteString(crlf + crlf)
		b.WriteString(encodeSampleSlot(s))
	}
	b.WriteString(samplesFooter)
	return []byte(b.String())
}

// ReadProjectFile reads and decodes a project file
func ReadProjectFile(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}
	p, err := DecodeProject(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// WriteProjectFile encodes the project and atomically replaces path with it
func WriteProjectFile(path string, p *Project) error {
	return WriteFileAtomic(path, p.Encode())
}
