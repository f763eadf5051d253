package octatrack

// Pattern section magic values
var (
	patternHeader    = [8]byte{'P', 'T', 'R', 'N', 0, 0, 0, 0}
	audioTrackHeader = [4]byte{'T', 'R', 'A', 'C'}
	midiTrackHeader  = [4]byte{'M', 'T', 'R', 'A'}
)

// AudioPlock is the per-step parameter lock record of an audio track
type AudioPlock struct {
	Machine      [6]uint8
	LFO          [6]uint8
	Amp          [6]uint8
	FX1          [6]uint8
	FX2          [6]uint8
	StaticSlotID uint8 // 255 when unset
	FlexSlotID   uint8 // 255 when unset
}

// AudioTrigMasks holds the trig bitmasks of an audio track.
// Each [8]uint8 mask covers 64 steps, see StepMask.
type AudioTrigMasks struct {
	Trigger  [8]uint8
	Trigless [8]uint8
	Plock    [8]uint8
	Oneshot  [8]uint8
	Recorder [32]uint8
	Swing    [8]uint8
	Slide    [8]uint8
}

// TrackScale is a track's length and speed when the pattern is in per-track mode
type TrackScale struct {
	Length uint8
	Scale  uint8
}

// TrackSettings are the per-track pattern settings
type TrackSettings struct {
	StartSilent uint8
	PlaysFree   uint8
	TrigMode    uint8
	TrigQuant   uint8
	Oneshot     uint8
}

// AudioTrackTrigs is the sequencer data of one audio track
type AudioTrackTrigs struct {
	Header      [4]uint8
	Unknown1    [4]uint8
	TrackID     uint8
	Masks       AudioTrigMasks
	Scale       TrackScale
	SwingAmount uint8
	Settings    TrackSettings
	Unknown2    uint8
	Plocks      [Steps]AudioPlock
	Unknown3    [64]uint8
	TrigOffsets [Steps][2]uint8
}

// MidiTrigMasks holds the trig bitmasks of a MIDI track
type MidiTrigMasks struct {
	Trigger  [8]uint8
	Trigless [8]uint8
	Plock    [8]uint8
	Swing    [8]uint8
	Unknown  [8]uint8
}

// MidiTrackTrigs is the sequencer data of one MIDI track
type MidiTrackTrigs struct {
	Header      [4]uint8
	Unknown1    [4]uint8
	TrackID     uint8
	Masks       MidiTrigMasks
	Scale       TrackScale
	SwingAmount uint8
	Settings    TrackSettings
	Plocks      [Steps][32]uint8
	TrigOffsets [Steps][2]uint8
}

// PatternScale holds the pattern level length and scale settings
type PatternScale struct {
	MasterLenPerTrackMultiplier uint8
	MasterLenPerTrack           uint8
	MasterScalePerTrack         uint8
	MasterLen                   uint8
	MasterScale                 uint8
	ScaleMode                   uint8
}

// Pattern is one of the 16 patterns stored in a bank
type Pattern struct {
	Header         [8]uint8
	AudioTracks    [AudioTracks]AudioTrackTrigs
	MidiTracks     [MidiTracks]MidiTrackTrigs
	Scale          PatternScale
	Chain          [2]uint8
	Unknown        uint8
	PartAssignment uint8
	Tempo1         uint8
	Tempo2         uint8
}

func newTrackSettings() TrackSettings {
	return TrackSettings{StartSilent: 255}
}

func newAudioTrackTrigs(id int) AudioTrackTrigs {
	t := AudioTrackTrigs{
		Header:   audioTrackHeader,
		TrackID:  uint8(id),
		Scale:    TrackScale{Length: 16, Scale: 2},
		Settings: newTrackSettings(),
	}
	fill(t.Masks.Swing[:], 170)
	for i := range t.Plocks {
		t.Plocks[i] = newAudioPlock()
	}
	return t
}

func newAudioPlock() AudioPlock {
	var p AudioPlock
	fill(p.Machine[:], 255)
	fill(p.LFO[:], 255)
	fill(p.Amp[:], 255)
	fill(p.FX1[:], 255)
	fill(p.FX2[:], 255)
	p.StaticSlotID = NoSlot
	p.FlexSlotID = NoSlot
	return p
}

func newMidiTrackTrigs(id int) MidiTrackTrigs {
	t := MidiTrackTrigs{
		Header:   midiTrackHeader,
		TrackID:  uint8(id),
		Scale:    TrackScale{Length: 16, Scale: 2},
		Settings: newTrackSettings(),
	}
	fill(t.Masks.Swing[:], 170)
	for i := range t.Plocks {
		fill(t.Plocks[i][:], 255)
	}
	return t
}

// NewPattern returns a pattern in the state the device creates it
func NewPattern() Pattern {
	p := Pattern{
		Header: patternHeader,
		Scale: PatternScale{
			MasterLenPerTrack:   16,
			MasterScalePerTrack: 2,
			MasterLen:           16,
			MasterScale:         2,
		},
		Tempo1: 11,
		Tempo2: 64,
	}
	for i := range p.AudioTracks {
		p.AudioTracks[i] = newAudioTrackTrigs(i)
	}
	for i := range p.MidiTracks {
		p.MidiTracks[i] = newMidiTrackTrigs(i)
	}
	return p
}

// BPM returns the pattern tempo, used when the project is in per-pattern tempo mode
func (p *Pattern) BPM() float64 {
	return float64(uint16(p.Tempo1)<<8|uint16(p.Tempo2)) / 24
}

// Length returns the pattern length in steps
func (p *Pattern) Length() int {
	n := int(p.Scale.MasterLen)
	if n < 1 || n > Steps {
		return Steps
	}
	return n
}

func (p *Pattern) checkHeaders() error {
	if p.Header != patternHeader {
		return formatErr("pattern", "bad header % x", p.Header[:4])
	}
	for i := range p.AudioTracks {
		if p.AudioTracks[i].Header != audioTrackHeader {
			return formatErr("pattern", "audio track %d: bad header % x", i+1, p.AudioTracks[i].Header)
		}
	}
	for i := range p.MidiTracks {
		if p.MidiTracks[i].Header != midiTrackHeader {
			return formatErr("pattern", "midi track %d: bad header % x", i+1, p.MidiTracks[i].Header)
		}
	}
	return nil
}

// StepMask converts a trig bitmask into per-step booleans.
// Half pages are stored as: page 4 (a, b), page 3 (a, b), page 2 (a, b), page 1 (b, a).
func StepMask(mask [8]uint8) [Steps]bool {
	var steps [Steps]bool
	for s := 0; s < Steps; s++ {
		idx, bit := maskPosition(s)
		steps[s] = mask[idx]&(1<<bit) != 0
	}
	return steps
}

// SetStep sets or clears step s (0-63) in a trig bitmask
func SetStep(mask *[8]uint8, s int, on bool) {
	if s < 0 || s >= Steps {
		return
	}
	idx, bit := maskPosition(s)
	if on {
		mask[idx] |= 1 << bit
	} else {
		mask[idx] &^= 1 << bit
	}
}

func maskPosition(step int) (idx int, bit uint) {
	page := step / 16
	half := (step % 16) / 8
	bit = uint(step % 8)
	if page == 0 {
		return 7 - half, bit
	}
	return (3-page)*2 + half, bit
}

func fill(b []uint8, v uint8) {
	for i := range b {
		b[i] = v
	}
}
