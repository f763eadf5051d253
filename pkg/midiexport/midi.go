// Package midiexport converts the trigs of an Octatrack pattern to and from Standard MIDI Files
package midiexport

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/octatools/pkg/octatrack"
)

// Drum map: audio track n plays BaseNote+n on Channel
const (
	BaseNote = 36
	Channel  = 9
)

const (
	defaultVelocity = 100
	ticksPerStep    = 4 // steps per quarter note
)

// ErrNoTrigs is returned when an imported file has no notes on the drum map
var ErrNoTrigs = errors.New("no notes for audio tracks")

// Converter handles MIDI generation and parsing for patterns
type Converter struct {
	ticksPerQuarter uint16
}

// NewConverter creates a new MIDI converter
func NewConverter() *Converter {
	return &Converter{ticksPerQuarter: 480}
}

type timedMessage struct {
	tick uint32
	msg  smf.Message
}

func tempoMessage(bpm float64) smf.Message {
	microsecondsPerBeat := uint32(60000000.0 / bpm)
	return smf.Message([]byte{
		0xFF, 0x51, 0x03,
		byte(microsecondsPerBeat >> 16),
		byte(microsecondsPerBeat >> 8),
		byte(microsecondsPerBeat),
	})
}

// GenerateMIDI renders the audio track trigs of p as one drum track at bpm
func (c *Converter) GenerateMIDI(p *octatrack.Pattern, bpm float64) ([]byte, error) {
	if p == nil {
		return nil, errors.New("nil pattern")
	}
	if bpm <= 0 {
		bpm = p.BPM()
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(c.ticksPerQuarter)

	var track smf.Track
	track.Add(0, tempoMessage(bpm))
	track.Add(0, smf.Message([]byte{0xFF, 0x58, 0x04, 0x04, 0x02, 0x18, 0x08}))

	stepTicks := uint32(c.ticksPerQuarter) / ticksPerStep
	gate := stepTicks * 3 / 4
	length := p.Length()

	var events []timedMessage
	for t := range p.AudioTracks {
		masks := &p.AudioTracks[t].Masks
		trigs := octatrack.StepMask(masks.Trigger)
		slides := octatrack.StepMask(masks.Slide)
		key := uint8(BaseNote + t)
		for step := 0; step < length; step++ {
			if !trigs[step] {
				continue
			}
			on := uint32(step) * stepTicks
			off := on + gate
			if slides[step] {
				off = on + stepTicks + stepTicks/4
			}
			events = append(events,
				timedMessage{on, smf.Message(midi.NoteOn(Channel, key, defaultVelocity))},
				timedMessage{off, smf.Message(midi.NoteOff(Channel, key))})
		}
	}
	// note offs sort before note ons on the same tick
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].msg[0]&0xF0 == 0x80 && events[j].msg[0]&0xF0 != 0x80
	})

	var current uint32
	for _, ev := range events {
		track.Add(ev.tick-current, ev.msg)
		current = ev.tick
	}
	if total := uint32(length) * stepTicks; current < total {
		track.Add(total-current, smf.Message([]byte{0xFF, 0x06, 0x00}))
	}
	track.Close(0)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteMIDIFile writes the pattern's trigs to filename
func (c *Converter) WriteMIDIFile(p *octatrack.Pattern, bpm float64, filename string) error {
	data, err := c.GenerateMIDI(p, bpm)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// Trigs is the per audio track trig layout read from a MIDI file
type Trigs struct {
	Tracks [octatrack.AudioTracks][octatrack.Steps]bool
	Length int // steps covered by the file, at least 1
	Tempo  float64
	Count  int
}

// ParseMIDI reads note starts of the drum map into trigs.
// Notes are quantized to sixteenth steps and wrap after 64 steps.
func (c *Converter) ParseMIDI(data []byte) (*Trigs, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}
	tpq := c.ticksPerQuarter
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		tpq = mt.Resolution()
	}
	stepTicks := int64(tpq) / ticksPerStep
	if stepTicks == 0 {
		return nil, fmt.Errorf("unsupported resolution %d", tpq)
	}

	out := &Trigs{Length: 1}
	for _, track := range s.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			msg := ev.Message

			if len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
				microsecondsPerBeat := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
				if microsecondsPerBeat > 0 && out.Tempo == 0 {
					out.Tempo = 60000000.0 / float64(microsecondsPerBeat)
				}
				continue
			}
			if len(msg) < 3 || msg[0] < 0x90 || msg[0] > 0x9F || msg[2] == 0 {
				continue
			}
			t := int(msg[1]) - BaseNote
			if t < 0 || t >= octatrack.AudioTracks {
				continue
			}
			step := int((tick + stepTicks/2) / stepTicks)
			if step >= octatrack.Steps {
				step %= octatrack.Steps
			}
			if !out.Tracks[t][step] {
				out.Tracks[t][step] = true
				out.Count++
			}
			if step+1 > out.Length {
				out.Length = step + 1
			}
		}
	}
	if out.Count == 0 {
		return nil, ErrNoTrigs
	}
	return out, nil
}

// Apply replaces the trigger masks of p's audio tracks with the parsed trigs.
// The pattern length grows to cover the trigs but never shrinks.
func (tr *Trigs) Apply(p *octatrack.Pattern) {
	for t := range p.AudioTracks {
		mask := &p.AudioTracks[t].Masks.Trigger
		for step, on := range tr.Tracks[t] {
			octatrack.SetStep(mask, step, on)
		}
	}
	if tr.Length > p.Length() {
		n := (tr.Length + 15) / 16 * 16
		p.Scale.MasterLen = uint8(n)
	}
}

// ImportMIDIFile reads filename and applies its trigs to p
func (c *Converter) ImportMIDIFile(p *octatrack.Pattern, filename string) (*Trigs, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	tr, err := c.ParseMIDI(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	tr.Apply(p)
	return tr, nil
}
