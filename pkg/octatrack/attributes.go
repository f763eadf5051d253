package octatrack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

var attributesHeader = [23]byte{
	'F', 'O', 'R', 'M', 0, 0, 0, 0,
	'D', 'P', 'S', '1', 'S', 'M', 'P', 'A',
	0, 0, 0, 0, 0, 2, 0,
}

// MaxSlices is the number of slice markers a sample can hold
const MaxSlices = 64

// Slice is one slice marker of a sample, positions in sample frames
type Slice struct {
	TrimStart uint32 `json:"trim_start" yaml:"trim_start"`
	TrimEnd   uint32 `json:"trim_end" yaml:"trim_end"`
	LoopStart uint32 `json:"loop_start" yaml:"loop_start"`
}

// Attributes is the content of a .ot sample attributes file.
// Multi-byte fields are big-endian on disk.
type Attributes struct {
	Header           [23]uint8        `json:"-" yaml:"-"`
	Tempo            uint32           `json:"tempo" yaml:"tempo"`
	TrimLen          uint32           `json:"trim_len" yaml:"trim_len"`
	LoopLen          uint32           `json:"loop_len" yaml:"loop_len"`
	Stretch          uint32           `json:"stretch" yaml:"stretch"`
	Loop             uint32           `json:"loop" yaml:"loop"`
	Gain             uint16           `json:"gain" yaml:"gain"`
	TrigQuantization uint8            `json:"trig_quantization" yaml:"trig_quantization"`
	TrimStart        uint32           `json:"trim_start" yaml:"trim_start"`
	TrimEnd          uint32           `json:"trim_end" yaml:"trim_end"`
	LoopStart        uint32           `json:"loop_start" yaml:"loop_start"`
	Slices           [MaxSlices]Slice `json:"slices" yaml:"slices"`
	SliceCount       uint32           `json:"slice_count" yaml:"slice_count"`
	Checksum         uint16           `json:"checksum" yaml:"checksum"`
}

// AttributeSettings are the human-scale values used to build an Attributes record
type AttributeSettings struct {
	BPM              float64
	Gain             float64 // dB, -24 to +24
	Timestretch      TimestretchMode
	Loop             LoopMode
	TrigQuantization TrigQuantization
}

// DefaultAttributeSettings returns the settings the device applies to a new sample
func DefaultAttributeSettings() AttributeSettings {
	return AttributeSettings{
		BPM:              DefaultBPM,
		Timestretch:      TimestretchNormal,
		Loop:             LoopOff,
		TrigQuantization: TrigQuantDirect,
	}
}

// EncodeTempo converts a BPM value (30-300) to its stored form
func EncodeTempo(bpm float64) (uint32, error) {
	if bpm < 30 || bpm > 300 {
		return 0, fmt.Errorf("invalid tempo %.2f, must be between 30 and 300", bpm)
	}
	return uint32(bpm * 24), nil
}

// EncodeGain converts a gain in dB (-24 to +24, half dB steps) to its stored form
func EncodeGain(db float64) (uint16, error) {
	if db < -24 || db > 24 {
		return 0, fmt.Errorf("invalid gain %.1f, must be between -24 and 24", db)
	}
	return uint16(math.Round((db + 24) * 2)), nil
}

// NewAttributes builds attributes for a sample of frames length at sampleRate.
// Trim and loop span the whole sample and no slices are set.
func NewAttributes(s AttributeSettings, frames uint32, sampleRate int) (*Attributes, error) {
	tempo, err := EncodeTempo(s.BPM)
	if err != nil {
		return nil, err
	}
	gain, err := EncodeGain(s.Gain)
	if err != nil {
		return nil, err
	}
	if !s.Timestretch.Valid() || !s.Loop.Valid() || !s.TrigQuantization.Valid() {
		return nil, fmt.Errorf("invalid playback settings %+v", s)
	}
	bars := BarsX100(frames, sampleRate, s.BPM)
	a := &Attributes{
		Header:           attributesHeader,
		Tempo:            tempo,
		TrimLen:          bars,
		LoopLen:          bars,
		Stretch:          uint32(s.Timestretch),
		Loop:             uint32(s.Loop),
		Gain:             gain,
		TrigQuantization: uint8(s.TrigQuantization),
		TrimEnd:          frames,
	}
	return a, nil
}

// BarsX100 returns the length of frames in 4/4 bars at bpm, multiplied by 100
func BarsX100(frames uint32, sampleRate int, bpm float64) uint32 {
	if sampleRate <= 0 || bpm <= 0 {
		return 0
	}
	framesPerBar := float64(sampleRate) * 60 / bpm * 4
	return uint32(math.Round(float64(frames) / framesPerBar * 100))
}

// BPM returns the stored tempo in beats per minute
func (a *Attributes) BPM() float64 {
	return float64(a.Tempo) / 24
}

// GainDB returns the stored gain in dB
func (a *Attributes) GainDB() float64 {
	return float64(a.Gain)/2 - 24
}

// Checksum computes the additive checksum of a raw attributes record:
// the sum of every byte after the 16 byte header, excluding the final two.
func Checksum(raw []byte) uint16 {
	var sum uint16
	if len(raw) < 18 {
		return 0
	}
	for _, b := range raw[16 : len(raw)-2] {
		sum += uint16(b)
	}
	return sum
}

// DecodeAttributes parses raw .ot data and verifies its checksum
func DecodeAttributes(data []byte) (*Attributes, error) {
	if len(data) != AttributesSize {
		return nil, formatErr("attributes", "got %d bytes, want %d", len(data), AttributesSize)
	}
	a := new(Attributes)
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, a); err != nil {
		return nil, formatErr("attributes", "%v", err)
	}
	if !bytes.Equal(a.Header[:16], attributesHeader[:16]) {
		return nil, formatErr("attributes", "bad header % x", a.Header[:16])
	}
	if want := Checksum(data); a.Checksum != want {
		return nil, fmt.Errorf("attributes: stored %d, computed %d: %w", a.Checksum, want, ErrChecksum)
	}
	return a, nil
}

// Encode serializes the attributes, recomputing the checksum
func (a *Attributes) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(AttributesSize)
	if err := binary.Write(&buf, binary.BigEndian, a); err != nil {
		return nil, fmt.Errorf("failed to encode attributes: %w", err)
	}
	data := buf.Bytes()
	if len(data) != AttributesSize {
		return nil, fmt.Errorf("encoded attributes are %d bytes, want %d", len(data), AttributesSize)
	}
	a.Checksum = Checksum(data)
	binary.BigEndian.PutUint16(data[len(data)-2:], a.Checksum)
	return data, nil
}

// ReadAttributesFile reads and decodes a .ot file
func ReadAttributesFile(path string) (*Attributes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attributes file: %w", err)
	}
	a, err := DecodeAttributes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// WriteAttributesFile encodes the attributes and atomically replaces path with them
func WriteAttributesFile(path string, a *Attributes) error {
	data, err := a.Encode()
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}
