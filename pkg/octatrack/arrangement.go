package octatrack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
)

// Arrangement layout constants
const (
	ArrangeRows     = 256
	MaxArrangeRows  = 255 // the row count is stored in one byte
	arrangeRowSize  = 22
	arrangeNameLen  = 15
	MaxReminderLen  = 15
	MaxRepetitions  = 63
	MaxLoopCount    = 100
	MaxSceneIndex   = 15
	NoScene         = 255
	rowTypePattern  = 0
	rowTypeLoop     = 1
	rowTypeReminder = 2
)

var arrangementHeader = [22]byte{
	'F', 'O', 'R', 'M', 0, 0, 0, 0,
	'D', 'P', 'S', '1', 'A', 'R', 'R', 'A',
	0, 0, 0, 0, 0, 6,
}

const defaultArrangementName = "NEW ARRANGEMENT"

type rawArrangeBlock struct {
	Name    [arrangeNameLen]uint8
	Unknown [2]uint8
	NRows   uint8
	Rows    [ArrangeRows][arrangeRowSize]uint8
}

type rawArrangement struct {
	Header      [22]uint8
	Unknown1    [2]uint8
	Current     rawArrangeBlock
	Unknown2    [2]uint8
	Previous    rawArrangeBlock
	ActiveFlags [8]uint8
	Checksum    [2]uint8
}

// ArrangeRow is one row of an arrangement: a *PatternRow, *LoopRow, *ReminderRow or *EmptyRow
type ArrangeRow interface {
	// Kind names the row variant
	Kind() string
	validate() error
	encode(*[arrangeRowSize]uint8)
}

// PatternRow plays a pattern
type PatternRow struct {
	PatternID     uint8    `json:"pattern_id" yaml:"pattern_id"` // 0 (A01) to 255 (P16)
	Repetitions   uint8    `json:"repetitions" yaml:"repetitions"`
	MuteMask      uint8    `json:"mute_mask" yaml:"mute_mask"`
	Tempo1        uint8    `json:"tempo_1" yaml:"tempo_1"`
	Tempo2        uint8    `json:"tempo_2" yaml:"tempo_2"`
	SceneA        uint8    `json:"scene_a" yaml:"scene_a"`
	SceneB        uint8    `json:"scene_b" yaml:"scene_b"`
	Offset        uint8    `json:"offset" yaml:"offset"`
	Length        uint8    `json:"length" yaml:"length"` // includes Offset
	MidiTranspose [8]uint8 `json:"midi_transpose" yaml:"midi_transpose"`
}

// LoopRow loops back to, jumps to or halts at RowTarget.
// A LoopCount of 0 loops forever; a halt targets its own row.
type LoopRow struct {
	LoopCount uint8 `json:"loop_count" yaml:"loop_count"`
	RowTarget uint8 `json:"row_target" yaml:"row_target"`
}

// ReminderRow is a text note of up to 15 characters
type ReminderRow struct {
	Text string `json:"text" yaml:"text"`
}

// EmptyRow is an unused row
type EmptyRow struct{}

func (*PatternRow) Kind() string  { return "pattern" }
func (*LoopRow) Kind() string     { return "loop" }
func (*ReminderRow) Kind() string { return "reminder" }
func (*EmptyRow) Kind() string    { return "empty" }

func (r *PatternRow) validate() error {
	if r.Repetitions > MaxRepetitions {
		return fmt.Errorf("pattern row: repetitions %d exceeds %d", r.Repetitions, MaxRepetitions)
	}
	if r.SceneA != NoScene && r.SceneA > MaxSceneIndex {
		return fmt.Errorf("pattern row: scene A %d out of range", r.SceneA)
	}
	if r.SceneB != NoScene && r.SceneB > MaxSceneIndex {
		return fmt.Errorf("pattern row: scene B %d out of range", r.SceneB)
	}
	return nil
}

func (r *LoopRow) validate() error {
	if r.LoopCount > MaxLoopCount {
		return fmt.Errorf("loop row: loop count %d exceeds %d", r.LoopCount, MaxLoopCount)
	}
	return nil
}

func (r *ReminderRow) validate() error {
	if len(r.Text) > MaxReminderLen {
		return fmt.Errorf("reminder row: %q is longer than %d characters", r.Text, MaxReminderLen)
	}
	for _, c := range []byte(r.Text) {
		if c < 0x20 || c > 0x7e {
			return fmt.Errorf("reminder row: %q contains non-printable characters", r.Text)
		}
	}
	return nil
}

func (*EmptyRow) validate() error { return nil }

func (r *PatternRow) encode(b *[arrangeRowSize]uint8) {
	b[0] = rowTypePattern
	b[1] = r.PatternID
	b[2] = r.Repetitions
	b[4] = r.MuteMask
	b[6] = r.Tempo1
	b[7] = r.Tempo2
	b[8] = r.SceneA
	b[9] = r.SceneB
	b[11] = r.Offset
	b[13] = r.Length
	copy(b[14:], r.MidiTranspose[:])
}

func (r *LoopRow) encode(b *[arrangeRowSize]uint8) {
	b[0] = rowTypeLoop
	b[1] = r.LoopCount
	b[2] = r.RowTarget
}

func (r *ReminderRow) encode(b *[arrangeRowSize]uint8) {
	b[0] = rowTypeReminder
	copy(b[1:1+MaxReminderLen], r.Text)
}

func (*EmptyRow) encode(*[arrangeRowSize]uint8) {}

func decodeRow(b [arrangeRowSize]uint8) (ArrangeRow, error) {
	switch b[0] {
	case rowTypePattern:
		r := &PatternRow{
			PatternID:   b[1],
			Repetitions: b[2],
			MuteMask:    b[4],
			Tempo1:      b[6],
			Tempo2:      b[7],
			SceneA:      b[8],
			SceneB:      b[9],
			Offset:      b[11],
			Length:      b[13],
		}
		copy(r.MidiTranspose[:], b[14:])
		return r, nil
	case rowTypeLoop:
		return &LoopRow{LoopCount: b[1], RowTarget: b[2]}, nil
	case rowTypeReminder:
		var sb strings.Builder
		for _, c := range b[1 : 1+MaxReminderLen] {
			if c < 0x20 || c > 0x7e {
				break
			}
			sb.WriteByte(c)
		}
		return &ReminderRow{Text: strings.ToUpper(sb.String())}, nil
	default:
		return nil, formatErr("arrangement", "unknown row type %d", b[0])
	}
}

// ArrangementBlock is one saved state of an arrangement.
// Rows at or after NRows are always *EmptyRow.
type ArrangementBlock struct {
	Name    string
	Unknown [2]uint8
	NRows   int
	Rows    [ArrangeRows]ArrangeRow
}

func newArrangementBlock() ArrangementBlock {
	b := ArrangementBlock{Name: defaultArrangementName}
	for i := range b.Rows {
		b.Rows[i] = &EmptyRow{}
	}
	return b
}

// Validate checks every row and that rows before NRows are in use and all later rows are empty
func (b *ArrangementBlock) Validate() error {
	if b.NRows < 0 || b.NRows > MaxArrangeRows {
		return fmt.Errorf("arrangement %q: row count %d out of range", b.Name, b.NRows)
	}
	if len(b.Name) > arrangeNameLen {
		return fmt.Errorf("arrangement %q: name longer than %d characters", b.Name, arrangeNameLen)
	}
	firstEmpty := ArrangeRows
	for i, r := range b.Rows {
		if r == nil {
			return fmt.Errorf("arrangement %q: row %d is nil", b.Name, i)
		}
		if err := r.validate(); err != nil {
			return fmt.Errorf("arrangement %q: row %d: %w", b.Name, i, err)
		}
		_, empty := r.(*EmptyRow)
		if empty && firstEmpty == ArrangeRows {
			firstEmpty = i
		}
		if !empty && firstEmpty != ArrangeRows {
			return fmt.Errorf("arrangement %q: row %d is in use after empty row %d", b.Name, i, firstEmpty)
		}
	}
	if firstEmpty != b.NRows {
		return fmt.Errorf("arrangement %q: first empty row is %d but row count is %d", b.Name, firstEmpty, b.NRows)
	}
	return nil
}

// Append adds a row after the last used row
func (b *ArrangementBlock) Append(r ArrangeRow) error {
	if b.NRows >= MaxArrangeRows {
		return fmt.Errorf("arrangement %q is full", b.Name)
	}
	if err := r.validate(); err != nil {
		return err
	}
	b.Rows[b.NRows] = r
	b.NRows++
	return nil
}

func decodeArrangementBlock(raw *rawArrangeBlock) (ArrangementBlock, error) {
	b := ArrangementBlock{
		Name:    strings.TrimRight(string(bytes.TrimRight(raw.Name[:], "\x00")), " "),
		Unknown: raw.Unknown,
		NRows:   int(raw.NRows),
	}
	for i := range b.Rows {
		if i >= b.NRows {
			b.Rows[i] = &EmptyRow{}
			continue
		}
		r, err := decodeRow(raw.Rows[i])
		if err != nil {
			return b, fmt.Errorf("row %d: %w", i, err)
		}
		b.Rows[i] = r
	}
	if err := b.Validate(); err != nil {
		return b, formatErr("arrangement", "%v", err)
	}
	return b, nil
}

func (b *ArrangementBlock) encode(raw *rawArrangeBlock) error {
	if err := b.Validate(); err != nil {
		return err
	}
	fill(raw.Name[:], ' ')
	copy(raw.Name[:], b.Name)
	raw.Unknown = b.Unknown
	raw.NRows = uint8(b.NRows)
	for i, r := range b.Rows {
		raw.Rows[i] = [arrangeRowSize]uint8{}
		r.encode(&raw.Rows[i])
	}
	return nil
}

// Arrangement is the content of an arr??.work or arr??.strd file
type Arrangement struct {
	Header      [22]uint8
	Unknown1    [2]uint8
	Current     ArrangementBlock // written by project sync
	Unknown2    [2]uint8
	Previous    ArrangementBlock // written by arranger save
	ActiveFlags [8]uint8
	Checksum    [2]uint8
}

// NewArrangement returns an empty arrangement
func NewArrangement() *Arrangement {
	return &Arrangement{
		Header:   arrangementHeader,
		Current:  newArrangementBlock(),
		Previous: newArrangementBlock(),
	}
}

// IsDefault reports whether the arrangement has no rows. Names and checksum are ignored.
func (a *Arrangement) IsDefault() bool {
	return a.Current.NRows == 0 && a.Previous.NRows == 0 &&
		a.Current.Unknown == [2]uint8{} && a.Previous.Unknown == [2]uint8{} &&
		a.Unknown1 == [2]uint8{} && a.Unknown2 == [2]uint8{}
}

// DecodeArrangement parses raw arrangement file data
func DecodeArrangement(data []byte) (*Arrangement, error) {
	if len(data) != ArrangementSize {
		return nil, formatErr("arrangement", "got %d bytes, want %d", len(data), ArrangementSize)
	}
	raw := new(rawArrangement)
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, raw); err != nil {
		return nil, formatErr("arrangement", "%v", err)
	}
	if raw.Header != arrangementHeader {
		return nil, formatErr("arrangement", "bad header % x", raw.Header[:16])
	}
	cur, err := decodeArrangementBlock(&raw.Current)
	if err != nil {
		return nil, fmt.Errorf("current block: %w", err)
	}
	prev, err := decodeArrangementBlock(&raw.Previous)
	if err != nil {
		return nil, fmt.Errorf("previous block: %w", err)
	}
	return &Arrangement{
		Header:      raw.Header,
		Unknown1:    raw.Unknown1,
		Current:     cur,
		Unknown2:    raw.Unknown2,
		Previous:    prev,
		ActiveFlags: raw.ActiveFlags,
		Checksum:    raw.Checksum,
	}, nil
}

// Encode validates and serializes the arrangement
func (a *Arrangement) Encode() ([]byte, error) {
	raw := &rawArrangement{
		Header:      a.Header,
		Unknown1:    a.Unknown1,
		Unknown2:    a.Unknown2,
		ActiveFlags: a.ActiveFlags,
		Checksum:    a.Checksum,
	}
	if err := a.Current.encode(&raw.Current); err != nil {
		return nil, fmt.Errorf("current block: %w", err)
	}
	if err := a.Previous.encode(&raw.Previous); err != nil {
		return nil, fmt.Errorf("previous block: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(ArrangementSize)
	if err := binary.Write(&buf, binary.BigEndian, raw); err != nil {
		return nil, fmt.Errorf("failed to encode arrangement: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadArrangementFile reads and decodes an arrangement file
func ReadArrangementFile(path string) (*Arrangement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read arrangement file: %w", err)
	}
	a, err := DecodeArrangement(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// WriteArrangementFile encodes the arrangement and atomically replaces path with it
func WriteArrangementFile(path string, a *Arrangement) error {
	data, err := a.Encode()
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}
