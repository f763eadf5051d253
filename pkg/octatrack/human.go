package octatrack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v2"
)

// Format is a human-readable output format
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat parses a format name
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q (want yaml or json)", s)
	}
}

// Marshal renders v in the given format
func Marshal(v any, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(v, "", "  ")
	case FormatYAML:
		return yaml.Marshal(v)
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}
}

// Unmarshal parses data in the given format into v. Unknown keys are errors.
func Unmarshal(data []byte, f Format, v any) error {
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	case FormatYAML:
		return yaml.UnmarshalStrict(data, v)
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

// EncodeKind builds binary file data of the given kind from a YAML or JSON dump
// written by Marshal. The result is decoded again before it is returned, so a dump
// with a broken header or invalid rows is rejected.
func EncodeKind(kind Kind, data []byte, f Format) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch kind {
	case KindProject:
		p := new(Project)
		if err := Unmarshal(data, f, p); err != nil {
			return nil, fmt.Errorf("failed to parse project: %w", err)
		}
		out = p.Encode()
	case KindBank:
		b := new(Bank)
		if err := Unmarshal(data, f, b); err != nil {
			return nil, fmt.Errorf("failed to parse bank: %w", err)
		}
		out, err = b.Encode()
	case KindArrangement:
		a := new(Arrangement)
		if err := Unmarshal(data, f, a); err != nil {
			return nil, fmt.Errorf("failed to parse arrangement: %w", err)
		}
		out, err = a.Encode()
	case KindAttributes:
		a := new(Attributes)
		if err := Unmarshal(data, f, a); err != nil {
			return nil, fmt.Errorf("failed to parse attributes: %w", err)
		}
		a.Header = attributesHeader
		out, err = a.Encode()
	default:
		return nil, fmt.Errorf("cannot encode %s files", kind)
	}
	if err != nil {
		return nil, err
	}
	if _, err := DecodeKind(kind, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeKind decodes raw file data of the given kind
func DecodeKind(kind Kind, data []byte) (any, error) {
	switch kind {
	case KindProject:
		return DecodeProject(data)
	case KindBank:
		return DecodeBank(data)
	case KindArrangement:
		return DecodeArrangement(data)
	case KindAttributes:
		return DecodeAttributes(data)
	default:
		return nil, fmt.Errorf("cannot decode %s files", kind)
	}
}

// DefaultFile returns the encoded default record of the given kind
func DefaultFile(kind Kind) ([]byte, error) {
	switch kind {
	case KindProject:
		return NewProject().Encode(), nil
	case KindBank:
		return NewBank().Encode()
	case KindArrangement:
		return NewArrangement().Encode()
	case KindAttributes:
		a, err := NewAttributes(DefaultAttributeSettings(), 0, 44100)
		if err != nil {
			return nil, err
		}
		return a.Encode()
	default:
		return nil, fmt.Errorf("no default for %s files", kind)
	}
}

type arrangeRowView struct {
	Index    int          `json:"index" yaml:"index"`
	Kind     string       `json:"kind" yaml:"kind"`
	Pattern  *PatternRow  `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Loop     *LoopRow     `json:"loop,omitempty" yaml:"loop,omitempty"`
	Reminder *ReminderRow `json:"reminder,omitempty" yaml:"reminder,omitempty"`
}

type arrangementBlockView struct {
	Name    string           `json:"name" yaml:"name"`
	Unknown [2]uint8         `json:"unknown" yaml:"unknown"`
	NRows   int              `json:"n_rows" yaml:"n_rows"`
	Rows    []arrangeRowView `json:"rows" yaml:"rows"`
}

func (b *ArrangementBlock) view() arrangementBlockView {
	v := arrangementBlockView{Name: b.Name, Unknown: b.Unknown, NRows: b.NRows, Rows: []arrangeRowView{}}
	for i := 0; i < b.NRows && i < ArrangeRows; i++ {
		rv := arrangeRowView{Index: i, Kind: b.Rows[i].Kind()}
		switch r := b.Rows[i].(type) {
		case *PatternRow:
			rv.Pattern = r
		case *LoopRow:
			rv.Loop = r
		case *ReminderRow:
			rv.Reminder = r
		}
		v.Rows = append(v.Rows, rv)
	}
	return v
}

func (v *arrangementBlockView) block() (ArrangementBlock, error) {
	b := newArrangementBlock()
	b.Name, b.Unknown = v.Name, v.Unknown
	if len(v.Rows) != v.NRows {
		return b, fmt.Errorf("arrangement %q: %d rows listed but n_rows is %d", v.Name, len(v.Rows), v.NRows)
	}
	if v.NRows > MaxArrangeRows {
		return b, fmt.Errorf("arrangement %q: %d rows, at most %d", v.Name, v.NRows, MaxArrangeRows)
	}
	for i, rv := range v.Rows {
		var r ArrangeRow
		switch {
		case rv.Kind == "pattern" && rv.Pattern != nil:
			r = rv.Pattern
		case rv.Kind == "loop" && rv.Loop != nil:
			r = rv.Loop
		case rv.Kind == "reminder" && rv.Reminder != nil:
			r = rv.Reminder
		default:
			return b, fmt.Errorf("arrangement %q: row %d: kind %q without matching data", v.Name, i, rv.Kind)
		}
		b.Rows[i] = r
	}
	b.NRows = v.NRows
	return b, b.Validate()
}

// MarshalJSON lists the used rows with their variant
func (b ArrangementBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.view())
}

// MarshalYAML lists the used rows with their variant
func (b ArrangementBlock) MarshalYAML() (interface{}, error) {
	return b.view(), nil
}

// UnmarshalJSON reads the form written by MarshalJSON
func (b *ArrangementBlock) UnmarshalJSON(data []byte) error {
	var v arrangementBlockView
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	blk, err := v.block()
	if err != nil {
		return err
	}
	*b = blk
	return nil
}

// UnmarshalYAML reads the form written by MarshalYAML
func (b *ArrangementBlock) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v arrangementBlockView
	if err := unmarshal(&v); err != nil {
		return err
	}
	blk, err := v.block()
	if err != nil {
		return err
	}
	*b = blk
	return nil
}

// TrackSummary describes one audio track of a pattern
type TrackSummary struct {
	Track     int `json:"track" yaml:"track"`
	Trigs     int `json:"trigs" yaml:"trigs"`
	Plocks    int `json:"plocks" yaml:"plocks"`
	SlotLocks int `json:"slot_locks" yaml:"slot_locks"`
	Length    int `json:"length" yaml:"length"`
}

// PatternSummary describes a pattern without its raw parameter data
type PatternSummary struct {
	Pattern int            `json:"pattern" yaml:"pattern"`
	Part    int            `json:"part" yaml:"part"`
	Tracks  []TrackSummary `json:"tracks,omitempty" yaml:"tracks,omitempty"`
}

// PartSummary lists the sample slots assigned to a part's audio tracks (zero-indexed)
type PartSummary struct {
	Part   int      `json:"part" yaml:"part"`
	Name   string   `json:"name" yaml:"name"`
	Static [8]uint8 `json:"static" yaml:"static"`
	Flex   [8]uint8 `json:"flex" yaml:"flex"`
}

// BankSummary is a compact description of a bank
type BankSummary struct {
	Default  bool             `json:"default" yaml:"default"`
	Patterns []PatternSummary `json:"patterns" yaml:"patterns"`
	Parts    []PartSummary    `json:"parts" yaml:"parts"`
}

// Summarize returns a compact description of the bank. Empty tracks are omitted.
func (b *Bank) Summarize() BankSummary {
	s := BankSummary{Default: b.IsDefault()}
	for i := range b.Patterns {
		p := &b.Patterns[i]
		ps := PatternSummary{Pattern: i + 1, Part: int(p.PartAssignment) + 1}
		for t := range p.AudioTracks {
			tr := &p.AudioTracks[t]
			ts := TrackSummary{Track: t + 1, Length: int(tr.Scale.Length)}
			for _, on := range StepMask(tr.Masks.Trigger) {
				if on {
					ts.Trigs++
				}
			}
			for _, on := range StepMask(tr.Masks.Plock) {
				if on {
					ts.Plocks++
				}
			}
			for _, pl := range tr.Plocks {
				if pl.StaticSlotID != NoSlot || pl.FlexSlotID != NoSlot {
					ts.SlotLocks++
				}
			}
			if ts.Trigs > 0 || ts.Plocks > 0 || ts.SlotLocks > 0 {
				ps.Tracks = append(ps.Tracks, ts)
			}
		}
		s.Patterns = append(s.Patterns, ps)
	}
	for i := range b.PartsUnsaved {
		part := &b.PartsUnsaved[i]
		sum := PartSummary{Part: i + 1, Name: strings.TrimRight(string(b.PartNames[i][:]), "\x00")}
		for t, ms := range part.MachineSlots {
			sum.Static[t] = ms.StaticSlotID
			sum.Flex[t] = ms.FlexSlotID
		}
		s.Parts = append(s.Parts, sum)
	}
	return s
}
