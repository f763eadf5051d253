package octatrack

import (
	"errors"
	"reflect"
	"testing"
)

func TestDefaultArrangementRoundTrip(t *testing.T) {
	a := NewArrangement()
	if !a.IsDefault() {
		t.Fatal("NewArrangement() should be default")
	}

	data, err := a.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(data) != ArrangementSize {
		t.Fatalf("Encode() = %d bytes, want %d", len(data), ArrangementSize)
	}

	got, err := DecodeArrangement(data)
	if err != nil {
		t.Fatalf("DecodeArrangement() error = %v", err)
	}
	if !reflect.DeepEqual(got, a) {
		t.Error("default arrangement changed after round trip")
	}
	if got.Current.Name != defaultArrangementName {
		t.Errorf("Name = %q, want %q", got.Current.Name, defaultArrangementName)
	}
}

func TestArrangementRowsRoundTrip(t *testing.T) {
	a := NewArrangement()
	a.Current.Name = "LIVE SET"
	rows := []ArrangeRow{
		&PatternRow{PatternID: 17, Repetitions: 3, MuteMask: 0x81, Tempo1: 11, Tempo2: 64, SceneA: 2, SceneB: NoScene, Length: 64, MidiTranspose: [8]uint8{1, 2, 3, 4, 5, 6, 7, 8}},
		&ReminderRow{Text: "DROP"},
		&LoopRow{LoopCount: 4, RowTarget: 0},
	}
	for _, r := range rows {
		if err := a.Current.Append(r); err != nil {
			t.Fatalf("Append(%s) error = %v", r.Kind(), err)
		}
	}
	if a.IsDefault() {
		t.Error("IsDefault() = true for an arrangement with rows")
	}

	data, err := a.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := DecodeArrangement(data)
	if err != nil {
		t.Fatalf("DecodeArrangement() error = %v", err)
	}
	if !reflect.DeepEqual(got.Current, a.Current) {
		t.Errorf("Current = %+v, want %+v", got.Current.Rows[:3], a.Current.Rows[:3])
	}
	if got.Current.NRows != 3 {
		t.Errorf("NRows = %d, want 3", got.Current.NRows)
	}
	if _, ok := got.Current.Rows[3].(*EmptyRow); !ok {
		t.Errorf("row 3 = %T, want *EmptyRow", got.Current.Rows[3])
	}
}

func TestArrangementValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(b *ArrangementBlock)
	}{
		{"too many repetitions", func(b *ArrangementBlock) {
			b.Rows[0] = &PatternRow{Repetitions: 64}
			b.NRows = 1
		}},
		{"scene out of range", func(b *ArrangementBlock) {
			b.Rows[0] = &PatternRow{SceneA: 16}
			b.NRows = 1
		}},
		{"loop count", func(b *ArrangementBlock) {
			b.Rows[0] = &LoopRow{LoopCount: 101}
			b.NRows = 1
		}},
		{"long reminder", func(b *ArrangementBlock) {
			b.Rows[0] = &ReminderRow{Text: "THIS IS TOO LONG TO FIT"}
			b.NRows = 1
		}},
		{"row after empty", func(b *ArrangementBlock) {
			b.Rows[1] = &LoopRow{}
			b.NRows = 2
		}},
		{"row count mismatch", func(b *ArrangementBlock) {
			b.Rows[0] = &LoopRow{}
			b.NRows = 0
		}},
		{"nil row", func(b *ArrangementBlock) {
			b.Rows[5] = nil
		}},
		{"long name", func(b *ArrangementBlock) {
			b.Name = "A NAME THAT IS TOO LONG"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewArrangement()
			tt.modify(&a.Current)
			if err := a.Current.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
			if _, err := a.Encode(); err == nil {
				t.Error("Encode() expected error")
			}
		})
	}
}

func TestAppendFull(t *testing.T) {
	b := newArrangementBlock()
	for i := 0; i < MaxArrangeRows; i++ {
		if err := b.Append(&LoopRow{}); err != nil {
			t.Fatalf("Append() row %d error = %v", i, err)
		}
	}
	if err := b.Append(&LoopRow{}); err == nil {
		t.Error("Append() to a full arrangement should fail")
	}

	a := NewArrangement()
	a.Current = b
	data, err := a.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeArrangement(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Current.NRows != MaxArrangeRows {
		t.Errorf("NRows = %d, want %d", got.Current.NRows, MaxArrangeRows)
	}
}

// offsets of the current block within the file
const (
	currentNRowsOffset = 41
	currentRow0Offset  = 42
)

func TestDecodeReminderRow(t *testing.T) {
	data, err := NewArrangement().Encode()
	if err != nil {
		t.Fatal(err)
	}
	data[currentNRowsOffset] = 1
	row := data[currentRow0Offset : currentRow0Offset+arrangeRowSize]
	row[0] = rowTypeReminder
	copy(row[1:], "chorus\x00junk")

	got, err := DecodeArrangement(data)
	if err != nil {
		t.Fatalf("DecodeArrangement() error = %v", err)
	}
	r, ok := got.Current.Rows[0].(*ReminderRow)
	if !ok {
		t.Fatalf("row 0 = %T, want *ReminderRow", got.Current.Rows[0])
	}
	if r.Text != "CHORUS" {
		t.Errorf("Text = %q, want CHORUS", r.Text)
	}
}

func TestDecodeArrangementErrors(t *testing.T) {
	data, err := NewArrangement().Encode()
	if err != nil {
		t.Fatal(err)
	}

	unknown := append([]byte(nil), data...)
	unknown[currentNRowsOffset] = 1
	unknown[currentRow0Offset] = 9
	if _, err := DecodeArrangement(unknown); !errors.Is(err, ErrFormat) {
		t.Errorf("DecodeArrangement(unknown row) error = %v, want ErrFormat", err)
	}

	badLoop := append([]byte(nil), data...)
	badLoop[currentNRowsOffset] = 1
	badLoop[currentRow0Offset] = rowTypeLoop
	badLoop[currentRow0Offset+1] = MaxLoopCount + 1
	if _, err := DecodeArrangement(badLoop); !errors.Is(err, ErrFormat) {
		t.Errorf("DecodeArrangement(loop count %d) error = %v, want ErrFormat", MaxLoopCount+1, err)
	}

	badHeader := append([]byte(nil), data...)
	badHeader[4] = 1
	if _, err := DecodeArrangement(badHeader); !errors.Is(err, ErrFormat) {
		t.Errorf("DecodeArrangement(bad header) error = %v, want ErrFormat", err)
	}

	if _, err := DecodeArrangement(data[:10]); !errors.Is(err, ErrFormat) {
		t.Errorf("DecodeArrangement(short) error = %v, want ErrFormat", err)
	}
}

func TestDecodeArrangementRowCount(t *testing.T) {
	data, err := NewArrangement().Encode()
	if err != nil {
		t.Fatal(err)
	}
	// rows past the stored count are ignored, even when not zeroed
	data[currentNRowsOffset] = 0
	data[currentRow0Offset] = rowTypeLoop

	got, err := DecodeArrangement(data)
	if err != nil {
		t.Fatalf("DecodeArrangement() error = %v", err)
	}
	if got.Current.NRows != 0 {
		t.Errorf("NRows = %d, want 0", got.Current.NRows)
	}
	if _, ok := got.Current.Rows[0].(*EmptyRow); !ok {
		t.Errorf("row 0 = %T, want *EmptyRow", got.Current.Rows[0])
	}
	if _, err := got.Encode(); err != nil {
		t.Errorf("Encode() of a decoded arrangement error = %v", err)
	}
}
