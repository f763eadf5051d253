package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/james-see/octatools/pkg/octatrack"
	"github.com/james-see/octatools/pkg/transplant"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testReport(started time.Time, state transplant.State) *transplant.Report {
	return &transplant.Report{
		ID: uuid.NewString(),
		Request: transplant.Request{
			Src:  transplant.BankRef{Project: "/sets/a/SRC", BankID: 1},
			Dest: transplant.BankRef{Project: "/sets/a/DEST", BankID: 2},
		},
		State:      state,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := testReport(time.Unix(1700000000, 0).UTC(), transplant.StateDone)
	r.Backups = []string{"/sets/a/DEST/project.work_octatools_1700000000"}
	r.Plan = &transplant.Plan{
		Operations: []transplant.Operation{
			{Kind: transplant.NewSlot, Src: octatrack.NewSampleSlot(octatrack.Static, 0, "x.wav"), Dest: octatrack.NewSampleSlot(octatrack.Static, 126, "x.wav")},
			{Kind: transplant.ReuseSlot, Src: octatrack.NewSampleSlot(octatrack.Flex, 3, "y.wav"), Dest: octatrack.NewSampleSlot(octatrack.Flex, 40, "y.wav")},
			{Kind: transplant.ReuseSlot, Inactive: true, Src: octatrack.NewSampleSlot(octatrack.Flex, 7, ""), Dest: octatrack.NewSampleSlot(octatrack.Flex, 127, "")},
		},
		Transfers:  []transplant.FileTransfer{{Audio: "x.wav", DestAudio: "x.wav", DestAttributes: "x.ot"}},
		StaticSink: 127,
		FlexSink:   127,
	}
	if err := s.Record(ctx, r); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.SrcProject != "/sets/a/SRC" || got.SrcBank != 1 || got.DestProject != "/sets/a/DEST" || got.DestBank != 2 {
		t.Errorf("Get() request = %+v", got)
	}
	if got.State != transplant.StateDone {
		t.Errorf("Get().State = %v, want %v", got.State, transplant.StateDone)
	}
	if got.NewSlots != 1 {
		t.Errorf("Get().NewSlots = %d, want 1", got.NewSlots)
	}
	if got.Transfers != 1 {
		t.Errorf("Get().Transfers = %d, want 1", got.Transfers)
	}
	if !got.StartedAt.Equal(r.StartedAt) || !got.FinishedAt.Equal(r.FinishedAt) {
		t.Errorf("Get() times = %v..%v, want %v..%v", got.StartedAt, got.FinishedAt, r.StartedAt, r.FinishedAt)
	}
	if got.Report == nil || got.Report.Plan == nil {
		t.Fatal("Get().Report.Plan = nil")
	}
	ops := got.Report.Plan.Operations
	if len(ops) != 3 {
		t.Fatalf("len(Operations) = %d, want 3", len(ops))
	}
	if ops[0].Kind != transplant.NewSlot || ops[0].Dest.SlotID != 126 {
		t.Errorf("Operations[0] = %+v", ops[0])
	}
	if ops[1].Src.Type != octatrack.Flex || ops[1].Dest.SlotID != 40 {
		t.Errorf("Operations[1] = %+v", ops[1])
	}
	if !ops[2].Inactive {
		t.Errorf("Operations[2].Inactive = false, want true")
	}
	if len(got.Report.Backups) != 1 {
		t.Errorf("len(Backups) = %d, want 1", len(got.Report.Backups))
	}
}

func TestRecordReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := testReport(time.Unix(1700000000, 0).UTC(), transplant.StatePlan)
	if err := s.Record(ctx, r); err != nil {
		t.Fatal(err)
	}
	r.State = transplant.StateAborted
	r.FailedAt = transplant.StateTransfer
	r.Error = "insufficient sample slots"
	if err := s.Record(ctx, r); err != nil {
		t.Fatal(err)
	}

	entries, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("List() returned %d entries, want 1", len(entries))
	}
	if entries[0].State != transplant.StateAborted || entries[0].Error != r.Error {
		t.Errorf("List()[0] = %+v", entries[0])
	}
}

func TestList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0).UTC()
	var ids []string
	for i := 0; i < 4; i++ {
		r := testReport(base.Add(time.Duration(i)*time.Minute), transplant.StateDone)
		ids = append(ids, r.ID)
		if err := s.Record(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"all", 0, []string{ids[3], ids[2], ids[1], ids[0]}},
		{"limited", 2, []string{ids[3], ids[2]}},
		{"over", 10, []string{ids[3], ids[2], ids[1], ids[0]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.limit)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() returned %d entries, want %d", len(got), len(tt.want))
			}
			for i, e := range got {
				if e.ID != tt.want[i] {
					t.Errorf("List()[%d].ID = %s, want %s", i, e.ID, tt.want[i])
				}
				if e.Report != nil {
					t.Errorf("List()[%d].Report should not be loaded", i)
				}
			}
		})
	}
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q) error = %v, want ErrNotFound", id, err)
		}
	}
}

func TestRecordInvalidID(t *testing.T) {
	s := openTestStore(t)
	r := testReport(time.Now(), transplant.StateDone)
	r.ID = "bank-copy"
	if err := s.Record(context.Background(), r); err == nil {
		t.Error("Record() expected error for a non-uuid id")
	}
}

func TestStoreAsJournal(t *testing.T) {
	var _ transplant.Journal = (*Store)(nil)
}
