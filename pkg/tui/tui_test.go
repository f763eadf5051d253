package tui

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/james-see/octatools/pkg/octatrack"
	"github.com/james-see/octatools/pkg/transplant"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(Model)
	}
	return m, cmd
}

func TestMenuNavigation(t *testing.T) {
	m := New(transplant.New(transplant.Options{}))
	tests := []struct {
		keys []string
		want int
	}{
		{[]string{"down"}, 1},
		{[]string{"down", "down", "down", "down", "down"}, len(menuItems) - 1},
		{[]string{"down", "up", "up"}, 0},
		{[]string{"j", "j", "k"}, 1},
	}
	for _, tt := range tests {
		got, _ := press(t, m, tt.keys...)
		if got.menuIndex != tt.want {
			t.Errorf("keys %v: menuIndex = %d, want %d", tt.keys, got.menuIndex, tt.want)
		}
	}
}

func TestMenuExit(t *testing.T) {
	m := New(transplant.New(transplant.Options{}))
	keys := []string{}
	for range menuItems[:len(menuItems)-1] {
		keys = append(keys, "down")
	}
	keys = append(keys, "enter")
	_, cmd := press(t, m, keys...)
	if cmd == nil {
		t.Fatal("enter on Exit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("enter on Exit did not quit")
	}
}

func TestCopyWizard(t *testing.T) {
	m := New(transplant.New(transplant.Options{}))
	m, _ = press(t, m, "enter")
	if m.state != StateFilePicker || m.action.Action != ActionCopyBank {
		t.Fatalf("state = %v, action = %v, want file picker for a bank copy", m.state, m.action.Title)
	}

	next, _ := m.projectSelected("/sets/live/SRC")
	m = next.(Model)
	if m.state != StateBankInput || m.req.Src.Project != "/sets/live/SRC" {
		t.Fatalf("after picking source: state = %v, req = %+v", m.state, m.req)
	}

	m, _ = press(t, m, "9", "9", "enter")
	if !errors.Is(m.err, transplant.ErrInvalidIndex) || m.state != StateBankInput {
		t.Errorf("bank 99: err = %v, state = %v, want ErrInvalidIndex", m.err, m.state)
	}

	m.bankInput.SetValue("")
	m, _ = press(t, m, "3", "enter")
	if m.req.Src.BankID != 3 || m.state != StateFilePicker || m.step != stepDestProject {
		t.Fatalf("after source bank: req = %+v, state = %v, step = %d", m.req, m.state, m.step)
	}

	next, _ = m.projectSelected("/sets/live/DEST")
	m = next.(Model)
	m, cmd := press(t, m, "1", "2", "enter")
	if m.state != StateWorking || cmd == nil {
		t.Fatalf("after destination bank: state = %v, cmd = %v", m.state, cmd)
	}
	if m.req.Dest != (transplant.BankRef{Project: "/sets/live/DEST", BankID: 12}) {
		t.Errorf("req.Dest = %+v", m.req.Dest)
	}

	next, _ = m.Update(planDoneMsg{plan: &transplant.Plan{FreeStatic: 120, FreeFlex: 126}})
	m = next.(Model)
	if m.state != StateConfirm {
		t.Fatalf("after plan: state = %v, want confirm", m.state)
	}
	if !strings.Contains(m.View(), "Free slots left: 120 static, 126 flex") {
		t.Error("confirm view does not show the plan")
	}

	m, _ = press(t, m, "n")
	if m.state != StateMenu || m.plan != nil {
		t.Errorf("cancel: state = %v, plan = %v", m.state, m.plan)
	}
}

func TestPlanDestinationModified(t *testing.T) {
	m := New(transplant.New(transplant.Options{}))
	m.state = StateWorking
	next, cmd := m.Update(planDoneMsg{err: transplant.ErrDestinationModified})
	m = next.(Model)
	if !m.req.Force || cmd == nil {
		t.Errorf("modified destination: Force = %v, cmd = %v, want a forced replan", m.req.Force, cmd)
	}

	next, _ = m.Update(planDoneMsg{err: transplant.ErrInsufficientSlots})
	m = next.(Model)
	if m.state != StateResult || !errors.Is(m.err, transplant.ErrInsufficientSlots) {
		t.Errorf("plan error: state = %v, err = %v", m.state, m.err)
	}
	if !strings.Contains(m.View(), "insufficient free sample slots") {
		t.Error("result view does not show the error")
	}
}

func TestSlotUsageAction(t *testing.T) {
	dir := t.TempDir()
	p := octatrack.NewProject()
	p.Slots = append(p.Slots, octatrack.NewSampleSlot(octatrack.Static, 1, "kick.wav"))
	if err := octatrack.WriteProjectFile(octatrack.ProjectFile(dir), p); err != nil {
		t.Fatal(err)
	}
	if err := octatrack.WriteBankFile(octatrack.BankFile(dir, 2), octatrack.NewBank()); err != nil {
		t.Fatal(err)
	}

	msg := slotUsage(dir)()
	done, ok := msg.(workDoneMsg)
	if !ok || done.err != nil {
		t.Fatalf("slotUsage() = %#v", msg)
	}
	if !strings.Contains(done.result, "kick.wav") || !strings.Contains(done.result, "banks 2") {
		t.Errorf("slotUsage() result = %q", done.result)
	}

	if done := slotUsage(filepath.Join(dir, "missing"))().(workDoneMsg); done.err == nil {
		t.Error("slotUsage() expected error for a missing project")
	}
}

func TestFormatUsage(t *testing.T) {
	usage := []transplant.SlotUsage{
		{Type: octatrack.Static, SlotID: 1, Loaded: true, Path: "kick.wav", Banks: []int{1, 4}},
		{Type: octatrack.Flex, SlotID: 3, Loaded: false, Banks: []int{2}},
		{Type: octatrack.Flex, SlotID: 9, Loaded: false, Banks: []int{}},
	}
	got := formatUsage(usage)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("formatUsage() = %q, want 2 lines", got)
	}
	if !strings.Contains(lines[0], "kick.wav") || !strings.HasSuffix(lines[0], "banks 1,4") {
		t.Errorf("line 1 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "(empty)") {
		t.Errorf("line 2 = %q", lines[1])
	}
}
