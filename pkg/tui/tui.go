// Package tui provides a terminal user interface for octatools
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/james-see/octatools/pkg/octatrack"
	"github.com/james-see/octatools/pkg/transplant"
)

// Amber display color scheme
var (
	amber      = lipgloss.Color("#FFB000")
	paleAmber  = lipgloss.Color("#FFE0A0")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(amber).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(paleAmber).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(amber).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateBankInput
	StateWorking
	StateConfirm
	StateResult
)

// Action is what a menu entry does
type Action int

const (
	ActionCopyBank Action = iota
	ActionSlotUsage
	ActionDedup
	ActionExit
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Action      Action
}

var menuItems = []MenuItem{
	{Title: "Copy bank", Description: "Copy a bank into another project with its samples", Action: ActionCopyBank},
	{Title: "Slot usage", Description: "List the sample slots of a project and the banks using them", Action: ActionSlotUsage},
	{Title: "Deduplicate slots", Description: "Merge sample slots that hold the same sample and settings", Action: ActionDedup},
	{Title: "Exit", Description: "Exit the application", Action: ActionExit},
}

// wizard steps of a bank copy
const (
	stepSrcProject = iota
	stepSrcBank
	stepDestProject
	stepDestBank
)

// Model represents the TUI model
type Model struct {
	state      State
	menuIndex  int
	action     MenuItem
	step       int
	filePicker filepicker.Model
	bankInput  textinput.Model
	spinner    spinner.Model
	tr         *transplant.Transplanter

	req    transplant.Request
	plan   *transplant.Plan
	result string
	err    error
	width  int
	height int
}

type planDoneMsg struct {
	plan *transplant.Plan
	err  error
}

type workDoneMsg struct {
	result string
	err    error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model
func New(tr *transplant.Transplanter) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{"." + octatrack.ExtWork}
	fp.CurrentDirectory, _ = os.Getwd()

	ti := textinput.New()
	ti.Placeholder = "1-16"
	ti.CharLimit = 2
	ti.Width = 4

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(amber)

	return Model{
		state:      StateMenu,
		filePicker: fp,
		bankInput:  ti,
		spinner:    s,
		tr:         tr,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// the file picker needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			return m.projectSelected(filepath.Dir(path))
		}
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateBankInput:
			return m.updateBankInput(msg)
		case StateConfirm:
			return m.updateConfirm(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case planDoneMsg:
		if errors.Is(msg.err, transplant.ErrDestinationModified) && !m.req.Force {
			// plan again and ask before overwriting
			m.req.Force = true
			return m, m.planCopy()
		}
		if msg.err != nil {
			m.state = StateResult
			m.err = msg.err
			return m, nil
		}
		m.plan = msg.plan
		m.state = StateConfirm
		return m, nil

	case workDoneMsg:
		m.state = StateResult
		m.result = msg.result
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		m.action = menuItems[m.menuIndex]
		if m.action.Action == ActionExit {
			return m, tea.Quit
		}
		m.step = stepSrcProject
		m.req = transplant.Request{}
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// projectSelected records a picked project directory and moves to the next step
func (m Model) projectSelected(dir string) (tea.Model, tea.Cmd) {
	switch m.action.Action {
	case ActionSlotUsage:
		m.state = StateWorking
		return m, tea.Batch(m.spinner.Tick, slotUsage(dir))
	case ActionDedup:
		m.state = StateWorking
		return m, tea.Batch(m.spinner.Tick, m.dedup(dir))
	}
	if m.step == stepSrcProject {
		m.req.Src.Project = dir
		m.step = stepSrcBank
	} else {
		m.req.Dest.Project = dir
		m.step = stepDestBank
	}
	m.state = StateBankInput
	m.bankInput.SetValue("")
	m.err = nil
	return m, m.bankInput.Focus()
}

func (m Model) updateBankInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = StateMenu
		m.bankInput.Blur()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		n, err := strconv.Atoi(strings.TrimSpace(m.bankInput.Value()))
		if err != nil || n < 1 || n > octatrack.MaxBanks {
			m.err = transplant.ErrInvalidIndex
			return m, nil
		}
		m.err = nil
		m.bankInput.Blur()
		if m.step == stepSrcBank {
			m.req.Src.BankID = n
			m.step = stepDestProject
			m.state = StateFilePicker
			return m, m.filePicker.Init()
		}
		m.req.Dest.BankID = n
		m.state = StateWorking
		return m, tea.Batch(m.spinner.Tick, m.planCopy())
	}
	var cmd tea.Cmd
	m.bankInput, cmd = m.bankInput.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.state = StateWorking
		return m, tea.Batch(m.spinner.Tick, m.copyBank())
	case "n", "esc":
		m.state = StateMenu
		m.plan = nil
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.plan = nil
		m.result = ""
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) planCopy() tea.Cmd {
	tr, req := m.tr, m.req
	return func() tea.Msg {
		plan, err := tr.Plan(context.Background(), req)
		return planDoneMsg{plan: plan, err: err}
	}
}

func (m Model) copyBank() tea.Cmd {
	tr, req := m.tr, m.req
	return func() tea.Msg {
		rep, err := tr.CopyBank(context.Background(), req)
		if err != nil {
			return workDoneMsg{err: err}
		}
		return workDoneMsg{result: formatReport(rep)}
	}
}

func (m Model) dedup(dir string) tea.Cmd {
	tr := m.tr
	return func() tea.Msg {
		rep, err := tr.DeduplicateProject(context.Background(), dir)
		if err != nil {
			return workDoneMsg{err: err}
		}
		if len(rep.Reassignments) == 0 {
			return workDoneMsg{result: "No duplicate sample slots."}
		}
		var s strings.Builder
		for _, r := range rep.Reassignments {
			fmt.Fprintf(&s, "%-6s %3d → %3d\n", r.Type, r.OldID+1, r.NewID+1)
		}
		fmt.Fprintf(&s, "Banks changed: %v", rep.Banks)
		return workDoneMsg{result: s.String()}
	}
}

func slotUsage(dir string) tea.Cmd {
	return func() tea.Msg {
		usage, err := transplant.ListProjectUsage(dir)
		if err != nil {
			return workDoneMsg{err: err}
		}
		return workDoneMsg{result: formatUsage(usage)}
	}
}

func formatUsage(usage []transplant.SlotUsage) string {
	var s strings.Builder
	for _, su := range usage {
		if !su.Loaded && len(su.Banks) == 0 {
			continue
		}
		path := su.Path
		if !su.Loaded {
			path = "(empty)"
		}
		banks := make([]string, len(su.Banks))
		for i, b := range su.Banks {
			banks[i] = strconv.Itoa(b)
		}
		fmt.Fprintf(&s, "%-6s %3d  %-32s banks %s\n", su.Type, su.SlotID, path, strings.Join(banks, ","))
	}
	return strings.TrimRight(s.String(), "\n")
}

func formatPlan(p *transplant.Plan) string {
	var s strings.Builder
	fmt.Fprintf(&s, "Reuse %d/%d, add %d/%d static/flex slots\n",
		p.Count(octatrack.Static, transplant.ReuseSlot), p.Count(octatrack.Flex, transplant.ReuseSlot),
		p.Count(octatrack.Static, transplant.NewSlot), p.Count(octatrack.Flex, transplant.NewSlot))
	fmt.Fprintf(&s, "Free slots left: %d static, %d flex\n", p.FreeStatic, p.FreeFlex)
	fmt.Fprintf(&s, "Inactive references: %d\n", p.Inactive())
	fmt.Fprintf(&s, "Files to copy: %d", len(p.Transfers))
	return s.String()
}

func formatReport(r *transplant.Report) string {
	var s strings.Builder
	fmt.Fprintf(&s, "%s → %s\n", r.Request.Src, r.Request.Dest)
	if r.Transfer != nil {
		fmt.Fprintf(&s, "Copied %d files, skipped %d\n", len(r.Transfer.Copied), len(r.Transfer.Skipped))
	}
	for _, b := range r.Backups {
		fmt.Fprintf(&s, "Backup: %s\n", filepath.Base(b))
	}
	return strings.TrimRight(s.String(), "\n")
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateBankInput:
		s.WriteString(m.viewBankInput())
	case StateWorking:
		s.WriteString(m.viewWorking())
	case StateConfirm:
		s.WriteString(m.viewConfirm())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT ACTION "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(paleAmber).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	title := " SELECT PROJECT "
	if m.action.Action == ActionCopyBank {
		title = " SELECT SOURCE PROJECT "
		if m.step == stepDestProject {
			title = " SELECT DESTINATION PROJECT "
		}
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("pick a project.work file • esc: back to menu"))

	return s.String()
}

func (m Model) viewBankInput() string {
	var s strings.Builder

	which, dir := "SOURCE", m.req.Src.Project
	if m.step == stepDestBank {
		which, dir = "DESTINATION", m.req.Dest.Project
	}
	s.WriteString(titleStyle.Render(fmt.Sprintf(" %s BANK ", which)))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("Project: %s\n", filepath.Base(dir)))
	s.WriteString("Bank: " + m.bankInput.View())
	if m.err != nil {
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(m.err.Error()))
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewWorking() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" WORKING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s %s...\n", m.spinner.View(), m.action.Title))
	if m.action.Action == ActionCopyBank {
		s.WriteString(statusStyle.Render(fmt.Sprintf("  %s → %s", m.req.Src, m.req.Dest)))
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewConfirm() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" CONFIRM BANK COPY "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s → %s\n\n", m.req.Src, m.req.Dest))
	if m.req.Force {
		s.WriteString(errorStyle.Render("The destination bank holds data and will be overwritten."))
		s.WriteString("\n\n")
	}
	if m.plan != nil {
		s.WriteString(formatPlan(m.plan))
	}
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("y: copy • n: cancel"))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s failed: %s", m.action.Title, m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render(fmt.Sprintf("✓ %s complete!", m.action.Title)))
		s.WriteString("\n\n")
		s.WriteString(m.result)
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
   ___   ____ _____  _    _____ ___   ___  _     ____
  / _ \ / ___|_   _|/ \  |_   _/ _ \ / _ \| |   / ___|
 | | | | |     | | / _ \   | || | | | | | | |   \___ \
 | |_| | |___  | |/ ___ \  | || |_| | |_| | |___ ___) |
  \___/ \____| |_/_/   \_\ |_| \___/ \___/|_____|____/
`
	return lipgloss.NewStyle().Foreground(amber).Render(logo)
}

// Run starts the TUI application
func Run(tr *transplant.Transplanter) error {
	p := tea.NewProgram(New(tr), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
