// Package ui provides the terminal interface for the task list.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nibzard/tasklist-go/internal/manager"
	"github.com/nibzard/tasklist-go/internal/todo"
)

// TUIOption configures the TUI behavior.
type TUIOption func(*tuiConfig)

// tuiConfig holds TUI configuration.
type tuiConfig struct {
	subtitle  string
	altScreen bool
}

// WithSubtitle sets the line shown under the title, such as the store
// location.
func WithSubtitle(s string) TUIOption {
	return func(c *tuiConfig) {
		c.subtitle = s
	}
}

// WithAltScreen selects whether the TUI takes over the full terminal.
func WithAltScreen(enabled bool) TUIOption {
	return func(c *tuiConfig) {
		c.altScreen = enabled
	}
}

// RunTUI runs the interactive task list until the user quits or ctx is
// done. The manager must already be loaded. notices may be nil; otherwise it
// should be the manager's notifier.
func RunTUI(ctx context.Context, mgr *manager.Manager, notices *NoticeChannel, opts ...TUIOption) error {
	c := &tuiConfig{altScreen: true}
	for _, opt := range opts {
		opt(c)
	}

	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}

	model := newTUIModel(mgr, notices, c)
	defer model.close()

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if c.altScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	program := tea.NewProgram(model, programOpts...)
	_, err := program.Run()
	return err
}

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
)

type tuiModel struct {
	mgr         *manager.Manager
	notices     <-chan manager.Notice
	unsubscribe func()
	subtitle    string

	state     manager.State
	cursor    int
	mode      mode
	addInput  textinput.Model
	editInput textinput.Model

	notice   *manager.Notice
	saving   int
	saved    bool
	showHelp bool
}

func newTUIModel(mgr *manager.Manager, notices *NoticeChannel, c *tuiConfig) *tuiModel {
	addInput := textinput.New()
	addInput.Placeholder = "What needs doing?"
	addInput.Prompt = ""
	addInput.CharLimit = 512
	addInput.Width = 50

	editInput := textinput.New()
	editInput.Prompt = ""
	editInput.CharLimit = 512
	editInput.Width = 50

	m := &tuiModel{
		mgr:       mgr,
		subtitle:  c.subtitle,
		addInput:  addInput,
		editInput: editInput,
	}
	if notices != nil {
		m.notices = notices.C()
	}
	m.state = mgr.Snapshot()
	m.unsubscribe = mgr.Subscribe(m.onState)
	m.addInput.SetValue(m.state.AddDraft)
	return m
}

func (m *tuiModel) close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// onState receives manager snapshots. It runs inside Update, on the
// program's goroutine.
func (m *tuiModel) onState(s manager.State) {
	m.state = s
	m.cursor = clampCursor(m.cursor, len(s.Tasks))
	if m.mode == modeEdit && !s.IsEditing() {
		m.mode = modeList
		m.editInput.Blur()
	}
}

func (m *tuiModel) Init() tea.Cmd {
	if m.notices == nil {
		return nil
	}
	return waitForNotice(m.notices)
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeAdd:
			return m.updateAddMode(msg)
		case modeEdit:
			return m.updateEditMode(msg)
		default:
			return m.updateListMode(msg)
		}
	case tea.WindowSizeMsg:
		width := msg.Width - 12
		if width < 10 {
			width = 10
		}
		m.addInput.Width = width
		m.editInput.Width = width
	case noticeMsg:
		n := msg.notice
		m.notice = &n
		return m, waitForNotice(m.notices)
	case saveDoneMsg:
		if m.saving > 0 {
			m.saving--
		}
		if m.saving == 0 && msg.err == nil {
			m.saved = true
		}
	}
	return m, nil
}

func (m *tuiModel) updateListMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "j", "down":
		m.cursor = clampCursor(m.cursor+1, len(m.state.Tasks))
	case "k", "up":
		m.cursor = clampCursor(m.cursor-1, len(m.state.Tasks))
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = clampCursor(len(m.state.Tasks)-1, len(m.state.Tasks))
	case "a":
		m.mode = modeAdd
		m.addInput.SetValue(m.state.AddDraft)
		m.addInput.CursorEnd()
		return m, m.addInput.Focus()
	case "e", "enter":
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mgr.BeginEdit(task)
		m.mode = modeEdit
		m.editInput.SetValue(m.state.EditDraft)
		m.editInput.CursorEnd()
		return m, m.editInput.Focus()
	case " ", "space", "x":
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.track(m.mgr.ToggleCompleted(task.ID))
	case "d", "delete":
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.track(m.mgr.Delete(task.ID))
	case "?":
		m.showHelp = !m.showHelp
	case "esc":
		m.notice = nil
		m.showHelp = false
	}
	return m, nil
}

func (m *tuiModel) updateAddMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.addInput.Blur()
		return m, nil
	case "enter":
		_, p, err := m.mgr.Add(m.addInput.Value())
		if err != nil {
			return m, nil
		}
		m.addInput.SetValue("")
		m.addInput.Blur()
		m.mode = modeList
		m.cursor = clampCursor(len(m.state.Tasks)-1, len(m.state.Tasks))
		return m, m.track(p)
	}

	var cmd tea.Cmd
	m.addInput, cmd = m.addInput.Update(msg)
	if v := m.addInput.Value(); v != m.state.AddDraft {
		m.mgr.SetAddDraft(v)
	}
	return m, cmd
}

func (m *tuiModel) updateEditMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mgr.CancelEdit()
		return m, nil
	case "enter":
		p, err := m.mgr.CommitEdit()
		if err != nil {
			return m, nil
		}
		return m, m.track(p)
	}

	var cmd tea.Cmd
	m.editInput, cmd = m.editInput.Update(msg)
	if v := m.editInput.Value(); v != m.state.EditDraft {
		m.mgr.SetEditDraft(v)
	}
	return m, cmd
}

// track counts p as outstanding until it reports back. A new save replaces
// any notice left from an earlier action.
func (m *tuiModel) track(p *manager.Pending) tea.Cmd {
	if p == nil {
		return nil
	}
	m.saving++
	m.saved = false
	m.notice = nil
	return waitForSave(p)
}

func (m *tuiModel) selected() (todo.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.state.Tasks) {
		return todo.Task{}, false
	}
	return m.state.Tasks[m.cursor], true
}

func (m *tuiModel) View() string {
	var b strings.Builder
	m.writeTitle(&b)

	if m.showHelp {
		writeHelp(&b)
		writeFooter(&b, m.mode)
		return b.String()
	}

	m.writeTasks(&b)
	m.writeAddLine(&b)
	m.writeStatusLine(&b)
	writeFooter(&b, m.mode)
	return b.String()
}

func (m *tuiModel) writeTitle(b *strings.Builder) {
	done := todo.CountCompleted(m.state.Tasks)
	b.WriteString(titleStyle.Render("Tasks"))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %d/%d done", done, len(m.state.Tasks))))
	b.WriteString("\n")
	if m.subtitle != "" {
		b.WriteString(subtitleStyle.Render(m.subtitle))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (m *tuiModel) writeTasks(b *strings.Builder) {
	if len(m.state.Tasks) == 0 {
		b.WriteString(mutedStyle.Render("  No tasks yet. Press a to add one."))
		b.WriteString("\n\n")
		return
	}

	for i, task := range m.state.Tasks {
		cursor := "  "
		if i == m.cursor && m.mode != modeAdd {
			cursor = cursorStyle.Render("> ")
		}
		b.WriteString(cursor)
		b.WriteString(checkbox(task.Completed))
		b.WriteString(" ")

		if m.mode == modeEdit && m.state.Editing != nil && m.state.Editing.ID == task.ID {
			b.WriteString(m.editInput.View())
		} else {
			b.WriteString(m.renderText(task, i == m.cursor))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (m *tuiModel) renderText(task todo.Task, selected bool) string {
	switch {
	case task.Completed:
		return completedStyle.Render(task.Text)
	case selected && m.mode == modeList:
		return selectedStyle.Render(task.Text)
	default:
		return task.Text
	}
}

func (m *tuiModel) writeAddLine(b *strings.Builder) {
	b.WriteString(labelStyle.Render("New task: "))
	if m.mode == modeAdd {
		b.WriteString(m.addInput.View())
	} else if m.state.AddDraft != "" {
		b.WriteString(mutedStyle.Render(m.state.AddDraft))
	} else {
		b.WriteString(mutedStyle.Render("press a"))
	}
	b.WriteString("\n\n")
}

func (m *tuiModel) writeStatusLine(b *strings.Builder) {
	switch {
	case m.notice != nil:
		b.WriteString(noticeStyle(m.notice.Level).Render(m.notice.String()))
	case m.saving > 0:
		b.WriteString(mutedStyle.Render("Saving..."))
	case m.saved:
		b.WriteString(mutedStyle.Render("Saved."))
	}
	b.WriteString("\n")
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  a            Add a task\n")
	b.WriteString("  e, enter     Edit the selected task\n")
	b.WriteString("  space, x     Toggle completed\n")
	b.WriteString("  d            Delete the selected task\n")
	b.WriteString("  j/k, arrows  Move the cursor\n")
	b.WriteString("  g/G          Jump to first/last task\n")
	b.WriteString("  enter        Save the task being added or edited\n")
	b.WriteString("  esc          Cancel add or edit, dismiss the message\n")
	b.WriteString("  ?            Toggle this help screen\n")
	b.WriteString("  q, ctrl+c    Quit\n\n")
}

func writeFooter(b *strings.Builder, mode mode) {
	var hint string
	switch mode {
	case modeAdd:
		hint = "enter add • esc cancel"
	case modeEdit:
		hint = "enter save • esc cancel"
	default:
		hint = "a add • e edit • space toggle • d delete • ? help • q quit"
	}
	b.WriteString(mutedStyle.Render(hint))
	b.WriteString("\n")
}

func checkbox(completed bool) string {
	if completed {
		return "[x]"
	}
	return "[ ]"
}

func clampCursor(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	if cursor >= n {
		return n - 1
	}
	return cursor
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
