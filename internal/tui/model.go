package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/org/rfidconsole/internal/console"
	"github.com/org/rfidconsole/internal/view"
)

const (
	maxNotes   = 3
	maxLogRows = 10
)

// Syncer refreshes the view store from the device.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Scanner is the scan coordinator as seen by the dashboard.
type Scanner interface {
	Toggle(ctx context.Context, field console.Field) *console.ScanSession
	State() console.ScanState
}

// Deleter removes a card after asking the Bridge for confirmation.
type Deleter interface {
	DeleteCard(ctx context.Context, uid, name string) error
}

// Options wires a Model to the console engine.
type Options struct {
	Store   *view.Store
	Bridge  *Bridge
	Syncer  Syncer
	Scanner Scanner
	Deleter Deleter
	Keys    *KeyMap
	Theme   *Theme
}

type syncDoneMsg struct{ err error }

type deleteDoneMsg struct{ err error }

type note struct {
	level console.Level
	text  string
}

// Model is the dashboard's bubbletea model.
type Model struct {
	ctx     context.Context
	store   *view.Store
	bridge  *Bridge
	syncer  Syncer
	scanner Scanner
	deleter Deleter
	keys    KeyMap
	theme   Theme

	snap    view.Snapshot
	cursor  int
	notes   []note
	prompt  *confirmMsg
	busy    bool
	width   int
	height  int
	started bool
}

// NewModel creates a dashboard bound to ctx; the engine calls it starts
// are cancelled with ctx.
func NewModel(ctx context.Context, opts Options) Model {
	m := Model{
		ctx:     ctx,
		store:   opts.Store,
		bridge:  opts.Bridge,
		syncer:  opts.Syncer,
		scanner: opts.Scanner,
		deleter: opts.Deleter,
		keys:    DefaultKeyMap,
		theme:   DefaultTheme,
		snap:    opts.Store.Snapshot(),
	}
	if opts.Keys != nil {
		m.keys = *opts.Keys
	}
	if opts.Theme != nil {
		m.theme = *opts.Theme
	}
	return m
}

// Init implements tea.Model. It starts listening to the engine and runs
// the first sync.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.bridge.listen(), m.syncCmd())
}

func (m Model) syncCmd() tea.Cmd {
	return func() tea.Msg {
		return syncDoneMsg{err: m.syncer.Sync(m.ctx)}
	}
}

func (m Model) deleteCmd(uid, name string) tea.Cmd {
	return func() tea.Msg {
		return deleteDoneMsg{err: m.deleter.DeleteCard(m.ctx, uid, name)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.started = true
		return m, nil

	case tea.KeyMsg:
		if m.prompt != nil {
			return m.handlePromptKeys(msg)
		}
		return m.handleKeys(msg)

	case noteMsg:
		m.notes = append(m.notes, note{level: msg.level, text: msg.text})
		if len(m.notes) > maxNotes {
			m.notes = m.notes[len(m.notes)-maxNotes:]
		}
		return m, m.bridge.listen()

	case changedMsg:
		m.snap = m.store.Snapshot()
		m.clampCursor()
		return m, m.bridge.listen()

	case confirmMsg:
		m.prompt = &msg
		return m, m.bridge.listen()

	case dismissMsg:
		m.prompt = nil
		return m, m.bridge.listen()

	case syncDoneMsg, deleteDoneMsg:
		// Failures were already reported through the Bridge.
		m.busy = false
		return m, nil
	}
	return m, nil
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snap.Cards)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Refresh):
		if !m.busy {
			m.busy = true
			return m, m.syncCmd()
		}
	case key.Matches(msg, m.keys.Scan):
		m.scanner.Toggle(m.ctx, m.store)
	case key.Matches(msg, m.keys.Delete):
		if m.busy || len(m.snap.Cards) == 0 {
			return m, nil
		}
		card := m.snap.Cards[m.cursor]
		m.busy = true
		return m, m.deleteCmd(card.UID, card.Name)
	}
	return m, nil
}

func (m Model) handlePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Yes):
		m.prompt.answer <- true
		m.prompt = nil
	case key.Matches(msg, m.keys.No):
		m.prompt.answer <- false
		m.prompt = nil
	case key.Matches(msg, m.keys.Quit):
		m.prompt.answer <- false
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.snap.Cards) {
		m.cursor = len(m.snap.Cards) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.started {
		return "Loading..."
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Title)
	faint := lipgloss.NewStyle().Foreground(m.theme.Faint)
	section := lipgloss.NewStyle().Bold(true).MarginTop(1)

	var b strings.Builder
	b.WriteString(title.Render("RFID Access Console"))
	b.WriteString("  ")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")

	s := m.snap.Stats
	fmt.Fprintf(&b, "Cards: %d   Accesses: %d   Last card: %s\n", s.TotalCards, s.TotalAccesses, m.snap.LastCardLabel)

	if e := m.snap.Enrollment; !e.Editable || e.UID != "" {
		fmt.Fprintf(&b, "Enrollment UID: %s\n", e.UID)
	}

	b.WriteString(section.Render("Registered cards"))
	b.WriteString("\n")
	b.WriteString(m.renderCards())

	b.WriteString(section.Render("Access log"))
	b.WriteString("\n")
	b.WriteString(m.renderLogs())

	for _, n := range m.notes {
		style := lipgloss.NewStyle().Foreground(m.theme.Levels[string(n.level)])
		b.WriteString("\n")
		b.WriteString(style.Render("» " + n.text))
	}

	if m.prompt != nil {
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(m.theme.Border).
			Padding(0, 1).
			MarginTop(1)
		b.WriteString("\n")
		b.WriteString(box.Render(lipgloss.JoinVertical(lipgloss.Left,
			title.Render(m.prompt.title),
			m.prompt.message,
			faint.Render("y confirm • n cancel"),
		)))
	}

	b.WriteString("\n")
	b.WriteString(faint.Render(m.renderHelp()))
	return b.String()
}

func (m Model) renderStatus() string {
	scan := ""
	if m.scanner.State() == console.ScanArmed {
		scan = "  [scanning]"
	}
	updated := "never"
	if !m.snap.LastUpdated.IsZero() {
		updated = console.FormatDateTime(m.snap.LastUpdated)
	}
	if m.snap.Connected {
		return lipgloss.NewStyle().Foreground(m.theme.Connected).Render("● connected") +
			"  updated " + updated + scan
	}
	return lipgloss.NewStyle().Foreground(m.theme.Disconnected).Render("○ disconnected") +
		"  updated " + updated + scan
}

func (m Model) renderCards() string {
	if len(m.snap.Cards) == 0 {
		return "  No cards registered\n"
	}
	selected := lipgloss.NewStyle().Background(m.theme.SelectedBg)
	var b strings.Builder
	fmt.Fprintf(&b, "  %-20s %-24s %-14s %-11s %-11s %s\n", "UID", "NAME", "LEVEL", "FIRST SEEN", "LAST SEEN", "ACCESSES")
	for i, c := range m.snap.Cards {
		line := fmt.Sprintf("  %-20s %-24s %-14s %-11s %-11s %d",
			c.UID, c.Name, c.LevelLabel, c.FirstSeenText, c.LastSeenText, c.AccessCount)
		if i == m.cursor {
			line = selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderLogs() string {
	if len(m.snap.Logs) == 0 {
		return "  No access events\n"
	}
	granted := lipgloss.NewStyle().Foreground(m.theme.Granted)
	denied := lipgloss.NewStyle().Foreground(m.theme.Denied)
	var b strings.Builder
	logs := m.snap.Logs
	if len(logs) > maxLogRows {
		logs = logs[:maxLogRows]
	}
	for _, l := range logs {
		action := denied.Render(string(l.Action))
		if l.Granted {
			action = granted.Render(string(l.Action))
		}
		fmt.Fprintf(&b, "  %-19s  %-20s %s\n", l.TimeText, l.UID, action)
	}
	return b.String()
}

func (m Model) renderHelp() string {
	var parts []string
	for _, k := range m.keys.help() {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
