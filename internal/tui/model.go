package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/clarabennett2626/logkeep/internal/logs"
	"github.com/clarabennett2626/logkeep/internal/source"
)

// LineMsg carries one followed log line into the TUI.
type LineMsg struct {
	Entry source.LogEntry
}

// LineBatchMsg carries multiple log lines at once, e.g. an initial tail.
type LineBatchMsg struct {
	Entries []source.LogEntry
}

// ErrMsg carries a source error into the TUI.
type ErrMsg struct {
	Err error
}

// ClearedMsg reports that the log at Path was truncated.
type ClearedMsg struct {
	Path string
}

// ModelOptions configures a viewer.
type ModelOptions struct {
	// Accessor is used by the clear keybinding. Optional.
	Accessor *logs.Accessor
	// Prefix is the rotation family shown in the title bar.
	Prefix    string
	Following bool
	Theme     Theme
}

// viewLine is one buffered line. Errors are styled when drawn, after the
// raw text has been sanitised.
type viewLine struct {
	text  string
	isErr bool
}

// Model is the log viewer.
type Model struct {
	width  int
	height int
	ready  bool

	lines []viewLine
	// noLog is set when the source reported that no log file exists yet.
	noLog bool

	// Virtual scrolling state.
	offset     int  // index of the first visible line
	autoScroll bool // stick to bottom when new lines arrive

	acc        *logs.Accessor
	prefix     string
	sourcePath string
	following  bool
	styles     themeStyles
}

// NewModel creates a viewer with default options.
func NewModel() Model {
	return NewModelWithOptions(ModelOptions{})
}

// NewModelWithOptions creates a viewer.
func NewModelWithOptions(opts ModelOptions) Model {
	return Model{
		autoScroll: true,
		acc:        opts.Accessor,
		prefix:     opts.Prefix,
		following:  opts.Following,
		styles:     stylesFor(opts.Theme),
	}
}

// viewHeight returns the number of lines available for log display
// (total height minus title bar and status bar).
func (m Model) viewHeight() int {
	// 1 line title + 1 blank + 1 status bar = 3 overhead lines
	h := m.height - 3
	if h < 1 {
		return 1
	}
	return h
}

func (m Model) maxOffset() int {
	max := len(m.lines) - m.viewHeight()
	if max < 0 {
		return 0
	}
	return max
}

func (m *Model) clampOffset() {
	if m.offset < 0 {
		m.offset = 0
	}
	if max := m.maxOffset(); m.offset > max {
		m.offset = max
	}
}

func (m Model) isAtBottom() bool {
	return m.offset >= m.maxOffset()
}

func (m *Model) append(e source.LogEntry) {
	if e.Empty() {
		m.noLog = len(m.lines) == 0
		return
	}
	m.noLog = false
	if e.Source != "" {
		m.sourcePath = e.Source
	}
	m.lines = append(m.lines, viewLine{text: e.Line})
}

func (m *Model) stick() {
	if m.autoScroll {
		m.offset = m.maxOffset()
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "j", "down":
			m.autoScroll = false
			m.offset++
			m.clampOffset()
			if m.isAtBottom() {
				m.autoScroll = true
			}
		case "k", "up":
			m.autoScroll = false
			m.offset--
			m.clampOffset()
		case "g", "home":
			m.autoScroll = false
			m.offset = 0
		case "G", "end":
			m.offset = m.maxOffset()
			m.autoScroll = true
		case "pgdown", "f", "ctrl+f":
			m.autoScroll = false
			m.offset += m.viewHeight()
			m.clampOffset()
			if m.isAtBottom() {
				m.autoScroll = true
			}
		case "pgup", "b", "ctrl+b":
			m.autoScroll = false
			m.offset -= m.viewHeight()
			m.clampOffset()
		case "C":
			return m, m.clearCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.stick()
		m.clampOffset()

	case LineMsg:
		m.append(msg.Entry)
		m.stick()

	case LineBatchMsg:
		for _, e := range msg.Entries {
			m.append(e)
		}
		m.stick()

	case ClearedMsg:
		m.lines = nil
		m.offset = 0
		m.autoScroll = true
		m.noLog = false

	case ErrMsg:
		m.lines = append(m.lines, viewLine{text: fmt.Sprintf("ERROR: %v", msg.Err), isErr: true})
		m.stick()
	}
	return m, nil
}

// clearCmd truncates the file currently shown.
func (m Model) clearCmd() tea.Cmd {
	if m.acc == nil || m.sourcePath == "" {
		return nil
	}
	acc, path := m.acc, m.sourcePath
	return func() tea.Msg {
		if err := acc.Clear(path); err != nil {
			return ErrMsg{Err: fmt.Errorf("clearing %s: %w", path, err)}
		}
		return ClearedMsg{Path: path}
	}
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder

	title := "logkeep"
	if m.prefix != "" {
		title += " · " + m.prefix
	}
	b.WriteString(m.styles.title.Render(title))
	b.WriteByte('\n')

	vh := m.viewHeight()
	if len(m.lines) == 0 {
		msg := "  Waiting for log lines..."
		if m.noLog {
			msg = "  No log entries yet."
		}
		for i := 0; i < vh; i++ {
			if i == vh/2 {
				b.WriteString(m.styles.empty.Render(msg))
			}
			b.WriteByte('\n')
		}
	} else {
		end := m.offset + vh
		if end > len(m.lines) {
			end = len(m.lines)
		}
		start := m.offset
		if start < 0 {
			start = 0
		}
		rendered := 0
		for i := start; i < end; i++ {
			l := displayLine(m.lines[i].text, m.width)
			if m.lines[i].isErr {
				l = m.styles.errLine.Render(l)
			}
			b.WriteString(l)
			b.WriteByte('\n')
			rendered++
		}
		for i := rendered; i < vh; i++ {
			b.WriteByte('\n')
		}
	}

	b.WriteString(m.statusLine())
	return b.String()
}

func (m Model) statusLine() string {
	total := len(m.lines)
	scrollInfo := "bottom"
	if total > 0 && !m.isAtBottom() {
		pct := 0
		if m.maxOffset() > 0 {
			pct = m.offset * 100 / m.maxOffset()
		}
		scrollInfo = fmt.Sprintf("%d%%", pct)
	}

	src := "none"
	if m.sourcePath != "" {
		src = filepath.Base(m.sourcePath)
	}

	left := m.styles.statusKey.Render("Lines:") + m.styles.statusBar.Render(fmt.Sprintf(" %d ", total))
	srcInfo := m.styles.statusKey.Render("File:") + m.styles.statusBar.Render(fmt.Sprintf(" %s ", src))
	right := m.styles.statusKey.Render("Pos:") + m.styles.statusBar.Render(fmt.Sprintf(" %s ", scrollInfo))
	if m.following {
		srcInfo += m.styles.follow.Render("FOLLOW")
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - lipgloss.Width(srcInfo)
	if gap < 0 {
		gap = 0
	}
	return m.styles.statusBar.Render(left + srcInfo + strings.Repeat(" ", gap) + right)
}

// maxBatch bounds how many queued lines are delivered in one message.
const maxBatch = 256

// nextBatch waits for one entry and then takes whatever else is already
// queued, up to maxBatch. It reports false once lines is closed and drained.
func nextBatch(lines <-chan source.LogEntry) ([]source.LogEntry, bool) {
	e, ok := <-lines
	if !ok {
		return nil, false
	}
	batch := []source.LogEntry{e}
	for len(batch) < maxBatch {
		select {
		case e, ok := <-lines:
			if !ok {
				return batch, true
			}
			batch = append(batch, e)
		default:
			return batch, true
		}
	}
	return batch, true
}

// ListenForLines forwards a source's lines and errors to the program until
// the source closes its channels. Lines that arrive together, such as the
// initial tail, are sent as one LineBatchMsg.
func ListenForLines(src source.Source, prog *tea.Program) {
	go func() {
		for {
			batch, ok := nextBatch(src.Lines())
			if !ok {
				return
			}
			if len(batch) == 1 {
				prog.Send(LineMsg{Entry: batch[0]})
				continue
			}
			prog.Send(LineBatchMsg{Entries: batch})
		}
	}()
	go func() {
		for err := range src.Errors() {
			prog.Send(ErrMsg{Err: err})
		}
	}()
}
