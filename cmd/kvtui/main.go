// Command kvtui is a terminal dashboard over the storage engine: a
// scrollable table of the SSTable chain, a put/get/del input line, and
// a live stats panel, all driven through the same Engine methods the
// kvengine REPL uses.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kvengine/kvengine/internal/applog"
	"github.com/kvengine/kvengine/internal/config"
	"github.com/kvengine/kvengine/internal/storage"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00D7FF")).
			MarginLeft(2).
			MarginTop(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#00599C")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00D7FF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00D7FF")).
			Padding(0, 1)

	contentStyle = lipgloss.NewStyle().MarginLeft(2).MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00AF5F")).
			Padding(1, 2).
			MarginRight(2)

	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FFF87")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1).MarginLeft(2)
)

type view int

const (
	dashboardView view = iota
	browseView
	commandView
	viewCount
)

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
	ShiftTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev view")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "run command")),
	Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Quit}
}

type model struct {
	db          *storage.Engine
	currentView view
	cmdInput    textinput.Model
	keyTable    table.Model
	help        help.Model
	keys        keyMap
	width       int
	message     string
	messageErr  bool
	startTime   time.Time
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func initialModel(db *storage.Engine) model {
	ti := textinput.New()
	ti.Placeholder = "put mykey myvalue | get mykey | del mykey | flush | sync"
	ti.CharLimit = 512
	ti.Width = 60

	columns := []table.Column{
		{Title: "File", Width: 14},
		{Title: "Index Entries", Width: 14},
	}
	t := table.New(table.WithColumns(columns), table.WithFocused(true), table.WithHeight(12))
	s := table.DefaultStyles()
	s.Header = s.Header.BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("#00D7FF")).BorderBottom(true).Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#00599C"))
	t.SetStyles(s)

	m := model{
		db:          db,
		currentView: dashboardView,
		cmdInput:    ti,
		keyTable:    t,
		help:        help.New(),
		keys:        keys,
		startTime:   time.Now(),
	}
	m.refreshTable()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tickCmd())
}

func (m *model) refreshTable() {
	tables := m.db.ListTables()
	rows := make([]table.Row, 0, len(tables))
	for _, t := range tables {
		rows = append(rows, table.Row{fmt.Sprintf("%06d.sst", t.FileID), fmt.Sprintf("%d", t.IndexEntries)})
	}
	m.keyTable.SetRows(rows)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tickMsg:
		m.refreshTable()
		return m, tickCmd()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % viewCount
			m.focusCurrent()

		case key.Matches(msg, m.keys.ShiftTab):
			if m.currentView == 0 {
				m.currentView = viewCount - 1
			} else {
				m.currentView--
			}
			m.focusCurrent()

		case key.Matches(msg, m.keys.Enter):
			if m.currentView == commandView && m.cmdInput.Focused() {
				m.runCommand()
			}
		}
	}

	switch m.currentView {
	case commandView:
		m.cmdInput, cmd = m.cmdInput.Update(msg)
		cmds = append(cmds, cmd)
	case browseView:
		m.keyTable, cmd = m.keyTable.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) focusCurrent() {
	if m.currentView == commandView {
		m.cmdInput.Focus()
	} else {
		m.cmdInput.Blur()
	}
}

func (m *model) runCommand() {
	line := strings.TrimSpace(m.cmdInput.Value())
	m.cmdInput.SetValue("")
	if line == "" {
		return
	}
	fields := strings.Fields(line)
	cmdName := fields[0]

	switch cmdName {
	case "put":
		rest := strings.TrimSpace(strings.TrimPrefix(line, cmdName))
		sp := strings.IndexAny(rest, " \t")
		if rest == "" || sp == -1 {
			m.fail("usage: put <key> <value>")
			return
		}
		key, value := rest[:sp], strings.TrimLeft(rest[sp:], " \t")
		if err := m.db.Put([]byte(key), []byte(value)); err != nil {
			m.fail(err.Error())
			return
		}
		m.ok(fmt.Sprintf("put %s", key))
		m.refreshTable()

	case "get":
		if len(fields) < 2 {
			m.fail("usage: get <key>")
			return
		}
		v, found := m.db.Get([]byte(fields[1]))
		if !found {
			m.ok(fmt.Sprintf("%s => (nil)", fields[1]))
			return
		}
		m.ok(fmt.Sprintf("%s => %s", fields[1], string(v)))

	case "del":
		if len(fields) < 2 {
			m.fail("usage: del <key>")
			return
		}
		if err := m.db.Del([]byte(fields[1])); err != nil {
			m.fail(err.Error())
			return
		}
		m.ok(fmt.Sprintf("del %s", fields[1]))
		m.refreshTable()

	case "flush":
		if err := m.db.Flush(); err != nil {
			m.fail(err.Error())
			return
		}
		m.ok("flushed")
		m.refreshTable()

	case "sync":
		if err := m.db.Sync(); err != nil {
			m.fail(err.Error())
			return
		}
		m.ok("synced")

	default:
		m.fail(fmt.Sprintf("unknown command: %s", cmdName))
	}
}

func (m *model) ok(msg string) {
	m.message = msg
	m.messageErr = false
}

func (m *model) fail(msg string) {
	m.message = msg
	m.messageErr = true
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("kvengine dashboard"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case dashboardView:
		s.WriteString(m.renderDashboard())
	case browseView:
		s.WriteString(m.renderBrowse())
	case commandView:
		s.WriteString(m.renderCommand())
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("x " + m.message))
		} else {
			s.WriteString(successStyle.Render("ok " + m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

func (m model) renderTabs() string {
	tabs := []string{"Dashboard", "Browse", "Command"}
	rendered := make([]string, 0, len(tabs))
	for i, t := range tabs {
		if view(i) == m.currentView {
			rendered = append(rendered, tabActiveStyle.Render(t))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(t))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m model) renderDashboard() string {
	uptime := time.Since(m.startTime).Round(time.Second)
	stats := m.db.Stats()

	content := fmt.Sprintf(`Counters
--------
Puts:      %d
Dels:      %d
Gets:      %d
Hits:      %d
Flushes:   %d

State
-----
Uptime:         %s
MemTable keys:  %d
MemTable bytes: %d
SSTables:       %d`,
		stats.Puts, stats.Dels, stats.Gets, stats.Hits, stats.Flushes,
		uptime, stats.MemTableEntries, stats.MemTableBytes, stats.SSTableCount,
	)

	actions := `Quick Actions
-------------
[Tab]   next view
[Enter] run a command (Command view)
[ctrl+c] quit`

	return contentStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		statsBoxStyle.Render(content), statsBoxStyle.Render(actions)))
}

func (m model) renderBrowse() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("SSTable Chain (newest first)"))
	s.WriteString("\n\n")
	s.WriteString(m.keyTable.View())
	return contentStyle.Render(s.String())
}

func (m model) renderCommand() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Command Console"))
	s.WriteString("\n\n")
	s.WriteString(m.cmdInput.View())
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("put <key> <value>\nget <key>\ndel <key>\nflush\nsync"))
	return contentStyle.Render(s.String())
}

func main() {
	dataDir := flag.String("data-dir", "", "directory the engine stores its WAL and SSTables in (overrides config)")
	configPath := flag.String("config", "", "optional YAML config file with data_dir/flush_bytes")
	flag.Parse()

	log, err := applog.New(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	db, err := storage.Open(cfg.DataDir, storage.EngineConfig{
		FlushBytes: cfg.FlushBytes,
		Logger:     log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open engine: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	p := tea.NewProgram(initialModel(db), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui error: %v\n", err)
		os.Exit(1)
	}
}
