package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"

	"envrun/internal/app"
)

// Controller defines the subset of app.App behaviour the TUI needs.
type Controller interface {
	List(context.Context, app.ListParams) ([]app.Process, error)
	Kill(context.Context, app.KillParams) (app.KillResult, error)
}

// Model represents the Bubble Tea state.
type Model struct {
	controller Controller
	watcher    *fsnotify.Watcher

	list      list.Model
	processes []app.Process
	selected  map[int]bool

	statusMsg string

	err     error
	loading bool

	width  int
	height int

	filters app.ListFilters

	lastUpdated time.Time
}

// New constructs a TUI model with default styles. A nil watcher disables
// live refresh.
func New(ctrl Controller, watcher *fsnotify.Watcher) *Model {
	delegate := list.NewDefaultDelegate()
	lst := list.New([]list.Item{}, delegate, 0, 0)
	lst.Title = "Supervised processes"
	lst.SetShowHelp(false)
	lst.SetFilteringEnabled(false)
	lst.DisableQuitKeybindings()

	return &Model{
		controller: ctrl,
		watcher:    watcher,
		list:       lst,
		statusMsg:  "Loading registry…",
		loading:    true,
		selected:   make(map[int]bool),
	}
}

// Run spins up the Bubble Tea program, refreshing whenever dir changes.
func Run(ctrl Controller, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	m := New(ctrl, watcher)
	if err := watcher.Add(dir); err != nil {
		// Without the directory there is nothing to watch yet; r still reloads.
		m.watcher = nil
	}
	prog := tea.NewProgram(m, tea.WithAltScreen())
	_, err = prog.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(loadProcessesCmd(m.controller, m.filters), waitForChangeCmd(m.watcher))
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.height > 4 {
			m.list.SetSize(msg.Width, msg.Height-4)
		}

	case registryChangedMsg:
		return m, tea.Batch(loadProcessesCmd(m.controller, m.filters), waitForChangeCmd(m.watcher))

	case processesLoadedMsg:
		m.loading = false
		m.err = nil
		m.processes = msg.processes
		newSelected := make(map[int]bool)
		items := make([]list.Item, 0, len(msg.processes))
		for _, proc := range msg.processes {
			selected := m.selected[proc.PID]
			if selected {
				newSelected[proc.PID] = true
			}
			items = append(items, processItem{Process: proc, Selected: selected})
		}
		m.selected = newSelected
		m.list.SetItems(items)
		m.lastUpdated = time.Now()
		m.statusMsg = fmt.Sprintf("%d supervised process(es). Press r to refresh, q to quit.", len(msg.processes))

	case killedMsg:
		m.statusMsg = msg.summary()
		return m, loadProcessesCmd(m.controller, m.filters)

	case watchErrMsg:
		m.err = msg.err
		return m, waitForChangeCmd(m.watcher)

	case errMsg:
		m.loading = false
		m.err = msg.err

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.loading = true
			return m, loadProcessesCmd(m.controller, m.filters)
		case "a":
			m.filters.AliveOnly = !m.filters.AliveOnly
			m.loading = true
			return m, loadProcessesCmd(m.controller, m.filters)
		case "x":
			if pids := m.targets(); len(pids) > 0 {
				m.statusMsg = fmt.Sprintf("Stopping %d process(es)…", len(pids))
				return m, killCmd(m.controller, pids)
			}
		case " ":
			m.toggleCurrentSelection()
		case "c":
			if len(m.selected) > 0 {
				m.clearSelection()
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	statusStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	b.WriteString(statusStyle.Render(m.statusMsg))
	b.WriteByte('\n')

	if m.loading {
		b.WriteString("Loading processes…\n")
	} else if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
		b.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteByte('\n')
	}

	if len(m.list.Items()) == 0 && !m.loading && m.err == nil {
		b.WriteString("No processes found.\n")
	} else {
		b.WriteString(m.list.View())
		b.WriteByte('\n')
	}

	if current := m.currentProcess(); current != nil {
		detail := fmt.Sprintf(
			"pid=%d alive=%t\nname=%s\nprefix=%s\ncmd=%s\nstarted=%s",
			current.PID,
			current.Alive,
			valueOrDash(current.Name),
			valueOrDash(current.Prefix),
			strings.Join(current.Command, " "),
			startedAt(current.StartedAt),
		)
		detailStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).MarginBottom(1)
		b.WriteString(detailStyle.Render(detail))
		b.WriteByte('\n')
	}

	help := "Commands: q quit • r reload • a alive only • x stop • space select • c clear selection"
	if count := len(m.selected); count > 0 {
		help += fmt.Sprintf(" • selected=%d", count)
	}
	if m.watcher == nil {
		help += " • live refresh off"
	}
	if !m.lastUpdated.IsZero() {
		help += fmt.Sprintf(" • last update %s", m.lastUpdated.Format(time.Kitchen))
	}
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

// processItem adapts app.Process to the bubbles list item interface.
type processItem struct {
	Process  app.Process
	Selected bool
}

func (p processItem) Title() string {
	alive := "dead"
	if p.Process.Alive {
		alive = "alive"
	}
	mark := " "
	if p.Selected {
		mark = "✓"
	}
	return fmt.Sprintf("[%s] [pid=%d] %s (%s)", mark, p.Process.PID, valueOrDash(p.Process.Name), alive)
}

func (p processItem) Description() string {
	return fmt.Sprintf("cmd=%s | prefix=%s", strings.Join(p.Process.Command, " "), valueOrDash(p.Process.Prefix))
}

func (p processItem) FilterValue() string {
	return fmt.Sprintf("%d %s %s", p.Process.PID, p.Process.Name, p.Process.Prefix)
}

// targets returns the selected pids, or the current one when nothing is selected.
func (m *Model) targets() []int {
	if len(m.selected) > 0 {
		pids := make([]int, 0, len(m.selected))
		for pid := range m.selected {
			pids = append(pids, pid)
		}
		sort.Ints(pids)
		return pids
	}
	if current := m.currentProcess(); current != nil && current.Alive {
		return []int{current.PID}
	}
	return nil
}

func (m *Model) toggleCurrentSelection() {
	if len(m.processes) == 0 {
		return
	}
	idx := m.list.Index()
	if idx < 0 || idx >= len(m.processes) {
		return
	}
	item, ok := m.list.Items()[idx].(processItem)
	if !ok {
		return
	}
	if item.Selected {
		delete(m.selected, item.Process.PID)
	} else {
		m.selected[item.Process.PID] = true
	}
	item.Selected = !item.Selected
	m.list.SetItem(idx, item)
}

func (m *Model) clearSelection() {
	m.selected = make(map[int]bool)
	items := m.list.Items()
	for i, it := range items {
		if pi, ok := it.(processItem); ok && pi.Selected {
			pi.Selected = false
			m.list.SetItem(i, pi)
		}
	}
}

func (m *Model) currentProcess() *app.Process {
	if len(m.processes) == 0 {
		return nil
	}
	idx := m.list.Index()
	if idx < 0 || idx >= len(m.processes) {
		return nil
	}
	return &m.processes[idx]
}

func valueOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func startedAt(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

type processesLoadedMsg struct {
	processes []app.Process
}

type registryChangedMsg struct{}

type killedMsg struct {
	result app.KillResult
	err    error
}

func (k killedMsg) summary() string {
	if k.err != nil {
		return fmt.Sprintf("Stop failed: %v", k.err)
	}
	if k.result.Message != "" {
		return k.result.Message
	}
	return fmt.Sprintf("Stopped %d/%d process(es).", k.result.Successes, k.result.TotalAlive)
}

type errMsg struct{ err error }

// watchErrMsg reports a watcher error; watching continues.
type watchErrMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

func loadProcessesCmd(ctrl Controller, filters app.ListFilters) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		procs, err := ctrl.List(ctx, app.ListParams{Filters: filters})
		if err != nil {
			return errMsg{err}
		}
		return processesLoadedMsg{processes: procs}
	}
}

func killCmd(ctrl Controller, pids []int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), app.DefaultKillTimeout+time.Second)
		defer cancel()
		res, err := ctrl.Kill(ctx, app.KillParams{
			Filters:  app.ListFilters{PIDs: pids},
			AllowAll: true,
			Timeout:  app.DefaultKillTimeout,
		})
		return killedMsg{result: res, err: err}
	}
}

// waitForChangeCmd blocks until the registry directory changes. Lock file
// writes are ignored; they accompany every registry operation.
func waitForChangeCmd(w *fsnotify.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if strings.HasSuffix(ev.Name, ".lock") || strings.HasSuffix(ev.Name, ".tmp") {
					continue
				}
				return registryChangedMsg{}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				return watchErrMsg{fmt.Errorf("watch registry: %w", err)}
			}
		}
	}
}
