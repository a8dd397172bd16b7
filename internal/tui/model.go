// Package tui provides the interactive component selector.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/report"
	"github.com/AntoineGS/tp2scan/internal/scan"
	"github.com/AntoineGS/tp2scan/internal/selection"
	"github.com/AntoineGS/tp2scan/internal/tp2"
)

// Persister stores the last scan and the selection between runs.
type Persister interface {
	SaveScan(ctx context.Context, res *scan.Result, startedAt time.Time) (string, error)
	SaveSelections(ctx context.Context, t game.Target, selected []selection.Selected) error
}

// Options configure a Model. Every field is optional; without a Scanner the
// rescan key does nothing.
type Options struct {
	Scanner *scan.Scanner
	Config  scan.Config
	Store   Persister
	Logger  *slog.Logger
}

type rowKind int

const (
	rowGroup rowKind = iota
	rowItem
)

// row is one visible line of the list.
type row struct {
	kind  rowKind
	group string
	key   tp2.ComponentKey
}

// Layout constants for the list view
const (
	// listOverhead is the number of lines used by title, tabs, footer, status and help
	listOverhead = 8
	// minVisibleRows is the minimum number of list rows to show
	minVisibleRows = 3
	// ScrollOffsetMargin is the minimum number of rows to keep between cursor and viewport edges
	ScrollOffsetMargin = 2
)

// Model is the bubbletea model of the selector.
type Model struct {
	sel    *selection.Model
	snap   selection.Snapshot
	opts   Options
	logger *slog.Logger

	rows     []row
	expanded map[game.Target]map[string]bool
	cursor   int
	offset   int

	filterInput textinput.Model
	filtering   bool
	issuesOnly  bool

	spinner  spinner.Model
	scanning bool
	progress string
	cancel   context.CancelFunc
	events   <-chan tea.Msg

	initCmd tea.Cmd

	help   help.Model
	detail string
	status string
	err    error
	width  int
	height int
}

// progressMsg reports one finished descriptor of a running scan.
type progressMsg scan.Progress

// scanDoneMsg ends a scan started from the selector.
type scanDoneMsg struct {
	res       *scan.Result
	err       error
	startedAt time.Time
}

// NewModel creates the selector over sel.
func NewModel(sel *selection.Model, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	filterInput := textinput.New()
	filterInput.Placeholder = "type to filter..."
	filterInput.CharLimit = 100
	filterInput.Prompt = "/ "

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = SpinnerStyle

	m := Model{
		sel:         sel,
		snap:        sel.Snapshot(),
		opts:        opts,
		logger:      logger,
		expanded:    make(map[game.Target]map[string]bool),
		filterInput: filterInput,
		spinner:     sp,
		help:        help.New(),
		width:       80,
		height:      24,
	}
	m.rebuild()

	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.initCmd
}

// withInitialScan starts a scan before the program runs; its first commands
// run from Init.
func (m Model) withInitialScan() Model {
	started, cmd := m.startScan()
	next, ok := started.(Model)
	if !ok {
		return m
	}
	next.initCmd = cmd
	return next
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.scrollToCursor()

		return m, nil

	case spinner.TickMsg:
		if !m.scanning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case progressMsg:
		m.progress = scan.Progress(msg).String()
		return m, listen(m.events)

	case scanDoneMsg:
		return m.finishScan(msg), nil
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, ListKeys.ForceQuit) {
		m.stopScan()
		return m, tea.Quit
	}

	if m.detail != "" {
		if key.Matches(msg, DetailKeys.Close) {
			m.detail = ""
		}
		return m, nil
	}

	if m.filtering {
		return m.updateFilter(msg)
	}

	tab := m.sel.Tab(m.sel.Active())
	current, hasRow := m.currentRow()

	switch {
	case key.Matches(msg, ListKeys.Quit):
		m.stopScan()
		return m, tea.Quit

	case key.Matches(msg, ListKeys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, ListKeys.Down):
		m.moveCursor(1)
	case key.Matches(msg, ListKeys.PageUp):
		m.moveCursor(-m.visibleRows())
	case key.Matches(msg, ListKeys.PageDown):
		m.moveCursor(m.visibleRows())

	case key.Matches(msg, ListKeys.Expand):
		if hasRow && current.kind == rowGroup {
			m.setExpanded(current.group, true)
		}
	case key.Matches(msg, ListKeys.Collapse):
		if hasRow {
			m.setExpanded(current.group, false)
			m.cursorToGroup(current.group)
		}

	case key.Matches(msg, ListKeys.NextTab):
		m.switchTab(1)
	case key.Matches(msg, ListKeys.PrevTab):
		m.switchTab(-1)

	case key.Matches(msg, ListKeys.Toggle):
		if hasRow {
			m.toggle(tab, current)
		}
	case key.Matches(msg, ListKeys.SelectAll):
		m.apply(m.sel.SelectAll(), nil)
	case key.Matches(msg, ListKeys.DeselectAll):
		m.apply(m.sel.DeselectAll(), nil)
	case key.Matches(msg, ListKeys.Order):
		snap, err := m.sel.SortByDependencies(tab.Target)
		m.apply(snap, err)
		if err == nil {
			m.status = "Install order sorted by dependencies"
		}
	case key.Matches(msg, ListKeys.PathOrder):
		m.apply(m.sel.SortByPath(tab.Target), nil)
		m.status = "Install order sorted by path"

	case key.Matches(msg, ListKeys.Search):
		m.filtering = true
		cmd := m.filterInput.Focus()
		return m, cmd
	case key.Matches(msg, ListKeys.IssuesOnly):
		m.issuesOnly = !m.issuesOnly
		m.rebuild()

	case key.Matches(msg, ListKeys.ShowDetail):
		if hasRow {
			if current.kind == rowGroup {
				m.setExpanded(current.group, !m.expanded[tab.Target][current.group])
			} else {
				m.showDetail(tab.Target, current.key)
			}
		}

	case key.Matches(msg, ListKeys.Mode):
		m.nextMode()
	case key.Matches(msg, ListKeys.Scan):
		return m.startScan()

	case key.Matches(msg, ListKeys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, SearchKeys.Confirm):
		m.filtering = false
		m.filterInput.Blur()
		return m, nil
	case key.Matches(msg, SearchKeys.Cancel):
		m.filtering = false
		m.filterInput.Blur()
		m.filterInput.SetValue("")
		m.rebuild()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.rebuild()

	return m, cmd
}

// toggle flips the row under the cursor. A group that is not fully checked
// gets checked.
func (m *Model) toggle(tab *selection.Tab, r row) {
	var (
		snap selection.Snapshot
		err  error
	)
	if r.kind == rowGroup {
		snap, err = m.sel.ToggleGroup(r.group, tab.GroupState(r.group) != selection.Checked)
	} else {
		if !tab.Allowed(r.key) {
			m.status = fmt.Sprintf("%s is not available for %s", r.key, tab.Target.Label())
			return
		}
		snap, err = m.sel.Toggle(r.key, !tab.Entry(r.key).Checked)
	}
	m.apply(snap, err)
}

// apply records the outcome of a selection change and persists it.
func (m *Model) apply(snap selection.Snapshot, err error) {
	m.snap = snap
	m.err = err
	m.status = ""
	if err == nil {
		m.persist()
	}
	m.rebuild()
}

func (m *Model) persist() {
	if m.opts.Store == nil {
		return
	}
	for _, t := range game.Targets {
		if err := m.opts.Store.SaveSelections(context.Background(), t, m.sel.InstallOrder(t)); err != nil {
			m.logger.Error("saving selection", "target", t, "error", err)
		}
	}
}

func (m *Model) switchTab(step int) {
	targets := m.sel.Mode().Targets()
	if len(targets) < 2 {
		return
	}
	i := 0
	for j, t := range targets {
		if t == m.sel.Active() {
			i = j
		}
	}
	next := targets[(i+step+len(targets))%len(targets)]
	if err := m.sel.SetActive(next); err != nil {
		m.err = err
		return
	}
	m.cursor, m.offset = 0, 0
	m.rebuild()
}

var modeCycle = []game.Mode{game.ModeBGEE, game.ModeBG2EE, game.ModeEET}

func (m *Model) nextMode() {
	next := modeCycle[0]
	for i, md := range modeCycle {
		if md == m.sel.Mode() {
			next = modeCycle[(i+1)%len(modeCycle)]
		}
	}
	m.opts.Config.Mode = next
	m.apply(m.sel.ApplyGameMode(next), nil)
	m.cursor, m.offset = 0, 0
	m.status = fmt.Sprintf("Game mode %s, rescan to list every game", strings.ToUpper(next.String()))
}

func (m *Model) showDetail(t game.Target, k tp2.ComponentKey) {
	d, err := report.NewDetails(m.sel, t, k)
	if err != nil {
		m.err = err
		return
	}
	var b strings.Builder
	if err := report.Render(&b, d); err != nil {
		m.err = err
		return
	}
	m.detail = strings.TrimRight(b.String(), "\n")
}

func (m *Model) setExpanded(group string, open bool) {
	t := m.sel.Active()
	if m.expanded[t] == nil {
		m.expanded[t] = make(map[string]bool)
	}
	m.expanded[t][group] = open
	m.rebuild()
}

func (m *Model) cursorToGroup(group string) {
	for i, r := range m.rows {
		if r.kind == rowGroup && r.group == group {
			m.cursor = i
			m.scrollToCursor()
			return
		}
	}
}

// narrowed reports whether a filter or the issues-only view hides rows.
func (m *Model) narrowed() bool {
	return m.issuesOnly || strings.TrimSpace(m.filterInput.Value()) != ""
}

// rebuild recomputes the visible rows. Narrowed views show the matching
// members of every group expanded.
func (m *Model) rebuild() {
	tab := m.sel.Tab(m.sel.Active())
	query := strings.ToLower(strings.TrimSpace(m.filterInput.Value()))
	narrowed := m.narrowed()

	m.rows = m.rows[:0]
	for _, g := range tab.Groups() {
		var members []tp2.ComponentKey
		for _, k := range g.Members {
			if m.issuesOnly && m.snap.Issue(tab.Target, k) == selection.IssueOK {
				continue
			}
			if it, _ := tab.Item(k); query != "" && !matches(query, g.Label, it) {
				continue
			}
			members = append(members, k)
		}
		if narrowed && len(members) == 0 {
			continue
		}
		m.rows = append(m.rows, row{kind: rowGroup, group: g.Key})
		if narrowed || m.expanded[tab.Target][g.Key] {
			for _, k := range members {
				m.rows = append(m.rows, row{kind: rowItem, group: g.Key, key: k})
			}
		}
	}

	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
	m.scrollToCursor()
}

func matches(query, label string, it selection.Item) bool {
	return strings.Contains(strings.ToLower(label), query) ||
		strings.Contains(strings.ToLower(it.Name), query) ||
		strings.Contains(strings.ToLower(it.ModPath), query)
}

func (m *Model) currentRow() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) moveCursor(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.rows)-1)
	m.scrollToCursor()
}

func (m *Model) visibleRows() int {
	return max(m.height-listOverhead, minVisibleRows)
}

// scrollToCursor keeps ScrollOffsetMargin rows around the cursor when possible.
func (m *Model) scrollToCursor() {
	visible := m.visibleRows()
	margin := min(ScrollOffsetMargin, (visible-1)/2)
	if m.cursor-margin < m.offset {
		m.offset = max(m.cursor-margin, 0)
	}
	if m.cursor+margin >= m.offset+visible {
		m.offset = m.cursor + margin - visible + 1
	}
	m.offset = max(min(m.offset, len(m.rows)-visible), 0)
}

// startScan runs a scan in the background. Progress arrives as progressMsg
// and the outcome as scanDoneMsg.
func (m Model) startScan() (tea.Model, tea.Cmd) {
	if m.scanning || m.opts.Scanner == nil {
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan tea.Msg, 64)
	scanner := m.opts.Scanner.WithProgress(func(p scan.Progress) {
		select {
		case events <- progressMsg(p):
		default:
			// The view only needs the latest count.
		}
	})
	cfg := m.opts.Config
	startedAt := time.Now()

	go func() {
		defer close(events)
		res, err := scanner.Scan(ctx, cfg)
		events <- scanDoneMsg{res: res, err: err, startedAt: startedAt}
	}()

	m.scanning = true
	m.cancel = cancel
	m.events = events
	m.progress = "Discovering mods..."
	m.err = nil
	m.status = ""

	return m, tea.Batch(m.spinner.Tick, listen(events))
}

// listen waits for the next event of a running scan.
func listen(events <-chan tea.Msg) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *Model) stopScan() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m Model) finishScan(msg scanDoneMsg) Model {
	m.stopScan()
	m.scanning = false
	m.cancel = nil
	m.events = nil
	m.progress = ""

	if msg.err != nil {
		if !errors.Is(msg.err, context.Canceled) {
			m.err = msg.err
		}
		m.logger.Error("scan failed", "error", msg.err)
		return m
	}

	m.snap = m.sel.Load(msg.res)
	m.expanded = make(map[game.Target]map[string]bool)
	m.cursor, m.offset = 0, 0
	m.filterInput.SetValue("")
	m.rebuild()

	if m.opts.Store != nil {
		if _, err := m.opts.Store.SaveScan(context.Background(), msg.res, msg.startedAt); err != nil {
			m.logger.Error("saving scan", "error", err)
		}
	}

	mods := 0
	for _, t := range msg.res.Mode.Targets() {
		mods += len(msg.res.Mods[t])
	}
	m.status = fmt.Sprintf("Scanned %d mod files, %d errors", mods, msg.res.TotalErrors())
	m.logger.Info("scan finished", "mods", mods, "errors", msg.res.TotalErrors())

	return m
}
