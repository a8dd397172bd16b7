package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/sebdah/goldie/v2"

	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/scan"
	"github.com/AntoineGS/tp2scan/internal/selection"
	"github.com/AntoineGS/tp2scan/internal/tp2"
	"github.com/AntoineGS/tp2scan/internal/weidu"
)

func testMods() map[game.Target][]scan.Mod {
	return map[game.Target][]scan.Mod{
		game.BGEE: {
			{
				RelPath: "alpha/Alpha.tp2",
				AbsPath: "/mods/alpha/Alpha.tp2",
				Components: []scan.Component{
					{ID: 0, Name: "Core", Version: "v1.0"},
					{ID: 1, Name: "Extras", Dependencies: []tp2.Ref{tp2.ComponentRef("beta/beta.tp2", 0, nil)}},
					{ID: 2, Name: "BG2 Only", Allowed: []string{game.TokenBG2EE}},
				},
			},
			{
				RelPath: "beta/beta.tp2",
				AbsPath: "/mods/beta/beta.tp2",
				Components: []scan.Component{
					{ID: 0, Name: "Beta Core"},
					{ID: 5, Name: "Beta Alt", Conflicts: []tp2.Ref{tp2.ComponentRef("alpha/alpha.tp2", 0, nil)}},
				},
			},
		},
		game.BG2EE: {
			{
				RelPath:    "gamma/gamma.tp2",
				AbsPath:    "/mods/gamma/gamma.tp2",
				Components: []scan.Component{{ID: 3, Name: "Gamma"}},
			},
		},
	}
}

// fakeStore records the selections it is asked to save.
type fakeStore struct {
	scans int
	saved map[game.Target][]selection.Selected
}

func (s *fakeStore) SaveScan(context.Context, *scan.Result, time.Time) (string, error) {
	s.scans++
	return "id", nil
}

func (s *fakeStore) SaveSelections(_ context.Context, t game.Target, selected []selection.Selected) error {
	if s.saved == nil {
		s.saved = make(map[game.Target][]selection.Selected)
	}
	s.saved[t] = selected
	return nil
}

func newTestModel(mode game.Mode, opts Options) Model {
	sel := selection.New(&selection.Validator{})
	sel.Load(&scan.Result{Mode: mode, Mods: testMods()})
	return NewModel(sel, opts)
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		nm, ok := next.(Model)
		if !ok {
			t.Fatalf("Update returned %T", next)
		}
		m = nm
	}
	return m
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = press(t, m, string(r))
	}
	return m
}

// TestList_Snapshots tests the rendered list and footer using golden files.
func TestList_Snapshots(t *testing.T) {
	tests := []struct {
		name string
		keys []string
	}{
		{"collapsed", nil},
		{"expanded_with_issues", []string{
			"l", "down", " ", "down", " ", "down", "down", "l", "down", "down", " ",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Force ASCII color profile for consistent rendering
			lipgloss.SetColorProfile(termenv.Ascii)

			m := press(t, newTestModel(game.ModeBGEE, Options{}), tt.keys...)

			output := m.viewList() + "\n" + m.viewFooter()
			normalized := normalizeOutput(stripAnsiCodes(output))

			g := goldie.New(t)
			g.Assert(t, tt.name, []byte(normalized))
		})
	}
}

func TestToggleDisallowed(t *testing.T) {
	m := press(t, newTestModel(game.ModeBGEE, Options{}), "l", "down", "down", "down", " ")

	k := tp2.ComponentKey{TP2: "alpha/alpha.tp2", ID: 2}
	if m.sel.Tab(game.BGEE).Entry(k).Checked {
		t.Error("a component for another game must stay unchecked")
	}
	if !strings.Contains(m.status, "not available for BGEE") {
		t.Errorf("status = %q", m.status)
	}
}

func TestGroupToggle(t *testing.T) {
	store := &fakeStore{}
	m := press(t, newTestModel(game.ModeBGEE, Options{Store: store}), " ")

	tab := m.sel.Tab(game.BGEE)
	if got := tab.GroupState("alpha/alpha.tp2"); got != selection.Checked {
		t.Errorf("group state = %v, want checked", got)
	}
	if got := len(store.saved[game.BGEE]); got != 2 {
		t.Errorf("saved %d selections, want 2", got)
	}

	m = press(t, m, " ")
	if got := m.sel.Tab(game.BGEE).GroupState("alpha/alpha.tp2"); got != selection.Unchecked {
		t.Errorf("group state after second toggle = %v, want unchecked", got)
	}
	if got := len(store.saved[game.BGEE]); got != 0 {
		t.Errorf("saved %d selections, want 0", got)
	}
}

func TestSelectAllAndIssuesOnly(t *testing.T) {
	m := press(t, newTestModel(game.ModeBGEE, Options{}), "a")

	if got := len(m.sel.InstallOrder(game.BGEE)); got != 4 {
		t.Fatalf("selected %d, want every allowed component", got)
	}

	// Beta Alt conflicts with Core; Extras has its dependency.
	m = press(t, m, "i")
	if len(m.rows) != 2 || m.rows[1].key != (tp2.ComponentKey{TP2: "beta/beta.tp2", ID: 5}) {
		t.Errorf("issues-only rows = %+v", m.rows)
	}

	m = press(t, m, "i", "n")
	if got := len(m.sel.InstallOrder(game.BGEE)); got != 0 {
		t.Errorf("selected %d after deselect all", got)
	}
}

func TestFilterKeepsSelection(t *testing.T) {
	m := press(t, newTestModel(game.ModeBGEE, Options{}), " ")
	before := len(m.sel.InstallOrder(game.BGEE))

	m = press(t, m, "/")
	m = typeText(t, m, "extr")
	if !m.filtering {
		t.Fatal("expected filter mode")
	}
	if len(m.rows) != 2 || m.rows[1].key.ID != 1 {
		t.Errorf("filtered rows = %+v", m.rows)
	}

	m = press(t, m, "enter")
	if m.filtering || m.filterInput.Value() != "extr" {
		t.Errorf("enter should keep the filter, got filtering=%v value=%q", m.filtering, m.filterInput.Value())
	}

	m = press(t, m, "/", "esc")
	if m.filterInput.Value() != "" || len(m.rows) != 2 {
		t.Errorf("esc should clear the filter, rows = %+v", m.rows)
	}
	if got := len(m.sel.InstallOrder(game.BGEE)); got != before {
		t.Errorf("filtering changed the selection: %d, want %d", got, before)
	}
}

func TestTabsAndMode(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)
	m := newTestModel(game.ModeEET, Options{})

	if !strings.Contains(m.View(), "BG2EE") {
		t.Error("EET mode should show both tabs")
	}

	m = press(t, m, "tab")
	if m.sel.Active() != game.BG2EE {
		t.Fatalf("active = %v, want BG2EE", m.sel.Active())
	}
	if len(m.rows) != 1 {
		t.Errorf("BG2EE rows = %+v", m.rows)
	}

	m = press(t, m, "m")
	if m.sel.Mode() != game.ModeBGEE || m.sel.Active() != game.BGEE {
		t.Errorf("mode = %v active = %v", m.sel.Mode(), m.sel.Active())
	}
	if m.opts.Config.Mode != game.ModeBGEE {
		t.Error("the next scan should use the new mode")
	}
}

func TestDetailPopup(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)
	m := press(t, newTestModel(game.ModeBGEE, Options{}), "l", "down", "down", "enter")

	if !strings.Contains(m.detail, "Extras") || !strings.Contains(m.detail, "beta/beta.tp2#0") {
		t.Errorf("detail = %q", m.detail)
	}
	if !strings.Contains(m.View(), "Extras") {
		t.Error("view should show the detail")
	}

	m = press(t, m, "esc")
	if m.detail != "" {
		t.Error("esc should close the detail")
	}
}

func TestDependencyOrderCycle(t *testing.T) {
	sel := selection.New(&selection.Validator{})
	sel.Load(&scan.Result{Mode: game.ModeBGEE, Mods: map[game.Target][]scan.Mod{
		game.BGEE: {{
			RelPath: "c/c.tp2",
			Components: []scan.Component{
				{ID: 0, Name: "A", Dependencies: []tp2.Ref{tp2.ComponentRef("c/c.tp2", 1, nil)}},
				{ID: 1, Name: "B", Dependencies: []tp2.Ref{tp2.ComponentRef("c/c.tp2", 0, nil)}},
			},
		}},
	}})
	m := press(t, NewModel(sel, Options{}), "a", "o")

	var cycle *selection.CycleError
	if !errors.As(m.err, &cycle) {
		t.Errorf("err = %v, want CycleError", m.err)
	}
}

func TestPathOrder(t *testing.T) {
	sel := selection.New(&selection.Validator{})
	sel.Load(&scan.Result{Mode: game.ModeBGEE, Mods: map[game.Target][]scan.Mod{
		game.BGEE: {
			{RelPath: "b/b.tp2", Components: []scan.Component{{ID: 0, Name: "B"}}},
			{RelPath: "a/a.tp2", Components: []scan.Component{{ID: 3, Name: "A3"}, {ID: 1, Name: "A1"}}},
		},
	}})
	for _, k := range []tp2.ComponentKey{{TP2: "b/b.tp2", ID: 0}, {TP2: "a/a.tp2", ID: 3}, {TP2: "a/a.tp2", ID: 1}} {
		if _, err := sel.Toggle(k, true); err != nil {
			t.Fatal(err)
		}
	}

	m := press(t, NewModel(sel, Options{}), "p")

	var names []string
	for _, s := range m.sel.InstallOrder(game.BGEE) {
		names = append(names, s.Name)
	}
	if got := strings.Join(names, ","); got != "A1,A3,B" {
		t.Errorf("order = %s, want A1,A3,B", got)
	}
	if m.status != "Install order sorted by path" {
		t.Errorf("status = %q", m.status)
	}
}

// emptyLister never lists anything, so descriptors fall back to their own
// component headers.
type emptyLister struct{}

func (emptyLister) List(context.Context, weidu.Request) ([]weidu.Component, error) {
	return nil, errors.New("no listing tool")
}

func TestScanFromSelector(t *testing.T) {
	root := t.TempDir()
	cfg := scan.Config{
		ListerBinary: filepath.Join(root, "weidu"),
		ModsRoot:     filepath.Join(root, "mods"),
		BGEERoot:     filepath.Join(root, "bgee"),
		Mode:         game.ModeBGEE,
	}
	for _, d := range []string{filepath.Join(cfg.ModsRoot, "delta"), cfg.BGEERoot} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(cfg.ListerBinary, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.ModsRoot, "delta", "delta.tp2"), []byte("BEGIN ~Delta~\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	store := &fakeStore{}
	m := NewModel(selection.New(nil), Options{Scanner: scan.NewScanner(emptyLister{}), Config: cfg, Store: store})
	m = press(t, m, "r")
	if !m.scanning {
		t.Fatal("r should start a scan")
	}

	for msg := range m.events {
		next, _ := m.Update(msg)
		m = next.(Model) //nolint:errcheck // Update always returns Model
		if !m.scanning {
			break
		}
	}

	if m.err != nil {
		t.Fatalf("scan error: %v", m.err)
	}
	if m.sel.Tab(game.BGEE).Len() != 1 || store.scans != 1 {
		t.Errorf("components = %d, saved scans = %d", m.sel.Tab(game.BGEE).Len(), store.scans)
	}
	if !strings.Contains(m.status, "Scanned 1 mod files") {
		t.Errorf("status = %q", m.status)
	}
}

func TestScanConfigError(t *testing.T) {
	m := NewModel(selection.New(nil), Options{Scanner: scan.NewScanner(emptyLister{}), Config: scan.Config{}})
	m = press(t, m, "r")

	for msg := range m.events {
		next, _ := m.Update(msg)
		m = next.(Model) //nolint:errcheck // Update always returns Model
		if !m.scanning {
			break
		}
	}

	var cerr *scan.ConfigError
	if !errors.As(m.err, &cerr) && !errors.Is(m.err, scan.ErrNotFound) {
		t.Errorf("err = %v, want a configuration error", m.err)
	}
}
