// Package selection holds the per-game checked state of scanned components,
// their install order, and the dependency and conflict issues of what is
// checked.
package selection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/scan"
	"github.com/AntoineGS/tp2scan/internal/tp2"
)

// Tri is the derived state of a mod group.
type Tri int

// Group states
const (
	Unchecked Tri = iota
	Checked
	Indeterminate
)

func (t Tri) String() string {
	switch t {
	case Unchecked:
		return "unchecked"
	case Checked:
		return "checked"
	case Indeterminate:
		return "indeterminate"
	default:
		return fmt.Sprintf("Tri(%d)", int(t))
	}
}

// Entry is the selection state of one component.
type Entry struct {
	Checked bool
	// Seq is the order stamp given when the component was last checked, 0
	// while unchecked.
	Seq int
}

// Item is one component as shown on a game tab.
type Item struct {
	scan.Component
	Key     tp2.ComponentKey
	Group   string
	ModPath string
	ModAbs  string
}

// Group is one mod row on a tab. Its state is computed from its members.
type Group struct {
	Key     string
	Label   string
	Members []tp2.ComponentKey
}

// Tab holds the scanned components of one game.
type Tab struct {
	Target  game.Target
	groups  []*Group
	byGroup map[string]*Group
	items   map[tp2.ComponentKey]*Item
	entries map[tp2.ComponentKey]*Entry
}

func newTab(t game.Target, mods []scan.Mod) *Tab {
	tab := &Tab{
		Target:  t,
		byGroup: make(map[string]*Group),
		items:   make(map[tp2.ComponentKey]*Item),
		entries: make(map[tp2.ComponentKey]*Entry),
	}
	for _, mod := range mods {
		gkey, label := scan.GroupOf(mod.RelPath)
		g, ok := tab.byGroup[gkey]
		if !ok {
			g = &Group{Key: gkey, Label: label}
			tab.byGroup[gkey] = g
			tab.groups = append(tab.groups, g)
		}
		for _, c := range mod.Components {
			key := c.Key(mod)
			if _, dup := tab.items[key]; dup {
				continue
			}
			tab.items[key] = &Item{
				Component: c,
				Key:       key,
				Group:     gkey,
				ModPath:   mod.RelPath,
				ModAbs:    mod.AbsPath,
			}
			tab.entries[key] = &Entry{}
			g.Members = append(g.Members, key)
		}
	}
	sort.SliceStable(tab.groups, func(i, j int) bool {
		return strings.ToLower(tab.groups[i].Label) < strings.ToLower(tab.groups[j].Label)
	})
	return tab
}

// Groups returns the mod groups in display order.
func (t *Tab) Groups() []Group {
	out := make([]Group, len(t.groups))
	for i, g := range t.groups {
		out[i] = *g
	}
	return out
}

// Item returns the component with key.
func (t *Tab) Item(key tp2.ComponentKey) (Item, bool) {
	it, ok := t.items[key]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Entry returns the selection state of key.
func (t *Tab) Entry(key tp2.ComponentKey) Entry {
	if e, ok := t.entries[key]; ok {
		return *e
	}
	return Entry{}
}

// Allowed reports whether key may be checked on this tab.
func (t *Tab) Allowed(key tp2.ComponentKey) bool {
	it, ok := t.items[key]
	return ok && it.AllowedOn(t.Target)
}

// GroupState derives the state of a group from its allowed members.
func (t *Tab) GroupState(groupKey string) Tri {
	g, ok := t.byGroup[groupKey]
	if !ok {
		return Unchecked
	}
	var on, off int
	for _, k := range g.Members {
		if !t.Allowed(k) {
			continue
		}
		if t.entries[k].Checked {
			on++
		} else {
			off++
		}
	}
	switch {
	case on > 0 && off > 0:
		return Indeterminate
	case on > 0:
		return Checked
	default:
		return Unchecked
	}
}

// Len is the number of components on the tab.
func (t *Tab) Len() int {
	return len(t.items)
}

// each visits components in display order.
func (t *Tab) each(fn func(*Item, *Entry)) {
	for _, g := range t.groups {
		for _, k := range g.Members {
			fn(t.items[k], t.entries[k])
		}
	}
}

// Model is the selection state of every game tab. It is not safe for
// concurrent use; every mutation re-evaluates issues once before returning.
type Model struct {
	mode      game.Mode
	active    game.Target
	tabs      map[game.Target]*Tab
	seq       int
	validator *Validator

	depth       int
	snapshot    Snapshot
	validations int
}

// New creates an empty Model checking issues with v. A nil v treats every
// file, resource and program reference as missing.
func New(v *Validator) *Model {
	if v == nil {
		v = &Validator{}
	}
	m := &Model{
		mode:      game.ModeBGEE,
		active:    game.BGEE,
		tabs:      make(map[game.Target]*Tab),
		validator: v,
	}
	m.revalidate()
	return m
}

// Load replaces every tab with the mods of res. Selections and order stamps
// start over.
func (m *Model) Load(res *scan.Result) Snapshot {
	return m.batch(func() {
		m.mode = res.Mode
		m.active = res.Mode.DefaultTarget()
		m.seq = 0
		m.tabs = make(map[game.Target]*Tab, len(res.Mods))
		for _, t := range game.Targets {
			m.tabs[t] = newTab(t, res.Mods[t])
		}
	})
}

// Mode returns the current game mode.
func (m *Model) Mode() game.Mode {
	return m.mode
}

// Active returns the game of the tab operations apply to.
func (m *Model) Active() game.Target {
	return m.active
}

// SetActive switches the tab operations apply to.
func (m *Model) SetActive(t game.Target) error {
	if !m.mode.Enables(t) {
		return fmt.Errorf("%w: %s", ErrTabDisabled, t)
	}
	m.active = t
	return nil
}

// Tab returns the tab of t, empty when nothing was scanned for it.
func (m *Model) Tab(t game.Target) *Tab {
	if tab, ok := m.tabs[t]; ok {
		return tab
	}
	return newTab(t, nil)
}

// Snapshot returns the issues as of the last operation.
func (m *Model) Snapshot() Snapshot {
	return m.snapshot
}

// Toggle checks or unchecks one component on the active tab. A component not
// allowed on the tab always ends up unchecked.
func (m *Model) Toggle(key tp2.ComponentKey, checked bool) (Snapshot, error) {
	tab := m.Tab(m.active)
	if _, ok := tab.items[key]; !ok {
		return m.snapshot, fmt.Errorf("%w: %s", ErrUnknownComponent, key)
	}
	return m.batch(func() { m.set(tab, key, checked) }), nil
}

// ToggleGroup checks or unchecks every member of a mod group on the active
// tab, in display order.
func (m *Model) ToggleGroup(groupKey string, checked bool) (Snapshot, error) {
	tab := m.Tab(m.active)
	g, ok := tab.byGroup[groupKey]
	if !ok {
		return m.snapshot, fmt.Errorf("%w: %s", ErrUnknownGroup, groupKey)
	}
	return m.batch(func() {
		for _, k := range g.Members {
			m.set(tab, k, checked)
		}
	}), nil
}

// SelectAll checks every allowed component of the active tab.
func (m *Model) SelectAll() Snapshot {
	tab := m.Tab(m.active)
	return m.batch(func() {
		tab.each(func(it *Item, _ *Entry) { m.set(tab, it.Key, true) })
	})
}

// DeselectAll unchecks every component of the active tab.
func (m *Model) DeselectAll() Snapshot {
	tab := m.Tab(m.active)
	return m.batch(func() {
		tab.each(func(it *Item, _ *Entry) { m.set(tab, it.Key, false) })
	})
}

// ApplyGameMode switches mode. Tabs the mode no longer enables are cleared,
// and the active tab moves to the mode's first game when it was disabled.
func (m *Model) ApplyGameMode(mode game.Mode) Snapshot {
	return m.batch(func() {
		m.mode = mode
		for t, tab := range m.tabs {
			enabled := mode.Enables(t)
			for k, e := range tab.entries {
				if e.Checked && (!enabled || !tab.Allowed(k)) {
					*e = Entry{}
				}
			}
		}
		if !mode.Enables(m.active) {
			m.active = mode.DefaultTarget()
		}
	})
}

// Restore checks components of tab t with the stamps they were saved with.
// Unknown or disallowed keys are skipped; a stamp below 1 gets a new one.
func (m *Model) Restore(t game.Target, stamps map[tp2.ComponentKey]int) Snapshot {
	tab := m.Tab(t)
	return m.batch(func() {
		if !m.mode.Enables(t) {
			return
		}
		for k, seq := range stamps {
			if !tab.Allowed(k) {
				continue
			}
			if seq < 1 {
				m.set(tab, k, true)
				continue
			}
			*tab.entries[k] = Entry{Checked: true, Seq: seq}
			m.seq = max(m.seq, seq)
		}
	})
}

// Batch runs fn as one operation: issues are evaluated once, after the
// outermost batch returns. Snapshots returned inside fn are not yet updated.
func (m *Model) Batch(fn func(*Model) error) (Snapshot, error) {
	var err error
	snap := m.batch(func() { err = fn(m) })
	return snap, err
}

func (m *Model) batch(fn func()) Snapshot {
	m.depth++
	func() {
		defer func() { m.depth-- }()
		fn()
	}()
	if m.depth == 0 {
		m.revalidate()
	}
	return m.snapshot
}

func (m *Model) revalidate() {
	m.validations++
	m.snapshot = m.validator.Evaluate(m.mode, m.tabs)
}

// set applies one member change without evaluating issues.
func (m *Model) set(tab *Tab, key tp2.ComponentKey, checked bool) {
	e := tab.entries[key]
	if !checked || !tab.Allowed(key) || !m.mode.Enables(tab.Target) {
		*e = Entry{}
		return
	}
	if e.Checked {
		return
	}
	m.seq++
	*e = Entry{Checked: true, Seq: m.seq}
}

// Selected is one checked component in install order.
type Selected struct {
	TP2     string
	ID      int
	Name    string
	Version string
	Seq     int
	Key     tp2.ComponentKey
}

// InstallOrder returns the checked components of t by ascending order stamp.
// Unstamped components come last, in display order.
func (m *Model) InstallOrder(t game.Target) []Selected {
	tab := m.Tab(t)
	var out []Selected
	tab.each(func(it *Item, e *Entry) {
		if !e.Checked {
			return
		}
		out = append(out, Selected{
			TP2:     it.ModPath,
			ID:      it.ID,
			Name:    it.Name,
			Version: it.Version,
			Seq:     e.Seq,
			Key:     it.Key,
		})
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Seq, out[j].Seq
		if a == 0 || b == 0 {
			return a != 0 && b == 0
		}
		return a < b
	})
	return out
}
