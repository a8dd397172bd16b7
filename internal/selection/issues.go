package selection

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/platform"
	"github.com/AntoineGS/tp2scan/internal/scan"
	"github.com/AntoineGS/tp2scan/internal/tp2"
)

// Issue classifies a checked component.
type Issue int

// Issue kinds. A conflict outranks a missing dependency.
const (
	IssueOK Issue = iota
	IssueMissing
	IssueConflict
)

func (i Issue) String() string {
	switch i {
	case IssueMissing:
		return "missing"
	case IssueConflict:
		return "conflict"
	default:
		return "ok"
	}
}

// Counts are the issues of one tab.
type Counts struct {
	Missing   int
	Conflicts int
}

// Snapshot is the result of one issue evaluation.
type Snapshot struct {
	// Issues holds every checked component of each enabled tab.
	Issues map[game.Target]map[tp2.ComponentKey]Issue
	Counts map[game.Target]Counts
}

// Issue returns the classification of key on t, IssueOK when unchecked.
func (s Snapshot) Issue(t game.Target, key tp2.ComponentKey) Issue {
	return s.Issues[t][key]
}

// Total sums the counts of every tab.
func (s Snapshot) Total() Counts {
	var c Counts
	for _, tc := range s.Counts {
		c.Missing += tc.Missing
		c.Conflicts += tc.Conflicts
	}
	return c
}

// Validator checks the references of checked components against the other
// selections and the game installs.
type Validator struct {
	// Roots are the game install folders.
	Roots map[game.Target]string
	// ToolDir is searched for programs after PATH.
	ToolDir string
}

// NewValidator creates a Validator for the folders of cfg.
func NewValidator(cfg scan.Config) *Validator {
	v := &Validator{
		Roots: map[game.Target]string{
			game.BGEE:  cfg.BGEERoot,
			game.BG2EE: cfg.BG2EERoot,
		},
	}
	if cfg.ListerBinary != "" {
		v.ToolDir = filepath.Dir(cfg.ListerBinary)
	}
	return v
}

// checkedSet holds checked components by full key and by descriptor file
// name, since references may omit the mod folder.
type checkedSet struct {
	full map[tp2.ComponentKey]bool
	base map[tp2.ComponentKey]bool
}

func newCheckedSet() *checkedSet {
	return &checkedSet{
		full: make(map[tp2.ComponentKey]bool),
		base: make(map[tp2.ComponentKey]bool),
	}
}

func (s *checkedSet) add(k tp2.ComponentKey) {
	s.full[k] = true
	s.base[baseKey(k)] = true
}

func baseKey(k tp2.ComponentKey) tp2.ComponentKey {
	return tp2.ComponentKey{TP2: path.Base(k.TP2), ID: k.ID}
}

func (s *checkedSet) has(r tp2.Ref) bool {
	k := r.Key()
	if strings.Contains(k.TP2, "/") {
		return s.full[k]
	}
	return s.base[k]
}

// Evaluate classifies every checked component of the tabs mode enables.
// References a selection on the sibling game may satisfy are matched against
// the checked components of every enabled tab; game-qualified ones only
// against their own tab.
func (v *Validator) Evaluate(mode game.Mode, tabs map[game.Target]*Tab) Snapshot {
	snap := Snapshot{
		Issues: make(map[game.Target]map[tp2.ComponentKey]Issue),
		Counts: make(map[game.Target]Counts),
	}

	own := make(map[game.Target]*checkedSet)
	all := newCheckedSet()
	for _, t := range mode.Targets() {
		set := newCheckedSet()
		if tab, ok := tabs[t]; ok {
			tab.each(func(it *Item, e *Entry) {
				if e.Checked && it.AllowedOn(t) {
					set.add(it.Key)
					all.add(it.Key)
				}
			})
		}
		own[t] = set
	}

	exists := make(map[string]bool)
	for _, t := range mode.Targets() {
		tab, ok := tabs[t]
		if !ok {
			continue
		}
		issues := make(map[tp2.ComponentKey]Issue)
		var counts Counts
		pick := func(r tp2.Ref) *checkedSet {
			if r.CrossGame() {
				return all
			}
			return own[t]
		}

		tab.each(func(it *Item, e *Entry) {
			if !e.Checked {
				return
			}
			issue := IssueOK
			if v.conflicts(it, pick) {
				issue = IssueConflict
				counts.Conflicts++
			} else if v.missing(t, it, pick, exists) {
				issue = IssueMissing
				counts.Missing++
			}
			issues[it.Key] = issue
		})
		snap.Issues[t] = issues
		snap.Counts[t] = counts
	}
	return snap
}

func (v *Validator) conflicts(it *Item, pick func(tp2.Ref) *checkedSet) bool {
	for _, r := range it.Conflicts {
		if r.Kind == tp2.RefComponent && r.Key() != it.Key && pick(r).has(r) {
			return true
		}
	}
	return false
}

func (v *Validator) missing(t game.Target, it *Item, pick func(tp2.Ref) *checkedSet, cache map[string]bool) bool {
	for _, r := range it.Dependencies {
		if r.Kind == tp2.RefComponent {
			if !pick(r).has(r) {
				return true
			}
			continue
		}
		if r.Value == "" {
			continue
		}
		ck := t.String() + "|" + r.String()
		ok, seen := cache[ck]
		if !seen {
			ok = v.exists(t, r)
			cache[ck] = ok
		}
		if !ok {
			return true
		}
	}
	return false
}

func (v *Validator) exists(t game.Target, r tp2.Ref) bool {
	switch r.Kind {
	case tp2.RefFile:
		return v.FileExists(t, r.Value)
	case tp2.RefResource:
		return v.ResourceExists(t, r.Value)
	case tp2.RefProg:
		return v.ProgramExists(r.Value)
	default:
		return true
	}
}

// FileExists reports whether rel exists under the install of t, ignoring
// case.
func (v *Validator) FileExists(t game.Target, rel string) bool {
	root := v.Roots[t]
	if root == "" {
		return false
	}
	_, ok := platform.ResolveFold(root, rel)
	return ok
}

// ResourceExists reports whether the override folder of t holds resref with
// any extension.
func (v *Validator) ResourceExists(t game.Target, resref string) bool {
	root := v.Roots[t]
	if root == "" {
		return false
	}
	dir, ok := platform.ResolveFold(root, "override")
	if !ok {
		return false
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if len(ext) > 1 && strings.EqualFold(strings.TrimSuffix(name, ext), resref) {
			return true
		}
	}
	return false
}

// ProgramExists reports whether name is on PATH or beside the listing tool.
func (v *Validator) ProgramExists(name string) bool {
	_, ok := platform.LookupProgram(name, v.ToolDir)
	return ok
}
