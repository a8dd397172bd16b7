package scan

import (
	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/tp2"
)

// Component is one installable component of a scanned mod.
type Component struct {
	ID      int
	Name    string
	Version string
	// Allowed holds canonical game tokens; empty means every game.
	Allowed      []string
	Dependencies []tp2.Ref
	Conflicts    []tp2.Ref
}

// Key returns the selection key of the component within mod.
func (c Component) Key(mod Mod) tp2.ComponentKey {
	return tp2.ComponentKey{TP2: mod.Key(), ID: c.ID}
}

// AllowedOn reports whether the component may be installed on t.
func (c Component) AllowedOn(t game.Target) bool {
	return game.Allowed(c.Allowed, t)
}

// Mod is one scanned descriptor.
type Mod struct {
	// RelPath is rooted at the mod's own folder, with forward slashes.
	RelPath    string
	AbsPath    string
	Components []Component
}

// Key returns the normalized descriptor path used in selection keys.
func (m Mod) Key() string {
	return tp2.NormalizePath(m.RelPath)
}

// Result is the outcome of one scan.
type Result struct {
	Mode game.Mode
	// Mods holds the scanned descriptors per enabled target, sorted by path.
	Mods map[game.Target][]Mod
	// Errors counts descriptors that failed per target.
	Errors map[game.Target]int
}

// TotalErrors sums the per-target error counts.
func (r *Result) TotalErrors() int {
	n := 0
	for _, c := range r.Errors {
		n += c
	}
	return n
}
