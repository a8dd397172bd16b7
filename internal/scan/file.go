package scan

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/tp2"
	"github.com/AntoineGS/tp2scan/internal/weidu"
)

// maxLanguageRetries bounds the other LANGUAGE indices tried when a listing
// has unresolved names.
const maxLanguageRetries = 6

// errNoComponents is returned when neither the tool nor the descriptor
// yields a component.
var errNoComponents = errors.New("no components")

var undefinedRefRE = regexp.MustCompile(`@\s*(\d+)`)

type fileTask struct {
	path    string
	rel     string
	target  game.Target
	gameDir string
	useLang string
}

// scanFile scans one descriptor for one target. It returns nil, nil for a
// descriptor without components.
func (s *Scanner) scanFile(ctx context.Context, task fileTask) (*Mod, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := tp2.ReadText(task.path)
	if err != nil {
		return nil, &FileError{Path: task.path, Target: task.target, Err: err}
	}
	desc := tp2.Parse(text)
	if !desc.HasComponents() {
		return nil, nil
	}

	pref, _ := desc.PreferredLanguage()
	resolver := tp2.NewResolver(task.path, desc, pref)
	workDir := weidu.PickWorkDir(task.path, desc.TraPaths())
	list := func(lang int) ([]weidu.Component, error) {
		return s.lister.List(ctx, weidu.Request{
			TP2:      task.path,
			GameDir:  task.gameDir,
			UseLang:  task.useLang,
			Language: lang,
			WorkDir:  workDir,
		})
	}

	comps, err := list(pref)
	fromTool := err == nil
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Debug("listing failed, reading descriptor", "path", task.path, "error", err)
		comps = fallbackComponents(desc, resolver)
	}

	best := tp2.CountUnresolved(componentNames(comps))
	if best > 0 && desc.LanguageCount() > 1 {
		tried := 0
		for lang := 0; lang < desc.LanguageCount() && tried < maxLanguageRetries; lang++ {
			if lang == pref {
				continue
			}
			tried++
			alt, err := list(lang)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				continue
			}
			n := tp2.CountUnresolved(componentNames(alt))
			if n < best || (n == best && len(alt) > len(comps)) {
				comps, best, fromTool = alt, n, true
			}
			if best == 0 {
				break
			}
		}
	}
	if len(comps) == 0 {
		return nil, &FileError{Path: task.path, Target: task.target, Err: errNoComponents}
	}

	ids := make([]int, len(comps))
	for i, c := range comps {
		ids[i] = c.ID
	}
	meta := desc.Extract(tp2.ClassifyIDs(ids), task.target)

	mod := &Mod{RelPath: task.rel, AbsPath: task.path}
	for _, c := range comps {
		m := meta[c.ID]
		version := c.Version
		if version == "" && !fromTool {
			version = desc.Version
		}
		mod.Components = append(mod.Components, Component{
			ID:           c.ID,
			Name:         fixName(c.Name, m.Label, c.ID, resolver),
			Version:      version,
			Allowed:      m.Allowed,
			Dependencies: m.Dependencies,
			Conflicts:    m.Conflicts,
		})
	}
	return mod, nil
}

func componentNames(comps []weidu.Component) []string {
	names := make([]string, len(comps))
	for i, c := range comps {
		names[i] = c.Name
	}
	return names
}

// fixName resolves "UNDEFINED STRING: @n" through the translation files
// before falling back to the label and a generated name.
func fixName(name, label string, id int, r *tp2.Resolver) string {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(name)), "UNDEFINED") {
		if m := undefinedRefRE.FindStringSubmatch(name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				if text, ok := r.Resolve(n); ok {
					name = text
				}
			}
		}
	}
	return tp2.DisplayName(name, label, id)
}

// fallbackComponents lists components from the descriptor itself, numbered
// by DESIGNATED where present and by position otherwise.
func fallbackComponents(desc *tp2.Descriptor, r *tp2.Resolver) []weidu.Component {
	var out []weidu.Component
	seen := make(map[int]bool)
	for _, b := range desc.Blocks {
		id := b.ID(tp2.SchemeDesignated)
		if seen[id] {
			continue
		}
		seen[id] = true

		name, strref, isRef := b.HeaderName()
		if isRef {
			name, _ = r.Resolve(strref)
		}
		out = append(out, weidu.Component{
			ID:      id,
			Name:    tp2.DisplayName(name, b.Label, id),
			Version: desc.Version,
		})
	}
	return out
}
