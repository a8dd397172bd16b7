// Package report renders human-readable details of scanned components.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/go-sprout/sprout"
	"github.com/go-sprout/sprout/group/all"

	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/selection"
	"github.com/AntoineGS/tp2scan/internal/tp2"
)

const detailsTemplate = `Mod Name: {{ .Mod }}
Component Name: {{ .Name }}
Component ID: {{ .ID }}
TP2 Path: {{ .Path }}
{{- if .Version }}
Version: {{ .Version }}
{{- end }}
{{- if .Games }}
Game Allowed: {{ .Games }}
{{- end }}
Status: {{ .Status }}
Readme: {{ .Readme | default "none" }}

Dependencies (Requires):
{{- range .Dependencies }}
  • {{ . }}
{{- else }}
  • None
{{- end }}

Conflicts:
{{- range .Conflicts }}
  • {{ . }}
{{- else }}
  • None
{{- end }}
`

var detailsTmpl = newTemplate("details", detailsTemplate)

func newTemplate(name, text string) *template.Template {
	handler := sprout.New()
	if err := handler.AddGroups(all.RegistryGroup()); err != nil {
		panic(fmt.Sprintf("registering template functions: %v", err))
	}
	return template.Must(template.New(name).Funcs(template.FuncMap(handler.Build())).Parse(text))
}

// Details is what the report shows about one component.
type Details struct {
	Target       game.Target
	Mod          string
	Name         string
	ID           int
	Path         string
	Version      string
	Games        string
	Status       string
	Readme       string
	Dependencies []string
	Conflicts    []string
}

// gameLabels are the display names of allowed-game tokens.
var gameLabels = map[string]string{
	game.TokenBGEE:  "BGEE",
	game.TokenBG2EE: "BG2EE",
	game.TokenEET:   "EET",
	game.TokenIWDEE: "IWD:EE",
}

// FormatGames renders allowed-game tokens as "BGEE / EET", "" for none.
func FormatGames(tokens []string) string {
	labels := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if l, ok := gameLabels[tok]; ok {
			labels = append(labels, l)
		} else {
			labels = append(labels, strings.ToUpper(tok))
		}
	}
	return strings.Join(labels, " / ")
}

// NewDetails collects the details of key on the tab of t.
func NewDetails(m *selection.Model, t game.Target, key tp2.ComponentKey) (Details, error) {
	tab := m.Tab(t)
	it, ok := tab.Item(key)
	if !ok {
		return Details{}, fmt.Errorf("%w: %s", selection.ErrUnknownComponent, key)
	}

	status := "not selected"
	if tab.Entry(key).Checked {
		status = m.Snapshot().Issue(t, key).String()
	} else if !tab.Allowed(key) {
		status = "not available for " + t.Label()
	}

	d := Details{
		Target:       t,
		Mod:          it.ModPath,
		Name:         it.Name,
		ID:           it.ID,
		Path:         it.ModAbs,
		Version:      it.Version,
		Games:        FormatGames(it.Allowed),
		Status:       status,
		Dependencies: refStrings(it.Dependencies),
		Conflicts:    refStrings(it.Conflicts),
	}
	if it.ModAbs != "" {
		if p, ok := FindReadme(filepath.Dir(it.ModAbs)); ok {
			d.Readme = p
		}
	}
	return d, nil
}

func refStrings(refs []tp2.Ref) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}

// Render writes the details report.
func Render(w io.Writer, d Details) error {
	if err := detailsTmpl.Execute(w, d); err != nil {
		return fmt.Errorf("rendering details: %w", err)
	}
	return nil
}

// readmeExts are preferred over other files with "readme" in their name.
var readmeExts = map[string]bool{".txt": true, ".md": true, ".rtf": true, ".html": true, ".htm": true, ".pdf": true}

// FindReadme looks for a readme in modDir and its parent: readme.txt first,
// then the best-scored file whose name contains "readme".
func FindReadme(modDir string) (string, bool) {
	dirs := []string{modDir, filepath.Dir(modDir)}

	type candidate struct {
		path  string
		name  string
		score int
	}
	var found []candidate
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := strings.ToLower(e.Name())
			if name == "readme.txt" {
				return filepath.Join(dir, e.Name()), true
			}
			if !strings.Contains(name, "readme") {
				continue
			}
			score := -2
			if strings.HasPrefix(name, "readme") {
				score -= 3
			}
			if readmeExts[filepath.Ext(name)] {
				score--
			}
			found = append(found, candidate{path: filepath.Join(dir, e.Name()), name: name, score: score})
		}
	}
	if len(found) == 0 {
		return "", false
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].score != found[j].score {
			return found[i].score < found[j].score
		}
		return found[i].name < found[j].name
	})
	return found[0].path, true
}
