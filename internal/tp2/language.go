package tp2

import (
	"regexp"
	"strings"
)

// Language is one LANGUAGE declaration of a descriptor.
type Language struct {
	Display  string
	Token    string
	TraPaths []string
}

var (
	languageRE = regexp.MustCompile(`(?i)^\s*LANGUAGE\b(.*)$`)
	literalRE  = regexp.MustCompile(`~([^~]+)~|"([^"]+)"|'([^']+)'`)
)

// englishTokens are short tokens accepted as English.
var englishTokens = map[string]bool{
	"ENGLISH": true,
	"EN_US":   true,
	"EN-GB":   true,
	"EN_GB":   true,
	"EN-UK":   true,
	"EN_UK":   true,
	"EN":      true,
}

func literals(line string) []string {
	var out []string
	for _, m := range literalRE.FindAllStringSubmatch(line, -1) {
		for _, v := range m[1:] {
			if v != "" {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// parseLanguages reads LANGUAGE directives from comment-free text. Arguments
// may continue on the following lines.
func parseLanguages(clean string) ([]Language, int) {
	lines := strings.Split(clean, "\n")
	var langs []Language
	count := 0
	for i := 0; i < len(lines); i++ {
		m := languageRE.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		count++
		args := literals(m[1])
		for i+1 < len(lines) && len(args) < 3 {
			next := strings.TrimSpace(lines[i+1])
			if next != "" && !isQuote(next[0]) {
				break
			}
			args = append(args, literals(next)...)
			i++
		}

		var l Language
		if len(args) > 0 {
			l.Display = args[0]
		}
		if len(args) > 1 {
			l.Token = args[1]
		}
		if len(args) > 2 {
			l.TraPaths = args[2:]
		}
		langs = append(langs, l)
	}
	return langs, count
}

// PreferredLanguage returns the index of the English variant: a display name
// containing ENGLISH, then an exact English token, then a token starting with
// EN_, else 0. ok is false when the descriptor declares no language.
func (d *Descriptor) PreferredLanguage() (index int, ok bool) {
	if len(d.Languages) == 0 {
		return 0, false
	}
	for i, l := range d.Languages {
		if strings.Contains(strings.ToUpper(l.Display), "ENGLISH") {
			return i, true
		}
	}
	for i, l := range d.Languages {
		if englishTokens[strings.ToUpper(strings.TrimSpace(l.Token))] {
			return i, true
		}
	}
	for i, l := range d.Languages {
		if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(l.Token)), "EN_") {
			return i, true
		}
	}
	return 0, true
}

// LanguageCount is the number of LANGUAGE directives, at least 1.
func (d *Descriptor) LanguageCount() int {
	return max(1, d.languageLines)
}

const maxTraPaths = 20

// extractTraPaths returns quoted .tra paths in file order, deduplicated
// case-insensitively. Values containing ':' are not relative paths.
func extractTraPaths(clean string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range literals(clean) {
		v = strings.TrimSpace(v)
		if !strings.HasSuffix(strings.ToLower(v), ".tra") || strings.Contains(v, ":") {
			continue
		}
		key := strings.ToLower(strings.ReplaceAll(v, `\`, "/"))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
		if len(out) == maxTraPaths {
			break
		}
	}
	return out
}
