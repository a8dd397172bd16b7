package tp2

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/AntoineGS/tp2scan/internal/platform"
)

var (
	traEntryRE   = regexp.MustCompile(`(?m)^\s*@(\d+)\s*=\s*(?:~~~~~([\s\S]*?)~~~~~|~([^~]*)~|"([^"]*)"|'([^']*)')`)
	modFolderRE  = regexp.MustCompile(`(?i)%\s*MOD_FOLDER\s*%`)
	languageVar  = regexp.MustCompile(`(?i)%\s*LANGUAGE\s*%`)
	blockNameRE  = regexp.MustCompile(`/\*\s*(.*?)\s*\*/`)
	lineNameRE   = regexp.MustCompile(`//\s*(.*)$`)
	setupTraName = "setup.tra"
)

// ParseTra reads the @n = text entries of a translation file. The first
// entry for an id wins; empty texts are skipped.
func ParseTra(text string) map[int]string {
	out := make(map[int]string)
	for _, m := range traEntryRE.FindAllStringSubmatch(text, -1) {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, ok := out[id]; ok {
			continue
		}
		for _, v := range m[2:] {
			if v = strings.TrimSpace(v); v != "" {
				out[id] = v
				break
			}
		}
	}
	return out
}

// maxTraWalkDepth bounds the last-resort search for setup.tra.
const maxTraWalkDepth = 3

// Resolver resolves @n placeholders of one descriptor in one language. It is
// not safe for concurrent use; each scan task builds its own.
type Resolver struct {
	tp2Path string
	desc    *Descriptor
	lang    int
	tables  map[string]map[int]string

	chain []func() []string
}

// NewResolver returns a resolver for the descriptor at tp2Path using the
// language variant lang. An out-of-range lang falls back to variant 0.
func NewResolver(tp2Path string, desc *Descriptor, lang int) *Resolver {
	if lang < 0 || lang >= len(desc.Languages) {
		lang = 0
	}
	r := &Resolver{
		tp2Path: tp2Path,
		desc:    desc,
		lang:    lang,
		tables:  make(map[string]map[int]string),
	}
	r.chain = []func() []string{r.languageTras, r.referencedTras, r.walkedTras}
	return r
}

// Resolve returns the text of strref n, trying the chosen language's setup
// file, every .tra the descriptor names, any setup.tra near it, and finally a
// comment on the matching BEGIN line.
func (r *Resolver) Resolve(n int) (string, bool) {
	for _, candidates := range r.chain {
		for _, p := range candidates() {
			if s, ok := r.table(p)[n]; ok {
				return s, true
			}
		}
	}
	return r.desc.inlineName(n)
}

func (r *Resolver) table(path string) map[int]string {
	if t, ok := r.tables[path]; ok {
		return t
	}
	text, err := ReadText(path)
	if err != nil {
		r.tables[path] = nil
		return nil
	}
	t := ParseTra(text)
	r.tables[path] = t
	return t
}

func (r *Resolver) languageToken() string {
	if r.lang < len(r.desc.Languages) {
		return r.desc.Languages[r.lang].Token
	}
	return ""
}

// ExpandModFolder replaces %MOD_FOLDER% in a descriptor-relative path with
// the name of the folder holding the descriptor and converts to forward slashes.
func ExpandModFolder(rel, tp2Path string) string {
	rel = modFolderRE.ReplaceAllLiteralString(rel, filepath.Base(filepath.Dir(tp2Path)))
	return strings.ReplaceAll(rel, `\`, "/")
}

func (r *Resolver) expand(rel string) string {
	rel = ExpandModFolder(rel, r.tp2Path)
	if tok := r.languageToken(); tok != "" {
		rel = languageVar.ReplaceAllLiteralString(rel, tok)
	}
	return rel
}

// locate resolves each relative path against the descriptor folder and its
// two ancestors, keeping those that exist.
func (r *Resolver) locate(rels []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rel := range rels {
		rel = r.expand(rel)
		for _, base := range SearchBases(r.tp2Path) {
			p, ok := platform.ResolveFold(base, rel)
			if !ok || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// SearchBases returns the descriptor's folder and its first two ancestors.
func SearchBases(tp2Path string) []string {
	dir := filepath.Dir(tp2Path)
	parent := filepath.Dir(dir)
	return []string{dir, parent, filepath.Dir(parent)}
}

func isSetupTra(p string) bool {
	base := strings.ToLower(filepath.Base(strings.ReplaceAll(p, `\`, "/")))
	return strings.HasPrefix(base, "setup") && strings.HasSuffix(base, ".tra")
}

func (r *Resolver) languageTras() []string {
	if len(r.desc.Languages) == 0 {
		return nil
	}
	paths := r.desc.Languages[r.lang].TraPaths
	var setup, rest []string
	for _, p := range paths {
		if isSetupTra(p) {
			setup = append(setup, p)
		} else {
			rest = append(rest, p)
		}
	}
	return r.locate(append(setup, rest...))
}

func (r *Resolver) referencedTras() []string {
	return r.locate(r.desc.TraPaths())
}

// walkedTras finds files named exactly setup.tra below the descriptor folder,
// those under a folder named after the chosen language first.
func (r *Resolver) walkedTras() []string {
	root := filepath.Dir(r.tp2Path)
	var found []string
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error { //nolint:errcheck // unreadable folders hold no data
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		depth := len(strings.Split(filepath.ToSlash(rel), "/"))
		if d.IsDir() {
			if rel != "." && depth > maxTraWalkDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(d.Name(), setupTraName) {
			found = append(found, p)
		}
		return nil
	})

	tok := strings.ToLower(r.languageToken())
	sort.SliceStable(found, func(i, j int) bool {
		return tok != "" && inFolder(found[i], tok) && !inFolder(found[j], tok)
	})
	return found
}

func inFolder(p, name string) bool {
	for _, part := range strings.Split(strings.ToLower(filepath.ToSlash(filepath.Dir(p))), "/") {
		if part == name {
			return true
		}
	}
	return false
}

// inlineName reads the comment trailing "BEGIN @n".
func (d *Descriptor) inlineName(n int) (string, bool) {
	re, err := regexp.Compile(`(?mi)^[ \t]*BEGIN[ \t]+@` + strconv.Itoa(n) + `\b(.*)$`)
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatch(d.raw)
	if m == nil {
		return "", false
	}
	tail := strings.TrimSpace(m[1])
	if bm := blockNameRE.FindStringSubmatch(tail); bm != nil && bm[1] != "" {
		return bm[1], true
	}
	if lm := lineNameRE.FindStringSubmatch(tail); lm != nil {
		if v := strings.TrimSpace(lm[1]); v != "" {
			return v, true
		}
	}
	return "", false
}
