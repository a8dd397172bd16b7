// Package tp2 extracts component metadata from WeiDU mod descriptors (.tp2)
// and resolves their translated strings.
//
// It does not interpret the script. It recognizes the directives that decide
// which components exist, what they require or forbid, and on which games
// they may be installed.
package tp2

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/AntoineGS/tp2scan/internal/game"
)

// IDScheme says how the component ids of one descriptor are numbered.
type IDScheme int

const (
	// SchemePositional numbers components by their 0-based position.
	SchemePositional IDScheme = iota
	// SchemeDesignated uses the ids declared with DESIGNATED.
	SchemeDesignated
)

func (s IDScheme) String() string {
	if s == SchemePositional {
		return "positional"
	}
	return "designated"
}

// ClassifyIDs decides whether ids look like positional indices: 0-based,
// nothing above len+2, and at most max(2, len/10) holes.
func ClassifyIDs(ids []int) IDScheme {
	if len(ids) == 0 {
		return SchemeDesignated
	}
	seen := make(map[int]bool, len(ids))
	uniq := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Ints(uniq)

	if uniq[0] != 0 {
		return SchemeDesignated
	}
	top := uniq[len(uniq)-1]
	if top > len(uniq)+2 {
		return SchemeDesignated
	}
	missing := top + 1 - len(uniq)
	if missing <= max(2, len(uniq)/10) {
		return SchemePositional
	}
	return SchemeDesignated
}

// Block is one BEGIN section of a descriptor.
type Block struct {
	Index         int
	Designated    int
	HasDesignated bool
	// Header is the rest of the BEGIN line, comments included.
	Header string
	Label  string
	body   string
}

// ID returns the component id of the block under scheme. Blocks without a
// DESIGNATED directive keep their position in either scheme.
func (b Block) ID(scheme IDScheme) int {
	if scheme == SchemeDesignated && b.HasDesignated {
		return b.Designated
	}
	return b.Index
}

// HeaderName returns the component name written on the BEGIN line: a literal,
// or a strref when isRef is true.
func (b Block) HeaderName() (name string, strref int, isRef bool) {
	toks := tokenize(StripComments(b.Header))
	if len(toks) == 0 {
		return "", 0, false
	}
	first := toks[0]
	if first.quoted {
		return first.text, 0, false
	}
	if n, ok := parseStrref(first.text); ok {
		return "", n, true
	}
	return "", 0, false
}

func parseStrref(s string) (int, bool) {
	v, ok := strings.CutPrefix(s, "@")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Descriptor is the parsed form of one .tp2 file.
type Descriptor struct {
	Blocks    []Block
	Languages []Language
	// Version is the literal VERSION of the mod, "" when absent or a strref.
	Version string

	raw           string
	languageLines int
	traPaths      []string
}

var (
	beginRE      = regexp.MustCompile(`(?m)^[ \t]*BEGIN\b`)
	designatedRE = regexp.MustCompile(`(?i)\bDESIGNATED\s*=?\s*(\d+)`)
	versionRE    = regexp.MustCompile(`(?m)^\s*VERSION\s+(~[^~\n]*~|"[^"\n]*"|\S+)`)
)

// Parse splits a descriptor into component blocks and reads its language and
// version declarations.
func Parse(src string) *Descriptor {
	clean := StripComments(src)
	d := &Descriptor{raw: src}
	d.Languages, d.languageLines = parseLanguages(clean)
	d.traPaths = extractTraPaths(clean)
	if m := versionRE.FindStringSubmatch(clean); m != nil {
		if v := Unquote(m[1]); !strings.HasPrefix(v, "@") {
			d.Version = v
		}
	}

	spans := commentSpans(src)
	var locs [][]int
	for _, loc := range beginRE.FindAllStringIndex(src, -1) {
		if !inSpans(spans, loc[1]-1) {
			locs = append(locs, loc)
		}
	}

	for i, loc := range locs {
		end := len(src)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		text := src[loc[1]:end]
		header, _, _ := strings.Cut(text, "\n")
		b := Block{
			Index:  i,
			Header: strings.TrimSpace(header),
			body:   StripComments(text),
		}
		if m := designatedRE.FindStringSubmatch(b.body); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				b.Designated, b.HasDesignated = n, true
			}
		}
		b.Label = firstArg(b.body, "LABEL")
		d.Blocks = append(d.Blocks, b)
	}
	return d
}

func inSpans(spans [][2]int, pos int) bool {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return true
		}
	}
	return false
}

// firstArg returns the argument of the first occurrence of keyword.
func firstArg(text, keyword string) string {
	toks := tokenize(text)
	for i := 0; i+1 < len(toks); i++ {
		if toks[i].keyword() == keyword {
			return strings.TrimSpace(toks[i+1].text)
		}
	}
	return ""
}

// HasComponents reports whether the descriptor declares any BEGIN block.
func (d *Descriptor) HasComponents() bool {
	return len(d.Blocks) > 0
}

// IDs returns each block's designated id, or its position when it has none.
func (d *Descriptor) IDs() []int {
	ids := make([]int, len(d.Blocks))
	for i, b := range d.Blocks {
		ids[i] = b.ID(SchemeDesignated)
	}
	return ids
}

// TraPaths returns the .tra paths quoted anywhere in the descriptor.
func (d *Descriptor) TraPaths() []string {
	return d.traPaths
}

// Metadata is what a descriptor says about one component for one game.
type Metadata struct {
	Label        string
	Allowed      []string
	Dependencies []Ref
	Conflicts    []Ref
}

// Extract collects labels, references and allowed games per component id,
// keyed with scheme. References qualified for a game other than target are
// left out.
func (d *Descriptor) Extract(scheme IDScheme, target game.Target) map[int]Metadata {
	type acc struct {
		label           string
		allowed         map[string]bool
		deps, conflicts refSet
	}
	byID := make(map[int]*acc)
	var order []int

	for _, b := range d.Blocks {
		id := b.ID(scheme)
		a, ok := byID[id]
		if !ok {
			a = &acc{allowed: make(map[string]bool)}
			byID[id] = a
			order = append(order, id)
		}
		if a.label == "" {
			a.label = b.Label
		}
		f := analyze(b.body, target)
		a.deps.merge(f.deps.refs)
		a.conflicts.merge(f.conflicts.refs)
		for tok := range f.allowed {
			a.allowed[tok] = true
		}
	}

	out := make(map[int]Metadata, len(byID))
	for _, id := range order {
		a := byID[id]
		allowed := make([]string, 0, len(a.allowed))
		for tok := range a.allowed {
			allowed = append(allowed, tok)
		}
		sort.Strings(allowed)
		out[id] = Metadata{
			Label:        a.label,
			Allowed:      allowed,
			Dependencies: a.deps.sorted(),
			Conflicts:    a.conflicts.sorted(),
		}
	}
	return out
}

// facts are the references and game gates of one block.
type facts struct {
	deps, conflicts refSet
	allowed         map[string]bool
}

func analyze(body string, target game.Target) *facts {
	f := &facts{allowed: make(map[string]bool)}
	toks := tokenize(body)
	for i := 0; i < len(toks); i++ {
		kw := toks[i].keyword()
		rest := toks[i+1:]
		switch kw {
		case "REQUIRE_COMPONENT", "FORBID_COMPONENT":
			tp2, id, _, n, ok := componentArgs(rest, false)
			if !ok {
				continue
			}
			ref := ComponentRef(tp2, id, nil)
			if kw == "REQUIRE_COMPONENT" {
				f.deps.add(ref)
			} else {
				f.conflicts.add(ref)
			}
			i += n
		case "REQUIRE_COMPONENT_IN_GAME", "FORBID_COMPONENT_IN_GAME":
			tp2, id, gameArg, n, ok := componentArgs(rest, true)
			if !ok {
				continue
			}
			tokens := game.Tokens(gameArg)
			if kw == "REQUIRE_COMPONENT_IN_GAME" {
				f.allow(tokens)
			}
			if game.Matches(gameArg, target) {
				ref := ComponentRef(tp2, id, tokens)
				if kw == "REQUIRE_COMPONENT_IN_GAME" {
					f.deps.add(ref)
				} else {
					f.conflicts.add(ref)
				}
			}
			i += n
		case "MOD_IS_INSTALLED", "COMPONENT_IS_INSTALLED":
			tp2, id, _, n, ok := componentArgs(rest, false)
			if !ok {
				continue
			}
			// a negated check outside REQUIRE_PREDICATE is scripted behavior
			if !negatedAt(toks, i) {
				f.deps.add(ComponentRef(tp2, id, nil))
			}
			i += n
		case "REQUIRE_FILE", "REQUIRE_RESOURCE", "REQUIRE_PROG":
			if len(rest) == 0 || rest[0].text == "" {
				continue
			}
			switch kw {
			case "REQUIRE_FILE":
				f.deps.add(FileRef(rest[0].text))
			case "REQUIRE_RESOURCE":
				f.deps.add(ResourceRef(rest[0].text))
			default:
				f.deps.add(ProgRef(rest[0].text))
			}
			i++
		case "REQUIRE_PREDICATE":
			i += f.predicate(rest)
		}
	}
	return f
}

func (f *facts) allow(tokens []string) {
	for _, tok := range tokens {
		f.allowed[tok] = true
	}
}

func negatedAt(toks []token, i int) bool {
	if i == 0 {
		return false
	}
	prev := toks[i-1].keyword()
	return prev == "!" || prev == "NOT"
}

// componentArgs reads "<tp2> [DESIGNATED] <id> [<game>]".
func componentArgs(rest []token, withGame bool) (tp2 string, id int, gameArg string, consumed int, ok bool) {
	if len(rest) < 2 || rest[0].text == "" {
		return "", 0, "", 0, false
	}
	tp2 = rest[0].text
	j := 1
	if rest[j].keyword() == "DESIGNATED" {
		j++
	}
	if j >= len(rest) {
		return "", 0, "", 0, false
	}
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(rest[j].text), "#"))
	if err != nil {
		return "", 0, "", 0, false
	}
	j++
	if withGame {
		if j >= len(rest) {
			return "", 0, "", 0, false
		}
		gameArg = rest[j].text
		j++
	}
	return tp2, id, gameArg, j, true
}

// predicateArgs is the number of literal arguments of predicate clauses that
// do not affect eligibility; their literals must not end the expression.
var predicateArgs = map[string]int{
	"ENGINE_IS":               1,
	"GAME_INCLUDES":           1,
	"FILE_EXISTS":             1,
	"VARIABLE_IS_SET":         1,
	"IS_AN_INT":               1,
	"FILE_CONTAINS":           2,
	"FILE_CONTAINS_EVALUATED": 2,
	"FILE_MD5":                2,
	"FILE_SIZE":               2,
	"RESOURCE_CONTAINS":       2,
	"STRING_EQUAL":            2,
	"STRING_EQUAL_CASE":       2,
	"STRING_COMPARE":          2,
	"STRING_COMPARE_CASE":     2,
}

// blockDirectives end a predicate whose message was not quoted.
var blockDirectives = map[string]bool{
	"REQUIRE_PREDICATE": true, "REQUIRE_COMPONENT": true, "FORBID_COMPONENT": true,
	"REQUIRE_COMPONENT_IN_GAME": true, "FORBID_COMPONENT_IN_GAME": true,
	"REQUIRE_FILE": true, "LABEL": true, "DESIGNATED": true, "GROUP": true,
	"SUBCOMPONENT": true, "FORCED_SUBCOMPONENT": true, "DEPRECATED": true,
	"INSTALL_BY_DEFAULT": true, "NO_LOG_RECORD": true, "METADATA": true,
}

const maxPredicateTokens = 200

// predicate walks a REQUIRE_PREDICATE expression up to its message and
// returns the number of tokens consumed. Positive installed-checks become
// dependencies, negated ones conflicts; positive GAME_IS clauses are hard
// game gates.
func (f *facts) predicate(rest []token) int {
	negStack := []bool{false}
	pendingNot := false
	negated := func() bool { return negStack[len(negStack)-1] != pendingNot }

	for i := 0; i < len(rest) && i < maxPredicateTokens; {
		t := rest[i]
		kw := t.keyword()
		depth := len(negStack) - 1

		switch {
		case t.quoted || strings.HasPrefix(t.text, "@"):
			if depth == 0 {
				return i + 1
			}
			i++
		case blockDirectives[kw]:
			return i
		case kw == "!" || kw == "NOT":
			pendingNot = !pendingNot
			i++
		case kw == "(":
			negStack = append(negStack, negated())
			pendingNot = false
			i++
		case kw == ")":
			if depth == 0 {
				return i
			}
			negStack = negStack[:depth]
			pendingNot = false
			i++
		case kw == "GAME_IS":
			if i+1 < len(rest) && !negated() {
				f.allow(game.Tokens(rest[i+1].text))
			}
			pendingNot = false
			i += 2
		case kw == "MOD_IS_INSTALLED" || kw == "COMPONENT_IS_INSTALLED":
			neg := negated()
			pendingNot = false
			tp2, id, _, n, ok := componentArgs(rest[i+1:], false)
			if !ok {
				i++
				continue
			}
			ref := ComponentRef(tp2, id, nil)
			if neg {
				f.conflicts.add(ref)
			} else {
				f.deps.add(ref)
			}
			i += 1 + n
		case kw == "FILE_EXISTS_IN_GAME":
			if i+1 < len(rest) && !negated() && rest[i+1].text != "" {
				f.deps.add(FileRef(rest[i+1].text))
			}
			pendingNot = false
			i += 2
		case predicateArgs[kw] > 0:
			pendingNot = false
			i += 1 + predicateArgs[kw]
		default:
			if kw == "AND" || kw == "OR" || kw == "&&" || kw == "||" {
				pendingNot = false
			}
			i++
		}
	}
	return min(len(rest), maxPredicateTokens)
}
