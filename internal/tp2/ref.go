package tp2

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
)

// ComponentKey identifies one component of one descriptor across the system.
type ComponentKey struct {
	TP2 string // normalized descriptor path, see NormalizePath
	ID  int
}

func (k ComponentKey) String() string {
	return k.TP2 + "#" + strconv.Itoa(k.ID)
}

// NormalizePath lower-cases a descriptor path and converts it to forward
// slashes with quoting removed, so references written on any platform compare
// equal.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(Unquote(p), `\`, "/")
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	return strings.ToLower(p)
}

// RefKind discriminates the kinds of reference a component can declare.
type RefKind int

const (
	// RefComponent requires (or forbids) another mod component.
	RefComponent RefKind = iota
	// RefFile requires a file relative to the game folder.
	RefFile
	// RefResource requires a game resource by resref, any extension.
	RefResource
	// RefProg requires an external program.
	RefProg
)

func (k RefKind) String() string {
	switch k {
	case RefComponent:
		return "component"
	case RefFile:
		return "file"
	case RefResource:
		return "res"
	case RefProg:
		return "prog"
	default:
		return "unknown"
	}
}

// Ref is a dependency or conflict reference.
type Ref struct {
	Kind RefKind
	// TP2 and ID are set for RefComponent.
	TP2 string
	ID  int
	// Game holds the comma-joined canonical game tokens of a game-qualified
	// component reference, "" when unqualified.
	Game string
	// Value is the path, resref or program name of the other kinds.
	Value string
}

// ComponentRef builds a normalized component reference.
func ComponentRef(tp2 string, id int, gameTokens []string) Ref {
	return Ref{Kind: RefComponent, TP2: NormalizePath(tp2), ID: id, Game: strings.Join(gameTokens, ",")}
}

// FileRef builds a file reference with forward slashes.
func FileRef(p string) Ref {
	return Ref{Kind: RefFile, Value: strings.ReplaceAll(Unquote(p), `\`, "/")}
}

// ResourceRef builds a resource reference.
func ResourceRef(resref string) Ref {
	return Ref{Kind: RefResource, Value: Unquote(resref)}
}

// ProgRef builds a program reference.
func ProgRef(name string) Ref {
	return Ref{Kind: RefProg, Value: Unquote(name)}
}

// Key returns the component key of a component reference.
func (r Ref) Key() ComponentKey {
	return ComponentKey{TP2: r.TP2, ID: r.ID}
}

// CrossGame reports whether a component reference may be satisfied by a
// selection on the sibling game: unqualified references and those qualified
// with eet.
func (r Ref) CrossGame() bool {
	if r.Game == "" {
		return true
	}
	for _, g := range strings.Split(r.Game, ",") {
		if g == "eet" {
			return true
		}
	}
	return false
}

// String renders the textual form: "tp2#id[@games]", "file:p", "res:r" or
// "prog:p".
func (r Ref) String() string {
	switch r.Kind {
	case RefComponent:
		s := r.Key().String()
		if r.Game != "" {
			s += "@" + r.Game
		}
		return s
	case RefFile:
		return "file:" + r.Value
	case RefResource:
		return "res:" + r.Value
	case RefProg:
		return "prog:" + r.Value
	default:
		return ""
	}
}

// normalized is the equality form of a reference.
func (r Ref) normalized() string {
	return strings.ToLower(r.String())
}

// Equal compares references by normalized value.
func (r Ref) Equal(o Ref) bool {
	return r.normalized() == o.normalized()
}

// ParseRef parses the textual form produced by String.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	for prefix, build := range map[string]func(string) Ref{
		"file:": FileRef,
		"res:":  ResourceRef,
		"prog:": ProgRef,
	} {
		if v, ok := strings.CutPrefix(s, prefix); ok {
			if v == "" {
				return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
			}
			return build(v), nil
		}
	}

	body, games, _ := strings.Cut(s, "@")
	i := strings.LastIndexByte(body, '#')
	if i <= 0 {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	id, err := strconv.Atoi(body[i+1:])
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	var tokens []string
	if games != "" {
		tokens = strings.Split(games, ",")
	}
	return ComponentRef(body[:i], id, tokens), nil
}

// refSet is an insertion-deduplicated set of references.
type refSet struct {
	seen map[string]bool
	refs []Ref
}

func (s *refSet) add(r Ref) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	n := r.normalized()
	if s.seen[n] {
		return
	}
	s.seen[n] = true
	s.refs = append(s.refs, r)
}

func (s *refSet) merge(refs []Ref) {
	for _, r := range refs {
		s.add(r)
	}
}

// sorted returns the references ordered by normalized text.
func (s *refSet) sorted() []Ref {
	out := append([]Ref(nil), s.refs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].normalized() < out[j].normalized()
	})
	return out
}
