package tp2

import (
	"bytes"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode turns raw descriptor or translation bytes into text. Files that are
// not valid UTF-8 are read as Windows-1252, the encoding most older mods ship.
func Decode(b []byte) string {
	b = bytes.TrimPrefix(b, utf8BOM)
	if utf8.Valid(b) {
		return string(b)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}

// ReadText reads and decodes a file.
func ReadText(path string) (string, error) {
	b, err := os.ReadFile(path) //nolint:gosec // paths come from the scanned mods folder
	if err != nil {
		return "", err
	}
	return Decode(b), nil
}

const longTilde = "~~~~~"

// quoteEnd returns the index just past the string literal starting at s[i], or
// -1 when s[i] does not open a literal that closes.
func quoteEnd(s string, i int) int {
	if strings.HasPrefix(s[i:], longTilde) {
		if j := strings.Index(s[i+len(longTilde):], longTilde); j >= 0 {
			return i + len(longTilde) + j + len(longTilde)
		}
		return -1
	}
	q := s[i]
	j := strings.IndexByte(s[i+1:], q)
	if j < 0 {
		return -1
	}
	// single quotes do not span lines; apostrophes in bare text are common
	if q == '\'' && strings.ContainsRune(s[i+1:i+1+j], '\n') {
		return -1
	}
	return i + 1 + j + 1
}

func isQuote(c byte) bool {
	return c == '~' || c == '"' || c == '\''
}

// StripComments removes /* */ and // comments outside string literals. Newlines
// inside block comments are kept so line-based matching still lines up.
func StripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case isQuote(c):
			end := quoteEnd(s, i)
			if end < 0 {
				b.WriteByte(c)
				i++
				continue
			}
			b.WriteString(s[i:end])
			i = end
		case strings.HasPrefix(s[i:], "//"):
			j := strings.IndexByte(s[i:], '\n')
			if j < 0 {
				return b.String()
			}
			i += j
		case strings.HasPrefix(s[i:], "/*"):
			j := strings.Index(s[i+2:], "*/")
			end := len(s)
			if j >= 0 {
				end = i + 2 + j + 2
			}
			b.WriteString(strings.Repeat("\n", strings.Count(s[i:end], "\n")))
			b.WriteByte(' ')
			i = end
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// commentSpans returns the [start, end) ranges of block comments outside
// string literals.
func commentSpans(s string) [][2]int {
	var spans [][2]int
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case isQuote(c):
			if end := quoteEnd(s, i); end > 0 {
				i = end
				continue
			}
			i++
		case strings.HasPrefix(s[i:], "//"):
			j := strings.IndexByte(s[i:], '\n')
			if j < 0 {
				return spans
			}
			i += j
		case strings.HasPrefix(s[i:], "/*"):
			j := strings.Index(s[i+2:], "*/")
			end := len(s)
			if j >= 0 {
				end = i + 2 + j + 2
			}
			spans = append(spans, [2]int{i, end})
			i = end
		default:
			i++
		}
	}
	return spans
}

// Unquote strips one layer of ~ " ' or ~~~~~ quoting and surrounding space.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2*len(longTilde) && strings.HasPrefix(s, longTilde) && strings.HasSuffix(s, longTilde) {
		return strings.TrimSpace(s[len(longTilde) : len(s)-len(longTilde)])
	}
	if len(s) >= 2 && isQuote(s[0]) && s[len(s)-1] == s[0] {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return strings.Trim(s, "~\"'")
}

// token is one lexical unit of directive text.
type token struct {
	text   string
	quoted bool
}

// keyword returns the upper-cased bare text, or "" for literals.
func (t token) keyword() string {
	if t.quoted {
		return ""
	}
	return strings.ToUpper(t.text)
}

// tokenize splits comment-free text into literals, bare words and the
// punctuation ! ( ) used by predicate expressions.
func tokenize(s string) []token {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isQuote(c):
			end := quoteEnd(s, i)
			if end < 0 {
				toks = append(toks, token{text: string(c)})
				i++
				continue
			}
			toks = append(toks, token{text: Unquote(s[i:end]), quoted: true})
			i = end
		case c == '!' || c == '(' || c == ')':
			toks = append(toks, token{text: string(c)})
			i++
		default:
			j := i
			for j < len(s) && !strings.ContainsRune(" \t\r\n!()~\"", rune(s[j])) {
				j++
			}
			toks = append(toks, token{text: s[i:j]})
			i = j
		}
	}
	return toks
}
