// Package weidulog reads and writes weidu.log install-order records:
//
//	~STRATAGEMS\SETUP-STRATAGEMS.TP2~ #0 #1500 // Include arcane spells: 35.21
package weidulog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/AntoineGS/tp2scan/internal/selection"
	"github.com/AntoineGS/tp2scan/internal/tp2"
)

// FileName is the name of the log inside a game folder.
const FileName = "weidu.log"

const crlf = "\r\n"

// Sentinel errors for weidu.log handling
var (
	ErrEmptyLog  = errors.New("no components selected")
	ErrMalformed = errors.New("malformed record")
)

// LineError locates a record that could not be parsed.
type LineError struct {
	Err  error
	Text string
	Line int
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Entry is one installed or to-be-installed component.
type Entry struct {
	// TP2 is the descriptor path relative to the game folder, with forward
	// slashes.
	TP2          string
	Language     int
	ID           int
	Name         string
	SubComponent string
	Version      string
}

// Key returns the selection key of the entry.
func (e Entry) Key() tp2.ComponentKey {
	return tp2.ComponentKey{TP2: tp2.NormalizePath(e.TP2), ID: e.ID}
}

// String renders the record line, without line ending.
func (e Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "~%s~ #%d #%d // %s", strings.ReplaceAll(e.TP2, "/", `\`), e.Language, e.ID, e.Name)
	if e.SubComponent != "" {
		b.WriteString(" -> " + e.SubComponent)
	}
	if e.Version != "" {
		b.WriteString(": " + e.Version)
	}
	return b.String()
}

// FromSelection converts checked components, already in install order.
// Records always name language 0.
func FromSelection(sel []selection.Selected) []Entry {
	out := make([]Entry, len(sel))
	for i, s := range sel {
		out[i] = Entry{TP2: s.TP2, ID: s.ID, Name: s.Name, Version: s.Version}
	}
	return out
}

// Format renders entries as a weidu.log body with CRLF line endings, ending
// with one. No entries give "".
func Format(entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.String())
		b.WriteString(crlf)
	}
	return b.String()
}

// WriteFile writes entries to dir/weidu.log, creating dir, and returns the
// written path.
func WriteFile(dir string, entries []Entry) (string, error) {
	if len(entries) == 0 {
		return "", ErrEmptyLog
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating log folder: %w", err)
	}
	p := filepath.Join(dir, FileName)
	if err := os.WriteFile(p, []byte(Format(entries)), 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", FileName, err)
	}
	return p, nil
}

var (
	recordRE  = regexp.MustCompile(`^~([^~]+)~\s+#(\d+)\s+#(\d+)\s*(?://\s*(.*))?$`)
	versionRE = regexp.MustCompile(`^[vV]?\d\S*$`)
)

// ParseLine parses one record line.
func ParseLine(line string) (Entry, error) {
	m := recordRE.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Entry{}, ErrMalformed
	}
	lang, err := strconv.Atoi(m[2])
	if err != nil {
		return Entry{}, ErrMalformed
	}
	id, err := strconv.Atoi(m[3])
	if err != nil {
		return Entry{}, ErrMalformed
	}

	e := Entry{
		TP2:      strings.ReplaceAll(m[1], `\`, "/"),
		Language: lang,
		ID:       id,
	}
	comment := strings.TrimSpace(m[4])
	if i := strings.LastIndex(comment, ":"); i >= 0 {
		if v := strings.TrimSpace(comment[i+1:]); versionRE.MatchString(v) {
			e.Version = v
			comment = strings.TrimSpace(comment[:i])
		}
	}
	name, sub, _ := strings.Cut(comment, "->")
	e.Name = strings.TrimSpace(name)
	e.SubComponent = strings.TrimSpace(sub)
	return e, nil
}

// Parse reads records from r. Blank lines and "//" comment lines are
// skipped. Records that parse are returned along with a *LineError per line
// that does not, joined.
func Parse(r io.Reader) ([]Entry, error) {
	var (
		out  []Entry
		errs []error
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		e, err := ParseLine(line)
		if err != nil {
			errs = append(errs, &LineError{Line: n, Text: line, Err: err})
			continue
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return out, err
	}
	return out, errors.Join(errs...)
}

// ReadFile parses the log at path.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path) //nolint:gosec // path is a configured log folder
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only

	return Parse(f)
}
