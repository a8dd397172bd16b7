package weidulog

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/scan"
	"github.com/AntoineGS/tp2scan/internal/selection"
	"github.com/AntoineGS/tp2scan/internal/tp2"
)

var sampleEntries = []Entry{
	{TP2: "stratagems/setup-stratagems.tp2", ID: 1500, Name: "Include arcane spells from Icewind Dale: Enhanced Edition", Version: "35.21"},
	{TP2: "SouthernEdge/setup-southernedge.tp2", ID: 0, Name: "Core component", Version: "1.0"},
	{TP2: "eet/eet.tp2", ID: 0, Name: "EET core (resource importation)"},
}

func TestFormat(t *testing.T) {
	t.Parallel()
	g := goldie.New(t)
	g.Assert(t, "format", []byte(Format(sampleEntries)))

	if got := Format(nil); got != "" {
		t.Errorf("Format(nil) = %q, want empty", got)
	}
}

func TestParseLine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		line string
		want Entry
	}{
		{
			`~TOBEX\TOBEX.TP2~ #0 #100 // TobEx - Core: v28`,
			Entry{TP2: "TOBEX/TOBEX.TP2", ID: 100, Name: "TobEx - Core", Version: "v28"},
		},
		{
			`~EET/EET.TP2~ #3 #0 // EET core -> Standard install: 13.4`,
			Entry{TP2: "EET/EET.TP2", Language: 3, ID: 0, Name: "EET core", SubComponent: "Standard install", Version: "13.4"},
		},
		{
			`~A\A.TP2~ #0 #7 // Title: Subtitle`,
			Entry{TP2: "A/A.TP2", ID: 7, Name: "Title: Subtitle"},
		},
		{
			`~A\A.TP2~ #0 #8`,
			Entry{TP2: "A/A.TP2", ID: 8},
		},
	}
	for _, tt := range tests {
		got, err := ParseLine(tt.line)
		if err != nil {
			t.Errorf("ParseLine(%q) error: %v", tt.line, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestParseReportsBadLines(t *testing.T) {
	t.Parallel()
	text := "// Log of Currently Installed WeiDU Mods\r\n" +
		"\r\n" +
		"~A\\A.TP2~ #0 #1 // One\r\n" +
		"not a record\r\n" +
		"~B\\B.TP2~ #0 #x // Bad id\r\n"

	entries, err := Parse(strings.NewReader(text))
	if len(entries) != 1 || entries[0].Name != "One" {
		t.Errorf("entries = %+v", entries)
	}
	var lineErr *LineError
	if !errors.As(err, &lineErr) || lineErr.Line != 4 {
		t.Fatalf("Parse() error = %v, want *LineError on line 4", err)
	}
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Parse() error should wrap ErrMalformed")
	}
}

func TestSelectionRoundTrip(t *testing.T) {
	t.Parallel()
	m := selection.New(nil)
	m.Load(&scan.Result{Mode: game.ModeBGEE, Mods: map[game.Target][]scan.Mod{
		game.BGEE: {
			{RelPath: "Stratagems/setup-stratagems.tp2", Components: []scan.Component{
				{ID: 1500, Name: "Include arcane spells: extra", Version: "35.21"},
				{ID: 2010, Name: "Core changes"},
			}},
			{RelPath: "eet/eet.tp2", Components: []scan.Component{{ID: 0, Name: "EET core -> default"}}},
		},
	}})
	m.SelectAll()

	sel := m.InstallOrder(game.BGEE)
	want := make(map[tp2.ComponentKey]bool)
	for _, s := range sel {
		want[s.Key] = true
	}

	entries, err := Parse(strings.NewReader(Format(FromSelection(sel))))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	got := make(map[tp2.ComponentKey]bool)
	for _, e := range entries {
		got[e.Key()] = true
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip keys = %v, want %v", got, want)
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "BGEE")

	if _, err := WriteFile(dir, nil); !errors.Is(err, ErrEmptyLog) {
		t.Errorf("WriteFile(nil) error = %v, want ErrEmptyLog", err)
	}

	p, err := WriteFile(dir, sampleEntries)
	if err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "\r\n") || strings.Count(string(data), "\r\n") != len(sampleEntries) {
		t.Errorf("file does not use CRLF: %q", data)
	}

	back, err := ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !reflect.DeepEqual(back, sampleEntries) {
		t.Errorf("ReadFile() = %+v, want %+v", back, sampleEntries)
	}
}

func TestDiff(t *testing.T) {
	t.Parallel()
	oldLog := "~A\\A.TP2~ #0 #1 // One\r\n~B\\B.TP2~ #0 #0 // Two\r\n"
	newLog := "~B\\B.TP2~ #0 #0 // Two\r\n~C\\C.TP2~ #0 #3 // Three\r\n"

	want := "- ~A\\A.TP2~ #0 #1 // One\n" +
		"  ~B\\B.TP2~ #0 #0 // Two\n" +
		"+ ~C\\C.TP2~ #0 #3 // Three\n"
	if got := Diff(oldLog, newLog); got != want {
		t.Errorf("Diff() =\n%s\nwant\n%s", got, want)
	}
	if got := Diff(oldLog, strings.ReplaceAll(oldLog, "\r\n", "\n")); got != "" {
		t.Errorf("Diff() of equal logs = %q", got)
	}
}
