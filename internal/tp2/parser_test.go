package tp2

import (
	"reflect"
	"testing"

	"github.com/AntoineGS/tp2scan/internal/game"
)

const sampleTP2 = `BACKUP ~mymod/backup~
AUTHOR ~me~
VERSION ~v2.1~

LANGUAGE ~Francais~ ~french~ ~mymod/lang/french/setup.tra~
LANGUAGE ~English~ ~english~
         ~mymod/lang/english/setup.tra~

/*
BEGIN ~commented out~
*/

BEGIN @100 /* Core */
DESIGNATED 100
LABEL ~mymod-core~

BEGIN ~Extras~ // trailing
DESIGNATED = 1600
REQUIRE_COMPONENT ~mymod.tp2~ ~100~ @5
FORBID_COMPONENT ~other\other.tp2~ 0 @6
REQUIRE_FILE ~override/spell.spl~ @7

BEGIN ~BG2 only~
DESIGNATED 2000
REQUIRE_COMPONENT_IN_GAME ~EET/EET.TP2~ 0 ~bg2ee~ @8
REQUIRE_PREDICATE GAME_IS ~bg2ee eet~ @9
REQUIRE_PREDICATE !MOD_IS_INSTALLED ~cdtweaks/setup-cdtweaks.tp2~ ~20~ @10
REQUIRE_PREDICATE MOD_IS_INSTALLED ~a/a.tp2~ 1 AND FILE_EXISTS_IN_GAME ~ar0602.are~ @11
REQUIRE_RESOURCE ~spwi101~ @12
REQUIRE_PROG ~tisunpack~ @13
ACTION_IF GAME_IS ~iwdee~ BEGIN
END
`

func refStrings(refs []Ref) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.String())
	}
	return out
}

func TestParseBlocks(t *testing.T) {
	t.Parallel()
	d := Parse(sampleTP2)

	if len(d.Blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(d.Blocks))
	}
	if got := d.IDs(); !reflect.DeepEqual(got, []int{100, 1600, 2000}) {
		t.Errorf("IDs() = %v", got)
	}
	if d.Blocks[0].Label != "mymod-core" {
		t.Errorf("Label = %q, want mymod-core", d.Blocks[0].Label)
	}
	if d.Version != "v2.1" {
		t.Errorf("Version = %q, want v2.1", d.Version)
	}

	if _, n, isRef := d.Blocks[0].HeaderName(); !isRef || n != 100 {
		t.Errorf("HeaderName() of block 0 = %d, %v; want strref 100", n, isRef)
	}
	if name, _, isRef := d.Blocks[1].HeaderName(); isRef || name != "Extras" {
		t.Errorf("HeaderName() of block 1 = %q, %v; want literal Extras", name, isRef)
	}
}

func TestParseNoComponents(t *testing.T) {
	t.Parallel()
	d := Parse("BACKUP ~x/backup~\nAUTHOR ~me~\n// BEGIN ~nope~\n")
	if d.HasComponents() {
		t.Errorf("expected no components, got %d", len(d.Blocks))
	}
}

func TestExtract(t *testing.T) {
	t.Parallel()
	d := Parse(sampleTP2)

	bg2 := d.Extract(SchemeDesignated, game.BG2EE)
	if len(bg2) != 3 {
		t.Fatalf("got %d entries, want 3", len(bg2))
	}

	extras := bg2[1600]
	if got, want := refStrings(extras.Dependencies), []string{"file:override/spell.spl", "mymod.tp2#100"}; !reflect.DeepEqual(got, want) {
		t.Errorf("1600 deps = %v, want %v", got, want)
	}
	if got, want := refStrings(extras.Conflicts), []string{"other/other.tp2#0"}; !reflect.DeepEqual(got, want) {
		t.Errorf("1600 conflicts = %v, want %v", got, want)
	}
	if len(extras.Allowed) != 0 {
		t.Errorf("1600 allowed = %v, want none", extras.Allowed)
	}

	only := bg2[2000]
	wantDeps := []string{"a/a.tp2#1", "eet/eet.tp2#0@bg2ee", "file:ar0602.are", "prog:tisunpack", "res:spwi101"}
	if got := refStrings(only.Dependencies); !reflect.DeepEqual(got, wantDeps) {
		t.Errorf("2000 deps = %v, want %v", got, wantDeps)
	}
	if got, want := refStrings(only.Conflicts), []string{"cdtweaks/setup-cdtweaks.tp2#20"}; !reflect.DeepEqual(got, want) {
		t.Errorf("2000 conflicts = %v, want %v", got, want)
	}
	if got, want := only.Allowed, []string{"bg2ee", "eet"}; !reflect.DeepEqual(got, want) {
		t.Errorf("2000 allowed = %v, want %v", got, want)
	}

	bgee := d.Extract(SchemeDesignated, game.BGEE)
	for _, r := range bgee[2000].Dependencies {
		if r.Kind == RefComponent && r.TP2 == "eet/eet.tp2" {
			t.Errorf("bg2ee-qualified dependency leaked into BGEE: %s", r)
		}
	}
	if got := bgee[2000].Allowed; !reflect.DeepEqual(got, []string{"bg2ee", "eet"}) {
		t.Errorf("allowed games must not depend on the scan target, got %v", got)
	}

	positional := d.Extract(SchemePositional, game.BG2EE)
	if _, ok := positional[1]; !ok {
		t.Errorf("positional extraction missing id 1: %v", positional)
	}
	if positional[0].Label != "mymod-core" {
		t.Errorf("positional label = %q", positional[0].Label)
	}
}

func TestExtractPredicateGrouping(t *testing.T) {
	t.Parallel()
	src := `BEGIN ~x~
REQUIRE_PREDICATE !(MOD_IS_INSTALLED ~a.tp2~ 0 OR MOD_IS_INSTALLED ~b.tp2~ 3) AND !GAME_IS ~iwdee~ ~Message~
ACTION_IF !MOD_IS_INSTALLED ~c.tp2~ 0 THEN BEGIN END
ACTION_IF MOD_IS_INSTALLED ~d.tp2~ 1 THEN BEGIN END
`
	meta := Parse(src).Extract(SchemePositional, game.BGEE)[0]

	if got, want := refStrings(meta.Conflicts), []string{"a.tp2#0", "b.tp2#3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("conflicts = %v, want %v", got, want)
	}
	if got, want := refStrings(meta.Dependencies), []string{"d.tp2#1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("deps = %v, want %v", got, want)
	}
	if len(meta.Allowed) != 0 {
		t.Errorf("negated GAME_IS must not gate, got %v", meta.Allowed)
	}
}

func TestClassifyIDs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		ids  []int
		want IDScheme
	}{
		{"contiguous", []int{0, 1, 2, 3, 4}, SchemePositional},
		{"designated", []int{100, 1500, 1600}, SchemeDesignated},
		{"empty", nil, SchemeDesignated},
		{"one_gap", []int{0, 1, 3, 4}, SchemePositional},
		{"duplicates", []int{0, 0, 1}, SchemePositional},
		{"too_high", []int{0, 5}, SchemeDesignated},
		{"not_zero_based", []int{1, 2, 3}, SchemeDesignated},
		{"too_many_gaps", []int{0, 2, 4, 6}, SchemeDesignated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyIDs(tt.ids); got != tt.want {
				t.Errorf("ClassifyIDs(%v) = %s, want %s", tt.ids, got, tt.want)
			}
		})
	}
}

func TestLanguages(t *testing.T) {
	t.Parallel()
	d := Parse(sampleTP2)

	if len(d.Languages) != 2 {
		t.Fatalf("got %d languages, want 2", len(d.Languages))
	}
	if got := d.Languages[1].TraPaths; !reflect.DeepEqual(got, []string{"mymod/lang/english/setup.tra"}) {
		t.Errorf("continuation paths = %v", got)
	}
	if idx, ok := d.PreferredLanguage(); !ok || idx != 1 {
		t.Errorf("PreferredLanguage() = %d, %v; want 1, true", idx, ok)
	}
	if d.LanguageCount() != 2 {
		t.Errorf("LanguageCount() = %d, want 2", d.LanguageCount())
	}
	if got := d.TraPaths(); !reflect.DeepEqual(got, []string{"mymod/lang/french/setup.tra", "mymod/lang/english/setup.tra"}) {
		t.Errorf("TraPaths() = %v", got)
	}
}

func TestPreferredLanguage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		src    string
		want   int
		wantOK bool
	}{
		{"none", "BEGIN ~x~\n", 0, false},
		{"display", "LANGUAGE ~Deutsch~ ~german~ ~a.tra~\nLANGUAGE ~American English~ ~american~ ~b.tra~\n", 1, true},
		{"token", "LANGUAGE ~Deutsch~ ~german~ ~a.tra~\nLANGUAGE ~Anglais~ ~en_GB~ ~b.tra~\n", 1, true},
		{"prefix", "LANGUAGE ~Deutsch~ ~german~ ~a.tra~\nLANGUAGE ~Anglais~ ~EN_AU~ ~b.tra~\n", 1, true},
		{"fallback", "LANGUAGE ~Deutsch~ ~german~ ~a.tra~\nLANGUAGE ~Polski~ ~polish~ ~b.tra~\n", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := Parse(tt.src)
			got, ok := d.PreferredLanguage()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("PreferredLanguage() = %d, %v; want %d, %v", got, ok, tt.want, tt.wantOK)
			}
			if d.LanguageCount() < 1 {
				t.Errorf("LanguageCount() = %d, want >= 1", d.LanguageCount())
			}
		})
	}
}

func TestNames(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name, label string
		id          int
		want        string
	}{
		{"Core", "", 0, "Core"},
		{"UNDEFINED STRING: @12", "core-label", 3, "core-label"},
		{"undefined", "", 7, "Component 7"},
		{"", "", 2, "Component 2"},
		{": 1.0", "lbl", 2, "lbl"},
	}

	for _, tt := range tests {
		if got := DisplayName(tt.name, tt.label, tt.id); got != tt.want {
			t.Errorf("DisplayName(%q, %q, %d) = %q, want %q", tt.name, tt.label, tt.id, got, tt.want)
		}
	}

	if got := CountUnresolved([]string{"a", "UNDEFINED STRING", "", "b"}); got != 2 {
		t.Errorf("CountUnresolved = %d, want 2", got)
	}
}
