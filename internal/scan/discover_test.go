package scan

import (
	"path/filepath"
	"testing"
)

func TestDiscover(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	for _, rel := range []string{
		"Zeta/zeta.tp2",
		"alpha/ALPHA.TP2",
		"alpha/readme.txt",
		"a/b/c/deep.tp2",
		"a/b/c/d/too-deep.tp2",
		"top.tp2",
	} {
		writeFile(t, filepath.Join(root, filepath.FromSlash(rel)), "BEGIN ~x~\n")
	}

	got, err := Discover(root, MaxDiscoverDepth)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	want := []string{"a/b/c/deep.tp2", "alpha/ALPHA.TP2", "top.tp2", "Zeta/zeta.tp2"}
	if len(got) != len(want) {
		t.Fatalf("Discover() = %v, want %v", got, want)
	}
	for i, p := range got {
		if rel, _ := filepath.Rel(root, p); filepath.ToSlash(rel) != want[i] {
			t.Errorf("Discover()[%d] = %s, want %s", i, rel, want[i])
		}
	}
}

func TestDiscoverMissingRoot(t *testing.T) {
	t.Parallel()
	if _, err := Discover(filepath.Join(t.TempDir(), "gone"), MaxDiscoverDepth); err == nil {
		t.Error("Discover() on a missing root should fail")
	}
}

func TestNormalizeRel(t *testing.T) {
	t.Parallel()
	root := filepath.FromSlash("/mods")
	tests := []struct {
		path string
		want string
	}{
		{"/mods/stratagems/setup-stratagems.tp2", "stratagems/setup-stratagems.tp2"},
		{"/mods/Downloads/Extracted/Stratagems/setup-stratagems.tp2", "Stratagems/setup-stratagems.tp2"},
		{"/mods/top.tp2", "top.tp2"},
	}
	for _, tt := range tests {
		if got := NormalizeRel(root, filepath.FromSlash(tt.path)); got != tt.want {
			t.Errorf("NormalizeRel(%s) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestGroupOf(t *testing.T) {
	t.Parallel()
	tests := []struct {
		rel       string
		wantKey   string
		wantLabel string
	}{
		{"EET/EET.tp2", BridgeGroup, BridgeGroup},
		{"EET_end/EET_end.tp2", BridgeGroup, BridgeGroup},
		{`eet_gui\eet_gui.tp2`, BridgeGroup, BridgeGroup},
		{"stratagems/setup-stratagems.tp2", "stratagems/setup-stratagems.tp2", "setup-stratagems (stratagems)"},
		{"Top.tp2", "top.tp2", "Top"},
		{"eetact2/eet.tp2", "eetact2/eet.tp2", "eet (eetact2)"},
	}
	for _, tt := range tests {
		key, label := GroupOf(tt.rel)
		if key != tt.wantKey || label != tt.wantLabel {
			t.Errorf("GroupOf(%s) = %s, %s; want %s, %s", tt.rel, key, label, tt.wantKey, tt.wantLabel)
		}
	}
}
