package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/weidu"
)

// Note: Tests that modify HOME/USERPROFILE environment variables cannot run in
// parallel because os.Setenv affects the entire process.

// setTestHome overrides the home directory for tests on all platforms.
// On Unix, os.UserHomeDir() reads HOME; on Windows it reads USERPROFILE.
func setTestHome(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("HOME", dir)

	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", dir)
	}
}

func TestSaveAppConfig(t *testing.T) {
	tmpDir := t.TempDir()
	setTestHome(t, tmpDir)

	cfg := &AppConfig{
		ModsDir: "~/mods",
		Mode:    "eet",
	}

	if err := SaveAppConfig(cfg); err != nil {
		t.Fatalf("SaveAppConfig() error = %v", err)
	}

	configPath := filepath.Join(tmpDir, appConfigDir, appConfigFile)
	data, err := os.ReadFile(configPath) //nolint:gosec // test file path is controlled
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	if !strings.Contains(content, "mods_dir: ~/mods") || !strings.Contains(content, "mode: eet") {
		t.Errorf("Config file should contain the fields, got: %s", content)
	}
	if strings.Contains(content, "bgee_dir") {
		t.Errorf("Empty fields should be omitted, got: %s", content)
	}
	if !strings.Contains(content, "# tp2scan configuration") {
		t.Error("Config file should have header comment")
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("permissions = %v, want 0600", info.Mode().Perm())
	}
}

func TestLoadAppConfig(t *testing.T) {
	tmpDir := t.TempDir()
	setTestHome(t, tmpDir)

	configDir := filepath.Join(tmpDir, appConfigDir)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		t.Fatal(err)
	}
	content := "weidu_binary: ~/bin/weidu\nmods_dir: ~/mods\nbgee_dir: /games/bgee\nmode: bg2ee\ntimeout: 90s\n"
	if err := os.WriteFile(filepath.Join(configDir, appConfigFile), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAppConfig()
	if err != nil {
		t.Fatalf("LoadAppConfig() error = %v", err)
	}
	if cfg.ModsDir != "~/mods" || cfg.Mode != "bg2ee" {
		t.Errorf("cfg = %+v", cfg)
	}

	sc, err := cfg.ScanConfig()
	if err != nil {
		t.Fatalf("ScanConfig() error = %v", err)
	}
	if sc.ModsRoot != filepath.Join(tmpDir, "mods") {
		t.Errorf("ModsRoot = %q, want ~ expanded", sc.ModsRoot)
	}
	if sc.ListerBinary != filepath.Join(tmpDir, "bin", "weidu") {
		t.Errorf("ListerBinary = %q", sc.ListerBinary)
	}
	if sc.Mode != game.ModeBG2EE {
		t.Errorf("Mode = %v, want BG2EE", sc.Mode)
	}
	if d, _ := cfg.ListTimeout(); d != 90*time.Second {
		t.Errorf("ListTimeout() = %v", d)
	}
}

func TestLoadAppConfigNotFound(t *testing.T) {
	setTestHome(t, t.TempDir())

	cfg, err := LoadAppConfig()
	if err != nil {
		t.Fatalf("LoadAppConfig() error = %v", err)
	}
	if *cfg != (AppConfig{}) {
		t.Errorf("missing config should be empty, got %+v", cfg)
	}
}

func TestLoadAppConfigInvalidYAML(t *testing.T) {
	t.Parallel()
	configPath := filepath.Join(t.TempDir(), appConfigFile)
	if err := os.WriteFile(configPath, []byte("invalid: yaml: content:"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadAppConfigFrom(configPath); err == nil {
		t.Error("LoadAppConfigFrom() should error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		cfg        AppConfig
		wantFields []string
	}{
		{"empty", AppConfig{}, nil},
		{"valid", AppConfig{Mode: "EET", Timeout: "2m"}, nil},
		{"bad mode", AppConfig{Mode: "iwdee"}, []string{"mode"}},
		{"bad timeout", AppConfig{Timeout: "soon"}, []string{"timeout"}},
		{"negative timeout", AppConfig{Timeout: "-1s"}, []string{"timeout"}},
		{"null byte", AppConfig{ModsDir: "mods\x00", Mode: "x"}, []string{"mods_dir", "mode"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
			}
			var ve *ValidationErrors
			if !errors.As(err, &ve) || len(ve.Errors) != len(tt.wantFields) {
				t.Fatalf("Validate() error = %v, want %d field errors", err, len(tt.wantFields))
			}
			for i, want := range tt.wantFields {
				var fe *FieldError
				if !errors.As(ve.Errors[i], &fe) || fe.Field != want {
					t.Errorf("error %d = %v, want field %s", i, ve.Errors[i], want)
				}
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	cfg := &AppConfig{BGEEDir: "/games/bgee", BG2EELogDir: "/logs/bg2"}

	if m, err := cfg.GameMode(); err != nil || m != game.ModeBGEE {
		t.Errorf("GameMode() = %v, %v", m, err)
	}
	if d, err := cfg.ListTimeout(); err != nil || d != weidu.DefaultTimeout {
		t.Errorf("ListTimeout() = %v, %v", d, err)
	}
	if got := cfg.LogDir(game.BGEE); got != "/games/bgee" {
		t.Errorf("LogDir(BGEE) = %q", got)
	}
	if got := cfg.LogDir(game.BG2EE); got != "/logs/bg2" {
		t.Errorf("LogDir(BG2EE) = %q", got)
	}
}

func TestFieldsGetSetMerge(t *testing.T) {
	t.Parallel()
	cfg := &AppConfig{}

	if err := cfg.Set("bg2ee_dir", "/games/bg2"); err != nil {
		t.Fatal(err)
	}
	if v, err := cfg.Get("bg2ee_dir"); err != nil || v != "/games/bg2" {
		t.Errorf("Get() = %q, %v", v, err)
	}
	if err := cfg.Set("nope", "x"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Set(nope) = %v, want ErrUnknownKey", err)
	}

	keys := make([]string, 0)
	for _, f := range cfg.Fields() {
		keys = append(keys, f.Key)
	}
	if len(keys) != 9 || keys[0] != "weidu_binary" || keys[8] != "timeout" {
		t.Errorf("Fields() keys = %v", keys)
	}

	cfg.Merge(&AppConfig{Mode: "eet"})
	if cfg.Mode != "eet" || cfg.BG2EEDir != "/games/bg2" {
		t.Errorf("Merge() = %+v", cfg)
	}
}

func TestAppConfigPath(t *testing.T) {
	// Cannot run in parallel - uses os.UserHomeDir()
	path := AppConfigPath()

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, appConfigDir, appConfigFile)

	if path != expected {
		t.Errorf("AppConfigPath() = %q, want %q", path, expected)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	setTestHome(t, home)
	t.Setenv("TP2SCAN_GAMES", "/games")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/mods", filepath.Join(home, "mods")},
		{"$TP2SCAN_GAMES/bgee", "/games/bgee"},
		{"${TP2SCAN_GAMES}/bg2ee", "/games/bg2ee"},
		{"/abs/~user", "/abs/~user"},
	}

	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
