// Package config provides configuration management for tp2scan.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/platform"
	"github.com/AntoineGS/tp2scan/internal/scan"
	"github.com/AntoineGS/tp2scan/internal/weidu"
)

// AppConfig is the configuration stored in ~/.config/tp2scan/config.yaml.
// Every path may start with ~ or hold environment variables.
type AppConfig struct {
	// WeiduBinary is the listing tool; found on PATH when empty.
	WeiduBinary string `yaml:"weidu_binary,omitempty"`
	ModsDir     string `yaml:"mods_dir,omitempty"`
	BGEEDir     string `yaml:"bgee_dir,omitempty"`
	BG2EEDir    string `yaml:"bg2ee_dir,omitempty"`
	// Mode is bgee, bg2ee or eet.
	Mode        string `yaml:"mode,omitempty"`
	BGEELogDir  string `yaml:"bgee_log_dir,omitempty"`
	BG2EELogDir string `yaml:"bg2ee_log_dir,omitempty"`
	// StateDB is the SQLite file holding the last scan and the selection.
	StateDB string `yaml:"state_db,omitempty"`
	// Timeout bounds one listing call, as a Go duration such as "3m".
	Timeout string `yaml:"timeout,omitempty"`
}

const (
	appConfigDir  = ".config/tp2scan"
	appConfigFile = "config.yaml"
	stateDBFile   = "state.db"
	tuiLogFile    = "tui.log"
)

// LoadAppConfig loads the app configuration from ~/.config/tp2scan/config.yaml.
// A missing file gives an empty configuration.
func LoadAppConfig() (*AppConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}

	return LoadAppConfigFrom(filepath.Join(home, appConfigDir, appConfigFile))
}

// LoadAppConfigFrom loads the app configuration at configPath.
func LoadAppConfigFrom(configPath string) (*AppConfig, error) {
	data, err := os.ReadFile(configPath) //nolint:gosec // path is the user's config file, intentional
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &AppConfig{}, nil
		}

		return nil, fmt.Errorf("reading app config: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing app config: %w", err)
	}

	return &cfg, nil
}

// SaveAppConfig saves the app configuration to ~/.config/tp2scan/config.yaml
func SaveAppConfig(cfg *AppConfig) error {
	configPath := AppConfigPath()
	if configPath == "" {
		return errors.New("getting home directory: no home directory")
	}

	return SaveAppConfigTo(configPath, cfg)
}

// SaveAppConfigTo saves the app configuration to configPath.
func SaveAppConfigTo(configPath string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := marshalYAML(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	content := fmt.Sprintf("# tp2scan configuration\n# Paths may use ~ and environment variables\n\n%s", string(data))

	// Use 0600 permissions to restrict access to owner only
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// AppConfigPath returns the path where the app config is stored.
// Returns an empty string if the home directory cannot be determined.
func AppConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, appConfigDir, appConfigFile)
}

// TUILogPath returns the file the interactive selector logs to.
func TUILogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "tp2scan-"+tuiLogFile)
	}

	return filepath.Join(home, appConfigDir, tuiLogFile)
}

// StateDBPath returns the configured state database, defaulting to one next
// to the config file.
func (a *AppConfig) StateDBPath() string {
	if a.StateDB != "" {
		return ExpandPath(a.StateDB)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return stateDBFile
	}

	return filepath.Join(home, appConfigDir, stateDBFile)
}

// GameMode parses Mode, defaulting to BGEE.
func (a *AppConfig) GameMode() (game.Mode, error) {
	if a.Mode == "" {
		return game.ModeBGEE, nil
	}
	return game.ParseMode(a.Mode)
}

// ListTimeout parses Timeout, defaulting to the listing tool default.
func (a *AppConfig) ListTimeout() (time.Duration, error) {
	if a.Timeout == "" {
		return weidu.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, ErrNonPositive
	}
	return d, nil
}

// ListerBinary returns the configured tool, or the first known tool name on
// PATH.
func (a *AppConfig) ListerBinary() string {
	if a.WeiduBinary != "" {
		return ExpandPath(a.WeiduBinary)
	}
	return platform.DetectListingTool()
}

// LogDir returns the folder the weidu.log of t is written to, defaulting to
// the game folder.
func (a *AppConfig) LogDir(t game.Target) string {
	dir, fallback := a.BGEELogDir, a.BGEEDir
	if t == game.BG2EE {
		dir, fallback = a.BG2EELogDir, a.BG2EEDir
	}
	if dir == "" {
		dir = fallback
	}
	return ExpandPath(dir)
}

// ScanConfig derives the configuration of one scan. Field values are checked
// here; folder existence is checked when the scan starts.
func (a *AppConfig) ScanConfig() (scan.Config, error) {
	if err := a.Validate(); err != nil {
		return scan.Config{}, err
	}
	mode, _ := a.GameMode() //nolint:errcheck // checked by Validate

	return scan.Config{
		ListerBinary: a.ListerBinary(),
		ModsRoot:     ExpandPath(a.ModsDir),
		BGEERoot:     ExpandPath(a.BGEEDir),
		BG2EERoot:    ExpandPath(a.BG2EEDir),
		Mode:         mode,
	}, nil
}
