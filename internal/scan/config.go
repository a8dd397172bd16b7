package scan

import (
	"errors"
	"os"

	"github.com/AntoineGS/tp2scan/internal/game"
)

// Config is everything one scan needs. It is not modified once a scan starts.
type Config struct {
	ListerBinary string
	ModsRoot     string
	BGEERoot     string
	BG2EERoot    string
	Mode         game.Mode
}

// GameRoot returns the install folder used for target.
func (c Config) GameRoot(t game.Target) string {
	if t == game.BG2EE {
		return c.BG2EERoot
	}
	return c.BGEERoot
}

// Validate checks that the mods folder, the listing tool and the game folders
// the mode needs all exist. The first problem is returned as a *ConfigError.
func (c Config) Validate() error {
	if err := requireDir("mods_dir", c.ModsRoot); err != nil {
		return err
	}
	if c.ListerBinary == "" {
		return NewConfigError("weidu_binary", "", ErrNoBinary)
	}
	if _, err := os.Stat(c.ListerBinary); err != nil {
		return NewConfigError("weidu_binary", c.ListerBinary, statErr(err))
	}
	for _, t := range c.Mode.Targets() {
		field := "bgee_dir"
		if t == game.BG2EE {
			field = "bg2ee_dir"
		}
		if err := requireDir(field, c.GameRoot(t)); err != nil {
			return err
		}
	}
	return nil
}

func requireDir(field, path string) error {
	if path == "" {
		return NewConfigError(field, "", ErrNotFound)
	}
	info, err := os.Stat(path)
	if err != nil {
		return NewConfigError(field, path, statErr(err))
	}
	if !info.IsDir() {
		return NewConfigError(field, path, ErrNotDirectory)
	}
	return nil
}

func statErr(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
