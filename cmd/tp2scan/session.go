package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AntoineGS/tp2scan/internal/config"
	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/scan"
	"github.com/AntoineGS/tp2scan/internal/selection"
	"github.com/AntoineGS/tp2scan/internal/state"
	"github.com/AntoineGS/tp2scan/internal/tp2"
	"github.com/AntoineGS/tp2scan/internal/weidu"
)

var errLogDirNotSet = errors.New("not set, and no game folder to default to")

// session is the configuration, stored scan and selection one command
// works on.
type session struct {
	app     *config.AppConfig
	scanCfg scan.Config
	store   *state.Store
	sel     *selection.Model
	scanned bool
	// scanMode is the mode the stored scan ran with.
	scanMode game.Mode
	logger   *slog.Logger
}

// loadAppConfig reads the config file and applies the command-line
// overrides.
func loadAppConfig() (*config.AppConfig, error) {
	app, err := config.LoadAppConfigFrom(configFile())
	if err != nil {
		return nil, err
	}
	app.Merge(&overrides)

	return app, nil
}

// openSession loads the config, opens the state database and restores the
// last scan with its selection.
func openSession(ctx context.Context, logger *slog.Logger) (*session, error) {
	app, err := loadAppConfig()
	if err != nil {
		return nil, err
	}
	scanCfg, err := app.ScanConfig()
	if err != nil {
		return nil, err
	}

	store, err := state.Open(app.StateDBPath())
	if err != nil {
		return nil, err
	}

	s := &session{
		app:     app,
		scanCfg: scanCfg,
		store:   store,
		sel:     selection.New(selection.NewValidator(scanCfg)),
		logger:  logger,
	}

	_, res, err := store.LoadScan(ctx)
	if err != nil {
		_ = store.Close() //nolint:errcheck // best-effort cleanup on error path
		return nil, err
	}
	if res != nil {
		s.scanned = true
		s.scanMode = res.Mode
		s.sel.Load(res)
		if _, err := s.sel.Batch(func(m *selection.Model) error {
			for _, t := range res.Mode.Targets() {
				stamps, err := store.LoadSelections(ctx, t)
				if err != nil {
					return err
				}
				m.Restore(t, stamps)
			}
			if res.Mode != scanCfg.Mode {
				m.ApplyGameMode(scanCfg.Mode)
			}
			return nil
		}); err != nil {
			_ = store.Close() //nolint:errcheck // best-effort cleanup on error path
			return nil, err
		}
	}

	return s, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// requireScan fails when nothing was scanned yet.
func (s *session) requireScan() error {
	if !s.scanned {
		return fmt.Errorf("no scan stored yet; run 'tp2scan scan' first")
	}
	return nil
}

// saveSelections stores the selection of every game.
func (s *session) saveSelections(ctx context.Context) error {
	for _, t := range game.Targets {
		if err := s.store.SaveSelections(ctx, t, s.sel.InstallOrder(t)); err != nil {
			return err
		}
	}
	return nil
}

// newScanner builds the scanner for the configured listing tool.
func (s *session) newScanner() (*scan.Scanner, error) {
	timeout, err := s.app.ListTimeout()
	if err != nil {
		return nil, err
	}
	lister := weidu.NewLister(s.scanCfg.ListerBinary).
		WithLogger(s.logger).
		WithTimeout(timeout)

	return scan.NewScanner(lister).WithLogger(s.logger), nil
}

// target resolves the --target flag, defaulting to the active tab.
func (s *session) target(flag string) (game.Target, error) {
	if flag == "" {
		return s.sel.Active(), nil
	}
	t, err := game.ParseTarget(flag)
	if err != nil {
		return 0, err
	}
	if err := s.sel.SetActive(t); err != nil {
		return 0, err
	}
	return t, nil
}

// logDir returns the weidu.log folder of t.
func (s *session) logDir(t game.Target) (string, error) {
	dir := s.app.LogDir(t)
	if dir == "" {
		return "", scan.NewConfigError(t.String()+"_log_dir", "", errLogDirNotSet)
	}
	return dir, nil
}

// parseKey parses "path/mod.tp2#id".
func parseKey(arg string) (tp2.ComponentKey, error) {
	r, err := tp2.ParseRef(arg)
	if err != nil {
		return tp2.ComponentKey{}, err
	}
	if r.Kind != tp2.RefComponent {
		return tp2.ComponentKey{}, fmt.Errorf("%w: %q is not a component", tp2.ErrInvalidRef, arg)
	}
	return r.Key(), nil
}

// groupKey converts a descriptor path, or "EET", to its group key.
func groupKey(arg string) string {
	if strings.EqualFold(arg, scan.BridgeGroup) {
		return scan.BridgeGroup
	}
	key, _ := scan.GroupOf(arg)
	return key
}
