// Package main provides the CLI entry point for tp2scan.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AntoineGS/tp2scan/internal/config"
)

var version = "dev"

var (
	configPath  string
	overrides   config.AppConfig
	verbose     bool
	targetFlag  string
	issuesOnly  bool
	groupFlag   bool
	allFlag     bool
	depsFlag    bool
	byPathFlag  bool
	dryRun      bool
	scanFirst   bool
	historySize int
	logger      = newSlogLogger(os.Stderr, false)
	logFile     *os.File
)

// keepScans is how many scan runs the history keeps.
const keepScans = 20

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "tp2scan",
		Version: version,
		Short:   "Scan WeiDU mods and plan an install selection",
		Long: `tp2scan scans a mods folder for WeiDU descriptors (.tp2), lists their
components for BGEE, BG2EE or both games of an EET install, and keeps a
selection whose missing dependencies and conflicts are checked on every change.

Configuration is stored in ~/.config/tp2scan/config.yaml; every setting can be
overridden with a flag. The last scan and the selection are kept in a SQLite
database next to it.

Run 'tp2scan scan' to scan, then 'tp2scan tui' to select interactively.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			w := os.Stderr
			// The interactive selector owns the terminal, so its logs go to a file
			if cmd.Name() == "tui" {
				logPath := config.TUILogPath()
				if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err == nil {
					f, err := os.Create(filepath.Clean(logPath))
					if err == nil {
						logFile = f
						w = f
						if verbose {
							fmt.Fprintf(os.Stderr, "Verbose logs: %s\n", logPath)
						}
					}
				}
			}
			logger = newSlogLogger(w, verbose)
			slog.SetDefault(logger)
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logFile != nil {
				_ = logFile.Close()
				logFile = nil
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Config file (default ~/.config/tp2scan/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	pf.StringVar(&overrides.ModsDir, "mods-dir", "", "Folder holding the mods to scan")
	pf.StringVar(&overrides.BGEEDir, "bgee-dir", "", "BGEE install folder")
	pf.StringVar(&overrides.BG2EEDir, "bg2ee-dir", "", "BG2EE install folder")
	pf.StringVar(&overrides.WeiduBinary, "weidu", "", "Listing tool executable")
	pf.StringVarP(&overrides.Mode, "mode", "m", "", "Game mode: bgee, bg2ee or eet")
	pf.StringVar(&overrides.StateDB, "state-db", "", "State database file")
	pf.StringVar(&overrides.Timeout, "timeout", "", "Timeout of one listing call, such as 3m")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the mods folder",
		Long: `Scan every .tp2 descriptor under the mods folder and store the components
found for each enabled game. A new scan replaces the stored selection.`,
		Args: cobra.NoArgs,
		RunE: runScan,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List scanned components",
		Long:  `List the scanned components of a game, grouped by mod, with their selection state.`,
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	listCmd.Flags().StringVarP(&targetFlag, "target", "t", "", "Game tab: bgee or bg2ee (default the active tab)")
	listCmd.Flags().BoolVarP(&issuesOnly, "issues", "i", false, "Only show components with a missing dependency or a conflict")

	selectCmd := &cobra.Command{
		Use:   "select <tp2#id|tp2>...",
		Short: "Check components",
		Long: `Check components by key, such as "mymod/setup-mymod.tp2#0". With --group the
arguments are descriptor paths, such as "mymod/setup-mymod.tp2", and every
available component of those mods is checked. "EET" names the bridge mod group.`,
		RunE: func(cmd *cobra.Command, args []string) error { return runSelect(cmd, args, true) },
	}
	deselectCmd := &cobra.Command{
		Use:   "deselect <tp2#id|tp2>...",
		Short: "Uncheck components",
		RunE:  func(cmd *cobra.Command, args []string) error { return runSelect(cmd, args, false) },
	}
	for _, c := range []*cobra.Command{selectCmd, deselectCmd} {
		c.Flags().StringVarP(&targetFlag, "target", "t", "", "Game tab: bgee or bg2ee (default the active tab)")
		c.Flags().BoolVarP(&groupFlag, "group", "g", false, "Arguments name mods instead of components")
		c.Flags().BoolVarP(&allFlag, "all", "a", false, "Apply to every component of the tab")
	}

	modeCmd := &cobra.Command{
		Use:   "mode <bgee|bg2ee|eet>",
		Short: "Switch the game mode",
		Long: `Switch the game mode and save it to the config. Selections on games the new
mode disables are cleared.`,
		Args: cobra.ExactArgs(1),
		RunE: runMode,
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Report missing dependencies and conflicts",
		Long:  `Report every checked component with a missing dependency or a conflict. Exits non-zero when any is found.`,
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	}

	orderCmd := &cobra.Command{
		Use:   "order",
		Short: "Show the install order",
		Args:  cobra.NoArgs,
		RunE:  runOrder,
	}
	orderCmd.Flags().StringVarP(&targetFlag, "target", "t", "", "Game tab: bgee or bg2ee (default the active tab)")
	orderCmd.Flags().BoolVar(&depsFlag, "deps", false, "Reorder so dependencies install first")
	orderCmd.Flags().BoolVar(&byPathFlag, "by-path", false, "Reorder by descriptor path, then component number")
	orderCmd.MarkFlagsMutuallyExclusive("deps", "by-path")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write a weidu.log per enabled game",
		Long: `Write the selection of every enabled game as a weidu.log into its log folder
(bgee_log_dir and bg2ee_log_dir, defaulting to the game folders).`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}
	exportCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the logs instead of writing them")

	diffCmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare the selection with the existing weidu.log",
		Args:  cobra.NoArgs,
		RunE:  runDiff,
	}
	diffCmd.Flags().StringVarP(&targetFlag, "target", "t", "", "Game tab: bgee or bg2ee (default the active tab)")

	showCmd := &cobra.Command{
		Use:   "show <tp2#id>",
		Short: "Show the details of a component",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	showCmd.Flags().StringVarP(&targetFlag, "target", "t", "", "Game tab: bgee or bg2ee (default the active tab)")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Select components interactively",
		Args:  cobra.NoArgs,
		RunE:  runTUI,
	}
	tuiCmd.Flags().BoolVar(&scanFirst, "scan", false, "Scan before showing the selector")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List past scans",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVarP(&historySize, "limit", "l", 10, "Number of scans to show")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration",
	}
	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show every setting",
			Args:  cobra.NoArgs,
			RunE:  runConfigShow,
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting",
			Args:  cobra.ExactArgs(1),
			RunE:  runConfigGet,
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one setting",
			Args:  cobra.ExactArgs(2),
			RunE:  runConfigSet,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE:  runConfigPath,
		},
	)

	rootCmd.AddCommand(scanCmd, listCmd, selectCmd, deselectCmd, modeCmd, checkCmd,
		orderCmd, exportCmd, diffCmd, showCmd, tuiCmd, historyCmd, configCmd)

	return rootCmd
}

// runWithCancellation runs fn with a context canceled on SIGINT or SIGTERM.
func runWithCancellation(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nOperation canceled by user")
			cancel()
		case <-ctx.Done():
		}
	}()

	return fn(ctx)
}

// configFile returns the config file commands read and write.
func configFile() string {
	if configPath != "" {
		return config.ExpandPath(configPath)
	}
	return config.AppConfigPath()
}
