package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AntoineGS/tp2scan/internal/config"
	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/report"
	"github.com/AntoineGS/tp2scan/internal/scan"
	"github.com/AntoineGS/tp2scan/internal/selection"
	"github.com/AntoineGS/tp2scan/internal/tui"
	"github.com/AntoineGS/tp2scan/internal/weidulog"
)

// errIssuesFound makes check exit non-zero.
var errIssuesFound = errors.New("selection has issues")

func runScan(cmd *cobra.Command, _ []string) error {
	return runWithCancellation(func(ctx context.Context) error {
		s, err := openSession(ctx, logger)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck // best-effort cleanup

		scanner, err := s.newScanner()
		if err != nil {
			return err
		}
		errOut := cmd.ErrOrStderr()
		scanner = scanner.WithProgress(func(p scan.Progress) {
			logger.Debug("scanned", "target", p.Target, "file", p.File, "done", p.Done, "total", p.Total)
			if tui.IsTerminal() {
				fmt.Fprintf(errOut, "\r\033[K%s", p)
			}
		})

		startedAt := time.Now()
		res, err := scanner.Scan(ctx, s.scanCfg)
		if tui.IsTerminal() {
			fmt.Fprintln(errOut)
		}
		if err != nil {
			return err
		}

		if _, err := s.store.SaveScan(ctx, res, startedAt); err != nil {
			return err
		}
		if err := s.store.PruneHistory(ctx, keepScans); err != nil {
			logger.Warn("pruning scan history", "error", err)
		}

		printScanSummary(cmd.OutOrStdout(), res)
		return nil
	})
}

func printScanSummary(w io.Writer, res *scan.Result) {
	for _, t := range res.Mode.Targets() {
		mods := res.Mods[t]
		comps := 0
		for _, m := range mods {
			comps += len(m.Components)
		}
		fmt.Fprintf(w, "%s: %d mod files, %d components, %d errors\n", t.Label(), len(mods), comps, res.Errors[t])
	}
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	s, err := openSession(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck // best-effort cleanup

	if err := s.requireScan(); err != nil {
		return err
	}
	t, err := s.target(targetFlag)
	if err != nil {
		return err
	}

	listTab(cmd.OutOrStdout(), s.sel, t, issuesOnly)
	return nil
}

// listTab prints the groups of t with one line per component.
func listTab(w io.Writer, sel *selection.Model, t game.Target, onlyIssues bool) {
	tab := sel.Tab(t)
	snap := sel.Snapshot()
	order := make(map[string]int)
	for i, s := range sel.InstallOrder(t) {
		order[s.Key.String()] = i + 1
	}

	fmt.Fprintf(w, "%s\n", t.Label())
	for _, g := range tab.Groups() {
		var lines []string
		for _, k := range g.Members {
			it, _ := tab.Item(k)
			issue := snap.Issue(t, k)
			if onlyIssues && issue == selection.IssueOK {
				continue
			}
			box := tui.CheckboxUnchecked
			switch {
			case tab.Entry(k).Checked:
				box = tui.CheckboxChecked
			case !tab.Allowed(k):
				box = tui.CheckboxDisabled
			}
			line := fmt.Sprintf("  %s #%d %s", box, it.ID, it.Name)
			if it.Version != "" {
				line += " " + it.Version
			}
			if n, ok := order[k.String()]; ok {
				line += fmt.Sprintf("  [%d]", n)
			}
			if issue != selection.IssueOK {
				line += "  (" + issue.String() + ")"
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", groupBox(tab.GroupState(g.Key)), g.Label)
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	}

	c := snap.Counts[t]
	fmt.Fprintf(w, "Selected: %d  Missing: %d  Conflicts: %d\n", len(sel.InstallOrder(t)), c.Missing, c.Conflicts)
}

func groupBox(state selection.Tri) string {
	switch state {
	case selection.Checked:
		return tui.CheckboxChecked
	case selection.Indeterminate:
		return tui.CheckboxIndeterminate
	default:
		return tui.CheckboxUnchecked
	}
}

func runSelect(cmd *cobra.Command, args []string, checked bool) error {
	if !allFlag && len(args) == 0 {
		return fmt.Errorf("nothing to change: name components or use --all")
	}

	ctx := context.Background()
	s, err := openSession(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck // best-effort cleanup

	if err := s.requireScan(); err != nil {
		return err
	}
	t, err := s.target(targetFlag)
	if err != nil {
		return err
	}

	_, err = s.sel.Batch(func(m *selection.Model) error {
		if allFlag {
			if checked {
				m.SelectAll()
			} else {
				m.DeselectAll()
			}
			return nil
		}
		for _, arg := range args {
			if groupFlag {
				if _, err := m.ToggleGroup(groupKey(arg), checked); err != nil {
					return err
				}
				continue
			}
			key, err := parseKey(arg)
			if err != nil {
				return err
			}
			if checked && !m.Tab(t).Allowed(key) {
				if _, ok := m.Tab(t).Item(key); ok {
					return fmt.Errorf("%s is not available for %s", key, t.Label())
				}
			}
			if _, err := m.Toggle(key, checked); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.saveSelections(ctx); err != nil {
		return err
	}

	c := s.sel.Snapshot().Counts[t]
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d selected, %d missing, %d conflicts\n",
		t.Label(), len(s.sel.InstallOrder(t)), c.Missing, c.Conflicts)
	return nil
}

func runMode(cmd *cobra.Command, args []string) error {
	mode, err := game.ParseMode(args[0])
	if err != nil {
		return err
	}

	path := configFile()
	app, err := config.LoadAppConfigFrom(path)
	if err != nil {
		return err
	}
	app.Mode = mode.String()
	if err := config.SaveAppConfigTo(path, app); err != nil {
		return err
	}
	overrides.Mode = ""

	ctx := context.Background()
	s, err := openSession(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck // best-effort cleanup

	if s.scanned {
		if err := s.saveSelections(ctx); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Mode set to %s\n", mode)
	if s.scanned && s.scanMode != mode {
		fmt.Fprintln(cmd.OutOrStdout(), "Run 'tp2scan scan' to list the components of the new games.")
	}
	return nil
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	s, err := openSession(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck // best-effort cleanup

	if err := s.requireScan(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	snap := s.sel.Snapshot()
	found := false
	for _, t := range s.sel.Mode().Targets() {
		for _, sel := range s.sel.InstallOrder(t) {
			issue := snap.Issue(t, sel.Key)
			if issue == selection.IssueOK {
				continue
			}
			found = true
			fmt.Fprintf(w, "%s: %s #%d %s: %s\n", t.Label(), sel.TP2, sel.ID, sel.Name, issue)
		}
	}

	total := snap.Total()
	fmt.Fprintf(w, "Missing: %d  Conflicts: %d\n", total.Missing, total.Conflicts)
	if found {
		return errIssuesFound
	}
	return nil
}

func runOrder(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	s, err := openSession(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck // best-effort cleanup

	if err := s.requireScan(); err != nil {
		return err
	}
	t, err := s.target(targetFlag)
	if err != nil {
		return err
	}

	switch {
	case depsFlag:
		if _, err := s.sel.SortByDependencies(t); err != nil {
			return err
		}
	case byPathFlag:
		s.sel.SortByPath(t)
	}
	if depsFlag || byPathFlag {
		if err := s.saveSelections(ctx); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	for i, sel := range s.sel.InstallOrder(t) {
		fmt.Fprintf(w, "%3d. %s #%d %s\n", i+1, sel.TP2, sel.ID, sel.Name)
	}
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	s, err := openSession(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck // best-effort cleanup

	if err := s.requireScan(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, t := range s.sel.Mode().Targets() {
		entries := weidulog.FromSelection(s.sel.InstallOrder(t))
		if dryRun {
			fmt.Fprintf(w, "# %s\n%s", t.Label(), strings.ReplaceAll(weidulog.Format(entries), "\r\n", "\n"))
			continue
		}

		dir, err := s.logDir(t)
		if err != nil {
			return err
		}
		path, err := weidulog.WriteFile(dir, entries)
		if errors.Is(err, weidulog.ErrEmptyLog) {
			fmt.Fprintf(w, "%s: nothing selected, skipped\n", t.Label())
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: wrote %d components to %s\n", t.Label(), len(entries), path)
	}
	return nil
}

func runDiff(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	s, err := openSession(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck // best-effort cleanup

	if err := s.requireScan(); err != nil {
		return err
	}
	t, err := s.target(targetFlag)
	if err != nil {
		return err
	}

	dir, err := s.logDir(t)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, weidulog.FileName)
	existing, err := weidulog.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	planned := weidulog.FromSelection(s.sel.InstallOrder(t))

	diff := weidulog.Diff(weidulog.Format(existing), weidulog.Format(planned))
	w := cmd.OutOrStdout()
	if diff == "" {
		fmt.Fprintf(w, "%s: %s matches the selection\n", t.Label(), path)
		return nil
	}
	fmt.Fprintf(w, "--- %s\n+++ selection\n%s", path, diff)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	s, err := openSession(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck // best-effort cleanup

	if err := s.requireScan(); err != nil {
		return err
	}
	t, err := s.target(targetFlag)
	if err != nil {
		return err
	}
	key, err := parseKey(args[0])
	if err != nil {
		return err
	}

	d, err := report.NewDetails(s.sel, t, key)
	if err != nil {
		return err
	}
	return report.Render(cmd.OutOrStdout(), d)
}

func runTUI(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	s, err := openSession(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck // best-effort cleanup

	if !s.scanned {
		s.sel.ApplyGameMode(s.scanCfg.Mode)
	}
	scanner, err := s.newScanner()
	if err != nil {
		return err
	}

	return tui.Run(s.sel, tui.Options{
		Scanner: scanner,
		Config:  s.scanCfg,
		Store:   s.store,
		Logger:  logger,
	}, scanFirst || !s.scanned)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	s, err := openSession(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck // best-effort cleanup

	records, err := s.store.History(ctx, historySize)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(w, "No scans yet.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tMODE\tBGEE ERRORS\tBG2EE ERRORS\tID")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Mode,
			r.Errors[game.BGEE], r.Errors[game.BG2EE], r.ID)
	}
	return tw.Flush()
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	app, err := loadAppConfig()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, f := range app.Fields() {
		value := f.Value
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t# %s\n", f.Key, value, f.Help)
	}
	return tw.Flush()
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	app, err := loadAppConfig()
	if err != nil {
		return err
	}
	v, err := app.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), v)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path := configFile()
	app, err := config.LoadAppConfigFrom(path)
	if err != nil {
		return err
	}
	if err := app.Set(args[0], args[1]); err != nil {
		return err
	}
	if err := app.Validate(); err != nil {
		return err
	}
	if err := config.SaveAppConfigTo(path, app); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), configFile())
	return nil
}
