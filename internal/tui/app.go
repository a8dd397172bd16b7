package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AntoineGS/tp2scan/internal/selection"
)

// Run starts the interactive selector over sel. When scanFirst is set a scan
// starts right away.
func Run(sel *selection.Model, opts Options, scanFirst bool) error {
	model := NewModel(sel, opts)

	if scanFirst {
		model = model.withInitialScan()
	}

	p := tea.NewProgram(model, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	m, ok := finalModel.(Model)
	if !ok {
		return fmt.Errorf("unexpected model type")
	}
	m.stopScan()

	printFinalSummary(m)

	return nil
}

func printFinalSummary(m Model) {
	for _, t := range m.sel.Mode().Targets() {
		c := m.snap.Counts[t]
		fmt.Printf("%s: %d selected", t.Label(), len(m.sel.InstallOrder(t)))
		if c.Missing > 0 || c.Conflicts > 0 {
			fmt.Printf(", %d missing, %d conflicts", c.Missing, c.Conflicts)
		}
		fmt.Println()
	}
}

// IsTerminal checks if stdout is a terminal
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}

	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
