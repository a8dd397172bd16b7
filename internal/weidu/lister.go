// Package weidu runs the WeiDU listing tool and parses what it reports about
// a mod's components.
package weidu

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/AntoineGS/tp2scan/internal/tp2"
)

// DefaultTimeout bounds one listing call.
const DefaultTimeout = 180 * time.Second

// waitDelay bounds how long output pipes stay open after a killed call.
const waitDelay = 2 * time.Second

// Lister lists descriptor components with the external tool.
type Lister struct {
	logger  *slog.Logger
	Binary  string
	Timeout time.Duration
}

// NewLister creates a Lister for the tool at binary.
func NewLister(binary string) *Lister {
	return &Lister{
		logger:  slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})),
		Binary:  binary,
		Timeout: DefaultTimeout,
	}
}

// WithLogger returns a copy of the Lister that logs to logger.
func (l *Lister) WithLogger(logger *slog.Logger) *Lister {
	l2 := *l
	l2.logger = logger
	return &l2
}

// WithTimeout returns a copy of the Lister with a different call timeout.
func (l *Lister) WithTimeout(d time.Duration) *Lister {
	l2 := *l
	l2.Timeout = d
	return &l2
}

// List runs the tool for req and parses its merged output. Output that holds
// records is used even when the tool exits non-zero. A timeout, a failure
// without records or an empty listing is returned as a *ToolError.
func (l *Lister) List(ctx context.Context, req Request) ([]Component, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()

	req.TP2 = abs(req.TP2)
	cmd := BuildCommand(callCtx, l.Binary, req)
	cmd.WaitDelay = waitDelay

	l.logger.Debug("listing components",
		slog.String("tp2", req.TP2),
		slog.Int("language", req.Language),
		slog.String("use_lang", req.UseLang),
		slog.String("dir", req.WorkDir))

	start := time.Now()
	out, runErr := cmd.CombinedOutput()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return nil, NewToolError("list", req.TP2, req.Language, ErrTimeout)
	}

	comps := ParseListOutput(tp2.Decode(out))
	l.logger.Debug("listing finished",
		slog.String("tp2", req.TP2),
		slog.Int("components", len(comps)),
		slog.Duration("elapsed", time.Since(start)))

	if len(comps) == 0 {
		if runErr != nil {
			return nil, NewToolError("list", req.TP2, req.Language, errors.Join(ErrToolFailed, runErr))
		}
		return nil, NewToolError("list", req.TP2, req.Language, ErrNoComponents)
	}

	if runErr != nil {
		l.logger.Debug("listing tool exited with error, keeping parsed output",
			slog.String("tp2", req.TP2),
			slog.String("error", runErr.Error()))
	}

	return comps, nil
}
