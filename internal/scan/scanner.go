// Package scan discovers mod descriptors and lists their components for each
// enabled game, bounded to a small worker pool.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/weidu"
)

// MaxWorkers caps how many descriptors are scanned at once.
const MaxWorkers = 4

// ComponentLister lists the components of one descriptor. *weidu.Lister
// implements it.
type ComponentLister interface {
	List(ctx context.Context, req weidu.Request) ([]weidu.Component, error)
}

// State is the phase a Scanner is in.
type State int

// Scanner phases
const (
	StateIdle State = iota
	StateDiscovering
	StateScanning
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateScanning:
		return "scanning"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status is a snapshot of a Scanner. Target is only meaningful while
// scanning.
type Status struct {
	State  State
	Target game.Target
}

func (s Status) String() string {
	if s.State == StateScanning {
		return fmt.Sprintf("scanning %s", s.Target)
	}
	return s.State.String()
}

// Progress is reported once per finished descriptor.
type Progress struct {
	Target game.Target
	File   string
	Done   int
	Total  int
}

func (p Progress) String() string {
	return fmt.Sprintf("Scanning %d/%d: %s", p.Done, p.Total, p.File)
}

// flight guards against overlapping scans and tracks the current phase.
// Copies made by the With methods share it.
type flight struct {
	mu      sync.Mutex
	running bool
	status  Status
}

// Scanner runs scans. Only one scan per Scanner may run at a time.
type Scanner struct {
	logger   *slog.Logger
	lister   ComponentLister
	progress func(Progress)
	workers  int
	flight   *flight
}

// NewScanner creates a Scanner that lists components with lister.
func NewScanner(lister ComponentLister) *Scanner {
	return &Scanner{
		logger:  slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})),
		lister:  lister,
		workers: min(MaxWorkers, runtime.NumCPU()),
		flight:  &flight{},
	}
}

// WithLogger returns a copy of the Scanner that logs to logger.
func (s *Scanner) WithLogger(logger *slog.Logger) *Scanner {
	s2 := *s
	s2.logger = logger
	return &s2
}

// WithProgress returns a copy of the Scanner that reports progress to fn.
// fn is called from worker goroutines, one call at a time.
func (s *Scanner) WithProgress(fn func(Progress)) *Scanner {
	s2 := *s
	s2.progress = fn
	return &s2
}

// WithWorkers returns a copy of the Scanner with a different pool size.
func (s *Scanner) WithWorkers(n int) *Scanner {
	s2 := *s
	s2.workers = max(1, n)
	return &s2
}

// Status returns the current phase.
func (s *Scanner) Status() Status {
	s.flight.mu.Lock()
	defer s.flight.mu.Unlock()
	return s.flight.status
}

func (s *Scanner) setStatus(st State, t game.Target) {
	s.flight.mu.Lock()
	s.flight.status = Status{State: st, Target: t}
	s.flight.mu.Unlock()
}

func (s *Scanner) begin() bool {
	s.flight.mu.Lock()
	defer s.flight.mu.Unlock()
	if s.flight.running {
		return false
	}
	s.flight.running = true
	s.flight.status = Status{State: StateDiscovering}
	return true
}

func (s *Scanner) end(st State) {
	s.flight.mu.Lock()
	s.flight.running = false
	s.flight.status = Status{State: st}
	s.flight.mu.Unlock()
}

// Scan validates cfg, discovers descriptors and scans them once per target
// enabled by cfg.Mode. Targets are scanned one after the other. Descriptors
// that fail are counted in Result.Errors and left out. A *ConfigError is
// returned before any descriptor is read; ErrScanInProgress is returned when
// another scan is running. Cancelling ctx stops dispatching new descriptors
// and returns ctx.Err().
func (s *Scanner) Scan(ctx context.Context, cfg Config) (*Result, error) {
	if !s.begin() {
		return nil, ErrScanInProgress
	}
	final := StateFailed
	defer func() { s.end(final) }()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	files, err := Discover(cfg.ModsRoot, MaxDiscoverDepth)
	if err != nil {
		return nil, NewConfigError("mods_dir", cfg.ModsRoot, err)
	}
	s.logger.Debug("discovered descriptors", "count", len(files), "root", cfg.ModsRoot)

	targets := cfg.Mode.Targets()
	res := &Result{
		Mode:   cfg.Mode,
		Mods:   make(map[game.Target][]Mod, len(targets)),
		Errors: make(map[game.Target]int, len(targets)),
	}

	counter := &progressCounter{total: len(files) * len(targets), report: s.progress}
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.setStatus(StateScanning, t)

		mods, failed, err := s.scanTarget(ctx, cfg, t, files, counter)
		if err != nil {
			return nil, err
		}
		res.Mods[t] = mods
		res.Errors[t] = failed
		s.logger.Info("scanned target", "target", t, "mods", len(mods), "errors", failed)
	}

	final = StateDone
	return res, nil
}

type progressCounter struct {
	mu     sync.Mutex
	done   int
	total  int
	report func(Progress)
}

func (c *progressCounter) step(t game.Target, file string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done++
	if c.report != nil {
		c.report(Progress{Target: t, File: file, Done: c.done, Total: c.total})
	}
}

func (s *Scanner) scanTarget(ctx context.Context, cfg Config, t game.Target, files []string, counter *progressCounter) ([]Mod, int, error) {
	gameDir := cfg.GameRoot(t)
	useLang := weidu.DetectUseLang(gameDir)

	mods := make([]*Mod, len(files))
	errs := make([]error, len(files))

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i, file := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer counter.step(t, filepath.Base(file))
			mods[i], errs[i] = s.scanFile(ctx, fileTask{
				path:    file,
				rel:     NormalizeRel(cfg.ModsRoot, file),
				target:  t,
				gameDir: gameDir,
				useLang: useLang,
			})
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // tasks report through errs

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var out []Mod
	failed := 0
	for i, m := range mods {
		if errs[i] != nil {
			failed++
			s.logger.Warn("descriptor scan failed", "error", errs[i])
			continue
		}
		if m != nil {
			out = append(out, *m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].RelPath) < strings.ToLower(out[j].RelPath)
	})
	return out, failed, nil
}
