// Package state keeps the last scan and the current selection in a SQLite
// database.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/scan"
	"github.com/AntoineGS/tp2scan/internal/selection"
	"github.com/AntoineGS/tp2scan/internal/tp2"
)

// ScanRecord describes one stored scan run.
type ScanRecord struct {
	ID        string
	StartedAt time.Time
	Mode      game.Mode
	Errors    map[game.Target]int
}

// Store manages the SQLite database of scans and selections.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path and runs migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent access
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close() //nolint:errcheck,gosec // best-effort cleanup on error path
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close() //nolint:errcheck,gosec // best-effort cleanup on error path
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveScan stores res as the current scan. The mods of the previous scan and
// every selection are dropped; the run itself stays in the history.
func (s *Store) SaveScan(ctx context.Context, res *scan.Result, startedAt time.Time) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning save: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	for _, stmt := range []string{`DELETE FROM selections`, `DELETE FROM components`, `DELETE FROM mods`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return "", fmt.Errorf("clearing previous scan: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO scans (id, started_at, mode, bgee_errors, bg2ee_errors)
		VALUES (?, ?, ?, ?, ?)
	`, id, formatTime(startedAt), res.Mode.String(), res.Errors[game.BGEE], res.Errors[game.BG2EE]); err != nil {
		return "", fmt.Errorf("saving scan: %w", err)
	}

	for _, t := range res.Mode.Targets() {
		for pos, mod := range res.Mods[t] {
			if err := insertMod(ctx, tx, id, t, pos, mod); err != nil {
				return "", err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing scan: %w", err)
	}

	return id, nil
}

func insertMod(ctx context.Context, tx *sql.Tx, scanID string, t game.Target, pos int, mod scan.Mod) error {
	r, err := tx.ExecContext(ctx, `
		INSERT INTO mods (scan_id, target, position, rel_path, abs_path)
		VALUES (?, ?, ?, ?, ?)
	`, scanID, t.String(), pos, mod.RelPath, mod.AbsPath)
	if err != nil {
		return fmt.Errorf("saving mod %s: %w", mod.RelPath, err)
	}
	modID, err := r.LastInsertId()
	if err != nil {
		return fmt.Errorf("saving mod %s: %w", mod.RelPath, err)
	}

	for cpos, c := range mod.Components {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO components (mod_id, position, comp_id, name, version, allowed, dependencies, conflicts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, modID, cpos, c.ID, c.Name, c.Version, strings.Join(c.Allowed, ","),
			joinRefs(c.Dependencies), joinRefs(c.Conflicts)); err != nil {
			return fmt.Errorf("saving component %s#%d: %w", mod.RelPath, c.ID, err)
		}
	}

	return nil
}

// LoadScan returns the current scan, or nil when none was saved.
func (s *Store) LoadScan(ctx context.Context) (*ScanRecord, *scan.Result, error) {
	rec, err := s.latestScan(ctx)
	if err != nil || rec == nil {
		return nil, nil, err
	}

	res := &scan.Result{Mode: rec.Mode, Mods: map[game.Target][]scan.Mod{}, Errors: rec.Errors}
	byID := map[int64]*scan.Mod{}
	var order []int64
	var targets []game.Target

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target, rel_path, abs_path FROM mods
		WHERE scan_id = ?
		ORDER BY target, position
	`, rec.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("querying mods: %w", err)
	}
	for rows.Next() {
		var id int64
		var target string
		var m scan.Mod
		if err := rows.Scan(&id, &target, &m.RelPath, &m.AbsPath); err != nil {
			_ = rows.Close() //nolint:errcheck,gosec // closing on error path
			return nil, nil, fmt.Errorf("scanning mod: %w", err)
		}
		t, err := game.ParseTarget(target)
		if err != nil {
			_ = rows.Close() //nolint:errcheck,gosec // closing on error path
			return nil, nil, fmt.Errorf("mod %s: %w", m.RelPath, err)
		}
		byID[id] = &m
		order = append(order, id)
		targets = append(targets, t)
	}
	if err := closeRows(rows); err != nil {
		return nil, nil, fmt.Errorf("querying mods: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT c.mod_id, c.comp_id, c.name, c.version, c.allowed, c.dependencies, c.conflicts
		FROM components c JOIN mods m ON m.id = c.mod_id
		WHERE m.scan_id = ?
		ORDER BY c.mod_id, c.position
	`, rec.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("querying components: %w", err)
	}
	for rows.Next() {
		var modID int64
		var c scan.Component
		var allowed, deps, conflicts string
		if err := rows.Scan(&modID, &c.ID, &c.Name, &c.Version, &allowed, &deps, &conflicts); err != nil {
			_ = rows.Close() //nolint:errcheck,gosec // closing on error path
			return nil, nil, fmt.Errorf("scanning component: %w", err)
		}
		if allowed != "" {
			c.Allowed = strings.Split(allowed, ",")
		}
		if c.Dependencies, err = splitRefs(deps); err == nil {
			c.Conflicts, err = splitRefs(conflicts)
		}
		if err != nil {
			_ = rows.Close() //nolint:errcheck,gosec // closing on error path
			return nil, nil, fmt.Errorf("component %d: %w", c.ID, err)
		}
		if m := byID[modID]; m != nil {
			m.Components = append(m.Components, c)
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, nil, fmt.Errorf("querying components: %w", err)
	}

	for i, id := range order {
		res.Mods[targets[i]] = append(res.Mods[targets[i]], *byID[id])
	}

	return rec, res, nil
}

func (s *Store) latestScan(ctx context.Context) (*ScanRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, mode, bgee_errors, bg2ee_errors
		FROM scans
		ORDER BY seq DESC
		LIMIT 1
	`)

	rec, err := scanRecordRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil means "not found", distinct from error
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest scan: %w", err)
	}

	return rec, nil
}

func scanRecordRow(scanFn func(...any) error) (*ScanRecord, error) {
	var rec ScanRecord
	var startedAt, mode string
	var bgee, bg2ee int

	if err := scanFn(&rec.ID, &startedAt, &mode, &bgee, &bg2ee); err != nil {
		return nil, err
	}

	var err error
	if rec.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if rec.Mode, err = game.ParseMode(mode); err != nil {
		return nil, err
	}
	rec.Errors = map[game.Target]int{}
	for _, t := range rec.Mode.Targets() {
		rec.Errors[t] = bgee
		if t == game.BG2EE {
			rec.Errors[t] = bg2ee
		}
	}

	return &rec, nil
}

// History returns the N most recent scan runs, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, mode, bgee_errors, bg2ee_errors
		FROM scans
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying scan history: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck,gosec // defer close is best-effort

	var records []ScanRecord
	for rows.Next() {
		rec, err := scanRecordRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning scan record: %w", err)
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// PruneHistory keeps only the N most recent scan runs.
func (s *Store) PruneHistory(ctx context.Context, keepN int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM scans
		WHERE seq NOT IN (
			SELECT seq FROM scans
			ORDER BY seq DESC
			LIMIT ?
		)
	`, keepN)
	if err != nil {
		return fmt.Errorf("pruning history: %w", err)
	}

	return nil
}

// SaveSelections replaces the stored selection of t.
func (s *Store) SaveSelections(ctx context.Context, t game.Target, selected []selection.Selected) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM selections WHERE target = ?`, t.String()); err != nil {
		return fmt.Errorf("clearing selections: %w", err)
	}
	for _, sel := range selected {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO selections (target, tp2, comp_id, seq) VALUES (?, ?, ?, ?)
		`, t.String(), sel.Key.TP2, sel.Key.ID, sel.Seq); err != nil {
			return fmt.Errorf("saving selection %s: %w", sel.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing selections: %w", err)
	}

	return nil
}

// LoadSelections returns the stored order stamps of t, as accepted by
// selection.Model.Restore.
func (s *Store) LoadSelections(ctx context.Context, t game.Target) (map[tp2.ComponentKey]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tp2, comp_id, seq FROM selections WHERE target = ?
	`, t.String())
	if err != nil {
		return nil, fmt.Errorf("querying selections: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck,gosec // defer close is best-effort

	stamps := map[tp2.ComponentKey]int{}
	for rows.Next() {
		var k tp2.ComponentKey
		var seq int
		if err := rows.Scan(&k.TP2, &k.ID, &seq); err != nil {
			return nil, fmt.Errorf("scanning selection: %w", err)
		}
		stamps[k] = seq
	}

	return stamps, rows.Err()
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close() //nolint:errcheck,gosec // closing on error path
		return err
	}
	return rows.Close()
}

func joinRefs(refs []tp2.Ref) string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return strings.Join(out, "\n")
}

func splitRefs(s string) ([]tp2.Ref, error) {
	if s == "" {
		return nil, nil
	}
	lines := strings.Split(s, "\n")
	refs := make([]tp2.Ref, 0, len(lines))
	for _, l := range lines {
		r, err := tp2.ParseRef(l)
		if err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, nil
}

// migrate runs schema migrations.
func (s *Store) migrate() error {
	currentVersion := s.getSchemaVersion()

	migrations := []func(*sql.Tx) error{
		migrateV1,
	}

	ctx := context.Background()
	for i := currentVersion; i < len(migrations); i++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", i+1, err)
		}

		if err := migrations[i](tx); err != nil {
			_ = tx.Rollback() //nolint:errcheck,gosec // rollback best-effort on migration failure
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}

		// Update schema version
		if _, err := tx.ExecContext(ctx, `DELETE FROM schema_version`); err != nil {
			_ = tx.Rollback() //nolint:errcheck,gosec // rollback best-effort
			return fmt.Errorf("updating schema version: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			_ = tx.Rollback() //nolint:errcheck,gosec // rollback best-effort
			return fmt.Errorf("inserting schema version: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", i+1, err)
		}
	}

	return nil
}

// getSchemaVersion returns the current schema version, or 0 if the schema_version table doesn't exist.
func (s *Store) getSchemaVersion() int {
	ctx := context.Background()
	var tableName string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&tableName)
	if err != nil {
		return 0
	}

	var version int
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version); err != nil {
		return 0
	}

	return version
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a timestamp string from SQLite, trying multiple formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}

// migrateV1 creates the initial schema.
func migrateV1(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scans (
			seq          INTEGER PRIMARY KEY AUTOINCREMENT,
			id           TEXT NOT NULL UNIQUE,
			started_at   TEXT NOT NULL,
			mode         TEXT NOT NULL,
			bgee_errors  INTEGER NOT NULL DEFAULT 0,
			bg2ee_errors INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS mods (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			scan_id  TEXT NOT NULL,
			target   TEXT NOT NULL,
			position INTEGER NOT NULL,
			rel_path TEXT NOT NULL,
			abs_path TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS components (
			mod_id       INTEGER NOT NULL,
			position     INTEGER NOT NULL,
			comp_id      INTEGER NOT NULL,
			name         TEXT NOT NULL,
			version      TEXT NOT NULL,
			allowed      TEXT NOT NULL,
			dependencies TEXT NOT NULL,
			conflicts    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_components_mod
			ON components(mod_id, position)`,
		`CREATE TABLE IF NOT EXISTS selections (
			target  TEXT NOT NULL,
			tp2     TEXT NOT NULL,
			comp_id INTEGER NOT NULL,
			seq     INTEGER NOT NULL,
			PRIMARY KEY (target, tp2, comp_id)
		)`,
	}

	ctx := context.Background()
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	return nil
}
