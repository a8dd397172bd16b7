package state

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/scan"
	"github.com/AntoineGS/tp2scan/internal/selection"
	"github.com/AntoineGS/tp2scan/internal/tp2"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() }) //nolint:errcheck // cleanup is best-effort
	return store
}

func sampleResult() *scan.Result {
	return &scan.Result{
		Mode: game.ModeEET,
		Mods: map[game.Target][]scan.Mod{
			game.BGEE: {
				{
					RelPath: "alpha/alpha.tp2",
					AbsPath: "/mods/alpha/alpha.tp2",
					Components: []scan.Component{
						{ID: 0, Name: "Core", Version: "v2"},
						{
							ID:           10,
							Name:         "Extra",
							Allowed:      []string{"bgee", "eet"},
							Dependencies: []tp2.Ref{tp2.ComponentRef("alpha/alpha.tp2", 0, nil), tp2.FileRef("override/x.itm")},
							Conflicts:    []tp2.Ref{tp2.ComponentRef("beta/beta.tp2", 1, []string{"bg2ee"})},
						},
					},
				},
				{RelPath: "empty/empty.tp2", AbsPath: "/mods/empty/empty.tp2"},
			},
			game.BG2EE: {
				{
					RelPath: "beta/beta.tp2",
					AbsPath: "/mods/beta/beta.tp2",
					Components: []scan.Component{
						{ID: 1, Name: "Beta", Dependencies: []tp2.Ref{tp2.ResourceRef("sw1h01"), tp2.ProgRef("lua")}},
					},
				},
			},
		},
		Errors: map[game.Target]int{game.BGEE: 2, game.BG2EE: 0},
	}
}

func TestOpen_CreatesDBAndSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "state.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = store.Close() }() //nolint:errcheck // cleanup is best-effort

	// Should have schema_version table with version 1
	var version int
	ctx := context.Background()
	if err := store.db.QueryRowContext(ctx, `SELECT version FROM schema_version`).Scan(&version); err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if version != 1 {
		t.Errorf("schema version = %d, want 1", version)
	}
}

func TestSchemaMigration_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.SaveScan(context.Background(), sampleResult(), time.Now()); err != nil {
		t.Fatal(err)
	}
	_ = store.Close() //nolint:errcheck // cleanup is best-effort

	// Re-open should not re-run migrations
	store2, err := Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store2.Close() }() //nolint:errcheck // cleanup is best-effort

	if version := store2.getSchemaVersion(); version != 1 {
		t.Errorf("expected version 1 after re-open, got %d", version)
	}
	if _, res, err := store2.LoadScan(context.Background()); err != nil || res == nil {
		t.Errorf("LoadScan() after re-open = %v, %v", res, err)
	}
}

func TestLoadScan_NoRecord(t *testing.T) {
	store := newTestStore(t)

	rec, res, err := store.LoadScan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil || res != nil {
		t.Error("expected nil when no scan was saved")
	}
}

func TestSaveAndLoadScan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	want := sampleResult()
	started := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	id, err := store.SaveScan(ctx, want, started)
	if err != nil {
		t.Fatalf("SaveScan failed: %v", err)
	}

	rec, got, err := store.LoadScan(ctx)
	if err != nil {
		t.Fatalf("LoadScan failed: %v", err)
	}
	if rec.ID != id || !rec.StartedAt.Equal(started) || rec.Mode != game.ModeEET {
		t.Errorf("record = %+v", rec)
	}
	if got.Mode != want.Mode || !reflect.DeepEqual(got.Errors, want.Errors) {
		t.Errorf("mode/errors = %v %v, want %v %v", got.Mode, got.Errors, want.Mode, want.Errors)
	}
	if !reflect.DeepEqual(got.Mods, want.Mods) {
		t.Errorf("mods = %+v\nwant %+v", got.Mods, want.Mods)
	}
}

func TestSaveScanClearsSelections(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.SaveScan(ctx, sampleResult(), time.Now()); err != nil {
		t.Fatal(err)
	}
	k := tp2.ComponentKey{TP2: "alpha/alpha.tp2", ID: 10}
	if err := store.SaveSelections(ctx, game.BGEE, []selection.Selected{{Key: k, Seq: 3}}); err != nil {
		t.Fatal(err)
	}

	stamps, err := store.LoadSelections(ctx, game.BGEE)
	if err != nil {
		t.Fatal(err)
	}
	if len(stamps) != 1 || stamps[k] != 3 {
		t.Fatalf("stamps = %v, want %v:3", stamps, k)
	}

	next := &scan.Result{Mode: game.ModeBGEE, Mods: map[game.Target][]scan.Mod{}, Errors: map[game.Target]int{}}
	if _, err := store.SaveScan(ctx, next, time.Now()); err != nil {
		t.Fatal(err)
	}
	stamps, err = store.LoadSelections(ctx, game.BGEE)
	if err != nil {
		t.Fatal(err)
	}
	if len(stamps) != 0 {
		t.Errorf("a new scan should clear selections, got %v", stamps)
	}
	_, res, err := store.LoadScan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Mods) != 0 {
		t.Errorf("mods of the previous scan should be gone, got %v", res.Mods)
	}
}

func TestSaveSelectionsPerTarget(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := tp2.ComponentKey{TP2: "alpha/alpha.tp2", ID: 0}
	b := tp2.ComponentKey{TP2: "beta/beta.tp2", ID: 1}
	if err := store.SaveSelections(ctx, game.BGEE, []selection.Selected{{Key: a, Seq: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSelections(ctx, game.BG2EE, []selection.Selected{{Key: b, Seq: 2}}); err != nil {
		t.Fatal(err)
	}
	// Saving again replaces rather than appends.
	if err := store.SaveSelections(ctx, game.BGEE, []selection.Selected{{Key: a, Seq: 5}}); err != nil {
		t.Fatal(err)
	}

	bgee, err := store.LoadSelections(ctx, game.BGEE)
	if err != nil {
		t.Fatal(err)
	}
	bg2ee, err := store.LoadSelections(ctx, game.BG2EE)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(bgee, map[tp2.ComponentKey]int{a: 5}) {
		t.Errorf("bgee = %v", bgee)
	}
	if !reflect.DeepEqual(bg2ee, map[tp2.ComponentKey]int{b: 2}) {
		t.Errorf("bg2ee = %v", bg2ee)
	}
}

func TestHistoryAndPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for range 5 {
		id, err := store.SaveScan(ctx, sampleResult(), time.Now())
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	records, err := store.History(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 5 || records[0].ID != ids[4] {
		t.Fatalf("History() = %d records, newest %v", len(records), records)
	}
	if records[0].Errors[game.BGEE] != 2 {
		t.Errorf("errors = %v", records[0].Errors)
	}

	if err := store.PruneHistory(ctx, 2); err != nil {
		t.Fatal(err)
	}
	records, err = store.History(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records after prune, got %d", len(records))
	}
}
