package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"beaconsync/internal/ledger"
)

func openStore(t *testing.T) (*ledger.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "ledger.db")
	store, err := ledger.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestRecordAndLookup(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	missing, err := store.Lookup(ctx, "/media/take1.mp4")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected no entry, got %#v", missing)
	}

	entry := ledger.Entry{
		SourcePath: "/media/take1.mp4",
		OutputPath: "/media/take1_aligned.mp4",
		Status:     ledger.StatusAligned,
		Method:     "chirp",
		StartSec:   17.25,
		EndSec:     137.5,
		RunID:      "run-1",
	}
	if err := store.Record(ctx, entry); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := store.Lookup(ctx, entry.SourcePath)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected entry after Record")
	}
	if got.Status != ledger.StatusAligned || got.Method != "chirp" || got.OutputPath != entry.OutputPath {
		t.Fatalf("unexpected entry: %#v", got)
	}
	if got.StartSec != 17.25 || got.EndSec != 137.5 || got.DurationSec() != 120.25 {
		t.Fatalf("unexpected window: %#v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps, got %#v", got)
	}
}

func TestRecordOverwritesPreviousAttempt(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	source := "/media/take2.mov"

	if err := store.Record(ctx, ledger.Entry{
		SourcePath:   source,
		Status:       ledger.StatusFailed,
		ErrorKind:    "validation",
		ErrorMessage: "no beacon energy",
	}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	first, _ := store.Lookup(ctx, source)

	if err := store.Record(ctx, ledger.Entry{
		SourcePath: source,
		OutputPath: "/out/take2.mov",
		Status:     ledger.StatusAligned,
		Method:     "beacon",
		StartSec:   1,
		EndSec:     2,
	}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	second, _ := store.Lookup(ctx, source)

	if second.ID != first.ID {
		t.Fatalf("expected upsert to keep row id %d, got %d", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("expected created_at to be preserved")
	}
	if second.ErrorKind != "" || second.ErrorMessage != "" {
		t.Fatalf("expected error fields cleared, got %#v", second)
	}
	if second.Status != ledger.StatusAligned {
		t.Fatalf("expected aligned status, got %q", second.Status)
	}
}

func TestFailedEntryHasNoWindow(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	if err := store.Record(ctx, ledger.Entry{
		SourcePath: "/media/bad.mp4",
		Status:     ledger.StatusFailed,
		StartSec:   5,
		EndSec:     4,
	}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	got, _ := store.Lookup(ctx, "/media/bad.mp4")
	if got.StartSec != 0 || got.EndSec != 0 || got.DurationSec() != 0 {
		t.Fatalf("expected failed entry without window, got %#v", got)
	}
}

func TestRecordRejectsInvalidEntries(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	tests := []ledger.Entry{
		{Status: ledger.StatusAligned},
		{SourcePath: "/media/x.mp4", Status: "pending"},
	}
	for _, entry := range tests {
		if err := store.Record(ctx, entry); err == nil {
			t.Fatalf("expected error for %#v", entry)
		}
	}
}

func TestListFilterAndStats(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	entries := []ledger.Entry{
		{SourcePath: "/a.mp4", Status: ledger.StatusAligned, StartSec: 1, EndSec: 2},
		{SourcePath: "/b.mp4", Status: ledger.StatusFailed, ErrorKind: "external_tool"},
		{SourcePath: "/c.mp4", Status: ledger.StatusAligned, StartSec: 3, EndSec: 4},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record %s: %v", e.SourcePath, err)
		}
	}

	all, err := store.List(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].SourcePath != "/c.mp4" {
		t.Fatalf("expected newest first, got %d entries starting %q", len(all), all[0].SourcePath)
	}

	aligned, err := store.List(ctx, ledger.Filter{Status: ledger.StatusAligned, Limit: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(aligned) != 1 || aligned[0].SourcePath != "/c.mp4" {
		t.Fatalf("unexpected filtered list: %#v", aligned)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[ledger.StatusAligned] != 2 || stats[ledger.StatusFailed] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	removed, err := store.Forget(ctx, "/b.mp4")
	if err != nil || !removed {
		t.Fatalf("Forget = %v, %v", removed, err)
	}
	removed, err = store.Forget(ctx, "/b.mp4")
	if err != nil || removed {
		t.Fatalf("second Forget = %v, %v", removed, err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	store, path := openStore(t)
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	_, err = ledger.Open(context.Background(), path)
	if !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	store, path := openStore(t)
	ctx := context.Background()
	if err := store.Record(ctx, ledger.Entry{SourcePath: "/keep.mp4", Status: ledger.StatusAligned, StartSec: 0, EndSec: 1}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	store.Close()

	reopened, err := ledger.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Lookup(ctx, "/keep.mp4")
	if err != nil || got == nil {
		t.Fatalf("expected persisted entry, got %#v, %v", got, err)
	}
}
