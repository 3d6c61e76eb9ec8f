package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// Fixed width so updated_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Open initializes or connects to the ledger database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record upserts the outcome for entry.SourcePath. CreatedAt is preserved
// across attempts; UpdatedAt is stamped now.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.SourcePath) == "" {
		return errors.New("ledger entry has no source path")
	}
	switch entry.Status {
	case StatusAligned, StatusFailed:
	default:
		return fmt.Errorf("ledger entry has unknown status %q", entry.Status)
	}

	now := time.Now().UTC().Format(timeLayout)
	var start, end any
	if entry.Status == StatusAligned {
		start, end = entry.StartSec, entry.EndSec
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO alignments (
            source_path, output_path, status, method, start_sec, end_sec,
            error_kind, error_message, run_id, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(source_path) DO UPDATE SET
            output_path = excluded.output_path,
            status = excluded.status,
            method = excluded.method,
            start_sec = excluded.start_sec,
            end_sec = excluded.end_sec,
            error_kind = excluded.error_kind,
            error_message = excluded.error_message,
            run_id = excluded.run_id,
            updated_at = excluded.updated_at`,
		entry.SourcePath,
		nullableString(entry.OutputPath),
		entry.Status,
		nullableString(entry.Method),
		start,
		end,
		nullableString(entry.ErrorKind),
		nullableString(entry.ErrorMessage),
		nullableString(entry.RunID),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("record alignment: %w", err)
	}
	return nil
}

// Lookup returns the entry for sourcePath, or nil when none exists.
func (s *Store) Lookup(ctx context.Context, sourcePath string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM alignments WHERE source_path = ?`, sourcePath)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup alignment: %w", err)
	}
	return entry, nil
}

// List returns entries, most recently updated first.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM alignments`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY updated_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alignments: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Stats returns a count of entries grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM alignments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Forget removes the entry for sourcePath.
func (s *Store) Forget(ctx context.Context, sourcePath string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alignments WHERE source_path = ?`, sourcePath)
	if err != nil {
		return false, fmt.Errorf("delete alignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

const entryColumns = "id, source_path, output_path, status, method, start_sec, end_sec, error_kind, error_message, run_id, created_at, updated_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry        Entry
		outputPath   sql.NullString
		status       string
		method       sql.NullString
		startSec     sql.NullFloat64
		endSec       sql.NullFloat64
		errorKind    sql.NullString
		errorMessage sql.NullString
		runID        sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.SourcePath,
		&outputPath,
		&status,
		&method,
		&startSec,
		&endSec,
		&errorKind,
		&errorMessage,
		&runID,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	entry.OutputPath = outputPath.String
	entry.Status = Status(status)
	entry.Method = method.String
	entry.StartSec = startSec.Float64
	entry.EndSec = endSec.Float64
	entry.ErrorKind = errorKind.String
	entry.ErrorMessage = errorMessage.String
	entry.RunID = runID.String
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		entry.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		entry.UpdatedAt = updated
	}
	return &entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
