// Package history persists the outcome of every completed pipeline pass in
// SQLite. The ledger is append-only: the pipeline never reads it to make
// decisions, it exists for the status CLI and for operators auditing what
// happened to a file after it left the watch tree.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"shutterpost/internal/config"
)

// Outcome values recorded for a pass.
const (
	OutcomePublished = "published"
	OutcomeFailed    = "failed"
)

// Record is one ledger row.
type Record struct {
	ID           int64
	FileName     string
	Category     string
	Outcome      string
	PostID       string
	Caption      string
	ErrorKind    string
	ErrorMessage string
	FileSize     int64
	Duration     time.Duration
	CreatedAt    time.Time
}

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Append inserts a record, filling in its ID and CreatedAt.
func (s *Store) Append(ctx context.Context, rec *Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO uploads (
            file_name, category, outcome, post_id, caption,
            error_kind, error_message, file_size, duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FileName,
		rec.Category,
		rec.Outcome,
		nullableString(rec.PostID),
		nullableString(rec.Caption),
		nullableString(rec.ErrorKind),
		nullableString(rec.ErrorMessage),
		rec.FileSize,
		rec.Duration.Milliseconds(),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert upload record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, file_name, category, outcome, post_id, caption,
            error_kind, error_message, file_size, duration_ms, created_at
         FROM uploads ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent uploads: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats summarizes ledger totals.
type Stats struct {
	Published int
	Failed    int
}

// Summary counts outcomes across the whole ledger.
func (s *Store) Summary(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT outcome, COUNT(1) FROM uploads GROUP BY outcome")
	if err != nil {
		return Stats{}, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return Stats{}, fmt.Errorf("scan summary row: %w", err)
		}
		switch outcome {
		case OutcomePublished:
			stats.Published = count
		case OutcomeFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

// PublishedSince counts uploads published at or after the given instant.
func (s *Store) PublishedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		"SELECT COUNT(1) FROM uploads WHERE outcome = ? AND datetime(created_at) >= datetime(?)",
		OutcomePublished,
		since.UTC().Format(time.RFC3339Nano),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("query published since: %w", err)
	}
	return count, nil
}

// CategoryCounts returns published-upload counts per category.
func (s *Store) CategoryCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"SELECT category, COUNT(1) FROM uploads WHERE outcome = ? GROUP BY category",
		OutcomePublished,
	)
	if err != nil {
		return nil, fmt.Errorf("query category counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		counts[category] = count
	}
	return counts, rows.Err()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec        Record
		postID     sql.NullString
		caption    sql.NullString
		errKind    sql.NullString
		errMessage sql.NullString
		durationMS int64
		createdAt  string
	)
	if err := scanner.Scan(
		&rec.ID, &rec.FileName, &rec.Category, &rec.Outcome, &postID, &caption,
		&errKind, &errMessage, &rec.FileSize, &durationMS, &createdAt,
	); err != nil {
		return Record{}, fmt.Errorf("scan upload record: %w", err)
	}
	rec.PostID = postID.String
	rec.Caption = caption.String
	rec.ErrorKind = errKind.String
	rec.ErrorMessage = errMessage.String
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = ts
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
