// Package history records transformation outcomes in an embedded SQLite
// database. Recording is advisory: the HTTP layer writes entries after the
// pipeline finishes, and a write failure never affects the pipeline result.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrEntryNotFound is returned when an entry cannot be found by ID.
var ErrEntryNotFound = errors.New("history entry not found")

// Entry is one recorded transformation outcome.
type Entry struct {
	ID        string
	Operation string
	SourceURL string
	ResultURL string
	Status    string // "completed" or "failed"
	Warning   string
	Error     string
	Elapsed   time.Duration
	CreatedAt time.Time
}

// Repository is the port for edit history persistence.
type Repository interface {
	Record(ctx context.Context, e *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, limit int) ([]*Entry, error)
}

// SQLiteRepository implements Repository on an embedded SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and ensures
// the schema exists.
func Open(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS edits (
			id TEXT PRIMARY KEY,
			operation TEXT NOT NULL,
			source_url TEXT NOT NULL,
			result_url TEXT,
			status TEXT NOT NULL,
			warning TEXT,
			error TEXT,
			elapsed_ms INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Record inserts an entry, assigning an ID and timestamp when absent.
func (r *SQLiteRepository) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO edits (id, operation, source_url, result_url, status, warning, error, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Operation, e.SourceURL, e.ResultURL, e.Status, e.Warning, e.Error,
		e.Elapsed.Milliseconds(), e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record edit: %w", err)
	}
	return nil
}

// Get retrieves an entry by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, operation, source_url, result_url, status, warning, error, elapsed_ms, created_at
		FROM edits WHERE id = ?
	`, id)
	return scanEntry(row.Scan)
}

// List returns the most recent entries, newest first.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, operation, source_url, result_url, status, warning, error, elapsed_ms, created_at
		FROM edits ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list edits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list edits: %w", err)
	}
	return entries, nil
}

// scanEntry reads one row through the given scan function.
func scanEntry(scan func(...any) error) (*Entry, error) {
	var e Entry
	var resultURL, warning, errMsg sql.NullString
	var elapsedMs int64
	var createdAt string

	err := scan(&e.ID, &e.Operation, &e.SourceURL, &resultURL, &e.Status,
		&warning, &errMsg, &elapsedMs, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan edit: %w", err)
	}

	e.ResultURL = resultURL.String
	e.Warning = warning.String
	e.Error = errMsg.String
	e.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}
