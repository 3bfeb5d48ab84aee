package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"meetingintel/internal/services"
)

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 20

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Summary is the listing view of a stored analysis.
type Summary struct {
	ID              string    `json:"analysis_id"`
	CreatedAt       time.Time `json:"created_at"`
	SourceName      string    `json:"source_name"`
	Fingerprint     string    `json:"fingerprint"`
	DurationSeconds float64   `json:"duration_seconds"`
	Confidence      float64   `json:"confidence_score"`
	DegradedStages  int       `json:"degraded_stages"`
	ElapsedMS       int64     `json:"elapsed_ms"`
}

// Record is a stored analysis: its summary plus the full document JSON.
type Record struct {
	Summary
	Document json.RawMessage `json:"document"`
}

// Store manages analysis history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
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
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save inserts or replaces a record.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return services.Wrap(services.ErrValidation, "store", "save", "analysis id is required", nil)
	}
	if !json.Valid(rec.Document) {
		return services.Wrap(services.ErrValidation, "store", "save", "document is not valid JSON", nil)
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO analyses (
            id, created_at, source_name, fingerprint, duration_seconds,
            confidence, degraded_stages, elapsed_ms, document_json
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.CreatedAt.UTC().Format(timeLayout),
		rec.SourceName,
		rec.Fingerprint,
		rec.DurationSeconds,
		rec.Confidence,
		rec.DegradedStages,
		rec.ElapsedMS,
		string(rec.Document),
	)
	if err != nil {
		return fmt.Errorf("save analysis %s: %w", rec.ID, err)
	}
	return nil
}

// Get fetches a record by id. It returns nil when no record exists.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+summaryColumns+`, document_json FROM analyses WHERE id = ?`, id)
	var rec Record
	var document string
	err := scanSummary(row, &rec.Summary, &document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	rec.Document = json.RawMessage(document)
	return &rec, nil
}

// List returns the most recent analyses first.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+summaryColumns+` FROM analyses ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	out := make([]Summary, 0)
	for rows.Next() {
		var sum Summary
		if err := scanSummary(rows, &sum); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}

// Delete removes a record and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete analysis: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete analysis: %w", err)
	}
	return n > 0, nil
}

// Count returns the number of stored analyses.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM analyses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count analyses: %w", err)
	}
	return n, nil
}

const summaryColumns = `id, created_at, source_name, fingerprint, duration_seconds, confidence, degraded_stages, elapsed_ms`

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner, sum *Summary, extra ...any) error {
	var created string
	dest := append([]any{
		&sum.ID, &created, &sum.SourceName, &sum.Fingerprint, &sum.DurationSeconds,
		&sum.Confidence, &sum.DegradedStages, &sum.ElapsedMS,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	parsed, err := time.Parse(timeLayout, created)
	if err != nil {
		return fmt.Errorf("parse created_at %q: %w", created, err)
	}
	sum.CreatedAt = parsed
	return nil
}
