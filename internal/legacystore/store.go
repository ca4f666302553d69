// Package legacystore talks to the pre-existing PostgreSQL pattern table
// that predates the unified pattern repository (C1/C2). It is kept
// around, and adapted rather than deleted, because real workspaces still
// have data sitting in it; internal/patternadapter bridges it onto the
// unified internal/patterns.Repository surface (§4.8).
package legacystore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/driftco/drift/internal/config"
)

// ErrNotFound is returned when a legacy row does not exist.
var ErrNotFound = errors.New("legacystore: row not found")

// ErrInvalidStateTransition is the legacy table's own status-transition
// guard, predating the unified repository's ErrInvalidStatusTransition.
// It is a distinct sentinel because the legacy schema's state machine
// names its states differently ("new"/"confirmed"/"dismissed" rather
// than "discovered"/"approved"/"ignored") and patternadapter is
// responsible for translating between the two vocabularies.
var ErrInvalidStateTransition = errors.New("legacystore: invalid state transition")

// Status is the closed set of status values the legacy schema uses.
type Status string

const (
	StatusNew       Status = "new"
	StatusConfirmed Status = "confirmed"
	StatusDismissed Status = "dismissed"
)

// legalTransitions mirrors the legacy table's CHECK-constraint era state
// machine: "new" may go either way, but a "confirmed"/"dismissed" row is
// terminal, exactly like the unified repository's own state machine
// before its Revert operation was added.
var legalTransitions = map[Status]map[Status]bool{
	StatusNew: {StatusConfirmed: true, StatusDismissed: true},
}

// Row is one legacy pattern event, named patternId/category to match the
// column names the legacy schema still uses on disk.
type Row struct {
	PatternID  string
	Category   string
	Status     Status
	Confidence float64
	Metadata   map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store wraps the legacy `pattern_events` table, following the teacher's
// repositories.GenomeRepository shape: a thin *sql.DB wrapper with one
// method per query, explicit column lists, and sql.ErrNoRows translated
// to a package sentinel.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens a connection pool against the legacy schema using the same
// lib/pq DSN construction the teacher's db.New uses.
func New(cfg config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("legacystore: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("legacystore: ping: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// NewWithDB wraps an already-open pool instead of opening one from a DSN.
// Nothing in this module calls it; patternadapter's tests use an in-memory
// fake of the store interface instead.
func NewWithDB(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Close closes the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// Insert creates a new legacy row in the "new" state.
func (s *Store) Insert(ctx context.Context, patternID, category string, confidence float64, metadata map[string]any) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("legacystore: marshal metadata: %w", err)
	}
	now := time.Now().UTC()
	query := `
		INSERT INTO pattern_events (pattern_id, category, status, confidence, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(ctx, query, patternID, category, StatusNew, confidence, metaJSON, now, now)
	if err != nil {
		return fmt.Errorf("legacystore: insert: %w", err)
	}
	return nil
}

// GetByPatternID retrieves one legacy row.
func (s *Store) GetByPatternID(ctx context.Context, patternID string) (Row, error) {
	var row Row
	var metaJSON []byte
	query := `
		SELECT pattern_id, category, status, confidence, metadata, created_at, updated_at
		FROM pattern_events
		WHERE pattern_id = $1
	`
	err := s.db.QueryRowContext(ctx, query, patternID).
		Scan(&row.PatternID, &row.Category, &row.Status, &row.Confidence, &metaJSON, &row.CreatedAt, &row.UpdatedAt)
	if err == sql.ErrNoRows {
		return Row{}, ErrNotFound
	}
	if err != nil {
		return Row{}, fmt.Errorf("legacystore: get by pattern id: %w", err)
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &row.Metadata); err != nil {
			return Row{}, fmt.Errorf("legacystore: unmarshal metadata: %w", err)
		}
	}
	return row, nil
}

// ListAll retrieves every legacy row, oldest first, matching the
// teacher's ListByLabel pagination-free listing style for small tables.
func (s *Store) ListAll(ctx context.Context) ([]Row, error) {
	query := `
		SELECT pattern_id, category, status, confidence, metadata, created_at, updated_at
		FROM pattern_events
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("legacystore: list all: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var metaJSON []byte
		if err := rows.Scan(&row.PatternID, &row.Category, &row.Status, &row.Confidence, &metaJSON, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("legacystore: scan: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &row.Metadata); err != nil {
				return nil, fmt.Errorf("legacystore: unmarshal metadata: %w", err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a row's status, enforcing the legacy schema's
// own (narrower) state machine and returning ErrInvalidStateTransition
// rather than silently accepting an illegal transition the way a bare
// UPDATE statement would.
func (s *Store) UpdateStatus(ctx context.Context, patternID string, to Status) error {
	current, err := s.GetByPatternID(ctx, patternID)
	if err != nil {
		return err
	}
	if !legalTransitions[current.Status][to] {
		return ErrInvalidStateTransition
	}
	query := `UPDATE pattern_events SET status = $1, updated_at = $2 WHERE pattern_id = $3`
	result, err := s.db.ExecContext(ctx, query, to, time.Now().UTC(), patternID)
	if err != nil {
		return fmt.Errorf("legacystore: update status: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of legacy rows.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pattern_events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("legacystore: count: %w", err)
	}
	return count, nil
}
