// Package history keeps a local sqlite ledger of service runs and the
// project hours each toggl run collected.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/personalweb03/services/internal/model"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// timeLayout is fixed width so stored timestamps sort chronologically as
// text. Times are stored in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one service execution.
type Run struct {
	ID         string
	Service    string
	StartedAt  time.Time
	FinishedAt time.Time
	ExitCode   int
	Error      string
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Store is the ledger database.
type Store struct {
	conn   *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// sqlite serialises writers; one connection avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn, logger: logger}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("History database ready", zap.String("path", path))
	return s, nil
}

func (s *Store) migrate() error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return goose.Up(s.conn, "migrations")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// RecordRun inserts a finished run.
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO runs (id, service, started_at, finished_at, exit_code, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.Service, r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout), r.ExitCode, r.Error)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", r.ID, err)
	}
	return nil
}

// RecordProjectHours stores the rows collected by a run in one transaction.
func (s *Store) RecordProjectHours(ctx context.Context, runID string, collectedAt time.Time, rows []model.ProjectHours) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO project_hours (run_id, project_name, hours_worked, collected_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	at := collectedAt.UTC().Format(timeLayout)
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, runID, r.ProjectName, r.HoursWorked, at); err != nil {
			return fmt.Errorf("recording hours for %q: %w", r.ProjectName, err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first, optionally filtered by
// service ("" for all).
func (s *Store) RecentRuns(ctx context.Context, service string, limit int) ([]Run, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, service, started_at, finished_at, exit_code, error
		FROM runs
		WHERE ? = '' OR service = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, service, service, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r              Run
			started, ended string
		)
		if err := rows.Scan(&r.ID, &r.Service, &started, &ended, &r.ExitCode, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parsing started_at of %s: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, ended); err != nil {
			return nil, fmt.Errorf("parsing finished_at of %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ProjectHours returns the rows recorded for a run in insertion order.
func (s *Store) ProjectHours(ctx context.Context, runID string) ([]model.ProjectHours, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT project_name, hours_worked
		FROM project_hours
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying project hours: %w", err)
	}
	defer rows.Close()

	var out []model.ProjectHours
	for rows.Next() {
		var p model.ProjectHours
		if err := rows.Scan(&p.ProjectName, &p.HoursWorked); err != nil {
			return nil, fmt.Errorf("scanning project hours: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
