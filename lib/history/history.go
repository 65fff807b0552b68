// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package history records launcher runs in a SQLite database in the
// cache directory, so an operator can see which version ran on a host,
// when, and how it ended.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/hostlaunch/hostlaunch/lib/sqlitepool"
)

// migrations are applied in order by sqlitepool.Open.
var migrations = []string{
	`CREATE TABLE runs (
		run_id            TEXT PRIMARY KEY,
		started_at        INTEGER NOT NULL,
		finished_at       INTEGER NOT NULL,
		host              TEXT NOT NULL,
		version           TEXT NOT NULL DEFAULT '',
		commit_hash       TEXT NOT NULL DEFAULT '',
		stage             TEXT NOT NULL,
		exit_code         INTEGER NOT NULL,
		error             TEXT NOT NULL DEFAULT '',
		descriptor_digest TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX runs_started_at ON runs (started_at);`,
}

// Run is one launcher invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Host       string
	Version    string
	Commit     string

	// Stage is the last stage reached: the failing stage for a failed
	// run, "done" for a successful one.
	Stage    string
	ExitCode int
	Error    string

	// DescriptorDigest is the hex BLAKE3 digest of the descriptor the
	// run resolved its host from.
	DescriptorDigest string
}

// Duration is FinishedAt minus StartedAt.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store is an open run history database.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// Open opens (creating if needed) the history database at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
		Path:       path,
		Migrations: migrations,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Record appends run. Recording the same ID twice replaces the earlier
// row.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("recording run: empty run ID")
	}
	const query = `INSERT OR REPLACE INTO runs
		(run_id, started_at, finished_at, host, version, commit_hash, stage, exit_code, error, descriptor_digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: []any{
				run.ID,
				run.StartedAt.UnixNano(),
				run.FinishedAt.UnixNano(),
				run.Host,
				run.Version,
				run.Commit,
				run.Stage,
				run.ExitCode,
				run.Error,
				run.DescriptorDigest,
			},
		})
	})
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	s.logger.Debug("run recorded", "run_id", run.ID, "exit_code", run.ExitCode)
	return nil
}

// Recent returns up to limit runs, newest first. A limit of zero or
// less returns nothing.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, nil
	}
	const query = `SELECT run_id, started_at, finished_at, host, version, commit_hash, stage, exit_code, error, descriptor_digest
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`
	var runs []Run
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				runs = append(runs, scanRun(stmt))
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reading run history: %w", err)
	}
	return runs, nil
}

func scanRun(stmt *sqlite.Stmt) Run {
	return Run{
		ID:               stmt.ColumnText(0),
		StartedAt:        time.Unix(0, stmt.ColumnInt64(1)).UTC(),
		FinishedAt:       time.Unix(0, stmt.ColumnInt64(2)).UTC(),
		Host:             stmt.ColumnText(3),
		Version:          stmt.ColumnText(4),
		Commit:           stmt.ColumnText(5),
		Stage:            stmt.ColumnText(6),
		ExitCode:         stmt.ColumnInt(7),
		Error:            stmt.ColumnText(8),
		DescriptorDigest: stmt.ColumnText(9),
	}
}
