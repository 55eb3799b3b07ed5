// Package sqlite stores breakpoint snapshots in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/bugjar/pkg/domain"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS breakpoints (
	session_id TEXT NOT NULL,
	file TEXT NOT NULL,
	line INTEGER NOT NULL,
	enabled INTEGER NOT NULL,
	temporary INTEGER NOT NULL DEFAULT 0,
	ignore_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (session_id, file, line),
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_breakpoints_session ON breakpoints(session_id);
`

// Store implements ports.BreakpointRepository on SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and initializes the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite handles one writer at a time

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the session's breakpoints in one transaction.
func (s *Store) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	updated := snap.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, updated_at) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, updated.UnixNano()); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM breakpoints WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear breakpoints: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO breakpoints (session_id, file, line, enabled, temporary, ignore_count)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, bp := range snap.Breakpoints {
		if _, err := stmt.ExecContext(ctx, sessionID, bp.File, bp.Line, bp.Enabled, bp.Temporary, bp.IgnoreCount); err != nil {
			return fmt.Errorf("insert breakpoint %s:%d: %w", bp.File, bp.Line, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load returns the session's breakpoints ordered by file and line.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	var updated int64
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM sessions WHERE id = ?`, sessionID).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT file, line, enabled, temporary, ignore_count FROM breakpoints
		 WHERE session_id = ? ORDER BY file, line`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query breakpoints: %w", err)
	}
	defer rows.Close()

	snap := &domain.Snapshot{SessionID: sessionID, UpdatedAt: time.Unix(0, updated)}
	for rows.Next() {
		var bp domain.Breakpoint
		if err := rows.Scan(&bp.File, &bp.Line, &bp.Enabled, &bp.Temporary, &bp.IgnoreCount); err != nil {
			return nil, fmt.Errorf("scan breakpoint: %w", err)
		}
		snap.Breakpoints = append(snap.Breakpoints, bp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate breakpoints: %w", err)
	}
	return snap, nil
}

// Delete removes the session and, by cascade, its breakpoints.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List returns session IDs, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, id)
	}
	return sessions, rows.Err()
}
