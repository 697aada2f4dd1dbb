// Package store persists server state snapshots and health check history
// to SQLite, so operational state (which servers were up, their weights,
// when they last changed) survives a process restart.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no cgo
)

// ServerSnapshot is the persisted state of one backend server at a point
// in time.
type ServerSnapshot struct {
	Backend     string
	Server      string
	Address     string
	Up          bool
	Weight      int
	ActiveConns int
	LastChange  time.Time
}

// CheckRecord is one completed health check, retained for history/audit.
type CheckRecord struct {
	Backend   string
	Server    string
	Up        bool
	Duration  time.Duration
	Timestamp time.Time
}

// Store persists server snapshots and check history using SQLite in WAL
// mode. SQLite only supports a single writer, so the backing pool is
// capped at one connection.
type Store struct {
	db               *sql.DB
	snapshotInterval time.Duration
	done             chan struct{}
	mu               sync.RWMutex
	closeOnce        sync.Once

	saveSnapshotStmt  *sql.Stmt
	loadSnapshotsStmt *sql.Stmt
	insertCheckStmt   *sql.Stmt
	listChecksStmt    *sql.Stmt
	cleanupChecksStmt *sql.Stmt
}

// Config configures the store.
type Config struct {
	// Path is the SQLite database file path.
	Path string

	// SnapshotInterval is how often the WAL is checkpointed.
	// Default: 10s
	SnapshotInterval time.Duration

	// BusyTimeout bounds how long a write waits for the database lock.
	// Default: 5s
	BusyTimeout time.Duration
}

// Open opens (creating if necessary) the SQLite database at cfg.Path and
// prepares its schema and statements.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store: path cannot be empty")
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = 10 * time.Second
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:               db,
		snapshotInterval: cfg.SnapshotInterval,
		done:             make(chan struct{}),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to prepare statements: %w", err)
	}

	go s.checkpointLoop()

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS server_snapshots (
		backend      TEXT NOT NULL,
		server       TEXT NOT NULL,
		address      TEXT NOT NULL,
		up           INTEGER NOT NULL,
		weight       INTEGER NOT NULL,
		active_conns INTEGER NOT NULL,
		last_change  INTEGER NOT NULL,
		PRIMARY KEY (backend, server)
	);

	CREATE TABLE IF NOT EXISTS check_history (
		backend    TEXT NOT NULL,
		server     TEXT NOT NULL,
		up         INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		checked_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_check_history_checked_at ON check_history(checked_at);
	CREATE INDEX IF NOT EXISTS idx_check_history_server ON check_history(backend, server);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) prepareStatements() error {
	var err error

	s.saveSnapshotStmt, err = s.db.Prepare(`
		INSERT INTO server_snapshots (backend, server, address, up, weight, active_conns, last_change)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (backend, server) DO UPDATE SET
			address = excluded.address,
			up = excluded.up,
			weight = excluded.weight,
			active_conns = excluded.active_conns,
			last_change = excluded.last_change
	`)
	if err != nil {
		return fmt.Errorf("prepare save snapshot: %w", err)
	}

	s.loadSnapshotsStmt, err = s.db.Prepare(`
		SELECT backend, server, address, up, weight, active_conns, last_change
		FROM server_snapshots
		WHERE backend = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare load snapshots: %w", err)
	}

	s.insertCheckStmt, err = s.db.Prepare(`
		INSERT INTO check_history (backend, server, up, duration_ms, checked_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert check: %w", err)
	}

	s.listChecksStmt, err = s.db.Prepare(`
		SELECT backend, server, up, duration_ms, checked_at
		FROM check_history
		WHERE backend = ? AND server = ?
		ORDER BY checked_at DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("prepare list checks: %w", err)
	}

	s.cleanupChecksStmt, err = s.db.Prepare(`
		DELETE FROM check_history WHERE checked_at < ?
	`)
	if err != nil {
		return fmt.Errorf("prepare cleanup checks: %w", err)
	}

	return nil
}

// SaveSnapshot upserts the current state of one server.
func (s *Store) SaveSnapshot(ctx context.Context, snap ServerSnapshot) error {
	if snap.Backend == "" || snap.Server == "" {
		return fmt.Errorf("store: backend and server are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.saveSnapshotStmt.ExecContext(ctx,
		snap.Backend, snap.Server, snap.Address, boolToInt(snap.Up),
		snap.Weight, snap.ActiveConns, snap.LastChange.Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshots returns every persisted server snapshot for a backend.
func (s *Store) LoadSnapshots(ctx context.Context, backend string) ([]ServerSnapshot, error) {
	if backend == "" {
		return nil, fmt.Errorf("store: backend cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.loadSnapshotsStmt.QueryContext(ctx, backend)
	if err != nil {
		return nil, fmt.Errorf("store: failed to load snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []ServerSnapshot
	for rows.Next() {
		var (
			snap       ServerSnapshot
			up         int
			lastChange int64
		)
		if err := rows.Scan(&snap.Backend, &snap.Server, &snap.Address, &up, &snap.Weight, &snap.ActiveConns, &lastChange); err != nil {
			return nil, fmt.Errorf("store: failed to scan snapshot: %w", err)
		}
		snap.Up = up != 0
		snap.LastChange = time.Unix(lastChange, 0)
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: error iterating snapshots: %w", err)
	}
	return snapshots, nil
}

// RecordCheck appends one health check result to the history table.
func (s *Store) RecordCheck(ctx context.Context, rec CheckRecord) error {
	if rec.Backend == "" || rec.Server == "" {
		return fmt.Errorf("store: backend and server are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.insertCheckStmt.ExecContext(ctx,
		rec.Backend, rec.Server, boolToInt(rec.Up),
		rec.Duration.Milliseconds(), rec.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: failed to record check: %w", err)
	}
	return nil
}

// ListChecks returns the most recent limit check records for a server,
// newest first, capped at limit rows.
func (s *Store) ListChecks(ctx context.Context, backend, server string, limit int) ([]CheckRecord, error) {
	if backend == "" || server == "" {
		return nil, fmt.Errorf("store: backend and server are required")
	}
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listChecksStmt.QueryContext(ctx, backend, server, limit)
	if err != nil {
		return nil, fmt.Errorf("store: failed to list checks: %w", err)
	}
	defer rows.Close()

	var records []CheckRecord
	for rows.Next() {
		var (
			rec        CheckRecord
			up         int
			durationMs int64
			checkedAt  int64
		)
		if err := rows.Scan(&rec.Backend, &rec.Server, &up, &durationMs, &checkedAt); err != nil {
			return nil, fmt.Errorf("store: failed to scan check record: %w", err)
		}
		rec.Up = up != 0
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.Timestamp = time.Unix(checkedAt, 0)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: error iterating check records: %w", err)
	}
	return records, nil
}

// CleanupChecks deletes check history older than olderThan, returning the
// number of rows removed.
func (s *Store) CleanupChecks(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.cleanupChecksStmt.ExecContext(ctx, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("store: failed to cleanup check history: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: failed to get rows affected: %w", err)
	}
	return int(deleted), nil
}

// Close releases the store's resources. Idempotent.
func (s *Store) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		for _, stmt := range []*sql.Stmt{s.saveSnapshotStmt, s.loadSnapshotsStmt, s.insertCheckStmt, s.listChecksStmt, s.cleanupChecksStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}

		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

func (s *Store) checkpointLoop() {
	ticker := time.NewTicker(s.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
