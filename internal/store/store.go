// Package store is the coordination store (spec.md C2): durable,
// concurrency-safe CRUD plus the atomic claim/complete/release
// transactions that make the render farm self-healing across hosts.
//
// The reference backend is a single SQLite database on a shared
// filesystem path, opened by every worker and control-API process.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the shared SQLite connection with coordinator operations.
type Store struct {
	conn *sql.DB

	// txMu serializes withTx callers within this process. They all run
	// on the pool's single connection, so a second BEGIN IMMEDIATE issued
	// while another transaction is open would fail instead of waiting.
	txMu sync.Mutex

	// ClaimTimeout bounds how long a claimed frame may sit unreported
	// before a reclaim sweep returns it to pending (spec.md §4.2).
	ClaimTimeout time.Duration

	// HeartbeatTimeout bounds how long a worker may go without a
	// heartbeat before it is reported offline and its claims reclaimed.
	HeartbeatTimeout time.Duration
}

// Option configures a Store at Open time.
type Option func(*Store)

// WithClaimTimeout overrides the default claim-timeout threshold.
func WithClaimTimeout(d time.Duration) Option {
	return func(s *Store) { s.ClaimTimeout = d }
}

// WithHeartbeatTimeout overrides the default heartbeat-timeout threshold.
func WithHeartbeatTimeout(d time.Duration) Option {
	return func(s *Store) { s.HeartbeatTimeout = d }
}

const (
	// DefaultClaimTimeout is the reference value from spec.md §5: must
	// exceed the converter's worst-case per-range runtime plus margin.
	DefaultClaimTimeout = 3 * time.Minute

	// DefaultHeartbeatTimeout is independent and larger, since workers
	// may stall temporarily without their claims being invalid.
	DefaultHeartbeatTimeout = 5 * time.Minute

	// busyTimeoutMillis is a lengthy busy timeout to absorb contention
	// spikes from many hosts claiming concurrently (spec.md §4.1).
	busyTimeoutMillis = 60_000
)

// Open creates or opens the SQLite-backed store at path, enables WAL
// mode and foreign keys, and runs migrations.
func Open(path string, opts ...Option) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMillis),
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("configure store (%s): %w", p, err)
		}
	}

	// A single shared SQLite connection, serialized at the driver
	// level, mirrors the exclusive-write-lock discipline spec.md §4.1
	// requires; goroutines of one process serialize on txMu and
	// separate hosts on the BEGIN IMMEDIATE the critical sections take.
	conn.SetMaxOpenConns(1)

	s := &Store{
		conn:             conn,
		ClaimTimeout:     DefaultClaimTimeout,
		HeartbeatTimeout: DefaultHeartbeatTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS pools (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	priority    INTEGER NOT NULL DEFAULT 50,
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs (
	id                 TEXT PRIMARY KEY,
	pool_id            TEXT NOT NULL REFERENCES pools(id),
	clip_path          TEXT NOT NULL,
	output_dir         TEXT NOT NULL,
	start_frame        INTEGER NOT NULL,
	end_frame          INTEGER NOT NULL,
	eyes               TEXT NOT NULL,
	format             TEXT NOT NULL DEFAULT 'exr',
	separate_folders   INTEGER NOT NULL DEFAULT 0,
	use_aces           INTEGER NOT NULL DEFAULT 1,
	color_input_space  TEXT NOT NULL DEFAULT '',
	color_output_space TEXT NOT NULL DEFAULT '',
	use_stmap          INTEGER NOT NULL DEFAULT 0,
	stmap_path         TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'pending',
	priority           INTEGER NOT NULL DEFAULT 50,
	created_at         DATETIME NOT NULL,
	submitted_by       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_jobs_pool ON jobs(pool_id);
CREATE INDEX IF NOT EXISTS idx_jobs_pool_status ON jobs(pool_id, status);

CREATE TABLE IF NOT EXISTS frames (
	job_id       TEXT NOT NULL REFERENCES jobs(id),
	frame_index  INTEGER NOT NULL,
	eye          TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	worker_id    TEXT,
	claimed_at   DATETIME,
	completed_at DATETIME,
	retry_count  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (job_id, frame_index, eye)
);
CREATE INDEX IF NOT EXISTS idx_frames_job_status ON frames(job_id, status);
CREATE INDEX IF NOT EXISTS idx_frames_status ON frames(status);
CREATE INDEX IF NOT EXISTS idx_frames_worker ON frames(worker_id);

CREATE TABLE IF NOT EXISTS workers (
	id               TEXT PRIMARY KEY,
	pool_id          TEXT NOT NULL REFERENCES pools(id),
	hostname         TEXT NOT NULL,
	ip               TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'idle',
	current_job_id   TEXT NOT NULL DEFAULT '',
	frames_completed INTEGER NOT NULL DEFAULT 0,
	last_heartbeat   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_workers_pool ON workers(pool_id);
`
	if _, err := s.conn.Exec(schema); err != nil {
		return err
	}

	_, err := s.conn.Exec(`
		INSERT OR IGNORE INTO pools (id, name, description, priority, created_at)
		VALUES (?, 'Default', 'default pool', 50, ?)
	`, "default", time.Now().UTC())
	return err
}

// withTx runs fn inside an immediate-exclusive transaction, matching
// the locking discipline of spec.md §4.1: writes take an immediate
// exclusive lock at the transaction boundary rather than upgrading a
// deferred one mid-transaction, which is what invites SQLITE_BUSY
// races between readers and writers under contention from many hosts.
//
// database/sql's Tx always issues a plain BEGIN, so the immediate lock
// is taken by hand on the pool's single shared connection (MaxOpenConns
// is 1) and fn runs directly against *sql.DB rather than *sql.Tx.
// txMu is held from BEGIN until COMMIT or ROLLBACK, so transactions of
// one process never overlap on that connection.
func (s *Store) withTx(fn func(*sql.DB) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if _, err = s.conn.Exec("BEGIN IMMEDIATE"); err != nil {
		return classifyErr(err)
	}
	defer func() {
		if err != nil {
			s.conn.Exec("ROLLBACK")
			return
		}
		if _, cerr := s.conn.Exec("COMMIT"); cerr != nil {
			err = classifyErr(cerr)
		}
	}()
	err = fn(s.conn)
	return err
}
