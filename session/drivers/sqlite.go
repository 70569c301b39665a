package drivers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/creastat/welfarechat/session"
)

// SQLiteBackend implements session.Backend on a single SQLite table. SQLite
// has no change feed, so Watch polls the row's revision.
type SQLiteBackend struct {
	db           *sql.DB
	source       string
	pollInterval time.Duration
}

// NewSQLiteBackend opens dsn and creates the table if needed.
func NewSQLiteBackend(dsn string, pollInterval time.Duration) (*SQLiteBackend, error) {
	if dsn == "" {
		return nil, errors.New("sqlite backend: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite backend: open")
	}
	s := &SQLiteBackend{db: db, source: uuid.NewString(), pollInterval: pollInterval}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteBackend) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS widget_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL DEFAULT '',
			deleted INTEGER NOT NULL DEFAULT 0,
			writer TEXT NOT NULL DEFAULT '',
			rev TEXT NOT NULL DEFAULT '',
			updated_at_ms INTEGER NOT NULL DEFAULT 0
		)
	`)
	return errors.Wrap(err, "sqlite backend: migrate")
}

// Get implements session.Backend.
func (s *SQLiteBackend) Get(ctx context.Context, key string) (string, bool, error) {
	rec, found, err := s.fetch(ctx, key)
	if err != nil || !found || rec.Deleted {
		return "", false, err
	}
	return rec.Value, true, nil
}

// Set implements session.Backend.
func (s *SQLiteBackend) Set(ctx context.Context, key, value string) error {
	return s.upsert(ctx, session.Record{Key: key, Value: value})
}

// Delete implements session.Backend.
func (s *SQLiteBackend) Delete(ctx context.Context, key string) error {
	_, found, err := s.fetch(ctx, key)
	if err != nil || !found {
		return err
	}
	return s.upsert(ctx, session.Record{Key: key, Deleted: true})
}

// Watch implements session.Backend.
func (s *SQLiteBackend) Watch(ctx context.Context, key string, fn func(session.Change)) (func(), error) {
	return session.PollChanges(ctx, s.pollInterval, s.source, func(ctx context.Context) (session.Record, bool, error) {
		return s.fetch(ctx, key)
	}, fn)
}

// Close implements session.Backend.
func (s *SQLiteBackend) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteBackend) upsert(ctx context.Context, rec session.Record) error {
	deleted := 0
	if rec.Deleted {
		deleted = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO widget_state (key, value, deleted, writer, rev, updated_at_ms)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			deleted = excluded.deleted,
			writer = excluded.writer,
			rev = excluded.rev,
			updated_at_ms = excluded.updated_at_ms
	`, rec.Key, rec.Value, deleted, s.source, uuid.NewString(), time.Now().UnixMilli())
	return errors.Wrap(err, "sqlite backend: upsert")
}

func (s *SQLiteBackend) fetch(ctx context.Context, key string) (session.Record, bool, error) {
	var (
		rec     session.Record
		deleted int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT key, value, deleted, writer, rev FROM widget_state WHERE key = ?
	`, key).Scan(&rec.Key, &rec.Value, &deleted, &rec.Writer, &rec.Rev)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Record{}, false, nil
	}
	if err != nil {
		return session.Record{}, false, errors.Wrap(err, "sqlite backend: fetch")
	}
	rec.Deleted = deleted != 0
	return rec, true, nil
}

// SQLiteDSNForFile builds a DSN for a database file shared by several
// backends.
func SQLiteDSNForFile(path string) (string, error) {
	if path == "" {
		return "", errors.New("sqlite backend: empty path")
	}
	// WAL for concurrent readers + writer. busy_timeout to avoid transient SQLITE_BUSY.
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path), nil
}

var _ session.Backend = (*SQLiteBackend)(nil)
