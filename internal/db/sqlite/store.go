// Package sqlite is a single-node durable db.Store on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/sentinel/internal/db"
)

var _ db.Store = (*Store)(nil)

// Config holds the database file location.
type Config struct {
	Path string
}

// Store implements db.Store on one SQLite file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens the database, applies pragmas and runs migrations.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	conn, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time keeps mutations serialized inside the process.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}

	if err := runMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: conn, now: time.Now}, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() {
	_ = s.db.Close()
}

// Put upserts one record.
func (s *Store) Put(ctx context.Context, region db.Region, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (region, key, value) VALUES (?, ?, ?)
		ON CONFLICT (region, key) DO UPDATE SET value = excluded.value`,
		string(region), key, value,
	)
	if err != nil {
		return &db.Error{Op: db.OpPut, Err: err}
	}
	return nil
}

// Get reads one record.
func (s *Store) Get(ctx context.Context, region db.Region, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM records WHERE region = ? AND key = ?", string(region), key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return value, nil
}

// Delete removes one record.
func (s *Store) Delete(ctx context.Context, region db.Region, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM records WHERE region = ? AND key = ?", string(region), key,
	)
	if err != nil {
		return false, &db.Error{Op: db.OpDelete, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &db.Error{Op: db.OpDelete, Err: err}
	}
	return n > 0, nil
}

// Scan reads keys >= prefix in order and stops at the first key outside it.
// A single SELECT reads from one snapshot.
func (s *Store) Scan(ctx context.Context, region db.Region, prefix string) ([]db.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM records WHERE region = ? AND key >= ? ORDER BY key",
		string(region), prefix,
	)
	if err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	defer rows.Close()

	var out []db.Entry
	for rows.Next() {
		var e db.Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		if !strings.HasPrefix(e.Key, prefix) {
			break
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	return out, nil
}

// IncrBy adds n to a counter. Expired counters restart from zero and
// ttl only applies to counters without an expiry.
func (s *Store) IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) error {
	now := s.now().UnixNano()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now + ttl.Nanoseconds()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO counters (key, value, expires_at) VALUES (?1, ?2, ?3)
		ON CONFLICT (key) DO UPDATE SET
			value = CASE WHEN counters.expires_at != 0 AND counters.expires_at <= ?4
				THEN excluded.value ELSE counters.value + excluded.value END,
			expires_at = CASE WHEN counters.expires_at = 0 OR counters.expires_at <= ?4
				THEN excluded.expires_at ELSE counters.expires_at END`,
		key, n, expiresAt, now,
	)
	if err != nil {
		return &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return nil
}

// Counter returns a live counter value.
func (s *Store) Counter(ctx context.Context, key string) (int64, error) {
	var value, expiresAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM counters WHERE key = ?", key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, db.ErrKeyNotFound
	}
	if err != nil {
		return 0, &db.Error{Op: db.OpGet, Err: err}
	}
	if expiresAt != 0 && expiresAt <= s.now().UnixNano() {
		return 0, db.ErrKeyNotFound
	}
	return value, nil
}
