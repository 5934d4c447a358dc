// Package store provides a SQLite-backed cache for ledger snapshots.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/rentroll/internal/source"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Cache stores the last snapshot per source and a log of fetch attempts.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// SaveSnapshot replaces the stored snapshot for key.
func (c *Cache) SaveSnapshot(key string, t *source.Table) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	_, err = c.db.Exec(`INSERT INTO snapshots (source_key, origin, row_count, payload, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_key) DO UPDATE SET
			origin = excluded.origin,
			row_count = excluded.row_count,
			payload = excluded.payload,
			fetched_at = excluded.fetched_at`,
		key, t.Origin, t.Len(), string(payload), t.FetchedAt.UnixNano(),
	)
	return err
}

// LoadSnapshot returns the snapshot for key if it is younger than maxAge at
// now. It returns nil, nil when there is none or it has expired.
func (c *Cache) LoadSnapshot(key string, maxAge time.Duration, now time.Time) (*source.Table, error) {
	var (
		payload   string
		fetchedNs int64
	)
	err := c.db.QueryRow(
		"SELECT payload, fetched_at FROM snapshots WHERE source_key = ?", key,
	).Scan(&payload, &fetchedNs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if now.Sub(time.Unix(0, fetchedNs)) >= maxAge {
		return nil, nil
	}

	var t source.Table
	if err := json.Unmarshal([]byte(payload), &t); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &t, nil
}

// SnapshotInfo describes a stored snapshot without its payload.
type SnapshotInfo struct {
	Key       string
	Origin    string
	Rows      int
	FetchedAt time.Time
}

// Snapshots lists stored snapshots, newest first.
func (c *Cache) Snapshots() ([]SnapshotInfo, error) {
	rows, err := c.db.Query("SELECT source_key, origin, row_count, fetched_at FROM snapshots ORDER BY fetched_at DESC")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []SnapshotInfo
	for rows.Next() {
		var (
			s  SnapshotInfo
			ns int64
		)
		if err := rows.Scan(&s.Key, &s.Origin, &s.Rows, &ns); err != nil {
			return nil, err
		}
		s.FetchedAt = time.Unix(0, ns)
		out = append(out, s)
	}
	return out, rows.Err()
}

// FetchRecord is one logged fetch attempt.
type FetchRecord struct {
	Key       string
	FetchedAt time.Time
	Rows      int
	Error     string
}

// RecordFetch logs a fetch attempt. fetchErr may be nil.
func (c *Cache) RecordFetch(key string, at time.Time, rows int, fetchErr error) error {
	msg := ""
	if fetchErr != nil {
		msg = fetchErr.Error()
	}
	_, err := c.db.Exec(
		"INSERT INTO fetch_log (source_key, fetched_at, row_count, error) VALUES (?, ?, ?, ?)",
		key, at.UnixNano(), rows, msg,
	)
	return err
}

// RecentFetches returns up to limit fetch attempts for key, newest first.
func (c *Cache) RecentFetches(key string, limit int) ([]FetchRecord, error) {
	rows, err := c.db.Query(
		"SELECT source_key, fetched_at, row_count, error FROM fetch_log WHERE source_key = ? ORDER BY fetched_at DESC, id DESC LIMIT ?",
		key, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []FetchRecord
	for rows.Next() {
		var (
			r  FetchRecord
			ns int64
		)
		if err := rows.Scan(&r.Key, &ns, &r.Rows, &r.Error); err != nil {
			return nil, err
		}
		r.FetchedAt = time.Unix(0, ns)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneFetches drops fetch log entries older than before.
func (c *Cache) PruneFetches(before time.Time) (int64, error) {
	res, err := c.db.Exec("DELETE FROM fetch_log WHERE fetched_at < ?", before.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Clear removes every stored snapshot.
func (c *Cache) Clear() error {
	_, err := c.db.Exec("DELETE FROM snapshots")
	return err
}
