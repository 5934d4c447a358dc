package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/rentroll/internal/model"
	"github.com/theirongolddev/rentroll/internal/source"
)

// ErrSourceUnavailable means no usable snapshot could be obtained.
var ErrSourceUnavailable = errors.New("ledger source unavailable")

// SnapshotCache stores raw snapshots keyed by source.
type SnapshotCache interface {
	// LoadSnapshot returns the snapshot for key if it is younger than maxAge
	// at now, or nil.
	LoadSnapshot(key string, maxAge time.Duration, now time.Time) (*source.Table, error)
	SaveSnapshot(key string, t *source.Table) error
	RecordFetch(key string, at time.Time, rows int, fetchErr error) error
}

// LoadResult holds the output of one refresh cycle.
type LoadResult struct {
	Table   *source.Table
	Records []model.UnitPeriodRecord
	// Latest holds one record per unit, its most recent period.
	Latest  []model.UnitPeriodRecord
	Issues  []model.RowIssue
	Dropped int
	Missing []Field

	FromCache bool
	FetchedAt time.Time
	// Err wraps ErrSourceUnavailable when the fetch failed. Records are
	// empty in that case.
	Err error
}

// Loader runs fetch and normalize for one refresh cycle.
type Loader struct {
	Source     source.Source
	Normalizer *Normalizer
	// Cache is optional. Snapshots older than TTL are never served.
	Cache SnapshotCache
	TTL   time.Duration
	Now   func() time.Time
}

func (l *Loader) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Load fetches a snapshot (or reuses a fresh cached one) and normalizes it.
// It never returns nil; failures are reported through LoadResult.Err.
func (l *Loader) Load(ctx context.Context) *LoadResult {
	table, fromCache, err := l.fetch(ctx)
	if err != nil {
		return &LoadResult{Err: fmt.Errorf("%w: %w", ErrSourceUnavailable, err)}
	}

	norm := l.Normalizer.Normalize(table)
	return &LoadResult{
		Table:     table,
		Records:   norm.Records,
		Latest:    LatestByUnit(norm.Records),
		Issues:    norm.Issues,
		Dropped:   norm.Dropped,
		Missing:   norm.Missing,
		FromCache: fromCache,
		FetchedAt: table.FetchedAt,
	}
}

func (l *Loader) fetch(ctx context.Context) (*source.Table, bool, error) {
	if l.Source == nil {
		return nil, false, errors.New("no source configured")
	}
	key := l.Source.Key()

	if l.Cache != nil && l.TTL > 0 {
		if t, err := l.Cache.LoadSnapshot(key, l.TTL, l.now()); err == nil && t != nil {
			return t, true, nil
		}
	}

	t, err := l.Source.Fetch(ctx)
	if l.Cache != nil {
		rows := 0
		if t != nil {
			rows = t.Len()
		}
		_ = l.Cache.RecordFetch(key, l.now(), rows, err)
	}
	if err != nil {
		return nil, false, err
	}

	t.FetchedAt = l.now()
	if l.Cache != nil {
		_ = l.Cache.SaveSnapshot(key, t)
	}
	return t, false, nil
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "rentroll")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "rentroll")
}

// CachePath returns the full path to the snapshot database.
func CachePath() string {
	return filepath.Join(CacheDir(), "snapshots.db")
}
