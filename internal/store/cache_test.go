package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/rentroll/internal/source"
)

func openTest(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache", "snapshots.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := openTest(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	in := &source.Table{
		Header:    []string{"房號", "租金"},
		Rows:      [][]string{{"A1", "10,000"}, {"A2"}},
		Origin:    "https://example.com/ledger.csv",
		FetchedAt: at,
	}
	if err := c.SaveSnapshot("k", in); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, err := c.LoadSnapshot("k", 5*time.Second, at.Add(2*time.Second))
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if got == nil {
		t.Fatal("fresh snapshot not returned")
	}
	if got.Header[0] != "房號" || got.Len() != 2 || len(got.Rows[1]) != 1 {
		t.Errorf("snapshot = %+v", got)
	}
	if !got.FetchedAt.Equal(at) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, at)
	}
}

func TestSnapshotExpires(t *testing.T) {
	c := openTest(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := c.SaveSnapshot("k", &source.Table{Header: []string{"unit"}, FetchedAt: at}); err != nil {
		t.Fatal(err)
	}

	got, err := c.LoadSnapshot("k", 5*time.Second, at.Add(5*time.Second))
	if err != nil || got != nil {
		t.Errorf("expired snapshot = %v, %v; want nil, nil", got, err)
	}
	got, err = c.LoadSnapshot("other", time.Hour, at)
	if err != nil || got != nil {
		t.Errorf("unknown key = %v, %v; want nil, nil", got, err)
	}
}

func TestSnapshotReplace(t *testing.T) {
	c := openTest(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_ = c.SaveSnapshot("k", &source.Table{Header: []string{"a"}, FetchedAt: at})
	_ = c.SaveSnapshot("k", &source.Table{Header: []string{"b"}, Rows: [][]string{{"1"}}, FetchedAt: at.Add(time.Second)})

	infos, err := c.Snapshots()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].Rows != 1 {
		t.Errorf("Snapshots() = %+v", infos)
	}

	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if infos, _ := c.Snapshots(); len(infos) != 0 {
		t.Errorf("after Clear: %+v", infos)
	}
}

func TestFetchLog(t *testing.T) {
	c := openTest(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_ = c.RecordFetch("k", base, 10, nil)
	_ = c.RecordFetch("k", base.Add(time.Minute), 0, errors.New("HTTP 503"))
	_ = c.RecordFetch("other", base, 3, nil)

	got, err := c.RecentFetches("k", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d fetches, want 2", len(got))
	}
	if got[0].Error != "HTTP 503" || got[1].Rows != 10 {
		t.Errorf("fetches = %+v", got)
	}

	n, err := c.PruneFetches(base.Add(30 * time.Second))
	if err != nil || n != 2 {
		t.Errorf("PruneFetches = %d, %v; want 2", n, err)
	}
}

func TestOpenTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	for i := 0; i < 2; i++ {
		c, err := Open(path)
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		_ = c.Close()
	}
}
