// Package source fetches raw tabular ledger snapshots.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/rentroll/internal/config"
)

// ErrNoHeader is returned when a fetched document has no non-blank row to
// use as the header.
var ErrNoHeader = errors.New("no header row")

// Table is one raw snapshot of the ledger: a header row plus data rows,
// every cell kept as text.
type Table struct {
	Header    []string   `json:"header"`
	Rows      [][]string `json:"rows"`
	Origin    string     `json:"origin"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Source produces ledger snapshots.
type Source interface {
	// Fetch reads one complete snapshot. Any error means no usable snapshot.
	Fetch(ctx context.Context) (*Table, error)
	// Key identifies the snapshot for caching.
	Key() string
}

// New builds the Source described by cfg.
func New(cfg config.SourceConfig) (Source, error) {
	switch cfg.Kind {
	case config.SourceCSVURL, "":
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, fmt.Errorf("source.url is not set (run `rentroll setup`)")
		}
		return NewHTTPCSV(cfg.URL, cfg.Timeout.Duration), nil
	case config.SourceFile:
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, fmt.Errorf("source.path is not set")
		}
		return NewFile(cfg.Path, cfg.Sheet), nil
	case config.SourceSheets:
		if strings.TrimSpace(cfg.SpreadsheetID) == "" {
			return nil, fmt.Errorf("source.spreadsheet_id is not set")
		}
		return NewSheets(cfg.SpreadsheetID, cfg.Range, cfg.CredentialsFile), nil
	}
	return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
}

// newTable trims cells and splits off the header: the first row with any
// non-blank cell. Blank rows before the header are skipped.
func newTable(records [][]string, origin string) *Table {
	t := &Table{Origin: origin, FetchedAt: time.Now()}

	start := -1
	for i, rec := range records {
		if !blankRow(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return t
	}

	t.Header = trimCells(records[start])
	if len(t.Header) > 0 {
		t.Header[0] = strings.TrimPrefix(t.Header[0], "\uFEFF")
	}
	for _, rec := range records[start+1:] {
		t.Rows = append(t.Rows, trimCells(rec))
	}
	return t
}

// requireHeader turns a headerless table into ErrNoHeader.
func requireHeader(t *Table) (*Table, error) {
	if len(t.Header) == 0 {
		return nil, fmt.Errorf("%s: %w", t.Origin, ErrNoHeader)
	}
	return t, nil
}

func trimCells(rec []string) []string {
	out := make([]string, len(rec))
	for i, c := range rec {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func blankRow(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(strings.TrimPrefix(c, "\uFEFF")) != "" {
			return false
		}
	}
	return true
}
