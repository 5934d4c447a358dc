package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxSnapshotBytes = 32 << 20

// SheetExportURL returns the CSV export URL of one tab of a Google spreadsheet.
func SheetExportURL(spreadsheetID, gid string) string {
	if gid == "" {
		gid = "0"
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%s", spreadsheetID, gid)
}

// HTTPCSV fetches a CSV document over HTTP(S).
type HTTPCSV struct {
	URL    string
	Client *http.Client
}

// NewHTTPCSV returns an HTTP CSV source with the given request timeout.
func NewHTTPCSV(url string, timeout time.Duration) *HTTPCSV {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPCSV{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

// Key implements Source.
func (s *HTTPCSV) Key() string {
	return "csv:" + s.URL
}

// Fetch implements Source.
func (s *HTTPCSV) Fetch(ctx context.Context) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: HTTP %d", s.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	t, err := ParseCSV(body, s.URL)
	if err != nil {
		return nil, err
	}
	return requireHeader(t)
}

// ParseCSV parses a UTF-8 CSV document (optionally BOM-prefixed) into a Table.
// Rows may have differing field counts. Empty input yields an empty table.
func ParseCSV(data []byte, origin string) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	return newTable(records, origin), nil
}
