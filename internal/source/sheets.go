package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Sheets reads a range through the Google Sheets API. Use it for private
// spreadsheets that cannot be published as CSV.
type Sheets struct {
	SpreadsheetID   string
	Range           string
	CredentialsFile string
}

// NewSheets returns a Sheets API source. An empty range reads the first tab.
func NewSheets(spreadsheetID, rng, credentialsFile string) *Sheets {
	return &Sheets{
		SpreadsheetID:   spreadsheetID,
		Range:           rng,
		CredentialsFile: credentialsFile,
	}
}

// Key implements Source.
func (s *Sheets) Key() string {
	return "sheets:" + s.SpreadsheetID + "!" + s.readRange()
}

func (s *Sheets) readRange() string {
	if strings.TrimSpace(s.Range) == "" {
		return "A:Z"
	}
	return s.Range
}

// Fetch implements Source.
func (s *Sheets) Fetch(ctx context.Context) (*Table, error) {
	svc, err := s.service(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Spreadsheets.Values.Get(s.SpreadsheetID, s.readRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.readRange(), err)
	}

	records := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		records[i] = toStrings(row)
	}
	slog.DebugContext(ctx, "sheets snapshot read",
		"spreadsheet", s.SpreadsheetID,
		"range", s.readRange(),
		"rows", len(records))
	return requireHeader(newTable(records, "sheets:"+s.SpreadsheetID))
}

func (s *Sheets) service(ctx context.Context) (*gsheet.Service, error) {
	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsReadonlyScope)}

	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		opts = append(opts, goption.WithCredentialsJSON([]byte(inline)))
	} else if s.CredentialsFile != "" {
		creds, err := os.ReadFile(s.CredentialsFile) //nolint:gosec // credentials path is configured by the local user
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		opts = append(opts, goption.WithCredentialsJSON(creds))
	}
	// Otherwise fall through to application default credentials.

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
