package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// File reads a local .csv or .xlsx ledger.
type File struct {
	Path  string
	Sheet string // xlsx only; empty means the first sheet
}

// NewFile returns a local file source.
func NewFile(path, sheet string) *File {
	return &File{Path: path, Sheet: sheet}
}

// Key implements Source.
func (s *File) Key() string {
	abs, err := filepath.Abs(s.Path)
	if err != nil {
		abs = s.Path
	}
	if s.Sheet != "" {
		return "file:" + abs + "#" + s.Sheet
	}
	return "file:" + abs
}

// Fetch implements Source.
func (s *File) Fetch(ctx context.Context) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".xlsx", ".xlsm":
		return s.readXLSX()
	default:
		data, err := os.ReadFile(s.Path) //nolint:gosec // ledger path is configured by the local user
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.Path, err)
		}
		t, err := ParseCSV(data, s.Path)
		if err != nil {
			return nil, err
		}
		return requireHeader(t)
	}
}

func (s *File) readXLSX() (*Table, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.Path, err)
	}
	defer func() { _ = f.Close() }()

	sheet := s.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return requireHeader(newTable(nil, s.Path))
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	return requireHeader(newTable(rows, s.Path+"#"+sheet))
}
