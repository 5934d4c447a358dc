package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/theirongolddev/rentroll/internal/config"
)

const sampleCSV = "\uFEFF房號,房客,租金,上期電表,本期電表,繳費狀態\n" +
	"A1, 王小明 ,\"10,000\",100,150,已繳\n" +
	"A2,陳大文,9000,200,230\n"

func TestParseCSV(t *testing.T) {
	tbl, err := ParseCSV([]byte(sampleCSV), "test")
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if got := tbl.Header[0]; got != "房號" {
		t.Errorf("Header[0] = %q, want BOM stripped", got)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	if got := tbl.Rows[0][1]; got != "王小明" {
		t.Errorf("cell not trimmed: %q", got)
	}
	if got := tbl.Rows[0][2]; got != "10,000" {
		t.Errorf("quoted cell = %q, want 10,000", got)
	}
	if got := len(tbl.Rows[1]); got != 5 {
		t.Errorf("short row has %d cells, want 5", got)
	}
}

func TestParseCSVSkipsLeadingBlankRows(t *testing.T) {
	tbl, err := ParseCSV([]byte(",,\n\nunit,rent\nA1,100\n"), "test")
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(tbl.Header) != 2 || tbl.Header[0] != "unit" {
		t.Errorf("Header = %v", tbl.Header)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

func TestParseCSVEmpty(t *testing.T) {
	tbl, err := ParseCSV(nil, "test")
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if tbl.Header != nil || tbl.Len() != 0 {
		t.Errorf("empty input produced %+v", tbl)
	}
}

func TestHTTPCSVFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	src := NewHTTPCSV(srv.URL, time.Second)
	tbl, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}
	if tbl.Origin != srv.URL {
		t.Errorf("Origin = %q", tbl.Origin)
	}
	if src.Key() != "csv:"+srv.URL {
		t.Errorf("Key() = %q", src.Key())
	}
}

func TestHTTPCSVFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPCSV(srv.URL, time.Second).Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for HTTP 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error %q does not mention status", err)
	}
}

func TestFileXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")

	f := excelize.NewFile()
	rows := [][]any{
		{"unit", "rent", "status"},
		{"B1", 8000, "paid"},
		{"B2", 8500, ""},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	_ = f.Close()

	tbl, err := NewFile(path, "").Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	if tbl.Rows[0][0] != "B1" || tbl.Rows[0][1] != "8000" {
		t.Errorf("row 0 = %v", tbl.Rows[0])
	}
}

func TestFileEmptyHasNoHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, []byte("\n\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := NewFile(path, "").Fetch(context.Background())
	if !errors.Is(err, ErrNoHeader) {
		t.Errorf("err = %v, want ErrNoHeader", err)
	}
}

func TestFileMissing(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "nope.csv"), "").Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.SourceConfig
		wantErr bool
	}{
		{"csv", config.SourceConfig{Kind: config.SourceCSVURL, URL: "https://example.com/x.csv"}, false},
		{"csv without url", config.SourceConfig{Kind: config.SourceCSVURL}, true},
		{"file", config.SourceConfig{Kind: config.SourceFile, Path: "ledger.csv"}, false},
		{"sheets", config.SourceConfig{Kind: config.SourceSheets, SpreadsheetID: "abc"}, false},
		{"unknown", config.SourceConfig{Kind: "ftp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSheetExportURL(t *testing.T) {
	got := SheetExportURL("abc", "")
	want := "https://docs.google.com/spreadsheets/d/abc/export?format=csv&gid=0"
	if got != want {
		t.Errorf("SheetExportURL = %q, want %q", got, want)
	}
}
