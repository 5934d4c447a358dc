package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/sync/errgroup"
)

// ErrFontRequired is returned when notice text needs a UTF-8 font and none
// is configured.
var ErrFontRequired = errors.New("text outside Latin-1 needs a UTF-8 font (set notice.pdf_font)")

// NoticePDF renders notice text on an A4 page. fontPath names a UTF-8 TTF
// font; without one the core Arial font is used, and text it cannot show
// (CJK, for one) fails with ErrFontRequired.
func NoticePDF(title, text, fontPath string) ([]byte, error) {
	if fontPath == "" && (!latin1(title) || !latin1(text)) {
		return nil, ErrFontRequired
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	family := "Arial"
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if fontPath != "" {
		pdf.AddUTF8Font("notice", "", fontPath)
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("loading font %s: %w", fontPath, err)
		}
		family = "notice"
		tr = func(s string) string { return s }
	}

	pdf.AddPage()
	pdf.SetFont(family, "", 14)
	pdf.Cell(0, 8, tr(title))
	pdf.Ln(12)

	pdf.SetFont(family, "", 11)
	for _, line := range strings.Split(text, "\n") {
		pdf.MultiCell(0, 6, tr(line), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func latin1(s string) bool {
	for _, r := range s {
		if r > unicode.MaxLatin1 {
			return false
		}
	}
	return true
}

// NoticeFile is one notice to write as a PDF.
type NoticeFile struct {
	Name  string // file name without extension
	Title string
	Text  string
}

// WriteNoticePDFs renders each notice into dir as <Name>.pdf, several at a
// time. Names that clean to the same file get a -2, -3 ... suffix in input
// order.
func WriteNoticePDFs(ctx context.Context, dir, fontPath string, files []NoticeFile) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	names := uniqueFileNames(files)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, nf := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := NoticePDF(nf.Title, nf.Text, fontPath)
			if err != nil {
				return fmt.Errorf("%s: %w", nf.Name, err)
			}
			path := filepath.Join(dir, names[i]+".pdf")
			return os.WriteFile(path, data, 0o600)
		})
	}
	return g.Wait()
}

// uniqueFileNames maps files to distinct safe names. Comparison ignores case
// for case-insensitive file systems.
func uniqueFileNames(files []NoticeFile) []string {
	names := make([]string, len(files))
	taken := make(map[string]bool, len(files))
	for i, nf := range files {
		base := SafeFileName(nf.Name)
		name := base
		for n := 2; taken[strings.ToLower(name)]; n++ {
			name = base + "-" + strconv.Itoa(n)
		}
		taken[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

// SafeFileName replaces path separators and other awkward characters.
func SafeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unnamed"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}
