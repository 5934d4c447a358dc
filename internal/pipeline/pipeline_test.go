package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/rentroll/internal/config"
	"github.com/theirongolddev/rentroll/internal/source"
)

func testTable(header []string, rows ...[]string) *source.Table {
	return &source.Table{Header: header, Rows: rows, Origin: "test"}
}

func testNormalizer() *Normalizer {
	return NewNormalizerFromConfig(config.DefaultConfig())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
