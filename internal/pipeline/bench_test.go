package pipeline

import (
	"fmt"
	"testing"
)

func benchTable(n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{
			fmt.Sprintf("U%04d", i), "2025-06", "tenant", "", "12,000",
			fmt.Sprint(i * 10), fmt.Sprint(i*10 + 37), "0", "", "", "已繳", "",
		}
	}
	return rows
}

func BenchmarkNormalize(b *testing.B) {
	tbl := testTable(ledgerHeader, benchTable(5000)...)
	n := testNormalizer()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = n.Normalize(tbl)
	}
}

func BenchmarkAggregate(b *testing.B) {
	recs := testNormalizer().Normalize(testTable(ledgerHeader, benchTable(5000)...)).Records
	a := testAggregator()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.Aggregate(recs)
	}
}
