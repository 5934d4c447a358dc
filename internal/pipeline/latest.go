package pipeline

import (
	"strings"

	"github.com/theirongolddev/rentroll/internal/model"
)

// unitKey is the identity of a unit: its id with surrounding space removed.
// Ids are otherwise opaque, so "a1" and "A1" are different units.
func unitKey(id string) string {
	return strings.TrimSpace(id)
}

// ComparePeriodsOf orders two records by billing period.
func ComparePeriodsOf(a, b model.UnitPeriodRecord) int {
	return model.ComparePeriods(a.Period, b.Period)
}

// LatestByUnit keeps one record per unit: the one with the highest period.
// On equal periods the later row wins. Units keep their first-seen order.
func LatestByUnit(records []model.UnitPeriodRecord) []model.UnitPeriodRecord {
	pos := make(map[string]int, len(records))
	out := make([]model.UnitPeriodRecord, 0, len(records))

	for _, rec := range records {
		key := unitKey(rec.UnitID)
		i, seen := pos[key]
		if !seen {
			pos[key] = len(out)
			out = append(out, rec)
			continue
		}
		if ComparePeriodsOf(rec, out[i]) >= 0 {
			out[i] = rec
		}
	}
	return out
}
