package model

import (
	"regexp"
	"strconv"
	"strings"
)

var digitRun = regexp.MustCompile(`[0-9]+`)

// rocEpoch converts a Minguo (ROC) year to the Gregorian calendar.
const rocEpoch = 1911

// PeriodKey parses a billing period label into a sortable month index
// (year*12 + month-1). Accepted forms include "2025-05", "2025/5", "202505",
// "2025年5月", dates such as "2025-05-01", and ROC years like "114-05" or
// "114年5月". ok is false when the label has no recognizable year and month.
func PeriodKey(label string) (key int, ok bool) {
	runs := digitRun.FindAllString(FoldWidth(label), -1)

	var year, month int
	switch {
	case len(runs) == 1 && len(runs[0]) == 6:
		year, _ = strconv.Atoi(runs[0][:4])
		month, _ = strconv.Atoi(runs[0][4:])
	case len(runs) >= 2:
		year, _ = strconv.Atoi(runs[0])
		month, _ = strconv.Atoi(runs[1])
	default:
		return 0, false
	}

	if year > 0 && year < 1000 {
		year += rocEpoch
	}
	if year < 1900 || month < 1 || month > 12 {
		return 0, false
	}
	return year*12 + month - 1, true
}

// ComparePeriods orders two period labels: parseable labels sort by month,
// parseable beats unparseable, and two unparseable labels compare as text.
func ComparePeriods(a, b string) int {
	ka, oka := PeriodKey(a)
	kb, okb := PeriodKey(b)
	switch {
	case oka && okb:
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		}
		return 0
	case oka:
		return 1
	case okb:
		return -1
	}
	return strings.Compare(strings.TrimSpace(a), strings.TrimSpace(b))
}

// FoldWidth maps full-width digits and common full-width punctuation to ASCII.
func FoldWidth(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '０' && r <= '９':
			return '0' + (r - '０')
		case r == '．':
			return '.'
		case r == '－':
			return '-'
		case r == '，':
			return ','
		case r == '　':
			return ' '
		}
		return r
	}, s)
}
