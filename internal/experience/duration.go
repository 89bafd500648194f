// Package experience derives a work-experience summary from a candidate's
// listed positions.
package experience

import (
	"regexp"
	"strconv"
	"strings"
)

// DurationSeparator splits "<start> – <end>" ranges as the profile renders them.
const DurationSeparator = "–"

const presentToken = "Present"

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

// ParseDuration returns the months covered by a "YYYY – YYYY" or
// "YYYY – Present" range. Present resolves to currentYear. Malformed input
// yields ok=false and contributes nothing.
func ParseDuration(text string, currentYear int) (months int, ok bool) {
	parts := strings.Split(text, DurationSeparator)
	if len(parts) != 2 {
		return 0, false
	}

	start, ok := parseYear(parts[0])
	if !ok {
		return 0, false
	}

	var end int
	endToken := strings.TrimSpace(parts[1])
	if strings.HasPrefix(endToken, presentToken) {
		end = currentYear
	} else if end, ok = parseYear(endToken); !ok {
		return 0, false
	}

	if end < start {
		return 0, false
	}
	return (end - start) * 12, true
}

// TotalMonths sums ParseDuration over every duration, skipping the unparseable ones.
func TotalMonths(durations []string, currentYear int) int {
	total := 0
	for _, d := range durations {
		if m, ok := ParseDuration(d, currentYear); ok {
			total += m
		}
	}
	return total
}

// YearsFromMonths renders a month count as years with one decimal place.
func YearsFromMonths(months int) string {
	if months < 0 {
		months = 0
	}
	return strconv.FormatFloat(float64(months)/12, 'f', 1, 64)
}

func parseYear(token string) (int, bool) {
	m := yearPattern.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return year, true
}
