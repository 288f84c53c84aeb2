package normalize

// convert.go holds the cell-level parsers used by the column normalizers.
//
// Extracted tables carry the usual text artifacts:
//   - Month-year dates ("Jan-2021") stored as text
//   - Durations with units ("36 months")
//   - Currency symbols and thousand separators in amounts
//   - Excel formula prefixes (="value") and stray quotes
//
// Every parser reports ok=false for empty or unparseable input so callers can
// record a missing value.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// digitsRegex finds the first run of digits in a cell.
var digitsRegex = regexp.MustCompile(`\d+`)

// Month-year layouts, most specific first. Every result is pinned to the
// first day of the month.
var monthYearLayouts = []string{
	"Jan-2006", "January-2006",
	"Jan 2006", "January 2006",
	"01-2006", "1-2006", "01/2006", "1/2006",
	"2006-01", "2006/01",
}

// DateLayout is the canonical text form of a normalized date.
const DateLayout = "2006-01-02"

// CleanCell removes common export artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// ParseMonthYear parses a month-year cell such as "Jan-2021".
func ParseMonthYear(s string) (time.Time, bool) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range monthYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ExtractNumber returns the first run of digits in s as a number, so
// "36 months" yields 36 and "< 1 year" yields 1.
func ExtractNumber(s string) (float64, bool) {
	m := digitsRegex.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseNumber converts an amount cell to a float.
// Handles currency symbols, thousands separators, and accounting format (parentheses for negative).
func ParseNumber(s string) (float64, bool) {
	s = CleanCell(s)
	if s == "" {
		return 0, false
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
