// Package normalize converts text columns of a frame into analysable form:
// canonical dates, numbers pulled out of unit strings, and integer codes for
// categories.
package normalize

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/JonMunkholm/tableclean/internal/frame"
	"github.com/JonMunkholm/tableclean/internal/logging"
)

// Kind names a column normalization.
type Kind string

const (
	KindMonthYear     Kind = "month_year"     // "Jan-2021" -> "2021-01-01" (text)
	KindExtractNumber Kind = "extract_number" // "36 months" -> 36
	KindNumber        Kind = "number"         // "$1,234.50" -> 1234.5
	KindCategorical   Kind = "categorical"    // sorted category codes, missing -> -1
	KindFactorize     Kind = "factorize"      // first-appearance codes from 1, missing -> 0
)

// Step normalizes one column.
type Step struct {
	Column string `yaml:"column" json:"column"`
	Kind   Kind   `yaml:"kind" json:"kind"`
}

// Result summarizes one applied step.
type Result struct {
	Column     string   `json:"column"`
	Kind       Kind     `json:"kind"`
	Invalid    int      `json:"invalid"`              // Present cells that failed to parse
	Categories []string `json:"categories,omitempty"` // Code order for categorical/factorize
}

// ParseKind validates a normalization name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindMonthYear, KindExtractNumber, KindNumber, KindCategorical, KindFactorize:
		return k, nil
	}
	return "", fmt.Errorf("unknown normalization %q", s)
}

// Apply runs steps against f in order. A step on a missing column fails the
// whole call before any column is touched.
func Apply(ctx context.Context, f *frame.Frame, steps []Step) ([]Result, error) {
	logger := logging.FromContext(ctx).With("frame", f.Name)

	kinds := make([]Kind, len(steps))
	for i, s := range steps {
		if _, ok := f.Column(s.Column); !ok {
			return nil, fmt.Errorf("normalize %s: column not found: %s", s.Kind, s.Column)
		}
		k, err := ParseKind(string(s.Kind))
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", s.Column, err)
		}
		kinds[i] = k
	}

	results := make([]Result, 0, len(steps))
	for i, s := range steps {
		col, _ := f.Column(s.Column)
		kind := kinds[i]

		var (
			res Result
			err error
		)
		switch kind {
		case KindMonthYear:
			res, err = monthYear(col)
		case KindExtractNumber:
			res, err = toNumeric(f, col, ExtractNumber)
		case KindNumber:
			res, err = toNumeric(f, col, ParseNumber)
		case KindCategorical:
			res, err = categorical(f, col)
		case KindFactorize:
			res, err = factorize(f, col)
		}
		if err != nil {
			return nil, err
		}
		res.Column, res.Kind = s.Column, kind

		if res.Invalid > 0 {
			logger.Warn("unparseable cells set to missing",
				"column", s.Column,
				"kind", string(kind),
				"count", res.Invalid,
			)
		}
		results = append(results, res)
	}
	return results, nil
}

// monthYear rewrites a text column of month-year cells as ISO dates.
func monthYear(col *frame.Column) (Result, error) {
	var res Result
	n := col.Len()
	values := make([]string, n)
	valid := make([]bool, n)

	for i := 0; i < n; i++ {
		if col.IsNull(i) {
			continue
		}
		t, ok := ParseMonthYear(col.StringAt(i))
		if !ok {
			res.Invalid++
			continue
		}
		values[i] = t.Format(DateLayout)
		valid[i] = true
	}

	col.Kind = frame.KindText
	col.Strings = values
	col.Valid = valid
	col.Floats = nil
	return res, nil
}

// toNumeric parses every cell with parse; failures become missing.
func toNumeric(f *frame.Frame, col *frame.Column, parse func(string) (float64, bool)) (Result, error) {
	var res Result
	if col.Kind == frame.KindNumeric {
		return res, nil
	}

	values := make([]float64, col.Len())
	for i := range values {
		values[i] = math.NaN()
		if col.IsNull(i) {
			continue
		}
		v, ok := parse(col.StringAt(i))
		if !ok {
			if CleanCell(col.StringAt(i)) != "" {
				res.Invalid++
			}
			continue
		}
		values[i] = v
	}
	return res, f.SetNumeric(col.Name, values)
}

// categorical assigns each distinct value its index in sorted order.
func categorical(f *frame.Frame, col *frame.Column) (Result, error) {
	cells := cellValues(col)

	seen := make(map[string]bool)
	var categories []string
	for _, c := range cells {
		if c.ok && !seen[c.s] {
			seen[c.s] = true
			categories = append(categories, c.s)
		}
	}
	if col.Kind == frame.KindNumeric {
		sortNumericStrings(categories)
	} else {
		sort.Strings(categories)
	}

	codes := make(map[string]float64, len(categories))
	for i, c := range categories {
		codes[c] = float64(i)
	}

	values := make([]float64, len(cells))
	for i, c := range cells {
		if !c.ok {
			values[i] = -1
			continue
		}
		values[i] = codes[c.s]
	}
	return Result{Categories: categories}, f.SetNumeric(col.Name, values)
}

// factorize numbers distinct values by first appearance, starting at 1.
func factorize(f *frame.Frame, col *frame.Column) (Result, error) {
	cells := cellValues(col)

	codes := make(map[string]float64)
	var categories []string
	values := make([]float64, len(cells))
	for i, c := range cells {
		if !c.ok {
			values[i] = 0
			continue
		}
		code, ok := codes[c.s]
		if !ok {
			categories = append(categories, c.s)
			code = float64(len(categories))
			codes[c.s] = code
		}
		values[i] = code
	}
	return Result{Categories: categories}, f.SetNumeric(col.Name, values)
}

type cell struct {
	s  string
	ok bool
}

func cellValues(col *frame.Column) []cell {
	out := make([]cell, col.Len())
	for i := range out {
		if col.IsNull(i) {
			continue
		}
		out[i] = cell{s: col.StringAt(i), ok: true}
	}
	return out
}

// sortNumericStrings orders formatted floats by value.
func sortNumericStrings(s []string) {
	sort.Slice(s, func(i, j int) bool {
		a, _ := ParseNumber(s[i])
		b, _ := ParseNumber(s[j])
		return a < b
	})
}
