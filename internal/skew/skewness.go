package skew

import (
	"math"

	"github.com/JonMunkholm/tableclean/internal/frame"
	"gonum.org/v1/gonum/stat"
)

// varianceEpsilon is the variance below which a column counts as constant.
// Floating point noise on identical values stays well under it.
const varianceEpsilon = 1e-14

// Skewness returns the adjusted Fisher-Pearson skewness (G1) of the
// non-missing values. It returns 0 when fewer than three values are present
// or the values have zero variance, where the moment ratio is undefined.
func Skewness(values []float64) float64 {
	present := presentValues(values)
	if len(present) < 3 || isConstant(present) {
		return 0
	}
	s := stat.Skew(present, nil)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

// IsConstant reports whether the non-missing values have zero variance.
// An all-missing column is constant.
func IsConstant(values []float64) bool {
	return isConstant(presentValues(values))
}

func isConstant(present []float64) bool {
	if len(present) < 2 {
		return true
	}
	_, variance := stat.MeanVariance(present, nil)
	return !(variance > varianceEpsilon)
}

// presentValues drops NaN entries. The input is returned as-is when nothing
// is missing.
func presentValues(values []float64) []float64 {
	missing := 0
	for _, v := range values {
		if math.IsNaN(v) {
			missing++
		}
	}
	if missing == 0 {
		return values
	}
	out := make([]float64, 0, len(values)-missing)
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// SkewEntry is the precomputed skew of one column.
type SkewEntry struct {
	Column string  `json:"column" yaml:"column"`
	Skew   float64 `json:"skew" yaml:"skew"`
}

// SkewTable is an ordered list of precomputed column skews.
// Its order is the reporting order inside each transform group.
type SkewTable []SkewEntry

// Lookup returns the skew recorded for column.
func (t SkewTable) Lookup(column string) (float64, bool) {
	for _, e := range t {
		if e.Column == column {
			return e.Skew, true
		}
	}
	return 0, false
}

// Columns returns the column names in table order.
func (t SkewTable) Columns() []string {
	names := make([]string, len(t))
	for i, e := range t {
		names[i] = e.Column
	}
	return names
}

// ComputeSkewTable measures every numeric column of f in column order.
func ComputeSkewTable(f *frame.Frame) SkewTable {
	var table SkewTable
	for _, col := range f.Columns() {
		if col.Kind != frame.KindNumeric {
			continue
		}
		table = append(table, SkewEntry{Column: col.Name, Skew: Skewness(col.Floats)})
	}
	return table
}
