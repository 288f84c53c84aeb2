// Package outlier suppresses extreme values in numeric frame columns.
//
// Two methods are supported:
//   - IQR: values outside [q1 - 1.5*IQR, q3 + 1.5*IQR] are replaced by the median.
//     Suited to heavily skewed data.
//   - z-score: values with |z| above a threshold are replaced by the mean.
//     Suited to roughly symmetric data.
//
// Missing values (NaN) are ignored by every statistic and never replaced.
package outlier

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/JonMunkholm/tableclean/internal/frame"
	"github.com/JonMunkholm/tableclean/internal/logging"
	"gonum.org/v1/gonum/stat"
)

// Method selects the outlier detection rule.
type Method string

const (
	MethodIQR    Method = "iqr"
	MethodZScore Method = "z_score"
)

// DefaultZThreshold is the |z| above which a value counts as an outlier.
const DefaultZThreshold = 3.0

// iqrFactor widens the interquartile fences.
const iqrFactor = 1.5

// ParseMethod accepts "iqr" and "z_score" in any case. "zscore" and
// "z_scores" are accepted as aliases.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "iqr":
		return MethodIQR, nil
	case "z_score", "z_scores", "zscore":
		return MethodZScore, nil
	default:
		return "", fmt.Errorf("unknown outlier method %q (want iqr or z_score)", s)
	}
}

// Outlier is one replaced value.
type Outlier struct {
	Row   int     `json:"row"`
	Value float64 `json:"value"`
}

// Result describes what happened to one column.
type Result struct {
	Column      string    `json:"column"`
	Method      Method    `json:"method"`
	Lower       float64   `json:"lower"`
	Upper       float64   `json:"upper"`
	Replacement float64   `json:"replacement"`
	Outliers    []Outlier `json:"outliers,omitempty"`
}

// Options configures Replace.
type Options struct {
	Method     Method
	ZThreshold float64  // z-score only; <= 0 means DefaultZThreshold
	Columns    []string // Empty means every numeric column
}

// Replace applies the configured method to each selected column of f in
// place and returns one Result per column, in frame order.
func Replace(ctx context.Context, f *frame.Frame, opts Options) ([]Result, error) {
	logger := logging.FromContext(ctx).With("frame", f.Name, "method", string(opts.Method))

	columns := opts.Columns
	if len(columns) == 0 {
		columns = f.NumericNames()
	}

	var results []Result
	for _, name := range columns {
		values, err := f.Numeric(name)
		if err != nil {
			return nil, err
		}

		var res Result
		switch opts.Method {
		case MethodIQR:
			res = IQR(values)
		case MethodZScore:
			res = ZScore(values, opts.ZThreshold)
		default:
			return nil, fmt.Errorf("unknown outlier method %q", opts.Method)
		}
		res.Column = name

		if len(res.Outliers) > 0 {
			logger.Debug("outliers replaced",
				"column", name,
				"count", len(res.Outliers),
				"replacement", res.Replacement,
			)
		}
		results = append(results, res)
	}
	return results, nil
}

// IQR replaces values outside the Tukey fences with the median.
// Quartiles use linear interpolation between closest ranks.
func IQR(values []float64) Result {
	res := Result{Method: MethodIQR}

	sorted := present(values)
	if len(sorted) == 0 {
		return res
	}
	sort.Float64s(sorted)

	q1 := Percentile(sorted, 25)
	q3 := Percentile(sorted, 75)
	iqr := q3 - q1
	res.Lower = q1 - iqrFactor*iqr
	res.Upper = q3 + iqrFactor*iqr
	res.Replacement = Percentile(sorted, 50)

	for i, v := range values {
		if v < res.Lower || v > res.Upper {
			res.Outliers = append(res.Outliers, Outlier{Row: i, Value: v})
			values[i] = res.Replacement
		}
	}
	return res
}

// ZScore replaces values whose standardized distance from the mean exceeds
// threshold with the mean. The standard deviation is the sample one.
func ZScore(values []float64, threshold float64) Result {
	if threshold <= 0 {
		threshold = DefaultZThreshold
	}
	res := Result{Method: MethodZScore}

	data := present(values)
	if len(data) < 2 {
		return res
	}

	mean, std := stat.MeanStdDev(data, nil)
	res.Replacement = mean
	res.Lower = mean - threshold*std
	res.Upper = mean + threshold*std
	if std == 0 || math.IsNaN(std) {
		return res
	}

	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.Abs((v-mean)/std) > threshold {
			res.Outliers = append(res.Outliers, Outlier{Row: i, Value: v})
			values[i] = mean
		}
	}
	return res
}

// Percentile returns the p-th percentile (0..100) of sorted data using
// linear interpolation between the two closest ranks.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}

	pos := p / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		return sorted[0]
	}
	if hi >= n {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func present(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
