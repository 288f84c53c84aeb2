package skew

// transform.go holds the four candidate transforms.
//
// The scalar transforms (log, sqrt, cube) are total over the real line:
// log and sqrt map non-positive inputs to 0, cube is defined everywhere.
// Missing values (NaN) pass through unchanged.
//
// Box-Cox works on a whole column because its power parameter is fitted to
// the column. It only accepts strictly positive, non-constant data.

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// Transform identifies one of the candidate transforms.
type Transform string

const (
	Log    Transform = "log"
	Sqrt   Transform = "sqrt"
	BoxCox Transform = "box_cox"
	Cube   Transform = "cube"
)

// SearchOrder is the evaluation order of the automatic search.
// When two transforms reach the same absolute skew, the earlier one wins.
var SearchOrder = []Transform{Log, Sqrt, BoxCox, Cube}

// FallbackTransform is applied to manual overrides that name an unknown
// transform, unless strict overrides are enabled.
const FallbackTransform = Cube

// ParseTransform resolves a transform identifier such as "log" or "BOX_COX".
// The second return value is false when the identifier is not recognized.
func ParseTransform(s string) (Transform, bool) {
	switch Transform(strings.ToLower(strings.TrimSpace(s))) {
	case Log:
		return Log, true
	case Sqrt:
		return Sqrt, true
	case BoxCox:
		return BoxCox, true
	case Cube:
		return Cube, true
	default:
		return "", false
	}
}

// Label is the upper-case name used in report lines.
func (t Transform) Label() string {
	return strings.ToUpper(string(t))
}

// scalar returns the element-wise function for t.
// Box-Cox has no scalar form and returns nil.
func (t Transform) scalar() func(float64) float64 {
	switch t {
	case Log:
		return LogValue
	case Sqrt:
		return SqrtValue
	case Cube:
		return CubeValue
	default:
		return nil
	}
}

// LogValue returns ln(x) for x > 0 and 0 otherwise. A missing value is
// not > 0 and maps to 0.
func LogValue(x float64) float64 {
	if x > 0 {
		return math.Log(x)
	}
	return 0
}

// SqrtValue returns sqrt(x) for x > 0 and 0 otherwise, missing included.
func SqrtValue(x float64) float64 {
	if x > 0 {
		return math.Sqrt(x)
	}
	return 0
}

// CubeValue returns the real cube root of x. Missing stays missing.
func CubeValue(x float64) float64 {
	return math.Cbrt(x)
}

// ApplyScalar maps fn over values into a fresh slice.
func ApplyScalar(values []float64, fn func(float64) float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = fn(v)
	}
	return out
}

// Apply runs transform t over a column and returns a fresh slice.
// lambda is the fitted Box-Cox parameter and NaN for the other transforms.
func Apply(column string, t Transform, values []float64) (out []float64, lambda float64, err error) {
	if t == BoxCox {
		return BoxCoxColumn(column, values)
	}
	fn := t.scalar()
	if fn == nil {
		return nil, math.NaN(), &InvalidOptionError{Column: column, Value: string(t)}
	}
	return ApplyScalar(values, fn), math.NaN(), nil
}

// BoxCoxEligible reports whether every value is strictly positive.
// A missing value makes the column ineligible.
func BoxCoxEligible(values []float64) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if !(v > 0) {
			return false
		}
	}
	return true
}

// BoxCoxColumn fits the Box-Cox power parameter by maximum likelihood and
// returns the transformed column. The input is left untouched.
func BoxCoxColumn(column string, values []float64) ([]float64, float64, error) {
	lowest := math.Inf(1)
	for _, v := range values {
		if math.IsNaN(v) {
			return nil, math.NaN(), &DomainError{Column: column, Transform: BoxCox, Statistic: "missing", Value: v}
		}
		if v < lowest {
			lowest = v
		}
	}
	if len(values) == 0 || lowest <= 0 {
		return nil, math.NaN(), &DomainError{Column: column, Transform: BoxCox, Statistic: "min", Value: lowest}
	}

	logs := ApplyScalar(values, math.Log)
	_, logVar := stat.MeanVariance(logs, nil)
	if logVar == 0 || math.IsNaN(logVar) {
		return nil, math.NaN(), &DomainError{Column: column, Transform: BoxCox, Statistic: "variance", Value: 0}
	}

	lambda, err := fitBoxCoxLambda(values, logs)
	if err != nil {
		return nil, math.NaN(), fmt.Errorf("box_cox %s: %w", column, err)
	}
	return boxCoxValues(values, logs, lambda), lambda, nil
}

// fitBoxCoxLambda maximizes the profile log-likelihood
//
//	llf(λ) = (λ-1)·Σ ln x - n/2 · ln σ²(y_λ)
//
// where σ² is the population variance of the transformed column.
func fitBoxCoxLambda(values, logs []float64) (float64, error) {
	var sumLog float64
	for _, l := range logs {
		sumLog += l
	}
	n := float64(len(values))

	negLLF := func(x []float64) float64 {
		lambda := x[0]
		y := boxCoxValues(values, logs, lambda)
		variance := stat.PopVariance(y, nil)
		if !(variance > 0) || math.IsInf(variance, 0) {
			return math.Inf(1)
		}
		llf := (lambda-1)*sumLog - n/2*math.Log(variance)
		if math.IsNaN(llf) || math.IsInf(llf, 0) {
			return math.Inf(1)
		}
		return -llf
	}

	problem := optimize.Problem{Func: negLLF}
	result, err := optimize.Minimize(problem, []float64{1}, nil, &optimize.NelderMead{})
	if result == nil {
		return 0, fmt.Errorf("fit lambda: %w", err)
	}
	lambda := result.X[0]
	if math.IsNaN(lambda) || math.IsInf(lambda, 0) {
		return 0, fmt.Errorf("fit lambda: optimizer returned %v", lambda)
	}
	return lambda, nil
}

// boxCoxValues applies the one-parameter Box-Cox transform for a fixed λ.
func boxCoxValues(values, logs []float64, lambda float64) []float64 {
	out := make([]float64, len(values))
	if math.Abs(lambda) < 1e-12 {
		copy(out, logs)
		return out
	}
	for i, v := range values {
		out[i] = (math.Pow(v, lambda) - 1) / lambda
	}
	return out
}
