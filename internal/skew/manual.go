package skew

import (
	"math"

	"github.com/JonMunkholm/tableclean/internal/frame"
)

// change is a computed but not yet written column transform.
type change struct {
	target []float64 // Live column storage
	output []float64
	result TransformResult
}

// commit writes every pending change into its live column.
func commit(changes []change) {
	for _, c := range changes {
		copy(c.target, c.output)
	}
}

// ApplyManual applies every manual policy of plan to f, in frame order,
// bypassing the search. It returns one result per overridden column.
//
// A box_cox override on a column that is not strictly positive fails with a
// *DomainError and leaves f unchanged.
func ApplyManual(f *frame.Frame, plan *Plan) ([]TransformResult, error) {
	changes, err := manualChanges(f, plan)
	if err != nil {
		return nil, err
	}
	commit(changes)

	results := make([]TransformResult, len(changes))
	for i, c := range changes {
		results[i] = c.result
	}
	return results, nil
}

func manualChanges(f *frame.Frame, plan *Plan) ([]change, error) {
	var changes []change
	for _, cp := range plan.Manual() {
		values, err := f.Numeric(cp.Column)
		if err != nil {
			return nil, &ConfigurationError{Field: "manual", Column: cp.Column, Reason: err.Error()}
		}

		out, lambda, err := Apply(cp.Column, cp.Policy.Transform, values)
		if err != nil {
			return nil, err
		}

		res := TransformResult{
			Column:     cp.Column,
			Transform:  cp.Policy.Transform,
			Mode:       ModeManual,
			Requested:  cp.Policy.Requested,
			SkewBefore: Skewness(values),
			SkewAfter:  Skewness(out),
		}
		if !math.IsNaN(lambda) {
			res.Lambda = &lambda
		}
		changes = append(changes, change{target: values, output: out, result: res})
	}
	return changes, nil
}
