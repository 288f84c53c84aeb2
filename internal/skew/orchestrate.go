package skew

import (
	"context"
	"fmt"
	"math"

	"github.com/JonMunkholm/tableclean/internal/frame"
	"github.com/JonMunkholm/tableclean/internal/logging"
)

// DefaultThreshold is the minimum |skew| for automatic treatment.
const DefaultThreshold = 1.0

// Options controls one orchestration pass.
type Options struct {
	// Threshold is the minimum |skew| a column needs to be searched.
	Threshold float64

	// Manual maps column names to transform identifiers (log, sqrt, box_cox, cube).
	// These columns bypass the search.
	Manual map[string]string

	// StrictOverrides turns unknown identifiers in Manual into an
	// *InvalidOptionError instead of falling back to cube.
	StrictOverrides bool

	// Allowed restricts the search to a subset of SearchOrder. Empty means all.
	Allowed []Transform
}

// DefaultOptions returns the default threshold and no overrides.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold}
}

// Orchestrate reduces skew across the numeric columns of f.
//
// Manual overrides are applied first, then every remaining column whose
// |skew| in table meets the threshold gets the transform that minimizes its
// absolute skew. Columns are mutated in place. All input is validated and
// every transform computed before the first column is written, so a failed
// call leaves f unchanged.
//
// The report lists manual results in frame order, then automatic results
// grouped log, sqrt, box_cox, cube, in table order within each group.
func Orchestrate(ctx context.Context, f *frame.Frame, table SkewTable, opts Options) (*Report, error) {
	logger := logging.FromContext(ctx).With("frame", f.Name)

	allowed, err := validate(f, table, opts)
	if err != nil {
		return nil, err
	}

	plan, err := Partition(f, opts.Manual, opts.StrictOverrides)
	if err != nil {
		return nil, err
	}
	for _, cp := range plan.Manual() {
		if cp.Policy.Fallback {
			logger.Warn("unknown transform in manual mapping, using fallback",
				"column", cp.Column,
				"requested", cp.Policy.Requested,
				"fallback", string(FallbackTransform),
			)
		}
	}

	manual, err := manualChanges(f, plan)
	if err != nil {
		return nil, err
	}
	automatic, err := search(f, table, plan, opts.Threshold, allowed)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	commit(manual)
	commit(automatic)

	report := &Report{Results: make([]TransformResult, 0, len(manual)+len(automatic))}
	for _, c := range manual {
		report.Results = append(report.Results, c.result)
	}
	for _, c := range automatic {
		report.Results = append(report.Results, c.result)
	}

	for _, res := range report.Results {
		logger.Debug("column transformed",
			"column", res.Column,
			"transform", string(res.Transform),
			"mode", string(res.Mode),
			"skew_before", res.SkewBefore,
			"skew_after", res.SkewAfter,
		)
	}
	logger.Info("skew reduction complete",
		"manual", len(manual),
		"automatic", len(automatic),
		"threshold", opts.Threshold,
	)
	return report, nil
}

// validate checks everything that does not depend on the manual mapping and
// returns the effective search set.
func validate(f *frame.Frame, table SkewTable, opts Options) ([]Transform, error) {
	if math.IsNaN(opts.Threshold) || math.IsInf(opts.Threshold, 0) || opts.Threshold < 0 {
		return nil, &ConfigurationError{
			Field:  "threshold",
			Reason: fmt.Sprintf("must be a finite number >= 0, got %g", opts.Threshold),
		}
	}

	for _, entry := range table {
		col, ok := f.Column(entry.Column)
		if !ok {
			return nil, &ConfigurationError{Field: "skew_table", Column: entry.Column, Reason: "column not found"}
		}
		if col.Kind != frame.KindNumeric {
			return nil, &ConfigurationError{Field: "skew_table", Column: entry.Column, Reason: "column is not numeric"}
		}
	}

	return allowedTransforms(opts.Allowed)
}

// allowedTransforms returns the requested subset in SearchOrder.
// At least one of log, sqrt or cube must remain so every candidate has a winner.
func allowedTransforms(requested []Transform) ([]Transform, error) {
	if len(requested) == 0 {
		return SearchOrder, nil
	}

	want := make(map[Transform]bool, len(requested))
	for _, t := range requested {
		parsed, ok := ParseTransform(string(t))
		if !ok {
			return nil, &ConfigurationError{Field: "allowed", Reason: fmt.Sprintf("unknown transform %q", t)}
		}
		want[parsed] = true
	}

	var out []Transform
	total := false
	for _, t := range SearchOrder {
		if !want[t] {
			continue
		}
		out = append(out, t)
		if t != BoxCox {
			total = true
		}
	}
	if !total {
		return nil, &ConfigurationError{Field: "allowed", Reason: "must include at least one of log, sqrt, cube"}
	}
	return out, nil
}
