package skew

import (
	"errors"
	"math"

	"github.com/JonMunkholm/tableclean/internal/frame"
)

// Selection is the outcome of the automatic search.
type Selection struct {
	Chosen  map[string]Transform
	Results []TransformResult // Grouped by transform in SearchOrder, skew table order within a group
}

// candidateColumn is a column taking part in the search.
// Box-Cox eligibility is computed once when the candidate set is built.
type candidateColumn struct {
	name     string
	values   []float64
	boxCoxOK bool
}

// evaluation is the best transform found for one candidate column.
type evaluation struct {
	column     candidateColumn
	transform  Transform
	output     []float64
	lambda     float64
	skewBefore float64
	skewAfter  float64
	matrix     []Candidate
}

// Candidates returns the columns eligible for automatic selection, in skew
// table order: |skew| >= threshold, Automatic policy, and non-constant data.
func Candidates(f *frame.Frame, table SkewTable, plan *Plan, threshold float64) []string {
	var out []string
	for _, c := range buildCandidates(f, table, plan, threshold) {
		out = append(out, c.name)
	}
	return out
}

func buildCandidates(f *frame.Frame, table SkewTable, plan *Plan, threshold float64) []candidateColumn {
	var out []candidateColumn
	seen := make(map[string]bool, len(table))
	for _, entry := range table {
		if seen[entry.Column] {
			continue
		}
		seen[entry.Column] = true

		if !(math.Abs(entry.Skew) >= threshold) {
			continue
		}
		if plan.Policy(entry.Column).Mode != ModeAutomatic {
			continue
		}
		values, err := f.Numeric(entry.Column)
		if err != nil || IsConstant(values) {
			continue
		}
		out = append(out, candidateColumn{
			name:     entry.Column,
			values:   values,
			boxCoxOK: BoxCoxEligible(values),
		})
	}
	return out
}

// Select runs the automatic search and writes each winning transform into
// the live column of f.
//
// For every candidate, each allowed transform in SearchOrder is applied to a
// copy of the column (Box-Cox only when the column is strictly positive) and
// the resulting skew is recorded. The transform with the smallest absolute
// skew wins; on a tie the earlier transform in SearchOrder is kept.
func Select(f *frame.Frame, table SkewTable, plan *Plan, threshold float64, allowed []Transform) (*Selection, error) {
	changes, err := search(f, table, plan, threshold, allowed)
	if err != nil {
		return nil, err
	}
	commit(changes)

	sel := &Selection{Chosen: make(map[string]Transform, len(changes))}
	for _, c := range changes {
		sel.Chosen[c.result.Column] = c.result.Transform
		sel.Results = append(sel.Results, c.result)
	}
	return sel, nil
}

// search evaluates every candidate without touching f and returns the
// pending changes grouped by transform in SearchOrder.
func search(f *frame.Frame, table SkewTable, plan *Plan, threshold float64, allowed []Transform) ([]change, error) {
	allow := make(map[Transform]bool, len(allowed))
	for _, t := range allowed {
		allow[t] = true
	}

	var evals []evaluation
	for _, cand := range buildCandidates(f, table, plan, threshold) {
		ev, err := evaluate(cand, allow)
		if err != nil {
			return nil, err
		}
		evals = append(evals, ev)
	}

	var changes []change
	for _, t := range SearchOrder {
		for _, ev := range evals {
			if ev.transform != t {
				continue
			}
			changes = append(changes, change{target: ev.column.values, output: ev.output, result: ev.result()})
		}
	}
	return changes, nil
}

// evaluate fills one row of the candidate matrix and keeps the minimum.
func evaluate(cand candidateColumn, allow map[Transform]bool) (evaluation, error) {
	ev := evaluation{
		column:     cand,
		skewBefore: Skewness(cand.values),
		lambda:     math.NaN(),
	}
	best := math.Inf(1)

	for _, t := range SearchOrder {
		if !allow[t] {
			continue
		}
		if t == BoxCox && !cand.boxCoxOK {
			continue
		}
		out, lambda, err := Apply(cand.name, t, cand.values)
		if err != nil {
			var domainErr *DomainError
			if errors.As(err, &domainErr) {
				continue
			}
			return ev, err
		}
		s := Skewness(out)
		ev.matrix = append(ev.matrix, Candidate{Transform: t, Skew: s})
		if math.Abs(s) < best {
			best = math.Abs(s)
			ev.transform = t
			ev.output = out
			ev.lambda = lambda
			ev.skewAfter = s
		}
	}

	if ev.transform == "" {
		return ev, &ConfigurationError{Field: "allowed", Column: cand.name, Reason: "no allowed transform applies"}
	}
	return ev, nil
}

func (ev evaluation) result() TransformResult {
	res := TransformResult{
		Column:     ev.column.name,
		Transform:  ev.transform,
		Mode:       ModeAutomatic,
		SkewBefore: ev.skewBefore,
		SkewAfter:  ev.skewAfter,
		Candidates: ev.matrix,
	}
	if !math.IsNaN(ev.lambda) {
		lambda := ev.lambda
		res.Lambda = &lambda
	}
	return res
}
