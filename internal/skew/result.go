package skew

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Candidate is one cell of the candidate matrix: the skew a column would
// have after a transform.
type Candidate struct {
	Transform Transform `json:"transform"`
	Skew      float64   `json:"skew"`
}

// TransformResult records one transformed column.
type TransformResult struct {
	Column     string      `json:"column"`
	Transform  Transform   `json:"transform"`
	Mode       Mode        `json:"mode"`
	Requested  string      `json:"requested,omitempty"`
	SkewBefore float64     `json:"skew_before"`
	SkewAfter  float64     `json:"skew_after"`
	Lambda     *float64    `json:"lambda,omitempty"`     // Fitted Box-Cox parameter
	Candidates []Candidate `json:"candidates,omitempty"` // Automatic selections only
}

// String renders the audit line for the result.
func (r TransformResult) String() string {
	return fmt.Sprintf("Column %s skew was changed from %s to %s using transform %s",
		strings.ToUpper(r.Column), formatSkew(r.SkewBefore), formatSkew(r.SkewAfter), r.Label())
}

// Label is the transform name printed in the audit line. Manual results
// print the identifier as requested, so a cube fallback still shows what
// was asked for. Automatic cube winners print CUBED.
func (r TransformResult) Label() string {
	if r.Mode == ModeManual && strings.TrimSpace(r.Requested) != "" {
		return strings.ToUpper(strings.TrimSpace(r.Requested))
	}
	if r.Mode == ModeAutomatic && r.Transform == Cube {
		return "CUBED"
	}
	return r.Transform.Label()
}

// formatSkew rounds to two decimals and prints the shortest form.
func formatSkew(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// Report is the ordered outcome of one orchestration pass: manual results
// first, then automatic results grouped by winning transform.
type Report struct {
	Results []TransformResult `json:"results"`
}

// Lines returns the human-readable audit lines in report order.
func (r *Report) Lines() []string {
	lines := make([]string, len(r.Results))
	for i, res := range r.Results {
		lines[i] = res.String()
	}
	return lines
}

// Chosen maps each transformed column to its transform.
func (r *Report) Chosen() map[string]Transform {
	out := make(map[string]Transform, len(r.Results))
	for _, res := range r.Results {
		out[res.Column] = res.Transform
	}
	return out
}

// Count returns how many columns used transform t.
func (r *Report) Count(t Transform) int {
	n := 0
	for _, res := range r.Results {
		if res.Transform == t {
			n++
		}
	}
	return n
}
