package skew

import (
	"sort"

	"github.com/JonMunkholm/tableclean/internal/frame"
)

// Mode says how a column's transform is chosen.
type Mode string

const (
	ModeAutomatic Mode = "automatic"
	ModeManual    Mode = "manual"
)

// Policy is the per-column selection policy: either Automatic, or Manual
// with a fixed transform.
type Policy struct {
	Mode      Mode
	Transform Transform // Set for ModeManual
	Requested string    // Identifier as supplied by the caller, for ModeManual
	Fallback  bool      // Requested was unknown and Transform is FallbackTransform
}

// Automatic is the policy of every column without an override.
func Automatic() Policy {
	return Policy{Mode: ModeAutomatic}
}

// ColumnPolicy pairs a column with its policy.
type ColumnPolicy struct {
	Column string
	Policy Policy
}

// Plan holds the policy of every numeric column in frame order.
type Plan struct {
	columns []ColumnPolicy
	byName  map[string]Policy
}

// Policy returns the policy for column. Columns outside the plan are Automatic.
func (p *Plan) Policy(column string) Policy {
	if pol, ok := p.byName[column]; ok {
		return pol
	}
	return Automatic()
}

// Manual returns the manually overridden columns in frame order.
func (p *Plan) Manual() []ColumnPolicy {
	var out []ColumnPolicy
	for _, cp := range p.columns {
		if cp.Policy.Mode == ModeManual {
			out = append(out, cp)
		}
	}
	return out
}

// Partition assigns a policy to every numeric column of f in a single pass.
//
// Every key of manual must name a numeric column of f. Unknown transform
// identifiers resolve to FallbackTransform, or fail with an
// *InvalidOptionError when strict is set.
func Partition(f *frame.Frame, manual map[string]string, strict bool) (*Plan, error) {
	for _, name := range sortedKeys(manual) {
		col, ok := f.Column(name)
		if !ok {
			return nil, &ConfigurationError{Field: "manual", Column: name, Reason: "column not found"}
		}
		if col.Kind != frame.KindNumeric {
			return nil, &ConfigurationError{Field: "manual", Column: name, Reason: "column is not numeric"}
		}
	}

	plan := &Plan{byName: make(map[string]Policy)}
	for _, col := range f.Columns() {
		if col.Kind != frame.KindNumeric {
			continue
		}
		pol := Automatic()
		if requested, ok := manual[col.Name]; ok {
			t, known := ParseTransform(requested)
			if !known {
				if strict {
					return nil, &InvalidOptionError{Column: col.Name, Value: requested}
				}
				t = FallbackTransform
			}
			pol = Policy{Mode: ModeManual, Transform: t, Requested: requested, Fallback: !known}
		}
		plan.columns = append(plan.columns, ColumnPolicy{Column: col.Name, Policy: pol})
		plan.byName[col.Name] = pol
	}
	return plan, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
