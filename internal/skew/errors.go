package skew

import "fmt"

// DomainError reports a transform requested on data outside its
// mathematical domain, such as Box-Cox on a column holding a value <= 0.
type DomainError struct {
	Column    string
	Transform Transform
	Statistic string  // Offending statistic: "min", "missing" or "variance"
	Value     float64 // Value of that statistic
}

func (e *DomainError) Error() string {
	switch e.Statistic {
	case "variance":
		return fmt.Sprintf("domain error: %s is undefined for constant column %s (variance = 0)",
			e.Transform, e.Column)
	case "missing":
		return fmt.Sprintf("domain error: %s requires complete data, column %s has missing values",
			e.Transform, e.Column)
	default:
		return fmt.Sprintf("domain error: %s requires strictly positive values, column %s has %s = %g",
			e.Transform, e.Column, e.Statistic, e.Value)
	}
}

// ConfigurationError reports invalid orchestration input. It is always
// detected before any column is modified.
type ConfigurationError struct {
	Field  string // "threshold", "manual", "skew_table" or "allowed"
	Column string // Empty when the problem is not column specific
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: column %s: %s", e.Field, e.Column, e.Reason)
}

// InvalidOptionError reports an unknown transform identifier. Outside strict
// mode unknown identifiers fall back to FallbackTransform instead.
type InvalidOptionError struct {
	Column string
	Value  string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid option: unknown transform %q for column %s (want one of log, sqrt, box_cox, cube)",
		e.Value, e.Column)
}
