// Package frame provides the in-memory columnar table that every cleaning
// stage reads and mutates.
//
// A Frame is an ordered list of named columns. Numeric columns hold float64
// values with NaN standing in for missing entries; text columns hold strings
// alongside a validity mask so that NULL and "" stay distinguishable.
//
// A Frame is owned by exactly one pipeline run at a time. Stages receive it by
// pointer, mutate columns in place, and hand the same pointer on.
package frame

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the storage type of a column.
type Kind int

const (
	KindNumeric Kind = iota
	KindText
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column is a single named column.
// Exactly one of Floats or Strings is populated depending on Kind.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64 // NaN marks a missing value
	Strings []string
	Valid   []bool // Validity mask for Strings; nil means all valid
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	if c.Kind == KindNumeric {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// IsNull reports whether row i holds a missing value.
func (c *Column) IsNull(i int) bool {
	if c.Kind == KindNumeric {
		return math.IsNaN(c.Floats[i])
	}
	return c.Valid != nil && !c.Valid[i]
}

// StringAt renders row i as text. Missing values render as "".
func (c *Column) StringAt(i int) string {
	if c.IsNull(i) {
		return ""
	}
	if c.Kind == KindNumeric {
		return FormatFloat(c.Floats[i])
	}
	return c.Strings[i]
}

// Frame is an ordered collection of equally long columns.
type Frame struct {
	Name    string
	columns []*Column
	index   map[string]int
}

// New creates an empty frame.
func New(name string) *Frame {
	return &Frame{
		Name:  name,
		index: make(map[string]int),
	}
}

// AddNumeric appends a numeric column. The slice is adopted, not copied.
func (f *Frame) AddNumeric(name string, values []float64) error {
	return f.add(&Column{Name: name, Kind: KindNumeric, Floats: values})
}

// AddText appends a text column. valid may be nil when every value is present.
func (f *Frame) AddText(name string, values []string, valid []bool) error {
	if valid != nil && len(valid) != len(values) {
		return fmt.Errorf("column %s: validity mask has %d entries for %d values", name, len(valid), len(values))
	}
	return f.add(&Column{Name: name, Kind: KindText, Strings: values, Valid: valid})
}

func (f *Frame) add(col *Column) error {
	if col.Name == "" {
		return fmt.Errorf("column name is empty")
	}
	if _, exists := f.index[col.Name]; exists {
		return fmt.Errorf("duplicate column: %s", col.Name)
	}
	if len(f.columns) > 0 && col.Len() != f.NumRows() {
		return fmt.Errorf("column %s has %d rows, frame has %d", col.Name, col.Len(), f.NumRows())
	}
	f.index[col.Name] = len(f.columns)
	f.columns = append(f.columns, col)
	return nil
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.columns[i], true
}

// Numeric returns the values of a numeric column.
// The returned slice aliases the frame's storage.
func (f *Frame) Numeric(name string) ([]float64, error) {
	col, ok := f.Column(name)
	if !ok {
		return nil, fmt.Errorf("column not found: %s", name)
	}
	if col.Kind != KindNumeric {
		return nil, fmt.Errorf("column %s is %s, not numeric", name, col.Kind)
	}
	return col.Floats, nil
}

// SetNumeric replaces the values of a numeric column, or converts a text
// column to numeric when normalization produced numbers.
func (f *Frame) SetNumeric(name string, values []float64) error {
	col, ok := f.Column(name)
	if !ok {
		return fmt.Errorf("column not found: %s", name)
	}
	if len(values) != col.Len() {
		return fmt.Errorf("column %s: got %d values, want %d", name, len(values), col.Len())
	}
	col.Kind = KindNumeric
	col.Floats = values
	col.Strings = nil
	col.Valid = nil
	return nil
}

// Columns returns the columns in order.
func (f *Frame) Columns() []*Column {
	return f.columns
}

// ColumnNames returns all column names in order.
func (f *Frame) ColumnNames() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// NumericNames returns the names of numeric columns in order.
func (f *Frame) NumericNames() []string {
	var names []string
	for _, c := range f.columns {
		if c.Kind == KindNumeric {
			names = append(names, c.Name)
		}
	}
	return names
}

// NumRows returns the row count (0 for an empty frame).
func (f *Frame) NumRows() int {
	if len(f.columns) == 0 {
		return 0
	}
	return f.columns[0].Len()
}

// NumColumns returns the column count.
func (f *Frame) NumColumns() int {
	return len(f.columns)
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := New(f.Name)
	for _, c := range f.columns {
		cp := &Column{Name: c.Name, Kind: c.Kind}
		if c.Floats != nil {
			cp.Floats = append([]float64(nil), c.Floats...)
		}
		if c.Strings != nil {
			cp.Strings = append([]string(nil), c.Strings...)
		}
		if c.Valid != nil {
			cp.Valid = append([]bool(nil), c.Valid...)
		}
		out.index[cp.Name] = len(out.columns)
		out.columns = append(out.columns, cp)
	}
	return out
}

// FormatFloat renders a float in the shortest form that round-trips,
// without an exponent. NaN renders as "".
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
