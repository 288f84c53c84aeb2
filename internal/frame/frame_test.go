package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame(t *testing.T) *Frame {
	t.Helper()
	f := New("loans")
	require.NoError(t, f.AddNumeric("amount", []float64{100, math.NaN(), 250.5}))
	require.NoError(t, f.AddText("grade", []string{"A", "", "C"}, []bool{true, false, true}))
	require.NoError(t, f.AddNumeric("rate", []float64{0.1, 0.2, 0.3}))
	return f
}

func TestFrame_Add(t *testing.T) {
	f := sampleFrame(t)

	assert.Equal(t, 3, f.NumRows())
	assert.Equal(t, 3, f.NumColumns())
	assert.Equal(t, []string{"amount", "grade", "rate"}, f.ColumnNames())
	assert.Equal(t, []string{"amount", "rate"}, f.NumericNames())

	tests := []struct {
		name string
		add  func() error
	}{
		{"duplicate name", func() error { return f.AddNumeric("amount", []float64{1, 2, 3}) }},
		{"empty name", func() error { return f.AddNumeric("", []float64{1, 2, 3}) }},
		{"row mismatch", func() error { return f.AddNumeric("short", []float64{1}) }},
		{"mask mismatch", func() error { return f.AddText("bad", []string{"a", "b", "c"}, []bool{true}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.add())
		})
	}
	assert.Equal(t, 3, f.NumColumns())
}

func TestFrame_Numeric(t *testing.T) {
	f := sampleFrame(t)

	values, err := f.Numeric("rate")
	require.NoError(t, err)
	values[0] = 9

	again, _ := f.Numeric("rate")
	assert.Equal(t, 9.0, again[0], "Numeric aliases column storage")

	_, err = f.Numeric("grade")
	assert.ErrorContains(t, err, "not numeric")

	_, err = f.Numeric("missing")
	assert.ErrorContains(t, err, "not found")
}

func TestFrame_SetNumericConvertsText(t *testing.T) {
	f := sampleFrame(t)

	require.NoError(t, f.SetNumeric("grade", []float64{1, math.NaN(), 3}))

	col, ok := f.Column("grade")
	require.True(t, ok)
	assert.Equal(t, KindNumeric, col.Kind)
	assert.Nil(t, col.Strings)
	assert.Equal(t, []string{"amount", "grade", "rate"}, f.NumericNames())

	assert.Error(t, f.SetNumeric("grade", []float64{1}))
}

func TestColumn_StringAt(t *testing.T) {
	f := sampleFrame(t)

	amount, _ := f.Column("amount")
	assert.Equal(t, "100", amount.StringAt(0))
	assert.Equal(t, "", amount.StringAt(1))
	assert.Equal(t, "250.5", amount.StringAt(2))
	assert.True(t, amount.IsNull(1))

	grade, _ := f.Column("grade")
	assert.Equal(t, "A", grade.StringAt(0))
	assert.True(t, grade.IsNull(1))
	assert.False(t, grade.IsNull(2))
}

func TestFrame_CloneIsDeep(t *testing.T) {
	f := sampleFrame(t)
	c := f.Clone()

	values, _ := c.Numeric("rate")
	values[0] = 42

	orig, _ := f.Numeric("rate")
	assert.Equal(t, 0.1, orig[0])
	assert.Equal(t, f.ColumnNames(), c.ColumnNames())
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "1000000", FormatFloat(1e6))
	assert.Equal(t, "0.125", FormatFloat(0.125))
	assert.Equal(t, "-3", FormatFloat(-3))
	assert.Equal(t, "", FormatFloat(math.NaN()))
	assert.Equal(t, "text", KindText.String())
}
