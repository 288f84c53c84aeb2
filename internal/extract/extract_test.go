package extract

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/JonMunkholm/tableclean/internal/frame"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRows is an in-memory pgx.Rows.
type fakeRows struct {
	fields []pgconn.FieldDescription
	data   [][]any
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) Scan(dest ...any) error                       { return errors.New("not supported") }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.pos-1], nil
}

func numeric(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	require.NoError(t, n.Scan(s))
	return n
}

func TestFromRows(t *testing.T) {
	rows := &fakeRows{
		fields: []pgconn.FieldDescription{
			{Name: "id", DataTypeOID: pgtype.Int8OID},
			{Name: "loan_amount", DataTypeOID: pgtype.NumericOID},
			{Name: "int_rate", DataTypeOID: pgtype.Float8OID},
			{Name: "grade", DataTypeOID: pgtype.TextOID},
			{Name: "issue_date", DataTypeOID: pgtype.DateOID},
		},
		data: [][]any{
			{int64(1), numeric(t, "8000.50"), 7.49, "A", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
			{int64(2), nil, nil, nil, nil},
			{int64(3), numeric(t, "12000"), 13.5, "C", time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)},
		},
	}

	f, err := FromRows("loan_payments", rows)
	require.NoError(t, err)
	assert.True(t, rows.closed)

	assert.Equal(t, "loan_payments", f.Name)
	assert.Equal(t, 3, f.NumRows())
	assert.Equal(t, []string{"id", "loan_amount", "int_rate"}, f.NumericNames())

	amount, err := f.Numeric("loan_amount")
	require.NoError(t, err)
	assert.InDelta(t, 8000.5, amount[0], 1e-9)
	assert.True(t, math.IsNaN(amount[1]))
	assert.Equal(t, 12000.0, amount[2])

	grade, _ := f.Column("grade")
	assert.Equal(t, frame.KindText, grade.Kind)
	assert.Equal(t, "A", grade.StringAt(0))
	assert.True(t, grade.IsNull(1))

	dates, _ := f.Column("issue_date")
	assert.Equal(t, "2020-06-01", dates.StringAt(2))
}

func TestFromRows_Errors(t *testing.T) {
	t.Run("iteration error", func(t *testing.T) {
		rows := &fakeRows{
			fields: []pgconn.FieldDescription{{Name: "x", DataTypeOID: pgtype.Int4OID}},
			err:    errors.New("connection reset by peer"),
		}
		_, err := FromRows("t", rows)
		assert.ErrorContains(t, err, "connection reset")
		assert.True(t, rows.closed)
	})

	t.Run("unexpected numeric type", func(t *testing.T) {
		rows := &fakeRows{
			fields: []pgconn.FieldDescription{{Name: "x", DataTypeOID: pgtype.Int4OID}},
			data:   [][]any{{"seven"}},
		}
		_, err := FromRows("t", rows)
		assert.ErrorContains(t, err, "column x")
	})
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
	}{
		{"int16", int16(-3), -3},
		{"int32", int32(40), 40},
		{"int64", int64(1 << 40), 1 << 40},
		{"float32", float32(0.5), 0.5},
		{"float64", 2.25, 2.25},
		{"numeric", numeric(t, "-15.125"), -15.125},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToFloat(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, null := range []any{nil, pgtype.Numeric{}, pgtype.Numeric{NaN: true, Valid: true}} {
		got, err := ToFloat(null)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(got))
	}
}

func TestToText(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   string
		wantOK bool
	}{
		{"null", nil, "", false},
		{"string", "Jan-2021", "Jan-2021", true},
		{"bool", true, "true", true},
		{"date", time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), "2021-03-01", true},
		{"timestamp", time.Date(2021, 3, 1, 12, 30, 0, 0, time.UTC), "2021-03-01T12:30:00Z", true},
		{"uuid", [16]byte{0x55, 0x0e, 0x84, 0x00, 0xe2, 0x9b, 0x41, 0xd4, 0xa7, 0x16, 0x44, 0x66, 0x55, 0x44, 0x00, 0x00}, "550e8400-e29b-41d4-a716-446655440000", true},
		{"other", 42, "42", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToText(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTableIdentifier(t *testing.T) {
	ident, err := TableIdentifier("public.loan_payments")
	require.NoError(t, err)
	assert.Equal(t, `"public"."loan_payments"`, ident.Sanitize())

	for _, bad := range []string{"", "a.b.c", ".x", "x."} {
		_, err := TableIdentifier(bad)
		assert.Error(t, err, bad)
	}
}

func TestCreateTableSQLAndCopyRows(t *testing.T) {
	f := frame.New("clean")
	require.NoError(t, f.AddNumeric("amount", []float64{1.5, math.NaN()}))
	require.NoError(t, f.AddText("grade", []string{"A", ""}, []bool{true, false}))

	sql := CreateTableSQL(pgx.Identifier{"loans_clean"}, f)
	assert.Equal(t, `CREATE TABLE "loans_clean" ("amount" double precision, "grade" text)`, sql)

	assert.Equal(t, [][]any{{1.5, "A"}, {nil, nil}}, CopyRows(f))
}
