package export

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/tableclean/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanedFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f := frame.New("loan_payments")
	require.NoError(t, f.AddNumeric("loan_amount", []float64{8.99, math.NaN(), 9.39}))
	require.NoError(t, f.AddText("grade", []string{"A", "", "B,C"}, []bool{true, false, true}))
	return f
}

// fakeUploader records uploads in memory.
type fakeUploader struct {
	bucket, key string
	body        []byte
	err         error
}

func (u *fakeUploader) Upload(ctx context.Context, bucket, key string, body []byte) error {
	u.bucket, u.key, u.body = bucket, key, body
	return u.err
}

// ----------------------------------------------------------------------------
// CSV Tests
// ----------------------------------------------------------------------------

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, cleanedFrame(t)))

	want := "loan_amount,grade\n8.99,A\n,\n9.39,\"B,C\"\n"
	assert.Equal(t, want, buf.String())
}

func TestReadCSV(t *testing.T) {
	in := "\ufeffamount,term,grade\n1.5,36 months,A\n,60 months,\n-2,,B\n"

	f, err := ReadCSV(strings.NewReader(in), "upload")
	require.NoError(t, err)

	assert.Equal(t, []string{"amount", "term", "grade"}, f.ColumnNames())
	assert.Equal(t, []string{"amount"}, f.NumericNames())

	amount, _ := f.Numeric("amount")
	assert.Equal(t, 1.5, amount[0])
	assert.True(t, math.IsNaN(amount[1]))
	assert.Equal(t, -2.0, amount[2])

	grade, _ := f.Column("grade")
	assert.True(t, grade.IsNull(1))
	assert.Equal(t, "B", grade.StringAt(2))
}

func TestReadCSV_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, cleanedFrame(t)))

	f, err := ReadCSV(&buf, "again")
	require.NoError(t, err)

	amount, _ := f.Numeric("loan_amount")
	assert.Equal(t, 8.99, amount[0])
	assert.True(t, math.IsNaN(amount[1]))
}

// ----------------------------------------------------------------------------
// Parquet Tests
// ----------------------------------------------------------------------------

func TestParquet_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loans.parquet")
	require.NoError(t, WriteParquetFile(path, cleanedFrame(t)))

	f, err := ReadParquetFile(context.Background(), path, "loans")
	require.NoError(t, err)

	assert.Equal(t, []string{"loan_amount", "grade"}, f.ColumnNames())
	assert.Equal(t, 3, f.NumRows())

	amount, err := f.Numeric("loan_amount")
	require.NoError(t, err)
	assert.Equal(t, 8.99, amount[0])
	assert.True(t, math.IsNaN(amount[1]))
	assert.Equal(t, 9.39, amount[2])

	grade, _ := f.Column("grade")
	assert.Equal(t, "A", grade.StringAt(0))
	assert.True(t, grade.IsNull(1))
	assert.Equal(t, "B,C", grade.StringAt(2))
}

func TestSchema(t *testing.T) {
	schema := Schema(cleanedFrame(t))

	require.Equal(t, 2, schema.NumFields())
	assert.Equal(t, "float64", schema.Field(0).Type.Name())
	assert.Equal(t, "utf8", schema.Field(1).Type.Name())
	assert.True(t, schema.Field(0).Nullable)
}

// ----------------------------------------------------------------------------
// Exporter Tests
// ----------------------------------------------------------------------------

func TestExporter_Export(t *testing.T) {
	dir := t.TempDir()
	up := &fakeUploader{}
	e := NewExporter(up)

	out, err := e.Export(context.Background(), cleanedFrame(t), Target{
		Format: "PARQUET",
		Dir:    dir,
		Bucket: "cleaned",
		Prefix: "/runs/42/",
	})
	require.NoError(t, err)

	assert.Equal(t, FormatParquet, out.Format)
	assert.Equal(t, filepath.Join(dir, "loan_payments_clean.parquet"), out.Path)
	assert.Equal(t, "runs/42/loan_payments_clean.parquet", out.ObjectKey)
	assert.Equal(t, "cleaned", up.bucket)
	assert.Equal(t, out.ObjectKey, up.key)
	assert.Len(t, up.body, out.Bytes)

	info, err := os.Stat(out.Path)
	require.NoError(t, err)
	assert.Equal(t, int64(out.Bytes), info.Size())
}

func TestExporter_Errors(t *testing.T) {
	f := cleanedFrame(t)

	_, err := NewExporter(nil).Export(context.Background(), f, Target{Dir: t.TempDir(), Bucket: "b"})
	assert.ErrorContains(t, err, "object storage is not configured")

	_, err = NewExporter(nil).Export(context.Background(), f, Target{Dir: t.TempDir(), Format: "xlsx"})
	assert.ErrorContains(t, err, "unknown export format")

	up := &fakeUploader{err: errors.New("access denied")}
	_, err = NewExporter(up).Export(context.Background(), f, Target{Dir: t.TempDir(), Bucket: "b"})
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "a.csv", ObjectKey("", "/tmp/out/a.csv"))
	assert.Equal(t, "p/q/a.csv", ObjectKey("/p/q/", "out/a.csv"))
}

func TestFormatFromPath(t *testing.T) {
	got, err := FormatFromPath("x/Loans.PARQUET")
	require.NoError(t, err)
	assert.Equal(t, FormatParquet, got)

	_, err = FormatFromPath("x.json")
	assert.Error(t, err)
}
