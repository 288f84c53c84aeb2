package export

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/JonMunkholm/tableclean/internal/frame"
	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
)

// Schema maps frame columns to nullable Arrow fields: numeric columns are
// float64, text columns utf8.
func Schema(f *frame.Frame) *arrow.Schema {
	fields := make([]arrow.Field, 0, f.NumColumns())
	for _, col := range f.Columns() {
		var typ arrow.DataType = arrow.BinaryTypes.String
		if col.Kind == frame.KindNumeric {
			typ = arrow.PrimitiveTypes.Float64
		}
		fields = append(fields, arrow.Field{Name: col.Name, Type: typ, Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

// Record builds an Arrow record from f. Missing values become nulls.
// The caller must Release the record.
func Record(mem memory.Allocator, f *frame.Frame) (arrow.Record, error) {
	schema := Schema(f)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, col := range f.Columns() {
		switch fb := b.Field(i).(type) {
		case *array.Float64Builder:
			valid := make([]bool, len(col.Floats))
			for r, v := range col.Floats {
				valid[r] = !math.IsNaN(v)
			}
			fb.AppendValues(col.Floats, valid)
		case *array.StringBuilder:
			valid := col.Valid
			if valid == nil {
				valid = make([]bool, len(col.Strings))
				for r := range valid {
					valid[r] = true
				}
			}
			fb.AppendValues(col.Strings, valid)
		default:
			return nil, errs.NewStackError(fmt.Errorf("column %s: unsupported builder %T", col.Name, fb))
		}
	}
	return b.NewRecord(), nil
}

// WriteParquet writes f as a single row group with column statistics.
func WriteParquet(w io.Writer, f *frame.Frame) error {
	mem := memory.NewGoAllocator()
	record, err := Record(mem, f)
	if err != nil {
		return err
	}
	defer record.Release()

	parquetWriteProps := parquet.NewWriterProperties(parquet.WithStats(true))
	arrowWriteProps := pqarrow.NewArrowWriterProperties()
	parquetFileWriter, err := pqarrow.NewFileWriter(record.Schema(), w, parquetWriteProps, arrowWriteProps)
	if err != nil {
		return errs.Wrap(err)
	}

	if err := parquetFileWriter.Write(record); err != nil {
		parquetFileWriter.Close()
		return errs.Wrap(err)
	}
	if err := parquetFileWriter.Close(); err != nil {
		return errs.Wrap(err)
	}
	return nil
}

// WriteParquetFile writes f to path, creating or truncating it.
func WriteParquetFile(path string, f *frame.Frame) error {
	out, err := os.Create(path)
	if err != nil {
		return errs.Wrap(err)
	}
	defer out.Close()

	return WriteParquet(out, f)
}

// ReadParquetFile reads every record of a parquet file into a frame. Float
// and integer columns become numeric, string columns text.
func ReadParquetFile(ctx context.Context, path, name string) (*frame.Frame, error) {
	mem := memory.NewGoAllocator()

	parquetFileReader, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer parquetFileReader.Close()

	arrowFileReader, err := pqarrow.NewFileReader(parquetFileReader, pqarrow.ArrowReadProperties{BatchSize: 1 << 16}, mem)
	if err != nil {
		return nil, errs.Wrap(err)
	}

	recordReader, err := arrowFileReader.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer recordReader.Release()

	schema := recordReader.Schema()
	builders := make([]*columnData, schema.NumFields())
	for i, field := range schema.Fields() {
		builders[i] = &columnData{name: field.Name}
	}

	for recordReader.Next() {
		rec := recordReader.Record()
		for i := 0; i < int(rec.NumCols()); i++ {
			if err := builders[i].appendArray(rec.Column(i)); err != nil {
				return nil, err
			}
		}
	}
	if err := recordReader.Err(); err != nil {
		return nil, errs.Wrap(err)
	}

	f := frame.New(name)
	for i, field := range schema.Fields() {
		b := builders[i]
		if isNumericType(field.Type) {
			err = f.AddNumeric(b.name, b.floats)
		} else {
			err = f.AddText(b.name, b.strings, b.valid)
		}
		if err != nil {
			return nil, errs.Wrap(err)
		}
	}
	return f, nil
}

func isNumericType(t arrow.DataType) bool {
	switch t.ID() {
	case arrow.FLOAT32, arrow.FLOAT64, arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		return true
	}
	return false
}

type columnData struct {
	name    string
	floats  []float64
	strings []string
	valid   []bool
}

func (c *columnData) appendArray(arr arrow.Array) error {
	for i := 0; i < arr.Len(); i++ {
		null := arr.IsNull(i)
		switch a := arr.(type) {
		case *array.Float64:
			c.floats = append(c.floats, floatOrNaN(null, a.Value(i)))
		case *array.Float32:
			c.floats = append(c.floats, floatOrNaN(null, float64(a.Value(i))))
		case *array.Int64:
			c.floats = append(c.floats, floatOrNaN(null, float64(a.Value(i))))
		case *array.Int32:
			c.floats = append(c.floats, floatOrNaN(null, float64(a.Value(i))))
		case *array.Int16:
			c.floats = append(c.floats, floatOrNaN(null, float64(a.Value(i))))
		case *array.Int8:
			c.floats = append(c.floats, floatOrNaN(null, float64(a.Value(i))))
		case *array.String:
			c.strings = append(c.strings, a.Value(i))
			c.valid = append(c.valid, !null)
		default:
			return errs.NewStackError(fmt.Errorf("column %s: unsupported arrow type %s", c.name, arr.DataType()))
		}
	}
	return nil
}

func floatOrNaN(null bool, v float64) float64 {
	if null {
		return math.NaN()
	}
	return v
}
