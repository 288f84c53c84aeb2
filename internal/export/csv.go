// Package export writes cleaned frames to files and object storage, and
// reads frames back from the same file formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/JonMunkholm/tableclean/internal/frame"
	"github.com/alekLukanen/errs"
)

// Format is an export file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ParseFormat accepts "csv" and "parquet" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	}
	return "", fmt.Errorf("unknown export format %q (want csv or parquet)", s)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV, nil
	case strings.HasSuffix(lower, ".parquet"):
		return FormatParquet, nil
	}
	return "", fmt.Errorf("cannot infer format of %s", path)
}

// WriteCSV writes f with a header row. Missing values are empty cells.
func WriteCSV(w io.Writer, f *frame.Frame) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(f.ColumnNames()); err != nil {
		return errs.Wrap(err)
	}

	cols := f.Columns()
	record := make([]string, len(cols))
	for i := 0; i < f.NumRows(); i++ {
		for j, col := range cols {
			record[j] = col.StringAt(i)
		}
		if err := cw.Write(record); err != nil {
			return errs.Wrap(err, fmt.Errorf("row %d", i))
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errs.Wrap(err)
	}
	return nil
}

// ReadCSV reads a CSV file with a header row into a frame. A column is
// numeric when every non-empty cell parses as a number; empty cells are
// missing values.
func ReadCSV(r io.Reader, name string) (*frame.Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("read header"))
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	cells := make([][]string, len(header))
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(err)
		}
		for j := range header {
			cells[j] = append(cells[j], record[j])
		}
	}

	f := frame.New(name)
	for j, colName := range header {
		colName = strings.TrimSpace(colName)
		if floats, ok := parseFloats(cells[j]); ok {
			err = f.AddNumeric(colName, floats)
		} else {
			valid := make([]bool, len(cells[j]))
			for i, s := range cells[j] {
				valid[i] = s != ""
			}
			err = f.AddText(colName, cells[j], valid)
		}
		if err != nil {
			return nil, errs.Wrap(err)
		}
	}
	return f, nil
}

func parseFloats(cells []string) ([]float64, bool) {
	out := make([]float64, len(cells))
	present := 0
	for i, s := range cells {
		s = strings.TrimSpace(s)
		if s == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
		present++
	}
	return out, present > 0
}

// WriteCSVFile writes f to path, creating or truncating it.
func WriteCSVFile(path string, f *frame.Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return errs.Wrap(err)
	}
	if err := WriteCSV(file, f); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return errs.Wrap(err)
	}
	return nil
}
