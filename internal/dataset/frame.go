package dataset

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var (
	// ErrColumnNotFound is returned when a required column is absent.
	ErrColumnNotFound = errors.New("column not found")
	// ErrNotNumeric is returned when a numeric column holds a non-numeric cell.
	ErrNotNumeric = errors.New("column is not numeric")
)

// nanValues are the cells treated as missing on load.
var nanValues = []string{"", "NA", "NaN", "nan", "<nil>", "null", "NULL"}

// ReadCSV loads a CSV stream with a header row. Column types are detected.
func ReadCSV(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(nanValues),
	)
	if df.Err != nil {
		return df, fmt.Errorf("read csv: %w", df.Err)
	}
	return df, nil
}

// FromRecords builds a frame from a header row followed by data rows.
func FromRecords(records [][]string) (dataframe.DataFrame, error) {
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(nanValues),
	)
	if df.Err != nil {
		return df, fmt.Errorf("load records: %w", df.Err)
	}
	return df, nil
}

// WriteCSV writes df with a header row.
func WriteCSV(w io.Writer, df dataframe.DataFrame) error {
	return df.WriteCSV(w, dataframe.WriteHeader(true))
}

// Column looks up a column, returning ErrColumnNotFound if it is absent.
func Column(df dataframe.DataFrame, name string) (series.Series, error) {
	for _, n := range df.Names() {
		if n == name {
			return df.Col(name), nil
		}
	}
	return series.Series{}, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// Require checks that every named column is present.
func Require(df dataframe.DataFrame, names ...string) error {
	for _, n := range names {
		if _, err := Column(df, n); err != nil {
			return err
		}
	}
	return nil
}

// Float returns a column as float64 values. Missing cells are NaN.
// String columns are parsed cell by cell; an unparseable cell is an error.
func Float(df dataframe.DataFrame, name string) ([]float64, error) {
	s, err := Column(df, name)
	if err != nil {
		return nil, err
	}
	switch s.Type() {
	case series.Float, series.Int, series.Bool:
		return s.Float(), nil
	}

	out := make([]float64, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		raw := strings.TrimSpace(e.String())
		if e.IsNA() || raw == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q row %d value %q", ErrNotNumeric, name, i, raw)
		}
		out[i] = v
	}
	return out, nil
}

// Strings returns a column's cells as strings. Missing cells are "".
// Integral floats render without a fractional part so numeric ids stay stable
// whether the column was detected as int or float.
func Strings(df dataframe.DataFrame, name string) ([]string, error) {
	s, err := Column(df, name)
	if err != nil {
		return nil, err
	}
	out := make([]string, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		if s.Type() == series.Float {
			f := e.Float()
			if f == math.Trunc(f) && math.Abs(f) < 1e15 {
				out[i] = strconv.FormatInt(int64(f), 10)
				continue
			}
			out[i] = strconv.FormatFloat(f, 'f', -1, 64)
			continue
		}
		out[i] = e.String()
	}
	return out, nil
}

// FloatSeries builds a float column; NaN entries read back as missing.
func FloatSeries(name string, values []float64) series.Series {
	return series.New(values, series.Float, name)
}

// IntSeries builds an int column.
func IntSeries(name string, values []int) series.Series {
	return series.New(values, series.Int, name)
}

// StringSeries builds a string column.
func StringSeries(name string, values []string) series.Series {
	return series.New(values, series.String, name)
}
