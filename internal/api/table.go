package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/ignite/marketing-analytics/internal/dataset"
)

// errBadInput marks request problems found before a pipeline runs.
var errBadInput = errors.New("bad input")

// tableRequest is the JSON form of an input table. Cells may be numbers,
// strings or null.
type tableRequest struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// tableResponse is the JSON form of an output table. Missing and
// non-finite numbers are null.
type tableResponse struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// readTable loads the request body as CSV (text/csv) or JSON
// (application/json, the tableRequest shape). The whole body is read
// before parsing so that a capped body fails instead of parsing a prefix.
func readTable(r *http.Request) (dataframe.DataFrame, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read body: %w", err)
	}
	body := bytes.NewReader(raw)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "text/csv", "application/csv":
		df, err := dataset.ReadCSV(body)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("%w: %v", errBadInput, err)
		}
		return df, nil
	case "application/json", "":
		var req tableRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("%w: invalid JSON: %v", errBadInput, err)
		}
		return req.frame()
	default:
		return dataframe.DataFrame{}, fmt.Errorf("%w: unsupported content type %q", errBadInput, mediaType)
	}
}

func (t tableRequest) frame() (dataframe.DataFrame, error) {
	if len(t.Columns) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: no columns", errBadInput)
	}
	records := make([][]string, 0, len(t.Rows)+1)
	records = append(records, t.Columns)
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return dataframe.DataFrame{}, fmt.Errorf("%w: row %d has %d cells, want %d", errBadInput, i, len(row), len(t.Columns))
		}
		rec := make([]string, len(row))
		for j, cell := range row {
			switch v := cell.(type) {
			case nil:
			case string:
				rec[j] = v
			case float64:
				rec[j] = strconv.FormatFloat(v, 'f', -1, 64)
			default:
				rec[j] = fmt.Sprint(v)
			}
		}
		records = append(records, rec)
	}
	df, err := dataset.FromRecords(records)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %v", errBadInput, err)
	}
	return df, nil
}

func jsonFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func floatPtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func toTableResponse(df dataframe.DataFrame) tableResponse {
	out := tableResponse{Columns: df.Names(), Rows: make([][]interface{}, df.Nrow())}
	cols := make([]series.Series, df.Ncol())
	for j := range cols {
		cols[j] = df.Col(out.Columns[j])
	}
	for i := range out.Rows {
		row := make([]interface{}, len(cols))
		for j, s := range cols {
			e := s.Elem(i)
			if e.IsNA() {
				continue
			}
			switch s.Type() {
			case series.Float:
				row[j] = jsonFloat(e.Float())
			case series.Int:
				row[j], _ = e.Int()
			case series.Bool:
				row[j], _ = e.Bool()
			default:
				row[j] = e.String()
			}
		}
		out.Rows[i] = row
	}
	return out
}

// wantsCSV reports whether the caller asked for a CSV table back.
func wantsCSV(r *http.Request) bool {
	if r.URL.Query().Get("format") == "csv" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/csv")
}

func writeCSV(w http.ResponseWriter, runID string, df dataframe.DataFrame) error {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("X-Run-ID", runID)
	w.WriteHeader(http.StatusOK)
	return dataset.WriteCSV(w, df)
}
