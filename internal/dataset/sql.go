package dataset

import (
	"database/sql"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// FromRows drains a result set into a frame. Column names come from the
// result set; NULL becomes a missing cell. Types are detected as for CSV.
func FromRows(rows *sql.Rows) (dataframe.DataFrame, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read columns: %w", err)
	}

	records := [][]string{cols}
	for rows.Next() {
		cells := make([]sql.NullString, len(cols))
		dest := make([]interface{}, len(cols))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("scan row: %w", err)
		}
		rec := make([]string, len(cols))
		for i, c := range cells {
			if c.Valid {
				rec[i] = c.String
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("iterate rows: %w", err)
	}

	if len(records) == 1 {
		return emptyFrame(cols), nil
	}
	return FromRecords(records)
}

func emptyFrame(cols []string) dataframe.DataFrame {
	ss := make([]series.Series, 0, len(cols))
	for _, c := range cols {
		ss = append(ss, StringSeries(c, []string{}))
	}
	return dataframe.New(ss...)
}
