// Package segmentation builds customer segments from transaction history:
// per-customer Recency/Frequency/Monetary aggregation, then k-means
// clustering of the standardized RFM space scored by silhouette.
package segmentation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/ignite/marketing-analytics/internal/dataset"
	"github.com/ignite/marketing-analytics/internal/pkg/logger"
)

// RFM output columns, in order after the customer column.
const (
	ColRecency   = "Recency"
	ColFrequency = "Frequency"
	ColMonetary  = "Monetary"
)

// RFMColumns are the derived columns of ComputeRFM.
var RFMColumns = []string{ColRecency, ColFrequency, ColMonetary}

// Transaction is one purchase row.
type Transaction struct {
	CustomerID string
	Date       time.Time
	Amount     float64
}

// RFM is the per-customer aggregate.
type RFM struct {
	CustomerID string  `json:"customer_id"`
	Recency    int     `json:"recency"`
	Frequency  int     `json:"frequency"`
	Monetary   float64 `json:"monetary"`
}

// RFMOptions name the transaction columns and the optional reference date.
type RFMOptions struct {
	CustomerColumn string // "CustomerID"
	DateColumn     string // "InvoiceDate"
	AmountColumn   string // "Amount"
	// ReferenceDate is "YYYY-MM-DD". Empty means one day after the latest
	// transaction.
	ReferenceDate string
}

func (o RFMOptions) withDefaults() RFMOptions {
	if o.CustomerColumn == "" {
		o.CustomerColumn = "CustomerID"
	}
	if o.DateColumn == "" {
		o.DateColumn = "InvoiceDate"
	}
	if o.AmountColumn == "" {
		o.AmountColumn = "Amount"
	}
	return o
}

// DefaultReferenceDate is one day after the latest transaction date.
func DefaultReferenceDate(tx []Transaction) time.Time {
	var latest time.Time
	for i, t := range tx {
		if i == 0 || t.Date.After(latest) {
			latest = t.Date
		}
	}
	return latest.AddDate(0, 0, 1)
}

// Aggregate groups transactions by customer. Recency is the number of whole
// days (floored) between ref and the customer's latest transaction,
// Frequency the transaction count and Monetary the sum of amounts, missing
// amounts skipped. Rows without a customer id are dropped. Results are
// ordered by customer id, numerically when every id is a number.
func Aggregate(tx []Transaction, ref time.Time) []RFM {
	type acc struct {
		last  time.Time
		count int
		sum   float64
	}
	groups := make(map[string]*acc)
	for _, t := range tx {
		if t.CustomerID == "" {
			continue
		}
		g, ok := groups[t.CustomerID]
		if !ok {
			g = &acc{last: t.Date}
			groups[t.CustomerID] = g
		}
		if t.Date.After(g.last) {
			g.last = t.Date
		}
		g.count++
		if !math.IsNaN(t.Amount) {
			g.sum += t.Amount
		}
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sortCustomerIDs(ids)

	out := make([]RFM, len(ids))
	for i, id := range ids {
		g := groups[id]
		out[i] = RFM{
			CustomerID: id,
			Recency:    wholeDays(ref.Sub(g.last)),
			Frequency:  g.count,
			Monetary:   g.sum,
		}
	}
	return out
}

func wholeDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

func sortCustomerIDs(ids []string) {
	nums := make(map[string]float64, len(ids))
	for _, id := range ids {
		f, err := strconv.ParseFloat(id, 64)
		if err != nil {
			sort.Strings(ids)
			return
		}
		nums[id] = f
	}
	sort.Slice(ids, func(i, j int) bool { return nums[ids[i]] < nums[ids[j]] })
}

// Transactions reads the customer, date and amount columns of df.
func Transactions(df dataframe.DataFrame, opts RFMOptions) ([]Transaction, error) {
	opts = opts.withDefaults()

	ids, err := dataset.Strings(df, opts.CustomerColumn)
	if err != nil {
		return nil, err
	}
	rawDates, err := dataset.Strings(df, opts.DateColumn)
	if err != nil {
		return nil, err
	}
	amounts, err := dataset.Float(df, opts.AmountColumn)
	if err != nil {
		return nil, err
	}
	dates, err := dataset.Dates(rawDates, opts.DateColumn)
	if err != nil {
		return nil, err
	}

	out := make([]Transaction, len(ids))
	for i := range ids {
		out[i] = Transaction{CustomerID: ids[i], Date: dates[i], Amount: amounts[i]}
	}
	return out, nil
}

// ComputeRFM aggregates the transaction table df into one row per customer
// with the customer column followed by Recency, Frequency and Monetary.
func ComputeRFM(df dataframe.DataFrame, opts RFMOptions) (dataframe.DataFrame, error) {
	opts = opts.withDefaults()

	tx, err := Transactions(df, opts)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("compute rfm: %w", err)
	}

	ref := DefaultReferenceDate(tx)
	if opts.ReferenceDate != "" {
		ref, err = dataset.ParseDate(opts.ReferenceDate)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("compute rfm: reference date: %w", err)
		}
	}

	rows := Aggregate(tx, ref)
	logger.Info("rfm computed",
		"transactions", len(tx),
		"customers", len(rows),
		"reference_date", ref.Format("2006-01-02"),
	)
	return RFMFrame(opts.CustomerColumn, rows), nil
}

// RFMFrame lays out rows as a table keyed by customerColumn.
func RFMFrame(customerColumn string, rows []RFM) dataframe.DataFrame {
	ids := make([]string, len(rows))
	rec := make([]int, len(rows))
	freq := make([]int, len(rows))
	mon := make([]float64, len(rows))
	for i, r := range rows {
		ids[i], rec[i], freq[i], mon[i] = r.CustomerID, r.Recency, r.Frequency, r.Monetary
	}
	return dataframe.New(
		dataset.StringSeries(customerColumn, ids),
		dataset.IntSeries(ColRecency, rec),
		dataset.IntSeries(ColFrequency, freq),
		dataset.FloatSeries(ColMonetary, mon),
	)
}
