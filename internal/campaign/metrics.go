// Package campaign derives performance ratios for marketing campaigns:
// click-through rate, conversion rate, cost per conversion and ROI.
package campaign

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/ignite/marketing-analytics/internal/dataset"
)

// Input and output column names.
const (
	ColImpressions = "Impressions"
	ColClicks      = "Clicks"
	ColConversions = "Conversions"
	ColCost        = "Cost"
	ColRevenue     = "Revenue"

	ColCTR               = "CTR"
	ColConversionRate    = "ConversionRate"
	ColCostPerConversion = "CostPerConversion"
	ColROI               = "ROI"
)

// InputColumns are required by ComputeMetrics.
var InputColumns = []string{ColImpressions, ColClicks, ColConversions, ColCost, ColRevenue}

// Record is one campaign row.
type Record struct {
	Impressions float64 `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	Conversions float64 `json:"conversions"`
	Cost        float64 `json:"cost"`
	Revenue     float64 `json:"revenue"`
}

// Metrics are the ratios derived from a Record. NaN means missing.
type Metrics struct {
	CTR               float64 `json:"ctr"`
	ConversionRate    float64 `json:"conversion_rate"`
	CostPerConversion float64 `json:"cost_per_conversion"`
	ROI               float64 `json:"roi"`
}

// Compute derives the ratios for one record.
// ConversionRate and CostPerConversion are missing when their denominator is
// zero. CTR and ROI use plain float division, so 0/0 is NaN and x/0 is ±Inf.
func Compute(r Record) Metrics {
	return Metrics{
		CTR:               r.Clicks / r.Impressions,
		ConversionRate:    guardedDiv(r.Conversions, r.Clicks),
		CostPerConversion: guardedDiv(r.Cost, r.Conversions),
		ROI:               (r.Revenue - r.Cost) / r.Cost,
	}
}

func guardedDiv(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// ComputeMetrics returns a copy of df with CTR, ConversionRate,
// CostPerConversion and ROI appended. df itself is not modified.
func ComputeMetrics(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	records, err := Records(df)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	n := len(records)
	ctr := make([]float64, n)
	conv := make([]float64, n)
	cpc := make([]float64, n)
	roi := make([]float64, n)
	for i, r := range records {
		m := Compute(r)
		ctr[i], conv[i], cpc[i], roi[i] = m.CTR, m.ConversionRate, m.CostPerConversion, m.ROI
	}

	out := df.Copy().
		Mutate(dataset.FloatSeries(ColCTR, ctr)).
		Mutate(dataset.FloatSeries(ColConversionRate, conv)).
		Mutate(dataset.FloatSeries(ColCostPerConversion, cpc)).
		Mutate(dataset.FloatSeries(ColROI, roi))
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("append metric columns: %w", out.Err)
	}
	return out, nil
}

// Records reads the five input columns of df into typed records.
func Records(df dataframe.DataFrame) ([]Record, error) {
	cols := make(map[string][]float64, len(InputColumns))
	for _, name := range InputColumns {
		vals, err := dataset.Float(df, name)
		if err != nil {
			return nil, fmt.Errorf("campaign metrics: %w", err)
		}
		cols[name] = vals
	}

	out := make([]Record, df.Nrow())
	for i := range out {
		out[i] = Record{
			Impressions: cols[ColImpressions][i],
			Clicks:      cols[ColClicks][i],
			Conversions: cols[ColConversions][i],
			Cost:        cols[ColCost][i],
			Revenue:     cols[ColRevenue][i],
		}
	}
	return out, nil
}
