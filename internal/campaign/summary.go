package campaign

import "github.com/go-gota/gota/dataframe"

// Summary aggregates a set of campaigns. Ratios are blended over the totals
// and follow the same missing-value rules as Compute.
type Summary struct {
	Campaigns   int     `json:"campaigns"`
	Impressions float64 `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	Conversions float64 `json:"conversions"`
	Cost        float64 `json:"cost"`
	Revenue     float64 `json:"revenue"`
	Metrics
}

// Summarize totals the input columns of df. Missing cells are skipped.
func Summarize(df dataframe.DataFrame) (Summary, error) {
	records, err := Records(df)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{Campaigns: len(records)}
	for _, r := range records {
		s.Impressions += skipNaN(r.Impressions)
		s.Clicks += skipNaN(r.Clicks)
		s.Conversions += skipNaN(r.Conversions)
		s.Cost += skipNaN(r.Cost)
		s.Revenue += skipNaN(r.Revenue)
	}
	s.Metrics = Compute(Record{
		Impressions: s.Impressions,
		Clicks:      s.Clicks,
		Conversions: s.Conversions,
		Cost:        s.Cost,
		Revenue:     s.Revenue,
	})
	return s, nil
}

func skipNaN(v float64) float64 {
	if v != v {
		return 0
	}
	return v
}
