package segmentation

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/ignite/marketing-analytics/internal/dataset"
	"github.com/ignite/marketing-analytics/internal/pkg/logger"
)

// ColCluster is appended by ClusterRFM.
const ColCluster = "Cluster"

// ClusterOptions control ClusterRFM. A zero Clusters or NInit falls back
// to the default; Seed is used as given.
type ClusterOptions struct {
	Clusters int   // 4
	Seed     int64 // DefaultClusterOptions sets 42
	NInit    int   // 1
}

// DefaultClusterOptions returns 4 clusters, seed 42 and a single k-means run.
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{Clusters: 4, Seed: 42, NInit: 1}
}

func (o ClusterOptions) withDefaults() ClusterOptions {
	if o.Clusters == 0 {
		o.Clusters = 4
	}
	if o.NInit == 0 {
		o.NInit = 1
	}
	return o
}

// Profile describes one cluster in original RFM units.
type Profile struct {
	Cluster       int     `json:"cluster"`
	Customers     int     `json:"customers"`
	MeanRecency   float64 `json:"mean_recency"`
	MeanFrequency float64 `json:"mean_frequency"`
	MeanMonetary  float64 `json:"mean_monetary"`
}

// ClusterResult is the clustered RFM table and its quality score.
type ClusterResult struct {
	Table dataframe.DataFrame
	// Score is the silhouette of the labelling, NaN for a single cluster.
	Score    float64
	Labels   []int
	Inertia  float64
	Profiles []Profile
}

// RFMMatrix reads the Recency, Frequency and Monetary columns of df as
// one row per customer.
func RFMMatrix(df dataframe.DataFrame) ([][]float64, error) {
	cols := make([][]float64, len(RFMColumns))
	for j, name := range RFMColumns {
		vals, err := dataset.Float(df, name)
		if err != nil {
			return nil, err
		}
		cols[j] = vals
	}
	X := make([][]float64, df.Nrow())
	for i := range X {
		X[i] = []float64{cols[0][i], cols[1][i], cols[2][i]}
	}
	return X, nil
}

// ClusterRFM standardizes the RFM columns of df, runs k-means and returns
// a copy of df with a Cluster column. The silhouette score is computed over
// the standardized points when more than one cluster is requested.
func ClusterRFM(df dataframe.DataFrame, opts ClusterOptions) (*ClusterResult, error) {
	opts = opts.withDefaults()

	X, err := RFMMatrix(df)
	if err != nil {
		return nil, fmt.Errorf("cluster rfm: %w", err)
	}
	Z := Standardize(X)

	km := NewKMeans(opts.Clusters, opts.Seed)
	km.NInit = opts.NInit
	if err := km.Fit(Z); err != nil {
		return nil, fmt.Errorf("cluster rfm: %w", err)
	}

	score := math.NaN()
	if opts.Clusters > 1 {
		score, err = Silhouette(Z, km.Labels)
		if err != nil {
			return nil, fmt.Errorf("cluster rfm: %w", err)
		}
	}

	table := df.Copy().Mutate(dataset.IntSeries(ColCluster, km.Labels))
	if table.Err != nil {
		return nil, fmt.Errorf("cluster rfm: append cluster column: %w", table.Err)
	}

	logger.Info("rfm clustered",
		"customers", len(X),
		"clusters", opts.Clusters,
		"iterations", km.Iter,
		"silhouette", fmt.Sprintf("%.4f", score),
	)

	return &ClusterResult{
		Table:    table,
		Score:    score,
		Labels:   km.Labels,
		Inertia:  km.Inertia,
		Profiles: Profiles(X, km.Labels, opts.Clusters),
	}, nil
}

// Profiles averages the raw RFM rows of X per cluster label.
func Profiles(X [][]float64, labels []int, k int) []Profile {
	out := make([]Profile, k)
	for c := range out {
		out[c].Cluster = c
	}
	for i, x := range X {
		p := &out[labels[i]]
		p.Customers++
		p.MeanRecency += x[0]
		p.MeanFrequency += x[1]
		p.MeanMonetary += x[2]
	}
	for c := range out {
		if n := float64(out[c].Customers); n > 0 {
			out[c].MeanRecency /= n
			out[c].MeanFrequency /= n
			out[c].MeanMonetary /= n
		}
	}
	return out
}
