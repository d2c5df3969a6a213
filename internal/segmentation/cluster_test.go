package segmentation

import (
	"fmt"
	"math"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/ignite/marketing-analytics/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// segmentedRFM has four well separated customer groups of five each:
// champions, lapsed, new and loyal.
func segmentedRFM() dataframe.DataFrame {
	centers := []RFM{
		{Recency: 3, Frequency: 40, Monetary: 8000},
		{Recency: 320, Frequency: 1, Monetary: 40},
		{Recency: 10, Frequency: 2, Monetary: 150},
		{Recency: 90, Frequency: 15, Monetary: 2500},
	}
	var rows []RFM
	for g, c := range centers {
		for i := 0; i < 5; i++ {
			rows = append(rows, RFM{
				CustomerID: fmt.Sprintf("%d%02d", g+1, i),
				Recency:    c.Recency + i,
				Frequency:  c.Frequency + i%2,
				Monetary:   c.Monetary + float64(i)*3,
			})
		}
	}
	return RFMFrame("CustomerID", rows)
}

func TestClusterRFM(t *testing.T) {
	df := segmentedRFM()

	res, err := ClusterRFM(df, DefaultClusterOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"CustomerID", ColRecency, ColFrequency, ColMonetary, ColCluster}, res.Table.Names())
	assert.Equal(t, 4, df.Ncol(), "input untouched")

	clusters := res.Table.Col(ColCluster).Float()
	for _, c := range clusters {
		assert.GreaterOrEqual(t, c, 0.0)
		assert.Less(t, c, 4.0)
		assert.Equal(t, math.Trunc(c), c)
	}
	for g := 0; g < 4; g++ {
		for i := 1; i < 5; i++ {
			assert.Equal(t, res.Labels[g*5], res.Labels[g*5+i], "group %d", g)
		}
	}

	assert.False(t, math.IsNaN(res.Score))
	assert.GreaterOrEqual(t, res.Score, -1.0)
	assert.LessOrEqual(t, res.Score, 1.0)
	assert.Greater(t, res.Score, 0.5)

	require.Len(t, res.Profiles, 4)
	total := 0
	for _, p := range res.Profiles {
		total += p.Customers
		assert.Equal(t, 5, p.Customers)
	}
	assert.Equal(t, 20, total)
	champions := res.Profiles[res.Labels[0]]
	assert.InDelta(t, 5.0, champions.MeanRecency, 1e-9)
}

func TestClusterRFMDeterministic(t *testing.T) {
	df := segmentedRFM()

	a, err := ClusterRFM(df, ClusterOptions{Clusters: 3, Seed: 11})
	require.NoError(t, err)
	b, err := ClusterRFM(df, ClusterOptions{Clusters: 3, Seed: 11})
	require.NoError(t, err)
	assert.Equal(t, a.Labels, b.Labels)
	assert.Equal(t, a.Score, b.Score)
}

func TestClusterRFMSingleCluster(t *testing.T) {
	res, err := ClusterRFM(segmentedRFM(), ClusterOptions{Clusters: 1})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(res.Score))
	for _, l := range res.Labels {
		assert.Equal(t, 0, l)
	}
}

func TestClusterRFMErrors(t *testing.T) {
	_, err := ClusterRFM(segmentedRFM(), ClusterOptions{Clusters: 50})
	assert.ErrorIs(t, err, ErrTooFewSamples)

	df := dataframe.New(dataset.FloatSeries(ColRecency, []float64{1, 2}))
	_, err = ClusterRFM(df, ClusterOptions{})
	assert.ErrorIs(t, err, dataset.ErrColumnNotFound)
}

func TestClusterRFMZeroVarianceColumn(t *testing.T) {
	rows := []RFM{
		{CustomerID: "1", Recency: 1, Frequency: 3, Monetary: 10},
		{CustomerID: "2", Recency: 5, Frequency: 3, Monetary: 20},
		{CustomerID: "3", Recency: 9, Frequency: 3, Monetary: 30},
		{CustomerID: "4", Recency: 2, Frequency: 3, Monetary: 15},
	}

	assert.NotPanics(t, func() {
		_, _ = ClusterRFM(RFMFrame("CustomerID", rows), ClusterOptions{Clusters: 2})
	})
}

func TestClusterOptionsSeedZero(t *testing.T) {
	assert.Equal(t, ClusterOptions{Clusters: 4, Seed: 42, NInit: 1}, DefaultClusterOptions())

	o := ClusterOptions{Clusters: 3}.withDefaults()
	assert.Equal(t, int64(0), o.Seed)
	assert.Equal(t, 1, o.NInit)

	a, err := ClusterRFM(segmentedRFM(), ClusterOptions{Clusters: 3, Seed: 0})
	require.NoError(t, err)
	b, err := ClusterRFM(segmentedRFM(), ClusterOptions{Clusters: 3, Seed: 0})
	require.NoError(t, err)
	assert.Equal(t, a.Labels, b.Labels)
}
