package segmentation

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrTooFewSamples is returned when there are fewer points than clusters.
	ErrTooFewSamples = errors.New("fewer samples than clusters")
	// ErrLabelCount is returned when a silhouette cannot be scored because
	// the labelling has fewer than 2 or more than n-1 distinct clusters.
	ErrLabelCount = errors.New("silhouette needs between 2 and n-1 distinct labels")
)

// KMeans partitions points into K clusters with Lloyd iterations from
// k-means++ seeds. Runs are reproducible for a given Seed.
type KMeans struct {
	K       int
	MaxIter int     // 300
	Tol     float64 // 1e-4, scaled by the mean feature variance
	NInit   int     // 1; the run with the lowest inertia is kept
	Seed    int64

	Centroids [][]float64
	Labels    []int
	Inertia   float64
	Iter      int
}

// NewKMeans returns a k-means model with default iteration policy.
func NewKMeans(k int, seed int64) *KMeans {
	return &KMeans{K: k, MaxIter: 300, Tol: 1e-4, NInit: 1, Seed: seed}
}

// Fit clusters X. A point whose distances are not comparable (NaN
// coordinates) lands in cluster 0.
func (m *KMeans) Fit(X [][]float64) error {
	if m.K < 1 {
		return fmt.Errorf("kmeans: cluster count %d must be positive", m.K)
	}
	if len(X) < m.K {
		return fmt.Errorf("kmeans: %w: n_samples=%d n_clusters=%d", ErrTooFewSamples, len(X), m.K)
	}
	maxIter, nInit := m.MaxIter, m.NInit
	if maxIter <= 0 {
		maxIter = 300
	}
	if nInit <= 0 {
		nInit = 1
	}

	tol := m.Tol * meanVariance(X)
	rng := rand.New(rand.NewSource(m.Seed))

	m.Centroids = nil
	for run := 0; run < nInit; run++ {
		centroids := initPlusPlus(X, m.K, rng)
		labels, inertia, iter := lloyd(X, centroids, maxIter, tol)
		if m.Centroids == nil || inertia < m.Inertia {
			m.Centroids, m.Labels, m.Inertia, m.Iter = centroids, labels, inertia, iter
		}
	}
	return nil
}

// Predict assigns each point to its nearest fitted centroid.
func (m *KMeans) Predict(X [][]float64) ([]int, error) {
	if m.Centroids == nil {
		return nil, errors.New("kmeans: model is not fitted")
	}
	out := make([]int, len(X))
	for i, x := range X {
		out[i], _ = nearest(x, m.Centroids)
	}
	return out, nil
}

func meanVariance(X [][]float64) float64 {
	if len(X) == 0 {
		return 0
	}
	dims := len(X[0])
	col := make([]float64, len(X))
	var sum float64
	for j := 0; j < dims; j++ {
		for i, x := range X {
			col[i] = x[j]
		}
		sum += stat.PopVariance(col, nil)
	}
	return sum / float64(dims)
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func nearest(x []float64, centroids [][]float64) (int, float64) {
	best, bestD := 0, sqDist(x, centroids[0])
	for k := 1; k < len(centroids); k++ {
		if d := sqDist(x, centroids[k]); d < bestD {
			best, bestD = k, d
		}
	}
	return best, bestD
}

// initPlusPlus picks k seeds: the first uniformly, each next one with
// probability proportional to its squared distance from the chosen seeds.
func initPlusPlus(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(X)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), X[rng.Intn(n)]...))

	minDist := make([]float64, n)
	for c := 1; c < k; c++ {
		var total float64
		for i, x := range X {
			_, minDist[i] = nearest(x, centroids)
			total += minDist[i]
		}

		idx := rng.Intn(n)
		if total > 0 && !math.IsInf(total, 0) && !math.IsNaN(total) {
			r := rng.Float64() * total
			var cumulative float64
			for i, d := range minDist {
				cumulative += d
				if cumulative >= r {
					idx = i
					break
				}
			}
		}
		centroids = append(centroids, append([]float64(nil), X[idx]...))
	}
	return centroids
}

// lloyd refines centroids in place until the squared centroid shift drops
// to tol or maxIter is reached, then labels every point once more against
// the final centroids. An empty cluster keeps its previous centroid.
func lloyd(X [][]float64, centroids [][]float64, maxIter int, tol float64) ([]int, float64, int) {
	k, dims := len(centroids), len(X[0])
	labels := make([]int, len(X))
	iter := 0
	for iter < maxIter {
		iter++
		for i, x := range X {
			labels[i], _ = nearest(x, centroids)
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, x := range X {
			floats.Add(sums[labels[i]], x)
			counts[labels[i]]++
		}

		var shift float64
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			shift += sqDist(centroids[c], sums[c])
			centroids[c] = sums[c]
		}
		if shift <= tol {
			break
		}
	}

	var inertia float64
	for i, x := range X {
		var d float64
		labels[i], d = nearest(x, centroids)
		inertia += d
	}
	return labels, inertia, iter
}
