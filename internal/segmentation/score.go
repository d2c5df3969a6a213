package segmentation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Standardize rescales each column of X to zero mean and unit sample
// standard deviation. X is not modified. A column with zero variance
// yields NaN in every row.
func Standardize(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		out[i] = make([]float64, len(X[i]))
	}
	if len(X) == 0 {
		return out
	}

	col := make([]float64, len(X))
	for j := range X[0] {
		for i, x := range X {
			col[i] = x[j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		for i, x := range X {
			out[i][j] = (x[j] - mean) / std
		}
	}
	return out
}

// Silhouette is the mean silhouette coefficient of a labelling, in
// [-1, 1]. Points alone in their cluster score 0.
func Silhouette(X [][]float64, labels []int) (float64, error) {
	n := len(X)
	if len(labels) != n {
		return math.NaN(), fmt.Errorf("silhouette: %d points but %d labels", n, len(labels))
	}

	sizes := make(map[int]int)
	for _, l := range labels {
		sizes[l]++
	}
	if len(sizes) < 2 || len(sizes) > n-1 {
		return math.NaN(), fmt.Errorf("silhouette: %w: got %d", ErrLabelCount, len(sizes))
	}

	var total float64
	for i := range X {
		sums := make(map[int]float64, len(sizes))
		for j := range X {
			if i != j {
				sums[labels[j]] += floats.Distance(X[i], X[j], 2)
			}
		}

		own := sizes[labels[i]]
		if own == 1 {
			continue
		}
		a := sums[labels[i]] / float64(own-1)
		b := math.Inf(1)
		for l, size := range sizes {
			if l == labels[i] {
				continue
			}
			b = math.Min(b, sums[l]/float64(size))
		}
		if d := math.Max(a, b); d > 0 || math.IsNaN(d) {
			total += (b - a) / d
		}
	}
	return total / float64(n), nil
}
