package segmentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blobs() [][]float64 {
	return [][]float64{
		{0, 0}, {0.1, 0.2}, {-0.1, 0.1}, {0.2, -0.1},
		{10, 10}, {10.1, 9.9}, {9.8, 10.2}, {10.2, 10.1},
	}
}

func TestKMeansSeparatesBlobs(t *testing.T) {
	km := NewKMeans(2, 42)
	require.NoError(t, km.Fit(blobs()))

	require.Len(t, km.Labels, 8)
	for i := 1; i < 4; i++ {
		assert.Equal(t, km.Labels[0], km.Labels[i])
		assert.Equal(t, km.Labels[4], km.Labels[4+i])
	}
	assert.NotEqual(t, km.Labels[0], km.Labels[4])
	assert.Less(t, km.Inertia, 1.0)

	pred, err := km.Predict([][]float64{{0.05, 0.05}, {9.9, 10}})
	require.NoError(t, err)
	assert.Equal(t, []int{km.Labels[0], km.Labels[4]}, pred)
}

func TestKMeansDeterministic(t *testing.T) {
	a := NewKMeans(3, 7)
	b := NewKMeans(3, 7)
	require.NoError(t, a.Fit(blobs()))
	require.NoError(t, b.Fit(blobs()))
	assert.Equal(t, a.Labels, b.Labels)
	assert.Equal(t, a.Centroids, b.Centroids)
}

func TestKMeansMultipleInits(t *testing.T) {
	km := NewKMeans(2, 1)
	km.NInit = 5
	require.NoError(t, km.Fit(blobs()))
	assert.Len(t, km.Centroids, 2)
	assert.Less(t, km.Inertia, 1.0)
}

func TestKMeansErrors(t *testing.T) {
	err := NewKMeans(3, 42).Fit([][]float64{{1}, {2}})
	assert.ErrorIs(t, err, ErrTooFewSamples)

	assert.Error(t, NewKMeans(0, 42).Fit(blobs()))

	_, err = NewKMeans(2, 42).Predict(blobs())
	assert.Error(t, err)
}
