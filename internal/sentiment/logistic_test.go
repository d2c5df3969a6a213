package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(idx int) Vector {
	return Vector{Indices: []int{idx}, Values: []float64{1}}
}

func TestLogisticRegressionSeparable(t *testing.T) {
	var X []Vector
	var y []int
	for i := 0; i < 10; i++ {
		X = append(X, unit(0))
		y = append(y, 1)
		X = append(X, unit(1))
		y = append(y, 0)
	}

	m := NewLogisticRegression(0)
	assert.Equal(t, 1000, m.MaxIter)
	require.NoError(t, m.Fit(X, y, 2))
	assert.True(t, m.Converged)
	assert.Greater(t, m.Coef[0], 0.0)
	assert.Less(t, m.Coef[1], 0.0)

	pred, err := m.Predict([]Vector{unit(0), unit(1)})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, pred)

	proba, err := m.PredictProba([]Vector{unit(0)})
	require.NoError(t, err)
	assert.Greater(t, proba[0], 0.5)
	assert.LessOrEqual(t, proba[0], 1.0)
}

func TestLogisticRegressionSingleClass(t *testing.T) {
	X := []Vector{unit(0), unit(1), unit(0)}
	y := []int{1, 1, 1}

	m := NewLogisticRegression(100)
	require.NoError(t, m.Fit(X, y, 2))

	pred, err := m.Predict([]Vector{unit(1), {}})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, pred)
}

func TestLogisticRegressionInputErrors(t *testing.T) {
	m := NewLogisticRegression(10)
	assert.Error(t, m.Fit(nil, nil, 1))
	assert.Error(t, m.Fit([]Vector{unit(0)}, []int{1, 0}, 1))
	assert.Error(t, m.Fit([]Vector{unit(0)}, []int{2}, 1))

	_, err := NewLogisticRegression(10).Predict([]Vector{unit(0)})
	assert.ErrorIs(t, err, ErrNotFitted)
}
