package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassificationReport(t *testing.T) {
	r := ClassificationReport([]int{0, 1, 1}, []int{0, 0, 1})

	require.Len(t, r.Classes, 2)
	assert.InDelta(t, 2.0/3.0, r.Accuracy, 1e-12)

	c0, c1 := r.Classes[0], r.Classes[1]
	assert.Equal(t, 0, c0.Label)
	assert.InDelta(t, 0.5, c0.Precision, 1e-12)
	assert.InDelta(t, 1.0, c0.Recall, 1e-12)
	assert.InDelta(t, 2.0/3.0, c0.F1, 1e-12)
	assert.Equal(t, 1, c0.Support)
	assert.InDelta(t, 1.0, c1.Precision, 1e-12)
	assert.InDelta(t, 0.5, c1.Recall, 1e-12)
	assert.Equal(t, 2, c1.Support)

	assert.InDelta(t, 0.75, r.MacroAvg.Precision, 1e-12)
	assert.InDelta(t, 5.0/6.0, r.WeightedAvg.Precision, 1e-12)
	assert.Equal(t, 3, r.WeightedAvg.Support)

	out := r.String()
	assert.Contains(t, out, "precision    recall  f1-score   support")
	assert.Contains(t, out, "weighted avg       0.83      0.67      0.67         3")
	assert.Contains(t, out, "    accuracy                           0.67         3")
}

func TestClassificationReportMissingClass(t *testing.T) {
	r := ClassificationReport([]int{1, 1}, []int{0, 1})
	require.Len(t, r.Classes, 2)
	assert.Equal(t, 0.0, r.Classes[0].Precision, "no true zeros gives zero precision")
	assert.Equal(t, 0, r.Classes[0].Support)
	assert.Equal(t, 0.5, r.Accuracy)
}

func TestAccuracyEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Accuracy(nil, nil))
}
