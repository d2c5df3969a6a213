package sentiment

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/ignite/marketing-analytics/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var positiveReviews = []string{
	"Great product, love it!",
	"Excellent quality and amazing value",
	"Love the design. Great purchase!!",
	"Amazing service, excellent support",
	"Fantastic! Works great, love it",
}

var negativeReviews = []string{
	"Terrible, broke after 2 days",
	"Awful quality and a waste of money",
	"Broken on arrival. Terrible support",
	"Worst purchase ever, awful",
	"Disappointing and broken, waste",
}

func reviewFrame(t *testing.T, rows int, rating func(i int) int) dataframe.DataFrame {
	t.Helper()
	records := [][]string{{"ReviewText", "Rating"}}
	for i := 0; i < rows; i++ {
		r := rating(i)
		text := negativeReviews[i%len(negativeReviews)]
		if r >= 4 {
			text = positiveReviews[i%len(positiveReviews)]
		}
		records = append(records, []string{text, fmt.Sprint(r)})
	}
	df, err := dataset.FromRecords(records)
	require.NoError(t, err)
	return df
}

func testOptions(out io.Writer) Options {
	o := DefaultOptions()
	o.Out = out
	return o
}

func alternating(i int) int {
	if i%2 == 0 {
		return 5
	}
	return 1
}

func TestTrain(t *testing.T) {
	df := reviewFrame(t, 40, alternating)

	var out bytes.Buffer
	model, err := Train(df, testOptions(&out))
	require.NoError(t, err)

	assert.Equal(t, 32, model.TrainRows)
	assert.Equal(t, 8, model.TestRows)
	assert.Equal(t, model.Vectorizer.Features(), model.Features)
	assert.Equal(t, 4.0, model.Threshold)
	assert.Equal(t, int64(42), model.Seed)
	assert.Contains(t, out.String(), "Sentiment Model Accuracy: ")
	assert.Contains(t, out.String(), "Classification Report:")
	assert.Contains(t, out.String(), "weighted avg")
	assert.InDelta(t, 1.0, model.Accuracy, 1e-12)

	pred, err := model.Predict([]string{"Love it, great and amazing!", "Terrible and broken, awful"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, pred)

	proba, err := model.PredictProba([]string{"excellent"})
	require.NoError(t, err)
	assert.Greater(t, proba[0], 0.5)
}

func TestTrainDeterministic(t *testing.T) {
	df := reviewFrame(t, 30, alternating)

	a, err := Train(df, testOptions(&bytes.Buffer{}))
	require.NoError(t, err)
	b, err := Train(df, testOptions(&bytes.Buffer{}))
	require.NoError(t, err)
	assert.Equal(t, a.Vectorizer.Vocabulary(), b.Vectorizer.Vocabulary())
	assert.Equal(t, a.Classifier.Coef, b.Classifier.Coef)
	assert.Equal(t, a.Report, b.Report)
}

func TestTrainSingleClassDoesNotCrash(t *testing.T) {
	df := reviewFrame(t, 20, func(int) int { return 5 })

	model, err := Train(df, testOptions(&bytes.Buffer{}))
	require.NoError(t, err)
	require.NotNil(t, model.Classifier)
	assert.Equal(t, 16, model.TrainRows)
}

func TestTrainThreshold(t *testing.T) {
	assert.Equal(t, []int{0, 0, 1, 1, 0}, Labels([]float64{1, 2.5, 3, 5, math.NaN()}, 3))
}

func TestTrainMissingColumn(t *testing.T) {
	df := reviewFrame(t, 10, alternating)

	opts := testOptions(&bytes.Buffer{})
	opts.TextColumn = "Body"
	_, err := Train(df, opts)
	assert.ErrorIs(t, err, dataset.ErrColumnNotFound)

	opts = testOptions(&bytes.Buffer{})
	opts.RatingColumn = "Stars"
	_, err = Train(df, opts)
	assert.ErrorIs(t, err, dataset.ErrColumnNotFound)
}

func TestTrainStopWordsOnly(t *testing.T) {
	df, err := dataset.FromRecords([][]string{
		{"ReviewText", "Rating"},
		{"it is the", "5"}, {"and of", "1"}, {"this was", "4"}, {"we are", "2"}, {"to be", "3"},
	})
	require.NoError(t, err)

	_, err = Train(df, testOptions(&bytes.Buffer{}))
	assert.ErrorIs(t, err, ErrEmptyVocabulary)
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, "ReviewText", o.TextColumn)
	assert.Equal(t, "Rating", o.RatingColumn)
	assert.Equal(t, 4.0, o.Threshold)
	assert.Equal(t, 0.2, o.TestSize)
	assert.Equal(t, int64(42), o.Seed)
	assert.Equal(t, 1000, o.MaxIter)
}

func TestTrainSeedZero(t *testing.T) {
	df := reviewFrame(t, 40, alternating)

	opts := testOptions(&bytes.Buffer{})
	opts.Seed = 0
	model, err := Train(df, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(0), model.Seed)

	zeroTrain, _, err := TrainTestSplit(40, 0.2, 0)
	require.NoError(t, err)
	defaultTrain, _, err := TrainTestSplit(40, 0.2, 42)
	require.NoError(t, err)
	assert.NotEqual(t, defaultTrain, zeroTrain)
}

func TestTrainThresholdZero(t *testing.T) {
	df := reviewFrame(t, 20, alternating)

	opts := testOptions(&bytes.Buffer{})
	opts.Threshold = 0
	model, err := Train(df, opts)
	require.NoError(t, err)
	assert.Equal(t, 0.0, model.Threshold)

	// Every rating is >= 0, so the training labels are all positive.
	pred, err := model.Predict([]string{"terrible and broken", "great, love it"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, pred)
}

func TestOptionsKeepZeroSeedAndThreshold(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, int64(0), o.Seed)
	assert.Equal(t, 0.0, o.Threshold)
	assert.Equal(t, "ReviewText", o.TextColumn)
	assert.Equal(t, 0.2, o.TestSize)
}
