// Package sentiment trains a binary review-sentiment classifier: ratings
// at or above a threshold are positive, text is cleaned and TF-IDF
// vectorized, and a logistic regression is fit on a seeded 80/20 split.
package sentiment

import (
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/ignite/marketing-analytics/internal/dataset"
	"github.com/ignite/marketing-analytics/internal/pkg/logger"
)

// Options control Train. Start from DefaultOptions. Empty column names and
// a zero TestSize, MaxIter or Out fall back to the defaults noted per field;
// Threshold and Seed are used as given, 0 included.
type Options struct {
	TextColumn   string    // "ReviewText"
	RatingColumn string    // "Rating"
	Threshold    float64   // ratings >= Threshold are positive; DefaultOptions sets 4
	TestSize     float64   // 0.2
	Seed         int64     // split seed; DefaultOptions sets 42
	MaxIter      int       // 1000
	Out          io.Writer // os.Stdout; receives the accuracy line and report
}

// DefaultOptions returns Options with every default filled in.
func DefaultOptions() Options {
	o := Options{Threshold: 4, Seed: 42}
	return o.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.TextColumn == "" {
		o.TextColumn = "ReviewText"
	}
	if o.RatingColumn == "" {
		o.RatingColumn = "Rating"
	}
	if o.TestSize == 0 {
		o.TestSize = 0.2
	}
	if o.MaxIter == 0 {
		o.MaxIter = 1000
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	return o
}

// Model is a fitted vectorizer and classifier pair plus its held-out
// evaluation.
type Model struct {
	Vectorizer *Vectorizer         `json:"-"`
	Classifier *LogisticRegression `json:"-"`

	Threshold float64 `json:"threshold"`
	Seed      int64   `json:"seed"`
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
	Features  int     `json:"features"`
	Accuracy  float64 `json:"accuracy"`
	Report    Report  `json:"report"`
}

// Predict labels raw texts (1 positive, 0 negative). Texts are cleaned the
// same way as during training.
func (m *Model) Predict(texts []string) ([]int, error) {
	X, err := m.Vectorizer.Transform(cleanAll(texts))
	if err != nil {
		return nil, err
	}
	return m.Classifier.Predict(X)
}

// PredictProba returns the positive-class probability of each raw text.
func (m *Model) PredictProba(texts []string) ([]float64, error) {
	X, err := m.Vectorizer.Transform(cleanAll(texts))
	if err != nil {
		return nil, err
	}
	return m.Classifier.PredictProba(X)
}

func cleanAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = CleanText(t)
	}
	return out
}

// Labels maps ratings to 1 when rating >= threshold, else 0. Missing
// ratings are negative.
func Labels(ratings []float64, threshold float64) []int {
	out := make([]int, len(ratings))
	for i, r := range ratings {
		if r >= threshold {
			out[i] = 1
		}
	}
	return out
}

func pick[T any](src []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = src[j]
	}
	return out
}

// Train fits a sentiment model on the review table df. It writes the
// held-out accuracy and classification report to opts.Out. A missing
// column or non-numeric rating is returned as an error.
func Train(df dataframe.DataFrame, opts Options) (*Model, error) {
	opts = opts.withDefaults()

	ratings, err := dataset.Float(df, opts.RatingColumn)
	if err != nil {
		return nil, fmt.Errorf("sentiment: %w", err)
	}
	texts, err := dataset.Strings(df, opts.TextColumn)
	if err != nil {
		return nil, fmt.Errorf("sentiment: %w", err)
	}

	labels := Labels(ratings, opts.Threshold)
	cleaned := cleanAll(texts)

	trainIdx, testIdx, err := TrainTestSplit(len(cleaned), opts.TestSize, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("sentiment: %w", err)
	}
	xTrainText, xTestText := pick(cleaned, trainIdx), pick(cleaned, testIdx)
	yTrain, yTest := pick(labels, trainIdx), pick(labels, testIdx)

	vec := NewVectorizer()
	xTrain, err := vec.FitTransform(xTrainText)
	if err != nil {
		return nil, fmt.Errorf("sentiment: fit vectorizer: %w", err)
	}
	xTest, err := vec.Transform(xTestText)
	if err != nil {
		return nil, fmt.Errorf("sentiment: %w", err)
	}

	clf := NewLogisticRegression(opts.MaxIter)
	if err := clf.Fit(xTrain, yTrain, vec.Features()); err != nil {
		return nil, fmt.Errorf("sentiment: %w", err)
	}
	yPred, err := clf.Predict(xTest)
	if err != nil {
		return nil, fmt.Errorf("sentiment: %w", err)
	}

	report := ClassificationReport(yTest, yPred)
	fmt.Fprintf(opts.Out, "Sentiment Model Accuracy: %.2f%%\n", report.Accuracy*100)
	fmt.Fprintf(opts.Out, "\nClassification Report:\n%s\n", report)

	logger.Info("sentiment model trained",
		"train_rows", len(trainIdx),
		"test_rows", len(testIdx),
		"features", vec.Features(),
		"accuracy", fmt.Sprintf("%.4f", report.Accuracy),
		"converged", clf.Converged,
	)

	return &Model{
		Vectorizer: vec,
		Classifier: clf,
		Threshold:  opts.Threshold,
		Seed:       opts.Seed,
		TrainRows:  len(trainIdx),
		TestRows:   len(testIdx),
		Features:   vec.Features(),
		Accuracy:   report.Accuracy,
		Report:     report,
	}, nil
}
