package sentiment

import (
	"errors"
	"fmt"
	"math"

	"github.com/ignite/marketing-analytics/internal/pkg/logger"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// LogisticRegression is an L2-regularized binary classifier over sparse
// vectors. The intercept is not penalized.
type LogisticRegression struct {
	C         float64 // inverse regularization strength
	MaxIter   int
	Tolerance float64 // gradient norm at which optimization stops

	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
	Iter      int       `json:"n_iter"`
	Converged bool      `json:"converged"`
}

// NewLogisticRegression returns a classifier with C=1 and the given
// iteration limit (1000 when maxIter <= 0).
func NewLogisticRegression(maxIter int) *LogisticRegression {
	if maxIter <= 0 {
		maxIter = 1000
	}
	return &LogisticRegression{C: 1, MaxIter: maxIter, Tolerance: 1e-4}
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus is ln(1+e^z) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

// Fit minimizes ½‖w‖² + C·Σ logloss with L-BFGS. y holds 0/1 labels and
// nFeatures is the width of every row. Training data with a single class is
// accepted: the intercept absorbs it and a warning is logged.
func (m *LogisticRegression) Fit(X []Vector, y []int, nFeatures int) error {
	if len(X) == 0 {
		return errors.New("logistic regression: no training rows")
	}
	if len(X) != len(y) {
		return fmt.Errorf("logistic regression: %d rows but %d labels", len(X), len(y))
	}

	classes := make(map[int]int)
	for _, l := range y {
		if l != 0 && l != 1 {
			return fmt.Errorf("logistic regression: label %d is not 0 or 1", l)
		}
		classes[l]++
	}
	if len(classes) < 2 {
		logger.Warn("training data holds a single class", "rows", len(y))
	}

	c := m.C
	if c <= 0 {
		c = 1
	}
	target := make([]float64, len(y))
	for i, l := range y {
		target[i] = float64(l)
	}

	// params[0:nFeatures] are the weights, params[nFeatures] the intercept.
	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			w, b := params[:nFeatures], params[nFeatures]
			loss := 0.5 * floats.Dot(w, w)
			for i, x := range X {
				z := x.Dot(w) + b
				loss += c * (softplus(z) - target[i]*z)
			}
			return loss
		},
		Grad: func(grad, params []float64) {
			w, b := params[:nFeatures], params[nFeatures]
			copy(grad[:nFeatures], w)
			grad[nFeatures] = 0
			for i, x := range X {
				r := c * (sigmoid(x.Dot(w)+b) - target[i])
				for k, j := range x.Indices {
					grad[j] += r * x.Values[k]
				}
				grad[nFeatures] += r
			}
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   m.MaxIter,
		GradientThreshold: m.Tolerance,
	}
	result, err := optimize.Minimize(problem, make([]float64, nFeatures+1), settings, &optimize.LBFGS{})
	if result == nil {
		return fmt.Errorf("logistic regression: %w", err)
	}
	if err != nil {
		logger.Warn("optimizer stopped early", "status", result.Status, "error", err)
	}

	m.Coef = make([]float64, nFeatures)
	copy(m.Coef, result.X[:nFeatures])
	m.Intercept = result.X[nFeatures]
	m.Iter = result.Stats.MajorIterations
	m.Converged = err == nil && result.Status != optimize.IterationLimit
	if !m.Converged {
		logger.Warn("logistic regression did not converge",
			"status", result.Status, "iterations", m.Iter, "max_iter", m.MaxIter)
	}
	return nil
}

// PredictProba returns P(label=1) for each row.
func (m *LogisticRegression) PredictProba(X []Vector) ([]float64, error) {
	if m.Coef == nil {
		return nil, fmt.Errorf("logistic regression: %w", ErrNotFitted)
	}
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = sigmoid(x.Dot(m.Coef) + m.Intercept)
	}
	return out, nil
}

// Predict returns 1 where P(label=1) > 0.5, else 0.
func (m *LogisticRegression) Predict(X []Vector) ([]int, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		if p > 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}
