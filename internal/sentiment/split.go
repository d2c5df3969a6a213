package sentiment

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrTooFewRows is returned when a split would leave the training set empty.
var ErrTooFewRows = errors.New("too few rows to split")

// TrainTestSplit shuffles the row indices 0..n-1 with a source seeded from
// seed and returns disjoint train and test index sets. The test set holds
// ceil(n*testSize) rows. The split is not stratified.
func TrainTestSplit(n int, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size %v must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(float64(n) * testSize))
	nTrain := n - nTest
	if nTest == 0 || nTrain <= 0 {
		return nil, nil, fmt.Errorf("%w: n=%d test_size=%v leaves %d training rows", ErrTooFewRows, n, testSize, nTrain)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}
