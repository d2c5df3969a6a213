package sentiment

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// ErrEmptyVocabulary is returned when fitting leaves no terms, e.g. when
// every document holds only stop words.
var ErrEmptyVocabulary = errors.New("empty vocabulary; documents may contain only stop words")

// ErrNotFitted is returned when a model is used before Fit.
var ErrNotFitted = errors.New("model is not fitted")

var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// Vector is a sparse row: Indices are sorted ascending and index Values.
type Vector struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
}

// Dot returns the inner product of v with a dense weight vector.
func (v Vector) Dot(w []float64) float64 {
	var s float64
	for k, i := range v.Indices {
		s += v.Values[k] * w[i]
	}
	return s
}

// Vectorizer turns documents into TF-IDF weighted term vectors.
// Tokens are runs of two or more word characters; English stop words are
// dropped. Rows are L2-normalized.
type Vectorizer struct {
	vocabulary map[string]int
	terms      []string
	idf        []float64
}

// NewVectorizer returns an unfitted vectorizer.
func NewVectorizer() *Vectorizer {
	return &Vectorizer{}
}

// Tokenize lowercases doc and splits it into terms, dropping stop words.
func Tokenize(doc string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(doc), -1)
	out := raw[:0]
	for _, t := range raw {
		if !IsStopWord(t) {
			out = append(out, t)
		}
	}
	return out
}

// Fit learns the vocabulary and inverse document frequencies of docs.
// Terms are indexed in lexical order. idf uses the smoothed form
// ln((1+n)/(1+df)) + 1.
func (v *Vectorizer) Fit(docs []string) error {
	df := make(map[string]int)
	for _, d := range docs {
		seen := make(map[string]struct{})
		for _, t := range Tokenize(d) {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}
	if len(df) == 0 {
		return ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v.terms = terms
	v.vocabulary = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, t := range terms {
		v.vocabulary[t] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	return nil
}

// Transform maps docs onto the fitted vocabulary. Unknown terms are ignored;
// a document with no known terms becomes an empty vector.
func (v *Vectorizer) Transform(docs []string) ([]Vector, error) {
	if v.vocabulary == nil {
		return nil, fmt.Errorf("vectorizer: %w", ErrNotFitted)
	}

	out := make([]Vector, len(docs))
	for i, d := range docs {
		counts := make(map[int]float64)
		for _, t := range Tokenize(d) {
			if idx, ok := v.vocabulary[t]; ok {
				counts[idx]++
			}
		}

		vec := Vector{
			Indices: make([]int, 0, len(counts)),
			Values:  make([]float64, 0, len(counts)),
		}
		for idx := range counts {
			vec.Indices = append(vec.Indices, idx)
		}
		sort.Ints(vec.Indices)
		for _, idx := range vec.Indices {
			vec.Values = append(vec.Values, counts[idx]*v.idf[idx])
		}
		if norm := floats.Norm(vec.Values, 2); norm > 0 {
			floats.Scale(1/norm, vec.Values)
		}
		out[i] = vec
	}
	return out, nil
}

// FitTransform fits on docs and returns their vectors.
func (v *Vectorizer) FitTransform(docs []string) ([]Vector, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	return v.Transform(docs)
}

// Vocabulary returns the fitted terms in index order.
func (v *Vectorizer) Vocabulary() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// IDF returns the fitted inverse document frequency of term, and whether
// the term is in the vocabulary.
func (v *Vectorizer) IDF(term string) (float64, bool) {
	idx, ok := v.vocabulary[term]
	if !ok {
		return 0, false
	}
	return v.idf[idx], true
}

// Features is the vocabulary size.
func (v *Vectorizer) Features() int {
	return len(v.terms)
}
