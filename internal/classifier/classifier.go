// Package classifier runs the exported sentiment model.
//
// The model is trained offline as a TF-IDF vectoriser followed by a
// Complement Naive Bayes estimator, then exported to JSON. This package only
// reproduces the prediction arithmetic; it never trains.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
)

// Classifier assigns a sentiment label to each text.
type Classifier interface {
	// Predict returns one label per input text, in order.
	Predict(ctx context.Context, texts []string) ([]string, error)

	// Classes returns every label the classifier can produce.
	Classes() []string
}

// ErrInvalidModel indicates the exported model is malformed.
var ErrInvalidModel = errors.New("invalid model")

// defaultTokenPattern is the vectoriser default: runs of two or more word characters.
const defaultTokenPattern = `(?u)\b\w\w+\b`

// Model is the JSON export of the fitted pipeline.
type Model struct {
	Classes        []string       `json:"classes"`
	Vocabulary     map[string]int `json:"vocabulary"`
	IDF            []float64      `json:"idf"`
	FeatureLogProb [][]float64    `json:"feature_log_prob"`
	ClassLogPrior  []float64      `json:"class_log_prior,omitempty"`
	Lowercase      *bool          `json:"lowercase,omitempty"`
	TokenPattern   string         `json:"token_pattern,omitempty"`
	NgramRange     [2]int         `json:"ngram_range,omitempty"`
	SublinearTF    bool           `json:"sublinear_tf,omitempty"`
	Norm           string         `json:"norm,omitempty"`
}

// NaiveBayes predicts with an exported TF-IDF + Complement Naive Bayes model.
// It is safe for concurrent use.
type NaiveBayes struct {
	model     Model
	lowercase bool
	minN      int
	maxN      int
	pattern   *regexp.Regexp // nil means the default tokenizer
}

// Load parses and validates a JSON model export.
func Load(data []byte) (*NaiveBayes, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return New(m)
}

// New validates m and builds a NaiveBayes from it.
func New(m Model) (*NaiveBayes, error) {
	n := len(m.IDF)
	if len(m.Classes) == 0 {
		return nil, fmt.Errorf("%w: no classes", ErrInvalidModel)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: empty idf", ErrInvalidModel)
	}
	if len(m.FeatureLogProb) != len(m.Classes) {
		return nil, fmt.Errorf("%w: %d weight rows for %d classes", ErrInvalidModel, len(m.FeatureLogProb), len(m.Classes))
	}
	for i, row := range m.FeatureLogProb {
		if len(row) != n {
			return nil, fmt.Errorf("%w: weight row %d has %d features, want %d", ErrInvalidModel, i, len(row), n)
		}
	}
	for term, idx := range m.Vocabulary {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("%w: term %q index %d out of range", ErrInvalidModel, term, idx)
		}
	}
	if m.ClassLogPrior != nil && len(m.ClassLogPrior) != len(m.Classes) {
		return nil, fmt.Errorf("%w: class prior length mismatch", ErrInvalidModel)
	}
	switch m.Norm {
	case "", "l2", "l1", "none":
	default:
		return nil, fmt.Errorf("%w: unsupported norm %q", ErrInvalidModel, m.Norm)
	}

	nb := &NaiveBayes{model: m, lowercase: true, minN: 1, maxN: 1}
	if m.Lowercase != nil {
		nb.lowercase = *m.Lowercase
	}
	if m.NgramRange[0] > 0 {
		nb.minN, nb.maxN = m.NgramRange[0], m.NgramRange[1]
		if nb.maxN < nb.minN {
			return nil, fmt.Errorf("%w: bad ngram range %v", ErrInvalidModel, m.NgramRange)
		}
	}
	if m.TokenPattern != "" && m.TokenPattern != defaultTokenPattern {
		re, err := regexp.Compile(strings.TrimPrefix(m.TokenPattern, "(?u)"))
		if err != nil {
			return nil, fmt.Errorf("%w: token pattern: %v", ErrInvalidModel, err)
		}
		nb.pattern = re
	}
	return nb, nil
}

// Classes returns the labels in model order.
func (nb *NaiveBayes) Classes() []string {
	out := make([]string, len(nb.model.Classes))
	copy(out, nb.model.Classes)
	return out
}

// Predict labels every text.
func (nb *NaiveBayes) Predict(ctx context.Context, texts []string) ([]string, error) {
	out := make([]string, len(texts))
	for i, text := range texts {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out[i] = nb.model.Classes[nb.argmax(nb.vectorize(text))]
	}
	return out, nil
}

// vectorize returns the sparse normalised TF-IDF vector of text.
func (nb *NaiveBayes) vectorize(text string) map[int]float64 {
	counts := make(map[int]float64)
	for _, term := range nb.terms(text) {
		if idx, ok := nb.model.Vocabulary[term]; ok {
			counts[idx]++
		}
	}

	var norm float64
	for idx, tf := range counts {
		if nb.model.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		v := tf * nb.model.IDF[idx]
		counts[idx] = v
		switch nb.model.Norm {
		case "l1":
			norm += math.Abs(v)
		case "none":
		default:
			norm += v * v
		}
	}

	switch nb.model.Norm {
	case "none":
		return counts
	case "l1":
	default:
		norm = math.Sqrt(norm)
	}
	if norm > 0 {
		for idx := range counts {
			counts[idx] /= norm
		}
	}
	return counts
}

// argmax returns the class with the highest joint log likelihood.
// Ties go to the first class.
func (nb *NaiveBayes) argmax(x map[int]float64) int {
	best, bestScore := 0, math.Inf(-1)
	for c, weights := range nb.model.FeatureLogProb {
		var score float64
		for idx, v := range x {
			score += v * weights[idx]
		}
		if len(nb.model.Classes) == 1 && nb.model.ClassLogPrior != nil {
			score += nb.model.ClassLogPrior[c]
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

// terms tokenizes text and expands it into the configured n-grams.
func (nb *NaiveBayes) terms(text string) []string {
	if nb.lowercase {
		text = strings.ToLower(text)
	}

	var tokens []string
	if nb.pattern != nil {
		tokens = nb.pattern.FindAllString(text, -1)
	} else {
		tokens = Tokenize(text)
	}

	if nb.minN == 1 && nb.maxN == 1 {
		return tokens
	}

	var out []string
	for n := nb.minN; n <= nb.maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// Tokenize splits text into runs of letters, digits and underscores that are
// at least two runes long.
func Tokenize(text string) []string {
	var tokens []string
	start := -1
	runes := 0
	flush := func(end int) {
		if start >= 0 && runes >= 2 {
			tokens = append(tokens, text[start:end])
		}
		start, runes = -1, 0
	}

	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.Is(unicode.Mn, r) {
			if start < 0 {
				start = i
			}
			runes++
			continue
		}
		flush(i)
	}
	flush(len(text))
	return tokens
}

// Ensure NaiveBayes implements Classifier.
var _ Classifier = (*NaiveBayes)(nil)
