package symptom

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// NaiveBayes is a Bernoulli naive Bayes model over binary symptom features.
// The parameters are those of a fitted scikit-learn BernoulliNB.
type NaiveBayes struct {
	classes        []string
	classLogPrior  []float64
	featureLogProb [][]float64
	// log(1 - p) per class and feature, and its per-class row sum
	negLogProb [][]float64
	negLogSum  []float64
}

type naiveBayesExport struct {
	Classes        []string    `json:"classes"`
	ClassLogPrior  []float64   `json:"class_log_prior"`
	FeatureLogProb [][]float64 `json:"feature_log_prob"`
}

// LoadNaiveBayes reads a JSON export with keys classes, class_log_prior
// and feature_log_prob.
func LoadNaiveBayes(path string) (*NaiveBayes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var exp naiveBayesExport
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return NewNaiveBayes(exp.Classes, exp.ClassLogPrior, exp.FeatureLogProb)
}

func NewNaiveBayes(classes []string, classLogPrior []float64, featureLogProb [][]float64) (*NaiveBayes, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("model has no classes")
	}
	if len(classLogPrior) != len(classes) || len(featureLogProb) != len(classes) {
		return nil, fmt.Errorf("model shape mismatch: %d classes, %d priors, %d probability rows",
			len(classes), len(classLogPrior), len(featureLogProb))
	}
	nFeatures := len(featureLogProb[0])
	nb := &NaiveBayes{
		classes:        classes,
		classLogPrior:  classLogPrior,
		featureLogProb: featureLogProb,
		negLogProb:     make([][]float64, len(classes)),
		negLogSum:      make([]float64, len(classes)),
	}
	for c, row := range featureLogProb {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("model row %d has %d features, want %d", c, len(row), nFeatures)
		}
		neg := make([]float64, nFeatures)
		for j, lp := range row {
			if lp >= 0 || math.IsNaN(lp) {
				return nil, fmt.Errorf("model row %d feature %d: log probability %v must be negative", c, j, lp)
			}
			neg[j] = math.Log1p(-math.Exp(lp))
			nb.negLogSum[c] += neg[j]
		}
		nb.negLogProb[c] = neg
	}
	return nb, nil
}

func (nb *NaiveBayes) Classes() []string { return nb.classes }

// NumFeatures is the feature vector length the model expects.
func (nb *NaiveBayes) NumFeatures() int { return len(nb.featureLogProb[0]) }

func (nb *NaiveBayes) Predict(features []int) (string, error) {
	jll, err := nb.jointLogLikelihood(features)
	if err != nil {
		return "", err
	}
	best := 0
	for c := range jll {
		if jll[c] > jll[best] {
			best = c
		}
	}
	return nb.classes[best], nil
}

func (nb *NaiveBayes) PredictProba(features []int) ([]float64, error) {
	jll, err := nb.jointLogLikelihood(features)
	if err != nil {
		return nil, err
	}
	maxLL := math.Inf(-1)
	for _, v := range jll {
		maxLL = math.Max(maxLL, v)
	}
	var sum float64
	proba := make([]float64, len(jll))
	for c, v := range jll {
		proba[c] = math.Exp(v - maxLL)
		sum += proba[c]
	}
	for c := range proba {
		proba[c] /= sum
	}
	return proba, nil
}

func (nb *NaiveBayes) jointLogLikelihood(features []int) ([]float64, error) {
	if len(features) != nb.NumFeatures() {
		return nil, fmt.Errorf("feature vector has %d entries, model expects %d", len(features), nb.NumFeatures())
	}
	jll := make([]float64, len(nb.classes))
	for c := range nb.classes {
		ll := nb.classLogPrior[c] + nb.negLogSum[c]
		for j, x := range features {
			if x != 0 {
				ll += nb.featureLogProb[c][j] - nb.negLogProb[c][j]
			}
		}
		jll[c] = ll
	}
	return jll, nil
}
