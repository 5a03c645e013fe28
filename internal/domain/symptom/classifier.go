package symptom

import (
	"errors"
	"fmt"
	"sort"
)

var ErrClassifierUnavailable = errors.New("classifier not available")

// Classifier maps a binary feature vector to a disease label.
type Classifier interface {
	Predict(features []int) (string, error)
}

// ProbabilityClassifier also reports per-class probabilities, aligned with
// Classes().
type ProbabilityClassifier interface {
	Classifier
	PredictProba(features []int) ([]float64, error)
	Classes() []string
}

const (
	maxPredictions           = 5
	minPredictionProbability = 0.01
)

// Prediction is one ranked classifier output.
type Prediction struct {
	Disease     string  `json:"disease"`
	Probability float64 `json:"probability"`
	Percentage  float64 `json:"percentage"`
}

// MLAnalysis summarizes a classifier run for one request.
type MLAnalysis struct {
	PrimaryPrediction    string       `json:"primary_prediction"`
	Confidence           float64      `json:"confidence"`
	ConfidencePercentage float64      `json:"confidence_percentage"`
	TopPredictions       []Prediction `json:"top_predictions"`
	MatchedSymptomsCount int          `json:"matched_symptoms_count"`
	TotalSymptomsChecked int          `json:"total_symptoms_checked"`
}

// runClassifier predicts from a prepared feature vector. Classifiers that
// report probabilities also yield a confidence and ranked predictions.
func runClassifier(c Classifier, features []int) (*MLAnalysis, error) {
	label, err := c.Predict(features)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	out := &MLAnalysis{
		PrimaryPrediction:    label,
		TopPredictions:       []Prediction{},
		MatchedSymptomsCount: ActiveFeatures(features),
		TotalSymptomsChecked: len(features),
	}

	pc, ok := c.(ProbabilityClassifier)
	if !ok {
		return out, nil
	}
	proba, err := pc.PredictProba(features)
	if err != nil {
		return nil, fmt.Errorf("predict probabilities: %w", err)
	}
	out.TopPredictions = rankPredictions(pc.Classes(), proba)
	for _, p := range proba {
		if p > out.Confidence {
			out.Confidence = p
		}
	}
	out.ConfidencePercentage = round2(out.Confidence * 100)
	return out, nil
}

// rankPredictions keeps the five most probable classes above 1%.
func rankPredictions(classes []string, proba []float64) []Prediction {
	idx := make([]int, len(proba))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return proba[idx[a]] > proba[idx[b]] })

	preds := []Prediction{}
	for _, i := range idx {
		if len(preds) == maxPredictions {
			break
		}
		if proba[i] <= minPredictionProbability {
			continue
		}
		name := fmt.Sprintf("Disease_%d", i)
		if i < len(classes) {
			name = classes[i]
		}
		preds = append(preds, Prediction{
			Disease:     name,
			Probability: proba[i],
			Percentage:  round2(proba[i] * 100),
		})
	}
	return preds
}
