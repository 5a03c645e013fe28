package symptom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/careassist/careassist/internal/platform/metrics"
)

var ErrDiseaseNotFound = errors.New("disease not found")

const (
	commonSymptomsShown = 5
	noDescription       = "No description available"
)

type VocabularyEntry struct {
	ID           int    `json:"id"`
	SymptomName  string `json:"symptom_name"`
	OriginalName string `json:"original_name"`
	Category     string `json:"category"`
}

type DiseaseSummary struct {
	ID             int      `json:"id"`
	DiseaseName    string   `json:"disease_name"`
	Description    string   `json:"description"`
	HasPrecautions bool     `json:"has_precautions"`
	CommonSymptoms []string `json:"common_symptoms,omitempty"`
	TotalSymptoms  int      `json:"total_symptoms"`
}

type DiseaseDetail struct {
	DiseaseName string   `json:"disease_name"`
	Description string   `json:"description,omitempty"`
	Precautions []string `json:"precautions,omitempty"`
	Symptoms    []string `json:"symptoms,omitempty"`
}

// PredictResult is the response of a direct classifier call.
type PredictResult struct {
	Prediction      string       `json:"prediction"`
	Confidence      *float64     `json:"confidence"`
	TopPredictions  []Prediction `json:"top_predictions"`
	InputSymptoms   []string     `json:"input_symptoms"`
	MatchedFeatures int          `json:"matched_features"`
}

type Health struct {
	Status        string         `json:"status"`
	Message       string         `json:"message,omitempty"`
	ModelLoaded   bool           `json:"model_loaded"`
	DatasetLoaded bool           `json:"dataset_loaded"`
	TotalDiseases int            `json:"total_diseases"`
	TotalSymptoms int            `json:"total_symptoms"`
	ModelInfo     map[string]any `json:"model_info,omitempty"`
	Version       string         `json:"version"`
}

type Service struct {
	kb       *KnowledgeBase
	analyzer *Analyzer
	version  string
	logger   zerolog.Logger
}

// NewService builds the analyzer over kb. classifier may be nil, in which
// case analyses fall back to dataset matching.
func NewService(kb *KnowledgeBase, classifier Classifier, opts Options, version string) *Service {
	if kb == nil {
		kb = &KnowledgeBase{Vocabulary: NewVocabulary(nil), Diseases: NewDiseaseSymptomMap(nil)}
	}
	s := &Service{
		kb:       kb,
		analyzer: NewAnalyzer(kb, classifier, opts),
		version:  version,
		logger:   opts.Logger,
	}
	metrics.SetClassifierAvailable(s.analyzer.ClassifierReady())
	return s
}

func (s *Service) Analyze(_ context.Context, req Request) *Result {
	start := time.Now()
	res := s.analyzer.Analyze(req)
	metrics.ObserveAnalysisDuration(time.Since(start))
	if res.Failed() {
		metrics.IncAnalysisInputError()
		return res
	}
	metrics.IncAnalysis(string(res.UrgencyLevel))
	s.logger.Debug().
		Int("symptoms", len(res.InputSymptoms)).
		Str("urgency", string(res.UrgencyLevel)).
		Str("rule", res.UrgencyRule).
		Msg("symptoms analyzed")
	return res
}

func (s *Service) Predict(_ context.Context, symptoms []string) (*PredictResult, error) {
	if len(symptoms) == 0 {
		return nil, fmt.Errorf("symptoms must be a non-empty list")
	}
	ml, err := s.analyzer.Predict(symptoms)
	if err != nil {
		if errors.Is(err, ErrClassifierUnavailable) {
			metrics.IncPrediction("unavailable")
		} else {
			metrics.IncPrediction("error")
		}
		return nil, err
	}
	metrics.IncPrediction("ok")

	out := &PredictResult{
		Prediction:      ml.PrimaryPrediction,
		TopPredictions:  ml.TopPredictions,
		InputSymptoms:   symptoms,
		MatchedFeatures: ml.MatchedSymptomsCount,
	}
	if len(ml.TopPredictions) > 0 {
		conf := ml.Confidence
		out.Confidence = &conf
	}
	return out, nil
}

func (s *Service) ListVocabulary() []VocabularyEntry {
	ids := s.kb.Vocabulary.IDs()
	out := make([]VocabularyEntry, 0, len(ids))
	for i, id := range ids {
		out = append(out, VocabularyEntry{
			ID:           i + 1,
			SymptomName:  DisplayName(id),
			OriginalName: id,
			Category:     "medical",
		})
	}
	return out
}

// ListDiseases pages through the disease list in load order.
func (s *Service) ListDiseases(limit, offset int) ([]DiseaseSummary, int) {
	names := s.kb.DiseaseList
	total := len(names)
	if offset >= total {
		return []DiseaseSummary{}, total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	out := make([]DiseaseSummary, 0, end-offset)
	for i := offset; i < end; i++ {
		name := names[i]
		d := DiseaseSummary{
			ID:          i + 1,
			DiseaseName: name,
			Description: noDescription,
		}
		if desc, ok := s.kb.Descriptions[name]; ok {
			d.Description = desc
		}
		_, d.HasPrecautions = s.kb.Precautions[name]
		if symptoms, ok := s.kb.Diseases.Symptoms(name); ok {
			d.CommonSymptoms = symptoms
			if len(symptoms) > commonSymptomsShown {
				d.CommonSymptoms = symptoms[:commonSymptomsShown]
			}
			d.TotalSymptoms = len(symptoms)
		}
		out = append(out, d)
	}
	return out, total
}

// GetDisease looks a disease up by exact name, then case-insensitively.
func (s *Service) GetDisease(name string) (*DiseaseDetail, error) {
	canonical := ""
	for _, n := range s.kb.DiseaseList {
		if n == name {
			canonical = n
			break
		}
		if canonical == "" && strings.EqualFold(n, name) {
			canonical = n
		}
	}
	if canonical == "" {
		return nil, ErrDiseaseNotFound
	}
	symptoms, _ := s.kb.Diseases.Symptoms(canonical)
	return &DiseaseDetail{
		DiseaseName: canonical,
		Description: s.kb.Descriptions[canonical],
		Precautions: s.kb.Precautions[canonical],
		Symptoms:    symptoms,
	}, nil
}

// Health is degraded when the classifier or its vocabulary is missing.
func (s *Service) Health() Health {
	h := Health{
		Status:        "healthy",
		ModelLoaded:   s.analyzer.ClassifierReady(),
		DatasetLoaded: s.kb.Diseases.Len() > 0,
		TotalDiseases: len(s.kb.DiseaseList),
		TotalSymptoms: s.kb.Vocabulary.Len(),
		ModelInfo:     s.kb.ModelInfo,
		Version:       s.version,
	}
	if !h.ModelLoaded || len(s.kb.DiseaseList) == 0 {
		h.Status = "degraded"
		h.Message = "Some components not loaded properly"
	}
	return h
}
