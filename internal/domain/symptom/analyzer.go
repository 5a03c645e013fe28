package symptom

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

const (
	Disclaimer = "This analysis is for informational purposes only. Always consult healthcare professionals for medical advice, diagnosis, and treatment."

	noSymptomsError = "No valid symptoms found. Please describe your symptoms clearly."
	inputExample    = "Try: 'fever, headache, cough' or 'stomach pain and nausea'"
	internalError   = "Analysis failed due to an internal error. Please try again."
	faultDisclaimer = "Please consult a healthcare professional for medical advice."
	maxCauses       = 5
	maxDiseaseMatch = 5
	weakMatchScore  = 30.0
	minPatternHits  = 2
)

// conditionPatterns back up a weak or empty dataset match. A condition is
// suggested when at least minPatternHits of its keywords occur in the text.
var conditionPatterns = []struct {
	name     string
	keywords []string
}{
	{"Common Cold", []string{"runny nose", "sneezing", "mild cough", "sore throat"}},
	{"Influenza", []string{"fever", "body aches", "fatigue", "headache", "cough"}},
	{"Migraine", []string{"severe headache", "nausea", "sensitivity to light", "visual disturbance"}},
	{"Gastroenteritis", []string{"nausea", "vomiting", "diarrhea", "stomach cramps", "abdominal pain"}},
	{"Anxiety", []string{"nervousness", "rapid heartbeat", "sweating", "trembling", "restlessness"}},
	{"Allergic Reaction", []string{"itching", "hives", "swelling", "rash", "difficulty breathing"}},
}

var fallbackCauses = []string{
	"Viral infection",
	"Bacterial infection",
	"Stress-related symptoms",
	"Dietary factors",
	"Environmental factors",
}

// Request is one symptom submission. Only Symptoms is required.
type Request struct {
	Symptoms       string `json:"symptoms"`
	Age            string `json:"age"`
	Gender         string `json:"gender"`
	Duration       string `json:"duration"`
	MedicalHistory string `json:"medical_history"`
}

type PatientInfo struct {
	Age               string `json:"age"`
	Gender            string `json:"gender"`
	Duration          string `json:"duration"`
	HasMedicalHistory bool   `json:"has_medical_history"`
}

// Result is the analysis payload. When Error is set only Example and
// Disclaimer accompany it.
type Result struct {
	Error               string         `json:"error,omitempty"`
	Example             string         `json:"example,omitempty"`
	InputSymptoms       []string       `json:"input_symptoms,omitempty"`
	PossibleCauses      []string       `json:"possible_causes,omitempty"`
	DiseaseMatches      []DiseaseMatch `json:"disease_matches,omitempty"`
	UrgencyLevel        UrgencyLevel   `json:"urgency_level,omitempty"`
	UrgencyColor        string         `json:"urgency_color,omitempty"`
	UrgencyAction       string         `json:"urgency_action,omitempty"`
	UrgencyDescription  string         `json:"urgency_description,omitempty"`
	UrgencyRule         string         `json:"urgency_rule,omitempty"`
	Recommendations     []string       `json:"recommendations,omitempty"`
	ClarifyingQuestions []string       `json:"clarifying_questions,omitempty"`
	MLAnalysis          *MLAnalysis    `json:"ml_analysis,omitempty"`
	PatientInfo         *PatientInfo   `json:"patient_info,omitempty"`
	Disclaimer          string         `json:"disclaimer"`
}

// Failed reports whether the result carries an input or internal error.
func (r *Result) Failed() bool { return r.Error != "" }

type Options struct {
	FeatureThreshold float64
	DiseaseThreshold float64
	Logger           zerolog.Logger
}

// Analyzer composes normalization, classification, dataset matching,
// triage and advice into one result. It holds no per-request state and is
// safe for concurrent use.
type Analyzer struct {
	vocab            *Vocabulary
	diseases         *DiseaseSymptomMap
	classifier       Classifier
	urgency          *UrgencyClassifier
	featureThreshold float64
	diseaseThreshold float64
	logger           zerolog.Logger
}

// NewAnalyzer wires an analyzer over kb. classifier may be nil; a zero
// threshold in opts takes the default.
func NewAnalyzer(kb *KnowledgeBase, classifier Classifier, opts Options) *Analyzer {
	if opts.FeatureThreshold <= 0 {
		opts.FeatureThreshold = DefaultFeatureThreshold
	}
	if opts.DiseaseThreshold <= 0 {
		opts.DiseaseThreshold = DefaultDiseaseMatchThreshold
	}
	a := &Analyzer{
		classifier:       classifier,
		urgency:          NewUrgencyClassifier(),
		featureThreshold: opts.FeatureThreshold,
		diseaseThreshold: opts.DiseaseThreshold,
		logger:           opts.Logger,
	}
	if kb != nil {
		a.vocab, a.diseases = kb.Vocabulary, kb.Diseases
	}
	return a
}

// ClassifierReady reports whether requests can use the classifier.
func (a *Analyzer) ClassifierReady() bool {
	return a.classifier != nil && a.vocab.Len() > 0
}

// Analyze never fails: input problems and internal faults come back as a
// Result with Error set.
func (a *Analyzer) Analyze(req Request) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Str("panic", fmt.Sprintf("%v", r)).Msg("symptom analysis failed")
			res = &Result{Error: internalError, Disclaimer: faultDisclaimer}
		}
	}()

	symptoms := NormalizeSymptoms(req.Symptoms)
	if len(symptoms) == 0 {
		return &Result{Error: noSymptomsError, Example: inputExample, Disclaimer: Disclaimer}
	}

	ml := a.classify(symptoms)
	matches := a.diseases.Match(symptoms, a.diseaseThreshold)
	if len(matches) > maxDiseaseMatch {
		matches = matches[:maxDiseaseMatch]
	}

	causes := a.possibleCauses(req.Symptoms, ml, matches)

	var topDisease string
	switch {
	case ml != nil:
		topDisease = ml.PrimaryPrediction
	case len(matches) > 0:
		topDisease = matches[0].Disease
	}

	urgency := a.urgency.Assess(UrgencyInput{
		Text:       req.Symptoms,
		Age:        req.Age,
		Duration:   req.Duration,
		TopDisease: topDisease,
	})

	advice := AdviceInput{
		Symptoms:   symptoms,
		RawText:    req.Symptoms,
		Duration:   req.Duration,
		Age:        req.Age,
		Level:      urgency.Level,
		TopDisease: causes[0],
	}

	return &Result{
		InputSymptoms:       symptoms,
		PossibleCauses:      causes,
		DiseaseMatches:      matches,
		UrgencyLevel:        urgency.Level,
		UrgencyColor:        urgency.Color,
		UrgencyAction:       urgency.Action,
		UrgencyDescription:  urgency.Description,
		UrgencyRule:         urgency.Rule,
		Recommendations:     Recommendations(advice),
		ClarifyingQuestions: ClarifyingQuestions(advice),
		MLAnalysis:          ml,
		PatientInfo: &PatientInfo{
			Age:               req.Age,
			Gender:            req.Gender,
			Duration:          req.Duration,
			HasMedicalHistory: strings.TrimSpace(req.MedicalHistory) != "",
		},
		Disclaimer: Disclaimer,
	}
}

// classify returns nil when no classifier is loaded, no feature matched or
// the classifier fails; the dataset matcher covers those cases.
func (a *Analyzer) classify(symptoms []string) *MLAnalysis {
	if !a.ClassifierReady() {
		a.logger.Debug().Msg("classifier unavailable, using dataset matching")
		return nil
	}
	features := a.vocab.FeatureVector(symptoms, a.featureThreshold)
	if ActiveFeatures(features) == 0 {
		a.logger.Debug().Strs("symptoms", symptoms).Msg("no classifier features matched")
		return nil
	}
	ml, err := runClassifier(a.classifier, features)
	if err != nil {
		a.logger.Warn().Err(err).Msg("classifier failed, using dataset matching")
		return nil
	}
	return ml
}

// Predict runs the classifier on an explicit symptom list.
func (a *Analyzer) Predict(symptoms []string) (*MLAnalysis, error) {
	if !a.ClassifierReady() {
		return nil, ErrClassifierUnavailable
	}
	clean := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			clean = append(clean, s)
		}
	}
	return runClassifier(a.classifier, a.vocab.FeatureVector(clean, a.featureThreshold))
}

func (a *Analyzer) possibleCauses(rawText string, ml *MLAnalysis, matches []DiseaseMatch) []string {
	var causes []string
	if ml != nil {
		for _, p := range ml.TopPredictions {
			causes = append(causes, p.Disease)
		}
		if len(causes) == 0 && ml.PrimaryPrediction != "" {
			causes = append(causes, ml.PrimaryPrediction)
		}
	}
	if len(causes) == 0 {
		for _, m := range matches {
			causes = append(causes, m.Disease)
		}
		if len(causes) == 0 || matches[0].CombinedScore < weakMatchScore {
			causes = append(causes, matchConditionPatterns(rawText)...)
		}
	}
	if len(causes) == 0 {
		causes = append(causes, fallbackCauses...)
	}
	return dedupeCapped(causes, maxCauses)
}

func matchConditionPatterns(rawText string) []string {
	text := strings.ToLower(rawText)
	var out []string
	for _, p := range conditionPatterns {
		hits := 0
		for _, kw := range p.keywords {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		if hits >= minPatternHits {
			out = append(out, p.name)
		}
	}
	return out
}
