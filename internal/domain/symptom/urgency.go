package symptom

import (
	"strconv"
	"strings"
)

// UrgencyLevel is a coarse triage category.
type UrgencyLevel string

const (
	UrgencyEmergency UrgencyLevel = "EMERGENCY"
	UrgencyHigh      UrgencyLevel = "HIGH"
	UrgencyMedium    UrgencyLevel = "MEDIUM"
	UrgencyLow       UrgencyLevel = "LOW"
)

// UrgencyAssessment is the outcome of the rule cascade. Rule names the
// rule that fired.
type UrgencyAssessment struct {
	Level       UrgencyLevel `json:"level"`
	Color       string       `json:"color"`
	Action      string       `json:"action"`
	Description string       `json:"description"`
	Rule        string       `json:"rule"`
}

// UrgencyInput carries everything the cascade looks at. Text is the raw
// symptom description; TopDisease is the best ranked condition, if any.
type UrgencyInput struct {
	Text       string
	Age        string
	Duration   string
	TopDisease string
}

var (
	emergencyKeywords = []string{
		"chest pain", "difficulty breathing", "shortness of breath", "severe pain",
		"heart attack", "stroke", "severe bleeding", "unconscious", "seizure",
		"severe headache", "vision loss", "paralysis", "severe allergic reaction",
		"difficulty swallowing", "severe abdominal pain", "high fever",
	}
	highRiskKeywords = []string{
		"persistent fever", "severe fatigue", "blood in stool", "blood in urine",
		"severe nausea", "severe vomiting", "dehydration", "fainting",
		"rapid weight loss", "persistent cough", "severe diarrhea",
	}
	ageRiskKeywords        = []string{"fever", "difficulty breathing", "chest pain"}
	highUrgencyConditions  = []string{"heart attack", "stroke", "pneumonia", "appendicitis", "meningitis", "kidney stone", "gallbladder", "asthma", "diabetes", "hypertension"}
	prolongedDurationWords = []string{"week", "month"}
	severityKeywords       = []string{"severe", "intense", "unbearable", "worsening"}
)

const (
	elderlyAgeThreshold = 65
	infantAgeThreshold  = 2
)

type urgencyFacts struct {
	text       string
	duration   string
	topDisease string
	age        int
	hasAge     bool
}

type urgencyRule struct {
	name    string
	matches func(f urgencyFacts) bool
	result  UrgencyAssessment
}

// UrgencyClassifier evaluates an ordered rule list; the first rule that
// matches decides the level and no later rule is consulted.
type UrgencyClassifier struct {
	rules    []urgencyRule
	fallback UrgencyAssessment
}

func NewUrgencyClassifier() *UrgencyClassifier {
	emergency := UrgencyAssessment{
		Level:       UrgencyEmergency,
		Color:       "#DC2626",
		Action:      "SEEK IMMEDIATE MEDICAL ATTENTION",
		Description: "These symptoms may indicate a life-threatening condition. Call emergency services or go to the emergency room immediately.",
	}
	highRisk := UrgencyAssessment{
		Level:       UrgencyHigh,
		Color:       "#EA580C",
		Action:      "CONSULT DOCTOR TODAY",
		Description: "These symptoms require prompt medical evaluation. Contact your healthcare provider or urgent care center today.",
	}
	ageRisk := UrgencyAssessment{
		Level:       UrgencyHigh,
		Color:       "#EA580C",
		Action:      "CONSULT DOCTOR PROMPTLY",
		Description: "Age-related risk factors require prompt medical evaluation for these symptoms.",
	}
	condition := UrgencyAssessment{
		Level:       UrgencyHigh,
		Color:       "#EA580C",
		Action:      "CONSULT DOCTOR TODAY",
		Description: "The most likely condition for these symptoms can become serious. Please consult a healthcare provider promptly.",
	}
	duration := UrgencyAssessment{
		Level:       UrgencyMedium,
		Color:       "#D97706",
		Action:      "SCHEDULE DOCTOR VISIT",
		Description: "Persistent symptoms lasting weeks should be evaluated by a healthcare provider.",
	}
	severity := UrgencyAssessment{
		Level:       UrgencyMedium,
		Color:       "#D97706",
		Action:      "CONSIDER MEDICAL CONSULTATION",
		Description: "Severe symptoms warrant medical evaluation, especially if worsening.",
	}

	rules := []urgencyRule{
		{name: "emergency_keyword", result: emergency, matches: func(f urgencyFacts) bool {
			return containsAny(f.text, emergencyKeywords)
		}},
		{name: "high_risk_keyword", result: highRisk, matches: func(f urgencyFacts) bool {
			return containsAny(f.text, highRiskKeywords)
		}},
		{name: "age_risk", result: ageRisk, matches: func(f urgencyFacts) bool {
			if !f.hasAge || (f.age <= elderlyAgeThreshold && f.age >= infantAgeThreshold) {
				return false
			}
			return containsAny(f.text, ageRiskKeywords)
		}},
		{name: "high_urgency_condition", result: condition, matches: func(f urgencyFacts) bool {
			return f.topDisease != "" && containsAny(f.topDisease, highUrgencyConditions)
		}},
		{name: "prolonged_duration", result: duration, matches: func(f urgencyFacts) bool {
			return containsAny(f.duration, prolongedDurationWords)
		}},
		{name: "severity_keyword", result: severity, matches: func(f urgencyFacts) bool {
			return containsAny(f.text, severityKeywords)
		}},
	}
	for i := range rules {
		rules[i].result.Rule = rules[i].name
	}

	return &UrgencyClassifier{
		rules: rules,
		fallback: UrgencyAssessment{
			Level:       UrgencyLow,
			Color:       "#059669",
			Action:      "MONITOR AND SELF-CARE",
			Description: "These symptoms can likely be managed with self-care. Seek medical attention if symptoms worsen or persist.",
			Rule:        "default",
		},
	}
}

// Assess runs the cascade. A non-numeric age never raises the level.
func (u *UrgencyClassifier) Assess(in UrgencyInput) UrgencyAssessment {
	f := urgencyFacts{
		text:       strings.ToLower(in.Text),
		duration:   strings.ToLower(in.Duration),
		topDisease: strings.ToLower(in.TopDisease),
	}
	f.age, f.hasAge = parseAge(in.Age)

	for _, r := range u.rules {
		if r.matches(f) {
			return r.result
		}
	}
	return u.fallback
}

func parseAge(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
