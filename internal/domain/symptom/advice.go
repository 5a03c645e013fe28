package symptom

import "strings"

const (
	MaxRecommendations = 10
	MaxQuestions       = 5
)

// keywordBlock appends lines when any of its terms occurs in the text.
type keywordBlock struct {
	terms []string
	lines []string
}

var baseRecommendations = map[UrgencyLevel][]string{
	UrgencyEmergency: {
		"Call emergency services (911/108) immediately",
		"Go to the nearest emergency room",
		"Have someone accompany you if possible",
		"Bring a list of current medications",
	},
	UrgencyHigh: {
		"Contact your doctor or urgent care center today",
		"Monitor symptoms closely and note any changes",
		"Seek immediate care if symptoms worsen",
		"Bring a list of current medications to the appointment",
	},
	UrgencyMedium: {
		"Schedule an appointment with your healthcare provider",
		"Monitor symptoms closely and keep a symptom diary",
		"Seek immediate care if symptoms worsen",
	},
	UrgencyLow: {
		"Stay well hydrated with water and clear fluids",
		"Get adequate rest and sleep",
		"Monitor symptoms and keep a symptom diary",
	},
}

var symptomRecommendations = []keywordBlock{
	{
		terms: []string{"fever", "temperature", "hot", "chills"},
		lines: []string{
			"Monitor your temperature regularly",
			"Apply cool compresses to reduce fever",
			"Consider acetaminophen or ibuprofen as directed",
		},
	},
	{
		terms: []string{"cough", "throat"},
		lines: []string{
			"Try warm honey and lemon for throat relief",
			"Use a humidifier to add moisture to the air",
			"Avoid smoke and irritants",
		},
	},
	{
		terms: []string{"headache", "head pain", "migraine"},
		lines: []string{
			"Apply a cold compress to your forehead",
			"Rest in a quiet, dark room",
			"Stay hydrated and avoid known triggers",
		},
	},
	{
		terms: []string{"nausea", "stomach", "abdominal", "vomiting"},
		lines: []string{
			"Try bland foods like toast, crackers or rice",
			"Sip clear fluids slowly",
			"Avoid spicy, fatty or dairy foods",
		},
	},
	{
		terms: []string{"pain", "ache", "sore"},
		lines: []string{
			"Apply ice or heat as appropriate for pain relief",
			"Consider over-the-counter pain relievers as directed",
			"Avoid activities that worsen the pain",
		},
	},
}

var conditionRecommendations = []keywordBlock{
	{
		terms: []string{"cold", "flu", "influenza"},
		lines: []string{
			"Increase vitamin C intake through citrus fruits",
			"Wash hands frequently to prevent spread",
		},
	},
	{
		terms: []string{"allerg"},
		lines: []string{
			"Identify and avoid potential allergens",
			"Consider antihistamines if appropriate",
		},
	},
	{
		terms: []string{"anxiety", "stress"},
		lines: []string{
			"Practice deep breathing exercises",
			"Try relaxation techniques or meditation",
		},
	},
}

var symptomQuestions = []keywordBlock{
	{terms: []string{"pain", "ache", "hurt"}, lines: []string{"On a scale of 1-10, how severe is the pain?"}},
	{terms: []string{"fever", "temperature"}, lines: []string{"Have you measured your temperature? What was it?"}},
	{terms: []string{"cough", "breathing", "chest"}, lines: []string{"Is the cough producing any phlegm or blood?"}},
	{terms: []string{"headache", "head"}, lines: []string{"Are you experiencing any vision changes or sensitivity to light?"}},
	{terms: []string{"stomach", "nausea", "abdominal"}, lines: []string{"Are you experiencing any vomiting or diarrhea?"}},
}

var (
	onsetQuestion    = "When did these symptoms first start?"
	contextQuestions = []string{
		"Have you taken any medications for these symptoms?",
		"Have you been exposed to anyone who was ill recently?",
		"Are there any activities that make the symptoms better or worse?",
	}
	timeWords = []string{"hour", "day", "week", "month", "year", "ago", "since"}
)

// AdviceInput is what the generators key off.
type AdviceInput struct {
	Symptoms   []string
	RawText    string
	Duration   string
	Age        string
	Level      UrgencyLevel
	TopDisease string
}

// Recommendations builds the advice list: the urgency block first, then
// symptom, age and condition specific lines. The result has no duplicates
// and at most MaxRecommendations entries.
func Recommendations(in AdviceInput) []string {
	text := strings.ToLower(strings.Join(in.Symptoms, " "))

	base, ok := baseRecommendations[in.Level]
	if !ok {
		base = baseRecommendations[UrgencyLow]
	}
	lines := append([]string{}, base...)
	lines = appendMatching(lines, text, symptomRecommendations)

	if age, ok := parseAge(in.Age); ok {
		switch {
		case age > elderlyAgeThreshold:
			lines = append(lines, "Consider having a family member assist with care")
		case age < 18:
			lines = append(lines, "Ensure adequate supervision and hydration")
		}
	}

	if in.TopDisease != "" {
		lines = appendMatching(lines, strings.ToLower(in.TopDisease), conditionRecommendations)
	}
	return dedupeCapped(lines, MaxRecommendations)
}

// ClarifyingQuestions builds follow-up questions. Symptom specific
// questions come first and generic context questions fill what room is left.
func ClarifyingQuestions(in AdviceInput) []string {
	text := strings.ToLower(in.RawText + " " + strings.Join(in.Symptoms, " "))

	var lines []string
	if strings.TrimSpace(in.Duration) == "" && !containsAny(text, timeWords) {
		lines = append(lines, onsetQuestion)
	}
	lines = appendMatching(lines, text, symptomQuestions)
	lines = append(lines, contextQuestions...)
	return dedupeCapped(lines, MaxQuestions)
}

func appendMatching(lines []string, text string, blocks []keywordBlock) []string {
	for _, b := range blocks {
		if containsAny(text, b.terms) {
			lines = append(lines, b.lines...)
		}
	}
	return lines
}

func dedupeCapped(lines []string, limit int) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, limit)
	for _, l := range lines {
		if len(out) == limit {
			break
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
