package symptom

import (
	"math"
	"sort"
	"strings"
)

// DefaultDiseaseMatchThreshold is the similarity a user phrase must exceed
// to count against one of a disease's symptoms.
const DefaultDiseaseMatchThreshold = 0.6

// DiseaseSymptoms is one dataset row: a disease and its canonical symptoms.
type DiseaseSymptoms struct {
	Disease  string   `json:"disease"`
	Symptoms []string `json:"symptoms"`
}

// DiseaseSymptomMap is the read-only disease dataset. Iteration order is
// the order the rows were supplied in and breaks score ties.
type DiseaseSymptomMap struct {
	rows  []DiseaseSymptoms
	index map[string]int
}

// NewDiseaseSymptomMap normalizes symptom phrases (trimmed, lower case,
// deduplicated). A later row with an existing disease name replaces the
// earlier row's symptoms in place.
func NewDiseaseSymptomMap(rows []DiseaseSymptoms) *DiseaseSymptomMap {
	m := &DiseaseSymptomMap{index: make(map[string]int, len(rows))}
	for _, row := range rows {
		name := strings.TrimSpace(row.Disease)
		if name == "" {
			continue
		}
		clean := DiseaseSymptoms{Disease: name, Symptoms: canonicalSymptoms(row.Symptoms)}
		if i, ok := m.index[name]; ok {
			m.rows[i] = clean
			continue
		}
		m.index[name] = len(m.rows)
		m.rows = append(m.rows, clean)
	}
	return m
}

func canonicalSymptoms(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func (m *DiseaseSymptomMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rows)
}

// Names returns disease names in dataset order.
func (m *DiseaseSymptomMap) Names() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = r.Disease
	}
	return out
}

// Symptoms returns a copy of the canonical symptoms of disease.
func (m *DiseaseSymptomMap) Symptoms(disease string) ([]string, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.index[disease]
	if !ok {
		return nil, false
	}
	out := make([]string, len(m.rows[i].Symptoms))
	copy(out, m.rows[i].Symptoms)
	return out, true
}

// DiseaseMatch scores one disease against a user's symptoms. Percentages
// are on a 0-100 scale rounded to two decimals. CombinedScore is the mean
// of the unrounded percentages, rounded the same way.
type DiseaseMatch struct {
	Disease         string   `json:"disease"`
	MatchedSymptoms []string `json:"matched_symptoms"`
	MatchScore      float64  `json:"match_score"`
	MatchPercentage float64  `json:"match_percentage"`
	SymptomCoverage float64  `json:"symptom_coverage"`
	CombinedScore   float64  `json:"combined_score"`
	TotalSymptoms   int      `json:"total_symptoms"`
}

// Match ranks every disease against symptoms, best combined score first.
// Diseases with no matched symptom are left out, as are diseases with an
// empty symptom list. Equal scores keep dataset order.
func (m *DiseaseSymptomMap) Match(symptoms []string, threshold float64) []DiseaseMatch {
	matches := []DiseaseMatch{}
	if len(symptoms) == 0 || m.Len() == 0 {
		return matches
	}

	for _, row := range m.rows {
		if len(row.Symptoms) == 0 {
			continue
		}
		var score float64
		var matched []string
		seen := make(map[string]struct{})
		for _, us := range symptoms {
			best, canonical := bestSymptomMatch(us, row.Symptoms, threshold)
			if canonical == "" {
				continue
			}
			score += best
			if _, ok := seen[canonical]; !ok {
				seen[canonical] = struct{}{}
				matched = append(matched, canonical)
			}
		}
		if len(matched) == 0 {
			continue
		}

		matchPct := 100 * score / float64(len(symptoms))
		coverage := 100 * float64(len(matched)) / float64(len(row.Symptoms))
		matches = append(matches, DiseaseMatch{
			Disease:         row.Disease,
			MatchedSymptoms: matched,
			MatchScore:      round2(score),
			MatchPercentage: round2(matchPct),
			SymptomCoverage: round2(coverage),
			CombinedScore:   round2((matchPct + coverage) / 2),
			TotalSymptoms:   len(row.Symptoms),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CombinedScore > matches[j].CombinedScore
	})
	return matches
}

// bestSymptomMatch returns the highest scoring candidate above threshold.
// The first candidate wins ties.
func bestSymptomMatch(phrase string, candidates []string, threshold float64) (float64, string) {
	var best float64
	var canonical string
	for _, c := range candidates {
		s := Similarity(phrase, c)
		if s > threshold && s > best {
			best, canonical = s, c
		}
	}
	return best, canonical
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
