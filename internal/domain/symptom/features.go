package symptom

import "strings"

// DefaultFeatureThreshold is the similarity a user phrase must exceed to
// switch on a vocabulary feature.
const DefaultFeatureThreshold = 0.7

// Vocabulary is the ordered symptom list a classifier was trained on.
// Positions index the feature vector and never change after construction.
type Vocabulary struct {
	ids   []string
	terms []string
}

// NewVocabulary copies ids and precomputes the comparable form of each
// entry (underscores to spaces, lower case).
func NewVocabulary(ids []string) *Vocabulary {
	v := &Vocabulary{
		ids:   make([]string, len(ids)),
		terms: make([]string, len(ids)),
	}
	copy(v.ids, ids)
	for i, id := range ids {
		v.terms[i] = DisplayName(id)
	}
	return v
}

// DisplayName turns a vocabulary identifier such as "skin_rash" into "skin rash".
func DisplayName(id string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(id, "_", " ")))
}

func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.ids)
}

// IDs returns a copy of the raw identifiers in vector order.
func (v *Vocabulary) IDs() []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v.ids))
	copy(out, v.ids)
	return out
}

// FeatureVector builds the binary classifier input for symptoms. The result
// always has Len() entries; an empty vocabulary yields an empty vector.
func (v *Vocabulary) FeatureVector(symptoms []string, threshold float64) []int {
	vec := make([]int, v.Len())
	for i := range vec {
		for _, s := range symptoms {
			if Similarity(s, v.terms[i]) > threshold {
				vec[i] = 1
				break
			}
		}
	}
	return vec
}

// ActiveFeatures counts the switched-on positions of a feature vector.
func ActiveFeatures(vec []int) int {
	n := 0
	for _, x := range vec {
		n += x
	}
	return n
}
