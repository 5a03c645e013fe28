package symptom

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const minPhraseLength = 3

var (
	phraseSeparator  = regexp.MustCompile(`[,;]|\s+and\s+|\s+&\s+|\s+\+\s+`)
	leadingFiller    = regexp.MustCompile(`^(?:i\s+have\s+|i\s+am\s+|i\s+feel\s+|i've\s+got\s+|i\s+|have\s+|having\s+|experiencing\s+|feeling\s+|feel\s+|got\s+|my\s+|the\s+|a\s+|some\s+)`)
	trailingDuration = regexp.MustCompile(`\s+(?:for|since|lasting)\s+.*$`)
)

// NormalizeSymptoms splits a free-text description into candidate symptom
// phrases. Phrases are NFKC-folded, lower-cased, stripped of filler prefixes
// and trailing duration clauses, and deduplicated in first-seen order.
// An empty result means the text held no usable symptoms.
func NormalizeSymptoms(text string) []string {
	text = strings.ToLower(strings.TrimSpace(norm.NFKC.String(text)))
	if text == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, part := range phraseSeparator.Split(text, -1) {
		phrase := cleanPhrase(part)
		if utf8.RuneCountInString(phrase) < minPhraseLength {
			continue
		}
		if _, ok := seen[phrase]; ok {
			continue
		}
		seen[phrase] = struct{}{}
		out = append(out, phrase)
	}
	return out
}

func cleanPhrase(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for {
		stripped := leadingFiller.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = trailingDuration.ReplaceAllString(s, "")
	return strings.Trim(s, " .!?:\"'()")
}
