package pharmacy

import (
	"context"
	"regexp"
	"strings"
)

const (
	ExtractorRules = "rules"
	ExtractorLLM   = "llm"

	maxFallbackMedicines = 5
)

// Extraction is what an extractor pulls out of prescription text.
type Extraction struct {
	Patient   Patient    `json:"patient"`
	Doctor    Doctor     `json:"doctor"`
	Medicines []Medicine `json:"medicines"`
	Diagnosis []string   `json:"diagnosis"`
}

type Extractor interface {
	Name() string
	Extract(ctx context.Context, text string) (*Extraction, error)
}

var frequencyExpansions = map[string]string{
	"od":  "once daily",
	"qd":  "once daily",
	"bd":  "twice daily",
	"bid": "twice daily",
	"tid": "three times daily",
	"qid": "four times daily",
	"sos": "as needed",
	"prn": "as needed",
	"ac":  "before meals",
	"pc":  "after meals",
	"hs":  "at bedtime",
	"qhs": "at bedtime",
}

var dosageForms = map[string]string{
	"tab": "tablet",
	"cap": "capsule",
	"syp": "syrup",
	"inj": "injection",
}

// ExpandFrequency spells out a prescription abbreviation such as "bd".
// Anything else is returned unchanged.
func ExpandFrequency(f string) string {
	if full, ok := frequencyExpansions[strings.ToLower(strings.TrimSpace(f))]; ok {
		return full
	}
	return f
}

// fieldRule fills one field from the first submatch of re. Rules are tried
// in order and a filled field is never overwritten.
type fieldRule struct {
	re    *regexp.Regexp
	apply func(e *Extraction, value string)
}

// medicineRule turns one prescription line into a medicine. The first
// rule that matches a line wins.
type medicineRule struct {
	re    *regexp.Regexp
	build func(m []string) Medicine
}

var (
	labelTail      = regexp.MustCompile(`(?i)(?:^|\s+)(?:age|sex|gender|date|reg)\b.*$`)
	leadingForm    = regexp.MustCompile(`(?i)^(?:(?:tab|cap|syp|inj)\.?|tablet|capsule|syrup|injection)\s+`)
	listNumbering  = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)
	hasLetter      = regexp.MustCompile(`[A-Za-z]`)
	fallbackIgnore = []string{"dr.", "patient", "age", "date"}
)

var fieldRules = []fieldRule{
	{regexp.MustCompile(`(?i)\b(?:Dr\.?|Doctor|Prof\.?|Professor)[ \t]+([A-Za-z][A-Za-z \t.]*)`), func(e *Extraction, v string) {
		setOnce(&e.Doctor.Name, cleanName(v))
	}},
	{regexp.MustCompile(`(?i)\b(Cardiologist|Neurologist|Orthopedic|Pediatrician|Dermatologist|Gynecologist|Psychiatrist|Radiologist|Oncologist|Urologist|ENT|Ophthalmologist|General\s+Physician|General\s+Medicine|Internal\s+Medicine)\b`), func(e *Extraction, v string) {
		setOnce(&e.Doctor.Specialization, v)
	}},
	{regexp.MustCompile(`(?i)\b(?:Reg\.?\s*No\.?|Registration\s+No\.?|License\s+No\.?|Medical\s+License)\s*:?\s*([A-Z0-9]+)`), func(e *Extraction, v string) {
		setOnce(&e.Doctor.RegistrationNumber, strings.ToUpper(v))
	}},
	{regexp.MustCompile(`(?i)\b(?:Patient(?:[ \t]+Name)?|Name)[ \t]*:?[ \t]*([A-Za-z][A-Za-z \t.]*)`), func(e *Extraction, v string) {
		if name := cleanName(v); len(name) >= 2 && len(name) <= 50 {
			setOnce(&e.Patient.Name, name)
		}
	}},
	{regexp.MustCompile(`(?i)\bAge[ \t]*[:\-]?[ \t]*(\d{1,3})`), func(e *Extraction, v string) {
		setOnce(&e.Patient.Age, v)
	}},
	{regexp.MustCompile(`(?i)\b(\d{1,3})[ \t]*(?:years?|yrs?)\b`), func(e *Extraction, v string) {
		setOnce(&e.Patient.Age, v)
	}},
	{regexp.MustCompile(`(?i)\b(?:Gender|Sex)[ \t]*:?[ \t]*(Male|Female|M|F)\b`), func(e *Extraction, v string) {
		setOnce(&e.Patient.Gender, normalizeGender(v))
	}},
	{regexp.MustCompile(`(?i)\b(male|female)\b`), func(e *Extraction, v string) {
		setOnce(&e.Patient.Gender, normalizeGender(v))
	}},
	{regexp.MustCompile(`(?i)\b(?:Diagnosis|Dx)[ \t]*[:\-][ \t]*([^\n]+)`), func(e *Extraction, v string) {
		if len(e.Diagnosis) > 0 {
			return
		}
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				e.Diagnosis = append(e.Diagnosis, d)
			}
		}
	}},
}

var medicineRules = []medicineRule{
	// Crocin Tab 650 mg
	{regexp.MustCompile(`(?i)(\w+(?:\s+\w+)*)\s+(Tab|Cap|Syp)\.?\s+(\d+)\s*(mg|ml)(?:\s+(\w+))?`), func(m []string) Medicine {
		return Medicine{
			Name:         m[1],
			Dosage:       m[3] + " " + strings.ToLower(m[4]),
			Frequency:    ExpandFrequency(m[5]),
			Instructions: dosageForms[strings.ToLower(m[2])],
		}
	}},
	// Amoxicillin 500 mg tid x 5
	{regexp.MustCompile(`(?i)(\w+(?:\s+\w+)*)\s+(\d+\s*(?:mg|ml|gm|g))\s+(\w+)\s*(?:x\s*(\d+))?`), func(m []string) Medicine {
		med := Medicine{Name: m[1], Dosage: m[2], Frequency: ExpandFrequency(m[3])}
		if m[4] != "" {
			med.Duration = m[4] + " days"
		}
		return med
	}},
	// Dolo 650 bd
	{regexp.MustCompile(`(?i)(\w+)\s+(\d+)\s*(od|bd|tid|qid|sos|hs)\b`), func(m []string) Medicine {
		return Medicine{Name: m[1], Dosage: m[2], Frequency: ExpandFrequency(m[3])}
	}},
}

// RuleExtractor reads prescriptions with ordered regular expression rules.
// It never fails.
type RuleExtractor struct{}

func NewRuleExtractor() *RuleExtractor { return &RuleExtractor{} }

func (*RuleExtractor) Name() string { return ExtractorRules }

func (*RuleExtractor) Extract(_ context.Context, text string) (*Extraction, error) {
	e := &Extraction{Medicines: []Medicine{}, Diagnosis: []string{}}
	for _, r := range fieldRules {
		for _, m := range r.re.FindAllStringSubmatch(text, -1) {
			r.apply(e, strings.TrimSpace(m[1]))
		}
	}
	e.Medicines = extractMedicines(text)
	return e, nil
}

func extractMedicines(text string) []Medicine {
	lines := strings.Split(text, "\n")
	meds := []Medicine{}
	for _, line := range lines {
		line = strings.TrimSpace(listNumbering.ReplaceAllString(line, ""))
		if len(line) < 3 {
			continue
		}
		for _, r := range medicineRules {
			m := r.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			med := r.build(m)
			med.Name = leadingForm.ReplaceAllString(strings.TrimSpace(med.Name), "")
			if len(med.Name) > 1 {
				med.Quantity = "1"
				meds = append(meds, med)
			}
			break
		}
	}
	if len(meds) > 0 {
		return meds
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) < 3 || len(line) >= 50 || !hasLetter.MatchString(line) {
			continue
		}
		lower := strings.ToLower(line)
		skip := false
		for _, kw := range fallbackIgnore {
			if strings.Contains(lower, kw) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		meds = append(meds, Medicine{Name: line, Quantity: "1"})
		if len(meds) == maxFallbackMedicines {
			break
		}
	}
	return meds
}

func setOnce(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

// cleanName drops a trailing label that ran onto the same line, such as
// "John Doe Age".
func cleanName(v string) string {
	v = labelTail.ReplaceAllString(v, "")
	return strings.Trim(strings.Join(strings.Fields(v), " "), " .")
}

func normalizeGender(v string) string {
	switch strings.ToLower(v) {
	case "m", "male":
		return "Male"
	case "f", "female":
		return "Female"
	}
	return ""
}

// Confidence weighs how complete an extraction is. textQuality is 1 for
// typed text.
func Confidence(textQuality float64, e *Extraction) float64 {
	var medicineScore float64
	if n := len(e.Medicines); n > 0 {
		medicineScore = min(1, float64(n)/3+0.3)
	}

	var patientScore float64
	if e.Patient.Name != "" {
		patientScore += 0.5
	}
	if e.Patient.Age != "" {
		patientScore += 0.25
	}
	if e.Patient.Gender != "" {
		patientScore += 0.25
	}

	var doctorScore float64
	if e.Doctor.Name != "" {
		doctorScore += 0.6
	}
	if e.Doctor.Specialization != "" {
		doctorScore += 0.2
	}
	if e.Doctor.RegistrationNumber != "" {
		doctorScore += 0.2
	}

	total := 0.3*textQuality + 0.3*medicineScore + 0.2*min(1, patientScore) + 0.2*min(1, doctorScore)
	return max(0, min(1, total))
}
