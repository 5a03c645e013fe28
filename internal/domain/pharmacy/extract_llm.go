package pharmacy

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

const DefaultLLMModel = "gpt-4o-mini"

const llmSystemPrompt = `You are an expert medical transcriptionist. Extract prescription information from the text and return ONLY valid JSON.

Doctor names usually carry a title (Dr., Prof.) or a qualification (MBBS, MD). Patient names do not.
Use labels such as "Patient:", "Name:", age and gender markers to tell them apart.

Return exactly this structure:
{
  "patient_name": "",
  "patient_age": null,
  "patient_gender": "",
  "doctor_name": "",
  "doctor_license": "",
  "doctor_specialization": "",
  "medications": [{"name": "", "dosage": "", "frequency": "", "duration": ""}],
  "diagnosis": ""
}

Use null for an unknown age and empty strings for other missing fields. List every medication.`

// llmPrescription is the JSON shape requested from the model. Age arrives
// as a number, a string or null.
type llmPrescription struct {
	PatientName          string          `json:"patient_name"`
	PatientAge           json.RawMessage `json:"patient_age"`
	PatientGender        string          `json:"patient_gender"`
	DoctorName           string          `json:"doctor_name"`
	DoctorLicense        string          `json:"doctor_license"`
	DoctorSpecialization string          `json:"doctor_specialization"`
	Medications          []struct {
		Name      string `json:"name"`
		Dosage    string `json:"dosage"`
		Frequency string `json:"frequency"`
		Duration  string `json:"duration"`
	} `json:"medications"`
	Diagnosis string `json:"diagnosis"`
}

// LLMExtractor asks an OpenAI chat model for the prescription fields. Fields
// the model leaves empty are filled from the rule extractor's hints.
type LLMExtractor struct {
	client *openai.Client
	model  string
	hints  *RuleExtractor
}

func NewLLMExtractor(apiKey, model string, opts ...option.RequestOption) *LLMExtractor {
	if model == "" {
		model = DefaultLLMModel
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &LLMExtractor{client: &client, model: model, hints: NewRuleExtractor()}
}

func (*LLMExtractor) Name() string { return ExtractorLLM }

func (x *LLMExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	hints, _ := x.hints.Extract(ctx, text)

	jsonObjectFormat := shared.NewResponseFormatJSONObjectParam()
	completion, err := x.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(llmSystemPrompt),
			openai.UserMessage(fmt.Sprintf("Pre-identified doctor: %+v\nPre-identified patient: %+v\n\nPrescription text:\n%s",
				hints.Doctor, hints.Patient, text)),
		},
		Model:       shared.ChatModel(x.model),
		Temperature: param.NewOpt(0.1),
		MaxTokens:   param.NewOpt[int64](800),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &jsonObjectFormat,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no response from model")
	}

	var out llmPrescription
	if err := json.Unmarshal([]byte(stripCodeFence(completion.Choices[0].Message.Content)), &out); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	return out.toExtraction(hints), nil
}

func (p *llmPrescription) toExtraction(hints *Extraction) *Extraction {
	e := &Extraction{
		Patient: Patient{
			Name:   strings.TrimSpace(p.PatientName),
			Age:    parseLLMAge(p.PatientAge),
			Gender: strings.TrimSpace(p.PatientGender),
		},
		Doctor: Doctor{
			Name:               strings.TrimSpace(p.DoctorName),
			Specialization:     strings.TrimSpace(p.DoctorSpecialization),
			RegistrationNumber: strings.TrimSpace(p.DoctorLicense),
		},
		Medicines: []Medicine{},
		Diagnosis: []string{},
	}
	setOnce(&e.Patient.Name, hints.Patient.Name)
	setOnce(&e.Patient.Age, hints.Patient.Age)
	setOnce(&e.Patient.Gender, hints.Patient.Gender)
	setOnce(&e.Doctor.Name, hints.Doctor.Name)
	setOnce(&e.Doctor.Specialization, hints.Doctor.Specialization)
	setOnce(&e.Doctor.RegistrationNumber, hints.Doctor.RegistrationNumber)

	for _, m := range p.Medications {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		e.Medicines = append(e.Medicines, Medicine{
			Name:      name,
			Dosage:    strings.TrimSpace(m.Dosage),
			Quantity:  "1",
			Frequency: ExpandFrequency(strings.TrimSpace(m.Frequency)),
			Duration:  strings.TrimSpace(m.Duration),
		})
	}
	if d := strings.TrimSpace(p.Diagnosis); d != "" {
		e.Diagnosis = append(e.Diagnosis, d)
	}
	return e
}

func parseLLMAge(raw json.RawMessage) string {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return strconv.Itoa(int(n))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n > 0 {
			return strconv.Itoa(n)
		}
	}
	return ""
}

// stripCodeFence removes a ```json fence some models wrap around output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
