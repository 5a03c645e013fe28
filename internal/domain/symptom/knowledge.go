package symptom

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Knowledge file names inside a data directory.
const (
	VocabularyFile   = "symptom_columns.json"
	DiseaseListFile  = "disease_list.json"
	DatasetFile      = "disease-symptom_dataset.json"
	DescriptionsFile = "symptom_descriptions.json"
	PrecautionsFile  = "precautions.json"
	ModelInfoFile    = "model_info.json"
)

//go:embed data/*.json
var builtinData embed.FS

// KnowledgeBase is everything loaded once at startup and only read while
// serving.
type KnowledgeBase struct {
	Vocabulary   *Vocabulary
	Diseases     *DiseaseSymptomMap
	DiseaseList  []string
	Descriptions map[string]string
	Precautions  map[string][]string
	ModelInfo    map[string]any
}

// DefaultKnowledgeBase returns the compiled-in dataset. It has no
// classifier vocabulary.
func DefaultKnowledgeBase() (*KnowledgeBase, error) {
	return loadKnowledge(builtinData, "data", nil, zerolog.Nop())
}

// LoadKnowledgeBase reads the knowledge files in dir. Every file is
// optional; without a dataset file the compiled-in dataset, descriptions
// and precautions are used instead.
func LoadKnowledgeBase(dir string, logger zerolog.Logger) (*KnowledgeBase, error) {
	if dir == "" {
		return DefaultKnowledgeBase()
	}
	if _, err := os.Stat(filepath.Join(dir, DatasetFile)); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat dataset: %w", err)
		}
		logger.Info().Str("dir", dir).Msg("no disease dataset in data dir, using built-in dataset")
		return loadKnowledge(builtinData, "data", os.DirFS(dir), logger)
	}
	return loadKnowledge(os.DirFS(dir), ".", nil, logger)
}

// loadKnowledge reads dataset, descriptions and precautions from primary.
// Vocabulary, disease list and model info come from extra when set,
// otherwise from primary.
func loadKnowledge(primary fs.FS, root string, extra fs.FS, logger zerolog.Logger) (*KnowledgeBase, error) {
	modelFS, modelRoot := primary, root
	if extra != nil {
		modelFS, modelRoot = extra, "."
	}
	kb := &KnowledgeBase{
		Descriptions: map[string]string{},
		Precautions:  map[string][]string{},
		ModelInfo:    map[string]any{},
	}

	data, ok, err := readOptional(primary, root, DatasetFile)
	if err != nil {
		return nil, err
	}
	if ok {
		diseases, skipped, err := ParseDiseaseDataset(data)
		if err != nil {
			return nil, fmt.Errorf("load dataset: %w", err)
		}
		for _, name := range skipped {
			logger.Warn().Str("disease", name).Msg("skipping malformed dataset entry")
		}
		kb.Diseases = diseases
	} else {
		kb.Diseases = NewDiseaseSymptomMap(nil)
	}

	var vocab []string
	if err := decodeOptional(modelFS, modelRoot, VocabularyFile, &vocab); err != nil {
		return nil, err
	}
	kb.Vocabulary = NewVocabulary(vocab)

	if err := decodeOptional(modelFS, modelRoot, DiseaseListFile, &kb.DiseaseList); err != nil {
		return nil, err
	}
	if len(kb.DiseaseList) == 0 {
		kb.DiseaseList = kb.Diseases.Names()
	}
	if err := decodeOptional(primary, root, DescriptionsFile, &kb.Descriptions); err != nil {
		return nil, err
	}
	if err := decodeOptional(primary, root, PrecautionsFile, &kb.Precautions); err != nil {
		return nil, err
	}
	if err := decodeOptional(modelFS, modelRoot, ModelInfoFile, &kb.ModelInfo); err != nil {
		return nil, err
	}

	logger.Info().
		Int("diseases", kb.Diseases.Len()).
		Int("vocabulary", kb.Vocabulary.Len()).
		Int("classes", len(kb.DiseaseList)).
		Msg("knowledge base loaded")
	return kb, nil
}

// ParseDiseaseDataset decodes a JSON object of disease name to symptom list,
// keeping document order. Entries whose value is not an array are skipped
// and their names returned.
func ParseDiseaseDataset(data []byte) (*DiseaseSymptomMap, []string, error) {
	if !gjson.ValidBytes(data) {
		return nil, nil, fmt.Errorf("dataset is not valid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, nil, fmt.Errorf("dataset must be a JSON object")
	}

	var rows []DiseaseSymptoms
	var skipped []string
	doc.ForEach(func(key, value gjson.Result) bool {
		if !value.IsArray() {
			skipped = append(skipped, key.String())
			return true
		}
		row := DiseaseSymptoms{Disease: key.String()}
		for _, s := range value.Array() {
			if s.Type == gjson.String {
				row.Symptoms = append(row.Symptoms, s.String())
			}
		}
		rows = append(rows, row)
		return true
	})
	return NewDiseaseSymptomMap(rows), skipped, nil
}

func readOptional(fsys fs.FS, root, name string) ([]byte, bool, error) {
	data, err := fs.ReadFile(fsys, path.Join(root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", name, err)
	}
	return data, true, nil
}

func decodeOptional(fsys fs.FS, root, name string, dst any) error {
	data, ok, err := readOptional(fsys, root, name)
	if err != nil || !ok {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
