// Package onnx runs a disease classifier exported to ONNX through the
// ONNX Runtime shared library.
package onnx

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Defaults match an sklearn export converted with zipmap disabled, which
// yields a plain [1, classes] float tensor.
const (
	DefaultInputName  = "float_input"
	DefaultOutputName = "probabilities"
)

type Config struct {
	ModelPath   string
	LibraryPath string
	InputName   string
	OutputName  string
	// Classes labels the output columns in order.
	Classes     []string
	NumFeatures int
}

func (cfg Config) withDefaults() Config {
	if cfg.InputName == "" {
		cfg.InputName = DefaultInputName
	}
	if cfg.OutputName == "" {
		cfg.OutputName = DefaultOutputName
	}
	return cfg
}

var (
	envOnce sync.Once
	envErr  error
)

// initEnvironment loads the runtime library once per process.
func initEnvironment(libPath string) error {
	envOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// Classifier holds one session with preallocated tensors. Runs are
// serialized because the tensors are reused between calls.
type Classifier struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	classes []string
}

func Load(cfg Config) (*Classifier, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("model path is required")
	}
	if cfg.NumFeatures <= 0 {
		return nil, fmt.Errorf("feature count must be positive")
	}
	if len(cfg.Classes) == 0 {
		return nil, fmt.Errorf("class labels are required")
	}
	cfg = cfg.withDefaults()
	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("init onnxruntime: %w", err)
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.NumFeatures)))
	if err != nil {
		return nil, fmt.Errorf("allocate input: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(cfg.Classes))))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("allocate output: %w", err)
	}
	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}

	classes := make([]string, len(cfg.Classes))
	copy(classes, cfg.Classes)
	return &Classifier{session: session, input: input, output: output, classes: classes}, nil
}

func (c *Classifier) Classes() []string { return c.classes }

func (c *Classifier) Predict(features []int) (string, error) {
	proba, err := c.PredictProba(features)
	if err != nil {
		return "", err
	}
	best := 0
	for i := range proba {
		if proba[i] > proba[best] {
			best = i
		}
	}
	return c.classes[best], nil
}

func (c *Classifier) PredictProba(features []int) ([]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	in := c.input.GetData()
	if len(features) != len(in) {
		return nil, fmt.Errorf("feature vector has %d entries, model expects %d", len(features), len(in))
	}
	for i, x := range features {
		in[i] = float32(x)
	}
	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}
	out := c.output.GetData()
	proba := make([]float64, len(out))
	for i, p := range out {
		proba[i] = float64(p)
	}
	return proba, nil
}

func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, destroy := range []func() error{c.session.Destroy, c.input.Destroy, c.output.Destroy} {
		if err := destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
