package onnx

import (
	"strings"
	"testing"
)

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"no model", Config{NumFeatures: 3, Classes: []string{"a"}}, "model path"},
		{"no features", Config{ModelPath: "m.onnx", Classes: []string{"a"}}, "feature count"},
		{"no classes", Config{ModelPath: "m.onnx", NumFeatures: 3}, "class labels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	got := Config{}.withDefaults()
	if got.InputName != "float_input" || got.OutputName != "probabilities" {
		t.Errorf("unexpected default tensor names %q / %q", got.InputName, got.OutputName)
	}

	got = Config{InputName: "input", OutputName: "output_probability"}.withDefaults()
	if got.InputName != "input" || got.OutputName != "output_probability" {
		t.Errorf("configured names were overwritten: %q / %q", got.InputName, got.OutputName)
	}
}
