package scorer

import (
	"errors"
	"image"
	"regexp"
	"strings"
	"testing"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/dudu/facescore/internal/preprocess"
)

type fakeRegressor struct {
	value float32
	err   error
	seen  []int64
}

func (f *fakeRegressor) Predict(input preprocess.Tensor) (float32, error) {
	f.seen = input.Shape
	return f.value, f.err
}

func (f *fakeRegressor) Close() error { return nil }

func TestFormatScore(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{3.14159, "3.14"},
		{0, "0.00"},
		{7.005, "7.00"}, // binary 7.005 is slightly below the midpoint
		{2.999, "3.00"},
		{10, "10.00"},
	}
	pattern := regexp.MustCompile(`^\d+\.\d{2}$`)

	for _, tt := range tests {
		got := FormatScore(tt.in)
		if got != tt.want {
			t.Errorf("FormatScore(%v) = %q, want %q", tt.in, got, tt.want)
		}
		if !pattern.MatchString(got) {
			t.Errorf("FormatScore(%v) = %q does not match %s", tt.in, got, pattern)
		}
	}
}

func TestScore(t *testing.T) {
	pre, err := preprocess.New(128, 128)
	if err != nil {
		t.Fatal(err)
	}
	model := &fakeRegressor{value: 3.14159}
	s, err := New(pre, model)
	if err != nil {
		t.Fatal(err)
	}

	v, err := s.Score(image.NewRGBA(image.Rect(0, 0, 40, 60)))
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if FormatScore(v) != "3.14" {
		t.Errorf("score = %v", v)
	}
	want := []int64{1, 3, 128, 128}
	for i := range want {
		if model.seen[i] != want[i] {
			t.Fatalf("regressor saw shape %v, want %v", model.seen, want)
		}
	}
}

func TestScoreErrors(t *testing.T) {
	pre, _ := preprocess.New(8, 8)

	boom := errors.New("device lost")
	s, _ := New(pre, &fakeRegressor{err: boom})
	if _, err := s.Score(image.NewRGBA(image.Rect(0, 0, 4, 4))); !errors.Is(err, boom) {
		t.Errorf("forward pass error not wrapped: %v", err)
	}

	if _, err := s.Score(image.NewRGBA(image.Rect(0, 0, 0, 0))); !errors.Is(err, preprocess.ErrNotDecodable) {
		t.Errorf("empty crop: got %v", err)
	}

	if _, err := New(nil, &fakeRegressor{}); err == nil {
		t.Error("New accepted a nil preprocessor")
	}
}

func tensorInfo(name string, dims ...int64) ort.InputOutputInfo {
	return ort.InputOutputInfo{
		Name:       name,
		Dimensions: ort.NewShape(dims...),
		DataType:   ort.TensorElementDataTypeFloat,
	}
}

func TestCheckIO(t *testing.T) {
	want := Expectation{InputName: "input", OutputName: "output", InputHeight: 128, InputWidth: 128}

	tests := []struct {
		name    string
		inputs  []ort.InputOutputInfo
		outputs []ort.InputOutputInfo
		reason  string
	}{
		{"fixed batch", []ort.InputOutputInfo{tensorInfo("input", 1, 3, 128, 128)}, []ort.InputOutputInfo{tensorInfo("output", 1, 1)}, ""},
		{"dynamic batch", []ort.InputOutputInfo{tensorInfo("input", -1, 3, 128, 128)}, []ort.InputOutputInfo{tensorInfo("output", -1, 1)}, ""},
		{"dynamic spatial", []ort.InputOutputInfo{tensorInfo("input", -1, 3, -1, -1)}, []ort.InputOutputInfo{tensorInfo("output", -1, 1)}, ""},
		{"squeezed output", []ort.InputOutputInfo{tensorInfo("input", 1, 3, 128, 128)}, []ort.InputOutputInfo{tensorInfo("output", -1)}, ""},
		{"grayscale", []ort.InputOutputInfo{tensorInfo("input", 1, 1, 128, 128)}, []ort.InputOutputInfo{tensorInfo("output", 1, 1)}, "want [N 3 H W]"},
		{"wrong size", []ort.InputOutputInfo{tensorInfo("input", 1, 3, 224, 224)}, []ort.InputOutputInfo{tensorInfo("output", 1, 1)}, "spatial size"},
		{"vector output", []ort.InputOutputInfo{tensorInfo("input", 1, 3, 128, 128)}, []ort.InputOutputInfo{tensorInfo("output", 1, 10)}, "one scalar"},
		{"two outputs", []ort.InputOutputInfo{tensorInfo("input", 1, 3, 128, 128)}, []ort.InputOutputInfo{tensorInfo("output", 1, 1), tensorInfo("aux", 1, 1)}, "want 1 output"},
		{"renamed input", []ort.InputOutputInfo{tensorInfo("x", 1, 3, 128, 128)}, []ort.InputOutputInfo{tensorInfo("output", 1, 1)}, "named"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkIO(tt.inputs, tt.outputs, want)
			if tt.reason == "" && got != "" {
				t.Errorf("unexpected mismatch: %s", got)
			}
			if tt.reason != "" && !strings.Contains(got, tt.reason) {
				t.Errorf("reason = %q, want it to contain %q", got, tt.reason)
			}
		})
	}
}

func TestScalar(t *testing.T) {
	tests := []struct {
		name  string
		data  []float32
		shape []int64
		ok    bool
	}{
		{"column", []float32{2.5}, []int64{1, 1}, true},
		{"squeezed", []float32{2.5}, []int64{1}, true},
		{"nchw", []float32{2.5}, []int64{1, 1, 1, 1}, true},
		{"batch of two", []float32{2.5, 1}, []int64{2}, false},
		{"vector", []float32{2.5, 1, 0}, []int64{1, 3}, false},
		{"empty", nil, []int64{1, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := scalar(tt.data, tt.shape)
			if tt.ok {
				if err != nil || v != 2.5 {
					t.Errorf("scalar = %v, %v; want 2.5", v, err)
				}
				return
			}
			if err == nil {
				t.Errorf("shape %v accepted", tt.shape)
			}
		})
	}
}

func TestCheckConvBlocks(t *testing.T) {
	ok := []string{"Conv2D", "ReLU", "MaxPool", "Conv2D", "ReLU", "Conv2D", "Flatten", "Dense"}
	if err := checkConvBlocks("m.onnx", ok); err != nil {
		t.Errorf("three conv layers rejected: %v", err)
	}

	err := checkConvBlocks("m.onnx", []string{"Conv2D", "Dense"})
	var archErr *ArchitectureError
	if !errors.As(err, &archErr) {
		t.Fatalf("expected ArchitectureError, got %v", err)
	}
	if archErr.Path != "m.onnx" {
		t.Errorf("path = %q", archErr.Path)
	}
}
