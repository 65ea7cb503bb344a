package scorer

import (
	"fmt"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/dudu/facescore/internal/logging"
)

// ConvBlocks is the number of convolution blocks in the scorer network.
const ConvBlocks = 3

// ArchitectureError reports weights that do not match the scorer network.
type ArchitectureError struct {
	Path   string
	Reason string
}

func (e *ArchitectureError) Error() string {
	return fmt.Sprintf("%s does not match the scorer architecture: %s", e.Path, e.Reason)
}

// Expectation describes the scorer graph a weights file must implement.
type Expectation struct {
	InputName   string
	OutputName  string
	InputHeight int
	InputWidth  int
}

// VerifyArchitecture checks a weights file before a session is opened:
// ONNX Runtime metadata must describe one [N, 3, H, W] float input and one
// scalar output, and where the go-metal importer is available the graph
// must contain exactly ConvBlocks convolution layers.
func VerifyArchitecture(modelPath string, want Expectation, logger *zap.Logger) error {
	logger = logging.OrNop(logger)

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return fmt.Errorf("failed to read model info: %w", err)
	}
	if reason := checkIO(inputs, outputs, want); reason != "" {
		return &ArchitectureError{Path: modelPath, Reason: reason}
	}

	return verifyLayers(modelPath, logger)
}

// checkIO returns an empty string when the tensors match, or the mismatch.
func checkIO(inputs, outputs []ort.InputOutputInfo, want Expectation) string {
	if len(inputs) != 1 {
		return fmt.Sprintf("want 1 input, got %d", len(inputs))
	}
	if len(outputs) != 1 {
		return fmt.Sprintf("want 1 output, got %d", len(outputs))
	}

	in, out := inputs[0], outputs[0]
	if want.InputName != "" && in.Name != want.InputName {
		return fmt.Sprintf("input is named %q, want %q", in.Name, want.InputName)
	}
	if want.OutputName != "" && out.Name != want.OutputName {
		return fmt.Sprintf("output is named %q, want %q", out.Name, want.OutputName)
	}
	if in.DataType != ort.TensorElementDataTypeFloat {
		return fmt.Sprintf("input type is %v, want float", in.DataType)
	}

	dims := in.Dimensions
	if len(dims) != 4 || dims[1] != 3 {
		return fmt.Sprintf("input shape %v, want [N 3 H W]", dims)
	}
	if !dimMatches(dims[2], want.InputHeight) || !dimMatches(dims[3], want.InputWidth) {
		return fmt.Sprintf("input shape %v, want spatial size %dx%d", dims, want.InputHeight, want.InputWidth)
	}

	// Everything but the batch dimension must collapse to one value.
	if len(out.Dimensions) == 0 {
		return "output has no dimensions"
	}
	for _, d := range out.Dimensions[1:] {
		if d != 1 {
			return fmt.Sprintf("output shape %v, want one scalar per image", out.Dimensions)
		}
	}
	return ""
}

// dimMatches treats non-positive dimensions as dynamic.
func dimMatches(got int64, want int) bool {
	return got <= 0 || want <= 0 || got == int64(want)
}

// countConv counts layer types naming a convolution.
func countConv(layerTypes []string) int {
	n := 0
	for _, t := range layerTypes {
		if strings.Contains(strings.ToLower(t), "conv") {
			n++
		}
	}
	return n
}

func checkConvBlocks(modelPath string, layerTypes []string) error {
	if n := countConv(layerTypes); n != ConvBlocks {
		return &ArchitectureError{
			Path:   modelPath,
			Reason: fmt.Sprintf("want %d convolution layers, got %d", ConvBlocks, n),
		}
	}
	return nil
}
