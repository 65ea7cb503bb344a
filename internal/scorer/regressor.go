package scorer

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/dudu/facescore/internal/inference"
	"github.com/dudu/facescore/internal/preprocess"
)

// ONNXRegressor runs the exported three block CNN. The graph is exported in
// evaluation mode, so dropout is inactive and no gradients are kept.
type ONNXRegressor struct {
	session *inference.Session
}

// NewONNXRegressor opens the regressor weights on device.
func NewONNXRegressor(modelPath, inputName, outputName string, device inference.Device) (*ONNXRegressor, error) {
	session, err := inference.NewSession(modelPath, []string{inputName}, []string{outputName}, device)
	if err != nil {
		return nil, fmt.Errorf("failed to create scorer session: %w", err)
	}
	return &ONNXRegressor{session: session}, nil
}

// Predict runs one forward pass and returns the single output value. The
// runtime allocates the output so both [N, 1] and squeezed [N] exports work.
func (r *ONNXRegressor) Predict(input preprocess.Tensor) (float32, error) {
	inputTensor, err := inference.CreateTensor(input.Shape, input.Data)
	if err != nil {
		return 0, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := r.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return 0, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	output, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return 0, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	return scalar(output.GetData(), output.GetShape())
}

// scalar extracts the one value of a single-image output.
func scalar(data []float32, shape []int64) (float32, error) {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	if n != 1 || len(data) != 1 {
		return 0, fmt.Errorf("output shape %v holds %d values, want 1", shape, len(data))
	}
	return data[0], nil
}

// Device returns the device the regressor runs on.
func (r *ONNXRegressor) Device() inference.Device {
	return r.session.Device()
}

// Close releases the session.
func (r *ONNXRegressor) Close() error {
	return r.session.Destroy()
}
