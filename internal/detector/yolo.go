package detector

import (
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/facescore/internal/inference"
)

// YOLOFace implements a YOLOv8 face detector exported to ONNX.
// The model takes [1, 3, S, S] RGB in [0, 1] and returns [1, C, N] where the
// first five channels are cx, cy, w, h and face confidence. Keypoint
// channels of pose exports are ignored.
type YOLOFace struct {
	session       *inference.Session
	inputSize     int
	confThreshold float32
	nmsThreshold  float32
}

// NewYOLOFace creates a new YOLOv8 face detector
func NewYOLOFace(modelPath string, opts Options) (*YOLOFace, error) {
	if opts.InputSize <= 0 {
		return nil, fmt.Errorf("invalid input size %d", opts.InputSize)
	}

	session, err := inference.NewSession(modelPath,
		[]string{opts.InputName},
		[]string{opts.OutputName},
		opts.Device,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create YOLO session: %w", err)
	}

	return &YOLOFace{
		session:       session,
		inputSize:     opts.InputSize,
		confThreshold: opts.ConfThreshold,
		nmsThreshold:  opts.NMSThreshold,
	}, nil
}

// Detect finds faces in an image
func (y *YOLOFace) Detect(img gocv.Mat) ([]Face, error) {
	padded, lb := letterboxImage(img, y.inputSize, letterboxFill, true)
	defer padded.Close()

	// BGR -> RGB, [0, 255] -> [0, 1], HWC -> CHW
	blob := gocv.BlobFromImage(padded, 1.0/255.0, image.Pt(y.inputSize, y.inputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	inputTensor, err := inference.CreateTensor(
		[]int64{1, 3, int64(y.inputSize), int64(y.inputSize)},
		blobData(blob),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	// Output shape depends on the export (with or without keypoints), so let
	// the runtime allocate it.
	outputs := []ort.Value{nil}
	if err := y.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	output, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", outputs[0])
	}

	faces, err := decodeYOLO(output.GetData(), output.GetShape(), y.confThreshold, lb)
	if err != nil {
		return nil, err
	}
	return nms(faces, y.nmsThreshold), nil
}

// decodeYOLO turns the channel-major [1, C, N] output into candidates in
// source image coordinates.
func decodeYOLO(data []float32, shape []int64, confThreshold float32, lb letterbox) ([]Face, error) {
	if len(shape) != 3 || shape[0] != 1 || shape[1] < 5 {
		return nil, fmt.Errorf("unexpected YOLO output shape %v", shape)
	}
	channels, n := int(shape[1]), int(shape[2])
	if len(data) < channels*n {
		return nil, fmt.Errorf("YOLO output has %d values, want %d", len(data), channels*n)
	}

	var faces []Face
	for i := 0; i < n; i++ {
		score := data[4*n+i]
		if score <= confThreshold {
			continue
		}
		cx, cy := data[i], data[n+i]
		w, h := data[2*n+i], data[3*n+i]

		x1, y1 := lb.toSource(cx-w/2, cy-h/2)
		x2, y2 := lb.toSource(cx+w/2, cy+h/2)

		faces = append(faces, Face{
			BoundingBox: BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2},
			Score:       score,
		})
	}
	return faces, nil
}

// Close releases detector resources
func (y *YOLOFace) Close() error {
	return y.session.Destroy()
}
