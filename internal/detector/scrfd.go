package detector

import (
	"fmt"
	"image"
	"image/color"
	"math"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/facescore/internal/inference"
)

// SCRFD implements the SCRFD face detector
type SCRFD struct {
	session        *inference.Session
	inputSize      int
	confThreshold  float32
	nmsThreshold   float32
	featureStrides []int
	numAnchors     int
}

// NewSCRFD creates a new SCRFD detector
func NewSCRFD(modelPath string, opts Options) (*SCRFD, error) {
	if opts.InputSize <= 0 || opts.InputSize%32 != 0 {
		return nil, fmt.Errorf("SCRFD input size must be a positive multiple of 32, got %d", opts.InputSize)
	}

	// SCRFD has 1 input and 9 outputs (3 levels × 3 outputs each: score, bbox, kps)
	inputName := opts.InputName
	if inputName == "" {
		inputName = "input.1"
	}
	outputNames := []string{
		"score_8", "score_16", "score_32",
		"bbox_8", "bbox_16", "bbox_32",
		"kps_8", "kps_16", "kps_32",
	}

	session, err := inference.NewSession(modelPath, []string{inputName}, outputNames, opts.Device)
	if err != nil {
		return nil, fmt.Errorf("failed to create SCRFD session: %w", err)
	}

	return &SCRFD{
		session:        session,
		inputSize:      opts.InputSize,
		confThreshold:  opts.ConfThreshold,
		nmsThreshold:   opts.NMSThreshold,
		featureStrides: []int{8, 16, 32},
		numAnchors:     2, // anchors per position
	}, nil
}

// Detect finds faces in an image
func (s *SCRFD) Detect(img gocv.Mat) ([]Face, error) {
	padded, lb := letterboxImage(img, s.inputSize, color.RGBA{A: 255}, false)
	defer padded.Close()

	inputBlob := s.preprocess(padded)
	defer inputBlob.Close()

	inputTensor, err := inference.CreateTensor(
		[]int64{1, 3, int64(s.inputSize), int64(s.inputSize)},
		blobData(inputBlob),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, 9)
	outputTensors := make([]*ort.Tensor[float32], 9)
	defer func() {
		for _, t := range outputTensors {
			if t != nil {
				t.Destroy()
			}
		}
	}()

	for i, stride := range s.featureStrides {
		fm := s.inputSize / stride
		numAnchors := int64(fm * fm * s.numAnchors)

		for j, width := range []int64{1, 4, 10} { // score, bbox, kps
			t, err := inference.CreateEmptyTensor[float32]([]int64{numAnchors, width})
			if err != nil {
				return nil, fmt.Errorf("failed to create output tensor: %w", err)
			}
			outputs[i+3*j] = t
			outputTensors[i+3*j] = t
		}
	}

	if err := s.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	levels := make([][2][]float32, len(s.featureStrides))
	for i := range levels {
		levels[i] = [2][]float32{
			outputTensors[i].GetData(),
			outputTensors[i+3].GetData(),
		}
	}

	faces := s.decode(levels, lb)
	return nms(faces, s.nmsThreshold), nil
}

// preprocess converts the padded BGR input to an RGB CHW blob normalized
// as (x - 127.5) / 128.0
func (s *SCRFD) preprocess(padded gocv.Mat) gocv.Mat {
	return gocv.BlobFromImage(padded, 1.0/128.0, image.Pt(s.inputSize, s.inputSize),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
}

// decode turns per-level score and bbox outputs into candidates in source
// image coordinates. Boxes are not clamped. Keypoint outputs are not read.
func (s *SCRFD) decode(levels [][2][]float32, lb letterbox) []Face {
	var faces []Face

	for level, stride := range s.featureStrides {
		fm := s.inputSize / stride
		scoreData, bboxData := levels[level][0], levels[level][1]
		st := float32(stride)

		anchorIdx := 0
		for y := 0; y < fm; y++ {
			for x := 0; x < fm; x++ {
				for a := 0; a < s.numAnchors; a++ {
					score := sigmoid(scoreData[anchorIdx])

					if score > s.confThreshold {
						// Anchor center
						cx := (float32(x) + 0.5) * st
						cy := (float32(y) + 0.5) * st

						// Decode bbox (distance to edges)
						b := bboxData[anchorIdx*4 : anchorIdx*4+4]
						x1, y1 := lb.toSource(cx-b[0]*st, cy-b[1]*st)
						x2, y2 := lb.toSource(cx+b[2]*st, cy+b[3]*st)

						faces = append(faces, Face{
							BoundingBox: BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2},
							Score:       score,
						})
					}
					anchorIdx++
				}
			}
		}
	}

	return faces
}

// Close releases detector resources
func (s *SCRFD) Close() error {
	return s.session.Destroy()
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}
