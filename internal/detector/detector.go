// Package detector finds face candidates in an image and selects the one
// face the scorer works on.
package detector

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/dudu/facescore/internal/inference"
)

// Detector returns face candidates for a BGR image, highest confidence first.
type Detector interface {
	Detect(img gocv.Mat) ([]Face, error)
	Close() error
}

// Backends accepted by New.
const (
	KindYOLOv8 = "yolov8"
	KindSCRFD  = "scrfd"
)

// Options configures an ONNX detector backend.
type Options struct {
	InputSize     int
	ConfThreshold float32
	NMSThreshold  float32
	InputName     string
	OutputName    string // yolov8 only
	Device        inference.Device
}

// New opens the detector model at modelPath with the given backend.
func New(kind, modelPath string, opts Options) (Detector, error) {
	switch kind {
	case KindYOLOv8, "":
		return NewYOLOFace(modelPath, opts)
	case KindSCRFD:
		return NewSCRFD(modelPath, opts)
	default:
		return nil, fmt.Errorf("unknown detector kind %q", kind)
	}
}
