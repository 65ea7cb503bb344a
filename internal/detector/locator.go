package detector

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Verdict is the result category of Locate.
type Verdict int

const (
	// Found means the box is valid and can be scored.
	Found Verdict = iota
	// NoFace means the detector returned no candidates.
	NoFace
	// InvalidBox means the selected box is degenerate after clamping.
	InvalidBox
)

func (v Verdict) String() string {
	switch v {
	case Found:
		return "found"
	case NoFace:
		return "no_face"
	case InvalidBox:
		return "invalid_box"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Box is a face box in integer image pixels.
type Box struct {
	XMin, YMin, XMax, YMax int
}

// BoxFrom truncates a raw bounding box toward zero.
func BoxFrom(b BoundingBox) Box {
	return Box{XMin: int(b.X1), YMin: int(b.Y1), XMax: int(b.X2), YMax: int(b.Y2)}
}

// Clamp limits every coordinate to [0, width-1] x [0, height-1].
func (b Box) Clamp(width, height int) Box {
	return Box{
		XMin: clampInt(b.XMin, 0, width-1),
		YMin: clampInt(b.YMin, 0, height-1),
		XMax: clampInt(b.XMax, 0, width-1),
		YMax: clampInt(b.YMax, 0, height-1),
	}
}

// Valid reports whether the box has positive width and height.
func (b Box) Valid() bool {
	return b.XMin < b.XMax && b.YMin < b.YMax
}

// Rect converts the box to an image.Rectangle with Max exclusive, the
// region that is cropped for scoring.
//
// The outline drawn around a scored face uses Corners instead.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.XMin, b.YMin, b.XMax, b.YMax)
}

// Corners returns the box with Max as the inclusive bottom-right corner.
func (b Box) Corners() image.Rectangle {
	return image.Rectangle{Min: image.Pt(b.XMin, b.YMin), Max: image.Pt(b.XMax, b.YMax)}
}

func (b Box) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", b.XMin, b.YMin, b.XMax, b.YMax)
}

// Locator selects the single face to score.
type Locator struct {
	detector Detector
}

// NewLocator creates a locator over d.
func NewLocator(d Detector) *Locator {
	return &Locator{detector: d}
}

// Locate runs the detector over the full image and returns the first
// candidate, clamped to the image bounds. The box is returned for InvalidBox
// too. Detector errors are returned unchanged.
func (l *Locator) Locate(img gocv.Mat) (Box, Verdict, error) {
	faces, err := l.detector.Detect(img)
	if err != nil {
		return Box{}, NoFace, err
	}
	if len(faces) == 0 {
		return Box{}, NoFace, nil
	}

	box := BoxFrom(faces[0].BoundingBox).Clamp(img.Cols(), img.Rows())
	if !box.Valid() {
		return box, InvalidBox, nil
	}
	return box, Found, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
