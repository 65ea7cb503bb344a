package detector

// BoundingBox represents a raw face bounding box in source image pixels.
// Detectors never clamp it; coordinates may fall outside the image.
type BoundingBox struct {
	X1, Y1 float32 // top-left
	X2, Y2 float32 // bottom-right
}

// Width returns box width
func (b BoundingBox) Width() float32 {
	return b.X2 - b.X1
}

// Height returns box height
func (b BoundingBox) Height() float32 {
	return b.Y2 - b.Y1
}

// Area returns box area
func (b BoundingBox) Area() float32 {
	return b.Width() * b.Height()
}

// Face represents a detected face candidate
type Face struct {
	BoundingBox BoundingBox
	Score       float32
}
