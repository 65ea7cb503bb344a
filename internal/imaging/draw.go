package imaging

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// BoxColor is the outline color for detected faces (green, as in the preview).
var BoxColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}

// Bounds returns the pixel rectangle of mat.
func Bounds(mat gocv.Mat) image.Rectangle {
	return image.Rect(0, 0, mat.Cols(), mat.Rows())
}

// Crop copies the pixels of r into a new continuous Mat. r is intersected
// with the image bounds; an empty intersection yields an empty Mat.
func Crop(img gocv.Mat, r image.Rectangle) gocv.Mat {
	r = r.Intersect(Bounds(img))
	if r.Empty() {
		return gocv.NewMat()
	}
	region := img.Region(r)
	defer region.Close()
	return region.Clone()
}

// DrawBox returns a copy of img with an outline from corner r.Min to corner
// r.Max, both inclusive, as cv2.rectangle draws it. img is not modified.
func DrawBox(img gocv.Mat, r image.Rectangle, c color.RGBA, thickness int) gocv.Mat {
	out := img.Clone()
	if thickness < 1 {
		thickness = 1
	}
	// gocv takes a Rect whose bottom-right corner is exclusive.
	rect := image.Rectangle{Min: r.Min, Max: r.Max.Add(image.Pt(1, 1))}
	gocv.RectangleWithParams(&out, rect, c, thickness, gocv.Line8, 0)
	return out
}
