package detector

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// letterboxFill is the grey used by Ultralytics to pad letterboxed inputs.
var letterboxFill = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// letterbox records how a source image was mapped into the square network
// input so boxes can be mapped back.
type letterbox struct {
	scale float32
	padX  float32
	padY  float32
}

// toSource maps a point from network input space back to source pixels.
func (l letterbox) toSource(x, y float32) (float32, float32) {
	return (x - l.padX) / l.scale, (y - l.padY) / l.scale
}

// letterboxImage scales img to fit a size x size square keeping aspect ratio
// and pads the rest with fill. The scaled image is centered when center is
// set, otherwise placed at the top-left corner. The caller closes the result.
func letterboxImage(img gocv.Mat, size int, fill color.RGBA, center bool) (gocv.Mat, letterbox) {
	height := img.Rows()
	width := img.Cols()

	scale := float32(size) / float32(max(height, width))

	newWidth := min(size, max(1, int(float32(width)*scale)))
	newHeight := min(size, max(1, int(float32(height)*scale)))

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear)

	var top, left int
	if center {
		top = (size - newHeight) / 2
		left = (size - newWidth) / 2
	}
	bottom := size - newHeight - top
	right := size - newWidth - left

	padded := gocv.NewMat()
	gocv.CopyMakeBorder(resized, &padded, top, bottom, left, right, gocv.BorderConstant, fill)

	return padded, letterbox{scale: scale, padX: float32(left), padY: float32(top)}
}

// blobData reads an NCHW float32 blob produced by gocv.BlobFromImage.
func blobData(blob gocv.Mat) []float32 {
	return bytesToFloat32(blob.ToBytes())
}

func bytesToFloat32(data []byte) []float32 {
	result := make([]float32, len(data)/4)
	for i := range result {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		result[i] = math.Float32frombits(bits)
	}
	return result
}
