// Package imaging holds the OpenCV image helpers used around inference:
// decoding, cropping and drawing the detection box on a display copy.
//
// Mats returned by this package are owned by the caller and must be closed.
package imaging

import (
	"errors"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// ErrEmptyImage is wrapped by DecodeError when OpenCV could not make
// pixels out of the input.
var ErrEmptyImage = errors.New("not a decodable image")

// DecodeError reports input that is not a decodable image.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("cannot decode image %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("cannot decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode decodes a PNG, JPEG or BMP buffer into a 3 channel BGR Mat. Any
// alpha channel is dropped without touching the colour values.
func Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.Mat{}, &DecodeError{Err: ErrEmptyImage}
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, &DecodeError{Err: err}
	}
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, &DecodeError{Err: ErrEmptyImage}
	}
	return mat, nil
}

// DecodeFile reads and decodes the file at path. Read and decode failures
// are both reported as *DecodeError.
func DecodeFile(path string) (gocv.Mat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gocv.Mat{}, &DecodeError{Path: path, Err: err}
	}
	mat, err := Decode(data)
	if err != nil {
		var decErr *DecodeError
		if errors.As(err, &decErr) {
			decErr.Path = path
		}
		return gocv.Mat{}, err
	}
	return mat, nil
}

// ToImage copies a BGR Mat into an RGBA image owned by the Go heap.
func ToImage(mat gocv.Mat) (image.Image, error) {
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert mat: %w", err)
	}
	return img, nil
}

// SavePNG writes img to path as PNG.
func SavePNG(path string, img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("failed to convert %s: %w", path, err)
	}
	defer mat.Close()

	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("failed to write %s", path)
	}
	return nil
}
