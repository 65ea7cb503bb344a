// Package preprocess turns a face crop into the scorer's input tensor.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// ErrNotDecodable is returned for nil or empty images.
var ErrNotDecodable = errors.New("input is not a decodable image")

// Tensor is a dense float32 tensor in NCHW layout.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Preprocessor resizes to a fixed resolution and converts to planar RGB in
// [0, 1]. It holds no mutable state and is safe for concurrent use.
type Preprocessor struct {
	height int
	width  int
}

// New creates a preprocessor for a height x width model input.
func New(height, width int) (*Preprocessor, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("invalid input size %dx%d", width, height)
	}
	return &Preprocessor{height: height, width: width}, nil
}

// Size returns the configured input height and width.
func (p *Preprocessor) Size() (height, width int) {
	return p.height, p.width
}

// Prepare converts img to a [1, 3, H, W] tensor.
func (p *Preprocessor) Prepare(img image.Image) (Tensor, error) {
	if img == nil || img.Bounds().Empty() {
		return Tensor{}, ErrNotDecodable
	}

	resized := resize.Resize(uint(p.width), uint(p.height), flatten(img), resize.Bilinear)

	return Tensor{
		Shape: []int64{1, 3, int64(p.height), int64(p.width)},
		Data:  ToCHW(resized, p.width, p.height),
	}, nil
}

// ToCHW writes the top-left w x h pixels of img as planar R, G, B floats in
// [0, 1]. Pixels outside img are left at zero.
func ToCHW(img image.Image, w, h int) []float32 {
	data := make([]float32, 3*w*h)
	plane := w * h
	b := img.Bounds()

	for y := 0; y < h && y < b.Dy(); y++ {
		for x := 0; x < w && x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			idx := y*w + x
			data[idx] = float32(r>>8) / 255.0
			data[plane+idx] = float32(g>>8) / 255.0
			data[2*plane+idx] = float32(bl>>8) / 255.0
		}
	}
	return data
}

// flatten drops the alpha channel keeping the stored colour, as converting a
// picture to RGB does. Premultiplied sources cannot recover colour under
// zero alpha; straight-alpha ones come back unchanged.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}

	b := img.Bounds()
	rgb := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			rgb.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}
	return rgb
}
