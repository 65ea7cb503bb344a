package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
	"golang.org/x/image/bmp"
)

func solid(w, h int, b, g, r float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), h, w, gocv.MatTypeCV8UC3)
}

func bgrAt(m gocv.Mat, x, y int) [3]uint8 {
	v := m.GetVecbAt(y, x)
	return [3]uint8{v[0], v[1], v[2]}
}

func filled(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDecodeFormats(t *testing.T) {
	src := filled(8, 6, color.NRGBA{R: 200, G: 10, B: 10, A: 255})

	encoders := map[string]func(*bytes.Buffer) error{
		"png":  func(b *bytes.Buffer) error { return png.Encode(b, src) },
		"jpeg": func(b *bytes.Buffer) error { return jpeg.Encode(b, src, nil) },
		"bmp":  func(b *bytes.Buffer) error { return bmp.Encode(b, src) },
	}

	for name, enc := range encoders {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := enc(&buf); err != nil {
				t.Fatal(err)
			}
			mat, err := Decode(buf.Bytes())
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			defer mat.Close()

			if mat.Cols() != 8 || mat.Rows() != 6 || mat.Channels() != 3 {
				t.Errorf("decoded %dx%dx%d, want 8x6x3", mat.Cols(), mat.Rows(), mat.Channels())
			}
		})
	}
}

func TestDecodeDropsAlphaKeepingColour(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, filled(4, 4, color.NRGBA{R: 200, G: 100, B: 50, A: 0})); err != nil {
		t.Fatal(err)
	}

	mat, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	defer mat.Close()

	if got, want := bgrAt(mat, 1, 1), [3]uint8{50, 100, 200}; got != want {
		t.Errorf("transparent pixel decoded as BGR %v, want %v", got, want)
	}
}

func TestDecodeFileErrors(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "not-an-image.jpg")
	if err := os.WriteFile(garbage, []byte("definitely not a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := DecodeFile(garbage)
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *DecodeError, got %T %v", err, err)
	}
	if decErr.Path != garbage {
		t.Errorf("error path = %q, want %q", decErr.Path, garbage)
	}

	_, err = DecodeFile(filepath.Join(dir, "missing.png"))
	if !errors.As(err, &decErr) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected *DecodeError wrapping ErrNotExist, got %v", err)
	}

	empty := filepath.Join(dir, "empty.png")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeFile(empty); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("empty file: got %v, want ErrEmptyImage", err)
	}
}

func TestCrop(t *testing.T) {
	img := solid(10, 10, 0, 0, 0)
	defer img.Close()
	img.SetUCharAt(4, 3*3+2, 255) // red at (3,4)

	face := Crop(img, image.Rect(3, 4, 7, 9))
	defer face.Close()
	if face.Cols() != 4 || face.Rows() != 5 {
		t.Fatalf("crop size = %dx%d, want 4x5", face.Cols(), face.Rows())
	}
	if got := bgrAt(face, 0, 0); got[2] != 255 {
		t.Errorf("crop origin should carry the source pixel at (3,4), got %v", got)
	}

	clipped := Crop(img, image.Rect(8, 8, 20, 20))
	defer clipped.Close()
	if clipped.Cols() != 2 || clipped.Rows() != 2 {
		t.Errorf("crop outside bounds = %dx%d, want 2x2", clipped.Cols(), clipped.Rows())
	}

	outside := Crop(img, image.Rect(30, 30, 40, 40))
	defer outside.Close()
	if !outside.Empty() {
		t.Error("crop fully outside the image should be empty")
	}
}

func TestDrawBoxLeavesOriginalUntouched(t *testing.T) {
	img := solid(20, 20, 0, 0, 0)
	defer img.Close()

	out := DrawBox(img, image.Rect(5, 5, 14, 14), BoxColor, 2)
	defer out.Close()

	green := [3]uint8{0, 255, 0}
	if got := bgrAt(out, 5, 5); got != green {
		t.Errorf("corner not drawn: %v", got)
	}
	if got := bgrAt(out, 14, 10); got != green {
		t.Errorf("inclusive right edge not drawn: %v", got)
	}
	if got := bgrAt(out, 10, 10); got != [3]uint8{} {
		t.Errorf("box interior changed: %v", got)
	}
	if got := bgrAt(img, 5, 5); got != [3]uint8{} {
		t.Error("DrawBox modified the source image")
	}
}

func TestDrawBoxClipsAtImageEdge(t *testing.T) {
	img := solid(10, 10, 0, 0, 0)
	defer img.Close()

	out := DrawBox(img, image.Rect(0, 0, 9, 9), BoxColor, 2)
	defer out.Close()

	if out.Cols() != 10 || out.Rows() != 10 {
		t.Fatalf("size changed: %dx%d", out.Cols(), out.Rows())
	}
	green := [3]uint8{0, 255, 0}
	if bgrAt(out, 0, 0) != green || bgrAt(out, 9, 9) != green {
		t.Error("edges at image border not drawn")
	}
}

func TestToImage(t *testing.T) {
	mat := solid(2, 1, 10, 20, 30)
	defer mat.Close()

	img, err := ToImage(mat)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, a := img.At(1, 0).RGBA()
	if r>>8 != 30 || g>>8 != 20 || b>>8 != 10 || a>>8 != 255 {
		t.Errorf("pixel = %d %d %d %d, want 30 20 10 255", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	if err := SavePNG(path, filled(3, 3, color.NRGBA{G: 255, A: 255})); err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}
	mat, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("saved file does not decode: %v", err)
	}
	defer mat.Close()
	if mat.Cols() != 3 {
		t.Errorf("unexpected width %d", mat.Cols())
	}
}
