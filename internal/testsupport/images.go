package testsupport

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// Gradient returns a w x h RGBA image with a deterministic colour ramp. The
// ramp keeps JPEG output from collapsing to a trivially small file.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / max(w, 1)),
				G: uint8((y * 255) / max(h, 1)),
				B: uint8((x ^ y) & 0xff),
				A: 0xff,
			})
		}
	}
	return img
}

// WriteJPEG encodes a gradient of the given size to path.
func WriteJPEG(t testing.TB, path string, w, h, quality int) {
	t.Helper()
	f := create(t, path)
	defer f.Close()
	if err := jpeg.Encode(f, Gradient(w, h), &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("encode jpeg %s: %v", path, err)
	}
}

// WritePNG encodes a gradient of the given size to path.
func WritePNG(t testing.TB, path string, w, h int) {
	t.Helper()
	f := create(t, path)
	defer f.Close()
	if err := png.Encode(f, Gradient(w, h)); err != nil {
		t.Fatalf("encode png %s: %v", path, err)
	}
}

// WriteTransparentPNG writes a fully transparent image, used to check alpha
// flattening.
func WriteTransparentPNG(t testing.TB, path string, w, h int) {
	t.Helper()
	f := create(t, path)
	defer f.Close()
	if err := png.Encode(f, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png %s: %v", path, err)
	}
}

func create(t testing.TB, path string) *os.File {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	return f
}
