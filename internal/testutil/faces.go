// Package testutil builds synthetic portraits that the mock detector and
// encoder treat as faces.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// Portrait returns a 64x64 PNG with one bright square on black. Equal seeds
// give byte-identical images; different seeds give different face pixels.
func Portrait(t testing.TB, seed byte) []byte {
	t.Helper()
	return Scene(t, 64, 64, Face{Rect: image.Rect(20, 20, 44, 44), Seed: seed})
}

// Face is one bright region of a synthetic scene.
type Face struct {
	Rect image.Rectangle
	Seed byte
}

// Scene renders faces on a black w x h canvas.
func Scene(t testing.TB, w, h int, faces ...Face) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{A: 255})
		}
	}

	for _, f := range faces {
		c := color.RGBA{R: 128 | f.Seed, G: 200, B: 255 - f.Seed/2, A: 255}
		for y := f.Rect.Min.Y; y < f.Rect.Max.Y; y++ {
			for x := f.Rect.Min.X; x < f.Rect.Max.X; x++ {
				img.Set(x, y, c)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode scene: %v", err)
	}
	return buf.Bytes()
}

// Blank returns a uniform black PNG with no detectable face.
func Blank(t testing.TB) []byte {
	t.Helper()
	return Scene(t, 32, 32)
}
