package imaging

import (
	"image"
	"image/draw"
	"math"
)

// ToGray converts img to 8-bit luma using BT.601 weights
// (Y = 0.299 R + 0.587 G + 0.114 B, rounded), the same transform OpenCV
// applies for COLOR_BGR2GRAY. The result origin is (0, 0).
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := (y - b.Min.Y) * gray.Stride
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			gray.Pix[row+x-b.Min.X] = uint8(math.Min(255, math.Round(lum)))
		}
	}
	return gray
}

// EqualizeHist spreads the luma histogram over 0..255 following OpenCV's
// equalizeHist: the CDF is rebased at the first occupied bin so the
// darkest present level maps to 0 and the brightest to 255. A single-level
// image maps every pixel to that level.
func EqualizeHist(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	total := b.Dx() * b.Dy()
	if total == 0 {
		return dst
	}

	var hist [256]int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := src.PixOffset(b.Min.X, y)
		for _, v := range src.Pix[off : off+b.Dx()] {
			hist[v]++
		}
	}

	first := 0
	for first < 255 && hist[first] == 0 {
		first++
	}

	var lut [256]uint8
	if hist[first] == total {
		for i := range lut {
			lut[i] = uint8(first)
		}
	} else {
		scale := 255.0 / float64(total-hist[first])
		sum := 0
		for i := first + 1; i < 256; i++ {
			sum += hist[i]
			lut[i] = uint8(math.Min(255, math.Round(float64(sum)*scale)))
		}
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		so := src.PixOffset(b.Min.X, y)
		do := dst.PixOffset(b.Min.X, y)
		for x := 0; x < b.Dx(); x++ {
			dst.Pix[do+x] = lut[src.Pix[so+x]]
		}
	}
	return dst
}

// DetectionFrame is the normalised frame handed to face detectors:
// luma followed by histogram equalisation.
func DetectionFrame(img image.Image) *image.Gray {
	return EqualizeHist(ToGray(img))
}

// ToRGBA copies img into an RGBA buffer anchored at (0, 0).
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
