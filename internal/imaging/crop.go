package imaging

import (
	"image"
	"image/draw"
	"sort"
)

// Pad grows r by frac of its width and height on every side, clipped to bounds.
func Pad(r image.Rectangle, frac float64, bounds image.Rectangle) image.Rectangle {
	px := int(float64(r.Dx()) * frac)
	py := int(float64(r.Dy()) * frac)
	return image.Rect(r.Min.X-px, r.Min.Y-py, r.Max.X+px, r.Max.Y+py).Intersect(bounds)
}

// Crop copies the r region of img into a new RGBA image anchored at (0, 0).
func Crop(img image.Image, r image.Rectangle) *image.RGBA {
	r = r.Intersect(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// SortScanOrder orders rectangles top-to-bottom, then left-to-right by
// their minimum point. The sort is stable, so equal origins keep detector order.
func SortScanOrder(rects []image.Rectangle) {
	sort.SliceStable(rects, func(i, j int) bool {
		if rects[i].Min.Y != rects[j].Min.Y {
			return rects[i].Min.Y < rects[j].Min.Y
		}
		return rects[i].Min.X < rects[j].Min.X
	})
}
