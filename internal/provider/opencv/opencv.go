//go:build opencv

package opencv

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Haar parameters tuned for classroom photos: faces of at least 30px,
// five neighbours to suppress double hits.
const (
	scaleFactor  = 1.1
	minNeighbors = 5
	minFaceSide  = 30
)

// Detector runs a frontal-face Haar cascade.
type Detector struct {
	mu      sync.Mutex
	cascade gocv.CascadeClassifier
}

// NewDetector loads the cascade XML at path.
func NewDetector(path string) (*Detector, error) {
	path = resolveCascade(path)
	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(path) {
		_ = cascade.Close()
		return nil, fmt.Errorf("load cascade classifier from %s", path)
	}
	return &Detector{cascade: cascade}, nil
}

// Detect expects an already equalised gray frame.
func (d *Detector) Detect(ctx context.Context, frame *image.Gray) ([]image.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageGrayToMatGray(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer func() {
		_ = mat.Close()
	}()

	d.mu.Lock()
	rects := d.cascade.DetectMultiScaleWithParams(mat, scaleFactor, minNeighbors, 0,
		image.Pt(minFaceSide, minFaceSide), image.Pt(0, 0))
	d.mu.Unlock()

	off := frame.Bounds().Min
	for i := range rects {
		rects[i] = rects[i].Add(off)
	}
	return rects, nil
}

// Close releases the native classifier.
func (d *Detector) Close() error {
	return d.cascade.Close()
}
