//go:build !opencv

package opencv

import (
	"context"
	"image"

	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

// Detector is unavailable in builds without the opencv tag.
type Detector struct{}

// NewDetector always fails with provider.ErrUnavailable.
func NewDetector(path string) (*Detector, error) {
	return nil, provider.ErrUnavailable
}

func (d *Detector) Detect(context.Context, *image.Gray) ([]image.Rectangle, error) {
	return nil, provider.ErrUnavailable
}

func (d *Detector) Close() error { return nil }
