package provider

import (
	"context"
	"errors"
	"image"
)

// Detector locates candidate face regions on a normalised detection frame
// (8-bit luma, histogram equalised). Rectangles are in frame coordinates.
type Detector interface {
	Detect(ctx context.Context, frame *image.Gray) ([]image.Rectangle, error)
}

// Encoder computes a face descriptor for one region of a colour image.
// For a fixed model and identical pixels the output must be identical.
type Encoder interface {
	Encode(ctx context.Context, img image.Image, face image.Rectangle) ([]float64, error)
}

// Models is the immutable detector/encoder pair built once at startup and
// shared by every request. ID identifies the encoder model and is part of
// encoding cache keys.
type Models struct {
	Detector Detector
	Encoder  Encoder
	ID       string
	Dim      int
	closers  []func() error
}

// NewModels bundles a detector and encoder. Closers run on Close in
// reverse order.
func NewModels(id string, dim int, det Detector, enc Encoder, closers ...func() error) *Models {
	return &Models{
		Detector: det,
		Encoder:  enc,
		ID:       id,
		Dim:      dim,
		closers:  closers,
	}
}

// Close releases native model resources.
func (m *Models) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ErrUnavailable is returned by backends compiled without their native library.
var ErrUnavailable = errors.New("face model backend not compiled into this binary")
