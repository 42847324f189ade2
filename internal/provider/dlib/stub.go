//go:build !dlib

package dlib

import (
	"context"
	"image"

	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

// Recognizer is unavailable in builds without the dlib tag.
type Recognizer struct{}

// NewRecognizer always fails with provider.ErrUnavailable.
func NewRecognizer(modelsDir string) (*Recognizer, error) {
	return nil, provider.ErrUnavailable
}

func (r *Recognizer) Detect(context.Context, *image.Gray) ([]image.Rectangle, error) {
	return nil, provider.ErrUnavailable
}

func (r *Recognizer) Encode(context.Context, image.Image, image.Rectangle) ([]float64, error) {
	return nil, provider.ErrUnavailable
}

func (r *Recognizer) Close() error { return nil }
