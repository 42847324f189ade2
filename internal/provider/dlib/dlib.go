//go:build dlib

package dlib

import (
	"context"
	"fmt"
	"image"
	"sync"

	face "github.com/Kagami/go-face"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imaging"
)

// Recognizer wraps dlib's ResNet face model. One native recognizer is not
// safe for concurrent use, so calls are serialised.
type Recognizer struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

// NewRecognizer loads shape_predictor_5_face_landmarks.dat,
// dlib_face_recognition_resnet_model_v1.dat and mmod_human_face_detector.dat
// from modelsDir.
func NewRecognizer(modelsDir string) (*Recognizer, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("load dlib models from %s: %w", modelsDir, err)
	}
	return &Recognizer{rec: rec}, nil
}

// Detect runs dlib's HOG detector over the frame.
func (r *Recognizer) Detect(ctx context.Context, frame *image.Gray) ([]image.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := imaging.EncodeJPEG(frame, jpegQuality)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	r.mu.Lock()
	faces, err := r.rec.Recognize(data)
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	off := frame.Bounds().Min
	rects := make([]image.Rectangle, 0, len(faces))
	for _, f := range faces {
		rects = append(rects, f.Rectangle.Add(off))
	}
	return rects, nil
}

// Encode computes the 128-d descriptor of the face inside a padded crop.
func (r *Recognizer) Encode(ctx context.Context, img image.Image, rect image.Rectangle) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	crop := imaging.Crop(img, imaging.Pad(rect, cropPadding, img.Bounds()))
	data, err := imaging.EncodeJPEG(crop, jpegQuality)
	if err != nil {
		return nil, fmt.Errorf("encode face: %w", err)
	}

	r.mu.Lock()
	f, err := r.rec.RecognizeSingle(data)
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("encode face: %w", err)
	}
	if f == nil {
		return nil, domain.ErrNoFaceDetected
	}

	out := make([]float64, len(f.Descriptor))
	for i, v := range f.Descriptor {
		out[i] = float64(v)
	}
	return out, nil
}

// Close frees the native model.
func (r *Recognizer) Close() error {
	r.rec.Close()
	return nil
}
