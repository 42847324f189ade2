package deepface

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/saturnino-fabrica-de-software/chamada/internal/imaging"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

const (
	// cropPadding matches the margin dlib's shape predictor expects around a Haar box.
	cropPadding = 0.2
	jpegQuality = 95
	skipBackend = "skip"
)

// Provider implements provider.Detector and provider.Encoder against a
// DeepFace HTTP service.
type Provider struct {
	client   *Client
	detector string
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client:   NewClient(config),
		detector: config.Detector,
	}
}

// Models wraps the provider as a detector/encoder pair.
func (p *Provider) Models(dim int) *provider.Models {
	return provider.NewModels("deepface:"+p.client.config.Model, dim, p, p)
}

// Detect sends the detection frame and returns the reported facial areas.
func (p *Provider) Detect(ctx context.Context, frame *image.Gray) ([]image.Rectangle, error) {
	data, err := imaging.EncodeJPEG(frame, jpegQuality)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	resp, err := p.client.Represent(ctx, base64.StdEncoding.EncodeToString(data), p.detector)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	bounds := frame.Bounds()
	faces := make([]image.Rectangle, 0, len(resp.Results))
	for _, r := range resp.Results {
		a := r.FacialArea
		rect := image.Rect(a.X, a.Y, a.X+a.W, a.Y+a.H).Intersect(bounds)
		// With enforce_detection off DeepFace answers a no-face image with
		// the whole frame and zero confidence.
		if rect.Empty() || (rect == bounds && r.FaceConfidence == 0) {
			continue
		}
		faces = append(faces, rect)
	}

	return faces, nil
}

// Encode crops the face with padding and asks DeepFace for the embedding
// with detection skipped.
func (p *Provider) Encode(ctx context.Context, img image.Image, face image.Rectangle) ([]float64, error) {
	crop := imaging.Crop(img, imaging.Pad(face, cropPadding, img.Bounds()))
	data, err := imaging.EncodeJPEG(crop, jpegQuality)
	if err != nil {
		return nil, fmt.Errorf("encode face: %w", err)
	}

	resp, err := p.client.Represent(ctx, base64.StdEncoding.EncodeToString(data), skipBackend)
	if err != nil {
		return nil, fmt.Errorf("encode face: %w", err)
	}

	if len(resp.Results) == 0 || len(resp.Results[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	return resp.Results[0].Embedding, nil
}

var (
	_ provider.Detector = (*Provider)(nil)
	_ provider.Encoder  = (*Provider)(nil)
)
