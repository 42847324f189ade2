package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"image"
	"math"

	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

const (
	// brightLevel separates "face" pixels from background on the equalised frame.
	brightLevel = 128
	// minBlobArea drops speckles.
	minBlobArea = 16
)

// Provider is a deterministic detector and encoder for development and tests.
// Faces are bright connected regions of the detection frame; encodings are a
// unit vector derived from sha256 of the face pixels.
type Provider struct {
	dim int
}

// New creates a mock provider emitting dim-dimensional encodings.
func New(dim int) *Provider {
	if dim <= 0 {
		dim = 128
	}
	return &Provider{dim: dim}
}

// Models wraps the provider as a detector/encoder pair.
func (p *Provider) Models() *provider.Models {
	return provider.NewModels("mock", p.dim, p, p)
}

// Detect returns bounding boxes of bright 4-connected regions.
func (p *Provider) Detect(ctx context.Context, frame *image.Gray) ([]image.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()
	seen := make([]bool, w*h)
	var faces []image.Rectangle
	stack := make([]int, 0, 64)

	bright := func(i int) bool {
		x, y := i%w, i/w
		return frame.GrayAt(b.Min.X+x, b.Min.Y+y).Y >= brightLevel
	}

	for start := 0; start < w*h; start++ {
		if seen[start] || !bright(start) {
			continue
		}

		rect := image.Rect(start%w, start/w, start%w+1, start/w+1)
		area := 0
		stack = append(stack[:0], start)
		seen[start] = true

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			area++

			x, y := i%w, i/w
			rect = rect.Union(image.Rect(x, y, x+1, y+1))

			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := n[0], n[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if !seen[j] && bright(j) {
					seen[j] = true
					stack = append(stack, j)
				}
			}
		}

		if area >= minBlobArea {
			faces = append(faces, rect.Add(b.Min))
		}
	}

	// Reverse so callers cannot rely on detector order.
	for i, j := 0, len(faces)-1; i < j; i, j = i+1, j-1 {
		faces[i], faces[j] = faces[j], faces[i]
	}
	return faces, nil
}

// Encode hashes the RGBA pixels inside face into a unit vector.
func (p *Provider) Encode(ctx context.Context, img image.Image, face image.Rectangle) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := sha256.New()
	var px [8]byte
	r := face.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, ca := img.At(x, y).RGBA()
			binary.BigEndian.PutUint16(px[0:], uint16(cr))
			binary.BigEndian.PutUint16(px[2:], uint16(cg))
			binary.BigEndian.PutUint16(px[4:], uint16(cb))
			binary.BigEndian.PutUint16(px[6:], uint16(ca))
			h.Write(px[:])
		}
	}

	return generateEmbedding(h.Sum(nil), p.dim), nil
}

// generateEmbedding stretches a digest into a normalised vector.
func generateEmbedding(digest []byte, dim int) []float64 {
	embedding := make([]float64, dim)
	seed := digest
	for i := 0; i < dim; i++ {
		idx := i % len(seed)
		if idx == 0 && i > 0 {
			next := sha256.Sum256(seed)
			seed = next[:]
		}
		embedding[i] = (float64(seed[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return embedding
	}

	for i := range embedding {
		embedding[i] /= norm
	}
	return embedding
}

var (
	_ provider.Detector = (*Provider)(nil)
	_ provider.Encoder  = (*Provider)(nil)
)
