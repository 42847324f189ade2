package matcher

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

var (
	alice = domain.Identity{Name: "Alice", RegNo: "001"}
	bob   = domain.Identity{Name: "Bob", RegNo: "002"}
)

// at returns a 4-d encoding displaced from base by d along the first axis.
func at(base domain.FaceEncoding, d float64) domain.FaceEncoding {
	out := append(domain.FaceEncoding(nil), base...)
	out[0] += d
	return out
}

func TestMatch(t *testing.T) {
	a := domain.FaceEncoding{0.1, 0.2, 0.3, 0.4}
	b := domain.FaceEncoding{0.9, -0.2, 0.3, 0.0}
	gallery := domain.Gallery{
		{Encoding: a, Identity: alice},
		{Encoding: b, Identity: bob},
	}

	tests := []struct {
		name      string
		query     domain.FaceEncoding
		gallery   domain.Gallery
		threshold float64
		wantKnown bool
		wantID    domain.Identity
	}{
		{
			name:      "close to A and far from B",
			query:     at(a, 0.05),
			gallery:   gallery,
			threshold: DefaultThreshold,
			wantKnown: true,
			wantID:    alice,
		},
		{
			name:      "far from everyone",
			query:     domain.FaceEncoding{-2, -2, -2, -2},
			gallery:   gallery,
			threshold: DefaultThreshold,
		},
		{
			name:      "empty gallery",
			query:     a,
			gallery:   domain.Gallery{},
			threshold: DefaultThreshold,
		},
		{
			name:      "nil gallery",
			query:     a,
			threshold: 100,
		},
		{
			name:      "dimension mismatch is skipped",
			query:     domain.FaceEncoding{0.1, 0.2},
			gallery:   gallery,
			threshold: 100,
		},
		{
			name:  "mixed dimensions use comparable entries",
			query: at(b, 0.01),
			gallery: domain.Gallery{
				{Encoding: domain.FaceEncoding{0.9, -0.2}, Identity: alice},
				{Encoding: b, Identity: bob},
			},
			threshold: DefaultThreshold,
			wantKnown: true,
			wantID:    bob,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(tt.query, tt.gallery, tt.threshold)
			assert.Equal(t, tt.wantKnown, got.Known)
			assert.Equal(t, tt.wantID, got.Identity)
		})
	}
}

func TestMatch_SelfMatch(t *testing.T) {
	gallery := domain.Gallery{
		{Encoding: domain.FaceEncoding{0.1, 0.2, 0.3, 0.4}, Identity: alice},
		{Encoding: domain.FaceEncoding{0.9, -0.2, 0.3, 0.0}, Identity: bob},
		{Encoding: domain.FaceEncoding{-0.5, 0.5, -0.5, 0.5}, Identity: domain.Identity{Name: "Carol", RegNo: "003"}},
	}

	for _, entry := range gallery {
		got := Match(entry.Encoding, gallery, DefaultThreshold)
		assert.True(t, got.Known)
		assert.Equal(t, entry.Identity, got.Identity)
		assert.Zero(t, got.Distance)
	}
}

func TestMatch_ThresholdIsInclusive(t *testing.T) {
	base := domain.FaceEncoding{0, 0, 0, 0}
	gallery := domain.Gallery{{Encoding: base, Identity: alice}}

	// 0.25 and 0.5 are exact in binary, so the distances are exact too.
	onBoundary := Match(at(base, 0.25), gallery, 0.25)
	assert.True(t, onBoundary.Known)
	assert.Equal(t, 0.25, onBoundary.Distance)

	above := Match(at(base, math.Nextafter(0.25, 1)), gallery, 0.25)
	assert.False(t, above.Known)
	assert.Empty(t, above.Identity)
	assert.Greater(t, above.Distance, 0.25)

	assert.True(t, Match(at(base, 0.5), gallery, 0.5).Known)
}

func TestMatch_TieGoesToFirst(t *testing.T) {
	gallery := domain.Gallery{
		{Encoding: domain.FaceEncoding{1, 0}, Identity: alice},
		{Encoding: domain.FaceEncoding{-1, 0}, Identity: bob},
	}

	got := Match(domain.FaceEncoding{0, 0}, gallery, 1)
	assert.True(t, got.Known)
	assert.Equal(t, alice, got.Identity)
}

func TestMatch_EmptyGalleryDistance(t *testing.T) {
	got := Match(domain.FaceEncoding{1}, nil, DefaultThreshold)
	assert.False(t, got.Known)
	assert.True(t, math.IsInf(got.Distance, 1))
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5.0, Distance(domain.FaceEncoding{0, 0}, domain.FaceEncoding{3, 4}), 1e-12)
}
