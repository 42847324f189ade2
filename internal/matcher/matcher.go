// Package matcher classifies a query encoding against a class gallery by
// nearest Euclidean neighbour.
package matcher

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// DefaultThreshold is the largest accepted distance for dlib ResNet encodings.
const DefaultThreshold = 0.4

// Match scans the whole gallery and returns the closest entry. The first entry
// reaching the minimum wins ties. The result is Known only when the gallery has
// a comparable entry and the minimum distance is at most threshold; otherwise
// Identity is empty and Distance is the nearest distance seen (+Inf for an
// empty gallery). Entries whose dimension differs from the query are ignored.
func Match(query domain.FaceEncoding, gallery domain.Gallery, threshold float64) domain.MatchResult {
	best := -1
	bestDist := math.Inf(1)

	for i, entry := range gallery {
		if len(entry.Encoding) != len(query) || len(query) == 0 {
			continue
		}
		d := floats.Distance(query, entry.Encoding, 2)
		if d < bestDist {
			best, bestDist = i, d
		}
	}

	if best < 0 {
		return domain.MatchResult{Distance: math.Inf(1)}
	}

	if bestDist > threshold {
		return domain.MatchResult{Distance: bestDist}
	}
	return domain.MatchResult{
		Identity: gallery[best].Identity,
		Distance: bestDist,
		Known:    true,
	}
}

// Distance is the Euclidean distance between two encodings of equal length.
func Distance(a, b domain.FaceEncoding) float64 {
	return floats.Distance(a, b, 2)
}
