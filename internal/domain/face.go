package domain

import "time"

// FaceEncoding is a fixed-dimension face descriptor. Its length is defined by
// the encoder model (128 for dlib ResNet).
type FaceEncoding []float64

// Dim returns the encoding dimension.
func (e FaceEncoding) Dim() int { return len(e) }

// GalleryEntry pairs one enrolled encoding with its owner.
type GalleryEntry struct {
	Encoding FaceEncoding `json:"-"`
	Identity Identity     `json:"identity"`
}

// Gallery is the ordered search space for one class.
type Gallery []GalleryEntry

// Enrollment is the metadata stored next to each enrollment image.
type Enrollment struct {
	Identity
	Class      string    `json:"class"`
	SHA256     string    `json:"sha256"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// MatchResult is the outcome of a nearest-neighbour search.
type MatchResult struct {
	Identity Identity `json:"identity"`
	Distance float64  `json:"distance"`
	Known    bool     `json:"known"`
}
