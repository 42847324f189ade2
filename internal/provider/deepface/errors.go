package deepface

import "errors"

// ErrUnavailable wraps the last failure once every retry against the
// sidecar is spent. 4xx replies are returned as they are, unwrapped.
var ErrUnavailable = errors.New("face embedding sidecar unreachable")

var (
	ErrMalformedReply = errors.New("face embedding sidecar sent an unreadable reply")
	// ErrEmptyEmbedding means /represent answered without a vector for the crop.
	ErrEmptyEmbedding = errors.New("no embedding for face crop")
)
