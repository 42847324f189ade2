// Package extractor turns an encoded image into one face descriptor.
//
// Pipeline:
//  1. Decode (JPEG, PNG, GIF, BMP, TIFF, WebP). Empty or corrupt input is
//     domain.ErrDecode, as is anything over imaging.MaxPixels.
//  2. Downscale so the longer side is at most MaxSide, then copy to RGBA.
//  3. Build the detection frame: BT.601 luma followed by global histogram
//     equalisation, matching OpenCV's COLOR_BGR2GRAY + equalizeHist.
//  4. Detect. No rectangle is domain.ErrNoFaceDetected; several are ordered
//     top-to-bottom then left-to-right and the first is used.
//  5. Encode the chosen rectangle on the colour image.
//  6. Reject descriptors whose length differs from the model dimension.
package extractor

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imaging"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

// MaxSide bounds the working resolution. Webcam captures and phone photos
// are scaled down so detection cost stays flat.
const MaxSide = 1280

type Extractor struct {
	models *provider.Models
}

func New(models *provider.Models) *Extractor {
	return &Extractor{models: models}
}

// ModelID identifies the encoder, for cache keys.
func (e *Extractor) ModelID() string {
	return e.models.ID
}

// Extract returns the descriptor of the first face in scan order.
func (e *Extractor) Extract(ctx context.Context, data []byte) (domain.FaceEncoding, error) {
	decoded, _, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}

	img := imaging.ToRGBA(imaging.Fit(decoded, MaxSide))
	frame := imaging.DetectionFrame(img)

	faces, err := e.models.Detector.Detect(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	if len(faces) == 0 {
		return nil, domain.ErrNoFaceDetected
	}
	imaging.SortScanOrder(faces)

	enc, err := e.models.Encoder.Encode(ctx, img, faces[0])
	if err != nil {
		return nil, fmt.Errorf("encode face: %w", err)
	}
	if len(enc) != e.models.Dim {
		return nil, domain.ErrEncodingDimension.WithError(
			fmt.Errorf("model %s returned %d values, want %d", e.models.ID, len(enc), e.models.Dim))
	}

	return domain.FaceEncoding(enc), nil
}
