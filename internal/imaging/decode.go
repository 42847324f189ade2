// Package imaging holds the pixel-level steps of the recognition pipeline:
// decoding, luma conversion, histogram equalisation and face cropping.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// MaxPixels bounds the decoded size of an upload. A few hundred KB of
// compressed PNG can otherwise describe gigabytes of pixels.
const MaxPixels = 40_000_000

var errEmptyImage = errors.New("empty image")

// Decode turns raw bytes into an image. Empty, truncated, unsupported or
// oversized input yields domain.ErrDecode; a panicking decoder is recovered
// into the same error so corrupt uploads never crash the caller.
func Decode(data []byte) (img image.Image, format string, err error) {
	if len(data) == 0 {
		return nil, "", domain.ErrDecode.WithError(errEmptyImage)
	}

	defer func() {
		if r := recover(); r != nil {
			img, format = nil, ""
			err = domain.ErrDecode.WithError(fmt.Errorf("decoder panic: %v", r))
		}
	}()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", domain.ErrDecode.WithError(err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", domain.ErrDecode.WithError(errEmptyImage)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", domain.ErrDecode.WithError(
			fmt.Errorf("image is %dx%d, over the %d pixel limit", cfg.Width, cfg.Height, MaxPixels))
	}

	img, format, err = image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", domain.ErrDecode.WithError(err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", domain.ErrDecode.WithError(errEmptyImage)
	}
	return img, format, nil
}

// DecodeDataURL accepts "data:image/...;base64,<payload>" or a bare base64
// payload and returns the raw bytes.
func DecodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, domain.ErrDecode.WithError(errEmptyImage)
	}
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, domain.ErrDecode.WithError(errors.New("malformed data URL"))
		}
		s = s[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(s)
	}
	if err != nil {
		return nil, domain.ErrDecode.WithError(err)
	}
	if len(raw) == 0 {
		return nil, domain.ErrDecode.WithError(errEmptyImage)
	}
	return raw, nil
}

// Fit downsizes img so neither side exceeds maxSide. Smaller images and a
// non-positive maxSide return img unchanged.
func Fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return img
	}

	var nw, nh int
	if w >= h {
		nw = maxSide
		nh = max(1, int(float64(h)*float64(maxSide)/float64(w)))
	} else {
		nh = maxSide
		nw = max(1, int(float64(w)*float64(maxSide)/float64(h)))
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodeJPEG encodes img at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
