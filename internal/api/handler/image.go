package handler

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imaging"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB
)

// ImageRequest carries a webcam capture as a data URL.
type ImageRequest struct {
	Image string `json:"image"`
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// readImage accepts either a multipart "image" file or a JSON body with a
// base64 data URL.
func readImage(c *fiber.Ctx) ([]byte, error) {
	if isMultipart(c) {
		return readImageFile(c, "image")
	}

	var req ImageRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, domain.ErrBadRequest.WithError(err)
	}
	if strings.TrimSpace(req.Image) == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("image is required"))
	}
	if len(req.Image) > maxImageSize*4/3+64 {
		return nil, domain.ErrBadRequest.WithMessage("Image exceeds 10MB")
	}
	return imaging.DecodeDataURL(req.Image)
}

func readImageFile(c *fiber.Ctx, field string) ([]byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("%s is required: %w", field, err))
	}
	if file.Size > maxImageSize {
		return nil, domain.ErrBadRequest.WithMessage("Image exceeds 10MB")
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrBadRequest.WithError(err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
	if err != nil {
		return nil, domain.ErrBadRequest.WithError(err)
	}
	if len(data) == 0 {
		return nil, domain.ErrDecode.WithError(errors.New("empty upload"))
	}
	return data, nil
}
