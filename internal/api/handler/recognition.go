package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

type Recognizer interface {
	Recognize(ctx context.Context, class string, image []byte) (domain.MatchResult, error)
}

type RecognitionHandler struct {
	recognizer Recognizer
	attendance AttendanceService
	logger     *slog.Logger
}

func NewRecognitionHandler(recognizer Recognizer, attendance AttendanceService, logger *slog.Logger) *RecognitionHandler {
	return &RecognitionHandler{
		recognizer: recognizer,
		attendance: attendance,
		logger:     logger,
	}
}

// RecognizeResponse response for recognize endpoint
type RecognizeResponse struct {
	Status   int             `json:"status"`
	Identity domain.Identity `json:"identity"`
	Distance float64         `json:"distance"`
}

// ScanResponse response for scan endpoint
type ScanResponse struct {
	MarkResponse
	Distance float64 `json:"distance"`
}

// Recognize POST /v1/classes/:class/recognize - identify the student in an image
func (h *RecognitionHandler) Recognize(c *fiber.Ctx) error {
	class := param(c, "class")

	image, err := readImage(c)
	if err != nil {
		return err
	}

	result, err := h.recognizer.Recognize(c.UserContext(), class, image)
	if err != nil {
		return err
	}

	return c.JSON(RecognizeResponse{
		Status:   fiber.StatusOK,
		Identity: result.Identity,
		Distance: result.Distance,
	})
}

// Scan POST /v1/classes/:class/scan - recognise and mark today's attendance
func (h *RecognitionHandler) Scan(c *fiber.Ctx) error {
	class := param(c, "class")

	image, err := readImage(c)
	if err != nil {
		return err
	}

	result, err := h.recognizer.Recognize(c.UserContext(), class, image)
	if err != nil {
		return err
	}

	date := h.attendance.Today()
	outcome, err := h.attendance.Mark(c.UserContext(), class, date, result.Identity)
	if err != nil {
		return err
	}

	resp := markResponse(class, date, outcome)
	return c.Status(resp.Status).JSON(ScanResponse{MarkResponse: resp, Distance: result.Distance})
}
