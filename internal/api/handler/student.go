package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/registry"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
)

const maxWorkbookSize = 5 * 1024 * 1024

type EnrollmentService interface {
	Enroll(ctx context.Context, req service.EnrollRequest) (*service.EnrollResult, error)
	Students(ctx context.Context, class string) ([]domain.Enrollment, error)
	Student(ctx context.Context, regNo string) (domain.Student, error)
	Import(ctx context.Context, r io.Reader, defaultClass string) (registry.ImportResult, error)
}

type StudentHandler struct {
	service EnrollmentService
	logger  *slog.Logger
}

func NewStudentHandler(service EnrollmentService, logger *slog.Logger) *StudentHandler {
	return &StudentHandler{
		service: service,
		logger:  logger,
	}
}

type StudentsResponse struct {
	Class    string              `json:"class_name"`
	Students []domain.Enrollment `json:"students"`
}

// Enroll POST /v1/classes/:class/students - multipart name, reg_no, parent_email, image
func (h *StudentHandler) Enroll(c *fiber.Ctx) error {
	if !isMultipart(c) {
		return domain.ErrBadRequest.WithMessage("Expected multipart/form-data")
	}

	image, err := readImageFile(c, "image")
	if err != nil {
		return err
	}

	result, err := h.service.Enroll(c.UserContext(), service.EnrollRequest{
		Class:       param(c, "class"),
		Name:        formValue(c, "name"),
		RegNo:       formValue(c, "reg_no"),
		ParentEmail: formValue(c, "parent_email"),
		Image:       image,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// List GET /v1/classes/:class/students
func (h *StudentHandler) List(c *fiber.Ctx) error {
	class := param(c, "class")

	students, err := h.service.Students(c.UserContext(), class)
	if err != nil {
		return err
	}

	return c.JSON(StudentsResponse{Class: class, Students: students})
}

// Get GET /v1/students/:reg_no
func (h *StudentHandler) Get(c *fiber.Ctx) error {
	student, err := h.service.Student(c.UserContext(), param(c, "reg_no"))
	if err != nil {
		return err
	}
	return c.JSON(student)
}

// Import POST /v1/students/import - multipart "file" (xlsx) and optional "class_name"
func (h *StudentHandler) Import(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return domain.ErrValidationFailed.WithError(fmt.Errorf("file is required: %w", err))
	}
	if file.Size > maxWorkbookSize {
		return domain.ErrBadRequest.WithMessage("Workbook exceeds 5MB")
	}

	f, err := file.Open()
	if err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	defer func() { _ = f.Close() }()

	result, err := h.service.Import(c.UserContext(), f, formValue(c, "class_name"))
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return domain.ErrInternal.WithError(err)
	}

	h.logger.Info("students imported",
		"created", result.Created,
		"skipped", result.Skipped,
		"invalid", result.Invalid,
	)
	return c.JSON(result)
}
