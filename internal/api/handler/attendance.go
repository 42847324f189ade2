package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/report"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
)

type AttendanceService interface {
	Mark(ctx context.Context, class, date string, identity domain.Identity) (*service.MarkOutcome, error)
	List(ctx context.Context, class, date string) ([]domain.AttendanceRecord, error)
	SetStatus(ctx context.Context, class, date, regNo string, status domain.Status) (domain.AttendanceRecord, error)
	Dates(ctx context.Context, class string) ([]string, error)
	Classes(ctx context.Context) ([]string, error)
	Today() string
}

type AttendanceHandler struct {
	service AttendanceService
	logger  *slog.Logger
}

func NewAttendanceHandler(service AttendanceService, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		logger:  logger,
	}
}

// MarkRequest request for mark endpoint
type MarkRequest struct {
	Name      string `json:"name"`
	RegNo     string `json:"reg_no"`
	ClassName string `json:"class_name"`
	// Date defaults to today when empty.
	Date string `json:"date"`
}

// MarkResponse response for mark and scan endpoints
type MarkResponse struct {
	Status       int                     `json:"status"`
	Message      string                  `json:"message"`
	Class        string                  `json:"class_name"`
	Date         string                  `json:"date"`
	Record       domain.AttendanceRecord `json:"record"`
	Notification *domain.DeliveryResult  `json:"notification,omitempty"`
}

// StatusRequest request for status update endpoint
type StatusRequest struct {
	Status string `json:"status"`
}

type RecordsResponse struct {
	Class   string                    `json:"class_name"`
	Date    string                    `json:"date"`
	Records []domain.AttendanceRecord `json:"records"`
}

type DatesResponse struct {
	Class string   `json:"class_name"`
	Dates []string `json:"dates"`
}

type ClassesResponse struct {
	Classes []string `json:"classes"`
}

// A new record answers 200 and a repeat answers 201, as existing clients
// expect.
func markResponse(class, date string, outcome *service.MarkOutcome) MarkResponse {
	resp := MarkResponse{
		Status:       fiber.StatusOK,
		Message:      "Attendance marked successfully",
		Class:        class,
		Date:         date,
		Record:       outcome.Record,
		Notification: outcome.Delivery,
	}
	if !outcome.Created() {
		resp.Status = fiber.StatusCreated
		resp.Message = "Student is already present"
	}
	return resp
}

// Mark POST /v1/attendance/mark - mark a recognised student present
func (h *AttendanceHandler) Mark(c *fiber.Ctx) error {
	var req MarkRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	class := strings.TrimSpace(req.ClassName)
	if class == "" {
		return domain.ErrValidationFailed.WithError(errors.New("class_name is required"))
	}
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = h.service.Today()
	}

	outcome, err := h.service.Mark(c.UserContext(), class, date, domain.Identity{Name: req.Name, RegNo: req.RegNo})
	if err != nil {
		return err
	}

	resp := markResponse(class, date, outcome)
	return c.Status(resp.Status).JSON(resp)
}

// List GET /v1/classes/:class/attendance/:date
func (h *AttendanceHandler) List(c *fiber.Ctx) error {
	class, date := param(c, "class"), param(c, "date")

	records, err := h.service.List(c.UserContext(), class, date)
	if err != nil {
		return err
	}

	return c.JSON(RecordsResponse{Class: class, Date: date, Records: records})
}

// UpdateStatus PUT /v1/classes/:class/attendance/:date/:reg_no
func (h *AttendanceHandler) UpdateStatus(c *fiber.Ctx) error {
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		return err
	}

	record, err := h.service.SetStatus(c.UserContext(), param(c, "class"), param(c, "date"), param(c, "reg_no"), status)
	if err != nil {
		return err
	}

	return c.JSON(record)
}

// Export GET /v1/classes/:class/attendance/:date/export?format=csv|xlsx
func (h *AttendanceHandler) Export(c *fiber.Ctx) error {
	class, date := param(c, "class"), param(c, "date")

	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		return err
	}

	records, err := h.service.List(c.UserContext(), class, date)
	if err != nil {
		return err
	}

	c.Attachment(format.Filename(class, date))
	c.Set(fiber.HeaderContentType, format.ContentType())
	if err := report.Write(c.Response().BodyWriter(), format, class, date, records); err != nil {
		return domain.ErrInternal.WithError(err)
	}
	return nil
}

// Dates GET /v1/classes/:class/attendance
func (h *AttendanceHandler) Dates(c *fiber.Ctx) error {
	class := param(c, "class")

	dates, err := h.service.Dates(c.UserContext(), class)
	if err != nil {
		return err
	}

	return c.JSON(DatesResponse{Class: class, Dates: dates})
}

// Classes GET /v1/classes
func (h *AttendanceHandler) Classes(c *fiber.Ctx) error {
	classes, err := h.service.Classes(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(ClassesResponse{Classes: classes})
}
