package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/registry"
)

type GalleryEnroller interface {
	Enroll(ctx context.Context, class string, identity domain.Identity, data []byte) (*domain.Enrollment, error)
	Students(ctx context.Context, class string) ([]domain.Enrollment, error)
}

type EnrollRequest struct {
	Class       string
	Name        string
	RegNo       string
	ParentEmail string
	Image       []byte
}

type EnrollResult struct {
	Enrollment *domain.Enrollment `json:"enrollment"`
	// Registered is false when the registry already knew the student; the
	// first registration is kept.
	Registered bool `json:"registered"`
}

type EnrollmentService struct {
	gallery  GalleryEnroller
	registry registry.Registry
	audit    audit.Logger
	logger   *slog.Logger
}

func NewEnrollmentService(gallery GalleryEnroller, reg registry.Registry, logger *slog.Logger) *EnrollmentService {
	return &EnrollmentService{
		gallery:  gallery,
		registry: reg,
		audit:    &audit.NoOpLogger{},
		logger:   logger.With("component", "enrollment"),
	}
}

func (s *EnrollmentService) WithAudit(logger audit.Logger) *EnrollmentService {
	s.audit = logger
	return s
}

// Enroll stores the face image in the class gallery and saves the student
// details in the registry.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*EnrollResult, error) {
	if err := domain.ValidateClass(req.Class); err != nil {
		return nil, err
	}
	student, err := registry.Normalize(domain.Student{
		RegNo:       req.RegNo,
		Name:        req.Name,
		Class:       req.Class,
		ParentEmail: req.ParentEmail,
	})
	if err != nil {
		return nil, err
	}

	enrollment, err := s.gallery.Enroll(ctx, req.Class, student.Identity(), req.Image)
	if err != nil {
		s.record(ctx, req.Class, student.RegNo, err)
		return nil, err
	}

	created, err := s.registry.Register(ctx, student)
	if err != nil {
		// The image stays enrolled; enrolling again replaces it.
		s.logger.Error("registry write failed after enrollment",
			"class", req.Class,
			"reg_no", student.RegNo,
			"error", err,
		)
		s.record(ctx, req.Class, student.RegNo, err)
		return nil, err
	}

	s.record(ctx, req.Class, student.RegNo, nil)
	return &EnrollResult{Enrollment: enrollment, Registered: created}, nil
}

// Students lists the identities enrolled in class.
func (s *EnrollmentService) Students(ctx context.Context, class string) ([]domain.Enrollment, error) {
	if err := domain.ValidateClass(class); err != nil {
		return nil, err
	}
	return s.gallery.Students(ctx, class)
}

func (s *EnrollmentService) Student(ctx context.Context, regNo string) (domain.Student, error) {
	if err := domain.ValidateRegNo(regNo); err != nil {
		return domain.Student{}, err
	}
	return s.registry.Get(ctx, regNo)
}

// Import registers the students listed in an Excel workbook.
func (s *EnrollmentService) Import(ctx context.Context, r io.Reader, defaultClass string) (registry.ImportResult, error) {
	if defaultClass != "" {
		if err := domain.ValidateClass(defaultClass); err != nil {
			return registry.ImportResult{}, err
		}
	}

	result, err := registry.ImportXLSX(ctx, s.registry, r, defaultClass, s.logger)
	if err != nil {
		var appErr *domain.AppError
		if !errors.As(err, &appErr) && ctx.Err() == nil {
			err = domain.ErrBadRequest.WithMessage("Invalid workbook").WithError(err)
		}
		return result, err
	}

	_ = s.audit.Log(ctx, audit.Event{
		EventType: audit.EventStudentsImported,
		Class:     defaultClass,
		Success:   true,
		Metadata: map[string]string{
			"created": strconv.Itoa(result.Created),
			"skipped": strconv.Itoa(result.Skipped),
			"invalid": strconv.Itoa(result.Invalid),
		},
	})
	return result, nil
}

func (s *EnrollmentService) record(ctx context.Context, class, regNo string, err error) {
	event := audit.Event{
		EventType: audit.EventStudentEnrolled,
		Class:     class,
		RegNo:     regNo,
		Success:   err == nil,
	}
	if err != nil {
		event.Error = fmt.Sprint(err)
	}
	_ = s.audit.Log(ctx, event)
}
