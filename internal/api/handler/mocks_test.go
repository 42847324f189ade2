package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/chamada/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/registry"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(discardLogger())})
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, target string, fields map[string]string, fileField, fileName string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, r io.Reader) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(r).Decode(&out))
	return out
}

type MockRecognizer struct {
	mock.Mock
}

func (m *MockRecognizer) Recognize(ctx context.Context, class string, image []byte) (domain.MatchResult, error) {
	args := m.Called(ctx, class, image)
	return args.Get(0).(domain.MatchResult), args.Error(1)
}

type MockAttendanceService struct {
	mock.Mock
}

func (m *MockAttendanceService) Mark(ctx context.Context, class, date string, identity domain.Identity) (*service.MarkOutcome, error) {
	args := m.Called(ctx, class, date, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MarkOutcome), args.Error(1)
}

func (m *MockAttendanceService) List(ctx context.Context, class, date string) ([]domain.AttendanceRecord, error) {
	args := m.Called(ctx, class, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AttendanceRecord), args.Error(1)
}

func (m *MockAttendanceService) SetStatus(ctx context.Context, class, date, regNo string, status domain.Status) (domain.AttendanceRecord, error) {
	args := m.Called(ctx, class, date, regNo, status)
	return args.Get(0).(domain.AttendanceRecord), args.Error(1)
}

func (m *MockAttendanceService) Dates(ctx context.Context, class string) ([]string, error) {
	args := m.Called(ctx, class)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAttendanceService) Classes(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAttendanceService) Today() string {
	return m.Called().String(0)
}

type MockEnrollmentService struct {
	mock.Mock
}

func (m *MockEnrollmentService) Enroll(ctx context.Context, req service.EnrollRequest) (*service.EnrollResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EnrollResult), args.Error(1)
}

func (m *MockEnrollmentService) Students(ctx context.Context, class string) ([]domain.Enrollment, error) {
	args := m.Called(ctx, class)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Enrollment), args.Error(1)
}

func (m *MockEnrollmentService) Student(ctx context.Context, regNo string) (domain.Student, error) {
	args := m.Called(ctx, regNo)
	return args.Get(0).(domain.Student), args.Error(1)
}

func (m *MockEnrollmentService) Import(ctx context.Context, r io.Reader, defaultClass string) (registry.ImportResult, error) {
	args := m.Called(ctx, r, defaultClass)
	return args.Get(0).(registry.ImportResult), args.Error(1)
}
