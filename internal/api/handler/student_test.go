package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/chamada/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/registry"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
)

func TestStudentHandler_Enroll(t *testing.T) {
	svc := new(MockEnrollmentService)
	svc.On("Enroll", mock.Anything, service.EnrollRequest{
		Class:       "CS101",
		Name:        "John Doe",
		RegNo:       "21A",
		ParentEmail: "p@example.com",
		Image:       capture,
	}).Return(&service.EnrollResult{
		Enrollment: &domain.Enrollment{Identity: johnID, Class: "CS101"},
		Registered: true,
	}, nil)

	app := newTestApp()
	app.Post("/v1/classes/:class/students", NewStudentHandler(svc, discardLogger()).Enroll)

	req := multipartRequest(t, "/v1/classes/CS101/students",
		map[string]string{"name": "John Doe", "reg_no": "21A", "parent_email": "p@example.com"},
		"image", "john.jpg", capture)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	body := decode[service.EnrollResult](t, resp.Body)
	assert.True(t, body.Registered)
	assert.Equal(t, "21A", body.Enrollment.RegNo)
	svc.AssertExpectations(t)
}

func TestStudentHandler_EnrollErrors(t *testing.T) {
	t.Run("missing image", func(t *testing.T) {
		app := newTestApp()
		app.Post("/v1/classes/:class/students", NewStudentHandler(new(MockEnrollmentService), discardLogger()).Enroll)

		req := multipartRequest(t, "/v1/classes/CS101/students", map[string]string{"name": "John Doe", "reg_no": "21A"}, "", "", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)
	})

	t.Run("not multipart", func(t *testing.T) {
		app := newTestApp()
		app.Post("/v1/classes/:class/students", NewStudentHandler(new(MockEnrollmentService), discardLogger()).Enroll)

		resp, err := app.Test(jsonRequest(t, "POST", "/v1/classes/CS101/students", map[string]string{"name": "x"}))
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})

	t.Run("no face", func(t *testing.T) {
		svc := new(MockEnrollmentService)
		svc.On("Enroll", mock.Anything, mock.Anything).Return(nil, domain.ErrNoFaceDetected)
		app := newTestApp()
		app.Post("/v1/classes/:class/students", NewStudentHandler(svc, discardLogger()).Enroll)

		req := multipartRequest(t, "/v1/classes/CS101/students", map[string]string{"name": "John Doe", "reg_no": "21A"}, "image", "x.jpg", capture)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, "NO_FACE_DETECTED", decode[middleware.ErrorResponse](t, resp.Body).Error.Code)
	})
}

func TestStudentHandler_ListAndGet(t *testing.T) {
	svc := new(MockEnrollmentService)
	svc.On("Students", mock.Anything, "CS101").Return([]domain.Enrollment{{Identity: johnID, Class: "CS101"}}, nil)
	svc.On("Student", mock.Anything, "21A").Return(domain.Student{RegNo: "21A", Name: "John Doe", Class: "CS101"}, nil)
	svc.On("Student", mock.Anything, "99Z").Return(domain.Student{}, domain.ErrStudentNotFound)

	h := NewStudentHandler(svc, discardLogger())
	app := newTestApp()
	app.Get("/v1/classes/:class/students", h.List)
	app.Get("/v1/students/:reg_no", h.Get)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/classes/CS101/students", nil))
	require.NoError(t, err)
	body := decode[StudentsResponse](t, resp.Body)
	require.Len(t, body.Students, 1)
	assert.Equal(t, "21A", body.Students[0].RegNo)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/students/21A", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "John Doe", decode[domain.Student](t, resp.Body).Name)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/students/99Z", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestStudentHandler_Import(t *testing.T) {
	svc := new(MockEnrollmentService)
	svc.On("Import", mock.Anything, mock.Anything, "CS101").
		Return(registry.ImportResult{Created: 2, Skipped: 1}, nil)

	app := newTestApp()
	app.Post("/v1/students/import", NewStudentHandler(svc, discardLogger()).Import)

	req := multipartRequest(t, "/v1/students/import", map[string]string{"class_name": "CS101"}, "file", "students.xlsx", []byte("PK..."))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := decode[registry.ImportResult](t, resp.Body)
	assert.Equal(t, 2, body.Created)
	assert.Equal(t, 1, body.Skipped)
}
