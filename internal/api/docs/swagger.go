package docs

import (
	"strconv"

	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// ImageRequest carries a webcam capture
type ImageRequest struct {
	Image string `json:"image" example:"data:image/jpeg;base64,/9j/4AAQSkZJRg..."`
}

// IdentityData names one student
type IdentityData struct {
	Name  string `json:"name" example:"John Doe"`
	RegNo string `json:"reg_no" example:"21A"`
}

// RecognizeResponse represents a successful recognition
type RecognizeResponse struct {
	Status   int          `json:"status" example:"200"`
	Identity IdentityData `json:"identity"`
	Distance float64      `json:"distance" example:"0.31"`
}

// MarkRequest represents a request to mark attendance
type MarkRequest struct {
	Name      string `json:"name" example:"John Doe"`
	RegNo     string `json:"reg_no" example:"21A"`
	ClassName string `json:"class_name" example:"CS101"`
	Date      string `json:"date" example:"2024-03-01"`
}

// RecordData is one ledger row
type RecordData struct {
	RegNo     string `json:"reg_no" example:"21A"`
	Name      string `json:"name" example:"John Doe"`
	Status    string `json:"status" example:"Present"`
	Timestamp string `json:"timestamp" example:"2024-03-01T09:00:00Z"`
}

// NotificationData reports the parent notification attempt
type NotificationData struct {
	Outcome   string `json:"outcome" example:"sent"`
	Recipient string `json:"recipient,omitempty" example:"parent@example.com"`
	Channel   string `json:"channel,omitempty" example:"smtp"`
	Message   string `json:"message,omitempty" example:"Notification sent to parent@example.com"`
}

// MarkResponse represents the result of marking attendance
type MarkResponse struct {
	Status       int               `json:"status" example:"200"`
	Message      string            `json:"message" example:"Attendance marked successfully"`
	ClassName    string            `json:"class_name" example:"CS101"`
	Date         string            `json:"date" example:"2024-03-01"`
	Record       RecordData        `json:"record"`
	Notification *NotificationData `json:"notification,omitempty"`
}

// ScanResponse represents the result of a scan
type ScanResponse struct {
	MarkResponse
	Distance float64 `json:"distance" example:"0.31"`
}

// StatusRequest represents an administrative status change
type StatusRequest struct {
	Status string `json:"status" example:"Late"`
}

// RecordsResponse lists one ledger
type RecordsResponse struct {
	ClassName string       `json:"class_name" example:"CS101"`
	Date      string       `json:"date" example:"2024-03-01"`
	Records   []RecordData `json:"records"`
}

// DatesResponse lists dates with a ledger
type DatesResponse struct {
	ClassName string   `json:"class_name" example:"CS101"`
	Dates     []string `json:"dates" example:"2024-03-01"`
}

// ClassesResponse lists known classes
type ClassesResponse struct {
	Classes []string `json:"classes" example:"CS101"`
}

// EnrollmentData is the metadata of one enrollment image
type EnrollmentData struct {
	Name       string `json:"name" example:"John Doe"`
	RegNo      string `json:"reg_no" example:"21A"`
	Class      string `json:"class" example:"CS101"`
	SHA256     string `json:"sha256" example:"9f86d081884c7d65..."`
	EnrolledAt string `json:"enrolled_at" example:"2024-03-01T08:00:00Z"`
}

// EnrollResponse represents a successful enrollment
type EnrollResponse struct {
	Enrollment EnrollmentData `json:"enrollment"`
	Registered bool           `json:"registered" example:"true"`
}

// StudentsResponse lists enrolled students
type StudentsResponse struct {
	ClassName string           `json:"class_name" example:"CS101"`
	Students  []EnrollmentData `json:"students"`
}

// StudentResponse is one registry entry
type StudentResponse struct {
	RegNo       string `json:"reg_no" example:"21A"`
	Name        string `json:"name" example:"John Doe"`
	Class       string `json:"class" example:"CS101"`
	ParentEmail string `json:"parent_email,omitempty" example:"parent@example.com"`
}

// ImportResponse counts a registry import
type ImportResponse struct {
	Created int `json:"created" example:"30"`
	Skipped int `json:"skipped" example:"2"`
	Invalid int `json:"invalid" example:"1"`
}

// ErrorDetail represents the error payload
type ErrorDetail struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Status int         `json:"status" example:"422"`
	Error  ErrorDetail `json:"error"`
}

func errorResponse(status int, code, message, statusText string) response.Response {
	return response.New(ErrorResponse{Status: status, Error: ErrorDetail{Code: code, Message: message}}, strconv.Itoa(status), statusText)
}

var (
	internalError = errorResponse(500, "INTERNAL_ERROR", "An unexpected error occurred", "Internal Server Error")
	ledgerError   = errorResponse(500, "LEDGER_IO_ERROR", "Attendance ledger could not be read or written", "Internal Server Error")
	invalidClass  = errorResponse(422, "INVALID_CLASS", "Class name is empty or contains path separators", "Unprocessable Entity")
	invalidDate   = errorResponse(422, "INVALID_DATE", "Date must be formatted as YYYY-MM-DD", "Unprocessable Entity")
	classParam    = parameter.StrParam("class", parameter.Path, parameter.WithDescription("Class name"))
	dateParam     = parameter.StrParam("date", parameter.Path, parameter.WithDescription("Ledger date (YYYY-MM-DD)"))
)

var recognitionErrors = []response.Response{
	errorResponse(400, "DECODE_ERROR", "Image decoding failed", "Bad Request"),
	errorResponse(400, "NO_FACE_DETECTED", "No face detected in the image", "Bad Request"),
	errorResponse(400, "UNKNOWN_IDENTITY", "Student not recognized", "Bad Request"),
	errorResponse(429, "SCAN_LIMIT_EXCEEDED", "Too many recognition attempts for this class, try again shortly", "Too Many Requests"),
	internalError,
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Chamada Attendance API",
		Version:     "v1.0.0",
		Description: "Face-recognition attendance: recognise students per class, keep one idempotent ledger per class and day, notify parents.",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// Recognition

		endpoint.New(
			endpoint.POST,
			"/classes/{class}/recognize",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Recognise a student"),
			endpoint.WithDescription("Matches the face in the image against the class gallery. Accepts a JSON data URL or a multipart \"image\" file."),
			endpoint.WithConsume([]mime.MIME{mime.JSON, mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(classParam),
			endpoint.WithBody(ImageRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecognizeResponse{}, "200", "Student recognised"),
			}),
			endpoint.WithErrors(recognitionErrors),
		),

		endpoint.New(
			endpoint.POST,
			"/classes/{class}/scan",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Recognise and mark today's attendance"),
			endpoint.WithDescription("Recognises the student and marks them present on today's ledger. Answers 200 for a new record and 201 when the student was already present."),
			endpoint.WithConsume([]mime.MIME{mime.JSON, mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(classParam),
			endpoint.WithBody(ImageRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ScanResponse{}, "200", "Attendance marked successfully"),
				response.New(ScanResponse{}, "201", "Student is already present"),
			}),
			endpoint.WithErrors(append(recognitionErrors, ledgerError)),
		),

		// Attendance

		endpoint.New(
			endpoint.POST,
			"/attendance/mark",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Mark a student present"),
			endpoint.WithDescription("Idempotent: a second mark for the same student, class and date changes nothing and sends no notification. date defaults to today."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(MarkRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MarkResponse{}, "200", "Attendance marked successfully"),
				response.New(MarkResponse{}, "201", "Student is already present"),
			}),
			endpoint.WithErrors([]response.Response{
				errorResponse(422, "VALIDATION_FAILED", "Request validation failed", "Unprocessable Entity"),
				invalidDate,
				ledgerError,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/classes/{class}/attendance/{date}",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("List a ledger"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(classParam, dateParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecordsResponse{}, "200", "Records in write order"),
			}),
			endpoint.WithErrors([]response.Response{invalidClass, invalidDate, ledgerError}),
		),

		endpoint.New(
			endpoint.PUT,
			"/classes/{class}/attendance/{date}/{reg_no}",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Change the status of a record"),
			endpoint.WithDescription("Overwrites the status (Present, Absent, Late, Excused). The timestamp is kept and no notification is sent."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				classParam,
				dateParam,
				parameter.StrParam("reg_no", parameter.Path, parameter.WithDescription("Registration number")),
			),
			endpoint.WithBody(StatusRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecordData{}, "200", "Record updated"),
			}),
			endpoint.WithErrors([]response.Response{
				errorResponse(404, "RECORD_NOT_FOUND", "No attendance record for this student on this date", "Not Found"),
				errorResponse(422, "INVALID_STATUS", "Unknown attendance status", "Unprocessable Entity"),
				ledgerError,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/classes/{class}/attendance/{date}/export",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Download a ledger"),
			endpoint.WithProduce([]mime.MIME{mime.MIME("text/csv"), mime.MIME("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")}),
			endpoint.WithParams(
				classParam,
				dateParam,
				parameter.StrParam("format", parameter.Query, parameter.WithDescription("csv (default) or xlsx")),
			),
			endpoint.WithErrors([]response.Response{
				errorResponse(400, "BAD_REQUEST", "unsupported export format", "Bad Request"),
				ledgerError,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/classes/{class}/attendance",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("List dates with a ledger"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(classParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DatesResponse{}, "200", "Dates ascending"),
			}),
			endpoint.WithErrors([]response.Response{invalidClass, ledgerError}),
		),

		endpoint.New(
			endpoint.GET,
			"/classes",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("List classes"),
			endpoint.WithDescription("Classes with enrolled students or at least one ledger."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ClassesResponse{}, "200", "Classes ascending"),
			}),
			endpoint.WithErrors([]response.Response{internalError}),
		),

		// Students

		endpoint.New(
			endpoint.POST,
			"/classes/{class}/students",
			endpoint.WithTags("Students"),
			endpoint.WithSummary("Enroll a student"),
			endpoint.WithDescription("Multipart fields name, reg_no, parent_email and image. Replaces an earlier image of the same student; the first registry entry is kept."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(classParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollResponse{}, "201", "Student enrolled"),
			}),
			endpoint.WithErrors([]response.Response{
				errorResponse(400, "NO_FACE_DETECTED", "No face detected in the image", "Bad Request"),
				errorResponse(422, "VALIDATION_FAILED", "Request validation failed", "Unprocessable Entity"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/classes/{class}/students",
			endpoint.WithTags("Students"),
			endpoint.WithSummary("List enrolled students"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(classParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StudentsResponse{}, "200", "Enrolled students"),
			}),
			endpoint.WithErrors([]response.Response{invalidClass, internalError}),
		),

		endpoint.New(
			endpoint.POST,
			"/students/import",
			endpoint.WithTags("Students"),
			endpoint.WithSummary("Import the student registry from Excel"),
			endpoint.WithDescription("Multipart \"file\" (xlsx) with a reg_no, name, class, parent_email header row. class_name fills rows without a class."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ImportResponse{}, "200", "Import finished"),
			}),
			endpoint.WithErrors([]response.Response{
				errorResponse(400, "BAD_REQUEST", "Invalid workbook", "Bad Request"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/students/{reg_no}",
			endpoint.WithTags("Students"),
			endpoint.WithSummary("Look up a student"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(parameter.StrParam("reg_no", parameter.Path, parameter.WithDescription("Registration number"))),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StudentResponse{}, "200", "Registry entry"),
			}),
			endpoint.WithErrors([]response.Response{
				errorResponse(404, "STUDENT_NOT_FOUND", "Student not found", "Not Found"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
