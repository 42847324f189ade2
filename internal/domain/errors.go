package domain

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so errors.Is(err, ErrX) holds after WithError.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// WithMessage returns a copy carrying a more specific user-facing message.
func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    msg,
		StatusCode: e.StatusCode,
		Err:        e.Err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	// Recognition errors

	ErrDecode = &AppError{
		Code:       "DECODE_ERROR",
		Message:    "Image decoding failed",
		StatusCode: 400,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 400,
	}

	ErrUnknownIdentity = &AppError{
		Code:       "UNKNOWN_IDENTITY",
		Message:    "Student not recognized",
		StatusCode: 400,
	}

	// ErrGalleryEmpty is informational; recognition degrades it to ErrUnknownIdentity.
	ErrGalleryEmpty = &AppError{
		Code:       "GALLERY_EMPTY",
		Message:    "No enrolled faces for this class",
		StatusCode: 400,
	}

	ErrEncodingDimension = &AppError{
		Code:       "ENCODING_DIMENSION",
		Message:    "Face encoder returned an unexpected dimension",
		StatusCode: 500,
	}

	ErrScanLimitExceeded = &AppError{
		Code:       "SCAN_LIMIT_EXCEEDED",
		Message:    "Too many recognition attempts for this class, try again shortly",
		StatusCode: 429,
	}

	// Ledger errors

	ErrLedgerIO = &AppError{
		Code:       "LEDGER_IO_ERROR",
		Message:    "Attendance ledger could not be read or written",
		StatusCode: 500,
	}

	ErrRecordNotFound = &AppError{
		Code:       "RECORD_NOT_FOUND",
		Message:    "No attendance record for this student on this date",
		StatusCode: 404,
	}

	ErrInvalidStatus = &AppError{
		Code:       "INVALID_STATUS",
		Message:    "Unknown attendance status",
		StatusCode: 422,
	}

	ErrInvalidDate = &AppError{
		Code:       "INVALID_DATE",
		Message:    "Date must be formatted as YYYY-MM-DD",
		StatusCode: 422,
	}

	ErrInvalidClass = &AppError{
		Code:       "INVALID_CLASS",
		Message:    "Class name is empty or contains path separators",
		StatusCode: 422,
	}

	// Registry errors

	ErrStudentNotFound = &AppError{
		Code:       "STUDENT_NOT_FOUND",
		Message:    "Student not found",
		StatusCode: 404,
	}

	ErrRegistryIO = &AppError{
		Code:       "REGISTRY_IO_ERROR",
		Message:    "Student registry could not be read or written",
		StatusCode: 500,
	}

	ErrGalleryIO = &AppError{
		Code:       "GALLERY_IO_ERROR",
		Message:    "Enrollment images could not be read or written",
		StatusCode: 500,
	}
)
