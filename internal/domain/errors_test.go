package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "error without wrapped error",
			appErr:   ErrRecordNotFound,
			expected: "No attendance record for this student on this date",
		},
		{
			name: "error with wrapped error",
			appErr: &AppError{
				Code:       "TEST_ERROR",
				Message:    "Test message",
				StatusCode: 500,
				Err:        errors.New("underlying error"),
			},
			expected: "Test message: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	appErr := &AppError{
		Code:       "TEST",
		Message:    "test",
		StatusCode: 500,
		Err:        underlying,
	}

	if got := appErr.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	if got := ErrDecode.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestAppError_WithError(t *testing.T) {
	underlying := errors.New("disk full")
	newErr := ErrLedgerIO.WithError(underlying)

	if newErr.Code != ErrLedgerIO.Code {
		t.Errorf("Code = %v, want %v", newErr.Code, ErrLedgerIO.Code)
	}

	if newErr.StatusCode != ErrLedgerIO.StatusCode {
		t.Errorf("StatusCode = %v, want %v", newErr.StatusCode, ErrLedgerIO.StatusCode)
	}

	if !errors.Is(newErr, underlying) {
		t.Errorf("errors.Is should return true for wrapped error")
	}
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("extract: %w", ErrNoFaceDetected.WithError(errors.New("0 rectangles")))

	if !errors.Is(wrapped, ErrNoFaceDetected) {
		t.Errorf("errors.Is should match sentinel after WithError")
	}
	if errors.Is(wrapped, ErrDecode) {
		t.Errorf("errors.Is should not match a different code")
	}

	var appErr *AppError
	if !errors.As(wrapped, &appErr) || appErr.StatusCode != 400 {
		t.Errorf("errors.As should expose the 400 AppError, got %+v", appErr)
	}
}

func TestAppError_WithMessage(t *testing.T) {
	e := ErrValidationFailed.WithMessage("reg_no is required")

	if e.Message != "reg_no is required" {
		t.Errorf("Message = %q", e.Message)
	}
	if ErrValidationFailed.Message == e.Message {
		t.Errorf("WithMessage must not mutate the sentinel")
	}
	if !errors.Is(e, ErrValidationFailed) {
		t.Errorf("errors.Is should still match")
	}
}
