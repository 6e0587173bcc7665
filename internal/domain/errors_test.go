package domain

import (
	"errors"
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
			appErr:   ErrRuleNotFound,
			expected: "Alert rule not found",
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

	if got := ErrAlertNotFound.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestAppError_WithError(t *testing.T) {
	underlying := errors.New("db connection failed")
	newErr := ErrInternal.WithError(underlying)

	if newErr.Code != ErrInternal.Code {
		t.Errorf("Code = %v, want %v", newErr.Code, ErrInternal.Code)
	}

	if newErr.StatusCode != ErrInternal.StatusCode {
		t.Errorf("StatusCode = %v, want %v", newErr.StatusCode, ErrInternal.StatusCode)
	}

	if !errors.Is(newErr, underlying) {
		t.Errorf("errors.Is should return true for wrapped error")
	}

	if ErrInternal.Err != nil {
		t.Errorf("WithError must not mutate the predefined error")
	}
}

func TestAppError_WithDetails(t *testing.T) {
	details := map[string]string{"type": "unknown"}
	newErr := ErrValidationFailed.WithDetails(details)

	if newErr.Details["type"] != "unknown" {
		t.Errorf("Details = %v, want %v", newErr.Details, details)
	}

	if ErrValidationFailed.Details != nil {
		t.Errorf("WithDetails must not mutate the predefined error")
	}

	var appErr *AppError
	if !errors.As(error(newErr), &appErr) || appErr.StatusCode != 422 {
		t.Errorf("errors.As should expose the status code")
	}
}

func TestAppError_StatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		code int
	}{
		{ErrBadRequest, 400},
		{ErrAlertNotFound, 404},
		{ErrRuleNotFound, 404},
		{ErrEmptySnapshot, 422},
		{ErrRateLimitExceeded, 429},
		{ErrServiceUnavailable, 503},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			if tt.err.StatusCode != tt.code {
				t.Errorf("StatusCode = %v, want %v", tt.err.StatusCode, tt.code)
			}
		})
	}
}
