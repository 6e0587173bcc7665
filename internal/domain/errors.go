package domain

import (
	"fmt"
)

type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	StatusCode int               `json:"-"`
	Err        error             `json:"-"`
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

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		Details:    e.Details,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// WithDetails returns a copy carrying per-field messages, e.g.
// {"type": "must be one of price, portfolio, gas, yield, security"}.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		Details:    details,
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

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "Service temporarily unavailable",
		StatusCode: 503,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests",
		StatusCode: 429,
	}

	// Alert errors
	ErrAlertNotFound = &AppError{
		Code:       "ALERT_NOT_FOUND",
		Message:    "Alert not found",
		StatusCode: 404,
	}

	ErrInvalidAlertType = &AppError{
		Code:       "INVALID_ALERT_TYPE",
		Message:    "Alert type must be one of price, portfolio, gas, yield, security",
		StatusCode: 422,
	}

	ErrInvalidSeverity = &AppError{
		Code:       "INVALID_SEVERITY",
		Message:    "Severity must be one of info, warning, critical",
		StatusCode: 422,
	}

	// Rule errors
	ErrRuleNotFound = &AppError{
		Code:       "RULE_NOT_FOUND",
		Message:    "Alert rule not found",
		StatusCode: 404,
	}

	ErrInvalidConditions = &AppError{
		Code:       "INVALID_CONDITIONS",
		Message:    "Rule conditions are invalid",
		StatusCode: 422,
	}

	// Snapshot errors
	ErrEmptySnapshot = &AppError{
		Code:       "EMPTY_SNAPSHOT",
		Message:    "Snapshot contains no data",
		StatusCode: 422,
	}
)
