package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound            ErrorCode = "NOT_FOUND"
	ErrConflict            ErrorCode = "CONFLICT"
	ErrForbidden           ErrorCode = "FORBIDDEN"
	ErrAlreadySettled      ErrorCode = "ALREADY_SETTLED"
	ErrInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	ErrInvalidAccount      ErrorCode = "INVALID_ACCOUNT_DETAILS"
	ErrInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	ErrInvariantViolation  ErrorCode = "INVARIANT_VIOLATION"
	ErrInternalServer      ErrorCode = "INTERNAL_SERVER_ERROR"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	if details != nil {
		logrus.Error(details)
	}
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Is lets callers match errors by code with errors.Is.
func (e APIError) Is(target error) bool {
	var apiErr APIError
	if errors.As(target, &apiErr) {
		return e.Code == apiErr.Code
	}
	return false
}

// CodeOf extracts the error code, or INTERNAL_SERVER_ERROR for untyped errors.
func CodeOf(err error) ErrorCode {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ErrInternalServer
}

func MapErrorToHTTPStatus(err error) int {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrConflict, ErrAlreadySettled:
			return http.StatusConflict
		case ErrForbidden:
			return http.StatusForbidden
		case ErrInvalidInput, ErrInvalidAmount, ErrInvalidAccount:
			return http.StatusBadRequest
		case ErrInsufficientBalance:
			return http.StatusUnprocessableEntity
		case ErrInvalidTransition:
			return http.StatusConflict
		case ErrInvariantViolation, ErrInternalServer:
			return http.StatusInternalServerError
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
