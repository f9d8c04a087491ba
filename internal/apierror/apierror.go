package apierror

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrInvalidState      ErrorCode = "INVALID_STATE"
	ErrInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	ErrConflict          ErrorCode = "CONFLICT"
	ErrInternalServer    ErrorCode = "INTERNAL_SERVER_ERROR"
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

// Is lets errors.Is match two APIErrors by code, ignoring message/details.
func (e APIError) Is(target error) bool {
	t, ok := target.(APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func MapErrorToHTTPStatus(err error) int {
	if apiErr, ok := err.(APIError); ok {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrUnauthorized:
			return http.StatusForbidden
		case ErrInvalidState, ErrConflict:
			return http.StatusConflict
		case ErrInvalidInput:
			return http.StatusBadRequest
		case ErrInsufficientFunds:
			return http.StatusUnprocessableEntity
		case ErrInternalServer:
			return http.StatusInternalServerError
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
