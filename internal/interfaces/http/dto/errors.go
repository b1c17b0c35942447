package dto

import (
	"net/http"

	"github.com/garmentflow/backend/internal/domain/shared"
)

// Error codes returned in the response envelope.
// Domain codes are reused verbatim; the rest are raised by the HTTP layer itself.
const (
	ErrCodeValidation       = shared.CodeValidation
	ErrCodeNotFound         = shared.CodeNotFound
	ErrCodePermissionDenied = shared.CodePermissionDenied
	ErrCodeAccountSuspended = shared.CodeAccountSuspended
	ErrCodeConflict         = shared.CodeConflict
	ErrCodeExternalGateway  = shared.CodeExternalGateway
	ErrCodeUnauthenticated  = shared.CodeUnauthenticated

	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeInvalidSignature = "INVALID_SIGNATURE"
	ErrCodeRequestTooLarge  = "REQUEST_TOO_LARGE"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeUnavailable      = "UNAVAILABLE"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodePermissionDenied: http.StatusForbidden,
	ErrCodeAccountSuspended: http.StatusForbidden,
	ErrCodeConflict:         http.StatusConflict,
	ErrCodeExternalGateway:  http.StatusBadGateway,
	ErrCodeUnauthenticated:  http.StatusUnauthorized,
	ErrCodeUnavailable:      http.StatusServiceUnavailable,

	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidSignature: http.StatusBadRequest,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:      http.StatusTooManyRequests,
	ErrCodeTimeout:          http.StatusGatewayTimeout,
	ErrCodeInternal:         http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
