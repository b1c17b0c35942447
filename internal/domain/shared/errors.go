package shared

import "errors"

// Error codes shared by every bounded context. The HTTP layer maps them to status codes.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeAccountSuspended = "ACCOUNT_SUSPENDED"
	CodeConflict         = "CONFLICT"
	CodeExternalGateway  = "EXTERNAL_GATEWAY_ERROR"
	CodeUnauthenticated  = "UNAUTHENTICATED"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code.
// This lets callers write errors.Is(err, shared.ErrConflict) for any conflict.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error carrying an extra detail entry
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError reports bad input such as quantity bounds or missing payment fields
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewNotFoundError reports an unknown order, product, account or session
func NewNotFoundError(message string) *DomainError {
	return NewDomainError(CodeNotFound, message)
}

// NewPermissionDeniedError reports a wrong role, a non-owner, or a pending account
func NewPermissionDeniedError(message string) *DomainError {
	return NewDomainError(CodePermissionDenied, message)
}

// NewAccountSuspendedError reports a suspended account. The stored reason travels in Details.
func NewAccountSuspendedError(reason string) *DomainError {
	msg := "account is suspended"
	if reason != "" {
		msg += ": " + reason
	}
	return &DomainError{
		Code:    CodeAccountSuspended,
		Message: msg,
		Details: map[string]any{"reason": reason},
	}
}

// NewConflictError reports an invalid state transition, insufficient stock or an unpaid session
func NewConflictError(message string) *DomainError {
	return NewDomainError(CodeConflict, message)
}

// NewExternalGatewayError wraps a failure of the checkout provider
func NewExternalGatewayError(message string, cause error) *DomainError {
	return &DomainError{
		Code:    CodeExternalGateway,
		Message: message,
		cause:   cause,
	}
}

// Sentinels for errors.Is comparisons
var (
	ErrValidation       = NewDomainError(CodeValidation, "Invalid input provided")
	ErrNotFound         = NewDomainError(CodeNotFound, "Resource not found")
	ErrPermissionDenied = NewDomainError(CodePermissionDenied, "Not allowed to perform this action")
	ErrAccountSuspended = NewDomainError(CodeAccountSuspended, "Account is suspended")
	ErrConflict         = NewDomainError(CodeConflict, "Operation conflicts with current state")
	ErrExternalGateway  = NewDomainError(CodeExternalGateway, "External gateway failure")
	ErrUnauthenticated  = NewDomainError(CodeUnauthenticated, "Authentication required")

	ErrConcurrencyConflict = NewConflictError("Resource was modified by another process")
	ErrInsufficientStock   = NewConflictError("Insufficient stock available")
	ErrInvalidState        = NewConflictError("Operation not allowed in current state")
)

// CodeOf returns the code of a DomainError in err's chain, or "" if there is none
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
