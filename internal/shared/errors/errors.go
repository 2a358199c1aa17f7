// Package errors provides application-level error types and utilities.
// It defines the billing error taxonomy: validation, not found, duplicate,
// conflicting transition, signature, gateway, and configuration errors.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation            ErrorType = "validation_error"
	ErrorTypeNotFound              ErrorType = "not_found"
	ErrorTypeDuplicate             ErrorType = "duplicate"
	ErrorTypeConflictingTransition ErrorType = "conflicting_transition"
	ErrorTypeSignature             ErrorType = "signature_error"
	ErrorTypeGateway               ErrorType = "gateway_error"
	ErrorTypeConfiguration         ErrorType = "configuration_error"
	ErrorTypeUnauthorized          ErrorType = "unauthorized"
	ErrorTypeInternal              ErrorType = "internal_error"
)

// AppError represents an application error with additional context
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func newAppError(errType ErrorType, code int, message string, details ...string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:    errType,
		Message: message,
		Code:    code,
		Details: detail,
	}
}

// NewValidationError creates a new validation error. The operation is
// rejected with no side effect.
func NewValidationError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, details...)
}

// NewNotFoundError creates a new not found error (unknown order code,
// subscription, or user).
func NewNotFoundError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message, details...)
}

// NewDuplicateError creates a new duplicate error (order code collision).
func NewDuplicateError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeDuplicate, http.StatusConflict, message, details...)
}

// NewConflictingTransitionError reports a terminal-status mismatch on
// webhook replay. It is surfaced to operators, never auto-resolved.
func NewConflictingTransitionError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeConflictingTransition, http.StatusConflict, message, details...)
}

// NewSignatureError reports an untrusted webhook payload. The payload must
// be rejected before it reaches any business logic.
func NewSignatureError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeSignature, http.StatusUnauthorized, message, details...)
}

// NewGatewayError reports a payment-gateway timeout or 5xx. Renewal flows
// treat it as a failed renewal (past due), never as a silent retry.
func NewGatewayError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeGateway, http.StatusBadGateway, message, details...)
}

// NewConfigurationError reports an unknown plan or tier. Quota checks fail
// closed when configuration cannot be resolved.
func NewConfigurationError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeConfiguration, http.StatusInternalServerError, message, details...)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeUnauthorized, http.StatusUnauthorized, message, details...)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, details...)
}

// IsType reports whether err is an *AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// GetAppError extracts an *AppError from err, or wraps err as an internal
// error so callers always have a typed error to render.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("internal server error", err.Error())
}
