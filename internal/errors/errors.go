// Package errors defines the API error taxonomy and its HTTP mapping.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"cryptosniper/internal/domain"
)

// ErrorType represents the type of error
type ErrorType uint

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeValidation
	ErrorTypeAuthentication
	ErrorTypeAuthorization
	ErrorTypeNotFound
	ErrorTypeConflict
	ErrorTypeExpiredCode
	ErrorTypeInvalidCode
	ErrorTypeMissingCode
	ErrorTypeUnverified
	ErrorTypeRateLimit
	ErrorTypeInternal
)

// Error represents an API error with additional context
type Error struct {
	Type       ErrorType
	Message    string
	Details    map[string]interface{}
	Err        error
	StatusCode int
	ErrorCode  string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetails adds context details to the error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// NewError creates a new API error
func NewError(errType ErrorType, message string, err error) *Error {
	return &Error{
		Type:       errType,
		Message:    message,
		Err:        err,
		StatusCode: errorTypeToStatusCode(errType),
		ErrorCode:  errorTypeToCode(errType),
	}
}

func NewValidationError(message string, err error) *Error {
	return NewError(ErrorTypeValidation, message, err)
}

func NewAuthenticationError(message string, err error) *Error {
	return NewError(ErrorTypeAuthentication, message, err)
}

func NewAuthorizationError(message string, err error) *Error {
	return NewError(ErrorTypeAuthorization, message, err)
}

func NewNotFoundError(message string, err error) *Error {
	return NewError(ErrorTypeNotFound, message, err)
}

func NewConflictError(message string, err error) *Error {
	return NewError(ErrorTypeConflict, message, err)
}

func NewRateLimitError(message string, err error) *Error {
	return NewError(ErrorTypeRateLimit, message, err)
}

func NewInternalError(message string, err error) *Error {
	return NewError(ErrorTypeInternal, message, err)
}

// Domain-specific constructors

func NewInvalidCredentialsError() *Error {
	return NewAuthenticationError("Invalid email or password", nil)
}

func NewSessionRequiredError() *Error {
	return NewAuthenticationError("Not authenticated", nil)
}

func NewForbiddenResourceError(kind string, id int64) *Error {
	return NewAuthorizationError(
		fmt.Sprintf("You do not have access to this %s", kind),
		nil,
	).WithDetails(map[string]interface{}{
		"resource": kind,
		"id":       id,
	})
}

func NewResourceNotFoundError(kind string, id int64) *Error {
	return NewNotFoundError(
		fmt.Sprintf("%s not found", kind),
		nil,
	).WithDetails(map[string]interface{}{
		"resource": kind,
		"id":       id,
	})
}

func NewFieldValidationError(message string, fields map[string]string) *Error {
	return NewValidationError(message, nil).WithDetails(map[string]interface{}{
		"fields": fields,
	})
}

// FromOTP maps an OTP verification failure to its API error
func FromOTP(err error) *Error {
	switch {
	case stderrors.Is(err, domain.ErrMissingCode):
		return NewError(ErrorTypeMissingCode, "No OTP found for this email. Please request a new one", err)
	case stderrors.Is(err, domain.ErrExpiredCode):
		return NewError(ErrorTypeExpiredCode, "OTP has expired. Please request a new one", err)
	case stderrors.Is(err, domain.ErrInvalidCode):
		return NewError(ErrorTypeInvalidCode, "Invalid OTP", err)
	case stderrors.Is(err, domain.ErrUnverified):
		return NewError(ErrorTypeUnverified, "Email has not been verified. Please complete OTP verification first", err)
	default:
		return NewInternalError("Failed to verify OTP", err)
	}
}

// As extracts an *Error from err, if present
func As(err error) (*Error, bool) {
	var apiErr *Error
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func errorTypeToStatusCode(errType ErrorType) int {
	switch errType {
	case ErrorTypeValidation, ErrorTypeExpiredCode, ErrorTypeInvalidCode, ErrorTypeMissingCode, ErrorTypeUnverified:
		return http.StatusBadRequest
	case ErrorTypeConflict:
		// Registration conflicts are reported as 400 to match the dashboard client
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeAuthorization:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func errorTypeToCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeAuthentication:
		return "AUTHENTICATION_ERROR"
	case ErrorTypeAuthorization:
		return "AUTHORIZATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeConflict:
		return "CONFLICT"
	case ErrorTypeExpiredCode:
		return "OTP_EXPIRED"
	case ErrorTypeInvalidCode:
		return "OTP_INVALID"
	case ErrorTypeMissingCode:
		return "OTP_MISSING"
	case ErrorTypeUnverified:
		return "EMAIL_NOT_VERIFIED"
	case ErrorTypeRateLimit:
		return "RATE_LIMIT_EXCEEDED"
	case ErrorTypeInternal:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}
