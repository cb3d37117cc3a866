// Package errors defines the service error taxonomy and its HTTP mapping.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code identifies the class of a service error.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeNotFound     Code = "NOT_FOUND"
	CodeRateLimited  Code = "RATE_LIMITED"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// ServiceError carries a taxonomy code, a user-safe message and the HTTP
// status it maps to. The wrapped cause is logged but never serialized.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.cause
}

// WithDetails attaches a key/value pair for logging and diagnostics.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Validation reports malformed or out-of-range input (400).
func Validation(message string) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// Unauthorized reports a missing, invalid or mismatched credential (401).
func Unauthorized(message string) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// NotFound reports an absent resource (404).
func NotFound(message string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

// TooManyRequests reports a client exceeding its rate limit (429).
func TooManyRequests(message string) *ServiceError {
	return &ServiceError{Code: CodeRateLimited, Message: message, HTTPStatus: http.StatusTooManyRequests}
}

// Internal reports a storage or unexpected failure (500). The cause is
// retained for logging only.
func Internal(message string, cause error) *ServiceError {
	return &ServiceError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, cause: cause}
}

// GetServiceError extracts a ServiceError from an error chain, or nil.
func GetServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}

// Status returns the HTTP status for any error, defaulting unknown errors
// to 500.
func Status(err error) int {
	if svcErr := GetServiceError(err); svcErr != nil {
		return svcErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
