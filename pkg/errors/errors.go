// Package errors provides structured error types for the diagramflow service.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - A single mapping from error codes to HTTP status codes
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Each code corresponds to one failure class in the review workflow:
//   - NOT_FOUND: a document, upload, node, or edge does not exist
//   - EMPTY_RESULT: the extraction service answered but returned nothing usable
//   - UPSTREAM_ERROR: the extraction call failed (transport, timeout, bad status)
//   - STORAGE_ERROR: reading or writing persisted state failed
//   - INVALID_INPUT: the request itself was malformed
//   - INTERNAL_ERROR: anything unexpected
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNotFound, "diagram %s not found", id)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // Handle missing resource
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStorage, origErr, "write document %s", id)
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the failure classes of the review workflow.
const (
	// Resource not found (document, upload, node, or edge).
	ErrCodeNotFound Code = "NOT_FOUND"

	// Extraction succeeded transport-wise but produced an empty document.
	ErrCodeEmptyResult Code = "EMPTY_RESULT"

	// Extraction transport failure, timeout, or non-success status.
	ErrCodeUpstream Code = "UPSTREAM_ERROR"

	// I/O failure reading or writing persisted state. Not retried.
	ErrCodeStorage Code = "STORAGE_ERROR"

	// Malformed request input.
	ErrCodeInvalidInput Code = "INVALID_INPUT"

	// Unexpected internal errors.
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error to the HTTP status code it should surface as.
// Unknown errors (including non-*Error values) map to 500.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeUpstream:
		return http.StatusBadGateway
	case ErrCodeEmptyResult, ErrCodeStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
