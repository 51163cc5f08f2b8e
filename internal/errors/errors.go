// Package errors defines structured error types for the document store.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies store failures.
type ErrorCode string

const (
	// ErrFileSystem is returned when creating, reading or writing the durable file fails.
	ErrFileSystem ErrorCode = "FILESYSTEM_ERROR"
	// ErrParse is returned when the durable file content is malformed.
	ErrParse ErrorCode = "PARSE_ERROR"
	// ErrInvalidName is returned when a database or collection name is unusable.
	ErrInvalidName ErrorCode = "INVALID_NAME"
	// ErrIDExhausted is returned when no unused identifier could be generated.
	ErrIDExhausted ErrorCode = "ID_EXHAUSTED"
)

// StoreError is a concrete error type with a code and a message.
type StoreError struct {
	code       ErrorCode
	message    string
	wrappedErr error
}

// New creates a new StoreError with the given code and message.
func New(code ErrorCode, message string) *StoreError {
	return &StoreError{
		code:    code,
		message: message,
	}
}

// Wrap wraps an underlying error.
func (e *StoreError) Wrap(err error) *StoreError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// Code returns the error code.
func (e *StoreError) Code() ErrorCode {
	return e.code
}

// Unwrap returns the wrapped error if any.
func (e *StoreError) Unwrap() error {
	return e.wrappedErr
}

// Predefined error constructors for common cases

// FileSystem creates an ErrFileSystem error for the operation op on path.
func FileSystem(op, path string, err error) *StoreError {
	return New(ErrFileSystem, fmt.Sprintf("failed to %s %s", op, path)).Wrap(err)
}

// Parse creates an ErrParse error for malformed content read from path.
func Parse(path string, err error) *StoreError {
	return New(ErrParse, fmt.Sprintf("failed to parse %s", path)).Wrap(err)
}

// InvalidName creates an ErrInvalidName error.
func InvalidName(kind, name, reason string) *StoreError {
	return New(ErrInvalidName, fmt.Sprintf("invalid %s name %q: %s", kind, name, reason))
}

// CodeOf returns the code of the first StoreError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var se *StoreError
	if stderrors.As(err, &se) {
		return se.code
	}
	return ""
}

// IsFileSystem reports whether err is a FileSystemError.
func IsFileSystem(err error) bool {
	return CodeOf(err) == ErrFileSystem
}

// IsParse reports whether err is a ParseError.
func IsParse(err error) bool {
	return CodeOf(err) == ErrParse
}
