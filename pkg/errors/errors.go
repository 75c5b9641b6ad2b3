// Package errors provides the application-level error taxonomy for vibetool.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error types
const (
	// ErrIO is returned when an underlying filesystem, socket, or stream fails
	ErrIO = "io"

	// ErrInvalidArgument is returned when an invalid argument is provided
	ErrInvalidArgument = "invalid_argument"

	// ErrContainerRuntime is returned when there is an error with the container runtime
	ErrContainerRuntime = "container_runtime"

	// ErrContainerNotFound is returned when a container is not found
	ErrContainerNotFound = "container_not_found"

	// ErrContainerExited is returned when a container has exited unexpectedly
	ErrContainerExited = "container_exited"

	// ErrTransport is returned when there is an error with the transport
	ErrTransport = "transport"

	// ErrPermissions is returned when there is an error with permissions
	ErrPermissions = "permissions"

	// ErrConfiguration is returned when a configuration file is unreadable or malformed
	ErrConfiguration = "configuration"
)

// Error represents an error in the application
type Error struct {
	// Type is the error type
	Type string

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new error with the given type and message
func New(errType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Wrap creates a new error with the given type and message, wrapping the cause
func Wrap(errType, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidArgument creates a new invalid argument error
func NewInvalidArgument(message string, cause error) *Error {
	return &Error{Type: ErrInvalidArgument, Message: message, Cause: cause}
}

// NewPermissions creates a new permissions error
func NewPermissions(message string, cause error) *Error {
	return &Error{Type: ErrPermissions, Message: message, Cause: cause}
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, cause error) *Error {
	return &Error{Type: ErrConfiguration, Message: message, Cause: cause}
}

// IsType checks whether err is, or wraps, an application error of the
// given type
func IsType(err error, errType string) bool {
	var appErr *Error
	return stderrors.As(err, &appErr) && appErr.Type == errType
}
