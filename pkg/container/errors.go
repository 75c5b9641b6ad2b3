package container

import (
	"errors"
	"fmt"
)

// Error types for container operations
var (
	// ErrContainerNotFound is returned when a container is not found
	ErrContainerNotFound = fmt.Errorf("container not found")

	// ErrContainerNotRunning is returned when attempting to perform an
	// operation that requires a running container
	ErrContainerNotRunning = fmt.Errorf("container not running")

	// ErrRuntimeNotFound is returned when the container runtime
	// (Docker/Podman) is not available on the system
	ErrRuntimeNotFound = fmt.Errorf("container runtime not found")

	// ErrAttachFailed is returned when the attempt to attach to a
	// container's stdin/stdout streams fails
	ErrAttachFailed = fmt.Errorf("failed to attach to container")

	// ErrContainerExited is returned when a container unexpectedly exits
	ErrContainerExited = fmt.Errorf("container exited unexpectedly")
)

// ContainerError represents an error related to container operations
type ContainerError struct {
	// Err is the underlying error
	Err error
	// ContainerID is the ID of the container
	ContainerID string
	// Message is an optional error message
	Message string
}

// Error returns the error message
func (e *ContainerError) Error() string {
	if e.Message != "" {
		if e.ContainerID != "" {
			return fmt.Sprintf("%s: %s (container: %s)", e.Err, e.Message, e.ContainerID)
		}
		return fmt.Sprintf("%s: %s", e.Err, e.Message)
	}

	if e.ContainerID != "" {
		return fmt.Sprintf("%s (container: %s)", e.Err, e.ContainerID)
	}

	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ContainerError) Unwrap() error {
	return e.Err
}

// NewContainerError creates a new container error
func NewContainerError(err error, containerID, message string) *ContainerError {
	return &ContainerError{
		Err:         err,
		ContainerID: containerID,
		Message:     message,
	}
}

// IsContainerNotFound checks whether err wraps ErrContainerNotFound
func IsContainerNotFound(err error) bool {
	return errors.Is(err, ErrContainerNotFound)
}
