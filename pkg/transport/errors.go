package transport

import (
	"errors"
)

// Common transport errors
var (
	// ErrUnsupportedTransport is returned when an unsupported transport type is requested
	ErrUnsupportedTransport = errors.New("unsupported transport type")

	// ErrContainerIDNotSet is returned when the container ID is not set
	ErrContainerIDNotSet = errors.New("container ID not set")

	// ErrContainerNameNotSet is returned when the container name is not set
	ErrContainerNameNotSet = errors.New("container name not set")

	// ErrRuntimeNotSet is returned when the container runtime is not set
	ErrRuntimeNotSet = errors.New("container runtime not set")

	// ErrInvalidMessage is returned when a line cannot be parsed as a
	// JSON-RPC 2.0 message
	ErrInvalidMessage = errors.New("invalid JSON-RPC message")
)
