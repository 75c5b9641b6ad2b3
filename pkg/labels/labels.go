// Package labels provides utilities for managing container labels
// used by the vibetool application.
package labels

import (
	"fmt"
	"strings"
)

const (
	// LabelVibeTool is the label that indicates a container is managed by vibetool
	LabelVibeTool = "vibetool"

	// LabelName is the label that contains the container name
	LabelName = "vibetool-name"

	// LabelBaseName is the label that contains the base container name (without timestamp)
	LabelBaseName = "vibetool-basename"

	// LabelTransport is the label that contains the transport mode
	LabelTransport = "vibetool-transport"

	// LabelPort is the label that contains the port
	LabelPort = "vibetool-port"

	// LabelVibeToolValue is the value for the LabelVibeTool label
	LabelVibeToolValue = "true"
)

// AddStandardLabels adds standard labels to a container
func AddStandardLabels(labels map[string]string, containerName, containerBaseName, transportType string, port int) {
	labels[LabelVibeTool] = LabelVibeToolValue
	labels[LabelName] = containerName
	labels[LabelBaseName] = containerBaseName
	labels[LabelTransport] = transportType
	labels[LabelPort] = fmt.Sprintf("%d", port)
}

// FormatVibeToolFilter formats a label filter for vibetool containers
func FormatVibeToolFilter() string {
	return fmt.Sprintf("%s=%s", LabelVibeTool, LabelVibeToolValue)
}

// IsVibeToolContainer checks if a container is managed by vibetool
func IsVibeToolContainer(labels map[string]string) bool {
	value, ok := labels[LabelVibeTool]
	return ok && strings.ToLower(value) == LabelVibeToolValue
}

// GetContainerName gets the container name from labels
func GetContainerName(labels map[string]string) string {
	return labels[LabelName]
}

// GetContainerBaseName gets the base container name from labels
func GetContainerBaseName(labels map[string]string) string {
	return labels[LabelBaseName]
}

// GetTransportType gets the transport type from labels
func GetTransportType(labels map[string]string) string {
	return labels[LabelTransport]
}

// GetPort gets the port from labels
func GetPort(labels map[string]string) (int, error) {
	portStr, ok := labels[LabelPort]
	if !ok {
		return 0, fmt.Errorf("port label not found")
	}

	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return 0, fmt.Errorf("invalid port: %s", portStr)
	}

	return port, nil
}
