// Package environment provides utilities for parsing and setting environment
// variables passed to MCP server containers.
package environment

import (
	"fmt"
	"strings"

	"github.com/stacklok/vibetool/pkg/errors"
)

// ParseEnvironmentVariables parses environment variables in KEY=VALUE format
func ParseEnvironmentVariables(envVars []string) (map[string]string, error) {
	envVarsMap := make(map[string]string, len(envVars))
	for _, envVar := range envVars {
		parts := strings.SplitN(envVar, "=", 2)
		if len(parts) != 2 {
			return nil, errors.NewInvalidArgument(
				fmt.Sprintf("invalid environment variable format: %s", envVar), nil)
		}

		key := strings.TrimSpace(parts[0])
		if key == "" {
			return nil, errors.NewInvalidArgument(
				fmt.Sprintf("empty environment variable key: %s", envVar), nil)
		}

		envVarsMap[key] = parts[1]
	}
	return envVarsMap, nil
}

// SetTransportEnvironmentVariables sets the transport-specific environment
// variables the container sees. For stdio the port is the host proxy port;
// for sse it is the port the server inside the container must listen on.
func SetTransportEnvironmentVariables(envVars map[string]string, transportType string, port int) {
	envVars["MCP_TRANSPORT"] = transportType
	if port > 0 {
		envVars["MCP_PORT"] = fmt.Sprintf("%d", port)
	}

	if transportType == "sse" {
		envVars["PORT"] = fmt.Sprintf("%d", port)
		envVars["FASTMCP_PORT"] = fmt.Sprintf("%d", port)
		envVars["MCP_SSE_ENABLED"] = "true"
	}
}
