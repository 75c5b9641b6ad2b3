// Package networking provides utilities for host-side networking,
// such as finding an available port for a proxy to listen on.
package networking

import (
	"fmt"
	"math/rand"
	"net"
)

const (
	// MinPort is the lower bound of the ephemeral range to pick from
	MinPort = 49152
	// MaxPort is the exclusive upper bound of the ephemeral range
	MaxPort = 65535
	// MaxAttempts is the maximum number of attempts to find an available port
	MaxAttempts = 10
)

// IsAvailable checks whether a loopback TCP bind on the port succeeds.
func IsAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// FindAvailable samples random ports from the ephemeral range until one
// binds, or returns 0 after MaxAttempts failures.
func FindAvailable() int {
	for i := 0; i < MaxAttempts; i++ {
		// #nosec G404 - port selection does not need cryptographic randomness
		port := rand.Intn(MaxPort-MinPort) + MinPort
		if IsAvailable(port) {
			return port
		}
	}
	return 0
}

// FindOrUsePort validates a requested port or selects a random free one.
// A requested port that is already bound is an error rather than a fallback;
// the caller asked for it explicitly.
func FindOrUsePort(port int) (int, error) {
	if port > 0 {
		if !IsAvailable(port) {
			return 0, fmt.Errorf("port %d is already in use", port)
		}
		return port, nil
	}

	port = FindAvailable()
	if port == 0 {
		return 0, fmt.Errorf("could not find an available port")
	}
	return port, nil
}
