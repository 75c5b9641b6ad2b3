// Package process provides utilities for managing process-related operations,
// such as PID file handling for detached proxy processes.
package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// GetPIDFilePath returns the path to the PID file for a container
// Note: containerBaseName is pre-sanitized by the caller
func GetPIDFilePath(containerBaseName string) string {
	tmpDir := os.TempDir()
	return filepath.Clean(filepath.Join(tmpDir, fmt.Sprintf("vibetool-%s.pid", containerBaseName)))
}

// WritePIDFile writes a process ID to a file
func WritePIDFile(containerBaseName string, pid int) error {
	pidFilePath := GetPIDFilePath(containerBaseName)
	return os.WriteFile(pidFilePath, []byte(fmt.Sprintf("%d", pid)), 0600)
}

// WriteCurrentPIDFile writes the current process ID to a file
func WriteCurrentPIDFile(containerBaseName string) error {
	return WritePIDFile(containerBaseName, os.Getpid())
}

// ReadPIDFile reads the process ID from a file
func ReadPIDFile(containerBaseName string) (int, error) {
	pidFilePath := GetPIDFilePath(containerBaseName)
	pidBytes, err := os.ReadFile(pidFilePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidBytes)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse PID: %w", err)
	}

	return pid, nil
}

// RemovePIDFile removes the PID file
func RemovePIDFile(containerBaseName string) error {
	pidFilePath := GetPIDFilePath(containerBaseName)
	if err := os.Remove(pidFilePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
