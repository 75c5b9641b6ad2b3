//go:build windows

package process

import (
	"fmt"
	"os"
)

// KillProcess kills a process by its ID. Windows has no SIGTERM, so the
// process is terminated outright.
func KillProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}

	if err := proc.Kill(); err != nil {
		return fmt.Errorf("failed to terminate process: %w", err)
	}

	return nil
}
