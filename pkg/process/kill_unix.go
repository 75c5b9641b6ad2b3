//go:build !windows

package process

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// KillProcess sends SIGTERM to a process by its ID.
func KillProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		// Process might already be dead
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("failed to terminate process: %w", err)
	}

	return nil
}
