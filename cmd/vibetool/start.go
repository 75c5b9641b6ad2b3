package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stacklok/vibetool/pkg/container"
	"github.com/stacklok/vibetool/pkg/logger"
	"github.com/stacklok/vibetool/pkg/process"
)

var startCmd = &cobra.Command{
	Use:   "start [flags] IMAGE [-- ARGS...]",
	Short: "Run an MCP server in the background",
	Long: `Run an MCP server like the run command does, but detached from the
terminal. The server keeps running after the command returns; use the stop
command to shut it down.`,
	Args: cobra.MinimumNArgs(1),
	RunE: startCmdFunc,
}

var startOpts runFlags

func init() {
	addRunFlags(startCmd, &startOpts)
}

func startCmdFunc(_ *cobra.Command, args []string) error {
	image := args[0]
	cmdArgs := args[1:]

	containerName, _ := container.GetOrGenerateContainerName(startOpts.name, image)

	return detachProcess(image, containerName, cmdArgs, &startOpts)
}

// detachProcess re-executes the current binary as a detached run command and
// records its PID so the stop command can find it. The child is given the
// concrete container name so both processes key the PID file the same way.
func detachProcess(image, containerName string, cmdArgs []string, flags *runFlags) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	logFilePath := filepath.Join(os.TempDir(), fmt.Sprintf("vibetool-%s.log", containerName))
	// #nosec G304 - containerName is sanitized by the name generator
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		logger.Warnf("Failed to create log file: %v", err)
	} else {
		defer logFile.Close()
		logger.Infof("Logging to: %s", logFilePath)
	}

	detachedArgs := []string{"run", "--name", containerName}
	if flags.transport != "stdio" {
		detachedArgs = append(detachedArgs, "--transport", flags.transport)
	}
	if flags.port != 0 {
		detachedArgs = append(detachedArgs, "--port", fmt.Sprintf("%d", flags.port))
	}
	if flags.targetPort != 0 {
		detachedArgs = append(detachedArgs, "--target-port", fmt.Sprintf("%d", flags.targetPort))
	}
	if flags.permissionProfile != "stdio" {
		detachedArgs = append(detachedArgs, "--permission-profile", flags.permissionProfile)
	}
	for _, env := range flags.env {
		detachedArgs = append(detachedArgs, "--env", env)
	}
	detachedArgs = append(detachedArgs, image)
	detachedArgs = append(detachedArgs, cmdArgs...)

	// #nosec G204 - execPath is the path to the current binary
	detachedCmd := exec.Command(execPath, detachedArgs...)
	detachedCmd.Env = append(os.Environ(), detachedEnv+"=1")

	if logFile != nil {
		detachedCmd.Stdout = logFile
		detachedCmd.Stderr = logFile
	}

	// Detach from the terminal in a new session
	detachedCmd.Stdin = nil
	detachedCmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := detachedCmd.Start(); err != nil {
		return fmt.Errorf("failed to start detached process: %w", err)
	}

	if err := process.WritePIDFile(containerName, detachedCmd.Process.Pid); err != nil {
		logger.Warnf("Failed to write PID file: %v", err)
	}

	fmt.Printf("MCP server %s is running in the background (PID: %d)\n", containerName, detachedCmd.Process.Pid)
	fmt.Printf("Use 'vibetool stop %s' to stop the server\n", containerName)

	return nil
}
