package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stacklok/vibetool/pkg/container"
	"github.com/stacklok/vibetool/pkg/labels"
	"github.com/stacklok/vibetool/pkg/logger"
	"github.com/stacklok/vibetool/pkg/process"
)

var stopCmd = &cobra.Command{
	Use:   "stop [container-name-or-id]",
	Short: "Stop an MCP server",
	Long:  `Stop a running MCP server managed by Vibe Tool.`,
	Args:  cobra.ExactArgs(1),
	RunE:  stopCmdFunc,
}

func stopCmdFunc(_ *cobra.Command, args []string) error {
	nameOrID := args[0]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runtime, err := container.NewFactory().Create(ctx)
	if err != nil {
		return fmt.Errorf("failed to create container runtime: %w", err)
	}

	c, err := container.FindContainerByNameOrID(ctx, runtime, nameOrID)
	if err != nil {
		return err
	}

	running, err := runtime.IsContainerRunning(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("failed to check if container is running: %w", err)
	}
	if !running {
		fmt.Printf("Container %s is not running\n", nameOrID)
		return nil
	}

	// A detached proxy process may be managing this container; kill it
	// first so it doesn't fight the stop.
	stopDetachedProxy(c.Labels)

	fmt.Printf("Stopping container %s...\n", nameOrID)
	if err := runtime.StopContainer(ctx, c.ID); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}

	fmt.Printf("Container %s stopped\n", nameOrID)
	return nil
}

// stopDetachedProxy kills the detached proxy process recorded in the PID
// file, if one exists for this container.
func stopDetachedProxy(containerLabels map[string]string) {
	baseName := labels.GetContainerBaseName(containerLabels)
	if baseName == "" {
		return
	}

	pid, err := process.ReadPIDFile(baseName)
	if err != nil {
		logger.Debugf("No PID file found for %s, proxy may not be running in detached mode", baseName)
		return
	}

	fmt.Printf("Stopping proxy process (PID: %d)...\n", pid)
	if err := process.KillProcess(pid); err != nil {
		logger.Warnf("Failed to kill proxy process: %v", err)
	}

	if err := process.RemovePIDFile(baseName); err != nil {
		logger.Warnf("Failed to remove PID file: %v", err)
	}
}
