package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stacklok/vibetool/pkg/container"
)

var rmCmd = &cobra.Command{
	Use:   "rm [container-name-or-id]",
	Short: "Remove an MCP server",
	Long:  `Remove an MCP server managed by Vibe Tool. A running server is only removed with --force.`,
	Args:  cobra.ExactArgs(1),
	RunE:  rmCmdFunc,
}

var rmForce bool

func init() {
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "Force removal of a running container")
}

func rmCmdFunc(_ *cobra.Command, args []string) error {
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

	if running {
		if !rmForce {
			return fmt.Errorf("container is running, use --force")
		}

		// Kill a detached proxy before taking the container away from it
		stopDetachedProxy(c.Labels)

		if err := runtime.StopContainer(ctx, c.ID); err != nil {
			return fmt.Errorf("failed to stop container: %w", err)
		}
	}

	if err := runtime.RemoveContainer(ctx, c.ID); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}

	fmt.Printf("Container %s removed\n", nameOrID)
	return nil
}
